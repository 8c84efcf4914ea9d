package serial_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/asi-tiger/tiger-go/pkg/serial"
)

func TestVerify(t *testing.T) {
	t.Run("matching prefix", func(t *testing.T) {
		if err := serial.Verify("W X", ":A", ":A 123.4"); err != nil {
			t.Fatalf("Verify: %v", err)
		}
	})

	t.Run("mismatch wraps a protocol error", func(t *testing.T) {
		err := serial.Verify("W X", ":A", ":N-4")
		var perr *serial.ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("err = %T, want *ProtocolError", err)
		}
		if perr.Command != "W X" || perr.Expected != ":A" || perr.Answer != ":N-4" {
			t.Errorf("fields = %+v", perr)
		}
		// The raw answer must survive into the message for diagnostics.
		if !strings.Contains(perr.Error(), ":N-4") {
			t.Errorf("message = %q", perr.Error())
		}
	})

	t.Run("answer shorter than prefix", func(t *testing.T) {
		if err := serial.Verify("V", ":A Version:", ":A"); err == nil {
			t.Fatal("short answer passed verification")
		}
	})
}
