package reply_test

import (
	"errors"
	"testing"

	"github.com/asi-tiger/tiger-go/pkg/reply"
)

func TestAfterEquals(t *testing.T) {
	t.Run("float after equals", func(t *testing.T) {
		v, err := reply.FloatAfterEquals(":A X=123.45")
		if err != nil {
			t.Fatal(err)
		}
		if v != 123.45 {
			t.Fatalf("v = %v", v)
		}
	})

	t.Run("only the first pair parses", func(t *testing.T) {
		v, err := reply.FloatAfterEquals(":A X=1.5 Y=2.5")
		if err != nil {
			t.Fatal(err)
		}
		if v != 1.5 {
			t.Fatalf("v = %v, want first value", v)
		}
	})

	t.Run("negative int", func(t *testing.T) {
		v, err := reply.IntAfterEquals(":A F=-42")
		if err != nil {
			t.Fatal(err)
		}
		if v != -42 {
			t.Fatalf("v = %v", v)
		}
	})

	t.Run("missing equals", func(t *testing.T) {
		if _, err := reply.FloatAfterEquals(":A 1.5"); !errors.Is(err, reply.ErrNoEquals) {
			t.Fatalf("err = %v, want ErrNoEquals", err)
		}
	})
}

func TestAfterPosition(t *testing.T) {
	t.Run("position answer", func(t *testing.T) {
		v, err := reply.FloatAfterPosition(":A -1234.5", 2)
		if err != nil {
			t.Fatal(err)
		}
		if v != -1234.5 {
			t.Fatalf("v = %v", v)
		}
	})

	t.Run("uint", func(t *testing.T) {
		v, err := reply.UintAfterPosition(":A 131", 2)
		if err != nil {
			t.Fatal(err)
		}
		if v != 131 {
			t.Fatalf("v = %v", v)
		}
	})

	t.Run("too short", func(t *testing.T) {
		if _, err := reply.IntAfterPosition(":A", 5); !errors.Is(err, reply.ErrTooShort) {
			t.Fatalf("err = %v, want ErrTooShort", err)
		}
	})
}

func TestCharAt(t *testing.T) {
	c, err := reply.CharAt(":A B", 3)
	if err != nil {
		t.Fatal(err)
	}
	if c != 'B' {
		t.Fatalf("c = %c", c)
	}

	if _, err := reply.CharAt(":A", 3); !errors.Is(err, reply.ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
}

func TestLines(t *testing.T) {
	lines := reply.Lines("STD_ZF\rMotor Axes: Z F\r\rRING BUFFER_50")
	want := []string{"STD_ZF", "Motor Axes: Z F", "RING BUFFER_50"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
