package mixin_test

import (
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
)

func newSingleAxisDevice(ch *comtest.Channel, version float64) *device {
	d := newDevice(ch, stdInfo(version))
	d.x = "Z"
	return d
}

func TestSingleAxisAmplitude(t *testing.T) {
	// Controller works in tenths of the external unit.
	ch := comtest.New().
		Respond("SAA Z?", ":A Z=4").
		Respond("SAA Z=2", ":A")
	d := newSingleAxisDevice(ch, 3.30)
	d.mult = 0.1
	if err := mixin.AddSingleAxisProperties(d); err != nil {
		t.Fatal(err)
	}

	v, err := d.reg.Get(mixin.PropSAAmplitude)
	if err != nil {
		t.Fatal(err)
	}
	if v != "40" {
		t.Errorf("amplitude = %q, want 40", v)
	}
	if err := d.reg.Set(mixin.PropSAAmplitude, "20"); err != nil {
		t.Fatal(err)
	}
	if ch.Count("SAA Z=2") != 1 {
		t.Errorf("sent = %v, want SAA Z=2", ch.Sent())
	}
}

func TestSingleAxisMode(t *testing.T) {
	// The controller coerces mode transitions; the cache must hold what it
	// actually accepted, not what was requested.
	ch := comtest.New().
		Respond("SAM Z=2", ":A").
		Respond("SAM Z?", ":A Z=1")
	d := newSingleAxisDevice(ch, 3.30)
	if err := mixin.AddSingleAxisProperties(d); err != nil {
		t.Fatal(err)
	}
	d.reg.SetInitialized()

	if err := d.reg.Set(mixin.PropSAMode, mixin.SAModeArmed); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ch.Count("SAM Z?") != 1 {
		t.Errorf("sent = %v, want a read-back query", ch.Sent())
	}
	if v, _ := d.reg.Cached(mixin.PropSAMode); v != mixin.SAModeEnabled {
		t.Errorf("cached = %q, want coerced %q", v, mixin.SAModeEnabled)
	}
}

func TestSingleAxisPattern(t *testing.T) {
	t.Run("write merges into the shared register", func(t *testing.T) {
		// Register holds 0x40; the pattern bits must not disturb it.
		ch := comtest.New().
			Respond("SAP Z?", ":A Z=64").
			Respond("SAP Z=66", ":A")
		d := newSingleAxisDevice(ch, 3.30)
		if err := mixin.AddSingleAxisProperties(d); err != nil {
			t.Fatal(err)
		}

		if err := d.reg.Set(mixin.PropSAPattern, mixin.SAPatternSquare); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if ch.Count("SAP Z=66") != 1 {
			t.Errorf("sent = %v, want merged SAP Z=66", ch.Sent())
		}
	})

	t.Run("sine needs firmware 3.14", func(t *testing.T) {
		d := newSingleAxisDevice(comtest.New(), 3.13)
		if err := mixin.AddSingleAxisProperties(d); err != nil {
			t.Fatal(err)
		}
		if err := d.reg.Set(mixin.PropSAPattern, mixin.SAPatternSine); err == nil {
			t.Error("sine accepted on firmware 3.13")
		}

		ch := comtest.New().
			Respond("SAP Z?", ":A Z=0").
			Respond("SAP Z=3", ":A")
		d = newSingleAxisDevice(ch, 3.14)
		if err := mixin.AddSingleAxisProperties(d); err != nil {
			t.Fatal(err)
		}
		if err := d.reg.Set(mixin.PropSAPattern, mixin.SAPatternSine); err != nil {
			t.Errorf("sine rejected on firmware 3.14: %v", err)
		}
	})
}

func TestSingleAxisAdvanced(t *testing.T) {
	ch := comtest.New()
	d := newSingleAxisDevice(ch, 3.30)
	if err := mixin.AddSingleAxisProperties(d); err != nil {
		t.Fatal(err)
	}
	if d.reg.Has(mixin.PropSAClockSource) {
		t.Fatal("advanced properties registered before the toggle")
	}

	// Enabling the toggle registers the register slices without touching
	// the wire.
	if err := d.reg.Set(mixin.PropSAAdvanced, mixin.Yes); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		mixin.PropSAClockSource,
		mixin.PropSAClockPolarity,
		mixin.PropSATTLOut,
		mixin.PropSATTLPolarity,
		mixin.PropSAPatternByte,
	} {
		if !d.reg.Has(name) {
			t.Errorf("missing advanced property %q", name)
		}
	}
	if ch.SentTotal() != 0 {
		t.Fatalf("toggle sent commands: %v", ch.Sent())
	}

	// A second enable must not re-register.
	if err := d.reg.Set(mixin.PropSAAdvanced, mixin.Yes); err != nil {
		t.Fatalf("second enable: %v", err)
	}

	t.Run("bit write preserves sibling bits", func(t *testing.T) {
		// Clock polarity bit 6 is set; enabling TTL out (bit 5) must keep it.
		ch.Respond("SAP Z?", ":A Z=64").Respond("SAP Z=96", ":A")
		if err := d.reg.Set(mixin.PropSATTLOut, mixin.SATTLOutOn); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if ch.Count("SAP Z=96") != 1 {
			t.Errorf("sent = %v, want SAP Z=96", ch.Sent())
		}
	})

	t.Run("bit read decodes only the owned bit", func(t *testing.T) {
		if v, err := d.reg.Get(mixin.PropSAClockPolarity); err != nil || v != mixin.SAClockPolNeg {
			t.Errorf("clock polarity = %q, %v, want %q", v, err, mixin.SAClockPolNeg)
		}
		if v, err := d.reg.Get(mixin.PropSATTLPolarity); err != nil || v != mixin.SATTLPolHigh {
			t.Errorf("TTL polarity = %q, %v, want %q", v, err, mixin.SATTLPolHigh)
		}
	})

	t.Run("pattern byte never trusts the cache", func(t *testing.T) {
		d.reg.SetInitialized()
		before := ch.Count("SAP Z?")
		for i := 0; i < 2; i++ {
			if v, err := d.reg.Get(mixin.PropSAPatternByte); err != nil || v != "64" {
				t.Fatalf("pattern byte = %q, %v, want 64", v, err)
			}
		}
		if got := ch.Count("SAP Z?") - before; got != 2 {
			t.Errorf("query count = %d, want 2", got)
		}
	})
}
