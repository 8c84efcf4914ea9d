package drivers_test

import (
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/drivers"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
)

func newPiezoChannel() *comtest.Channel {
	ch := comtest.New()
	scriptCard(ch, "3", "3.30",
		"ADEPT_PIEZO",
		"Motor Axes: P",
		"Axis Props: 2",
		"RING BUFFER_50",
	)
	scriptUnitMult(ch, "P")
	return ch
}

func newPiezo(t *testing.T, ch *comtest.Channel) *drivers.Piezo {
	t.Helper()
	p, err := drivers.NewPiezo(hub.New(ch), "Piezo:P:33")
	if err != nil {
		t.Fatalf("NewPiezo: %v", err)
	}
	return p
}

func TestPiezoInitialize(t *testing.T) {
	ch := newPiezoChannel()
	p := newPiezo(t, ch)

	reg := p.Props()
	for _, name := range []string{
		drivers.PropPiezoMode,
		drivers.PropPiezoLowerLim, drivers.PropPiezoUpperLim,
		mixin.PropSAAmplitude, mixin.PropRingBufferMode,
	} {
		if !reg.Has(name) {
			t.Errorf("missing property %q", name)
		}
	}
	// No motor speed on a piezo.
	if reg.Has(drivers.PropSpeed) {
		t.Error("motor speed registered on a piezo")
	}
}

func TestPiezoMode(t *testing.T) {
	ch := newPiezoChannel()
	ch.Respond("PM P?", ":A P=1").Respond("PM P=2", ":A")
	p := newPiezo(t, ch)

	v, err := p.Props().Update(drivers.PropPiezoMode)
	if err != nil {
		t.Fatal(err)
	}
	if v != drivers.PiezoModeExtClosed {
		t.Errorf("mode = %q, want %q", v, drivers.PiezoModeExtClosed)
	}
	if err := p.Props().Set(drivers.PropPiezoMode, drivers.PiezoModeIntOpen); err != nil {
		t.Fatal(err)
	}
	if ch.Count("PM P=2") != 1 {
		t.Errorf("sent = %v, want PM P=2", ch.Sent())
	}
}

func TestPiezoTravelLimits(t *testing.T) {
	// Controller stores limits in mm; the properties expose µm.
	ch := newPiezoChannel()
	ch.Respond("SL P?", ":A P=-0.05").
		Respond("SU P?", ":A P=0.05").
		Respond("SU P=0.1", ":A")
	p := newPiezo(t, ch)

	v, err := p.Props().Update(drivers.PropPiezoUpperLim)
	if err != nil {
		t.Fatal(err)
	}
	if v != "50" {
		t.Errorf("upper limit = %q, want 50", v)
	}
	if err := p.Props().Set(drivers.PropPiezoUpperLim, "100"); err != nil {
		t.Fatal(err)
	}
	if ch.Count("SU P=0.1") != 1 {
		t.Errorf("sent = %v, want SU P=0.1", ch.Sent())
	}
}

func TestPiezoMotion(t *testing.T) {
	ch := newPiezoChannel()
	ch.Respond("M P=250", ":A").
		Respond("W P", ":A 250").
		Respond("RS P?", ":A N")
	p := newPiezo(t, ch)

	if err := p.MoveUm(25); err != nil {
		t.Fatalf("MoveUm: %v", err)
	}
	pos, err := p.PositionUm()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 25 {
		t.Errorf("position = %v, want 25", pos)
	}
	busy, err := p.Busy()
	if err != nil {
		t.Fatal(err)
	}
	if busy {
		t.Error("Busy = true while settled")
	}
}
