package drivers_test

import (
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/drivers"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
)

func newLensChannel() *comtest.Channel {
	ch := comtest.New()
	scriptCard(ch, "4", "3.30",
		"TUNABLE_LENS",
		"Motor Axes: L",
		"Axis Props: 2",
		"RING BUFFER_50",
	)
	scriptUnitMult(ch, "L")
	return ch
}

func newLens(t *testing.T, ch *comtest.Channel) *drivers.Lens {
	t.Helper()
	l, err := drivers.NewLens(hub.New(ch), "Lens:L:34")
	if err != nil {
		t.Fatalf("NewLens: %v", err)
	}
	return l
}

func TestLensInitialize(t *testing.T) {
	ch := newLensChannel()
	l := newLens(t, ch)

	reg := l.Props()
	for _, name := range []string{
		drivers.PropLensMode,
		drivers.PropLensLowerLim, drivers.PropLensUpperLim,
		drivers.PropLensTTLIn, drivers.PropLensTTLOut,
		mixin.PropSAAmplitude, mixin.PropRingBufferMode,
	} {
		if !reg.Has(name) {
			t.Errorf("missing property %q", name)
		}
	}
}

func TestLensMode(t *testing.T) {
	ch := newLensChannel()
	ch.Respond("PM L=1", ":A")
	l := newLens(t, ch)

	if err := l.Props().Set(drivers.PropLensMode, drivers.LensModeExternal); err != nil {
		t.Fatal(err)
	}
	if ch.Count("PM L=1") != 1 {
		t.Errorf("sent = %v, want PM L=1", ch.Sent())
	}
}

func TestLensTTL(t *testing.T) {
	ch := newLensChannel()
	ch.Respond("4TTL X?", ":A X=2").Respond("4TTL Y=1", ":A")
	l := newLens(t, ch)

	v, err := l.Props().Update(drivers.PropLensTTLIn)
	if err != nil {
		t.Fatal(err)
	}
	if v != "2" {
		t.Errorf("TTL input mode = %q, want 2", v)
	}
	if err := l.Props().Set(drivers.PropLensTTLOut, "1"); err != nil {
		t.Fatal(err)
	}
	if ch.Count("4TTL Y=1") != 1 {
		t.Errorf("sent = %v, want 4TTL Y=1", ch.Sent())
	}
}

func TestLensMotion(t *testing.T) {
	ch := newLensChannel()
	ch.Respond("M L=420", ":A").Respond("W L", ":A 420")
	l := newLens(t, ch)

	if err := l.Move(42); err != nil {
		t.Fatalf("Move: %v", err)
	}
	pos, err := l.Position()
	if err != nil {
		t.Fatal(err)
	}
	if pos != 42 {
		t.Errorf("position = %v, want 42", pos)
	}
}
