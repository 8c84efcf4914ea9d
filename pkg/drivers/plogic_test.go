package drivers_test

import (
	"errors"
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/drivers"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

func newPLogicChannel(buildName string) *comtest.Channel {
	ch := comtest.New()
	scriptCard(ch, "6", "3.30",
		buildName,
		"Motor Axes: E",
		"Axis Props: 0",
	)
	return ch
}

func newPLogic(t *testing.T, ch *comtest.Channel) *drivers.PLogic {
	t.Helper()
	p, err := drivers.NewPLogic(hub.New(ch), "PLogic:E:36")
	if err != nil {
		t.Fatalf("NewPLogic: %v", err)
	}
	return p
}

func TestPLogicNumCells(t *testing.T) {
	t.Run("cell count from the build name", func(t *testing.T) {
		p := newPLogic(t, newPLogicChannel("PLOGIC_24"))
		if p.NumCells() != 24 {
			t.Errorf("NumCells = %d, want 24", p.NumCells())
		}
		if !p.Props().Has(drivers.PropOutputStateUpper) {
			t.Error("upper output state missing with more than 16 cells")
		}
	})

	t.Run("default of 16 cells", func(t *testing.T) {
		p := newPLogic(t, newPLogicChannel("PLOGIC"))
		if p.NumCells() != 16 {
			t.Errorf("NumCells = %d, want 16", p.NumCells())
		}
		if p.Props().Has(drivers.PropOutputStateUpper) {
			t.Error("upper output state registered with 16 cells")
		}
	})
}

func TestPLogicPointerCascade(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("M E=5", ":A").
		Respond("W E", ":A 5").
		Respond("6CCA Y?", ":A Y=5").
		Respond("6CCA Z?", ":A Z=3").
		Respond("6CCB X?", ":A X=65").
		Respond("6CCB Y?", ":A Y=0").
		Respond("6CCB Z?", ":A Z=0").
		Respond("6CCB F?", ":A F=0")
	p := newPLogic(t, ch)

	// Moving the pointer re-reads every cell editing property so the cache
	// describes the newly selected cell.
	if err := p.Props().Set(drivers.PropPointerPosition, "5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ch.Count("M E=5") != 1 {
		t.Errorf("sent = %v, want M E=5", ch.Sent())
	}
	if v, _ := p.Props().Cached(drivers.PropEditCellType); v != drivers.CellAnd2 {
		t.Errorf("cell type = %q, want %q", v, drivers.CellAnd2)
	}
	if v, _ := p.Props().Cached(drivers.PropEditCellConfig); v != "3" {
		t.Errorf("cell config = %q, want 3", v)
	}
	if v, _ := p.Props().Cached(drivers.PropEditCellInput1); v != "65" {
		t.Errorf("cell input 1 = %q, want 65", v)
	}

	// Setting the pointer to where it already sits skips the move.
	if err := p.Props().Set(drivers.PropPointerPosition, "5"); err != nil {
		t.Fatal(err)
	}
	if ch.Count("M E=5") != 1 {
		t.Errorf("redundant pointer move sent: %v", ch.Sent())
	}
}

func TestPLogicIOAddresses(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("M E=34", ":A").
		Respond("W E", ":A 34").
		Respond("6CCA Y?", ":A Y=2").
		Respond("6CCA Z?", ":A Z=1")
	p := newPLogic(t, ch)

	if err := p.Props().Set(drivers.PropPointerPosition, "34"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// An I/O address answers with the raw 0-2 I/O type code.
	if v, _ := p.Props().Cached(drivers.PropEditCellType); v != drivers.IOOutputPush {
		t.Errorf("cell type = %q, want %q", v, drivers.IOOutputPush)
	}
	// Only the type and config apply to I/O addresses.
	if ch.Count("6CCB X?") != 0 {
		t.Errorf("sent = %v, inputs must not be read on I/O addresses", ch.Sent())
	}

	// A logic cell type cannot be written to an I/O address.
	if err := p.Props().Set(drivers.PropEditCellType, drivers.CellAnd2); !errors.Is(err, prop.ErrInvalidValue) {
		t.Errorf("Set = %v, want ErrInvalidValue", err)
	}
}

func TestPLogicEditUpdatesToggle(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("M E=5", ":A").Respond("W E", ":A 5")
	p := newPLogic(t, ch)

	if err := p.Props().Set(drivers.PropEditCellUpdates, "No"); err != nil {
		t.Fatal(err)
	}
	if err := p.Props().Set(drivers.PropPointerPosition, "5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ch.Count("6CCA Y?") != 0 {
		t.Errorf("sent = %v, cascade must be off", ch.Sent())
	}
}

func TestPLogicCellTypeWrite(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("M E=3", ":A").
		Respond("W E", ":A 3").
		Respond("6CCA Y?", ":A Y=8").
		Respond("6CCA Z?", ":A Z=0").
		Respond("6CCB X?", ":A X=0").
		Respond("6CCB Y?", ":A Y=0").
		Respond("6CCB Z?", ":A Z=0").
		Respond("6CCB F?", ":A F=0").
		Respond("6CCA Y=8", ":A")
	p := newPLogic(t, ch)

	if err := p.Props().Set(drivers.PropPointerPosition, "3"); err != nil {
		t.Fatal(err)
	}
	if err := p.Props().Set(drivers.PropEditCellType, drivers.CellOneShot); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ch.Count("6CCA Y=8") != 1 {
		t.Errorf("sent = %v, want 6CCA Y=8", ch.Sent())
	}

	// Firmware 3.30 predates the OR2 variants.
	if err := p.Props().Set(drivers.PropEditCellType, drivers.CellOneShotOr2); err == nil {
		t.Error("firmware-gated cell type accepted")
	}
}

func TestPLogicTriggerSource(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("PM E?", "E=4").Respond("PM E=2", ":A")
	p := newPLogic(t, ch)

	v, err := p.Props().Update(drivers.PropTriggerSource)
	if err != nil {
		t.Fatal(err)
	}
	if v != drivers.TriggerFreqDiv {
		t.Errorf("trigger source = %q, want %q", v, drivers.TriggerFreqDiv)
	}
	if err := p.Props().Set(drivers.PropTriggerSource, drivers.TriggerTTL5); err != nil {
		t.Fatal(err)
	}
	if ch.Count("PM E=2") != 1 {
		t.Errorf("sent = %v, want PM E=2", ch.Sent())
	}
}

func TestPLogicCardPreset(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("6CCA X=12", ":A")
	p := newPLogic(t, ch)

	if err := p.Props().Set(drivers.PropCardPreset, "12"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ch.Count("6CCA X=12") != 1 {
		t.Errorf("sent = %v, want 6CCA X=12", ch.Sent())
	}
}

func TestPLogicOutputStates(t *testing.T) {
	ch := newPLogicChannel("PLOGIC_16")
	ch.Respond("6RA Z?", ":A 93").
		Respond("6RA X?", ":A 5").
		Respond("6RA Y?", ":A 128")
	p := newPLogic(t, ch)

	cases := []struct {
		name string
		want string
	}{
		{drivers.PropOutputState, "93"},
		{drivers.PropFrontpanelState, "5"},
		{drivers.PropBackplaneState, "128"},
	}
	for _, tc := range cases {
		v, err := p.Props().Get(tc.name)
		if err != nil {
			t.Fatalf("Get(%s): %v", tc.name, err)
		}
		if v != tc.want {
			t.Errorf("%s = %q, want %q", tc.name, v, tc.want)
		}
	}
}
