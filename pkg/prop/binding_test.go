package prop_test

import (
	"testing"

	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

func TestBindingFloat(t *testing.T) {
	t.Run("key=value answer with unit factor", func(t *testing.T) {
		// Controller stores mm, property exposes µm.
		ch := comtest.New().Respond("SL Z?", ":A Z=0.05")
		bind := &prop.Binding{
			Q: ch, Query: "SL Z?", QueryAck: ":A Z=", Pos: -1,
			Set: "SL Z=", Factor: 0.001,
		}
		p := prop.NewProperty(prop.Metadata{Name: "LowerLimit(um)", Type: prop.TypeFloat, Default: "0"})

		if err := bind.FloatGet()(p); err != nil {
			t.Fatalf("FloatGet: %v", err)
		}
		if got := p.Value(); got != "50" {
			t.Fatalf("value = %q, want 50", got)
		}

		ch.Respond("SL Z=0.1", ":A")
		if err := p.Store("100"); err != nil {
			t.Fatal(err)
		}
		if err := bind.FloatSet()(p); err != nil {
			t.Fatalf("FloatSet: %v", err)
		}
		if ch.Count("SL Z=0.1") != 1 {
			t.Fatalf("sent = %v, want SL Z=0.1", ch.Sent())
		}
	})

	t.Run("fixed-offset answer", func(t *testing.T) {
		ch := comtest.New().Respond("3RT Z?", ":A 12.5")
		bind := &prop.Binding{Q: ch, Query: "3RT Z?", QueryAck: ":A", Pos: 2, Set: "3RT Z="}
		p := prop.NewProperty(prop.Metadata{Name: "Delay", Type: prop.TypeFloat, Default: "0"})

		if err := bind.FloatGet()(p); err != nil {
			t.Fatalf("FloatGet: %v", err)
		}
		if got := p.Value(); got != "12.5" {
			t.Fatalf("value = %q, want 12.5", got)
		}
	})
}

func TestBindingEnumMask(t *testing.T) {
	table := prop.NewEnumTable().Add("No", 0).Add("Yes", 0x20)
	patternTable := prop.NewEnumTable().
		Add("0 - Ramp", 0).
		Add("1 - Triangle", 1).
		Add("2 - Square", 2)

	t.Run("masked read decodes only the owned bits", func(t *testing.T) {
		// Register holds 0xA2: pattern bits = 2, other bits set.
		ch := comtest.New().Respond("SAP Z?", ":A Z=162")
		bind := &prop.Binding{
			Q: ch, Query: "SAP Z?", QueryAck: ":A Z=", Pos: -1,
			Set: "SAP Z=", Mask: 0x07,
		}
		p := prop.NewProperty(prop.Metadata{
			Name: "Pattern", Type: prop.TypeEnum, Default: "0 - Ramp", Enum: patternTable,
		})
		if err := bind.EnumGet()(p); err != nil {
			t.Fatalf("EnumGet: %v", err)
		}
		if got := p.Value(); got != "2 - Square" {
			t.Fatalf("value = %q, want 2 - Square", got)
		}
	})

	t.Run("masked write leaves sibling bits untouched", func(t *testing.T) {
		// Register holds 0x40 (bit 6 owned by another property).
		// Writing Yes to the bit-5 property must preserve bit 6.
		ch := comtest.New().
			Respond("SAP Z?", ":A Z=64").
			Respond("SAP Z=96", ":A")
		bind := &prop.Binding{
			Q: ch, Query: "SAP Z?", QueryAck: ":A Z=", Pos: -1,
			Set: "SAP Z=", Mask: 0x20,
		}
		p := prop.NewProperty(prop.Metadata{
			Name: "TTLOut", Type: prop.TypeEnum, Default: "No", Enum: table,
		})
		if err := p.Store("Yes"); err != nil {
			t.Fatal(err)
		}
		if err := bind.EnumSet()(p); err != nil {
			t.Fatalf("EnumSet: %v", err)
		}
		if ch.Count("SAP Z=96") != 1 {
			t.Fatalf("sent = %v, want merged SAP Z=96", ch.Sent())
		}
	})

	t.Run("unmasked write sends the bare code", func(t *testing.T) {
		ch := comtest.New().Respond("SAM Z=2", ":A")
		bind := &prop.Binding{Q: ch, Query: "SAM Z?", QueryAck: ":A Z=", Pos: -1, Set: "SAM Z="}
		p := prop.NewProperty(prop.Metadata{
			Name: "Mode", Type: prop.TypeEnum, Default: "2 - Square", Enum: patternTable,
		})
		if err := bind.EnumSet()(p); err != nil {
			t.Fatalf("EnumSet: %v", err)
		}
		if ch.Count("SAM Z=2") != 1 {
			t.Fatalf("sent = %v", ch.Sent())
		}
		// No read-modify-write query for an unmasked property.
		if ch.Count("SAM Z?") != 0 {
			t.Fatal("unmasked write should not query the register")
		}
	})
}

func TestReadModifyWrite(t *testing.T) {
	ch := comtest.New().
		Respond("2SAP X?", ":A X=129").
		Respond("2SAP X=145", ":A")

	// Set bit 4 in a register currently holding 0x81.
	if err := prop.ReadModifyWrite(ch, "2SAP X?", ":A", "2SAP X=", 0x10, 0x10); err != nil {
		t.Fatalf("ReadModifyWrite: %v", err)
	}
	if ch.Count("2SAP X=145") != 1 {
		t.Fatalf("sent = %v, want 2SAP X=145", ch.Sent())
	}
}

func TestBindingAckDefaults(t *testing.T) {
	// Empty acks fall back to ":A" on both paths.
	ch := comtest.New().
		Respond("AC Z?", ":A Z=70").
		Respond("AC Z=80", ":A")
	bind := &prop.Binding{Q: ch, Query: "AC Z?", Pos: -1, Set: "AC Z="}
	p := prop.NewProperty(prop.Metadata{Name: "Accel", Type: prop.TypeInt, Default: "0"})

	if err := bind.IntGet()(p); err != nil {
		t.Fatalf("IntGet: %v", err)
	}
	if got := p.Value(); got != "70" {
		t.Fatalf("value = %q, want 70", got)
	}
	if err := p.Store("80"); err != nil {
		t.Fatal(err)
	}
	if err := bind.IntSet()(p); err != nil {
		t.Fatalf("IntSet: %v", err)
	}
}
