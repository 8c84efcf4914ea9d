// Package drivers implements the peripheral device types of a Tiger
// controller: XY stage, Z stage, piezo, tunable lens, PMT, and the
// programmable logic card. Each driver is a thin shell over the property
// registry; its job is picking which properties and bundles to register
// given the card's firmware capabilities, plus the handful of direct
// motion and status operations that are not properties.
package drivers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// Property names common to every peripheral.
const (
	PropRefresh          = "RefreshPropertyValues"
	PropSaveCardSettings = "SaveCardSettings"
	PropFirmwareVersion  = "FirmwareVersion"
	PropFirmwareBuild    = "FirmwareBuildName"
)

// SaveCardSettings values. The letter prefix is the SS command code.
const (
	SaveSettingsNone    = "no action"
	SaveSettingsFactory = "X - reload factory settings"
	SaveSettingsRestore = "Y - restore last saved settings"
	SaveSettingsSave    = "Z - save settings to card"
	SaveSettingsDone    = "save settings done"
)

// saveSettingsDelay is the settle time the controller needs after an SS
// command before the next command is safe.
const saveSettingsDelay = 200 * time.Millisecond

// Yes/No values mirrored from the bundle package for driver-local
// boolean-shaped properties.
const (
	yes = "Yes"
	no  = "No"
)

// Base carries the state shared by every peripheral driver: the hub
// reference, the card address, the cached build info, and the property
// registry. Concrete drivers embed it.
type Base struct {
	hub      *hub.Hub
	name     string
	typ      string
	addr     byte
	info     *build.Info
	reg      *prop.Registry
	unitMult float64
}

// NewBase resolves an extended device name, fetches (or reuses) the card's
// build info, and attaches a fresh property registry to the card address.
func NewBase(h *hub.Hub, name string) (*Base, error) {
	if !address.IsExtended(name) {
		return nil, fmt.Errorf("device %q: %w", name, address.ErrNotExtended)
	}
	addr, err := address.HubAddress(name)
	if err != nil {
		return nil, err
	}
	typ, err := address.Type(name)
	if err != nil {
		return nil, err
	}
	info, err := h.BuildInfo(addr)
	if err != nil {
		return nil, err
	}

	reg := prop.NewRegistry()
	h.Register(addr, reg)
	return &Base{
		hub:      h,
		name:     name,
		typ:      typ,
		addr:     addr,
		info:     info,
		reg:      reg,
		unitMult: 1,
	}, nil
}

// Hub returns the owning hub.
func (b *Base) Hub() *hub.Hub { return b.hub }

// Name returns the full extended device name.
func (b *Base) Name() string { return b.name }

// Type returns the peripheral type field of the device name.
func (b *Base) Type() string { return b.typ }

// Address returns the card address character.
func (b *Base) Address() byte { return b.addr }

// Props returns the peripheral's property registry.
func (b *Base) Props() *prop.Registry { return b.reg }

// Build returns the card's cached build info.
func (b *Base) Build() *build.Info { return b.info }

// UnitMult returns the controller-units-per-micron multiplier.
func (b *Base) UnitMult() float64 { return b.unitMult }

// FirmwareAtLeast reports whether the card firmware is at least v.
func (b *Base) FirmwareAtLeast(v float64) bool {
	return b.info.VersionAtLeast(v)
}

// queryUnitMult interrogates the controller for the axis unit multiplier.
// The controller reports units per millimeter; positions are programmed in
// microns, so divide by 1000.
func (b *Base) queryUnitMult(axis string) error {
	answer, err := b.hub.QueryVerify("UM "+axis+"?", ":"+axis+"=")
	if err != nil {
		return err
	}
	v, err := reply.FloatAfterEquals(answer)
	if err != nil {
		return err
	}
	b.unitMult = v / 1000
	return nil
}

// finishInit marks the end of property registration. Reads after this
// point come from cache unless refresh is enabled.
func (b *Base) finishInit() {
	b.reg.SetInitialized()
}

// addCommonProperties registers the properties every peripheral carries:
// the refresh toggle, firmware identification, and settings save. A save
// propagates its completion to sibling peripherals on the card, since SS
// saves the whole card at once.
func (b *Base) addCommonProperties() error {
	if _, err := b.reg.Add(prop.Metadata{
		Name:    PropRefresh,
		Type:    prop.TypeEnum,
		Default: no,
		Enum:    prop.NewEnumTable().Add(no, 0).Add(yes, 1),
		AfterSet: func(p *prop.Property) error {
			p.Registry().SetRefresh(p.Value() == yes)
			return nil
		},
	}); err != nil {
		return err
	}

	if _, err := b.reg.Add(prop.Metadata{
		Name:     PropFirmwareVersion,
		Type:     prop.TypeFloat,
		Default:  prop.FormatFloat(b.info.Version),
		ReadOnly: true,
	}); err != nil {
		return err
	}
	if _, err := b.reg.Add(prop.Metadata{
		Name:     PropFirmwareBuild,
		Type:     prop.TypeEnum,
		Default:  b.info.Name,
		ReadOnly: true,
		Enum:     prop.NewEnumTable().Add(b.info.Name, 0),
	}); err != nil {
		return err
	}

	_, err := b.reg.Add(prop.Metadata{
		Name:    PropSaveCardSettings,
		Type:    prop.TypeEnum,
		Default: SaveSettingsNone,
		Enum: prop.NewEnumTable().
			Add(SaveSettingsNone, 0).
			Add(SaveSettingsFactory, 1).
			Add(SaveSettingsRestore, 2).
			Add(SaveSettingsSave, 3).
			Add(SaveSettingsDone, 4),
		AfterSet: func(p *prop.Property) error {
			if b.hub.UpdatingShared() {
				return nil
			}
			v := p.Value()
			if v == SaveSettingsNone || v == SaveSettingsDone {
				return nil
			}
			cmd := string(b.addr) + "SS " + v[:1]
			if _, err := b.hub.QueryVerifyDelay(cmd, ":A", saveSettingsDelay); err != nil {
				return err
			}
			if err := p.Store(SaveSettingsDone); err != nil {
				return err
			}
			b.hub.UpdateShared(b.addr, PropSaveCardSettings, SaveSettingsDone)
			return nil
		},
	})
	return err
}

// axisBusy reports whether one axis is moving, via the status query
// "RS <axis>?" whose answer carries a 'B' flag at position 3.
func (b *Base) axisBusy(axis string) (bool, error) {
	answer, err := b.hub.QueryVerify("RS "+axis+"?", ":A")
	if err != nil {
		return false, err
	}
	c, err := reply.CharAt(answer, 3)
	if err != nil {
		return false, err
	}
	return c == 'B', nil
}

// positionUm reads one axis position in microns. The answer is a bare
// number after the ack, e.g. ":A -1234.5".
func (b *Base) positionUm(axis string) (float64, error) {
	answer, err := b.hub.QueryVerify("W "+axis, ":A")
	if err != nil {
		return 0, err
	}
	v, err := reply.FloatAfterPosition(answer, 2)
	if err != nil {
		return 0, err
	}
	return v / b.unitMult, nil
}

// Halt stops all motion on the card.
func (b *Base) Halt() error {
	_, err := b.hub.Command(string(b.addr) + "HALT")
	return err
}

// formatUnits renders a micron value in controller units for a command.
func (b *Base) formatUnits(um float64) string {
	return prop.FormatFloat(um * b.unitMult)
}

// axisBinding builds a key=value binding for a per-axis command, e.g.
// axisBinding("S", "X") queries "S X?" and sets "S X=".
func (b *Base) axisBinding(cmd, axis string) *prop.Binding {
	return &prop.Binding{
		Q:        b.hub,
		Query:    cmd + " " + axis + "?",
		QueryAck: ":A " + axis + "=",
		Pos:      -1,
		Set:      cmd + " " + axis + "=",
	}
}

// cardBinding builds a key=value binding for a card-addressed command,
// e.g. cardBinding("NV", "Z") queries "<addr>NV Z?" and sets "<addr>NV Z=".
func (b *Base) cardBinding(cmd, letter string) *prop.Binding {
	return &prop.Binding{
		Q:        b.hub,
		Query:    string(b.addr) + cmd + " " + letter + "?",
		QueryAck: ":A",
		Pos:      -1,
		Set:      string(b.addr) + cmd + " " + letter + "=",
	}
}

// addFloatProp registers a plain float property over a binding.
func (b *Base) addFloatProp(name, def string, bind *prop.Binding, limits *prop.Limits) error {
	_, err := b.reg.Add(prop.Metadata{
		Name:      name,
		Type:      prop.TypeFloat,
		Default:   def,
		Limits:    limits,
		BeforeGet: bind.FloatGet(),
		AfterSet:  bind.FloatSet(),
	})
	return err
}

// addIntProp registers a plain integer property over a binding.
func (b *Base) addIntProp(name, def string, bind *prop.Binding, limits *prop.Limits) error {
	_, err := b.reg.Add(prop.Metadata{
		Name:      name,
		Type:      prop.TypeInt,
		Default:   def,
		Limits:    limits,
		BeforeGet: bind.IntGet(),
		AfterSet:  bind.IntSet(),
	})
	return err
}

// addEnumProp registers a plain enum property over a binding.
func (b *Base) addEnumProp(name, def string, table *prop.EnumTable, bind *prop.Binding) error {
	_, err := b.reg.Add(prop.Metadata{
		Name:      name,
		Type:      prop.TypeEnum,
		Default:   def,
		Enum:      table,
		BeforeGet: bind.EnumGet(),
		AfterSet:  bind.EnumSet(),
	})
	return err
}

// intOrZero is strconv.Atoi with absent-token semantics.
func intOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
