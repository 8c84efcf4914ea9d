package mixin

import (
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// Single-axis waveform property names.
const (
	PropSAAmplitude     = "SingleAxisAmplitude"
	PropSAOffset        = "SingleAxisOffset"
	PropSAPeriod        = "SingleAxisPeriod(ms)"
	PropSAMode          = "SingleAxisMode"
	PropSAPattern       = "SingleAxisPattern"
	PropSAAdvanced      = "SingleAxisAdvancedProperties"
	PropSAClockSource   = "SingleAxisClockSource"
	PropSAClockPolarity = "SingleAxisClockPolarity"
	PropSATTLOut        = "SingleAxisTTLOut"
	PropSATTLPolarity   = "SingleAxisTTLPolarity"
	PropSAPatternByte   = "SingleAxisPatternByte"
)

// Single-axis mode values.
const (
	SAModeDisabled = "0 - Disabled"
	SAModeEnabled  = "1 - Enabled"
	SAModeArmed    = "2 - Armed for TTL trigger"
	SAModeSynced   = "3 - Enabled with axes synced"
)

// Single-axis pattern values (SAP bits 0-2).
const (
	SAPatternRamp     = "0 - Ramp"
	SAPatternTriangle = "1 - Triangle"
	SAPatternSquare   = "2 - Square"
	SAPatternSine     = "3 - Sine"
)

// Advanced value pairs carried in the upper SAP bits.
const (
	SAClockInternal = "internal 4kHz clock"
	SAClockExternal = "external clock"
	SAClockPolPos   = "positive edge"
	SAClockPolNeg   = "negative edge"
	SATTLOutOff     = "disabled"
	SATTLOutOn      = "enabled"
	SATTLPolHigh    = "active high"
	SATTLPolLow     = "active low"
)

// SAP register layout. Bits 0-2 select the waveform pattern; bit 3 is
// reserved; bits 4-7 carry the TTL and clock settings.
const (
	sapPatternMask = 0x07
	sapTTLPolBit   = 0x10
	sapTTLOutBit   = 0x20
	sapClkPolBit   = 0x40
	sapClkSrcBit   = 0x80
)

// AddSingleAxisProperties registers the single-axis waveform bundle:
// amplitude, offset, period, mode, pattern, and the advanced-properties
// toggle that unlocks the raw SAP register slices.
func AddSingleAxisProperties(d SingleAxis) error {
	h := d.Hub()
	reg := d.Props()
	axis := d.AxisLetter()
	ack := ":A " + axis + "="

	amp := &prop.Binding{
		Q:        h,
		Query:    "SAA " + axis + "?",
		QueryAck: ack,
		Pos:      -1,
		Set:      "SAA " + axis + "=",
		Factor:   d.UnitMult(),
	}
	if _, err := reg.Add(prop.Metadata{
		Name:      PropSAAmplitude,
		Type:      prop.TypeFloat,
		Default:   "0",
		BeforeGet: amp.FloatGet(),
		AfterSet:  amp.FloatSet(),
	}); err != nil {
		return err
	}

	offset := &prop.Binding{
		Q:        h,
		Query:    "SAO " + axis + "?",
		QueryAck: ack,
		Pos:      -1,
		Set:      "SAO " + axis + "=",
		Factor:   d.UnitMult(),
	}
	if _, err := reg.Add(prop.Metadata{
		Name:      PropSAOffset,
		Type:      prop.TypeFloat,
		Default:   "0",
		BeforeGet: offset.FloatGet(),
		AfterSet:  offset.FloatSet(),
	}); err != nil {
		return err
	}

	period := &prop.Binding{
		Q:        h,
		Query:    "SAF " + axis + "?",
		QueryAck: ack,
		Pos:      -1,
		Set:      "SAF " + axis + "=",
	}
	if _, err := reg.Add(prop.Metadata{
		Name:      PropSAPeriod,
		Type:      prop.TypeInt,
		Default:   "0",
		BeforeGet: period.IntGet(),
		AfterSet:  period.IntSet(),
	}); err != nil {
		return err
	}

	mode := &prop.Binding{
		Q:        h,
		Query:    "SAM " + axis + "?",
		QueryAck: ack,
		Pos:      -1,
		Set:      "SAM " + axis + "=",
	}
	modes := prop.NewEnumTable().
		Add(SAModeDisabled, 0).
		Add(SAModeEnabled, 1).
		Add(SAModeArmed, 2).
		Add(SAModeSynced, 3)
	if _, err := reg.Add(prop.Metadata{
		Name:    PropSAMode,
		Type:    prop.TypeEnum,
		Default: SAModeDisabled,
		Enum:    modes,
		// The controller coerces mode transitions, so read back what it
		// actually accepted.
		ReadBack:  true,
		BeforeGet: mode.EnumGet(),
		AfterSet:  mode.EnumSet(),
	}); err != nil {
		return err
	}

	patterns := prop.NewEnumTable().
		Add(SAPatternRamp, 0).
		Add(SAPatternTriangle, 1).
		Add(SAPatternSquare, 2)
	if d.Build().VersionAtLeast(3.14) {
		patterns.Add(SAPatternSine, 3)
	}
	pattern := sapBinding(d, axis, sapPatternMask)
	if _, err := reg.Add(prop.Metadata{
		Name:      PropSAPattern,
		Type:      prop.TypeEnum,
		Default:   SAPatternRamp,
		Enum:      patterns,
		BeforeGet: pattern.EnumGet(),
		AfterSet:  pattern.EnumSet(),
	}); err != nil {
		return err
	}

	_, err := reg.Add(prop.Metadata{
		Name:    PropSAAdvanced,
		Type:    prop.TypeEnum,
		Default: No,
		Enum:    yesNo(),
		AfterSet: func(p *prop.Property) error {
			if p.Value() != Yes || reg.Has(PropSAClockSource) {
				return nil
			}
			return addAdvancedSingleAxisProperties(d)
		},
	})
	return err
}

// addAdvancedSingleAxisProperties registers the SAP register slices:
// clock source, clock polarity, TTL output, TTL polarity, and the raw
// pattern byte.
func addAdvancedSingleAxisProperties(d SingleAxis) error {
	reg := d.Props()
	axis := d.AxisLetter()

	bitProps := []struct {
		name string
		bit  int64
		off  string
		on   string
	}{
		{PropSAClockSource, sapClkSrcBit, SAClockInternal, SAClockExternal},
		{PropSAClockPolarity, sapClkPolBit, SAClockPolPos, SAClockPolNeg},
		{PropSATTLOut, sapTTLOutBit, SATTLOutOff, SATTLOutOn},
		{PropSATTLPolarity, sapTTLPolBit, SATTLPolHigh, SATTLPolLow},
	}
	for _, bp := range bitProps {
		b := sapBinding(d, axis, bp.bit)
		if _, err := reg.Add(prop.Metadata{
			Name:      bp.name,
			Type:      prop.TypeEnum,
			Default:   bp.off,
			Enum:      prop.NewEnumTable().Add(bp.off, 0).Add(bp.on, bp.bit),
			BeforeGet: b.EnumGet(),
			AfterSet:  b.EnumSet(),
		}); err != nil {
			return err
		}
	}

	raw := sapBinding(d, axis, 0)
	_, err := reg.Add(prop.Metadata{
		Name:    PropSAPatternByte,
		Type:    prop.TypeInt,
		Default: "0",
		Limits:  &prop.Limits{Min: 0, Max: 255},
		// The register mixes state other properties also write, so never
		// trust the cache.
		AlwaysRead: true,
		BeforeGet:  raw.IntGet(),
		AfterSet:   raw.IntSet(),
	})
	return err
}

// sapBinding builds a binding over the shared SAP register. A non-zero
// mask confines the property to its bits via read-modify-write.
func sapBinding(d SingleAxis, axis string, mask int64) *prop.Binding {
	return &prop.Binding{
		Q:        d.Hub(),
		Query:    "SAP " + axis + "?",
		QueryAck: ":A " + axis + "=",
		Pos:      -1,
		Set:      "SAP " + axis + "=",
		Mask:     mask,
	}
}
