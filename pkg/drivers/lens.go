package drivers

import (
	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// Tunable lens property names.
const (
	PropLensMode     = "LensMode"
	PropLensLowerLim = "LowerLimit"
	PropLensUpperLim = "UpperLimit"
	PropLensTTLIn    = "TTLInputMode"
	PropLensTTLOut   = "TTLOutputMode"
)

// Lens operating modes (PM command).
const (
	LensModeInternal = "0 - internal input"
	LensModeExternal = "1 - external input"
)

// Lens drives a tunable (electrically focusable) lens.
type Lens struct {
	*Base
	axis string
}

// NewLens constructs a tunable lens from its extended device name and runs
// the one-time hardware interrogation and property registration.
func NewLens(h *hub.Hub, name string) (*Lens, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	a, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	l := &Lens{Base: base, axis: string(a)}
	if err := l.initialize(); err != nil {
		return nil, err
	}
	return l, nil
}

// AxisLetter returns the lens axis letter.
func (l *Lens) AxisLetter() string { return l.axis }

func (l *Lens) initialize() error {
	if err := l.queryUnitMult(l.axis); err != nil {
		return err
	}
	if err := l.addCommonProperties(); err != nil {
		return err
	}

	modes := prop.NewEnumTable().
		Add(LensModeInternal, 0).
		Add(LensModeExternal, 1)
	if err := l.addEnumProp(PropLensMode, LensModeInternal, modes,
		l.axisBinding("PM", l.axis)); err != nil {
		return err
	}

	if err := l.addFloatProp(PropLensLowerLim, "0", l.axisBinding("SL", l.axis), nil); err != nil {
		return err
	}
	if err := l.addFloatProp(PropLensUpperLim, "0", l.axisBinding("SU", l.axis), nil); err != nil {
		return err
	}

	if err := l.addIntProp(PropLensTTLIn, "0", l.cardBinding("TTL", "X"), nil); err != nil {
		return err
	}
	if err := l.addIntProp(PropLensTTLOut, "0", l.cardBinding("TTL", "Y"), nil); err != nil {
		return err
	}

	if err := mixin.AddInputProperties(l); err != nil {
		return err
	}
	if err := mixin.AddSingleAxisProperties(l); err != nil {
		return err
	}
	if mixin.RingBufferSupported(l.info, l.axisIndex()) {
		if err := mixin.AddRingBufferProperties(l); err != nil {
			return err
		}
	}
	l.finishInit()
	return nil
}

func (l *Lens) axisIndex() int {
	for i, letter := range l.info.AxisLetters {
		if string(letter) == l.axis {
			return i
		}
	}
	return -1
}

// Position returns the lens position in its programming units.
func (l *Lens) Position() (float64, error) {
	return l.positionUm(l.axis)
}

// Move sets an absolute lens position in its programming units.
func (l *Lens) Move(pos float64) error {
	_, err := l.hub.QueryVerify("M "+l.axis+"="+l.formatUnits(pos), ":A")
	return err
}

// MoveRelative adjusts the lens position by a relative offset.
func (l *Lens) MoveRelative(d float64) error {
	_, err := l.hub.QueryVerify("R "+l.axis+"="+l.formatUnits(d), ":A")
	return err
}

// Busy reports whether the lens is still settling.
func (l *Lens) Busy() (bool, error) {
	return l.axisBusy(l.axis)
}

// SetOrigin zeroes the lens coordinate at the current position.
func (l *Lens) SetOrigin() error {
	_, err := l.hub.QueryVerify("H "+l.axis+"=0", ":A")
	return err
}

// Home moves the lens to its home position.
func (l *Lens) Home() error {
	_, err := l.hub.QueryVerify("! "+l.axis, ":A")
	return err
}

var _ mixin.SingleAxis = (*Lens)(nil)
