package drivers

import (
	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// Piezo property names.
const (
	PropPiezoMode     = "PiezoMode"
	PropPiezoLowerLim = "LowerLimit(um)"
	PropPiezoUpperLim = "UpperLimit(um)"
)

// Piezo operating modes (PM command).
const (
	PiezoModeIntClosed = "0 - internal input closed-loop"
	PiezoModeExtClosed = "1 - external input closed-loop"
	PiezoModeIntOpen   = "2 - internal input open-loop"
	PiezoModeExtOpen   = "3 - external input open-loop"
)

// Piezo drives a single-axis piezo stage.
type Piezo struct {
	*Base
	axis string
}

// NewPiezo constructs a piezo stage from its extended device name and runs
// the one-time hardware interrogation and property registration.
func NewPiezo(h *hub.Hub, name string) (*Piezo, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	a, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	p := &Piezo{Base: base, axis: string(a)}
	if err := p.initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

// AxisLetter returns the piezo's axis letter.
func (p *Piezo) AxisLetter() string { return p.axis }

func (p *Piezo) initialize() error {
	if err := p.queryUnitMult(p.axis); err != nil {
		return err
	}
	if err := p.addCommonProperties(); err != nil {
		return err
	}

	modes := prop.NewEnumTable().
		Add(PiezoModeIntClosed, 0).
		Add(PiezoModeExtClosed, 1).
		Add(PiezoModeIntOpen, 2).
		Add(PiezoModeExtOpen, 3)
	if err := p.addEnumProp(PropPiezoMode, PiezoModeIntClosed, modes,
		p.axisBinding("PM", p.axis)); err != nil {
		return err
	}

	// Travel limits are stored in mm on the controller; expose µm.
	lower := p.axisBinding("SL", p.axis)
	lower.Factor = 0.001
	if err := p.addFloatProp(PropPiezoLowerLim, "0", lower, nil); err != nil {
		return err
	}
	upper := p.axisBinding("SU", p.axis)
	upper.Factor = 0.001
	if err := p.addFloatProp(PropPiezoUpperLim, "0", upper, nil); err != nil {
		return err
	}

	if err := mixin.AddInputProperties(p); err != nil {
		return err
	}
	if err := mixin.AddSingleAxisProperties(p); err != nil {
		return err
	}
	if mixin.RingBufferSupported(p.info, p.axisIndex()) {
		if err := mixin.AddRingBufferProperties(p); err != nil {
			return err
		}
	}
	p.finishInit()
	return nil
}

func (p *Piezo) axisIndex() int {
	for i, l := range p.info.AxisLetters {
		if string(l) == p.axis {
			return i
		}
	}
	return -1
}

// PositionUm returns the piezo position in microns.
func (p *Piezo) PositionUm() (float64, error) {
	return p.positionUm(p.axis)
}

// MoveUm moves to an absolute position in microns.
func (p *Piezo) MoveUm(pos float64) error {
	_, err := p.hub.QueryVerify("M "+p.axis+"="+p.formatUnits(pos), ":A")
	return err
}

// MoveRelativeUm moves by a relative offset in microns.
func (p *Piezo) MoveRelativeUm(d float64) error {
	_, err := p.hub.QueryVerify("R "+p.axis+"="+p.formatUnits(d), ":A")
	return err
}

// Busy reports whether the piezo is still settling.
func (p *Piezo) Busy() (bool, error) {
	return p.axisBusy(p.axis)
}

// SetOrigin zeroes the piezo coordinate at the current position.
func (p *Piezo) SetOrigin() error {
	_, err := p.hub.QueryVerify("H "+p.axis+"=0", ":A")
	return err
}

// Home moves the piezo to its home position.
func (p *Piezo) Home() error {
	_, err := p.hub.QueryVerify("! "+p.axis, ":A")
	return err
}

var _ mixin.SingleAxis = (*Piezo)(nil)
