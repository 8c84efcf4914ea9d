package drivers

import (
	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// ZStage property names.
const (
	PropSpeed        = "MotorSpeed(mm/s)"
	PropSpeedMicrons = "MotorSpeed(um/s)"
	PropBacklash     = "Backlash(mm)"
	PropDriftError   = "DriftError(mm)"
	PropFinishError  = "FinishError(mm)"
	PropAcceleration = "Acceleration(ms)"
	PropLowerLim     = "LowerLimit(mm)"
	PropUpperLim     = "UpperLimit(mm)"
	PropMaintain     = "MaintainState"
	PropMotorOnOff   = "MotorOnOff"
	PropAxisPolarity = "AxisPolarity"
	PropVector       = "VectorMove(mm/s)"
)

// ZStage drives a single-axis motorized focus stage.
type ZStage struct {
	*Base
	axis string

	minSpeed, maxSpeed float64
	speedTruth         bool
	reversed           bool
}

// NewZStage constructs a Z stage from its extended device name and runs
// the one-time hardware interrogation and property registration.
func NewZStage(h *hub.Hub, name string) (*ZStage, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	a, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	s := &ZStage{Base: base, axis: string(a)}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// AxisLetter returns the stage's axis letter.
func (s *ZStage) AxisLetter() string { return s.axis }

func (s *ZStage) initialize() error {
	if err := s.queryUnitMult(s.axis); err != nil {
		return err
	}
	var err error
	if s.minSpeed, s.maxSpeed, err = s.probeSpeedRange(); err != nil {
		return err
	}
	s.speedTruth = s.info.SpeedTruth()

	if err := s.addCommonProperties(); err != nil {
		return err
	}
	if err := s.addMotionProperties(); err != nil {
		return err
	}
	if err := mixin.AddInputProperties(s); err != nil {
		return err
	}
	if err := mixin.AddSingleAxisProperties(s); err != nil {
		return err
	}
	if mixin.RingBufferSupported(s.info, s.axisIndex()) {
		if err := mixin.AddRingBufferProperties(s); err != nil {
			return err
		}
	}
	s.finishInit()
	return nil
}

func (s *ZStage) axisIndex() int {
	for i, l := range s.info.AxisLetters {
		if string(l) == s.axis {
			return i
		}
	}
	return -1
}

func (s *ZStage) probeSpeedRange() (min, max float64, err error) {
	query := "S " + s.axis + "?"
	read := func() (float64, error) {
		answer, err := s.hub.QueryVerify(query, ":A")
		if err != nil {
			return 0, err
		}
		return reply.FloatAfterEquals(answer)
	}

	orig, err := read()
	if err != nil {
		return 0, 0, err
	}
	if _, err = s.hub.QueryVerify("S "+s.axis+"=10000", ":A"); err != nil {
		return 0, 0, err
	}
	if max, err = read(); err != nil {
		return 0, 0, err
	}
	if _, err = s.hub.QueryVerify("S "+s.axis+"=0.000001", ":A"); err != nil {
		return 0, 0, err
	}
	if min, err = read(); err != nil {
		return 0, 0, err
	}
	if _, err = s.hub.QueryVerify("S "+s.axis+"="+prop.FormatFloat(orig), ":A"); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

func (s *ZStage) addMotionProperties() error {
	bind := s.axisBinding("S", s.axis)
	um, err := s.reg.Add(prop.Metadata{
		Name:     PropSpeedMicrons,
		Type:     prop.TypeFloat,
		Default:  "0",
		ReadOnly: true,
	})
	if err != nil {
		return err
	}
	if _, err := s.reg.Add(prop.Metadata{
		Name:     PropSpeed,
		Type:     prop.TypeFloat,
		Default:  "0",
		Limits:   &prop.Limits{Min: s.minSpeed, Max: s.maxSpeed},
		ReadBack: s.speedTruth,
		BeforeGet: func(p *prop.Property) error {
			if err := bind.FloatGet()(p); err != nil {
				return err
			}
			v, err := p.Float()
			if err != nil {
				return err
			}
			return um.StoreFloat(v * 1000)
		},
		AfterSet: func(p *prop.Property) error {
			if err := bind.FloatSet()(p); err != nil {
				return err
			}
			if s.speedTruth {
				return nil
			}
			v, err := p.Float()
			if err != nil {
				return err
			}
			return um.StoreFloat(v * 1000)
		},
	}); err != nil {
		return err
	}

	floats := []struct {
		cmd  string
		name string
	}{
		{"B", PropBacklash}, {"E", PropDriftError}, {"PC", PropFinishError},
		{"SL", PropLowerLim}, {"SU", PropUpperLim},
	}
	for _, fp := range floats {
		if err := s.addFloatProp(fp.name, "0", s.axisBinding(fp.cmd, s.axis), nil); err != nil {
			return err
		}
	}
	if err := s.addIntProp(PropAcceleration, "0", s.axisBinding("AC", s.axis), nil); err != nil {
		return err
	}

	maintain := prop.NewEnumTable().
		Add(MaintainDefault, 0).
		Add(MaintainAlwaysOn, 1).
		Add(MaintainMotorsOff, 2).
		Add(MaintainServoCycle, 3)
	if err := s.addEnumProp(PropMaintain, MaintainDefault, maintain, s.axisBinding("MA", s.axis)); err != nil {
		return err
	}

	if _, err := s.reg.Add(prop.Metadata{
		Name:    PropMotorOnOff,
		Type:    prop.TypeEnum,
		Default: "On",
		Enum:    prop.NewEnumTable().Add("Off", 0).Add("On", 1),
		BeforeGet: func(p *prop.Property) error {
			answer, err := s.hub.QueryVerify("MC "+s.axis+"?", ":A "+s.axis+"=")
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			return p.StoreCode(v)
		},
		AfterSet: func(p *prop.Property) error {
			suffix := "-"
			if p.Value() == "On" {
				suffix = "+"
			}
			_, err := s.hub.QueryVerify("MC "+s.axis+suffix, ":A")
			return err
		},
	}); err != nil {
		return err
	}

	if _, err := s.reg.Add(prop.Metadata{
		Name:    PropAxisPolarity,
		Type:    prop.TypeEnum,
		Default: PolarityNormal,
		Enum:    prop.NewEnumTable().Add(PolarityNormal, 0).Add(PolarityReversed, 1),
		AfterSet: func(p *prop.Property) error {
			s.reversed = p.Value() == PolarityReversed
			return nil
		},
	}); err != nil {
		return err
	}

	return s.addFloatProp(PropVector, "0", s.axisBinding("VE", s.axis),
		&prop.Limits{Min: -s.maxSpeed, Max: s.maxSpeed})
}

// PositionUm returns the axis position in microns, polarity applied.
func (s *ZStage) PositionUm() (float64, error) {
	v, err := s.positionUm(s.axis)
	if err != nil {
		return 0, err
	}
	return v * sign(s.reversed), nil
}

// MoveUm moves to an absolute position in microns.
func (s *ZStage) MoveUm(pos float64) error {
	_, err := s.hub.QueryVerify("M "+s.axis+"="+s.formatUnits(pos*sign(s.reversed)), ":A")
	return err
}

// MoveRelativeUm moves by a relative offset in microns.
func (s *ZStage) MoveRelativeUm(d float64) error {
	_, err := s.hub.QueryVerify("R "+s.axis+"="+s.formatUnits(d*sign(s.reversed)), ":A")
	return err
}

// Busy reports whether the axis is still moving.
func (s *ZStage) Busy() (bool, error) {
	return s.axisBusy(s.axis)
}

// SetOrigin zeroes the axis coordinate at the current position.
func (s *ZStage) SetOrigin() error {
	_, err := s.hub.QueryVerify("H "+s.axis+"=0", ":A")
	return err
}

// Home moves the axis to its home position.
func (s *ZStage) Home() error {
	_, err := s.hub.QueryVerify("! "+s.axis, ":A")
	return err
}

// LimitsMm returns the axis travel limits in millimeters.
func (s *ZStage) LimitsMm() (min, max float64, err error) {
	answer, err := s.hub.QueryVerify("SL "+s.axis+"?", ":A")
	if err != nil {
		return 0, 0, err
	}
	if min, err = reply.FloatAfterEquals(answer); err != nil {
		return 0, 0, err
	}
	answer, err = s.hub.QueryVerify("SU "+s.axis+"?", ":A")
	if err != nil {
		return 0, 0, err
	}
	max, err = reply.FloatAfterEquals(answer)
	return min, max, err
}

var _ mixin.SingleAxis = (*ZStage)(nil)
