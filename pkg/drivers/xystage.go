package drivers

import (
	"strconv"

	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// XYStage property names. Per-axis properties carry an X or Y suffix.
const (
	PropSpeedX         = "MotorSpeedX(mm/s)"
	PropSpeedY         = "MotorSpeedY(mm/s)"
	PropSpeedXMicrons  = "MotorSpeedX(um/s)"
	PropSpeedYMicrons  = "MotorSpeedY(um/s)"
	PropBacklashX      = "BacklashX(mm)"
	PropBacklashY      = "BacklashY(mm)"
	PropDriftErrorX    = "DriftErrorX(mm)"
	PropDriftErrorY    = "DriftErrorY(mm)"
	PropFinishErrorX   = "FinishErrorX(mm)"
	PropFinishErrorY   = "FinishErrorY(mm)"
	PropAccelerationX  = "AccelerationX(ms)"
	PropAccelerationY  = "AccelerationY(ms)"
	PropLowerLimX      = "LowerLimitX(mm)"
	PropLowerLimY      = "LowerLimitY(mm)"
	PropUpperLimX      = "UpperLimitX(mm)"
	PropUpperLimY      = "UpperLimitY(mm)"
	PropMaintainStateX = "MaintainStateX"
	PropMaintainStateY = "MaintainStateY"
	PropMotorOnOffX    = "MotorOnOffX"
	PropMotorOnOffY    = "MotorOnOffY"
	PropWaitTime       = "WaitTime(ms)"
	PropAxisPolarityX  = "AxisPolarityX"
	PropAxisPolarityY  = "AxisPolarityY"
	PropVectorX        = "VectorMoveX(mm/s)"
	PropVectorY        = "VectorMoveY(mm/s)"
)

// Scan module property names (present only on cards with the scan option).
const (
	PropScanState        = "ScanState"
	PropScanFastAxis     = "ScanFastAxis"
	PropScanSlowAxis     = "ScanSlowAxis"
	PropScanPattern      = "ScanPattern"
	PropScanFastStart    = "ScanFastAxisStartPosition(mm)"
	PropScanFastStop     = "ScanFastAxisStopPosition(mm)"
	PropScanSlowStart    = "ScanSlowAxisStartPosition(mm)"
	PropScanSlowStop     = "ScanSlowAxisStopPosition(mm)"
	PropScanNumLines     = "ScanNumLines"
	PropScanSettlingTime = "ScanSettlingTime(ms)"
	PropScanOvershoot    = "ScanOvershootDistance(um)"
	PropScanRetraceSpeed = "ScanRetraceSpeedPercent"
)

// Maintain behavior after a move finishes.
const (
	MaintainDefault    = "0 - Motors off but correct drift"
	MaintainAlwaysOn   = "1 - Motors on indefinitely"
	MaintainMotorsOff  = "2 - Motors off, no drift correction"
	MaintainServoCycle = "3 - Servo loop with timeout"
)

// Axis polarity values. Polarity is applied host-side to positions and
// never sent to the controller.
const (
	PolarityNormal   = "Normal"
	PolarityReversed = "Reversed"
)

// Scan enum values with their single-character wire codes.
const (
	ScanStateIdle    = "Idle"
	ScanStateRunning = "Running"

	scanStateCodeIdle = 'I'
	scanStateCodeStop = 'P'

	ScanAxisX    = "X"
	ScanAxisY    = "Y"
	ScanAxisNull = "Null (1D scan)"

	scanAxisCodeX    = '0'
	scanAxisCodeY    = '1'
	scanAxisCodeNull = '9'

	ScanPatternRaster     = "Raster"
	ScanPatternSerpentine = "Serpentine"

	scanPatternCodeRaster     = '0'
	scanPatternCodeSerpentine = '1'
)

// XYStage drives a two-axis motorized stage.
type XYStage struct {
	*Base
	axisX string
	axisY string

	minSpeedX, maxSpeedX float64
	minSpeedY, maxSpeedY float64
	speedTruth           bool
	reverseX, reverseY   bool
}

// NewXYStage constructs an XY stage from its extended device name and runs
// the one-time hardware interrogation and property registration.
func NewXYStage(h *hub.Hub, name string) (*XYStage, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	ax, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	ay, err := address.AxisLetter(name, 1)
	if err != nil {
		return nil, err
	}
	s := &XYStage{Base: base, axisX: string(ax), axisY: string(ay)}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// AxisLetterX returns the first axis letter.
func (s *XYStage) AxisLetterX() string { return s.axisX }

// AxisLetterY returns the second axis letter.
func (s *XYStage) AxisLetterY() string { return s.axisY }

func (s *XYStage) initialize() error {
	if err := s.queryUnitMult(s.axisX); err != nil {
		return err
	}
	var err error
	if s.minSpeedX, s.maxSpeedX, err = s.probeSpeedRange(s.axisX); err != nil {
		return err
	}
	if s.minSpeedY, s.maxSpeedY, err = s.probeSpeedRange(s.axisY); err != nil {
		return err
	}
	s.speedTruth = s.info.SpeedTruth()

	if err := s.addCommonProperties(); err != nil {
		return err
	}
	if err := s.addMotionProperties(); err != nil {
		return err
	}
	if err := mixin.AddInputPropertiesXY(s, true); err != nil {
		return err
	}
	if mixin.RingBufferSupported(s.info, s.axisIndex(s.axisX)) {
		if err := mixin.AddRingBufferProperties(s); err != nil {
			return err
		}
	}
	if s.info.AxisProp(s.axisIndex(s.axisX))&build.PropScan != 0 {
		if err := s.addScanProperties(); err != nil {
			return err
		}
	}
	s.finishInit()
	return nil
}

// axisIndex finds an axis letter's position in the build report.
func (s *XYStage) axisIndex(axis string) int {
	for i, l := range s.info.AxisLetters {
		if string(l) == axis {
			return i
		}
	}
	return -1
}

// probeSpeedRange discovers the axis speed limits by asking for absurd
// speeds and reading back what the controller clamps them to, then
// restores the original speed.
func (s *XYStage) probeSpeedRange(axis string) (min, max float64, err error) {
	query := "S " + axis + "?"
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
	if _, err = s.hub.QueryVerify("S "+axis+"=10000", ":A"); err != nil {
		return 0, 0, err
	}
	if max, err = read(); err != nil {
		return 0, 0, err
	}
	if _, err = s.hub.QueryVerify("S "+axis+"=0.000001", ":A"); err != nil {
		return 0, 0, err
	}
	if min, err = read(); err != nil {
		return 0, 0, err
	}
	if _, err = s.hub.QueryVerify("S "+axis+"="+prop.FormatFloat(orig), ":A"); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

func (s *XYStage) addMotionProperties() error {
	type floatProp struct {
		cmd  string
		name string
	}
	type axisSet struct {
		axis     string
		speed    string
		speedUm  string
		minSpeed float64
		maxSpeed float64
		floats   []floatProp
	}
	axes := []axisSet{
		{s.axisX, PropSpeedX, PropSpeedXMicrons, s.minSpeedX, s.maxSpeedX, []floatProp{
			{"B", PropBacklashX}, {"E", PropDriftErrorX}, {"PC", PropFinishErrorX},
			{"SL", PropLowerLimX}, {"SU", PropUpperLimX},
		}},
		{s.axisY, PropSpeedY, PropSpeedYMicrons, s.minSpeedY, s.maxSpeedY, []floatProp{
			{"B", PropBacklashY}, {"E", PropDriftErrorY}, {"PC", PropFinishErrorY},
			{"SL", PropLowerLimY}, {"SU", PropUpperLimY},
		}},
	}

	for _, a := range axes {
		if err := s.addSpeedProperties(a.axis, a.speed, a.speedUm, a.minSpeed, a.maxSpeed); err != nil {
			return err
		}
		for _, fp := range a.floats {
			if err := s.addFloatProp(fp.name, "0", s.axisBinding(fp.cmd, a.axis), nil); err != nil {
				return err
			}
		}
	}

	if err := s.addIntProp(PropAccelerationX, "0", s.axisBinding("AC", s.axisX), nil); err != nil {
		return err
	}
	if err := s.addIntProp(PropAccelerationY, "0", s.axisBinding("AC", s.axisY), nil); err != nil {
		return err
	}

	maintain := prop.NewEnumTable().
		Add(MaintainDefault, 0).
		Add(MaintainAlwaysOn, 1).
		Add(MaintainMotorsOff, 2).
		Add(MaintainServoCycle, 3)
	if err := s.addEnumProp(PropMaintainStateX, MaintainDefault, maintain, s.axisBinding("MA", s.axisX)); err != nil {
		return err
	}
	if err := s.addEnumProp(PropMaintainStateY, MaintainDefault, maintain, s.axisBinding("MA", s.axisY)); err != nil {
		return err
	}

	motor := prop.NewEnumTable().Add("Off", 0).Add("On", 1)
	if err := s.addMotorOnOff(PropMotorOnOffX, s.axisX, motor); err != nil {
		return err
	}
	if err := s.addMotorOnOff(PropMotorOnOffY, s.axisY, motor); err != nil {
		return err
	}

	if err := s.addWaitTime(); err != nil {
		return err
	}
	if err := s.addAxisPolarity(PropAxisPolarityX, &s.reverseX); err != nil {
		return err
	}
	if err := s.addAxisPolarity(PropAxisPolarityY, &s.reverseY); err != nil {
		return err
	}

	if err := s.addFloatProp(PropVectorX, "0", s.axisBinding("VE", s.axisX),
		&prop.Limits{Min: -s.maxSpeedX, Max: s.maxSpeedX}); err != nil {
		return err
	}
	return s.addFloatProp(PropVectorY, "0", s.axisBinding("VE", s.axisY),
		&prop.Limits{Min: -s.maxSpeedY, Max: s.maxSpeedY})
}

// addSpeedProperties registers the mm/s speed property plus its read-only
// µm/s mirror. With a truth-telling firmware the mm/s property reads back
// the quantized speed the controller actually chose after every write.
func (s *XYStage) addSpeedProperties(axis, name, umName string, minSpeed, maxSpeed float64) error {
	bind := s.axisBinding("S", axis)
	umProp := prop.Metadata{
		Name:     umName,
		Type:     prop.TypeFloat,
		Default:  "0",
		ReadOnly: true,
	}
	um, err := s.reg.Add(umProp)
	if err != nil {
		return err
	}

	_, err = s.reg.Add(prop.Metadata{
		Name:     name,
		Type:     prop.TypeFloat,
		Default:  "0",
		Limits:   &prop.Limits{Min: minSpeed, Max: maxSpeed},
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
				// ReadBack refreshes both properties from hardware.
				return nil
			}
			v, err := p.Float()
			if err != nil {
				return err
			}
			return um.StoreFloat(v * 1000)
		},
	})
	return err
}

// addMotorOnOff registers a motor enable toggle. The set command uses +
// and - suffixes rather than key=value form.
func (s *XYStage) addMotorOnOff(name, axis string, table *prop.EnumTable) error {
	query := "MC " + axis + "?"
	ack := ":A " + axis + "="
	_, err := s.reg.Add(prop.Metadata{
		Name:    name,
		Type:    prop.TypeEnum,
		Default: "On",
		Enum:    table,
		BeforeGet: func(p *prop.Property) error {
			answer, err := s.hub.QueryVerify(query, ack)
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
			_, err := s.hub.QueryVerify("MC "+axis+suffix, ":A")
			return err
		},
	})
	return err
}

// addWaitTime registers the settle wait applied after moves. One value is
// written to both axes; the read comes from the X axis.
func (s *XYStage) addWaitTime() error {
	query := "WT " + s.axisX + "?"
	ack := ":" + s.axisX + "="
	_, err := s.reg.Add(prop.Metadata{
		Name:    PropWaitTime,
		Type:    prop.TypeInt,
		Default: "0",
		BeforeGet: func(p *prop.Property) error {
			answer, err := s.hub.QueryVerify(query, ack)
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			return p.StoreInt(v)
		},
		AfterSet: func(p *prop.Property) error {
			v, err := p.Int()
			if err != nil {
				return err
			}
			n := strconv.FormatInt(v, 10)
			cmd := "WT " + s.axisX + "=" + n + " " + s.axisY + "=" + n
			_, err = s.hub.QueryVerify(cmd, ":A")
			return err
		},
	})
	return err
}

// addAxisPolarity registers a host-side polarity flag. No command is sent;
// the flag flips the sign of positions in the motion API.
func (s *XYStage) addAxisPolarity(name string, reversed *bool) error {
	_, err := s.reg.Add(prop.Metadata{
		Name:    name,
		Type:    prop.TypeEnum,
		Default: PolarityNormal,
		Enum:    prop.NewEnumTable().Add(PolarityNormal, 0).Add(PolarityReversed, 1),
		AfterSet: func(p *prop.Property) error {
			*reversed = p.Value() == PolarityReversed
			return nil
		},
	})
	return err
}

func (s *XYStage) addScanProperties() error {
	addr := string(s.addr)

	if _, err := s.reg.Add(prop.Metadata{
		Name:    PropScanState,
		Type:    prop.TypeEnum,
		Default: ScanStateIdle,
		Enum:    prop.NewEnumTable().Add(ScanStateIdle, 0).Add(ScanStateRunning, 1),
		BeforeGet: func(p *prop.Property) error {
			c, err := s.scanStateChar()
			if err != nil {
				return err
			}
			if c == scanStateCodeIdle {
				return p.Store(ScanStateIdle)
			}
			// Several codes are possible mid-scan; all mean running.
			return p.Store(ScanStateRunning)
		},
		AfterSet: func(p *prop.Property) error {
			c, err := s.scanStateChar()
			if err != nil {
				return err
			}
			switch p.Value() {
			case ScanStateIdle:
				if c == scanStateCodeIdle {
					return nil
				}
				_, err = s.hub.QueryVerify(addr+"SN X="+string(scanStateCodeStop), ":A")
			case ScanStateRunning:
				if c != scanStateCodeIdle {
					return nil
				}
				_, err = s.hub.QueryVerify(addr+"SN", ":A")
			}
			return err
		},
	}); err != nil {
		return err
	}

	if err := s.addScanCharProp(PropScanFastAxis, "Y", ScanAxisX,
		prop.NewEnumTable().Add(ScanAxisX, int64(scanAxisCodeX)).Add(ScanAxisY, int64(scanAxisCodeY))); err != nil {
		return err
	}
	if err := s.addScanCharProp(PropScanSlowAxis, "Z", ScanAxisY,
		prop.NewEnumTable().
			Add(ScanAxisX, int64(scanAxisCodeX)).
			Add(ScanAxisY, int64(scanAxisCodeY)).
			Add(ScanAxisNull, int64(scanAxisCodeNull))); err != nil {
		return err
	}
	if err := s.addScanCharProp(PropScanPattern, "F", ScanPatternRaster,
		prop.NewEnumTable().
			Add(ScanPatternRaster, int64(scanPatternCodeRaster)).
			Add(ScanPatternSerpentine, int64(scanPatternCodeSerpentine))); err != nil {
		return err
	}

	if err := s.addFloatProp(PropScanFastStart, "0", s.cardBinding("NR", "X"), nil); err != nil {
		return err
	}
	if err := s.addFloatProp(PropScanFastStop, "0", s.cardBinding("NR", "Y"), nil); err != nil {
		return err
	}
	if err := s.addFloatProp(PropScanSlowStart, "0", s.cardBinding("NV", "X"), nil); err != nil {
		return err
	}
	if err := s.addFloatProp(PropScanSlowStop, "0", s.cardBinding("NV", "Y"), nil); err != nil {
		return err
	}
	if err := s.addIntProp(PropScanNumLines, "1", s.cardBinding("NV", "Z"), nil); err != nil {
		return err
	}
	if err := s.addIntProp(PropScanSettlingTime, "0", s.cardBinding("NV", "F"), nil); err != nil {
		return err
	}
	if s.FirmwareAtLeast(3.17) {
		overshoot := s.cardBinding("NV", "T")
		// Controller units are mm; the property is µm.
		overshoot.Factor = 0.001
		if err := s.addFloatProp(PropScanOvershoot, "0", overshoot, nil); err != nil {
			return err
		}
	}
	if s.FirmwareAtLeast(3.30) {
		if err := s.addIntProp(PropScanRetraceSpeed, "67", s.cardBinding("NR", "R"),
			&prop.Limits{Min: 1, Max: 100}); err != nil {
			return err
		}
	}
	return nil
}

// scanStateChar reads the scan state machine's status character.
func (s *XYStage) scanStateChar() (byte, error) {
	answer, err := s.hub.QueryVerify(string(s.addr)+"SN X?", ":A")
	if err != nil {
		return 0, err
	}
	return reply.CharAt(answer, 3)
}

// addScanCharProp registers a scan enum whose wire code is a single
// character rather than a number.
func (s *XYStage) addScanCharProp(name, letter, def string, table *prop.EnumTable) error {
	addr := string(s.addr)
	query := addr + "SN " + letter + "?"
	_, err := s.reg.Add(prop.Metadata{
		Name:    name,
		Type:    prop.TypeEnum,
		Default: def,
		Enum:    table,
		BeforeGet: func(p *prop.Property) error {
			answer, err := s.hub.QueryVerify(query, ":A")
			if err != nil {
				return err
			}
			c, err := reply.CharAt(answer, 3)
			if err != nil {
				return err
			}
			return p.StoreCode(int64(c))
		},
		AfterSet: func(p *prop.Property) error {
			code, err := p.Code()
			if err != nil {
				return err
			}
			cmd := addr + "SN " + letter + "=" + string(byte(code))
			_, err = s.hub.QueryVerify(cmd, ":A")
			return err
		},
	})
	return err
}

// sign applies the host-side axis polarity.
func sign(reversed bool) float64 {
	if reversed {
		return -1
	}
	return 1
}

// PositionUm returns both axis positions in microns, polarity applied.
func (s *XYStage) PositionUm() (x, y float64, err error) {
	if x, err = s.positionUm(s.axisX); err != nil {
		return 0, 0, err
	}
	if y, err = s.positionUm(s.axisY); err != nil {
		return 0, 0, err
	}
	return x * sign(s.reverseX), y * sign(s.reverseY), nil
}

// MoveUm moves both axes to absolute positions in microns.
func (s *XYStage) MoveUm(x, y float64) error {
	cmd := "M " + s.axisX + "=" + s.formatUnits(x*sign(s.reverseX)) +
		" " + s.axisY + "=" + s.formatUnits(y*sign(s.reverseY))
	_, err := s.hub.QueryVerify(cmd, ":A")
	return err
}

// MoveRelativeUm moves both axes by relative offsets in microns. An axis
// with a zero offset is left out of the command.
func (s *XYStage) MoveRelativeUm(dx, dy float64) error {
	var cmd string
	switch {
	case dx == 0 && dy != 0:
		cmd = "R " + s.axisY + "=" + s.formatUnits(dy*sign(s.reverseY))
	case dx != 0 && dy == 0:
		cmd = "R " + s.axisX + "=" + s.formatUnits(dx*sign(s.reverseX))
	default:
		cmd = "R " + s.axisX + "=" + s.formatUnits(dx*sign(s.reverseX)) +
			" " + s.axisY + "=" + s.formatUnits(dy*sign(s.reverseY))
	}
	_, err := s.hub.QueryVerify(cmd, ":A")
	return err
}

// Busy reports whether either axis is still moving.
func (s *XYStage) Busy() (bool, error) {
	busy, err := s.axisBusy(s.axisX)
	if err != nil || busy {
		return busy, err
	}
	return s.axisBusy(s.axisY)
}

// SetOrigin zeroes both axis coordinates at the current position.
func (s *XYStage) SetOrigin() error {
	_, err := s.hub.QueryVerify("H "+s.axisX+"=0 "+s.axisY+"=0", ":A")
	return err
}

// Home moves both axes to their home positions.
func (s *XYStage) Home() error {
	_, err := s.hub.QueryVerify("! "+s.axisX+" "+s.axisY, ":A")
	return err
}

// SetHome marks the current position as home.
func (s *XYStage) SetHome() error {
	_, err := s.hub.QueryVerify("HM "+s.axisX+"+ "+s.axisY+"+", ":A")
	return err
}

// LimitsMm returns the travel limits of both axes in millimeters. Limits
// are always in mm regardless of the axis unit multiplier.
func (s *XYStage) LimitsMm() (xMin, xMax, yMin, yMax float64, err error) {
	read := func(cmd, axis string) (float64, error) {
		answer, err := s.hub.QueryVerify(cmd+" "+axis+"?", ":A")
		if err != nil {
			return 0, err
		}
		return reply.FloatAfterEquals(answer)
	}
	if xMin, err = read("SL", s.axisX); err != nil {
		return
	}
	if xMax, err = read("SU", s.axisX); err != nil {
		return
	}
	if yMin, err = read("SL", s.axisY); err != nil {
		return
	}
	yMax, err = read("SU", s.axisY)
	return
}

// Compile-time check that the stage satisfies the dual-axis bundle
// contract.
var _ mixin.DualAxis = (*XYStage)(nil)
