package mixin

import (
	"math"

	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// Manual input property names.
const (
	PropJoystickEnabled   = "JoystickEnabled"
	PropJoystickInput     = "JoystickInput"
	PropJoystickInputX    = "JoystickInputX"
	PropJoystickInputY    = "JoystickInputY"
	PropJoystickFastSpeed = "JoystickFastSpeed"
	PropJoystickSlowSpeed = "JoystickSlowSpeed"
	PropJoystickReverse   = "JoystickReverse"
	PropJoystickRotate    = "JoystickRotate"
	PropWheelFastSpeed    = "WheelFastSpeed"
	PropWheelSlowSpeed    = "WheelSlowSpeed"
	PropWheelReverse      = "WheelReverse"
)

// Joystick input selector values. The wire also knows code 1 (factory
// default); it is readable but not settable, so the selector properties
// tolerate it as an unknown code instead of listing it.
const (
	JSCodeNone       = "0 - none"
	JSCodeJoystickX  = "2 - joystick X"
	JSCodeJoystickY  = "3 - joystick Y"
	JSCodeRightWheel = "22 - right wheel"
	JSCodeLeftWheel  = "23 - left wheel"
)

// Joystick direction codes used by the enable/rotate matrix.
const (
	jsDirOff = "0"
	jsDirX   = "2"
	jsDirY   = "3"
)

func jsCodes() *prop.EnumTable {
	return prop.NewEnumTable().
		Add(JSCodeNone, 0).
		Add(JSCodeJoystickX, 2).
		Add(JSCodeJoystickY, 3).
		Add(JSCodeRightWheel, 22).
		Add(JSCodeLeftWheel, 23)
}

// AddInputProperties registers the manual input bundle for a single-axis
// peripheral: per-card joystick speeds and reverse, the axis's joystick
// input selector, and (firmware permitting) the wheel properties.
func AddInputProperties(d SingleAxis) error {
	if err := addJoystickSpeedProperties(d); err != nil {
		return err
	}
	if err := addJoystickInputProperty(d, PropJoystickInput, d.AxisLetter()); err != nil {
		return err
	}
	return addWheelProperties(d)
}

// AddInputPropertiesXY registers the manual input bundle for a dual-axis
// peripheral. XY stages get the enable/rotate matrix; other dual-axis
// peripherals get a joystick input selector per axis.
func AddInputPropertiesXY(d DualAxis, isXYStage bool) error {
	if err := addJoystickSpeedProperties(d); err != nil {
		return err
	}
	if isXYStage {
		if err := addJoystickEnabledProperty(d); err != nil {
			return err
		}
		if err := addJoystickRotateProperty(d); err != nil {
			return err
		}
	} else {
		if err := addJoystickInputProperty(d, PropJoystickInputX, d.AxisLetterX()); err != nil {
			return err
		}
		if err := addJoystickInputProperty(d, PropJoystickInputY, d.AxisLetterY()); err != nil {
			return err
		}
	}
	return addWheelProperties(d)
}

// addJoystickSpeedProperties registers the per-card joystick fast/slow
// speeds and the reverse toggle.
func addJoystickSpeedProperties(d Peripheral) error {
	if err := addSpeedProperty(d, PropJoystickFastSpeed, "100", "X", PropJoystickReverse, false); err != nil {
		return err
	}
	if err := addSpeedProperty(d, PropJoystickSlowSpeed, "10", "Y", PropJoystickReverse, false); err != nil {
		return err
	}
	return addReverseProperty(d, PropJoystickReverse,
		PropJoystickFastSpeed, PropJoystickSlowSpeed, "X", "Y", false)
}

// addWheelProperties registers the card-wide wheel speeds and reverse.
// Wheel settings are shared by every peripheral on the card, so writes
// propagate through the hub's shared store.
func addWheelProperties(d Peripheral) error {
	// Wheel control over JS F/T shipped with firmware 2.87 (dated in the
	// 2.8x changelog), not with the 3.14 release that reorganized the
	// joystick commands.
	if !d.Build().VersionAtLeast(2.87) {
		return nil
	}
	if err := addSpeedProperty(d, PropWheelFastSpeed, "10", "F", PropWheelReverse, true); err != nil {
		return err
	}
	if err := addSpeedProperty(d, PropWheelSlowSpeed, "5", "T", PropWheelReverse, true); err != nil {
		return err
	}
	return addReverseProperty(d, PropWheelReverse,
		PropWheelFastSpeed, PropWheelSlowSpeed, "F", "T", true)
}

// addSpeedProperty registers one JS speed property. The controller stores
// a mirrored speed as a negative number; the exposed property is strictly
// positive with the sign carried by the companion reverse property.
func addSpeedProperty(d Peripheral, name, def, jsLetter, reverseName string, shared bool) error {
	h := d.Hub()
	reg := d.Props()
	addr := addrStr(d)
	query := addr + "JS " + jsLetter + "?"
	ack := ":A " + jsLetter + "="

	_, err := reg.Add(prop.Metadata{
		Name:    name,
		Type:    prop.TypeFloat,
		Default: def,
		Limits:  &prop.Limits{Min: 0, Max: 100},
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(query, ack)
			if err != nil {
				return err
			}
			v, err := reply.FloatAfterEquals(answer)
			if err != nil {
				return err
			}
			return p.StoreFloat(math.Abs(v))
		},
		AfterSet: func(p *prop.Property) error {
			if shared && h.UpdatingShared() {
				return nil
			}
			v, err := p.Float()
			if err != nil {
				return err
			}
			reversed, err := p.Registry().Cached(reverseName)
			if err == nil && reversed == Yes {
				v = -v
			}
			cmd := addr + "JS " + jsLetter + "=" + prop.FormatFloat(v)
			if _, err := h.QueryVerify(cmd, ":A"); err != nil {
				return err
			}
			if shared {
				h.UpdateShared(d.Address(), name, p.Value())
			}
			return nil
		},
	})
	return err
}

// addReverseProperty registers a JS reverse toggle. Reading infers the
// state from the sign of the fast speed; writing reissues both speeds with
// the requested sign.
func addReverseProperty(d Peripheral, name, fastName, slowName, fastLetter, slowLetter string, shared bool) error {
	h := d.Hub()
	reg := d.Props()
	addr := addrStr(d)
	query := addr + "JS " + fastLetter + "?"
	ack := ":A " + fastLetter + "="

	_, err := reg.Add(prop.Metadata{
		Name:    name,
		Type:    prop.TypeEnum,
		Default: No,
		Enum:    yesNo(),
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(query, ack)
			if err != nil {
				return err
			}
			v, err := reply.FloatAfterEquals(answer)
			if err != nil {
				return err
			}
			if v < 0 {
				return p.Store(Yes)
			}
			return p.Store(No)
		},
		AfterSet: func(p *prop.Property) error {
			if shared && h.UpdatingShared() {
				return nil
			}
			fast, err := cachedFloat(p.Registry(), fastName)
			if err != nil {
				return err
			}
			slow, err := cachedFloat(p.Registry(), slowName)
			if err != nil {
				return err
			}
			if p.Value() == Yes {
				fast, slow = -fast, -slow
			}
			cmd := addr + "JS " + fastLetter + "=" + prop.FormatFloat(fast) +
				" " + slowLetter + "=" + prop.FormatFloat(slow)
			if _, err := h.QueryVerify(cmd, ":A"); err != nil {
				return err
			}
			if shared {
				h.UpdateShared(d.Address(), name, p.Value())
			}
			return nil
		},
	})
	return err
}

// addJoystickInputProperty registers the input selector for one axis.
// Reads tolerate codes outside the table (e.g. factory default 1).
func addJoystickInputProperty(d Peripheral, name, axis string) error {
	h := d.Hub()
	b := &prop.Binding{
		Q:        h,
		Query:    "J " + axis + "?",
		QueryAck: ":A " + axis + "=",
		Pos:      -1,
		Set:      "J " + axis + "=",
	}
	_, err := d.Props().Add(prop.Metadata{
		Name:      name,
		Type:      prop.TypeEnum,
		Default:   JSCodeNone,
		Enum:      jsCodes(),
		Tolerant:  true,
		BeforeGet: b.EnumGet(),
		AfterSet:  b.EnumSet(),
	})
	return err
}

// addJoystickEnabledProperty registers the XY stage joystick enable. The
// controller has no single enable flag; enabling assigns the joystick
// directions to both axes (honoring the rotate setting) and disabling
// assigns none.
func addJoystickEnabledProperty(d DualAxis) error {
	h := d.Hub()
	reg := d.Props()
	x, y := d.AxisLetterX(), d.AxisLetterY()
	query := "J " + x + "?"
	ack := ":A " + x + "="

	_, err := reg.Add(prop.Metadata{
		Name:    PropJoystickEnabled,
		Type:    prop.TypeEnum,
		Default: No,
		Enum:    yesNo(),
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(query, ack)
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			// Any assignment counts as enabled.
			if v != 0 {
				return p.Store(Yes)
			}
			return p.Store(No)
		},
		AfterSet: func(p *prop.Property) error {
			rotated, _ := p.Registry().Cached(PropJoystickRotate)
			_, err := h.QueryVerify(joystickMatrixCommand(x, y, p.Value() == Yes, rotated == Yes), ":A")
			return err
		},
	})
	return err
}

// addJoystickRotateProperty registers the XY stage joystick rotate, which
// swaps the X and Y joystick directions for rotated cameras.
func addJoystickRotateProperty(d DualAxis) error {
	h := d.Hub()
	reg := d.Props()
	x, y := d.AxisLetterX(), d.AxisLetterY()
	query := "J " + x + "?"
	ack := ":A " + x + "="

	_, err := reg.Add(prop.Metadata{
		Name:    PropJoystickRotate,
		Type:    prop.TypeEnum,
		Default: No,
		Enum:    yesNo(),
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(query, ack)
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			// X axis driven by the Y joystick direction means rotated.
			if v == 3 {
				return p.Store(Yes)
			}
			return p.Store(No)
		},
		AfterSet: func(p *prop.Property) error {
			enabled, _ := p.Registry().Cached(PropJoystickEnabled)
			_, err := h.QueryVerify(joystickMatrixCommand(x, y, enabled == Yes, p.Value() == Yes), ":A")
			return err
		},
	})
	return err
}

// joystickMatrixCommand formats the J assignment for the enable/rotate
// state: enabled normal J X=2 Y=3, enabled rotated J X=3 Y=2, disabled
// J X=0 Y=0.
func joystickMatrixCommand(x, y string, enabled, rotated bool) string {
	dirX, dirY := jsDirOff, jsDirOff
	if enabled {
		if rotated {
			dirX, dirY = jsDirY, jsDirX
		} else {
			dirX, dirY = jsDirX, jsDirY
		}
	}
	return "J " + x + "=" + dirX + " " + y + "=" + dirY
}

// cachedFloat reads a sibling property's cached value as a float.
func cachedFloat(reg *prop.Registry, name string) (float64, error) {
	p, err := reg.Lookup(name)
	if err != nil {
		return 0, err
	}
	return p.Float()
}
