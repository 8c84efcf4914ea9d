package mixin

import (
	"strconv"

	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// Ring buffer property names.
const (
	PropRingBufferMode     = "RingBufferMode"
	PropRingBufferDelay    = "RingBufferDelayBetweenPoints(ms)"
	PropRingBufferTrigger  = "RingBufferTrigger"
	PropRingBufferRunning  = "RingBufferAutoplayRunning"
	PropRingBufferCapacity = "RingBufferCapacity"
	PropRingBufferSequence = "RingBufferSequencingEnabled"
	PropRingBufferTTLInput = "RingBufferTTLInput"
)

// Ring buffer mode values.
const (
	RBModeOnePoint   = "1 - One Point"
	RBModePlayOnce   = "2 - Play Once"
	RBModePlayRepeat = "3 - Repeat"
)

// Ring buffer trigger values.
const (
	RBTriggerDone = "Done"
	RBTriggerDoIt = "Do it"
)

// autoplayRunningOffset is added to the reported mode code while the
// buffer is playing back.
const autoplayRunningOffset = 128

// RingBufferSupported reports whether the card's firmware and the axis at
// axisIndex carry ring buffer support.
func RingBufferSupported(info *build.Info, axisIndex int) bool {
	return info.VersionAtLeast(2.81) && info.AxisProp(axisIndex)&build.PropRingBuffer != 0
}

// rbAxis returns the pseudo-axis letter the RM command addresses the ring
// buffer with. Firmware 2.89 moved it from X to F.
func rbAxis(info *build.Info) string {
	if info.VersionAtLeast(2.89) {
		return "F"
	}
	return "X"
}

// AddRingBufferProperties registers the ring buffer bundle. Callers gate
// registration with RingBufferSupported; the bundle itself only consults
// the build info for the pseudo-axis letter, the capacity define, and the
// TTL input gate.
func AddRingBufferProperties(d Peripheral) error {
	h := d.Hub()
	reg := d.Props()
	info := d.Build()
	addr := addrStr(d)
	axis := rbAxis(info)

	modeQuery := addr + "RM " + axis + "?"

	modes := prop.NewEnumTable().
		Add(RBModeOnePoint, 1).
		Add(RBModePlayOnce, 2).
		Add(RBModePlayRepeat, 3)

	if _, err := reg.Add(prop.Metadata{
		Name:    PropRingBufferMode,
		Type:    prop.TypeEnum,
		Default: RBModeOnePoint,
		Enum:    modes,
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(modeQuery, ":A")
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			if v >= autoplayRunningOffset {
				v -= autoplayRunningOffset
			}
			return p.StoreCode(v)
		},
		AfterSet: func(p *prop.Property) error {
			if h.UpdatingShared() {
				return nil
			}
			code, err := p.Code()
			if err != nil {
				return err
			}
			cmd := addr + "RM " + axis + "=" + strconv.FormatInt(code, 10)
			if _, err := h.QueryVerify(cmd, ":A"); err != nil {
				return err
			}
			h.UpdateShared(d.Address(), PropRingBufferMode, p.Value())
			return nil
		},
	}); err != nil {
		return err
	}

	delayBinding := &prop.Binding{
		Q:     h,
		Query: addr + "RT Z?",
		Pos:   -1,
		Set:   addr + "RT Z=",
	}
	if _, err := reg.Add(prop.Metadata{
		Name:      PropRingBufferDelay,
		Type:      prop.TypeInt,
		Default:   "0",
		BeforeGet: delayBinding.IntGet(),
		AfterSet: func(p *prop.Property) error {
			if h.UpdatingShared() {
				return nil
			}
			if err := delayBinding.IntSet()(p); err != nil {
				return err
			}
			h.UpdateShared(d.Address(), PropRingBufferDelay, p.Value())
			return nil
		},
	}); err != nil {
		return err
	}

	if _, err := reg.Add(prop.Metadata{
		Name:    PropRingBufferTrigger,
		Type:    prop.TypeEnum,
		Default: RBTriggerDone,
		Enum:    prop.NewEnumTable().Add(RBTriggerDone, 0).Add(RBTriggerDoIt, 1),
		AfterSet: func(p *prop.Property) error {
			if p.Value() != RBTriggerDoIt {
				return nil
			}
			if _, err := h.QueryVerify(addr+"RM", ":A"); err != nil {
				return err
			}
			// Trigger fired; snap back to the idle value.
			return p.Store(RBTriggerDone)
		},
	}); err != nil {
		return err
	}

	if _, err := reg.Add(prop.Metadata{
		Name:       PropRingBufferRunning,
		Type:       prop.TypeEnum,
		Default:    No,
		ReadOnly:   true,
		AlwaysRead: true,
		Enum:       yesNo(),
		BeforeGet: func(p *prop.Property) error {
			answer, err := h.QueryVerify(modeQuery, ":A")
			if err != nil {
				return err
			}
			v, err := reply.IntAfterEquals(answer)
			if err != nil {
				return err
			}
			if v >= autoplayRunningOffset {
				return p.Store(Yes)
			}
			return p.Store(No)
		},
	}); err != nil {
		return err
	}

	capacity := info.DefineInt("RING BUFFER_")
	if _, err := reg.Add(prop.Metadata{
		Name:     PropRingBufferCapacity,
		Type:     prop.TypeInt,
		Default:  strconv.Itoa(capacity),
		ReadOnly: true,
	}); err != nil {
		return err
	}

	// Host-side flag: whether acquisition code may stream positions into
	// the buffer instead of issuing individual moves. Never touches the
	// wire.
	if _, err := reg.Add(prop.Metadata{
		Name:    PropRingBufferSequence,
		Type:    prop.TypeEnum,
		Default: No,
		Enum:    yesNo(),
	}); err != nil {
		return err
	}

	if info.VersionAtLeast(3.09) && info.HasDefine("IN0_INT") {
		ttlBinding := &prop.Binding{
			Q:        h,
			Query:    addr + "TTL X?",
			QueryAck: ":A X=",
			Pos:      -1,
			Set:      addr + "TTL X=",
		}
		if _, err := reg.Add(prop.Metadata{
			Name:      PropRingBufferTTLInput,
			Type:      prop.TypeEnum,
			Default:   No,
			Enum:      yesNo(),
			BeforeGet: ttlBinding.EnumGet(),
			AfterSet:  ttlBinding.EnumSet(),
		}); err != nil {
			return err
		}
	}

	return nil
}
