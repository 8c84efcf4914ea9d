package drivers

import (
	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// PMT property names.
const (
	PropPMTGain          = "PMTGain"
	PropPMTAverage       = "ADCAvgLength"
	PropPMTOverloadReset = "OverloadReset"
	PropPMTSignal        = "PMTSignal"
	PropPMTOverload      = "PMTOverload"
)

// Overload reset values. The reset is one-shot: writing "On" fires it and
// the property snaps to "done".
const (
	OverloadResetOff  = "Off"
	OverloadResetOn   = "On"
	OverloadResetDone = "done"
)

// channelAxes maps a card channel number to the axis char its DAC and
// lockout commands are addressed with.
var channelAxes = map[int]string{
	1: "X", 2: "Y", 3: "Z", 4: "F", 5: "T", 6: "R",
}

// PMT drives one photomultiplier channel of a PMT card: gain, ADC
// averaging, the overload lockout, and the live signal readout.
type PMT struct {
	*Base
	axis        string
	channelAxis string
}

// NewPMT constructs a PMT channel from its extended device name and runs
// the one-time hardware interrogation and property registration.
func NewPMT(h *hub.Hub, name string) (*PMT, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	a, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	ch, err := address.Channel(name)
	if err != nil {
		return nil, err
	}
	chAxis, ok := channelAxes[ch]
	if !ok {
		chAxis = "X"
	}
	p := &PMT{Base: base, axis: string(a), channelAxis: chAxis}
	if err := p.initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

// AxisLetter returns the channel's axis letter.
func (p *PMT) AxisLetter() string { return p.axis }

func (p *PMT) initialize() error {
	if err := p.addCommonProperties(); err != nil {
		return err
	}

	// Gain goes through the card's DAC; the answer echoes the channel
	// axis with no ack prefix.
	gain := &prop.Binding{
		Q:        p.hub,
		Query:    string(p.addr) + "WRDAC " + p.channelAxis + "?",
		QueryAck: p.channelAxis + "=",
		Pos:      -1,
		Set:      string(p.addr) + "WRDAC " + p.channelAxis + "=",
	}
	if err := p.addIntProp(PropPMTGain, "0", gain, &prop.Limits{Min: 0, Max: 1000}); err != nil {
		return err
	}

	avg := &prop.Binding{
		Q:        p.hub,
		Query:    "E " + p.axis + "?",
		QueryAck: ":" + p.axis + "=",
		Pos:      -1,
		Set:      "E " + p.axis + "=",
	}
	if err := p.addIntProp(PropPMTAverage, "1", avg, &prop.Limits{Min: 0, Max: 5}); err != nil {
		return err
	}

	if _, err := p.reg.Add(prop.Metadata{
		Name:    PropPMTOverloadReset,
		Type:    prop.TypeEnum,
		Default: OverloadResetOff,
		Enum: prop.NewEnumTable().
			Add(OverloadResetOff, 0).
			Add(OverloadResetOn, 1).
			Add(OverloadResetDone, 2),
		AfterSet: func(pr *prop.Property) error {
			v := pr.Value()
			if v == OverloadResetOff || v == OverloadResetDone {
				return nil
			}
			cmd := string(p.addr) + "LK " + p.channelAxis
			if _, err := p.hub.QueryVerifyDelay(cmd, ":A", saveSettingsDelay); err != nil {
				return err
			}
			return pr.Store(OverloadResetDone)
		},
	}); err != nil {
		return err
	}

	if _, err := p.reg.Add(prop.Metadata{
		Name:       PropPMTSignal,
		Type:       prop.TypeInt,
		Default:    "0",
		ReadOnly:   true,
		AlwaysRead: true,
		BeforeGet: func(pr *prop.Property) error {
			v, err := p.readAfterAck(string(p.addr) + "RA " + p.channelAxis + "?")
			if err != nil {
				return err
			}
			return pr.StoreInt(v)
		},
	}); err != nil {
		return err
	}

	if _, err := p.reg.Add(prop.Metadata{
		Name:       PropPMTOverload,
		Type:       prop.TypeEnum,
		Default:    no,
		ReadOnly:   true,
		AlwaysRead: true,
		Enum:       prop.NewEnumTable().Add(no, 0).Add(yes, 1),
		BeforeGet: func(pr *prop.Property) error {
			// 0 means the lockout tripped.
			v, err := p.readAfterAck(string(p.addr) + "LK " + p.channelAxis + "?")
			if err != nil {
				return err
			}
			if v == 0 {
				return pr.Store(yes)
			}
			return pr.Store(no)
		},
	}); err != nil {
		return err
	}

	p.finishInit()
	return nil
}

// readAfterAck runs a query and parses the integer following the ":A " ack.
func (p *PMT) readAfterAck(cmd string) (int64, error) {
	answer, err := p.hub.QueryVerify(cmd, ":A")
	if err != nil {
		return 0, err
	}
	return reply.IntAfterPosition(answer, 2)
}

// Signal reads the channel's current ADC value.
func (p *PMT) Signal() (int64, error) {
	return p.readAfterAck(string(p.addr) + "RA " + p.channelAxis + "?")
}

// Overloaded reports whether the channel's overload lockout has tripped.
func (p *PMT) Overloaded() (bool, error) {
	v, err := p.readAfterAck(string(p.addr) + "LK " + p.channelAxis + "?")
	if err != nil {
		return false, err
	}
	return v == 0, nil
}

// ResetOverload clears the overload lockout and re-enables the channel.
func (p *PMT) ResetOverload() error {
	_, err := p.hub.QueryVerifyDelay(string(p.addr)+"LK "+p.channelAxis, ":A", saveSettingsDelay)
	return err
}
