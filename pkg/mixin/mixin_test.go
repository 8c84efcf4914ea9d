package mixin_test

import (
	"github.com/asi-tiger/tiger-go/internal/comtest"
	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/mixin"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// device is a minimal bundle host: one registry on one card address.
type device struct {
	h    *hub.Hub
	addr byte
	reg  *prop.Registry
	info *build.Info
	mult float64
	x, y string
}

var (
	_ mixin.SingleAxis = (*device)(nil)
	_ mixin.DualAxis   = (*device)(nil)
)

func (d *device) Hub() *hub.Hub         { return d.h }
func (d *device) Address() byte         { return d.addr }
func (d *device) Props() *prop.Registry { return d.reg }
func (d *device) Build() *build.Info    { return d.info }
func (d *device) UnitMult() float64     { return d.mult }
func (d *device) AxisLetter() string    { return d.x }
func (d *device) AxisLetterX() string   { return d.x }
func (d *device) AxisLetterY() string   { return d.y }

func newDevice(ch *comtest.Channel, info *build.Info) *device {
	d := &device{
		h:    hub.New(ch),
		addr: '2',
		reg:  prop.NewRegistry(),
		info: info,
		mult: 1,
		x:    "X",
		y:    "Y",
	}
	d.h.Register(d.addr, d.reg)
	return d
}

// sibling hosts a second registry on the same card, for propagation tests.
func (d *device) sibling() *device {
	s := *d
	s.reg = prop.NewRegistry()
	d.h.Register(d.addr, s.reg)
	return &s
}

func stdInfo(version float64) *build.Info {
	return &build.Info{
		Name:        "STD_XY",
		Version:     version,
		AxisLetters: []byte{'X', 'Y'},
		AxisProps:   []uint{74, 74},
		Defines:     []string{"RING BUFFER_50", "IN0_INT"},
	}
}
