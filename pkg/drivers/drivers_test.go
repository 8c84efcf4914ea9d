package drivers_test

import (
	"github.com/asi-tiger/tiger-go/internal/comtest"
)

// scriptCard scripts the build interrogation every driver runs on
// construction.
func scriptCard(ch *comtest.Channel, addr, version string, lines ...string) {
	ch.RespondLines(addr+"BU X", lines...)
	ch.Respond(addr+"V", ":A Version: "+version)
}

// scriptUnitMult scripts the axis unit multiplier at the Tiger default of
// 10000 units per mm (10 units per micron).
func scriptUnitMult(ch *comtest.Channel, axis string) {
	ch.Respond("UM "+axis+"?", ":"+axis+"=10000")
}

// scriptSpeedProbe scripts the clamp-and-read speed range discovery. A
// static script answers every read with the same speed, so the probed
// range collapses to a single point; tests that exercise speed limits
// account for that.
func scriptSpeedProbe(ch *comtest.Channel, axis, speed string) {
	ch.Respond("S "+axis+"?", ":A "+axis+"="+speed)
	ch.Respond("S "+axis+"=10000", ":A")
	ch.Respond("S "+axis+"=0.000001", ":A")
	ch.Respond("S "+axis+"="+speed, ":A")
}
