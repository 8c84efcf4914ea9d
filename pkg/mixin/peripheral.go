// Package mixin provides composable property bundles that attach standard
// property groups to any peripheral satisfying a small structural contract.
//
// A bundle is a function over the contract: AddRingBufferProperties,
// AddInputProperties, AddSingleAxisProperties. Which bundle shape applies
// is decided by the interface the peripheral implements: SingleAxis
// peripherals expose one axis-letter accessor, DualAxis peripherals expose
// X and Y accessors, and the bundle registration functions take the
// matching interface so the choice is made at compile time.
//
// Card-wide settings registered by a bundle (wheel speeds, ring buffer
// mode) propagate to sibling peripherals on the same card through the
// hub's shared-property store; their write handlers check the hub's
// propagation guard and return early when the value arrives as an incoming
// propagation rather than a direct client write.
package mixin

import (
	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/prop"
)

// Yes/No values shared by boolean-shaped enum properties.
const (
	Yes = "Yes"
	No  = "No"
)

// Peripheral is the structural contract every bundle requires.
type Peripheral interface {
	// Hub returns the owning hub.
	Hub() *hub.Hub

	// Address returns the card address character used as the command
	// prefix for card-addressed commands.
	Address() byte

	// Props returns the peripheral's property registry.
	Props() *prop.Registry

	// Build returns the cached build info of the peripheral's card.
	Build() *build.Info

	// UnitMult converts external units to controller units.
	UnitMult() float64
}

// SingleAxis is the contract for one-axis peripherals.
type SingleAxis interface {
	Peripheral

	// AxisLetter returns the peripheral's axis letter, e.g. "Z".
	AxisLetter() string
}

// DualAxis is the contract for two-axis peripherals.
type DualAxis interface {
	Peripheral

	// AxisLetterX returns the first axis letter, e.g. "X".
	AxisLetterX() string

	// AxisLetterY returns the second axis letter, e.g. "Y".
	AxisLetterY() string
}

// yesNo is the table shared by boolean-shaped enum properties that do not
// map to wire codes directly.
func yesNo() *prop.EnumTable {
	return prop.NewEnumTable().Add(No, 0).Add(Yes, 1)
}

// addrStr returns the command prefix for the peripheral's card.
func addrStr(p Peripheral) string {
	return string(p.Address())
}
