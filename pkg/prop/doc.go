// Package prop implements the property registry and binding engine.
//
// A peripheral exposes its settings as named, typed properties. Each
// property binds a name to a pair of wire transactions: a read path
// (BeforeGet) that queries the controller and refreshes the cached value,
// and a write path (AfterSet) that validates the new value and issues the
// set command. Both paths are complete synchronous transactions; there is
// no intermediate state.
//
// # Refresh avoidance
//
// Most hardware values never change behind the driver's back, so after
// initialization the registry answers reads from cache unless the
// peripheral's refresh policy is enabled, the property carries a pending
// read-back marker, or the property opts into always-fresh reads. This is
// the dominant performance optimization: a property read that skips the
// wire costs nothing.
//
// # Bindings
//
// The common handler shapes are built from a Binding value object holding
// the query/set command templates, the expected answer prefix, a unit
// conversion factor, and an optional bit mask for properties that own only
// part of a shared register. Bespoke handlers (cross-property interactions,
// composite commands) are plain functions over the same Property type.
//
// # Validation
//
// Enumerated properties reject values outside their allowed set and numeric
// properties enforce their limits before any command is formatted, so a bad
// value never reaches the wire.
package prop
