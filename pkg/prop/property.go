package prop

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Property errors.
var (
	ErrNotFound     = errors.New("property not found")
	ErrDuplicate    = errors.New("duplicate property name")
	ErrReadOnly     = errors.New("property is read-only")
	ErrInvalidValue = errors.New("invalid property value")
	ErrOutOfRange   = errors.New("value out of range")
	ErrUnknownCode  = errors.New("unrecognized wire code")
)

// Type is the external type of a property value.
type Type int

const (
	// TypeInt is a whole-number property.
	TypeInt Type = iota

	// TypeFloat is a floating-point property.
	TypeFloat

	// TypeEnum is a string property restricted to an allowed-value set,
	// each value mapped to an integer wire code.
	TypeEnum
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Querier is the slice of the hub a property handler needs: verified
// command round-trips on the shared channel.
type Querier interface {
	// QueryVerify sends a command and verifies the answer prefix.
	QueryVerify(cmd, prefix string) (string, error)

	// QueryVerifyDelay is QueryVerify plus a post-command settle delay.
	QueryVerifyDelay(cmd, prefix string, delay time.Duration) (string, error)
}

// Handler is a bound read or write path for one property.
type Handler func(p *Property) error

// Limits bounds a numeric property. Enforced at the binding layer, before
// any command is formatted.
type Limits struct {
	Min float64
	Max float64
}

// Metadata describes a property at registration time.
type Metadata struct {
	// Name is the property name, unique per peripheral.
	Name string

	// Type is the external value type.
	Type Type

	// Default is the initial cached value.
	Default string

	// ReadOnly rejects external writes.
	ReadOnly bool

	// Enum is the allowed-value table for TypeEnum properties.
	Enum *EnumTable

	// Limits bounds numeric values when non-nil.
	Limits *Limits

	// Tolerant leaves the cached value unchanged when a read returns a
	// wire code outside the enum table, instead of failing the read.
	Tolerant bool

	// AlwaysRead bypasses refresh avoidance for this property: every
	// read runs the BeforeGet handler.
	AlwaysRead bool

	// ReadBack re-runs the read path after every successful write, for
	// hardware that coerces or rounds written values.
	ReadBack bool

	// BeforeGet is the read path. Nil means reads return the cache.
	BeforeGet Handler

	// AfterSet is the write path. Nil means writes only update the cache.
	AfterSet Handler
}

// Property is one named, typed entry in a peripheral's registry.
type Property struct {
	meta    Metadata
	value   string
	justSet bool
	reg     *Registry
}

// NewProperty creates a property from its metadata.
func NewProperty(meta Metadata) *Property {
	return &Property{meta: meta, value: meta.Default}
}

// Name returns the property name.
func (p *Property) Name() string {
	return p.meta.Name
}

// Type returns the property's external type.
func (p *Property) Type() Type {
	return p.meta.Type
}

// ReadOnly reports whether external writes are rejected.
func (p *Property) ReadOnly() bool {
	return p.meta.ReadOnly
}

// Enum returns the allowed-value table, or nil for numeric properties.
func (p *Property) Enum() *EnumTable {
	return p.meta.Enum
}

// Tolerant reports whether unknown wire codes are ignored on read.
func (p *Property) Tolerant() bool {
	return p.meta.Tolerant
}

// Registry returns the registry this property belongs to, for handlers
// that consult sibling properties.
func (p *Property) Registry() *Registry {
	return p.reg
}

// Value returns the cached external value.
func (p *Property) Value() string {
	return p.value
}

// Float returns the cached value as a float.
func (p *Property) Float() (float64, error) {
	v, err := strconv.ParseFloat(p.value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a float", ErrInvalidValue, p.value)
	}
	return v, nil
}

// Int returns the cached value as an integer.
func (p *Property) Int() (int64, error) {
	v, err := strconv.ParseInt(p.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, p.value)
	}
	return v, nil
}

// Code returns the wire code of the cached enum value.
func (p *Property) Code() (int64, error) {
	if p.meta.Enum == nil {
		return 0, fmt.Errorf("%w: %s has no enum table", ErrInvalidValue, p.meta.Name)
	}
	code, ok := p.meta.Enum.Code(p.value)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, p.value)
	}
	return code, nil
}

// Store validates the value and updates the cache without running the
// write path. BeforeGet handlers use it to publish freshly read values.
func (p *Property) Store(value string) error {
	if err := p.validate(value); err != nil {
		return err
	}
	p.value = value
	return nil
}

// StoreFloat stores a float value in the cache.
func (p *Property) StoreFloat(v float64) error {
	return p.Store(FormatFloat(v))
}

// StoreInt stores an integer value in the cache.
func (p *Property) StoreInt(v int64) error {
	return p.Store(strconv.FormatInt(v, 10))
}

// StoreCode stores the enum value matching a wire code. Unknown codes
// follow the property's tolerance policy: tolerant properties keep their
// current value, strict properties fail the read.
func (p *Property) StoreCode(code int64) error {
	if p.meta.Enum == nil {
		return fmt.Errorf("%w: %s has no enum table", ErrInvalidValue, p.meta.Name)
	}
	name, ok := p.meta.Enum.Name(code)
	if !ok {
		if p.meta.Tolerant {
			return nil
		}
		return fmt.Errorf("%w: %d for %s", ErrUnknownCode, code, p.meta.Name)
	}
	p.value = name
	return nil
}

// MarkJustSet flags the property for one forced read on the next access,
// bypassing refresh avoidance.
func (p *Property) MarkJustSet() {
	p.justSet = true
}

// validate checks a candidate value against the property's type, enum
// table, and limits.
func (p *Property) validate(value string) error {
	switch p.meta.Type {
	case TypeEnum:
		if p.meta.Enum == nil || !p.meta.Enum.Has(value) {
			return fmt.Errorf("%w: %q not allowed for %s", ErrInvalidValue, value, p.meta.Name)
		}
	case TypeInt:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
		}
		return p.checkLimits(float64(v))
	case TypeFloat:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float", ErrInvalidValue, value)
		}
		return p.checkLimits(v)
	}
	return nil
}

func (p *Property) checkLimits(v float64) error {
	if p.meta.Limits == nil {
		return nil
	}
	if v < p.meta.Limits.Min || v > p.meta.Limits.Max {
		return fmt.Errorf("%w: %v not in [%v, %v] for %s",
			ErrOutOfRange, v, p.meta.Limits.Min, p.meta.Limits.Max, p.meta.Name)
	}
	return nil
}

// FormatFloat renders a float the way the wire protocol expects: shortest
// representation, no exponent for typical magnitudes.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
