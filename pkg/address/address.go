// Package address resolves peripheral device names to hub addresses.
//
// A hub reports its peripherals with extended names of the form
//
//	<type>:<axisLetters>:<hexAddress>
//
// e.g. "ZStage:Z:32" for a single-axis stage on the card at hex address 32,
// or "XYStage:XY:31" for a dual-axis stage. The axis-letter field carries
// one letter per axis, optionally followed by a channel digit on
// multi-channel cards ("PMT:X2:4A" is channel 2); the hex-address field is
// the card address byte in hexadecimal, which on the wire becomes a single
// ASCII prefix character (hex 31 = '1', so commands to that card start
// with "1").
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Name errors.
var (
	ErrNotExtended = errors.New("not an extended device name")
	ErrNoAxis      = errors.New("no axis letter at requested offset")
)

// IsExtended reports whether the device name encodes axis and address
// fields.
func IsExtended(name string) bool {
	return strings.Count(name, ":") == 2
}

// AxisLetter returns the axis letter at the given offset within the name's
// axis field. Offset 0 is the first (or only) axis; dual-axis peripherals
// use offsets 0 and 1.
func AxisLetter(name string, offset int) (byte, error) {
	_, axes, _, err := split(name)
	if err != nil {
		return 0, err
	}
	axes = trimChannel(axes)
	if offset < 0 || offset >= len(axes) {
		return 0, fmt.Errorf("%w: offset %d in %q", ErrNoAxis, offset, name)
	}
	return axes[offset], nil
}

// Channel returns the channel index encoded as a digit suffix of the axis
// field (e.g. "PMT:X2:4A" is channel 2). Names without a suffix are
// channel 1.
func Channel(name string) (int, error) {
	_, axes, _, err := split(name)
	if err != nil {
		return 0, err
	}
	suffix := axes[len(trimChannel(axes)):]
	if suffix == "" {
		return 1, nil
	}
	v, err := strconv.Atoi(suffix)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("bad channel suffix %q in %q", suffix, name)
	}
	return v, nil
}

// AxisCount returns the number of axis letters encoded in the name.
func AxisCount(name string) (int, error) {
	_, axes, _, err := split(name)
	if err != nil {
		return 0, err
	}
	return len(trimChannel(axes)), nil
}

// trimChannel strips the optional channel digit suffix from an axis field.
func trimChannel(axes string) string {
	i := len(axes)
	for i > 0 && axes[i-1] >= '0' && axes[i-1] <= '9' {
		i--
	}
	return axes[:i]
}

// HubAddress returns the card address character encoded in the name's
// hexadecimal address field.
func HubAddress(name string) (byte, error) {
	_, _, hexAddr, err := split(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(hexAddr, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad hex address %q in %q: %w", hexAddr, name, err)
	}
	return byte(v), nil
}

// Type returns the peripheral type field of the name.
func Type(name string) (string, error) {
	typ, _, _, err := split(name)
	if err != nil {
		return "", err
	}
	return typ, nil
}

func split(name string) (typ, axes, hexAddr string, err error) {
	parts := strings.Split(name, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrNotExtended, name)
	}
	return parts[0], parts[1], parts[2], nil
}
