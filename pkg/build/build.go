// Package build parses controller build reports into capability sets.
//
// Each card answers "BU X" with a multi-line report describing its firmware:
//
//	STD_ZF
//	Motor Axes: Z F
//	Axis Types: p p
//	Axis Addr: 1 1
//	Axis Props: 74 74
//	RING BUFFER_50
//	SPEED TRUTH
//	IN0_INT
//
// Lines after the fixed header are firmware definition tokens; a token may
// carry a numeric parameter as a suffix (RING BUFFER_50 encodes the buffer
// capacity). The firmware version number comes from the card's "V" answer
// and is folded into the same Info value.
//
// The report is fetched once per card address at peripheral initialization
// and cached for the life of the hub; firmware does not change at runtime.
package build

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Axis property bits reported in the "Axis Props" header line.
const (
	// PropRingBuffer marks an axis whose card has ring buffer support.
	PropRingBuffer = 1 << 1

	// PropScan marks an axis whose card has the scan module.
	PropScan = 1 << 2
)

// ErrEmptyReport indicates a build report with no content.
var ErrEmptyReport = errors.New("empty build report")

// Info is the parsed capability set of one card.
type Info struct {
	// Name is the firmware build name from the first report line.
	Name string

	// Version is the firmware version number (e.g. 3.30), taken from the
	// card's "V" answer.
	Version float64

	// AxisLetters holds the letters from the "Motor Axes" line.
	AxisLetters []byte

	// AxisProps holds the capability bitmask per axis, aligned with
	// AxisLetters.
	AxisProps []uint

	// Defines holds the firmware definition tokens, one per report line
	// after the fixed header.
	Defines []string
}

// Parse parses a multi-line build report. The version number is not part of
// the report; callers fold it in afterwards.
func Parse(report string) (*Info, error) {
	lines := splitLines(report)
	if len(lines) == 0 {
		return nil, ErrEmptyReport
	}

	info := &Info{Name: strings.TrimSpace(lines[0])}
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "Motor Axes:"):
			for _, tok := range strings.Fields(line[len("Motor Axes:"):]) {
				info.AxisLetters = append(info.AxisLetters, tok[0])
			}
		case strings.HasPrefix(line, "Axis Props:"):
			for _, tok := range strings.Fields(line[len("Axis Props:"):]) {
				v, err := strconv.ParseUint(tok, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("bad axis prop %q: %w", tok, err)
				}
				info.AxisProps = append(info.AxisProps, uint(v))
			}
		case strings.HasPrefix(line, "Axis Types:"),
			strings.HasPrefix(line, "Axis Addr:"),
			strings.HasPrefix(line, "Hex Addr:"):
			// Header lines the engine has no use for.
		default:
			info.Defines = append(info.Defines, strings.TrimSpace(line))
		}
	}
	return info, nil
}

// HasDefine reports whether the report contains the exact definition token
// or a token that extends it with a parameter suffix (HasDefine("RING
// BUFFER") matches "RING BUFFER_50"). Absent tokens are simply "not
// present", never an error: most defines are optional per firmware build.
func (i *Info) HasDefine(token string) bool {
	for _, d := range i.Defines {
		if d == token || strings.HasPrefix(d, token) {
			return true
		}
	}
	return false
}

// DefineValue returns the text following the token in its definition line,
// e.g. DefineValue("RING BUFFER_") returns "50" for "RING BUFFER_50".
// Returns "" when the token is absent.
func (i *Info) DefineValue(token string) string {
	for _, d := range i.Defines {
		if strings.HasPrefix(d, token) {
			return d[len(token):]
		}
	}
	return ""
}

// DefineInt returns the numeric parameter embedded in a definition token,
// or 0 when the token is absent or carries no number.
func (i *Info) DefineInt(token string) int {
	v, err := strconv.Atoi(i.DefineValue(token))
	if err != nil {
		return 0
	}
	return v
}

// VersionAtLeast reports whether the firmware version is at least v.
// Versions are decimal numbers compared with a small tolerance so that
// 2.87 stored as a float still satisfies VersionAtLeast(2.87).
func (i *Info) VersionAtLeast(v float64) bool {
	return i.Version >= v-1e-9
}

// SpeedTruth reports whether the controller answers speed queries with the
// actual quantized speed it runs at. From 3.27 every build tells the truth
// unless it declares otherwise; older builds lie unless they declare the
// opposite.
func (i *Info) SpeedTruth() bool {
	if i.VersionAtLeast(3.27) {
		return !i.HasDefine("SPEED UNTRUTH")
	}
	return i.HasDefine("SPEED TRUTH")
}

// AxisProp returns the capability bitmask of the axis at the given index,
// or 0 when the report had no entry for it.
func (i *Info) AxisProp(index int) uint {
	if index < 0 || index >= len(i.AxisProps) {
		return 0
	}
	return i.AxisProps[index]
}

// ParseVersionAnswer extracts the version number from a "V" answer of the
// form ":A Version: 3.30".
func ParseVersionAnswer(answer string) (float64, error) {
	i := strings.LastIndexByte(answer, ':')
	if i < 0 || i+1 >= len(answer) {
		return 0, fmt.Errorf("no version in %q", answer)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(answer[i+1:]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %q: %w", answer, err)
	}
	return v, nil
}

// splitLines splits a report on CR and/or LF, dropping empty lines.
func splitLines(report string) []string {
	raw := strings.FieldsFunc(report, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	out := raw[:0]
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
