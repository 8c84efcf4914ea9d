// Package reply parses captured controller answers.
//
// All functions operate on the answer captured by the previous transaction,
// not on a fresh read: callers must parse promptly after QueryVerify, before
// the next command overwrites the channel's last-answer buffer.
//
// Tiger answers come in two shapes: key=value echoes (":A X=123.45") and
// fixed-offset values (":A 123" with the payload starting at position 3).
// Terse status queries answer with a single flag character (":A B").
package reply

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse errors.
var (
	ErrNoEquals = errors.New("no '=' found in answer")
	ErrTooShort = errors.New("answer shorter than requested position")
)

// FloatAfterEquals parses the characters after the first '=' as a float.
func FloatAfterEquals(answer string) (float64, error) {
	s, err := afterEquals(answer)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as float: %w", s, err)
	}
	return v, nil
}

// IntAfterEquals parses the characters after the first '=' as an integer.
func IntAfterEquals(answer string) (int64, error) {
	s, err := afterEquals(answer)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as int: %w", s, err)
	}
	return v, nil
}

// FloatAfterPosition parses the answer from the given character offset as a
// float. Used for fixed-format answers like ":A 123.4".
func FloatAfterPosition(answer string, pos int) (float64, error) {
	s, err := afterPosition(answer, pos)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as float: %w", s, err)
	}
	return v, nil
}

// IntAfterPosition parses the answer from the given character offset as an
// integer.
func IntAfterPosition(answer string, pos int) (int64, error) {
	s, err := afterPosition(answer, pos)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as int: %w", s, err)
	}
	return v, nil
}

// UintAfterPosition parses the answer from the given character offset as an
// unsigned integer.
func UintAfterPosition(answer string, pos int) (uint64, error) {
	s, err := afterPosition(answer, pos)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as uint: %w", s, err)
	}
	return v, nil
}

// CharAt returns the single character at the given offset. Used for terse
// status flags such as the 'B' busy marker in "RS <axis>?" answers.
func CharAt(answer string, pos int) (byte, error) {
	if pos < 0 || pos >= len(answer) {
		return 0, fmt.Errorf("%w: position %d in %q", ErrTooShort, pos, answer)
	}
	return answer[pos], nil
}

// Split splits the answer on the given delimiter, dropping empty tokens.
func Split(answer, delim string) []string {
	parts := strings.Split(answer, delim)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lines splits a multi-line answer on carriage returns, dropping empty
// lines. Commands like the build report answer with several CR-separated
// lines.
func Lines(answer string) []string {
	return Split(answer, "\r")
}

// afterEquals returns the trimmed text after the first '='.
func afterEquals(answer string) (string, error) {
	i := strings.IndexByte(answer, '=')
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoEquals, answer)
	}
	return firstToken(answer[i+1:]), nil
}

// afterPosition returns the trimmed text starting at pos.
func afterPosition(answer string, pos int) (string, error) {
	if pos < 0 || pos > len(answer) {
		return "", fmt.Errorf("%w: position %d in %q", ErrTooShort, pos, answer)
	}
	return firstToken(answer[pos:]), nil
}

// firstToken trims leading spaces and cuts at the next space or CR, so an
// answer echoing several axis=value pairs parses only the first value.
func firstToken(s string) string {
	s = strings.TrimLeft(s, " ")
	if i := strings.IndexAny(s, " \r"); i >= 0 {
		s = s[:i]
	}
	return s
}
