// Package comtest provides a scripted transaction channel for package
// tests: canned answers per command, a transcript of everything sent, and
// per-command call counters, so tests can assert both what went to the wire
// and what never did.
package comtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/asi-tiger/tiger-go/pkg/serial"
)

// Channel is a scripted serial.Channel. Commands answer from the script;
// an unscripted command fails the transaction so stray traffic surfaces as
// a test failure instead of passing silently.
type Channel struct {
	answers map[string]string
	sent    []string
	counts  map[string]int
	last    string
	closed  bool

	// Default, when non-empty, answers any unscripted command.
	Default string
}

// New creates an empty scripted channel.
func New() *Channel {
	return &Channel{
		answers: make(map[string]string),
		counts:  make(map[string]int),
	}
}

// Respond scripts the answer for one exact command.
func (c *Channel) Respond(cmd, answer string) *Channel {
	c.answers[cmd] = answer
	return c
}

// RespondLines scripts a multi-line answer, joined by carriage returns the
// way a real port drains a burst.
func (c *Channel) RespondLines(cmd string, lines ...string) *Channel {
	return c.Respond(cmd, strings.Join(lines, "\r"))
}

// Sent returns every command sent, in order.
func (c *Channel) Sent() []string {
	return c.sent
}

// Count returns how many times the exact command was sent.
func (c *Channel) Count(cmd string) int {
	return c.counts[cmd]
}

// SentTotal returns the total number of commands sent.
func (c *Channel) SentTotal() int {
	return len(c.sent)
}

// Reset clears the transcript and counters, keeping the script.
func (c *Channel) Reset() {
	c.sent = nil
	c.counts = make(map[string]int)
}

// Command answers cmd from the script.
func (c *Channel) Command(cmd string) (string, error) {
	if c.closed {
		return "", serial.ErrClosed
	}
	c.sent = append(c.sent, cmd)
	c.counts[cmd]++

	answer, ok := c.answers[cmd]
	if !ok {
		if c.Default == "" {
			return "", fmt.Errorf("unscripted command %q", cmd)
		}
		answer = c.Default
	}
	c.last = answer
	return answer, nil
}

// CommandMultiLine behaves like Command; multi-line scripts are registered
// with RespondLines.
func (c *Channel) CommandMultiLine(cmd string) (string, error) {
	return c.Command(cmd)
}

// QueryVerify answers cmd and verifies the answer prefix.
func (c *Channel) QueryVerify(cmd, prefix string) (string, error) {
	answer, err := c.Command(cmd)
	if err != nil {
		return "", err
	}
	if err := serial.Verify(cmd, prefix, answer); err != nil {
		return answer, err
	}
	return answer, nil
}

// QueryVerifyDelay is QueryVerify; the scripted channel does not sleep.
func (c *Channel) QueryVerifyDelay(cmd, prefix string, delay time.Duration) (string, error) {
	return c.QueryVerify(cmd, prefix)
}

// LastAnswer returns the most recent scripted answer.
func (c *Channel) LastAnswer() string {
	return c.last
}

// Close marks the channel closed; later commands fail with ErrClosed.
func (c *Channel) Close() error {
	c.closed = true
	return nil
}

var _ serial.Channel = (*Channel)(nil)
