// Package hub owns the transaction channel and the per-card state shared by
// every peripheral: cached firmware build reports and shared-property
// propagation between peripherals on the same card.
package hub

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asi-tiger/tiger-go/pkg/build"
	"github.com/asi-tiger/tiger-go/pkg/log"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/serial"
)

// Answer prefixes of the wire protocol.
const (
	// AckPrefix starts every acknowledged answer.
	AckPrefix = ":A"

	// ErrPrefix starts every error answer, followed by the negated error
	// code, e.g. ":N-4".
	ErrPrefix = ":N"
)

// Hub multiplexes one serial channel among the peripherals of a controller.
//
// All command traffic flows through the hub so that the channel's
// one-command-in-flight rule and last-answer semantics hold across
// peripherals.
type Hub struct {
	ch      serial.Channel
	builds  map[byte]*build.Info
	regs    map[byte][]*prop.Registry
	logger  log.Logger
	session string

	// updating is set while a shared-property change is being pushed to
	// sibling registries, so their handlers can tell a propagation apart
	// from a direct client write.
	updating bool
}

// New creates a hub over an open channel. The hub takes ownership of the
// channel; Close closes it.
func New(ch serial.Channel) *Hub {
	return &Hub{
		ch:      ch,
		builds:  make(map[byte]*build.Info),
		regs:    make(map[byte][]*prop.Registry),
		logger:  log.NoopLogger{},
		session: uuid.NewString(),
	}
}

// SetLogger routes hub-level events, currently failed shared-property
// propagations, to the given traffic logger. Nil restores the no-op logger.
func (h *Hub) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	h.logger = l
}

// Channel returns the underlying transaction channel for operations the
// hub does not wrap.
func (h *Hub) Channel() serial.Channel {
	return h.ch
}

// Command sends a raw command and returns the answer.
func (h *Hub) Command(cmd string) (string, error) {
	return h.ch.Command(cmd)
}

// QueryVerify sends a command and verifies the answer prefix.
func (h *Hub) QueryVerify(cmd, prefix string) (string, error) {
	return h.ch.QueryVerify(cmd, prefix)
}

// QueryVerifyDelay is QueryVerify plus a settle delay after the command.
func (h *Hub) QueryVerifyDelay(cmd, prefix string, delay time.Duration) (string, error) {
	return h.ch.QueryVerifyDelay(cmd, prefix, delay)
}

// LastAnswer returns the answer captured by the most recent command on the
// shared channel.
func (h *Hub) LastAnswer() string {
	return h.ch.LastAnswer()
}

// Close closes the underlying channel.
func (h *Hub) Close() error {
	return h.ch.Close()
}

// BuildInfo returns the parsed build report of the card at addr, fetching
// and caching it on first use. The firmware version from the card's "V"
// answer is folded into the returned Info.
func (h *Hub) BuildInfo(addr byte) (*build.Info, error) {
	if info, ok := h.builds[addr]; ok {
		return info, nil
	}

	report, err := h.ch.CommandMultiLine(string(addr) + "BU X")
	if err != nil {
		return nil, fmt.Errorf("build report for card %c: %w", addr, err)
	}
	info, err := build.Parse(report)
	if err != nil {
		return nil, fmt.Errorf("build report for card %c: %w", addr, err)
	}

	answer, err := h.ch.QueryVerify(string(addr)+"V", AckPrefix+" Version:")
	if err != nil {
		return nil, fmt.Errorf("version for card %c: %w", addr, err)
	}
	info.Version, err = build.ParseVersionAnswer(answer)
	if err != nil {
		return nil, fmt.Errorf("version for card %c: %w", addr, err)
	}

	h.builds[addr] = info
	return info, nil
}

// Register attaches a peripheral's property registry to its card address so
// shared-property changes reach it.
func (h *Hub) Register(addr byte, reg *prop.Registry) {
	h.regs[addr] = append(h.regs[addr], reg)
}

// UpdateShared pushes a property value already written to the card at addr
// into the caches of every registry attached to that card. No handlers run
// and no commands are issued; the hardware already holds the value. A
// sibling that rejects the value is logged and skipped rather than failing
// the originating write, which the controller has already acknowledged.
func (h *Hub) UpdateShared(addr byte, name, value string) {
	h.updating = true
	defer func() { h.updating = false }()

	for _, reg := range h.regs[addr] {
		if err := reg.StoreShared(name, value); err != nil {
			h.logger.Log(log.ErrorEvent(h.session, "",
				fmt.Sprintf("propagate %s to card %c", name, addr), err))
		}
	}
}

// UpdatingShared reports whether a shared-property propagation is in
// progress. Handlers of shared properties check it to avoid re-issuing the
// command a sibling peripheral already sent.
func (h *Hub) UpdatingShared() bool {
	return h.updating
}

// IsErrAnswer reports whether an answer is a controller error (":N-<code>").
func IsErrAnswer(answer string) bool {
	return strings.HasPrefix(answer, ErrPrefix)
}

// ErrCode extracts the numeric error code from a ":N-<code>" answer, or 0
// when the answer is not an error.
func ErrCode(answer string) int {
	if !IsErrAnswer(answer) {
		return 0
	}
	var code int
	if _, err := fmt.Sscanf(answer[len(ErrPrefix):], "%d", &code); err != nil {
		return 0
	}
	return -code
}

// Compile-time check: the hub satisfies the querier contract handlers bind
// against.
var _ prop.Querier = (*Hub)(nil)
