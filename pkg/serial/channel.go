package serial

import (
	"errors"
	"fmt"
	"time"
)

// Channel errors.
var (
	ErrClosed  = errors.New("channel closed")
	ErrTimeout = errors.New("answer timeout")
)

// ProtocolError reports an answer that did not match the expected prefix.
// The raw answer is preserved for diagnostics.
type ProtocolError struct {
	// Command is the command that was sent.
	Command string

	// Expected is the prefix the answer was checked against.
	Expected string

	// Answer is the raw answer the controller returned.
	Answer string
}

// Error returns the protocol error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected answer to %q: got %q, want prefix %q",
		e.Command, e.Answer, e.Expected)
}

// Channel is the transaction channel shared by every peripheral on a hub.
// Implementations serialize access: at most one command is in flight, and
// LastAnswer refers to the most recent completed transaction only.
type Channel interface {
	// Command sends a command and returns the framed answer.
	Command(cmd string) (string, error)

	// CommandMultiLine sends a command and drains a multi-line answer,
	// returning the lines joined by carriage returns.
	CommandMultiLine(cmd string) (string, error)

	// QueryVerify sends a command and verifies the answer starts with
	// prefix, returning a *ProtocolError on mismatch.
	QueryVerify(cmd, prefix string) (string, error)

	// QueryVerifyDelay is QueryVerify followed by a fixed settle delay
	// before the channel accepts the next command.
	QueryVerifyDelay(cmd, prefix string, delay time.Duration) (string, error)

	// LastAnswer returns the answer captured by the most recent command.
	// It is valid only until the next command is issued.
	LastAnswer() string

	// Close releases the underlying connection.
	Close() error
}

// Verify checks that answer begins with prefix and wraps a mismatch in a
// *ProtocolError. It is shared by every Channel implementation.
func Verify(cmd, prefix, answer string) error {
	if len(answer) < len(prefix) || answer[:len(prefix)] != prefix {
		return &ProtocolError{Command: cmd, Expected: prefix, Answer: answer}
	}
	return nil
}
