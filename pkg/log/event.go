package log

import (
	"time"
)

// Event represents one traffic log event. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the serial session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Port is the serial device path the session runs on.
	Port string `cbor:"3,keyasint,omitempty"`

	// Direction indicates traffic flow.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Command is the command string this event relates to.
	Command string `cbor:"6,keyasint,omitempty"`

	// Answer is the raw answer text (answer events only).
	Answer string `cbor:"7,keyasint,omitempty"`

	// Elapsed is the round-trip duration (answer events only).
	Elapsed time.Duration `cbor:"8,keyasint,omitempty"`

	// State carries connection state changes.
	State *StateChange `cbor:"9,keyasint,omitempty"`

	// Error carries failure details.
	Error *ErrorData `cbor:"10,keyasint,omitempty"`
}

// Direction indicates the direction of traffic flow.
type Direction uint8

const (
	// DirectionOut indicates a command sent to the controller.
	DirectionOut Direction = 0
	// DirectionIn indicates an answer received from the controller.
	DirectionIn Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command was written to the port.
	CategoryCommand Category = 0
	// CategoryAnswer indicates an answer was read from the port.
	CategoryAnswer Category = 1
	// CategoryState indicates a session state change.
	CategoryState Category = 2
	// CategoryError indicates a transport or protocol failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryAnswer:
		return "ANSWER"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChange captures session lifecycle events.
type StateChange struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorData captures transport and protocol failures.
type ErrorData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`
}

// CommandEvent builds the event recorded when a command is written.
func CommandEvent(sessionID, port, cmd string) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Port:      port,
		Direction: DirectionOut,
		Category:  CategoryCommand,
		Command:   cmd,
	}
}

// AnswerEvent builds the event recorded when an answer is read.
func AnswerEvent(sessionID, port, cmd, answer string, elapsed time.Duration) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Port:      port,
		Direction: DirectionIn,
		Category:  CategoryAnswer,
		Command:   cmd,
		Answer:    answer,
		Elapsed:   elapsed,
	}
}

// StateEvent builds a session state-change event.
func StateEvent(sessionID, port, oldState, newState, reason string) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Port:      port,
		Direction: DirectionOut,
		Category:  CategoryState,
		State: &StateChange{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// ErrorEvent builds a failure event for the given command.
func ErrorEvent(sessionID, port, cmd string, err error) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Port:      port,
		Direction: DirectionIn,
		Category:  CategoryError,
		Command:   cmd,
		Error:     &ErrorData{Message: err.Error()},
	}
}
