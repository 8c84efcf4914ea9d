// Package serial implements the transaction channel to a Tiger controller.
//
// A Tiger hub multiplexes every peripheral card over one byte stream, so the
// channel enforces a strict request/response discipline: exactly one command
// is in flight at any time, and the answer to that command is captured in a
// "last answer" buffer that stays valid until the next command is issued.
//
// # Framing
//
// Commands are ASCII lines terminated by a carriage return. Answers arrive
// terminated by CR/LF and begin with a status token:
//
//	:A ...    acknowledged, optionally followed by axis=value pairs
//	:N-<n>    controller error number n
//
// Multi-line answers (the BU X build report) are drained with
// CommandMultiLine, which keeps reading until the port goes quiet.
//
// # Verification
//
// QueryVerify sends a command and checks that the answer starts with an
// expected prefix; a mismatch produces a *ProtocolError carrying the raw
// answer for diagnostics. An optional settle delay covers commands such as
// SS (save settings) that need time before the next command is safe.
package serial
