package log

import (
	"bufio"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends traffic events to a CBOR log file. Opening an existing
// file continues it, so one file can hold several sessions back to back;
// the per-port session ID on each event keeps them separable on read.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *cbor.Encoder
	closed bool
}

// NewFileLogger opens (or creates, mode 0644) the log file at path for
// appending.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		file: f,
		buf:  buf,
		enc:  newEncoder(buf),
	}, nil
}

// Log appends one event. Write failures are swallowed: the log is a
// diagnostic aid and must never abort the serial transaction that emitted
// the event. Events arriving after Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.enc.Encode(event)
}

// Close flushes buffered events and closes the file. Closing twice is
// harmless.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	ferr := l.buf.Flush()
	if cerr := l.file.Close(); ferr == nil {
		ferr = cerr
	}
	return ferr
}

var _ Logger = (*FileLogger)(nil)
