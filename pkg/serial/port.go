package serial

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	goserial "github.com/goburrow/serial"
	"github.com/google/uuid"

	"github.com/asi-tiger/tiger-go/pkg/log"
)

// Default port parameters for Tiger controllers.
const (
	DefaultBaudRate = 115200
	DefaultTimeout  = 500 * time.Millisecond
)

// Config configures a serial port channel.
type Config struct {
	// Address is the serial device path (e.g. /dev/ttyUSB0, COM3).
	Address string

	// BaudRate is the line speed (default 115200).
	BaudRate int

	// Timeout is the per-read timeout (default 500ms).
	Timeout time.Duration

	// Logger receives traffic events. Nil disables logging.
	Logger log.Logger
}

// Port is a Channel over a physical serial connection.
// A mutex serializes transactions so callers on different goroutines
// cannot interleave commands mid-round-trip.
type Port struct {
	mu        sync.Mutex
	conn      goserial.Port
	reader    *bufio.Reader
	address   string
	sessionID string
	logger    log.Logger
	last      string
	closed    bool
}

// Open opens a serial port channel with the given configuration.
func Open(cfg Config) (*Port, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}

	conn, err := goserial.Open(&goserial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Address, err)
	}

	p := &Port{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		address:   cfg.Address,
		sessionID: uuid.NewString(),
		logger:    cfg.Logger,
	}
	p.logger.Log(log.StateEvent(p.sessionID, p.address, "", "OPEN", ""))
	return p, nil
}

// SessionID returns the identifier assigned to this connection, used to
// correlate traffic log events.
func (p *Port) SessionID() string {
	return p.sessionID
}

// Command sends cmd and returns the single-line answer.
func (p *Port) Command(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roundTrip(cmd, false)
}

// CommandMultiLine sends cmd and drains every answer line, joined by CR.
func (p *Port) CommandMultiLine(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roundTrip(cmd, true)
}

// QueryVerify sends cmd and verifies the answer starts with prefix.
func (p *Port) QueryVerify(cmd, prefix string) (string, error) {
	return p.QueryVerifyDelay(cmd, prefix, 0)
}

// QueryVerifyDelay is QueryVerify with a post-command settle delay held
// under the transaction lock, so no other command can slip in early.
func (p *Port) QueryVerifyDelay(cmd, prefix string, delay time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	answer, err := p.roundTrip(cmd, false)
	if err != nil {
		return "", err
	}
	if err := Verify(cmd, prefix, answer); err != nil {
		p.logger.Log(log.ErrorEvent(p.sessionID, p.address, cmd, err))
		return answer, err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return answer, nil
}

// LastAnswer returns the most recent captured answer.
func (p *Port) LastAnswer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close closes the underlying serial connection.
// It is safe to call Close multiple times.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.logger.Log(log.StateEvent(p.sessionID, p.address, "OPEN", "CLOSED", ""))
	return p.conn.Close()
}

// roundTrip performs one command/answer exchange. Callers hold p.mu.
func (p *Port) roundTrip(cmd string, multiLine bool) (string, error) {
	if p.closed {
		return "", ErrClosed
	}

	start := time.Now()
	p.logger.Log(log.CommandEvent(p.sessionID, p.address, cmd))

	if _, err := p.conn.Write([]byte(cmd + "\r")); err != nil {
		err = fmt.Errorf("write %q: %w", cmd, err)
		p.logger.Log(log.ErrorEvent(p.sessionID, p.address, cmd, err))
		return "", err
	}

	line, err := p.readLine()
	if err != nil {
		err = fmt.Errorf("read answer to %q: %w", cmd, err)
		p.logger.Log(log.ErrorEvent(p.sessionID, p.address, cmd, err))
		return "", err
	}

	if multiLine {
		// Keep draining until the controller goes quiet, i.e. until a
		// read times out. The build report is the only multi-line
		// answer and it arrives in one burst.
		lines := []string{line}
		for {
			extra, err := p.readLine()
			if err != nil {
				break
			}
			lines = append(lines, extra)
		}
		line = strings.Join(lines, "\r")
	}

	p.last = line
	p.logger.Log(log.AnswerEvent(p.sessionID, p.address, cmd, line, time.Since(start)))
	return line, nil
}

// readLine reads one CR/LF-terminated line and strips the framing.
func (p *Port) readLine() (string, error) {
	raw, err := p.reader.ReadString('\n')
	if err != nil {
		if raw == "" {
			return "", ErrTimeout
		}
		// Partial line with no terminator: surface what arrived.
		return strings.TrimRight(raw, "\r\n"), nil
	}
	return strings.TrimRight(raw, "\r\n"), nil
}

// Compile-time interface satisfaction check.
var _ Channel = (*Port)(nil)
