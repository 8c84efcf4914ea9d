package prop

import (
	"strconv"
	"time"

	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// Binding holds the wire details of one bound property: the query and set
// command templates, the expected answer shapes, and the conversions between
// external and wire values. The FloatGet/FloatSet family turns a Binding
// into Handler functions for the common property shapes; anything bespoke
// is written as a plain Handler instead.
type Binding struct {
	// Q issues the verified round-trips.
	Q Querier

	// Query is the full query command, e.g. "2S X?".
	Query string

	// QueryAck is the expected answer prefix for the query. Empty means
	// the plain ":A" acknowledgment.
	QueryAck string

	// Set is the set command up to and including '=' ; the formatted wire
	// value is appended, e.g. "2S X=" becomes "2S X=7.5".
	Set string

	// SetAck is the expected answer prefix for the set. Empty means ":A".
	SetAck string

	// Factor converts external values to wire units: wire = external *
	// Factor. Zero means 1 (no conversion).
	Factor float64

	// Pos selects fixed-offset answer parsing starting at this character.
	// Negative (the zero value via NewBinding) selects key=value parsing
	// after the first '='.
	Pos int

	// Mask confines the property to a slice of a shared register. A
	// non-zero mask makes enum writes read-modify-write and enum reads
	// mask the answer before decoding.
	Mask int64

	// Delay is a settle time the controller needs after the set command.
	Delay time.Duration
}

const defaultAck = ":A"

// NewBinding returns a Binding with key=value answer parsing selected.
func NewBinding(q Querier) *Binding {
	return &Binding{Q: q, Pos: -1}
}

func (b *Binding) factor() float64 {
	if b.Factor == 0 {
		return 1
	}
	return b.Factor
}

func (b *Binding) queryAck() string {
	if b.QueryAck == "" {
		return defaultAck
	}
	return b.QueryAck
}

func (b *Binding) setAck() string {
	if b.SetAck == "" {
		return defaultAck
	}
	return b.SetAck
}

func (b *Binding) readFloat() (float64, error) {
	answer, err := b.Q.QueryVerify(b.Query, b.queryAck())
	if err != nil {
		return 0, err
	}
	if b.Pos >= 0 {
		return reply.FloatAfterPosition(answer, b.Pos)
	}
	return reply.FloatAfterEquals(answer)
}

func (b *Binding) readInt() (int64, error) {
	answer, err := b.Q.QueryVerify(b.Query, b.queryAck())
	if err != nil {
		return 0, err
	}
	if b.Pos >= 0 {
		return reply.IntAfterPosition(answer, b.Pos)
	}
	return reply.IntAfterEquals(answer)
}

func (b *Binding) write(wire string) error {
	if b.Delay > 0 {
		_, err := b.Q.QueryVerifyDelay(b.Set+wire, b.setAck(), b.Delay)
		return err
	}
	_, err := b.Q.QueryVerify(b.Set+wire, b.setAck())
	return err
}

// FloatGet returns a read handler that queries, converts from wire units,
// and stores the result.
func (b *Binding) FloatGet() Handler {
	return func(p *Property) error {
		v, err := b.readFloat()
		if err != nil {
			return err
		}
		return p.StoreFloat(v / b.factor())
	}
}

// FloatSet returns a write handler that converts the cached value to wire
// units and issues the set command.
func (b *Binding) FloatSet() Handler {
	return func(p *Property) error {
		v, err := p.Float()
		if err != nil {
			return err
		}
		return b.write(FormatFloat(v * b.factor()))
	}
}

// IntGet returns a read handler for integer properties.
func (b *Binding) IntGet() Handler {
	return func(p *Property) error {
		v, err := b.readInt()
		if err != nil {
			return err
		}
		return p.StoreInt(v)
	}
}

// IntSet returns a write handler for integer properties.
func (b *Binding) IntSet() Handler {
	return func(p *Property) error {
		v, err := p.Int()
		if err != nil {
			return err
		}
		return b.write(strconv.FormatInt(v, 10))
	}
}

// EnumGet returns a read handler that queries the wire code and decodes it
// through the property's enum table. With a mask set, only the masked bits
// of the answer are decoded. Unknown codes follow the property's tolerance
// policy.
func (b *Binding) EnumGet() Handler {
	return func(p *Property) error {
		v, err := b.readInt()
		if err != nil {
			return err
		}
		if b.Mask != 0 {
			v &= b.Mask
		}
		return p.StoreCode(v)
	}
}

// EnumSet returns a write handler that encodes the cached value through the
// enum table and issues the set command. With a mask set, the write becomes
// read-modify-write: the current register is queried, the masked bits
// replaced, and the full register written back, leaving sibling bits
// untouched.
func (b *Binding) EnumSet() Handler {
	return func(p *Property) error {
		code, err := p.Code()
		if err != nil {
			return err
		}
		if b.Mask == 0 {
			return b.write(strconv.FormatInt(code, 10))
		}
		current, err := b.readInt()
		if err != nil {
			return err
		}
		merged := (current &^ b.Mask) | (code & b.Mask)
		return b.write(strconv.FormatInt(merged, 10))
	}
}

// ReadModifyWrite queries a register, replaces its masked bits with value,
// and writes the result back. Standalone form of the masked EnumSet path
// for handlers that manage a register outside the binding machinery.
func ReadModifyWrite(q Querier, query, ack, set string, mask, value int64) error {
	answer, err := q.QueryVerify(query, ack)
	if err != nil {
		return err
	}
	current, err := reply.IntAfterEquals(answer)
	if err != nil {
		return err
	}
	merged := (current &^ mask) | (value & mask)
	_, err = q.QueryVerify(set+strconv.FormatInt(merged, 10), ack)
	return err
}
