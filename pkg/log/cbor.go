package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Traffic logs are a stream of bare CBOR maps with integer keys, one per
// event, appended as they happen. Canonical encoding keeps the stream
// byte-stable so two captures of the same session can be compared with
// plain file tools, and RFC3339Nano timestamps preserve the command/answer
// latency the Elapsed field is derived from.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	m, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("traffic log encoder mode: %v", err))
	}
	return m
}

// Decoding is deliberately looser than encoding: a log written by a newer
// build may carry keys this build does not know, and a torn final record
// must not poison the rest of the file.
func mustDecMode() cbor.DecMode {
	m, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("traffic log decoder mode: %v", err))
	}
	return m
}

// EncodeEvent encodes one event to its on-disk CBOR form.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes one event from its on-disk CBOR form.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
