package shape

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/geom"
)

// EntrySize is the encoded size of a TransformEntry.
const EntrySize = 40

// ErrShortEntry is returned when a buffer is not a whole number of entries.
var ErrShortEntry = errors.New("short transform entry")

// TransformEntry pairs an element id with a transform that was applied to
// it. It is the unit the renderer hands back to the host after a transform;
// replaying a shape's entries in order rebuilds its geometry.
//
// Encoded layout, all little endian:
//
//	0..16   id as four uint32 words, word i holding id bytes 4i..4i+4 big endian
//	16..40  a b c d e f as float32
type TransformEntry struct {
	ID        uuid.UUID
	Transform geom.Matrix2D
}

// AppendBinary appends the encoded entry to b.
func (e TransformEntry) AppendBinary(b []byte) ([]byte, error) {
	for i := 0; i < 16; i += 4 {
		b = binary.LittleEndian.AppendUint32(b, binary.BigEndian.Uint32(e.ID[i:i+4]))
	}
	for _, v := range e.Transform {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return b, nil
}

// MarshalBinary encodes the entry into EntrySize bytes.
func (e TransformEntry) MarshalBinary() ([]byte, error) {
	return e.AppendBinary(make([]byte, 0, EntrySize))
}

// UnmarshalBinary decodes exactly EntrySize bytes.
func (e *TransformEntry) UnmarshalBinary(data []byte) error {
	if len(data) != EntrySize {
		return fmt.Errorf("decode transform entry: %d bytes: %w", len(data), ErrShortEntry)
	}
	for i := 0; i < 16; i += 4 {
		binary.BigEndian.PutUint32(e.ID[i:i+4], binary.LittleEndian.Uint32(data[i:i+4]))
	}
	for i := range e.Transform {
		off := 16 + 4*i
		e.Transform[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4])))
	}
	return nil
}

// EncodeEntries concatenates the encoded entries.
func EncodeEntries(entries []TransformEntry) []byte {
	buf := make([]byte, 0, len(entries)*EntrySize)
	for _, e := range entries {
		buf, _ = e.AppendBinary(buf)
	}
	return buf
}

// DecodeEntries splits buf into entries.
func DecodeEntries(buf []byte) ([]TransformEntry, error) {
	if len(buf)%EntrySize != 0 {
		return nil, fmt.Errorf("decode transform entries: %d bytes: %w", len(buf), ErrShortEntry)
	}
	out := make([]TransformEntry, len(buf)/EntrySize)
	for i := range out {
		if err := out[i].UnmarshalBinary(buf[i*EntrySize : (i+1)*EntrySize]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
