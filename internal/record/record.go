package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Size is the encoded length of a Record in bytes.
const Size = 12

var (
	// ErrShortBuffer is returned when fewer than Size bytes are available.
	ErrShortBuffer = errors.New("record: short buffer")

	// ErrTrailingBytes is returned when the input holds more than one record.
	ErrTrailingBytes = errors.New("record: trailing bytes after record")
)

var order = binary.LittleEndian

// Record is the persisted and transmitted state.
// Total is derived: after every successful transition Total == A + B (mod 2^32).
type Record struct {
	A     uint32 `json:"a" yaml:"a"`
	B     uint32 `json:"b" yaml:"b"`
	Total uint32 `json:"total" yaml:"total"`
}

// Sum returns A + B. Overflow wraps around.
func (r Record) Sum() uint32 {
	return r.A + r.B
}

// Recompute returns a copy of r with Total set to Sum().
func (r Record) Recompute() Record {
	r.Total = r.Sum()
	return r
}

// Consistent reports whether Total equals A + B.
func (r Record) Consistent() bool {
	return r.Total == r.Sum()
}

func (r Record) String() string {
	return fmt.Sprintf("{a:%d, b:%d, total:%d}", r.A, r.B, r.Total)
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (r Record) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint32(r.A, order); err != nil {
		return err
	}
	if err := enc.WriteUint32(r.B, order); err != nil {
		return err
	}
	return enc.WriteUint32(r.Total, order)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (r *Record) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if r.A, err = dec.ReadUint32(order); err != nil {
		return err
	}
	if r.B, err = dec.ReadUint32(order); err != nil {
		return err
	}
	r.Total, err = dec.ReadUint32(order)
	return err
}

// Encode returns the 12-byte encoding of r.
func Encode(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(Size)
	// Writes into a bytes.Buffer cannot fail.
	_ = r.MarshalWithEncoder(bin.NewBorshEncoder(&buf))
	return buf.Bytes()
}

// EncodeInto overwrites dst with the encoding of r.
// dst must be exactly Size bytes long; nothing is written otherwise.
func EncodeInto(dst []byte, r Record) error {
	if len(dst) < Size {
		return fmt.Errorf("encode into %d-byte buffer: %w", len(dst), ErrShortBuffer)
	}
	if len(dst) > Size {
		return fmt.Errorf("encode into %d-byte buffer: %w", len(dst), ErrTrailingBytes)
	}
	copy(dst, Encode(r))
	return nil
}

// Decode parses exactly one record from data.
func Decode(data []byte) (Record, error) {
	if len(data) < Size {
		return Record{}, fmt.Errorf("decode %d bytes: %w", len(data), ErrShortBuffer)
	}
	if len(data) > Size {
		return Record{}, fmt.Errorf("decode %d bytes: %w", len(data), ErrTrailingBytes)
	}

	var r Record
	dec := bin.NewBorshDecoder(data)
	if err := r.UnmarshalWithDecoder(dec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if dec.Remaining() != 0 {
		return Record{}, fmt.Errorf("decode record: %d bytes left: %w", dec.Remaining(), ErrTrailingBytes)
	}
	return r, nil
}
