// Package scramble removes pseudo-random scrambling from frame payloads.
//
// A Sequence is a byte string read bit by bit, most significant bit first,
// and repeated cyclically over the payload. Sample i is inverted when bit
// (i mod bits) of the sequence is 1.
package scramble

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/bemasher/softsync/stream"
)

// A Sequence holds the unpacked bits of a scrambling sequence. Immutable.
// The zero value is the empty sequence, which descrambles nothing.
type Sequence struct {
	raw  []byte
	bits []byte
}

// NewSequence unpacks seq into bits. The sequence must not be empty.
func NewSequence(seq []byte) (Sequence, error) {
	if len(seq) == 0 {
		return Sequence{}, errors.Wrap(stream.ErrConfig, "scrambling sequence can not be empty")
	}

	raw := make([]byte, len(seq))
	copy(raw, seq)

	return Sequence{raw: raw, bits: UnpackBits(raw)}, nil
}

// Len is the number of bits in one period of the sequence.
func (s Sequence) Len() int {
	return len(s.bits)
}

// Bit returns bit i of the cyclic sequence.
func (s Sequence) Bit(i int) byte {
	if len(s.bits) == 0 {
		return 0
	}
	return s.bits[i%len(s.bits)]
}

func (s Sequence) Bytes() []byte {
	raw := make([]byte, len(s.raw))
	copy(raw, s.raw)
	return raw
}

func (s Sequence) String() string {
	return fmt.Sprintf("{Bytes:%d Bits:%d Head:%02X}", len(s.raw), len(s.bits), s.raw[:min(len(s.raw), 4)])
}

// Soft returns a descrambled copy of payload.
func Soft[F constraints.Float](s Sequence, payload []F) []F {
	out := make([]F, len(payload))
	copy(out, payload)
	SoftInPlace(s, out)
	return out
}

// SoftInPlace descrambles payload without allocating.
func SoftInPlace[F constraints.Float](s Sequence, payload []F) {
	n := len(s.bits)
	if n == 0 {
		return
	}
	for i := range payload {
		if s.bits[i%n] == 1 {
			payload[i] = -payload[i]
		}
	}
}

// Bits descrambles hard decisions stored one bit per byte.
func Bits(s Sequence, bits []byte) []byte {
	out := make([]byte, len(bits))
	n := len(s.bits)
	if n == 0 {
		copy(out, bits)
		return out
	}
	for i, b := range bits {
		out[i] = b ^ s.bits[i%n]
	}
	return out
}

// Bytes descrambles hard decisions packed eight per byte, most significant
// bit first, using the same bit addressing as Soft.
func Bytes(s Sequence, packed []byte) []byte {
	out := make([]byte, len(packed))
	n := len(s.bits)
	if n == 0 {
		copy(out, packed)
		return out
	}
	for idx, b := range packed {
		var mask byte
		offset := idx << 3
		for bit := 0; bit < 8; bit++ {
			mask = (mask << 1) | s.bits[(offset+bit)%n]
		}
		out[idx] = b ^ mask
	}
	return out
}

// UnpackBits expands each byte into eight bytes holding one bit each, most
// significant bit first.
func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

// PackBits is the inverse of UnpackBits. Trailing bits are zero padded.
func PackBits(bits []byte) []byte {
	packed := make([]byte, (len(bits)+7)>>3)
	for idx, b := range bits {
		packed[idx>>3] |= (b & 0x01) << uint(7-idx&7)
	}
	return packed
}
