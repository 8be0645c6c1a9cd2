package scramble

import (
	"bytes"
	"math/rand"
	"testing"
	"testing/quick"

	"golang.org/x/xerrors"

	"github.com/bemasher/softsync/stream"
)

func mustSequence(t *testing.T, seq []byte) Sequence {
	t.Helper()
	s, err := NewSequence(seq)
	if err != nil {
		t.Fatalf("%+v\n", err)
	}
	return s
}

func randFloats(rnd *rand.Rand, n int) []float32 {
	data := make([]float32, n)
	for idx := range data {
		data[idx] = rnd.Float32()
	}
	return data
}

func equal(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for idx := range a {
		if a[idx] != b[idx] {
			return false
		}
	}
	return true
}

func TestEmptySequence(t *testing.T) {
	for _, seq := range [][]byte{nil, {}} {
		_, err := NewSequence(seq)
		if !xerrors.Is(err, stream.ErrConfig) {
			t.Fatalf("Expected config error, got %+v\n", err)
		}
	}
}

func TestZeroSequence(t *testing.T) {
	var seq Sequence

	soft := []float32{1, -1, 0.5, -0.25}
	if out := Soft(seq, soft); !equal(out, soft) {
		t.Fatalf("Expected %v got %v\n", soft, out)
	}

	bits := []byte{0, 1, 1, 0}
	if out := Bits(seq, bits); !bytes.Equal(out, bits) {
		t.Fatalf("Expected %v got %v\n", bits, out)
	}

	packed := []byte{0xA5, 0x3C}
	if out := Bytes(seq, packed); !bytes.Equal(out, packed) {
		t.Fatalf("Expected %X got %X\n", packed, out)
	}

	if seq.Bit(5) != 0 || seq.Len() != 0 {
		t.Fatalf("Expected empty sequence got %s\n", seq)
	}
}

func TestZeros(t *testing.T) {
	data := randFloats(rand.New(rand.NewSource(1)), 256)
	recv := Soft(mustSequence(t, bytes.Repeat([]byte{0x00}, 32)), data)
	if !equal(recv, data) {
		t.Fatalf("Expected %v got %v\n", data, recv)
	}
}

func TestOnes(t *testing.T) {
	data := randFloats(rand.New(rand.NewSource(2)), 256)
	recv := Soft(mustSequence(t, bytes.Repeat([]byte{0xFF}, 32)), data)
	for idx := range data {
		if recv[idx] != -data[idx] {
			t.Fatalf("Sample %d: expected %f got %f\n", idx, -data[idx], recv[idx])
		}
	}
}

func TestBitOrder(t *testing.T) {
	data := []float32{
		1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3,
		-1.0, -0.9, -0.8, -0.7, -0.6, -0.5, -0.4, -0.3,
	}

	testCases := []struct {
		seq  []byte
		expt []float32
	}{
		{
			[]byte{0x01, 0x00},
			[]float32{
				1.0, 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, -0.3,
				-1.0, -0.9, -0.8, -0.7, -0.6, -0.5, -0.4, -0.3,
			},
		},
		{
			[]byte{0xF0, 0x0F},
			[]float32{
				-1.0, -0.9, -0.8, -0.7, 0.6, 0.5, 0.4, 0.3,
				-1.0, -0.9, -0.8, -0.7, 0.6, 0.5, 0.4, 0.3,
			},
		},
	}

	for _, tc := range testCases {
		recv := Soft(mustSequence(t, tc.seq), data)
		if !equal(recv, tc.expt) {
			t.Fatalf("Sequence %02X: expected %v got %v\n", tc.seq, tc.expt, recv)
		}
	}
}

func TestCyclic(t *testing.T) {
	s := mustSequence(t, []byte{0x80})
	recv := Soft(s, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	expt := []float64{-1, 1, 1, 1, 1, 1, 1, 1, -1, 1, 1}
	for idx := range expt {
		if recv[idx] != expt[idx] {
			t.Fatalf("Expected %v got %v\n", expt, recv)
		}
	}
}

func TestInvolution(t *testing.T) {
	err := quick.Check(func(seq []byte, payload []float32) bool {
		if len(seq) == 0 {
			seq = []byte{0xA5}
		}
		s, err := NewSequence(seq)
		if err != nil {
			return false
		}
		return equal(Soft(s, Soft(s, payload)), payload)
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocality(t *testing.T) {
	err := quick.Check(func(seq []byte, payload []float32, k uint16) bool {
		if len(seq) == 0 {
			seq = []byte{0x3C}
		}
		nbits := len(seq) << 3
		bit := int(k) % nbits

		flipped := make([]byte, len(seq))
		copy(flipped, seq)
		flipped[bit>>3] ^= 0x80 >> uint(bit&7)

		a := Soft(mustSequence(t, seq), payload)
		b := Soft(mustSequence(t, flipped), payload)

		for idx := range payload {
			// Negating zero is indistinguishable from passing it through.
			expected := idx%nbits == bit && payload[idx] != 0
			if (a[idx] != b[idx]) != expected {
				return false
			}
		}
		return true
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
}

func TestHardMatchesSoft(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))

	seq := make([]byte, 5)
	rnd.Read(seq)
	s := mustSequence(t, seq)

	packed := make([]byte, 17)
	rnd.Read(packed)
	bits := UnpackBits(packed)

	// Soft convention: bit 0 is +1, bit 1 is -1.
	soft := make([]float32, len(bits))
	for idx, b := range bits {
		soft[idx] = 1 - 2*float32(b)
	}

	softOut := Soft(s, soft)
	bitsOut := Bits(s, bits)
	bytesOut := Bytes(s, packed)

	if !bytes.Equal(PackBits(bitsOut), bytesOut) {
		t.Fatalf("Bits and Bytes disagree: %02X != %02X\n", PackBits(bitsOut), bytesOut)
	}

	for idx, b := range bitsOut {
		if (softOut[idx] < 0) != (b == 1) {
			t.Fatalf("Bit %d: soft %f disagrees with hard %d\n", idx, softOut[idx], b)
		}
	}
}

func TestPackBits(t *testing.T) {
	data := []byte{0xF9, 0x53, 0x01}
	if recv := PackBits(UnpackBits(data)); !bytes.Equal(recv, data) {
		t.Fatalf("Expected %02X got %02X\n", data, recv)
	}
}

func TestCCSDS(t *testing.T) {
	recv := CCSDS(4)
	expt := []byte{0xFF, 0x48, 0x0E, 0xC0}
	if !bytes.Equal(recv, expt) {
		t.Fatalf("Expected %02X got %02X\n", expt, recv)
	}

	// Period is 255 bits.
	bits := UnpackBits(CCSDS(64))
	for idx := 0; idx+255 < len(bits); idx++ {
		if bits[idx] != bits[idx+255] {
			t.Fatalf("Sequence not periodic at bit %d\n", idx)
		}
	}
}

func BenchmarkSoft(b *testing.B) {
	s, _ := NewSequence(CCSDS(255))
	payload := randFloats(rand.New(rand.NewSource(4)), 2048)

	b.SetBytes(int64(len(payload) * 4))
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		SoftInPlace(s, payload)
	}
}
