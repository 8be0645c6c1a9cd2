// Package gen synthesizes soft symbol streams for exercising frame sync.
package gen

import (
	"encoding/hex"
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/bemasher/softsync/crc"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

// Bipolar maps bits to soft symbols, 0 to +1 and 1 to -1.
func Bipolar(bits []byte) []float32 {
	symbols := make([]float32, len(bits))
	for idx, b := range bits {
		symbols[idx] = 1 - 2*float32(b&0x01)
	}
	return symbols
}

// SyncSymbols converts a hex syncword to bipolar symbols.
func SyncSymbols(syncword string) ([]float32, error) {
	raw, err := hex.DecodeString(syncword)
	if err != nil {
		return nil, errors.Wrapf(stream.ErrConfig, "syncword %q: %s", syncword, err)
	}
	return Bipolar(scramble.UnpackBits(raw)), nil
}

func RandomBits(rnd *rand.Rand, n int) []byte {
	bits := make([]byte, n)
	for idx := range bits {
		bits[idx] = byte(rnd.Intn(2))
	}
	return bits
}

// NoiseStd is the standard deviation of AWGN giving snrDB against unit
// amplitude symbols.
func NoiseStd(snrDB float64) float64 {
	return math.Sqrt(math.Pow(10, -snrDB/10))
}

// FrameStream describes a stream of the form
// prefix + Frames*(syncword+payload) + suffix.
type FrameStream struct {
	Syncword   string
	PayloadLen int
	Frames     int
	Prefix     int
	Suffix     int

	// SNR in dB, +Inf for noise-free output.
	SNR float64

	// Invert the polarity of the whole stream.
	Flip bool

	// Scrambling sequence applied to payloads, nil for none.
	Sequence []byte

	// End each payload with a CRC-16 frame error control field. PayloadLen
	// must be a multiple of 8 of at least 24 bits.
	FECF bool
}

// Generated holds a synthesized stream and what went into it.
type Generated struct {
	Samples []float32

	// Offsets of the first syncword symbol of each frame.
	Starts []uint64

	// Noise-free payload bits of each frame before scrambling.
	Payloads [][]byte
}

func (fs FrameStream) FrameLen(syncLen int) int {
	return syncLen + fs.PayloadLen
}

// Generate builds the stream using rnd for payload bits and noise.
func (fs FrameStream) Generate(rnd *rand.Rand) (g Generated, err error) {
	sync, err := SyncSymbols(fs.Syncword)
	if err != nil {
		return g, err
	}

	var seq scramble.Sequence
	if fs.Sequence != nil {
		if seq, err = scramble.NewSequence(fs.Sequence); err != nil {
			return g, err
		}
	}

	if fs.FECF && (fs.PayloadLen%8 != 0 || fs.PayloadLen < 24) {
		return g, errors.Wrapf(stream.ErrConfig, "payload of %d bits can not carry a frame error control field", fs.PayloadLen)
	}

	g.Samples = append(g.Samples, Bipolar(RandomBits(rnd, fs.Prefix))...)

	for i := 0; i < fs.Frames; i++ {
		g.Starts = append(g.Starts, uint64(len(g.Samples)))

		bits := RandomBits(rnd, fs.PayloadLen)
		if fs.FECF {
			data := scramble.PackBits(bits[:fs.PayloadLen-16])
			bits = scramble.UnpackBits(crc.CCITT.Append(data))
		}
		g.Payloads = append(g.Payloads, bits)

		if fs.Sequence != nil {
			bits = scramble.Bits(seq, bits)
		}

		g.Samples = append(g.Samples, sync...)
		g.Samples = append(g.Samples, Bipolar(bits)...)
	}

	g.Samples = append(g.Samples, Bipolar(RandomBits(rnd, fs.Suffix))...)

	if fs.Flip {
		for idx := range g.Samples {
			g.Samples[idx] = -g.Samples[idx]
		}
	}

	if !math.IsInf(fs.SNR, 1) {
		AddNoise(rnd, g.Samples, NoiseStd(fs.SNR))
	}

	return g, nil
}

// AddNoise adds white gaussian noise of standard deviation std.
func AddNoise(rnd *rand.Rand, samples []float32, std float64) {
	for idx := range samples {
		samples[idx] += float32(rnd.NormFloat64() * std)
	}
}

// FlipAt inverts polarity at each offset, toggling from that sample onward.
// Models a carrier recovery loop slipping by 180 degrees.
func FlipAt(samples []float32, offsets ...uint64) {
	for _, offset := range offsets {
		for idx := offset; idx < uint64(len(samples)); idx++ {
			samples[idx] = -samples[idx]
		}
	}
}
