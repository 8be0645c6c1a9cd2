package gen

import (
	"math"
	"math/rand"
	"testing"

	"golang.org/x/xerrors"

	"github.com/bemasher/softsync/crc"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

func TestBipolar(t *testing.T) {
	recv := Bipolar([]byte{0, 1, 1, 0})
	expt := []float32{1, -1, -1, 1}
	for idx := range expt {
		if recv[idx] != expt[idx] {
			t.Fatalf("Expected %v got %v\n", expt, recv)
		}
	}
}

func TestSyncSymbols(t *testing.T) {
	recv, err := SyncSymbols("1ACFFC1D")
	if err != nil {
		t.Fatalf("%+v\n", err)
	}

	// 0x1A => +++- -+-+
	expt := []float32{1, 1, 1, -1, -1, 1, -1, 1}
	for idx := range expt {
		if recv[idx] != expt[idx] {
			t.Fatalf("Expected %v got %v\n", expt, recv[:8])
		}
	}

	if _, err := SyncSymbols("1AC"); err == nil {
		t.Fatalf("Expected error for odd length syncword\n")
	}
}

func TestGenerate(t *testing.T) {
	fs := FrameStream{
		Syncword:   "1ACFFC1D",
		PayloadLen: 223,
		Frames:     7,
		Prefix:     42,
		Suffix:     15,
		SNR:        math.Inf(1),
		Flip:       true,
	}

	g, err := fs.Generate(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("%+v\n", err)
	}

	if l := len(g.Samples); l != 42+7*255+15 {
		t.Fatalf("Expected %d samples got %d\n", 42+7*255+15, l)
	}

	sync, _ := SyncSymbols(fs.Syncword)
	for i, start := range g.Starts {
		if start != uint64(42+i*255) {
			t.Fatalf("Frame %d: expected start %d got %d\n", i, 42+i*255, start)
		}
		for idx, s := range sync {
			if g.Samples[int(start)+idx] != -s {
				t.Fatalf("Frame %d: syncword symbol %d not inverted\n", i, idx)
			}
		}
	}
}

func TestFlipAt(t *testing.T) {
	samples := []float32{1, 1, 1, 1, 1}
	FlipAt(samples, 1, 3)

	expt := []float32{1, -1, -1, 1, 1}
	for idx := range expt {
		if samples[idx] != expt[idx] {
			t.Fatalf("Expected %v got %v\n", expt, samples)
		}
	}
}

func TestFECF(t *testing.T) {
	fs := FrameStream{
		Syncword:   "1ACFFC1D",
		PayloadLen: 64,
		Frames:     3,
		SNR:        math.Inf(1),
		FECF:       true,
	}

	g, err := fs.Generate(rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("%+v\n", err)
	}
	for idx, bits := range g.Payloads {
		if !crc.CCITT.Verify(scramble.PackBits(bits)) {
			t.Fatalf("Frame %d: invalid frame error control field\n", idx)
		}
	}

	fs.PayloadLen = 63
	if _, err := fs.Generate(rand.New(rand.NewSource(1))); !xerrors.Is(err, stream.ErrConfig) {
		t.Fatalf("Expected config error got %+v\n", err)
	}
}
