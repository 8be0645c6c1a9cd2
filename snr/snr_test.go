package snr

import (
	"math"
	"math/rand"
	"testing"
)

func TestNoiseFree(t *testing.T) {
	symbols := []float32{1, -1, 1, 1, -1, -1, 1, -1}
	if l := Linear(symbols); !math.IsInf(l, 1) {
		t.Fatalf("Expected +Inf got %f\n", l)
	}
}

func TestEmpty(t *testing.T) {
	if l := Linear(nil); l != 0 {
		t.Fatalf("Expected 0 got %f\n", l)
	}
}

func TestEstimate(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for _, snrDB := range []float64{0, 5, 10} {
		noiseStd := math.Sqrt(math.Pow(10, -snrDB/10))

		symbols := make([]float32, 1<<16)
		for idx := range symbols {
			bit := float64(rnd.Intn(2)*2 - 1)
			symbols[idx] = float32(bit + rnd.NormFloat64()*noiseStd)
		}

		est := DB(Linear(symbols))
		if math.Abs(est-snrDB) > 1.0 {
			t.Fatalf("Expected %0.1f dB got %0.2f dB\n", snrDB, est)
		}
	}
}

func TestLogCosh(t *testing.T) {
	for _, a := range []float64{-3, -0.5, 0, 0.25, 2, 10} {
		expected := math.Log(math.Cosh(a))
		if got := LogCosh(a); math.Abs(got-expected) > 1e-9 {
			t.Fatalf("LogCosh(%f): expected %f got %f\n", a, expected, got)
		}
	}

	if got := LogCosh(1e4); math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("LogCosh overflowed: %f\n", got)
	}
}

func TestCorrection(t *testing.T) {
	if c := Correction(0.8, 0); c != 0 {
		t.Fatalf("Expected 0 got %f\n", c)
	}
	if c := Correction(-0.8, math.Inf(1)); c != 0.8 {
		t.Fatalf("Expected 0.8 got %f\n", c)
	}
}
