// Package snr estimates the signal to noise ratio of BPSK soft symbols.
package snr

import "math"

// FromMoments computes the M2M4 estimate of linear SNR given the second and
// fourth moments of a block of BPSK symbols. Returns +Inf for noise-free
// input and 0 when the estimate degenerates.
func FromMoments(m2, m4 float64) float64 {
	radicand := 6*m2*m2 - 2*m4

	var s float64
	if radicand > 0 {
		s = 0.5 * math.Sqrt(radicand)
	}

	n := m2 - s
	if n <= 0 {
		if s > 0 {
			return math.Inf(1)
		}
		return 0
	}

	return s / n
}

// Linear estimates the SNR of a block of symbols.
func Linear(symbols []float32) float64 {
	if len(symbols) == 0 {
		return 0
	}

	var sum2, sum4 float64
	for _, v := range symbols {
		sq := float64(v) * float64(v)
		sum2 += sq
		sum4 += sq * sq
	}

	n := float64(len(symbols))
	return FromMoments(sum2/n, sum4/n)
}

// DB converts a linear ratio to decibels.
func DB(linear float64) float64 {
	return 10 * math.Log10(linear)
}

// Correction is the Massey correction term ln(cosh(x*snr))/snr subtracted
// from a correlation to form the frame sync score.
func Correction(x, snr float64) float64 {
	switch {
	case snr == 0:
		return 0
	case math.IsInf(snr, 1):
		return math.Abs(x)
	}

	return LogCosh(x*snr) / snr
}

// LogCosh computes ln(cosh(a)) without overflowing for large |a|.
func LogCosh(a float64) float64 {
	a = math.Abs(a)
	return a + math.Log1p(math.Exp(-2*a)) - math.Ln2
}
