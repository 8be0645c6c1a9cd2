package scramble

// CCSDS returns the first n bytes of the CCSDS TM pseudo-randomizer output,
// h(x) = x^8 + x^7 + x^5 + x^3 + 1 seeded with all ones. The sequence has a
// period of 255 bits and begins FF 48 0E C0.
func CCSDS(n int) []byte {
	seq := make([]byte, n)

	// Fibonacci form: a[k+8] = a[k+7] ^ a[k+5] ^ a[k+3] ^ a[k], where bit 7
	// of state is the oldest bit.
	state := byte(0xFF)
	for idx := range seq {
		var out byte
		for bit := 0; bit < 8; bit++ {
			b := state >> 7
			out = (out << 1) | b

			feedback := (state>>7 ^ state>>4 ^ state>>2 ^ state) & 0x01
			state = state<<1 | feedback
		}
		seq[idx] = out
	}

	return seq
}
