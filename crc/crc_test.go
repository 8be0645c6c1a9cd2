package crc

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

const (
	Trials = 512
)

var crcs = []CRC{
	NewCRC("IBM", 0, 0x8005, 0),
	NewCRC("BCH", 0, 0x6F63, 0),
	CCITT,
}

func TestIdentity(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, crc := range crcs {
		t.Logf("%+v\n", crc)
		for trial := 0; trial < Trials; trial++ {
			length := rnd.Intn(32)&0xFE + 8

			buf := make([]byte, length)
			rnd.Read(buf[:length-2])

			intermediate := crc.Checksum(buf[:length-2])
			binary.BigEndian.PutUint16(buf[length-2:], intermediate)

			check := crc.Checksum(buf)
			if check != 0 {
				t.Fatalf("%s failed: %02X %04X %04X\n", crc.Name, buf, intermediate, check)
			}
		}
	}
}

func TestCheckValue(t *testing.T) {
	if sum := CCITT.Checksum([]byte("123456789")); sum != 0x29B1 {
		t.Fatalf("Expected 0x29B1 got 0x%04X\n", sum)
	}
}

func TestVerify(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	data := make([]byte, 221)
	rnd.Read(data)

	frame := CCITT.Append(data)
	if len(frame) != len(data)+2 {
		t.Fatalf("Expected %d bytes got %d\n", len(data)+2, len(frame))
	}
	if !CCITT.Verify(frame) {
		t.Fatalf("Valid frame failed verification\n")
	}

	frame[17] ^= 0x04
	if CCITT.Verify(frame) {
		t.Fatalf("Corrupted frame passed verification\n")
	}

	if CCITT.Verify([]byte{0x00}) {
		t.Fatalf("Short frame passed verification\n")
	}
}
