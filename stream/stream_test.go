package stream

import (
	"math"
	"testing"
)

func TestValue(t *testing.T) {
	if v, ok := Float(-0.5).Float(); !ok || v != -0.5 {
		t.Fatalf("Expected -0.5 got %f, %v\n", v, ok)
	}
	if _, ok := String("x").Float(); ok {
		t.Fatalf("String value reported as number\n")
	}
	if s, ok := String("x").Str(); !ok || s != "x" {
		t.Fatalf("Expected \"x\" got %q, %v\n", s, ok)
	}
	if !Uint(3).IsNumber() || String("3").IsNumber() {
		t.Fatalf("IsNumber mismatch\n")
	}

	testCases := []struct {
		v  Value
		n  uint64
		ok bool
	}{
		{Uint(255), 255, true},
		{Float(255), 255, true},
		{Float(2.5), 0, false},
		{Float(-1), 0, false},
		{Float(math.Inf(1)), 0, false},
		{String("255"), 0, false},
	}
	for _, tc := range testCases {
		n, ok := tc.v.Uint()
		if n != tc.n || ok != tc.ok {
			t.Fatalf("%s: expected %d, %v got %d, %v\n", tc.v, tc.n, tc.ok, n, ok)
		}
	}
}

func TestChunkJoin(t *testing.T) {
	samples := make([]float32, 10)
	for idx := range samples {
		samples[idx] = float32(idx)
	}
	tags := []Tag{
		{Offset: 9, Key: "c", Value: Float(3)},
		{Offset: 0, Key: "a", Value: Float(1)},
		{Offset: 0, Key: "b", Value: Float(2)},
		{Offset: 20, Key: "lost", Value: Float(4)},
	}

	blocks := Chunk(samples, tags, 4)
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks got %d\n", len(blocks))
	}
	for _, blk := range blocks {
		for _, tag := range blk.Tags {
			if !blk.Contains(tag.Offset) {
				t.Fatalf("Tag %s outside block [%d,%d)\n", tag, blk.Offset, blk.End())
			}
		}
	}

	joined, joinedTags := Join(blocks)
	if len(joined) != len(samples) {
		t.Fatalf("Expected %d samples got %d\n", len(samples), len(joined))
	}
	for idx := range samples {
		if joined[idx] != samples[idx] {
			t.Fatalf("Sample %d: expected %f got %f\n", idx, samples[idx], joined[idx])
		}
	}

	keys := ""
	for _, tag := range joinedTags {
		keys += tag.Key
	}
	if keys != "abc" {
		t.Fatalf("Expected tags in order abc got %q\n", keys)
	}

	if whole := Chunk(samples, nil, 0); len(whole) != 1 || len(whole[0].Samples) != 10 {
		t.Fatalf("Expected a single block\n")
	}
}

func TestFilter(t *testing.T) {
	tags := []Tag{
		{Offset: 1, Key: KeyCorrelation, Value: Float(0.9)},
		{Offset: 1, Key: KeyPacketLen, Value: Uint(255)},
		{Offset: 300, Key: KeyCorrelation, Value: Float(-0.8)},
	}

	matched := Filter(tags, KeyCorrelation)
	if len(matched) != 2 || matched[1].Offset != 300 {
		t.Fatalf("Unexpected filter result: %v\n", matched)
	}
}
