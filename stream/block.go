// SOFTSYNC - Soft-decision frame synchronization for BPSK telemetry.
// Copyright (C) 2024 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package stream

// A Block is a contiguous run of samples starting at absolute stream offset
// Offset. Tags are sorted by offset and lie within [Offset, End()).
type Block struct {
	Offset  uint64
	Samples []float32
	Tags    []Tag
}

// End is the offset one past the last sample of the block.
func (b Block) End() uint64 {
	return b.Offset + uint64(len(b.Samples))
}

func (b Block) Contains(offset uint64) bool {
	return offset >= b.Offset && offset < b.End()
}

// Chunk splits a tagged sample sequence starting at offset 0 into blocks of
// at most size samples. Tags outside the sequence are discarded.
func Chunk(samples []float32, tags []Tag, size int) (blocks []Block) {
	if size <= 0 {
		size = len(samples)
	}

	sorted := make([]Tag, len(tags))
	copy(sorted, tags)
	SortTags(sorted)

	tIdx := 0
	for lower := 0; lower < len(samples); lower += size {
		upper := lower + size
		if upper > len(samples) {
			upper = len(samples)
		}

		blk := Block{Offset: uint64(lower), Samples: samples[lower:upper]}
		for tIdx < len(sorted) && sorted[tIdx].Offset < blk.End() {
			blk.Tags = append(blk.Tags, sorted[tIdx])
			tIdx++
		}
		blocks = append(blocks, blk)
	}

	return
}

// Join concatenates contiguous blocks back into one sample slice and tag list.
func Join(blocks []Block) (samples []float32, tags []Tag) {
	for _, blk := range blocks {
		samples = append(samples, blk.Samples...)
		tags = append(tags, blk.Tags...)
	}
	return
}

// Filter returns the tags matching key.
func Filter(tags []Tag, key string) (matched []Tag) {
	for _, t := range tags {
		if t.Key == key {
			matched = append(matched, t)
		}
	}
	return
}
