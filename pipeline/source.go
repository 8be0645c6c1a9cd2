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

package pipeline

import (
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/softsync/stream"
)

// DefaultBlockSize is used by Read when blockSize is not positive.
const DefaultBlockSize = 1 << 14

// Read decodes little-endian float32 soft symbols from r into blocks of
// blockSize samples. The channel is closed at EOF, on a read error or when
// ctx is cancelled.
func Read(ctx context.Context, r io.Reader, blockSize int, log logrus.FieldLogger) <-chan stream.Block {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	out := make(chan stream.Block)

	go func() {
		defer close(out)

		buf := make([]byte, blockSize<<2)
		var offset uint64

		for {
			n, err := io.ReadFull(r, buf)

			if n>>2 > 0 {
				blk := stream.Block{
					Offset:  offset,
					Samples: Decode(buf[:n&^3]),
				}
				offset = blk.End()

				select {
				case out <- blk:
				case <-ctx.Done():
					return
				}
			}

			if err == io.EOF || err == io.ErrUnexpectedEOF {
				if n&3 != 0 {
					log.WithField("bytes", n&3).Warn("discarding partial sample at end of input")
				}
				log.WithField("samples", offset).Debug("end of input")
				return
			}
			if err != nil {
				log.WithError(err).Error("reading samples")
				return
			}
		}
	}()

	return out
}

// Decode converts little-endian float32 bytes to samples.
func Decode(buf []byte) []float32 {
	samples := make([]float32, len(buf)>>2)
	for idx := range samples {
		samples[idx] = math.Float32frombits(binary.LittleEndian.Uint32(buf[idx<<2:]))
	}
	return samples
}

// Encode converts samples to little-endian float32 bytes.
func Encode(samples []float32) []byte {
	buf := make([]byte, len(samples)<<2)
	for idx, v := range samples {
		binary.LittleEndian.PutUint32(buf[idx<<2:], math.Float32bits(v))
	}
	return buf
}

// Blocks sends fixed size blocks of samples with their tags.
func Blocks(ctx context.Context, samples []float32, tags []stream.Tag, blockSize int) <-chan stream.Block {
	out := make(chan stream.Block)

	go func() {
		defer close(out)
		for _, blk := range stream.Chunk(samples, tags, blockSize) {
			select {
			case out <- blk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
