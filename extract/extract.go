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

// Package extract cuts tagged soft symbol streams into frames.
package extract

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/softsync/stream"
)

// A Frame is a run of soft symbols beginning at a packet_len tag.
type Frame struct {
	Offset      uint64
	Samples     []float32
	Tags        []stream.Tag // Offsets relative to the frame start.
	Correlation float64
}

// An Extractor collects packet_len samples following each packet_len tag.
// A frame interrupted by another packet_len tag is dropped.
type Extractor struct {
	log  logrus.FieldLogger
	cur  *Frame
	want int
	next uint64
}

func NewExtractor(log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{log: log}
}

// Pending reports whether a frame is partially collected.
func (e *Extractor) Pending() bool {
	return e.cur != nil
}

// Process consumes a block and returns the frames completed within it.
// Errors wrap stream.ErrIntegrity and never prevent the rest of the block
// from being processed.
func (e *Extractor) Process(in stream.Block) (frames []Frame, err error) {
	if in.Offset != e.next && e.cur != nil {
		err = xerrors.Errorf("gap at %d, expected %d, dropping frame at %d: %w", in.Offset, e.next, e.cur.Offset, stream.ErrIntegrity)
		e.cur = nil
	}
	e.next = in.End()

	pos := 0
	for tIdx := 0; tIdx < len(in.Tags); {
		offset := in.Tags[tIdx].Offset

		group := tIdx
		for group < len(in.Tags) && in.Tags[group].Offset == offset {
			group++
		}
		tags := in.Tags[tIdx:group]
		tIdx = group

		if !in.Contains(offset) {
			err = xerrors.Errorf("tag at %d outside of block [%d,%d): %w", offset, in.Offset, in.End(), stream.ErrIntegrity)
			continue
		}

		idx := int(offset - in.Offset)
		if idx < pos {
			err = xerrors.Errorf("tag at %d out of order: %w", offset, stream.ErrIntegrity)
			continue
		}
		frames = e.feed(frames, in.Samples[pos:idx])
		pos = idx

		// Start frames first so tags sharing the offset attach to them.
		for _, t := range tags {
			if t.Key != stream.KeyPacketLen {
				continue
			}
			if tagErr := e.start(t); tagErr != nil {
				err = tagErr
			}
		}

		if e.cur == nil {
			continue
		}
		for _, t := range tags {
			if t.Key == stream.KeyPacketLen {
				continue
			}
			rel := t
			rel.Offset -= e.cur.Offset
			e.cur.Tags = append(e.cur.Tags, rel)

			if t.Key == stream.KeyCorrelation && rel.Offset == 0 {
				e.cur.Correlation, _ = t.Value.Float()
			}
		}
	}

	frames = e.feed(frames, in.Samples[pos:])
	return frames, err
}

func (e *Extractor) start(t stream.Tag) error {
	n, ok := t.Value.Uint()
	if !ok || n == 0 {
		return xerrors.Errorf("invalid packet length %s: %w", t, stream.ErrIntegrity)
	}

	var err error
	if e.cur != nil {
		err = xerrors.Errorf("frame at %d truncated at %d/%d samples by %s: %w",
			e.cur.Offset, len(e.cur.Samples), e.want, t, stream.ErrIntegrity,
		)
	}

	e.want = int(n)
	e.cur = &Frame{
		Offset:  t.Offset,
		Samples: make([]float32, 0, e.want),
	}
	return err
}

func (e *Extractor) feed(frames []Frame, samples []float32) []Frame {
	if e.cur == nil {
		return frames
	}

	n := e.want - len(e.cur.Samples)
	if n > len(samples) {
		n = len(samples)
	}
	e.cur.Samples = append(e.cur.Samples, samples[:n]...)

	if len(e.cur.Samples) == e.want {
		e.log.WithFields(logrus.Fields{
			"offset":      e.cur.Offset,
			"length":      e.want,
			"correlation": e.cur.Correlation,
		}).Trace("frame extracted")

		frames = append(frames, *e.cur)
		e.cur = nil
	}
	return frames
}

// Flush reports and drops a frame cut short by the end of the stream.
func (e *Extractor) Flush() error {
	if e.cur == nil {
		return nil
	}
	err := xerrors.Errorf("stream ended with frame at %d at %d/%d samples: %w",
		e.cur.Offset, len(e.cur.Samples), e.want, stream.ErrIntegrity,
	)
	e.cur = nil
	return err
}

// A CutMode selects which part of a frame Cut keeps.
type CutMode int

const (
	Head      CutMode = iota // First n.
	HeadMinus                // All but the last n.
	Tail                     // Last n.
	TailPlus                 // All but the first n.
)

var cutModeNames = []string{"head", "headminus", "tail", "tailplus"}

func (m CutMode) String() string {
	if m < 0 || int(m) >= len(cutModeNames) {
		return fmt.Sprintf("CutMode(%d)", int(m))
	}
	return cutModeNames[m]
}

func ParseCutMode(s string) (CutMode, error) {
	for idx, name := range cutModeNames {
		if strings.EqualFold(s, name) {
			return CutMode(idx), nil
		}
	}
	return 0, errors.Wrapf(stream.ErrConfig, "unknown cut mode %q", s)
}

// Hard packs hard decisions of soft symbols MSB first, negative symbols are
// 1 bits. A trailing partial byte is zero padded.
func Hard(samples []float32) []byte {
	packed := make([]byte, (len(samples)+7)>>3)
	for idx, v := range samples {
		if v < 0 {
			packed[idx>>3] |= 0x80 >> uint(idx&7)
		}
	}
	return packed
}

// Cut returns a subslice of samples, n is clamped to the length of samples.
func Cut(mode CutMode, n int, samples []float32) []float32 {
	if n < 0 {
		n = 0
	}
	if n > len(samples) {
		n = len(samples)
	}

	switch mode {
	case Head:
		return samples[:n]
	case HeadMinus:
		return samples[:len(samples)-n]
	case Tail:
		return samples[len(samples)-n:]
	case TailPlus:
		return samples[n:]
	}
	panic(fmt.Sprintf("invalid cut mode %d", int(mode)))
}
