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

// Package ambiguity resolves the 180 degree phase ambiguity of BPSK soft
// symbols using the sign of frame correlation tags.
package ambiguity

import (
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/bemasher/softsync/stream"
)

// State is the polarity state carried across an unbounded stream.
type State struct {
	ReferenceSign int
	FlipActive    bool
}

func (s State) factor() float32 {
	if s.FlipActive {
		return -1
	}
	return 1
}

// A Corrector inverts stream segments whose tagged correlation sign
// disagrees with the reference. Each sign change takes effect at the offset
// of the tag carrying it.
type Corrector struct {
	Key string

	log   logrus.FieldLogger
	state State
	next  uint64
	flips uint64
}

// NewCorrector watches tags with key. An empty key watches
// stream.KeyCorrelation.
func NewCorrector(key string, log logrus.FieldLogger) *Corrector {
	if key == "" {
		key = stream.KeyCorrelation
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Corrector{Key: key, log: log}
	c.Reset()
	return c
}

// Reset returns the corrector to its initial state, assuming no inversion.
func (c *Corrector) Reset() {
	c.state = State{ReferenceSign: 1}
	c.flips = 0
}

func (c *Corrector) State() State {
	return c.state
}

// Flips is the number of polarity changes applied since the last Reset.
func (c *Corrector) Flips() uint64 {
	return c.flips
}

func sign(v float64) int {
	if v >= 0 {
		return 1
	}
	return -1
}

// Process returns a block of the same length and tags where each sample is
// multiplied by the polarity in effect at its offset. Errors wrap
// stream.ErrIntegrity; offending tags are ignored and the block is still
// fully processed.
func (c *Corrector) Process(in stream.Block) (out stream.Block, err error) {
	out = stream.Block{
		Offset:  in.Offset,
		Samples: make([]float32, len(in.Samples)),
		Tags:    in.Tags,
	}

	pos := 0
	for _, t := range in.Tags {
		if t.Key != c.Key {
			continue
		}

		if !in.Contains(t.Offset) {
			err = xerrors.Errorf("tag %s outside of block [%d,%d): %w", t, in.Offset, in.End(), stream.ErrIntegrity)
			continue
		}

		v, ok := t.Value.Float()
		if !ok || math.IsNaN(v) {
			err = xerrors.Errorf("tag %s is not numeric: %w", t, stream.ErrIntegrity)
			continue
		}

		s := sign(v)
		if s == c.state.ReferenceSign {
			continue
		}

		idx := int(t.Offset - in.Offset)
		if idx < pos {
			err = xerrors.Errorf("tag %s out of order: %w", t, stream.ErrIntegrity)
			continue
		}

		scale(out.Samples[pos:idx], in.Samples[pos:idx], c.state.factor())
		pos = idx

		c.state.ReferenceSign = s
		c.state.FlipActive = !c.state.FlipActive
		c.flips++

		c.log.WithFields(logrus.Fields{
			"offset":      t.Offset,
			"correlation": v,
			"inverting":   c.state.FlipActive,
		}).Debug("polarity changed")
	}

	scale(out.Samples[pos:], in.Samples[pos:], c.state.factor())
	c.next = in.End()

	return out, err
}

// Flush holds nothing back, it returns an empty block at the end of the stream.
func (c *Corrector) Flush() (stream.Block, error) {
	return stream.Block{Offset: c.next}, nil
}

func scale(dst, src []float32, factor float32) {
	for idx, v := range src {
		dst[idx] = v * factor
	}
}
