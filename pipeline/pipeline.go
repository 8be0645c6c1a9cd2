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

// Package pipeline connects processing stages with bounded channels.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/softsync/extract"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

// A Stage transforms blocks in stream order. Flush is called once after the
// last block and returns anything still held back.
type Stage interface {
	Process(stream.Block) (stream.Block, error)
	Flush() (stream.Block, error)
}

// A Detector reports each frame it detects itself. Frames reported by
// upstream stages are not counted.
type Detector interface {
	Notify(func(offset uint64, correlation float64))
}

// A Flipper counts the polarity changes it has applied so far.
type Flipper interface {
	Flips() uint64
}

// Named labels a stage in logs and metrics.
type Named struct {
	Name  string
	Stage Stage
}

type Pipeline struct {
	ID      uuid.UUID
	Buffer  int // Capacity of channels between stages.
	Metrics *Metrics

	log logrus.FieldLogger
}

// New creates a pipeline with a fresh run ID. Nil metrics are created
// unregistered.
func New(log logrus.FieldLogger, metrics *Metrics, buffer int) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if buffer < 0 {
		buffer = 0
	}

	id := uuid.New()
	return &Pipeline{
		ID:      id,
		Buffer:  buffer,
		Metrics: metrics,
		log:     log.WithField("run", id.String()),
	}
}

// Run starts one goroutine per stage and returns the output of the last. Each
// output channel is closed after its input closes and the stage is flushed,
// or when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, in <-chan stream.Block, stages ...Named) <-chan stream.Block {
	src := in
	for _, s := range stages {
		out := make(chan stream.Block, p.Buffer)
		go p.stage(ctx, s, src, out)
		src = out
	}
	return src
}

func (p *Pipeline) stage(ctx context.Context, s Named, in <-chan stream.Block, out chan<- stream.Block) {
	defer close(out)

	log := p.log.WithField("stage", s.Name)
	samples := p.Metrics.Samples.WithLabelValues(s.Name)

	if det, ok := s.Stage.(Detector); ok {
		det.Notify(func(offset uint64, correlation float64) {
			p.Metrics.FramesDetected.Inc()
			p.Metrics.Correlation.Observe(correlation)
		})
	}

	flipper, _ := s.Stage.(Flipper)
	var flips uint64

	send := func(blk stream.Block, err error) bool {
		if err != nil {
			p.report(log, s.Name, err)
		}

		if flipper != nil {
			if n := flipper.Flips(); n > flips {
				p.Metrics.PolarityFlips.Add(float64(n - flips))
				flips = n
			}
		}

		if len(blk.Samples) == 0 {
			return true
		}

		select {
		case out <- blk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.WithError(ctx.Err()).Debug("stage cancelled")
			return
		case blk, ok := <-in:
			if !ok {
				send(s.Stage.Flush())
				return
			}

			samples.Add(float64(len(blk.Samples)))
			if !send(s.Stage.Process(blk)) {
				return
			}
		}
	}
}

func (p *Pipeline) report(log logrus.FieldLogger, stage string, err error) {
	p.Metrics.IntegrityErrors.WithLabelValues(stage).Inc()
	log.WithError(err).Warn("skipped malformed input")
}

// Frames extracts frames from in, strips the first asmLen symbols and
// descrambles the rest with seq unless seq is nil. Frame offsets and tags
// still refer to the start of the syncword.
func (p *Pipeline) Frames(ctx context.Context, in <-chan stream.Block, ex *extract.Extractor, seq *scramble.Sequence, asmLen int) <-chan extract.Frame {
	out := make(chan extract.Frame, p.Buffer)

	go func() {
		defer close(out)

		const name = "extract"
		log := p.log.WithField("stage", name)
		samples := p.Metrics.Samples.WithLabelValues(name)

		emit := func(frames []extract.Frame) bool {
			for _, f := range frames {
				payload := extract.Cut(extract.TailPlus, asmLen, f.Samples)
				if seq != nil {
					payload = scramble.Soft(*seq, payload)
				}
				f.Samples = payload

				select {
				case out <- f:
					p.Metrics.FramesExtracted.Inc()
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case blk, ok := <-in:
				if !ok {
					if err := ex.Flush(); err != nil {
						p.report(log, name, err)
					}
					return
				}

				samples.Add(float64(len(blk.Samples)))
				frames, err := ex.Process(blk)
				if err != nil {
					p.report(log, name, err)
				}
				if !emit(frames) {
					return
				}
			}
		}
	}()

	return out
}
