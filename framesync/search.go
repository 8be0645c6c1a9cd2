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

package framesync

import (
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/floats"

	"github.com/bemasher/softsync/snr"
	"github.com/bemasher/softsync/stream"
)

// SNR estimates are clamped so tag values stay finite.
const snrLimitDB = 100

// Process consumes a block of samples and returns every sample that can no
// longer be tagged, along with its tags. Returned errors wrap
// stream.ErrIntegrity and do not invalidate the returned block.
//
// A block that is not contiguous with the previous one ends the current
// segment: everything held is returned, the search restarts at the new
// block's offset and its samples are released by later calls.
func (d *Synchronizer) Process(in stream.Block) (out stream.Block, err error) {
	if !d.started {
		d.started = true
		d.next = in.Offset
		d.heldOff = in.Offset
	}

	if in.Offset != d.next {
		err = xerrors.Errorf("block at offset %d, expected %d: %w", in.Offset, d.next, stream.ErrIntegrity)

		out, _ = d.Flush()
		d.restart(in.Offset)
		if tagErr := d.consume(in); tagErr != nil {
			err = tagErr
		}
		return out, err
	}

	err = d.consume(in)
	return d.release(d.safe()), err
}

// Queue a block's tags and samples and search every completed window.
func (d *Synchronizer) consume(in stream.Block) (err error) {
	for _, t := range in.Tags {
		if !in.Contains(t.Offset) {
			err = xerrors.Errorf("tag %s outside of block [%d,%d): %w", t, in.Offset, in.End(), stream.ErrIntegrity)
			continue
		}
		d.pending = append(d.pending, t)
	}

	d.held = append(d.held, in.Samples...)

	n := uint64(d.Cfg.SyncLen)
	for _, v := range in.Samples {
		d.push(float64(v))
		if d.filled == d.Cfg.SyncLen {
			d.search(d.next + 1 - n)
		}
		d.next++
	}

	return err
}

// Discard the window and detection history, resuming at offset. Nothing may
// be held.
func (d *Synchronizer) restart(offset uint64) {
	d.head, d.filled = 0, 0
	d.sumAbs, d.sum2, d.sum4 = 0, 0, 0

	d.cand = nil
	d.hasPrev = false
	d.armed = 0

	d.next = offset
	d.heldOff = offset
}

// Flush confirms any outstanding candidate and releases all held samples.
func (d *Synchronizer) Flush() (stream.Block, error) {
	if d.cand != nil {
		d.confirm()
	}
	return d.release(d.next), nil
}

// Shift a new sample into the window, updating running sums.
func (d *Synchronizer) push(v float64) {
	n := d.Cfg.SyncLen

	if d.filled == n {
		old := d.ring[d.head]
		sq := old * old
		d.sumAbs -= math.Abs(old)
		d.sum2 -= sq
		d.sum4 -= sq * sq
	} else {
		d.filled++
	}

	d.ring[d.head] = v
	d.ring[d.head+n] = v

	sq := v * v
	d.sumAbs += math.Abs(v)
	d.sum2 += sq
	d.sum4 += sq * sq

	d.head++
	if d.head == n {
		d.head = 0
		d.resum()
	}
}

// Recompute running sums exactly once per revolution to bound rounding drift.
func (d *Synchronizer) resum() {
	window := d.ring[:d.Cfg.SyncLen]

	d.sumAbs = floats.Norm(window, 1)
	d.sum2, d.sum4 = 0, 0
	for _, v := range window {
		sq := v * v
		d.sum2 += sq
		d.sum4 += sq * sq
	}
}

// Evaluate the window starting at offset start.
func (d *Synchronizer) search(start uint64) {
	window := d.ring[d.head : d.head+d.Cfg.SyncLen]

	var corr float64
	if d.sumAbs > 0 {
		corr = floats.Dot(window, d.template) / d.sumAbs
		corr = math.Max(-1, math.Min(1, corr))
	}
	mag := math.Abs(corr)

	if d.cand != nil {
		if mag > math.Abs(d.cand.correlation) {
			d.cand = d.newCandidate(start, corr, window)
			d.log.WithFields(logrus.Fields{
				"offset":      start,
				"correlation": corr,
			}).Trace("replaced frame candidate")
			return
		}

		d.cand.seen++
		if d.cand.seen >= d.Cfg.SearchSpan {
			d.confirm()
		}
		return
	}

	// Don't re-arm inside a frame that has already been claimed.
	if d.hasPrev && start < d.armed {
		return
	}

	if mag >= d.Cfg.Threshold {
		d.cand = d.newCandidate(start, corr, window)
		d.log.WithFields(logrus.Fields{
			"offset":      start,
			"correlation": corr,
		}).Trace("new frame candidate")
	}
}

func (d *Synchronizer) newCandidate(start uint64, corr float64, window []float64) *candidate {
	n := float64(d.Cfg.SyncLen)
	linear := snr.FromMoments(d.sum2/n, d.sum4/n)

	var correction float64
	for _, v := range window {
		correction += snr.Correction(v, linear)
	}

	return &candidate{
		offset:      start,
		correlation: corr,
		score:       math.Abs(corr) - correction/n,
		snrDB:       math.Max(-snrLimitDB, math.Min(snrLimitDB, snr.DB(linear))),
	}
}

// Tag the current candidate and hold off until the frame has elapsed.
func (d *Synchronizer) confirm() {
	c := d.cand
	d.cand = nil

	d.hasPrev = true
	d.armed = c.offset + uint64(d.Cfg.FrameLen)

	d.pending = append(d.pending,
		stream.Tag{Offset: c.offset, Key: stream.KeyCorrelation, Value: stream.Float(c.correlation)},
		stream.Tag{Offset: c.offset, Key: stream.KeyPacketLen, Value: stream.Uint(uint64(d.Cfg.FrameLen))},
		stream.Tag{Offset: c.offset, Key: stream.KeyScore, Value: stream.Float(c.score)},
		stream.Tag{Offset: c.offset, Key: stream.KeySNR, Value: stream.Float(c.snrDB)},
	)

	d.detections++
	if d.notify != nil {
		d.notify(c.offset, c.correlation)
	}

	d.log.WithFields(logrus.Fields{
		"offset":      c.offset,
		"correlation": c.correlation,
		"score":       c.score,
		"snr_db":      c.snrDB,
	}).Debug("frame detected")
}

// Lowest offset a tag may still be attached to.
func (d *Synchronizer) safe() uint64 {
	n := uint64(d.Cfg.SyncLen)

	// Windows not yet evaluated start at or after next+1-n.
	var safe uint64
	if d.next+1 >= n {
		safe = d.next + 1 - n
	}

	// Nothing before the re-arm point can become a candidate.
	if d.hasPrev && d.armed > safe {
		safe = d.armed
		if safe > d.next {
			safe = d.next
		}
	}

	if d.cand != nil && d.cand.offset < safe {
		safe = d.cand.offset
	}

	if safe < d.heldOff {
		safe = d.heldOff
	}

	return safe
}

// Release held samples and pending tags before offset upto.
func (d *Synchronizer) release(upto uint64) stream.Block {
	out := stream.Block{Offset: d.heldOff}

	k := int(upto - d.heldOff)
	out.Samples = make([]float32, k)
	copy(out.Samples, d.held[:k])
	d.held = append(d.held[:0], d.held[k:]...)
	d.heldOff = upto

	stream.SortTags(d.pending)
	tIdx := 0
	for tIdx < len(d.pending) && d.pending[tIdx].Offset < upto {
		tIdx++
	}
	out.Tags = append(out.Tags, d.pending[:tIdx]...)
	d.pending = append(d.pending[:0], d.pending[tIdx:]...)

	return out
}
