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
	"encoding/hex"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/softsync/stream"
)

const (
	// DefaultThreshold is the minimum magnitude of normalized correlation at
	// which a window is considered a frame candidate.
	DefaultThreshold = 0.7
)

// Config specifies the framing of the stream.
type Config struct {
	Syncword   string
	PayloadLen int

	// Polarity selects which correlation sign is direct framing. Zero means +1.
	Polarity int

	// Threshold on |correlation|, zero means DefaultThreshold.
	Threshold float64

	// Number of windows a candidate must remain the largest correlation
	// before it is confirmed. Zero means one frame less one symbol, so the
	// peak is taken over a whole frame.
	SearchSpan int

	SyncLen, FrameLen int
}

// Synchronizer annotates a soft symbol stream with frame tags at the start of
// each detected syncword. Samples are passed through unmodified.
type Synchronizer struct {
	Cfg Config
	log logrus.FieldLogger

	template []float64

	// Window is doubled so ring[head:head+SyncLen] is always the window in
	// stream order.
	ring   []float64
	head   int
	filled int

	sumAbs, sum2, sum4 float64

	started bool
	next    uint64 // offset of the next input sample
	armed   uint64 // earliest syncword start allowed
	hasPrev bool

	cand *candidate

	detections uint64
	notify     func(offset uint64, correlation float64)

	pending []stream.Tag
	held    []float32
	heldOff uint64
}

type candidate struct {
	offset      uint64
	correlation float64
	score       float64
	snrDB       float64
	seen        int
}

// Template converts a hexadecimal syncword into bipolar symbols, most
// significant bit first. A 1 bit maps to -polarity, a 0 bit to +polarity.
func Template(syncword string, polarity int) ([]float64, error) {
	if len(syncword) == 0 {
		return nil, errors.Wrap(stream.ErrConfig, "syncword can not be empty")
	}
	if len(syncword)%2 != 0 {
		return nil, errors.Wrapf(stream.ErrConfig, "syncword %q must have an even number of hex digits", syncword)
	}

	raw, err := hex.DecodeString(syncword)
	if err != nil {
		return nil, errors.Wrapf(stream.ErrConfig, "syncword %q: %s", syncword, err)
	}

	p := float64(polarity)
	template := make([]float64, len(raw)<<3)
	for idx, b := range raw {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			if (b>>uint(bit))&0x01 == 1 {
				template[offset+(7-bit)] = -p
			} else {
				template[offset+(7-bit)] = p
			}
		}
	}

	return template, nil
}

// NewSynchronizer validates cfg, fills in derived lengths and allocates the
// correlation window.
func NewSynchronizer(cfg Config, log logrus.FieldLogger) (*Synchronizer, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	if cfg.Polarity == 0 {
		cfg.Polarity = 1
	}
	if cfg.Polarity != 1 && cfg.Polarity != -1 {
		return nil, errors.Wrapf(stream.ErrConfig, "polarity must be +1 or -1, got %d", cfg.Polarity)
	}
	if cfg.PayloadLen <= 0 {
		return nil, errors.Wrapf(stream.ErrConfig, "payload length must be positive, got %d", cfg.PayloadLen)
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 || math.IsNaN(cfg.Threshold) {
		return nil, errors.Wrapf(stream.ErrConfig, "threshold must be within (0,1], got %f", cfg.Threshold)
	}

	template, err := Template(cfg.Syncword, cfg.Polarity)
	if err != nil {
		return nil, err
	}

	cfg.SyncLen = len(template)
	cfg.FrameLen = cfg.SyncLen + cfg.PayloadLen

	if cfg.SearchSpan == 0 {
		cfg.SearchSpan = cfg.FrameLen - 1
	}
	if cfg.SearchSpan < 0 || cfg.SearchSpan >= cfg.FrameLen {
		return nil, errors.Wrapf(stream.ErrConfig, "search span must be within [1,%d), got %d", cfg.FrameLen, cfg.SearchSpan)
	}

	return &Synchronizer{
		Cfg:      cfg,
		log:      log,
		template: template,
		ring:     make([]float64, cfg.SyncLen<<1),
	}, nil
}

// Notify registers fn to be called with every frame this synchronizer
// confirms. Tags forwarded from upstream are not reported.
func (d *Synchronizer) Notify(fn func(offset uint64, correlation float64)) {
	d.notify = fn
}

// Detections is the number of frames confirmed so far.
func (d *Synchronizer) Detections() uint64 {
	return d.detections
}

func (d *Synchronizer) Log() {
	d.log.WithFields(logrus.Fields{
		"syncword":   d.Cfg.Syncword,
		"synclen":    d.Cfg.SyncLen,
		"payloadlen": d.Cfg.PayloadLen,
		"framelen":   d.Cfg.FrameLen,
		"polarity":   d.Cfg.Polarity,
		"threshold":  d.Cfg.Threshold,
		"searchspan": d.Cfg.SearchSpan,
	}).Info("frame synchronizer")
}
