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

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bemasher/softsync/crc"
	"github.com/bemasher/softsync/extract"
	"github.com/bemasher/softsync/stream"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"
)

// A FrameRecord summarizes one extracted frame.
type FrameRecord struct {
	Time        time.Time `json:"time" xml:"time"`
	Run         string    `json:"run" xml:"run"`
	Offset      uint64    `json:"offset" xml:"offset"`
	Length      int       `json:"length" xml:"length"`
	Correlation float64   `json:"correlation" xml:"correlation"`
	Score       float64   `json:"score" xml:"score"`
	SNR         float64   `json:"snr_db" xml:"snr_db"`

	// Result of the frame error control field check: ok, bad or empty when
	// not checked.
	FECF string `json:"fecf,omitempty" xml:"fecf,omitempty"`
}

// NewFrameRecord summarizes f. If fecf is set, the hard decided payload is
// checked for a trailing CRC-16.
func NewFrameRecord(run string, f extract.Frame, fecf bool) FrameRecord {
	rec := FrameRecord{
		Time:        time.Now(),
		Run:         run,
		Offset:      f.Offset,
		Length:      len(f.Samples),
		Correlation: f.Correlation,
	}

	for _, t := range f.Tags {
		if t.Offset != 0 {
			continue
		}
		switch t.Key {
		case stream.KeyScore:
			rec.Score, _ = t.Value.Float()
		case stream.KeySNR:
			rec.SNR, _ = t.Value.Float()
		}
	}

	if fecf {
		rec.FECF = "bad"
		if crc.CCITT.Verify(extract.Hard(f.Samples)) {
			rec.FECF = "ok"
		}
	}

	return rec
}

func (rec FrameRecord) String() string {
	s := fmt.Sprintf("{Time:%s Offset:%d Length:%d Correlation:%+.3f Score:%+.3f SNR:%.1f",
		rec.Time.Format(TimeFormat), rec.Offset, rec.Length, rec.Correlation, rec.Score, rec.SNR,
	)
	if rec.FECF != "" {
		s += " FECF:" + rec.FECF
	}
	return s + "}"
}

func (rec FrameRecord) Header() []string {
	return []string{"time", "run", "offset", "length", "correlation", "score", "snr_db", "fecf"}
}

func (rec FrameRecord) Record() (r []string) {
	r = append(r, rec.Time.Format(time.RFC3339Nano))
	r = append(r, rec.Run)
	r = append(r, strconv.FormatUint(rec.Offset, 10))
	r = append(r, strconv.Itoa(rec.Length))
	r = append(r, strconv.FormatFloat(rec.Correlation, 'f', -1, 64))
	r = append(r, strconv.FormatFloat(rec.Score, 'f', -1, 64))
	r = append(r, strconv.FormatFloat(rec.SNR, 'f', -1, 64))
	r = append(r, rec.FECF)
	return r
}
