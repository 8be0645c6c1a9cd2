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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters updated by a running pipeline.
type Metrics struct {
	Samples         *prometheus.CounterVec
	FramesDetected  prometheus.Counter
	PolarityFlips   prometheus.Counter
	IntegrityErrors *prometheus.CounterVec
	FramesExtracted prometheus.Counter
	Correlation     prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Samples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "softsync_samples_total",
				Help: "Soft symbols processed by each stage",
			},
			[]string{"stage"},
		),
		FramesDetected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "softsync_frames_detected_total",
				Help: "Syncwords detected by the frame synchronizer",
			},
		),
		PolarityFlips: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "softsync_polarity_flips_total",
				Help: "Polarity changes applied by the ambiguity corrector",
			},
		),
		IntegrityErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "softsync_integrity_errors_total",
				Help: "Malformed tags or frames skipped by each stage",
			},
			[]string{"stage"},
		),
		FramesExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "softsync_frames_extracted_total",
				Help: "Complete frames emitted after descrambling",
			},
		),
		Correlation: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "softsync_frame_correlation",
				Help:    "Normalized syncword correlation of detected frames",
				Buckets: prometheus.LinearBuckets(-1, 0.1, 21),
			},
		),
	}
}
