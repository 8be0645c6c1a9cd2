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
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/softsync/ambiguity"
	"github.com/bemasher/softsync/extract"
	"github.com/bemasher/softsync/framesync"
	"github.com/bemasher/softsync/gen"
	"github.com/bemasher/softsync/pipeline"
	"github.com/bemasher/softsync/profile"
	"github.com/bemasher/softsync/stream"
)

type Receiver struct {
	p    *pipeline.Pipeline
	sync *framesync.Synchronizer
	corr *ambiguity.Corrector
	prof profile.Profile
}

func (rcvr *Receiver) NewReceiver() {
	prof, err := FrameProfile()
	if err != nil {
		logrus.WithError(err).Fatal("resolving frame profile")
	}
	rcvr.prof = prof

	var reg prometheus.Registerer
	if *metricsAddr != "" {
		reg = prometheus.DefaultRegisterer
	}
	rcvr.p = pipeline.New(logrus.StandardLogger(), pipeline.NewMetrics(reg), *bufferLen)
	log := logrus.WithField("run", rcvr.p.ID.String())

	cfg := prof.SyncConfig()
	cfg.Threshold = *threshold
	cfg.SearchSpan = *searchSpan

	if rcvr.sync, err = framesync.NewSynchronizer(cfg, log); err != nil {
		logrus.WithError(err).Fatal("creating frame synchronizer")
	}
	rcvr.sync.Log()

	rcvr.corr = ambiguity.NewCorrector(*tagKey, log)

	log.WithField("profile", prof).Info("frame profile")

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logrus.WithError(err).Error("serving metrics")
			}
		}()
	}
}

// Source returns the soft symbol input, either read from -in or simulated.
func (rcvr *Receiver) Source(ctx context.Context) (<-chan stream.Block, io.Closer) {
	if *simulate > 0 {
		fs := gen.FrameStream{
			Syncword:   rcvr.prof.Syncword,
			PayloadLen: rcvr.prof.PayloadLen,
			Frames:     *simulate,
			Prefix:     rcvr.sync.Cfg.SyncLen,
			Suffix:     rcvr.sync.Cfg.SyncLen,
			SNR:        *simulateSNR,
			Flip:       rcvr.sync.Cfg.Polarity < 0,
			Sequence:   rcvr.prof.Sequence,
			FECF:       *fecf,
		}

		g, err := fs.Generate(rand.New(rand.NewSource(*simulateSeed)))
		if err != nil {
			logrus.WithError(err).Fatal("simulating frames")
		}
		return pipeline.Blocks(ctx, g.Samples, nil, *blockSize), nopCloser{}
	}

	if *inFilename == "-" {
		return pipeline.Read(ctx, os.Stdin, *blockSize, nil), nopCloser{}
	}

	f, err := os.Open(*inFilename)
	if err != nil {
		logrus.WithError(err).Fatal("opening input")
	}
	return pipeline.Read(ctx, f, *blockSize, nil), f
}

func (rcvr *Receiver) Run() {
	// Cancel the pipeline on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, closer := rcvr.Source(ctx)
	defer closer.Close()

	seq, err := rcvr.prof.Scrambler()
	if err != nil {
		logrus.WithError(err).Fatal("creating descrambler")
	}

	blocks := rcvr.p.Run(ctx, src,
		pipeline.Named{Name: "framesync", Stage: rcvr.sync},
		pipeline.Named{Name: "ambiguity", Stage: rcvr.corr},
	)

	run := rcvr.p.ID.String()
	for f := range rcvr.p.Frames(ctx, blocks, extract.NewExtractor(nil), seq, rcvr.sync.Cfg.SyncLen) {
		if err := encoder.Encode(NewFrameRecord(run, f, *fecf)); err != nil {
			logrus.WithError(err).Fatal("encoding frame record")
		}
		if _, err := outFile.Write(pipeline.Encode(f.Samples)); err != nil {
			logrus.WithError(err).Fatal("writing payload")
		}
	}

	logrus.WithFields(logrus.Fields{
		"run":   run,
		"flips": rcvr.corr.Flips(),
	}).Info("done")
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	RegisterFlags()
	EnvOverride()
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	HandleFlags()
	defer outFile.Close()

	var rcvr Receiver
	rcvr.NewReceiver()
	rcvr.Run()
}
