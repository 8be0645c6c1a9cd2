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
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/softsync/csv"
	"github.com/bemasher/softsync/profile"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

var profileName = flag.String("profile", "ccsds", "frame profile: "+strings.Join(profile.Names(), ", "))

var syncword = flag.String("syncword", "", "hex syncword, overrides the profile")
var payloadLen = flag.Int("payloadlen", 0, "payload length in bits, overrides the profile")
var polarity = flag.Int("polarity", 0, "correlation sign of direct framing, 1 or -1, overrides the profile")
var threshold = flag.Float64("threshold", 0, "minimum absolute normalized correlation, 0 for default")
var searchSpan = flag.Int("searchspan", 0, "windows a candidate must remain the peak before confirmation, 0 for one frame")

var tagKey = flag.String("tagkey", stream.KeyCorrelation, "tag key watched by the ambiguity corrector")

var sequence = flag.String("sequence", "", "hex scrambling sequence, overrides the profile")
var ccsds = flag.Bool("ccsds", false, "descramble with the CCSDS pseudo-randomizer")
var fecf = flag.Bool("fecf", false, "check a trailing CRC-16 frame error control field of each payload")
var noDescramble = flag.Bool("nodescramble", false, "emit payloads without descrambling")

var inFilename = flag.String("in", "-", "little-endian float32 soft symbol input, - for stdin")
var outFilename = flag.String("out", os.DevNull, "little-endian float32 payload output")
var outFile io.WriteCloser

var blockSize = flag.Int("blocksize", 1<<14, "samples per block")
var bufferLen = flag.Int("buffer", 4, "blocks buffered between stages")

var encoder Encoder
var format = flag.String("format", "plain", "frame record output format: plain, csv, json, or xml")

var logLevel = flag.String("loglevel", "info", "log level: trace, debug, info, warn or error")
var metricsAddr = flag.String("metrics", "", "address to serve prometheus metrics on, empty to disable")
var configFilename = flag.String("config", "", "yaml configuration file, flags given explicitly take precedence")

var simulate = flag.Int("simulate", 0, "process this many synthetic frames instead of reading input")
var simulateSNR = flag.Float64("snr", 10, "signal to noise ratio of simulated frames in dB")
var simulateSeed = flag.Int64("seed", 1, "random seed for simulated frames")

var version = flag.Bool("version", false, "display build date and commit hash")

func RegisterFlags() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  -%s=%s: %s\n", f.Name, f.Value, f.Usage)
		})
	}
}

func EnvOverride() {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "SOFTSYNC_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue != "" {
			log := logrus.WithFields(logrus.Fields{"env": envName, "flag": f.Name, "value": flagValue})
			if err := flag.Set(f.Name, flagValue); err != nil {
				log.WithError(err).Warn("environment variable failed to override flag")
			} else {
				log.Info("environment variable overrides flag")
			}
		}
	})
}

// Explicit reports the flags set on the command line or by environment.
func Explicit() map[string]bool {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func HandleFlags() {
	if *configFilename != "" {
		cfg, err := LoadConfig(*configFilename)
		if err != nil {
			logrus.WithError(err).Fatal("loading configuration")
		}
		if err := cfg.Apply(flag.CommandLine, Explicit()); err != nil {
			logrus.WithError(err).Fatal("applying configuration")
		}
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("parsing log level")
	}
	logrus.SetLevel(level)

	if *outFilename == os.DevNull {
		outFile = nopCloser{io.Discard}
	} else if outFile, err = os.Create(*outFilename); err != nil {
		logrus.WithError(err).Fatal("creating payload output file")
	}

	*format = strings.ToLower(*format)
	switch *format {
	case "plain":
		encoder = PlainEncoder{}
	case "csv":
		encoder = csv.NewEncoder(os.Stdout)
	case "json":
		encoder = json.NewEncoder(os.Stdout)
	case "xml":
		encoder = xml.NewEncoder(os.Stdout)
	default:
		logrus.WithField("format", *format).Fatal("unknown output format")
	}
}

// FrameProfile resolves the selected profile along with flag overrides.
func FrameProfile() (p profile.Profile, err error) {
	if *profileName != "" {
		if p, err = profile.Lookup(*profileName); err != nil {
			return p, err
		}
	}

	if *syncword != "" {
		p.Syncword = *syncword
	}
	if *payloadLen != 0 {
		p.PayloadLen = *payloadLen
	}
	if *polarity != 0 {
		p.Polarity = *polarity
	}

	switch {
	case *noDescramble:
		p.Sequence = nil
	case *sequence != "":
		if p.Sequence, err = hex.DecodeString(*sequence); err != nil {
			return p, errors.Wrapf(stream.ErrConfig, "sequence: %s", err)
		}
	case *ccsds:
		p.Sequence = scramble.CCSDS((p.PayloadLen + 7) >> 3)
	}

	return p, nil
}

type Encoder interface {
	Encode(interface{}) error
}

type PlainEncoder struct{}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Println(msg)
	return
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
