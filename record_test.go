package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bemasher/softsync/crc"
	"github.com/bemasher/softsync/csv"
	"github.com/bemasher/softsync/extract"
	"github.com/bemasher/softsync/gen"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

func testFrame() extract.Frame {
	return extract.Frame{
		Offset:      42,
		Samples:     make([]float32, 223),
		Correlation: -0.95,
		Tags: []stream.Tag{
			{Offset: 0, Key: stream.KeyCorrelation, Value: stream.Float(-0.95)},
			{Offset: 0, Key: stream.KeyScore, Value: stream.Float(-0.9)},
			{Offset: 0, Key: stream.KeySNR, Value: stream.Float(9.5)},
		},
	}
}

func TestFrameRecord(t *testing.T) {
	rec := NewFrameRecord("run", testFrame(), false)

	if rec.Offset != 42 || rec.Length != 223 || rec.Correlation != -0.95 || rec.Score != -0.9 || rec.SNR != 9.5 {
		t.Fatalf("Unexpected record: %+v\n", rec)
	}
	if len(rec.Record()) != len(rec.Header()) {
		t.Fatalf("Record has %d fields, header %d\n", len(rec.Record()), len(rec.Header()))
	}
}

func TestFrameRecordCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := csv.NewEncoder(buf)
	if err := enc.Encode(NewFrameRecord("run", testFrame(), false)); err != nil {
		t.Fatalf("%+v\n", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "time,run,offset") {
		t.Fatalf("Unexpected csv output: %q\n", buf.String())
	}
}

func TestFrameRecordJSON(t *testing.T) {
	buf, err := json.Marshal(NewFrameRecord("run", testFrame(), false))
	if err != nil {
		t.Fatalf("%+v\n", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(buf, &fields); err != nil {
		t.Fatalf("%+v\n", err)
	}
	if fields["snr_db"] != 9.5 || fields["offset"] != 42.0 {
		t.Fatalf("Unexpected json: %s\n", buf)
	}
}

func TestFrameRecordFECF(t *testing.T) {
	data := crc.CCITT.Append([]byte{0x1A, 0xCF, 0xFC, 0x1D, 0x55})
	f := extract.Frame{Samples: gen.Bipolar(scramble.UnpackBits(data))}

	if rec := NewFrameRecord("run", f, true); rec.FECF != "ok" {
		t.Fatalf("Expected valid frame error control field got %q\n", rec.FECF)
	}

	f.Samples[3] = -f.Samples[3]
	if rec := NewFrameRecord("run", f, true); rec.FECF != "bad" {
		t.Fatalf("Expected invalid frame error control field got %q\n", rec.FECF)
	}
}
