// Package csv writes frame records as comma separated values.
package csv

import (
	"encoding/csv"
	"io"

	"golang.org/x/xerrors"
)

// Produces a list of fields making up a record.
type Recorder interface {
	Record() []string
}

// A Header names the fields produced by a Recorder.
type Header interface {
	Header() []string
}

// An Encoder writes CSV records to an output stream.
type Encoder struct {
	w      *csv.Writer
	header bool
}

// NewEncoder returns a new encoder that writes to w. If the first value
// encoded implements Header, its field names are written first.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// Encode writes a CSV record representing v to the stream followed by a
// newline character. Value given must implement the Recorder interface.
func (enc *Encoder) Encode(v interface{}) (err error) {
	defer func() {
		if r, _ := recover().(error); r != nil {
			err = xerrors.Errorf("recovered: %w", r)
		}
	}()

	rec := v.(Recorder)

	if !enc.header {
		enc.header = true
		if h, ok := v.(Header); ok {
			if err = enc.w.Write(h.Header()); err != nil {
				return xerrors.Errorf("writing header: %w", err)
			}
		}
	}

	if err = enc.w.Write(rec.Record()); err != nil {
		return xerrors.Errorf("writing record: %w", err)
	}
	enc.w.Flush()

	return enc.w.Error()
}
