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

// Package stream defines the sample blocks and metadata tags exchanged
// between processing stages.
package stream

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Well known tag keys.
const (
	KeyCorrelation = "frame_correlation"
	KeyPacketLen   = "packet_len"
	KeyScore       = "frame_score"
	KeySNR         = "frame_snr_db"
)

var (
	// ErrConfig is the cause of every construction-time configuration error.
	ErrConfig = errors.New("invalid configuration")

	// ErrIntegrity is the cause of errors reported for malformed tags or
	// frames found mid-stream. They never stop processing.
	ErrIntegrity = errors.New("data integrity")
)

// A Value is either a number or a string.
type Value struct {
	num   float64
	str   string
	isStr bool
}

func Float(v float64) Value {
	return Value{num: v}
}

func Uint(v uint64) Value {
	return Value{num: float64(v)}
}

func String(s string) Value {
	return Value{str: s, isStr: true}
}

func (v Value) IsNumber() bool {
	return !v.isStr
}

func (v Value) Float() (float64, bool) {
	if v.isStr {
		return 0, false
	}
	return v.num, true
}

// Uint reports the value as an unsigned integer. Fails for strings, negative
// or fractional numbers.
func (v Value) Uint() (uint64, bool) {
	if v.isStr || v.num < 0 || v.num != math.Trunc(v.num) || math.IsInf(v.num, 0) {
		return 0, false
	}
	return uint64(v.num), true
}

func (v Value) Str() (string, bool) {
	return v.str, v.isStr
}

func (v Value) String() string {
	if v.isStr {
		return strconv.Quote(v.str)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// A Tag attaches a key-value pair to the sample at Offset.
type Tag struct {
	Offset uint64
	Key    string
	Value  Value
}

func (t Tag) String() string {
	return fmt.Sprintf("{Offset:%d %s:%s}", t.Offset, t.Key, t.Value)
}

// SortTags orders tags by offset, preserving the relative order of tags
// sharing an offset.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Offset < tags[j].Offset
	})
}
