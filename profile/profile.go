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

// Package profile names frame formats so they can be selected by name.
package profile

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/bemasher/softsync/framesync"
	"github.com/bemasher/softsync/scramble"
	"github.com/bemasher/softsync/stream"
)

// A Profile describes the framing of a link.
type Profile struct {
	Name       string `yaml:"name"`
	Syncword   string `yaml:"syncword"`
	PayloadLen int    `yaml:"payloadlen"`
	Polarity   int    `yaml:"polarity"`

	// Scrambling sequence, empty for unscrambled payloads.
	Sequence []byte `yaml:"-"`
}

var (
	profileMutex sync.Mutex
	profiles     = make(map[string]Profile)
)

// Register makes a profile available by name. Panics on duplicate or
// unnamed profiles.
func Register(p Profile) {
	profileMutex.Lock()
	defer profileMutex.Unlock()

	if p.Name == "" {
		panic("profile: profile has no name")
	}
	if _, dup := profiles[p.Name]; dup {
		panic(fmt.Sprintf("profile: profile already registered (%s)", p.Name))
	}
	profiles[p.Name] = p
}

func Lookup(name string) (Profile, error) {
	profileMutex.Lock()
	defer profileMutex.Unlock()

	if p, exists := profiles[name]; exists {
		return p, nil
	}
	return Profile{}, errors.Wrapf(stream.ErrConfig, "unknown profile %q", name)
}

// Names lists registered profiles in lexical order.
func Names() (names []string) {
	profileMutex.Lock()
	defer profileMutex.Unlock()

	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SyncConfig returns the synchronizer configuration for the profile with
// default threshold and search span.
func (p Profile) SyncConfig() framesync.Config {
	return framesync.Config{
		Syncword:   p.Syncword,
		PayloadLen: p.PayloadLen,
		Polarity:   p.Polarity,
	}
}

// Scrambler returns the profile's scrambling sequence, nil if unscrambled.
func (p Profile) Scrambler() (*scramble.Sequence, error) {
	if len(p.Sequence) == 0 {
		return nil, nil
	}
	seq, err := scramble.NewSequence(p.Sequence)
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (p Profile) String() string {
	return fmt.Sprintf("{Name:%s Syncword:%s PayloadLen:%d Polarity:%d Sequence:%s}",
		p.Name, p.Syncword, p.PayloadLen, p.Polarity, hex.EncodeToString(p.Sequence[:min(len(p.Sequence), 4)]),
	)
}

func init() {
	Register(Profile{
		Name:       "ccsds",
		Syncword:   "1ACFFC1D",
		PayloadLen: 223 * 8,
		Polarity:   1,
		Sequence:   scramble.CCSDS(223),
	})

	Register(Profile{
		Name:       "move2",
		Syncword:   "49E0DCC7",
		PayloadLen: 2048,
		Polarity:   1,
		Sequence:   move2Sequence,
	})
}

// Scrambling sequence of the MOVE-II cubesat downlink.
var move2Sequence = []byte{
	0xFF, 0x12, 0x70, 0x03, 0x59, 0xB0, 0x0E, 0x3D, 0x71, 0x34, 0xC9, 0xB5,
	0xE5, 0xED, 0x62, 0x73, 0x5A, 0xE9, 0xBE, 0x33, 0x4C, 0x45, 0xFD, 0x7C,
	0x50, 0x08, 0x8F, 0x11, 0x29, 0xB3, 0x57, 0x8D, 0x7F, 0x09, 0xB8, 0x81,
	0x2C, 0x58, 0x87, 0x9E, 0x38, 0x9A, 0xE4, 0xDA, 0xF2, 0x76, 0xB1, 0x39,
	0xAD, 0x74, 0xDF, 0x19, 0xA6, 0xA2, 0x7E, 0x3E, 0x28, 0x84, 0xC7, 0x88,
	0x94, 0xD9, 0xAB, 0xC6, 0xBF, 0x04, 0xDC, 0x40, 0x16, 0xAC, 0x43, 0x4F,
	0x1C, 0x4D, 0x72, 0x6D, 0x79, 0xBB, 0xD8, 0x9C, 0x56, 0xBA, 0xEF, 0x0C,
	0x53, 0x51, 0x3F, 0x1F, 0x14, 0xC2, 0x63, 0x44, 0xCA, 0xEC, 0x55, 0xE3,
	0x5F, 0x02, 0x6E, 0x20, 0x0B, 0xD6, 0xA1, 0x27, 0x8E, 0x26, 0xB9, 0xB6,
	0xBC, 0x5D, 0x6C, 0x4E, 0x2B, 0xDD, 0x77, 0x86, 0xA9, 0xA8, 0x9F, 0x0F,
	0x0A, 0xE1, 0x31, 0x22, 0x65, 0xF6, 0xAA, 0xF1, 0x2F, 0x01, 0x37, 0x90,
	0x05, 0xEB, 0xD0, 0x13, 0x47, 0x93, 0x5C, 0x5B, 0xDE, 0x2E, 0x36, 0xA7,
	0x95, 0xEE, 0x3B, 0xC3, 0x54, 0xD4, 0xCF, 0x07, 0x85, 0xF0, 0x18, 0x91,
	0x32, 0x7B, 0xD5, 0xF8, 0x97, 0x80, 0x1B, 0xC8, 0x82, 0x75, 0xE8, 0x89,
	0xA3, 0x49, 0xAE, 0x2D, 0x6F, 0x17, 0x9B, 0xD3, 0x4A, 0xF7, 0x9D, 0x61,
	0x2A, 0xEA, 0xE7, 0x83, 0x42, 0x78, 0x8C, 0x48, 0x99, 0xBD, 0x6A, 0xFC,
	0x4B, 0xC0, 0x0D, 0x64, 0xC1, 0x3A, 0xF4, 0xC4, 0xD1, 0x24, 0xD7, 0x96,
	0xB7, 0x8B, 0xCD, 0x69, 0xA5, 0xFB, 0xCE, 0x30, 0x15, 0xF5, 0xF3, 0x41,
	0x21, 0x3C, 0x46, 0xA4, 0xCC, 0x5E, 0x35, 0xFE, 0x25, 0xE0, 0x06, 0xB2,
	0x60, 0x1D, 0x7A, 0xE2, 0x68, 0x92, 0x6B, 0xCB, 0xDB, 0xC5, 0xE6, 0xB4,
	0xD2, 0x7D, 0x67, 0x98, 0x8A, 0xFA, 0xF9, 0xA0, 0x10, 0x1E, 0x23, 0x52,
	0x66, 0xAF, 0x1A, 0xFF,
}
