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
	"flag"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors the command line flags for use in a yaml file. Keys are the
// flag names; absent keys leave the flag untouched.
type Config struct {
	Profile      *string  `yaml:"profile"`
	Syncword     *string  `yaml:"syncword"`
	PayloadLen   *int     `yaml:"payloadlen"`
	Polarity     *int     `yaml:"polarity"`
	Threshold    *float64 `yaml:"threshold"`
	SearchSpan   *int     `yaml:"searchspan"`
	TagKey       *string  `yaml:"tagkey"`
	Sequence     *string  `yaml:"sequence"`
	CCSDS        *bool    `yaml:"ccsds"`
	FECF         *bool    `yaml:"fecf"`
	NoDescramble *bool    `yaml:"nodescramble"`
	In           *string  `yaml:"in"`
	Out          *string  `yaml:"out"`
	BlockSize    *int     `yaml:"blocksize"`
	Buffer       *int     `yaml:"buffer"`
	Format       *string  `yaml:"format"`
	LogLevel     *string  `yaml:"loglevel"`
	Metrics      *string  `yaml:"metrics"`
}

// LoadConfig decodes a yaml configuration file, rejecting unknown keys.
func LoadConfig(filename string) (cfg Config, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "decoding %s", filename)
	}

	return cfg, nil
}

// Values returns the configured values keyed by flag name.
func (cfg Config) Values() map[string]string {
	values := map[string]string{}

	v := reflect.ValueOf(cfg)
	t := v.Type()
	for idx := 0; idx < t.NumField(); idx++ {
		field := v.Field(idx)
		if field.IsNil() {
			continue
		}

		name := t.Field(idx).Tag.Get("yaml")
		switch elem := field.Elem(); elem.Kind() {
		case reflect.String:
			values[name] = elem.String()
		case reflect.Int:
			values[name] = strconv.FormatInt(elem.Int(), 10)
		case reflect.Float64:
			values[name] = strconv.FormatFloat(elem.Float(), 'g', -1, 64)
		case reflect.Bool:
			values[name] = strconv.FormatBool(elem.Bool())
		}
	}

	return values
}

// Apply sets every configured flag of fs not named in explicit.
func (cfg Config) Apply(fs *flag.FlagSet, explicit map[string]bool) error {
	for name, value := range cfg.Values() {
		if explicit[name] {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return errors.Wrapf(err, "config key %q", name)
		}
	}
	return nil
}
