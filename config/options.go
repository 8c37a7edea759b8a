/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the client's tunables as a validated, serializable
// struct, loadable from a file and optionally hot-reloaded for the parts
// that are safe to change at runtime (DNS overrides).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"

	"github/sabouaram/asynchttp/duration"
	liberr "github/sabouaram/asynchttp/errors"
)

// PoolOptions governs the DefaultConnectionProvider's worker pool.
type PoolOptions struct {
	Workers        int             `json:"workers" yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	ConnectTimeout duration.Duration `json:"connect_timeout" yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// ClientOptions governs timeouts the Client scheduler and ClientConnection
// state machine enforce on every exchange.
type ClientOptions struct {
	IdleTimeout    duration.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	NetworkTimeout duration.Duration `json:"network_timeout" yaml:"network_timeout" mapstructure:"network_timeout"`
	MaxRestarts    int             `json:"max_restarts" yaml:"max_restarts" mapstructure:"max_restarts" validate:"gte=0"`
}

// Options is the top-level configuration struct: validated through
// struct tags, serializable as JSON or YAML, and loadable (with hot
// reload of the DNS override map) through Loader.
type Options struct {
	Client     ClientOptions     `json:"client" yaml:"client" mapstructure:"client"`
	Pool       PoolOptions       `json:"pool" yaml:"pool" mapstructure:"pool"`
	DNSMapper  map[string]string `json:"dns_mapper,omitempty" yaml:"dns_mapper,omitempty" mapstructure:"dns_mapper,omitempty"`
}

// DefaultOptions returns the configuration this client uses absent a
// configuration file.
func DefaultOptions() Options {
	return Options{
		Client: ClientOptions{
			IdleTimeout:    duration.ParseDuration(30 * time.Second),
			NetworkTimeout: duration.ParseDuration(30 * time.Second),
			MaxRestarts:    1,
		},
		Pool: PoolOptions{
			Workers:        4,
			ConnectTimeout: duration.ParseDuration(30 * time.Second),
		},
	}
}

// DefaultConfig renders DefaultOptions as indented JSON, for writing a
// starter configuration file.
func DefaultConfig(indent string) []byte {
	def, err := json.Marshal(DefaultOptions())
	if err != nil {
		return nil
	}

	res := bytes.NewBuffer(make([]byte, 0, len(def)))
	if err = json.Indent(res, def, "", indent); err != nil {
		return def
	}
	return res.Bytes()
}

// Validate runs struct-tag validation over o, returning every constraint
// violation collected into a single error.
func (o Options) Validate() liberr.Error {
	e := ErrorValidatorError.Error(nil)

	if err := libval.New().Struct(o); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		} else if errs, ok := err.(libval.ValidationErrors); ok {
			for _, er := range errs {
				e.Add(fmt.Errorf("config field '%s' does not satisfy constraint '%s'", er.Namespace(), er.ActualTag()))
			}
		} else {
			e.Add(err)
		}
	}

	if !e.HasParent() {
		return nil
	}
	return e
}
