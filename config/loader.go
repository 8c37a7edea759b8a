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

package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	liberr "github/sabouaram/asynchttp/errors"
)

// DNSOverrideSink receives the DNS override map every time the watched
// configuration file changes. netprovider.DefaultConnectionProvider.SetOverrides
// matches this signature.
type DNSOverrideSink func(map[string]string)

// Loader reads Options from a file (any format Viper supports: yaml, json,
// toml, ...) and, once started, watches that file for changes so the DNS
// override map can be hot-reloaded without restarting the process. Every
// other Options field is read once at Load and never re-read, since
// connection pool sizing and timeouts are not safe to change under an
// event loop that is already running.
type Loader struct {
	v *viper.Viper

	mu    sync.Mutex
	sinks []DNSOverrideSink
}

// NewLoader creates a Loader reading path, whose format is inferred from
// its extension.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigFile(path)
	return &Loader{v: v}
}

// Load reads the configuration file and unmarshals it into an Options,
// merged over DefaultOptions so a partial file only overrides what it
// names.
func (l *Loader) Load() (Options, liberr.Error) {
	opt := DefaultOptions()

	if err := l.v.ReadInConfig(); err != nil {
		return opt, ErrorLoadFile.Error(err)
	}
	if err := l.v.Unmarshal(&opt); err != nil {
		return opt, ErrorLoadFile.Error(err)
	}

	if e := opt.Validate(); e != nil {
		return opt, e
	}

	return opt, nil
}

// OnDNSOverrideChange registers sink to be called, with the freshly
// reloaded DNS override map, every time the watched file changes. Call
// Watch after registering every sink.
func (l *Loader) OnDNSOverrideChange(sink DNSOverrideSink) {
	l.mu.Lock()
	l.sinks = append(l.sinks, sink)
	l.mu.Unlock()
}

// Watch starts watching the configuration file for changes, invoking every
// registered sink with the reloaded DNS override map on each write. The
// watch runs on Viper's own fsnotify goroutine; Watch itself returns
// immediately.
func (l *Loader) Watch() liberr.Error {
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		opt := DefaultOptions()
		if err := l.v.Unmarshal(&opt); err != nil {
			return
		}

		l.mu.Lock()
		sinks := append([]DNSOverrideSink(nil), l.sinks...)
		l.mu.Unlock()

		for _, sink := range sinks {
			sink(opt.DNSMapper)
		}
	})
	l.v.WatchConfig()
	return nil
}
