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

package netprovider

import (
	"errors"
	"sync"
	"time"

	"github/sabouaram/asynchttp/asynclog"
	"github/sabouaram/asynchttp/comm"
	"github/sabouaram/asynchttp/httpclient"
)

// ConnectTimeout bounds how long a single dial attempt may take before it
// is reported as ConnectionFailed.
const ConnectTimeout = 30 * time.Second

// defaultWorkers is how many dial requests DefaultConnectionProvider
// services concurrently when the caller doesn't ask for a specific count.
const defaultWorkers = 4

type dialRequest struct {
	origin httpclient.Origin
	ready  func(comm.Socket)
	failed func(httpclient.FailureReason, error)
}

// DefaultConnectionProvider turns queued origins into sockets on a small
// pool of background goroutines. It understands exactly one scheme,
// "http"; anything else is rejected as UnsupportedProtocol without
// touching the network, since this module has no TLS stack to offer "https".
type DefaultConnectionProvider struct {
	stack          NetworkStack
	connectTimeout time.Duration

	mu        sync.Mutex
	pending   []dialRequest
	closed    bool
	overrides map[string]string

	log *asynclog.Logger

	wake chan struct{}
	wg   sync.WaitGroup
}

// Option configures a DefaultConnectionProvider at construction.
type Option func(*DefaultConnectionProvider)

// WithLogger makes the provider log dial failures through log instead of
// discarding them. A nil log is ignored.
func WithLogger(log *asynclog.Logger) Option {
	return func(p *DefaultConnectionProvider) {
		if log != nil {
			p.log = log
		}
	}
}

// NewDefaultConnectionProvider creates a provider dialing through stack
// with workers background goroutines. workers <= 0 defaults to 4.
func NewDefaultConnectionProvider(stack NetworkStack, workers int, opts ...Option) *DefaultConnectionProvider {
	if workers <= 0 {
		workers = defaultWorkers
	}

	p := &DefaultConnectionProvider{
		stack:          stack,
		connectTimeout: ConnectTimeout,
		wake:           make(chan struct{}, 1),
		log:            asynclog.Discard(),
	}
	for _, o := range opts {
		o(p)
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// SetOverrides replaces the host -> address override map consulted by
// every dial issued after this call returns. Passing nil clears it. This
// is the hook config.Loader's hot reload writes through when the DNS
// override section of the configuration file changes on disk.
func (p *DefaultConnectionProvider) SetOverrides(overrides map[string]string) {
	cp := make(map[string]string, len(overrides))
	for k, v := range overrides {
		cp[k] = v
	}

	p.mu.Lock()
	p.overrides = cp
	p.mu.Unlock()
}

func (p *DefaultConnectionProvider) resolveAddress(origin httpclient.Origin) string {
	p.mu.Lock()
	override, ok := p.overrides[origin.Host]
	p.mu.Unlock()

	if ok {
		return override + ":" + origin.Port
	}
	return origin.Address()
}

// Dial implements httpclient.ConnectionProvider.
func (p *DefaultConnectionProvider) Dial(origin httpclient.Origin, ready func(comm.Socket), failed func(httpclient.FailureReason, error)) {
	if origin.Scheme != "http" {
		failed(httpclient.UnsupportedProtocol, nil)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		failed(httpclient.ConnectionFailed, errors.New("connection provider is closed"))
		return
	}
	p.pending = append(p.pending, dialRequest{origin: origin, ready: ready, failed: failed})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *DefaultConnectionProvider) worker() {
	defer p.wg.Done()

	for {
		req, ok := p.nextUnsatisfied()
		if ok {
			conn, err := p.stack.Connect(p.resolveAddress(req.origin), p.connectTimeout)
			if err != nil {
				p.log.Warnf("dial failed").
					FieldAdd("origin", req.origin.Key()).
					ErrorAdd(err).
					Log()
				req.failed(httpclient.ConnectionFailed, err)
			} else {
				req.ready(comm.NewSocket(conn))
			}
			continue
		}

		select {
		case _, open := <-p.wake:
			if !open {
				return
			}
		case <-time.After(100 * time.Millisecond):
		}

		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return
		}
	}
}

func (p *DefaultConnectionProvider) nextUnsatisfied() (dialRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) == 0 {
		return dialRequest{}, false
	}
	req := p.pending[0]
	p.pending = p.pending[1:]
	return req, true
}

// Close stops accepting new dials, drains any already queued, and waits
// for every worker goroutine to exit.
func (p *DefaultConnectionProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	close(p.wake)
	p.wg.Wait()
	return nil
}
