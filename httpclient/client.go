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

package httpclient

import (
	"sync"
	"time"

	"github/sabouaram/asynchttp/async"
	"github/sabouaram/asynchttp/asynclog"
	"github/sabouaram/asynchttp/atomic"
	"github/sabouaram/asynchttp/comm"
	"github/sabouaram/asynchttp/metrics"
)

// schedulerTick bounds how long the event loop sleeps in a single
// Controller.Wait call. It wakes up at least this often even with nothing
// posted, so newly submitted or cancelled requests get noticed and
// per-connection timeouts keep advancing.
const schedulerTick = 250 * time.Millisecond

// MaxConnectionsPerOrigin caps how many simultaneous connections the
// client will open to a single Origin.
const MaxConnectionsPerOrigin = 6

// wakeOp is an inert Operation posted purely to cut a Controller.Wait
// short when Submit or Cancel changes state the loop needs to reconsider
// immediately rather than at the next tick.
type wakeOp struct{}

func (wakeOp) Cancel()          {}
func (wakeOp) Cancelled() bool  { return false }

var theWake async.Operation = wakeOp{}

type queuedRequest struct {
	id  uint64
	req ClientRequest
}

// Client is the scheduler: a FIFO of requests waiting for a connection, a
// pool of ClientConnection per Origin, and the single goroutine (Run) that
// drains async.Controller and drives every connection's state machine.
type Client struct {
	ctl      *async.Controller
	provider ConnectionProvider

	mu        sync.Mutex
	queue     []queuedRequest
	nextID    uint64
	cancelled map[uint64]bool
	pool      map[string][]*ClientConnection
	dialing   map[string]int

	// opOwner associates an in-flight async.Operation with the connection
	// that posted it. It is never read or written alongside queue/pool/
	// dialing in the same invariant, so it is kept outside c.mu entirely,
	// backed by atomic.MapTyped's sync.Map rather than a second lock.
	opOwner atomic.MapTyped[async.Operation, *ClientConnection]

	stopped bool
	stop    chan struct{}
	done    chan struct{}

	log     *asynclog.Logger
	metrics *metrics.Collectors
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithLogger makes the Client (and every connection it dials) log through
// log instead of discarding. A nil log is ignored.
func WithLogger(log *asynclog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics makes the Client report through collectors. A nil collectors
// is ignored and the Client keeps reporting nothing.
func WithMetrics(collectors *metrics.Collectors) ClientOption {
	return func(c *Client) {
		if collectors != nil {
			c.metrics = collectors
		}
	}
}

// NewClient creates a scheduler that dials new connections through
// provider. Call Run (in its own goroutine) to start servicing requests.
func NewClient(provider ConnectionProvider, opts ...ClientOption) *Client {
	c := &Client{
		ctl:       async.NewController(),
		provider:  provider,
		cancelled: make(map[uint64]bool),
		pool:      make(map[string][]*ClientConnection),
		dialing:   make(map[string]int),
		opOwner:   atomic.NewMapTyped[async.Operation, *ClientConnection](),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       asynclog.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit enqueues req and returns an id Cancel can later use to abort it,
// whether it is still waiting in the queue or already running on a
// connection.
func (c *Client) Submit(req ClientRequest) uint64 {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.queue = append(c.queue, queuedRequest{id: id, req: req})
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RequestsQueued.Inc()
	}
	c.ctl.Post(theWake)
	return id
}

// Cancel aborts the request identified by id. A no-op if it already
// finished. Cancelling a queued request reports Cancelled synchronously;
// cancelling one in flight marks it and lets the connection's own
// cancellation path (Operation.Cancel, checked before the notifier fires)
// report it once the in-flight I/O unwinds.
func (c *Client) Cancel(id uint64) {
	c.mu.Lock()
	for i, q := range c.queue {
		if q.id == id {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			c.mu.Unlock()
			if c.metrics != nil {
				c.metrics.RequestsQueued.Dec()
				c.metrics.RequestCancelled()
			}
			q.req.HandleFailure(Cancelled, nil)
			return
		}
	}
	c.cancelled[id] = true
	var conns []*ClientConnection
	for _, list := range c.pool {
		conns = append(conns, list...)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		conn.CancelCurrent()
	}
}

// Run drives the event loop until Stop is called. It is meant to run on
// its own goroutine for the lifetime of the Client.
func (c *Client) Run() {
	defer close(c.done)

	last := time.Time{}
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		op := c.ctl.Wait(schedulerTick)

		now := time.Now()
		var elapsed time.Duration
		if !last.IsZero() {
			elapsed = now.Sub(last)
		}
		last = now

		if op != nil {
			c.handleOp(op)
		}
		c.tickAll(elapsed)
		c.assignQueued()
		c.ensureDialing()
	}
}

// Stop halts the event loop and waits for it to exit. Connections already
// in the pool are not closed; call Close afterward for a full shutdown.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
}

// Close stops the event loop (if still running) and closes every pooled
// connection.
func (c *Client) Close() error {
	c.Stop()

	c.mu.Lock()
	var conns []*ClientConnection
	for _, list := range c.pool {
		conns = append(conns, list...)
	}
	c.pool = make(map[string][]*ClientConnection)
	c.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return c.provider.Close()
}

func (c *Client) handleOp(op async.Operation) {
	if op == theWake {
		return
	}

	conn, ok := c.opOwner.LoadAndDelete(op)
	if !ok {
		return
	}

	switch conn.HandleEvent(op) {
	case WaitForRequest:
		// connection goes back to idle; assignQueued will find it.
	case Shutdown:
		c.teardown(conn)
	case RestartRequested:
		req := conn.TakeRestart()
		if c.metrics != nil {
			c.metrics.RequestRestarted(conn.Origin().Key())
		}
		c.log.Infof("restarting request on a new connection").
			FieldAdd("origin", conn.Origin().Key()).
			Log()
		c.teardown(conn)
		if req != nil {
			c.requeue(req)
		}
	case Transferring:
	}
}

func (c *Client) tickAll(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}

	c.mu.Lock()
	var conns []*ClientConnection
	for _, list := range c.pool {
		conns = append(conns, list...)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		if conn.Tick(elapsed) == Shutdown {
			c.teardown(conn)
		}
	}
}

func (c *Client) requeue(req ClientRequest) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.queue = append(c.queue, queuedRequest{id: id, req: req})
	c.mu.Unlock()

	c.ctl.Post(theWake)
}

// assignQueued repeatedly pairs the first eligible queued request it finds
// with an idle connection for that request's origin, until none remain.
func (c *Client) assignQueued() {
	for {
		c.mu.Lock()
		idx := -1
		var conn *ClientConnection
		var wasCancelled bool
		for i, q := range c.queue {
			if c.cancelled[q.id] {
				idx = i
				wasCancelled = true
				break
			}
			if cc := c.findIdleLocked(q.req.Target()); cc != nil {
				idx = i
				conn = cc
				break
			}
		}
		if idx < 0 {
			c.mu.Unlock()
			return
		}

		q := c.queue[idx]
		c.queue = append(c.queue[:idx], c.queue[idx+1:]...)
		delete(c.cancelled, q.id)
		c.mu.Unlock()

		if wasCancelled {
			if c.metrics != nil {
				c.metrics.RequestsQueued.Dec()
				c.metrics.RequestCancelled()
			}
			q.req.HandleFailure(Cancelled, nil)
			continue
		}

		if !conn.Submit(q.req) {
			c.mu.Lock()
			c.queue = append([]queuedRequest{q}, c.queue...)
			c.mu.Unlock()
			return
		}
		if c.metrics != nil {
			c.metrics.RequestsQueued.Dec()
		}
	}
}

func (c *Client) findIdleLocked(origin Origin) *ClientConnection {
	for _, conn := range c.pool[origin.Key()] {
		if conn.State() == WantWait {
			return conn
		}
	}
	return nil
}

// ensureDialing starts new connection attempts for origins that have
// queued work but no idle connection and room left under
// MaxConnectionsPerOrigin.
func (c *Client) ensureDialing() {
	c.mu.Lock()
	needed := make(map[string]Origin)
	for _, q := range c.queue {
		if c.cancelled[q.id] {
			continue
		}
		origin := q.req.Target()
		key := origin.Key()
		if c.findIdleLocked(origin) != nil {
			continue
		}
		if len(c.pool[key])+c.dialing[key] >= MaxConnectionsPerOrigin {
			continue
		}
		needed[key] = origin
	}
	for key, origin := range needed {
		c.dialing[key]++
		o := origin
		c.provider.Dial(o, c.onDialReady(o), c.onDialFailed(o))
	}
	c.mu.Unlock()
}

func (c *Client) onDialReady(origin Origin) func(comm.Socket) {
	return func(sock comm.Socket) {
		c.mu.Lock()
		key := origin.Key()
		if c.dialing[key] > 0 {
			c.dialing[key]--
		}
		var conn *ClientConnection
		conn = NewClientConnection(sock, c.ctl, origin, func(op async.Operation) {
			c.opOwner.Store(op, conn)
		})
		conn.SetLogger(c.log)
		c.pool[key] = append(c.pool[key], conn)
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.ConnectionOpened(key)
		}
		c.log.Debugf("connection opened").FieldAdd("origin", key).Log()
		c.ctl.Post(theWake)
	}
}

func (c *Client) onDialFailed(origin Origin) func(FailureReason, error) {
	return func(reason FailureReason, err error) {
		c.mu.Lock()
		key := origin.Key()
		if c.dialing[key] > 0 {
			c.dialing[key]--
		}

		stillTrying := c.dialing[key] > 0 || len(c.pool[key]) > 0

		var failed []queuedRequest
		if !stillTrying {
			remaining := c.queue[:0:0]
			for _, q := range c.queue {
				if q.req.Target().Key() == key {
					failed = append(failed, q)
				} else {
					remaining = append(remaining, q)
				}
			}
			c.queue = remaining
		}
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.ConnectFailed(key, reason.String())
			if len(failed) > 0 {
				c.metrics.RequestsQueued.Add(-float64(len(failed)))
			}
		}
		c.log.Warnf("dial failed").
			FieldAdd("origin", key).
			FieldAdd("reason", reason.String()).
			ErrorAdd(err).
			Log()

		for _, q := range failed {
			q.req.HandleFailure(reason, err)
		}
	}
}

func (c *Client) teardown(conn *ClientConnection) {
	c.mu.Lock()
	key := conn.Origin().Key()
	list := c.pool[key]
	for i, cc := range list {
		if cc == conn {
			c.pool[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ConnectionClosed(key)
	}
	c.log.Debugf("connection closed").FieldAdd("origin", key).Log()

	_ = conn.Close()
	c.ctl.Post(theWake)
}

// Pending reports how many requests are queued but not yet assigned to a
// connection. Exposed for metrics.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Connections reports how many connections are currently pooled (idle or
// busy) across every origin. Exposed for metrics.
func (c *Client) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, list := range c.pool {
		n += len(list)
	}
	return n
}
