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
	"bytes"
	"errors"
	"sync"
	"time"

	"github/sabouaram/asynchttp/async"
	"github/sabouaram/asynchttp/asynclog"
	"github/sabouaram/asynchttp/comm"
)

// State is one step of the per-connection HTTP/1.x exchange state machine.
type State int

const (
	// WantWait means the connection is idle and able to accept a new
	// request.
	WantWait State = iota
	BeforeSend
	DuringSend
	BeforeReceiveHeader
	DuringReceiveHeader
	BeforeReceivePayload
	DuringReceivePayload
	// WantClose means the connection is done and should be torn down by
	// its owner.
	WantClose
)

// String names the state for logging.
func (s State) String() string {
	switch s {
	case WantWait:
		return "want-wait"
	case BeforeSend:
		return "before-send"
	case DuringSend:
		return "during-send"
	case BeforeReceiveHeader:
		return "before-receive-header"
	case DuringReceiveHeader:
		return "during-receive-header"
	case BeforeReceivePayload:
		return "before-receive-payload"
	case DuringReceivePayload:
		return "during-receive-payload"
	case WantClose:
		return "want-close"
	default:
		return "unknown"
	}
}

// Result tells the Client scheduler what to do next with a connection
// after a Tick or HandleEvent call.
type Result int

const (
	// Shutdown means the connection is finished and must be closed.
	Shutdown Result = iota
	// WaitForRequest means the connection is idle and can be handed a new
	// request.
	WaitForRequest
	// Transferring means an exchange is in progress; leave it alone.
	Transferring
	// RestartRequested means the connection closed before the current
	// request saw any response bytes and the request opted in to being
	// retried. The scheduler should pull the request back out with
	// TakeRestart and resubmit it to a different connection; the
	// connection itself is done and must be closed.
	RestartRequested
)

const scratchSize = 4096

// IdleTimeout is how long a connection may sit in WantWait before the
// client closes it.
const IdleTimeout = 30 * time.Second

// NetworkTimeout is how long any single send/receive phase of an exchange
// may take before it is treated as a NetworkError.
const NetworkTimeout = 30 * time.Second

// ClientConnection drives one HTTP/1.x exchange at a time over a Socket,
// advancing through State as async send/receive operations posted on ctl
// complete. It owns no goroutine of its own: the Client event loop calls
// HandleEvent/Tick from its single loop goroutine.
type ClientConnection struct {
	mu sync.Mutex

	socket comm.Socket
	ctl    *async.Controller
	origin Origin

	state State
	req   ClientRequest

	sendOp *async.SendOperation
	recvOp *async.ReceiveOperation
	scratchArr [scratchSize]byte

	headerBuf *async.GrowableBuffer
	sink      DataSink
	resp      *Response
	isHead    bool

	pendingRestart ClientRequest

	idleElapsed    time.Duration
	networkElapsed time.Duration

	onOpStart func(async.Operation)
	log       *asynclog.Logger
}

// NewClientConnection wraps socket as a connection bound to origin, whose
// async operations are posted on ctl. onOpStart, if non-nil, is called
// every time the connection starts a new send or receive operation, so a
// caller (the Client scheduler) can maintain an operation-to-connection
// index for dispatching HandleEvent. The connection logs nothing until
// SetLogger is called.
func NewClientConnection(socket comm.Socket, ctl *async.Controller, origin Origin, onOpStart func(async.Operation)) *ClientConnection {
	return &ClientConnection{
		socket:    socket,
		ctl:       ctl,
		origin:    origin,
		state:     WantWait,
		headerBuf: async.NewGrowableBuffer(scratchSize),
		onOpStart: onOpStart,
		log:       asynclog.Discard(),
	}
}

// Origin returns the target this connection is pooled under.
func (c *ClientConnection) Origin() Origin { return c.origin }

// SetLogger overrides the connection's logger. Called once by the scheduler
// right after construction; a nil log is ignored.
func (c *ClientConnection) SetLogger(log *asynclog.Logger) {
	if log != nil {
		c.log = log
	}
}

// State returns the connection's current state.
func (c *ClientConnection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit hands req to this connection if and only if it is currently idle.
// Returns false if the connection is busy or closing.
func (c *ClientConnection) Submit(req ClientRequest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != WantWait {
		return false
	}

	c.req = req
	c.headerBuf.Reset()
	c.resp = nil
	c.sink = nil
	c.idleElapsed = 0
	c.networkElapsed = 0
	c.state = BeforeSend
	c.beginSend()
	return true
}

func (c *ClientConnection) beginSend() {
	head := c.req.RenderHead()
	c.isHead = bytes.HasPrefix(head, []byte("HEAD "))
	body, _ := c.req.Body()

	payload := make([]byte, 0, len(head)+len(body))
	payload = append(payload, head...)
	payload = append(payload, body...)

	c.sendOp = async.NewSendOperation(async.Buffer(payload))
	c.state = DuringSend
	c.socket.SendAsync(c.ctl, c.sendOp, nil)
	if c.onOpStart != nil {
		c.onOpStart(c.sendOp)
	}
}

func (c *ClientConnection) beginReceive() {
	c.recvOp = async.NewReceiveOperation(async.MutableBuffer(c.scratchArr[:]))
	c.socket.ReceiveAsync(c.ctl, c.recvOp, nil)
	if c.onOpStart != nil {
		c.onOpStart(c.recvOp)
	}
}

// HandleEvent advances the state machine when op (previously posted by
// this connection's socket) completes. op belonging to a different
// connection is the caller's bug, not this method's concern -- the Client
// scheduler dispatches events to the connection that owns them.
func (c *ClientConnection) HandleEvent(op async.Operation) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.networkElapsed = 0

	switch c.state {
	case DuringSend:
		return c.onSendComplete()
	case DuringReceiveHeader:
		return c.onReceiveHeaderComplete()
	case DuringReceivePayload:
		return c.onReceivePayloadComplete()
	default:
		return c.resultFor()
	}
}

func (c *ClientConnection) onSendComplete() Result {
	if c.sendOp.Cancelled() {
		c.failCurrent(Cancelled, nil)
		return Shutdown
	}
	if !c.sendOp.IsCompleted() {
		// peer stopped accepting data mid-request -- nothing reached the
		// application on the other end, so this is the same restart
		// opportunity as a connection closing before any response bytes.
		if c.restartableLocked() {
			return c.requestRestartLocked()
		}
		c.failCurrent(NetworkError, errors.New("short write"))
		return Shutdown
	}

	c.state = BeforeReceiveHeader
	c.headerBuf.Reset()
	c.state = DuringReceiveHeader
	c.beginReceive()
	return Transferring
}

func (c *ClientConnection) onReceiveHeaderComplete() Result {
	if c.recvOp.Cancelled() {
		c.failCurrent(Cancelled, nil)
		return Shutdown
	}

	n := c.recvOp.NumReceivedBytes()
	if n == 0 {
		if c.restartableLocked() {
			return c.requestRestartLocked()
		}
		c.failCurrent(ConnectionClosed, nil)
		return Shutdown
	}

	c.headerBuf.Append(async.Buffer(c.scratchArr[:n]))

	raw := c.headerBuf.Bytes()
	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	if idx < 0 {
		c.beginReceive()
		return Transferring
	}

	resp, err := ParseResponseHead(raw[:idx])
	if err != nil {
		c.failCurrent(ServerError, err)
		return Shutdown
	}
	c.resp = resp

	if herr := c.req.HandleResponseHead(resp); herr != nil {
		c.failCurrent(ServerError, herr)
		return Shutdown
	}

	leftover := raw[idx+4:]

	sink, err := c.buildSinkPipeline(resp)
	if err != nil {
		c.failCurrent(ServerError, err)
		return Shutdown
	}
	c.sink = sink

	c.state = BeforeReceivePayload
	if len(leftover) > 0 {
		if _, werr := c.sink.Write(leftover); werr != nil {
			c.failCurrent(ServerError, werr)
			return Shutdown
		}
	}

	// a Content-Length body may have arrived whole with the headers, or be empty
	if limited, ok := c.sink.(*LimitedDataSink); ok && limited.Remaining() <= 0 {
		c.succeedCurrent()
		return WaitForRequest
	}

	c.state = DuringReceivePayload
	c.beginReceive()
	return Transferring
}

func (c *ClientConnection) buildSinkPipeline(resp *Response) (DataSink, error) {
	inner := &sinkFunc{
		write: func(p []byte) (int, error) {
			return len(p), c.req.HandleResponseData(p)
		},
		close: func() error { return nil },
	}

	decoded, err := NewInflateDataSink(inner, resp.ContentEncoding())
	if err != nil {
		return nil, err
	}

	framing, limit := resp.Framing(c.isHead)
	switch framing {
	case ByteLimit:
		return NewLimitedDataSink(decoded, limit), nil
	case ChunkLimit:
		return NewChunkedSink(decoded), nil
	default:
		return identitySink(decoded), nil
	}
}

func (c *ClientConnection) onReceivePayloadComplete() Result {
	if c.recvOp.Cancelled() {
		c.failCurrent(Cancelled, nil)
		return Shutdown
	}

	n := c.recvOp.NumReceivedBytes()
	if n == 0 {
		if !c.bodyComplete() {
			c.failCurrent(ConnectionClosed, nil)
			return Shutdown
		}
		_ = c.sink.Close()
		c.succeedCurrent()
		return WaitForRequest
	}

	if _, err := c.sink.Write(c.scratchArr[:n]); err != nil {
		c.failCurrent(ServerError, err)
		return Shutdown
	}

	if limited, ok := c.sink.(*LimitedDataSink); ok && limited.Remaining() <= 0 {
		c.succeedCurrent()
		return WaitForRequest
	}

	c.beginReceive()
	return Transferring
}

// bodyComplete reports whether the peer closing the connection right now
// ends the body legitimately. Only an unbounded (StreamLimit) body is
// allowed to end this way; a Content-Length or chunked body must reach its
// own terminator first, or the close is a truncation.
func (c *ClientConnection) bodyComplete() bool {
	switch sink := c.sink.(type) {
	case *LimitedDataSink:
		return sink.Remaining() <= 0
	case *ChunkedSink:
		return sink.Complete()
	default:
		return true
	}
}

// restartableLocked reports whether the current failure happened early
// enough -- before any response bytes were parsed -- that the request can
// safely be resent on a different connection. Caller must hold c.mu.
func (c *ClientConnection) restartableLocked() bool {
	return c.resp == nil && c.req != nil && c.req.ShouldRestart()
}

// requestRestartLocked parks the current request for the scheduler to pick
// up via TakeRestart and marks this connection for closing. Caller must
// hold c.mu.
func (c *ClientConnection) requestRestartLocked() Result {
	c.pendingRestart = c.req
	c.req = nil
	c.state = WantClose
	return RestartRequested
}

// TakeRestart returns and clears the request parked by a RestartRequested
// result, or nil if none is pending.
func (c *ClientConnection) TakeRestart() ClientRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := c.pendingRestart
	c.pendingRestart = nil
	return req
}

func (c *ClientConnection) succeedCurrent() {
	req := c.req
	c.req = nil
	c.state = WantWait
	c.idleElapsed = 0
	if req != nil {
		req.HandleSuccess()
	}
}

func (c *ClientConnection) failCurrent(reason FailureReason, err error) {
	req := c.req
	c.req = nil
	c.state = WantClose
	c.log.Warnf("request failed").
		FieldAdd("origin", c.origin.Key()).
		FieldAdd("reason", reason.String()).
		ErrorAdd(err).
		Log()
	if req != nil {
		req.HandleFailure(reason, err)
	}
}

func (c *ClientConnection) resultFor() Result {
	if c.state == WantWait {
		return WaitForRequest
	}
	if c.state == WantClose {
		return Shutdown
	}
	return Transferring
}

// Tick advances timeout bookkeeping by elapsed. It is called by the Client
// scheduler once per loop iteration regardless of whether an operation
// completed, so idle and network timeouts are enforced even when the peer
// never sends anything at all.
func (c *ClientConnection) Tick(elapsed time.Duration) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case WantWait:
		c.idleElapsed += elapsed
		if c.idleElapsed >= IdleTimeout {
			c.state = WantClose
			return Shutdown
		}
		return WaitForRequest

	case WantClose:
		return Shutdown

	default:
		c.networkElapsed += elapsed
		if c.networkElapsed >= NetworkTimeout {
			c.failCurrent(NetworkError, errors.New("network timeout"))
			return Shutdown
		}
		return Transferring
	}
}

// Close cancels any operation in flight, fails the in-progress request (if
// any) as Cancelled, and closes the underlying socket.
func (c *ClientConnection) Close() error {
	c.mu.Lock()
	req := c.req
	c.req = nil
	c.state = WantClose
	c.mu.Unlock()

	c.socket.Cancel()
	if req != nil {
		req.HandleFailure(Cancelled, nil)
	}
	return c.socket.Close()
}

// CancelCurrent cancels whatever operation is in flight for the current
// request, if any, without closing the socket. Used when a caller
// explicitly cancels a request that is mid-flight on this connection; the
// connection itself transitions to WantClose once the cancelled operation
// surfaces through HandleEvent.
func (c *ClientConnection) CancelCurrent() {
	c.mu.Lock()
	op := c.currentOpLocked()
	c.mu.Unlock()

	if op != nil {
		op.Cancel()
	}
	c.socket.Cancel()
}

func (c *ClientConnection) currentOpLocked() async.Operation {
	switch c.state {
	case DuringSend:
		return c.sendOp
	case DuringReceiveHeader, DuringReceivePayload:
		return c.recvOp
	default:
		return nil
	}
}

// CurrentRequest returns the request this connection is presently
// servicing, or nil if idle.
func (c *ClientConnection) CurrentRequest() ClientRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}
