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

package async

import (
	"net"
	"sync"
)

// Operation is the common handle an async I/O request is tracked by. It
// carries no behavior of its own beyond identity and the completion
// bookkeeping shared by every concrete operation kind.
type Operation interface {
	// Cancel requests that the operation never deliver a completion.
	// Synchronous and idempotent: it always returns promptly, and calling
	// it twice (or after completion already fired) is a no-op.
	Cancel()
	// Cancelled reports whether Cancel was ever called on this operation.
	Cancelled() bool
}

type base struct {
	mu        sync.Mutex
	once      sync.Once
	cancelled bool
	notifier  Notifier
	ctl       *Controller
}

func (b *base) attach(ctl *Controller, n Notifier) {
	b.mu.Lock()
	b.ctl = ctl
	b.notifier = n
	b.mu.Unlock()
}

func (b *base) Cancel() {
	b.mu.Lock()
	b.cancelled = true
	b.mu.Unlock()
}

func (b *base) Cancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// complete posts self to the attached Controller exactly once, and only if
// Cancel was not called first. The Notifier recorded by attach is not
// called here; completion is delivered only through Controller.Post.
func (b *base) complete(self Operation) {
	b.mu.Lock()
	cancelled := b.cancelled
	ctl := b.ctl
	b.mu.Unlock()

	if cancelled {
		return
	}

	b.once.Do(func() {
		if ctl != nil {
			ctl.Post(self)
		}
	})
}

// SendOperation tracks an in-progress write of a fixed byte range. A send
// may complete in several partial writes; AddSentBytes accumulates
// progress across them.
type SendOperation struct {
	base
	data Buffer
	sent int
}

// NewSendOperation creates a send operation over data. No bytes are
// considered sent yet.
func NewSendOperation(data Buffer) *SendOperation {
	return &SendOperation{data: data}
}

// UnsentBytes returns the portion of data not yet reported sent.
func (s *SendOperation) UnsentBytes() Buffer { return s.data.SubRange(s.sent) }

// AddSentBytes records that n more bytes were written.
func (s *SendOperation) AddSentBytes(n int) { s.sent += n }

// NumSentBytes returns the total bytes sent so far.
func (s *SendOperation) NumSentBytes() int { return s.sent }

// IsCompleted reports whether the whole payload has been sent.
func (s *SendOperation) IsCompleted() bool { return s.sent >= s.data.Size() }

// Attach binds the operation to the controller and notifier that should
// receive its completion. It is called by the Socket implementation that
// owns the operation, never by application code directly.
func (s *SendOperation) Attach(ctl *Controller, n Notifier) { s.attach(ctl, n) }

// Complete posts this operation to its controller's ready queue, unless it
// was cancelled first.
func (s *SendOperation) Complete() { s.complete(s) }

// ReceiveOperation tracks an in-progress read into a fixed byte range. Like
// SendOperation, a receive may complete over several partial reads.
type ReceiveOperation struct {
	base
	data     MutableBuffer
	received int
}

// NewReceiveOperation creates a receive operation over data. No bytes are
// considered received yet.
func NewReceiveOperation(data MutableBuffer) *ReceiveOperation {
	return &ReceiveOperation{data: data}
}

// UnreceivedBytes returns the portion of data not yet filled.
func (r *ReceiveOperation) UnreceivedBytes() MutableBuffer { return r.data.SubRange(r.received) }

// AddReceivedBytes records that n more bytes were filled in.
func (r *ReceiveOperation) AddReceivedBytes(n int) { r.received += n }

// NumReceivedBytes returns the total bytes received so far.
func (r *ReceiveOperation) NumReceivedBytes() int { return r.received }

// IsCompleted reports whether the destination buffer has been fully filled.
func (r *ReceiveOperation) IsCompleted() bool { return r.received >= r.data.Size() }

// Attach binds the operation to the controller and notifier that should
// receive its completion.
func (r *ReceiveOperation) Attach(ctl *Controller, n Notifier) { r.attach(ctl, n) }

// Complete posts this operation to its controller's ready queue, unless it
// was cancelled first.
func (r *ReceiveOperation) Complete() { r.complete(r) }

// CopyFrom transfers as many bytes as possible directly from a matched
// SendOperation into this receive, advancing both operations' progress.
// It returns the number of bytes moved. This is the in-process loopback
// path used when a send and a receive on paired endpoints are serviced by
// the same Controller tick.
func (r *ReceiveOperation) CopyFrom(s *SendOperation) int {
	n := r.UnreceivedBytes().CopyFrom(s.UnsentBytes())
	r.AddReceivedBytes(n)
	s.AddSentBytes(n)
	return n
}

// AcceptOperation tracks a pending accept on a listening Socket. The core
// HTTP client never listens; this exists for symmetry with the comm
// package's Socket capability and is exercised by this package's own tests.
type AcceptOperation struct {
	base
	conn net.Conn
}

// NewAcceptOperation creates an empty accept operation.
func NewAcceptOperation() *AcceptOperation {
	return &AcceptOperation{}
}

// SetConn records the accepted connection.
func (a *AcceptOperation) SetConn(c net.Conn) { a.conn = c }

// Conn returns the accepted connection, or nil if none was set yet.
func (a *AcceptOperation) Conn() net.Conn { return a.conn }

// Attach binds the operation to the controller and notifier that should
// receive its completion.
func (a *AcceptOperation) Attach(ctl *Controller, n Notifier) { a.attach(ctl, n) }

// Complete posts this operation to its controller's ready queue, unless it
// was cancelled first.
func (a *AcceptOperation) Complete() { a.complete(a) }
