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

// Package comm defines the capability interfaces the rest of this module
// programs against instead of net.Conn directly, plus a TCP-backed
// implementation. Keeping the narrow CommunicationObject/Socket surface
// separate from net.Conn lets httpclient and lineproto be tested against
// an in-process fake without ever opening a socket.
package comm

import (
	"github/sabouaram/asynchttp/async"
)

// CommunicationObject is the capability every endpoint this module talks
// to exposes: synchronous transfer, asynchronous transfer, and
// cancellation of any operation in flight.
type CommunicationObject interface {
	// Send writes data synchronously, blocking until fully written or an
	// error occurs.
	Send(data async.Buffer) error
	// Receive reads synchronously into data and returns as soon as any
	// bytes arrive or an error occurs -- one underlying read, not a loop
	// to fill data completely. The number of bytes actually filled may be
	// (and typically is) less than len(data); 0 with a nil error never
	// happens, 0 with io.EOF does.
	Receive(data async.MutableBuffer) (int, error)

	// SendAsync starts an asynchronous write of op's payload and returns
	// immediately. op is posted to ctl once the transfer completes; an op
	// cancelled before then is not posted, and n is recorded on op but not
	// called. Partial completion (less than the full payload) is a
	// valid way for the transfer to finish if the peer stops accepting
	// data; it is still reported as complete.
	SendAsync(ctl *async.Controller, op *async.SendOperation, n async.Notifier)
	// ReceiveAsync starts a single asynchronous read into op's buffer and
	// returns immediately. op is posted to ctl after that one read, however
	// many bytes it produced, unless it was cancelled first -- a short read is the expected, common
	// outcome, not a failure to recover from. The caller re-issues
	// ReceiveAsync for the next chunk.
	ReceiveAsync(ctl *async.Controller, op *async.ReceiveOperation, n async.Notifier)

	// Cancel aborts every operation currently in flight on this object.
	// Synchronous and idempotent.
	Cancel()

	// Name returns a human-readable identifier for this endpoint, e.g.
	// its local address.
	Name() string
	// PeerName returns a human-readable identifier for the remote
	// endpoint, e.g. its address.
	PeerName() string
}

// Socket is a CommunicationObject bound to a stream transport: it can
// half-close its write side without tearing down the read side, and it
// must eventually be closed.
type Socket interface {
	CommunicationObject

	// CloseSend half-closes the write direction (e.g. TCP FIN) without
	// closing the read direction, used to signal end-of-request-body
	// while still awaiting a response.
	CloseSend() error

	// Close tears down the socket entirely, cancelling any operation in
	// flight.
	Close() error
}
