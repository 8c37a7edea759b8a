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

package comm

import (
	"net"
	"sync"

	"github/sabouaram/asynchttp/async"
)

// netSocket adapts a net.Conn (TCP, or anything else implementing the
// half-close CloseWrite method) to the Socket interface. Async operations
// are serviced by one goroutine per in-flight operation; the underlying
// net.Conn already guarantees that concurrent Read/Write from distinct
// goroutines is safe.
type netSocket struct {
	conn net.Conn

	mu      sync.Mutex
	inFlight []async.Operation
}

type halfCloser interface {
	CloseWrite() error
}

// NewSocket wraps conn as a Socket.
func NewSocket(conn net.Conn) Socket {
	return &netSocket{conn: conn}
}

func (s *netSocket) track(op async.Operation) {
	s.mu.Lock()
	s.inFlight = append(s.inFlight, op)
	s.mu.Unlock()
}

func (s *netSocket) untrack(op async.Operation) {
	s.mu.Lock()
	for i, o := range s.inFlight {
		if o == op {
			s.inFlight = append(s.inFlight[:i], s.inFlight[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (s *netSocket) Send(data async.Buffer) error {
	for data.Size() > 0 {
		n, err := s.conn.Write(data)
		if err != nil {
			return err
		}
		data = data.SubRange(n)
	}
	return nil
}

// Receive performs a single underlying read, returning as soon as any
// bytes arrive (or an error occurs). It does not loop to fill data
// completely: a peer that sends less than len(data) and then waits (the
// common case for any request/response protocol) must not be blocked on
// behind a read that never completes.
func (s *netSocket) Receive(data async.MutableBuffer) (int, error) {
	for {
		n, err := s.conn.Read(data)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (s *netSocket) SendAsync(ctl *async.Controller, op *async.SendOperation, n async.Notifier) {
	op.Attach(ctl, n)
	s.track(op)

	go func() {
		defer func() {
			s.untrack(op)
			op.Complete()
		}()

		for !op.Cancelled() && !op.IsCompleted() {
			written, err := s.conn.Write(op.UnsentBytes())
			if written > 0 {
				op.AddSentBytes(written)
			}
			if err != nil {
				return
			}
			if written == 0 {
				return
			}
		}
	}()
}

// ReceiveAsync performs a single underlying read and completes op with
// whatever arrived, even if that's less than the full destination
// buffer. A read completing early is not a special case to recover from
// (unlike a short write): it is the normal way a caller discovers there
// is, for now, no more data -- the caller re-issues ReceiveAsync for the
// next round, same as repeated recv() calls on a blocking socket.
func (s *netSocket) ReceiveAsync(ctl *async.Controller, op *async.ReceiveOperation, n async.Notifier) {
	op.Attach(ctl, n)
	s.track(op)

	go func() {
		defer func() {
			s.untrack(op)
			op.Complete()
		}()

		if op.Cancelled() {
			return
		}

		for {
			read, err := s.conn.Read(op.UnreceivedBytes())
			if read > 0 {
				op.AddReceivedBytes(read)
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (s *netSocket) Cancel() {
	s.mu.Lock()
	ops := append([]async.Operation(nil), s.inFlight...)
	s.mu.Unlock()

	for _, op := range ops {
		op.Cancel()
	}
	// force the blocked Read/Write in each goroutine to return so
	// Complete() actually gets called despite the operation being
	// cancelled.
	_ = s.conn.SetDeadline(pastDeadline())
}

func (s *netSocket) Name() string {
	if a := s.conn.LocalAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (s *netSocket) PeerName() string {
	if a := s.conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (s *netSocket) CloseSend() error {
	if hc, ok := s.conn.(halfCloser); ok {
		return hc.CloseWrite()
	}
	return s.conn.Close()
}

func (s *netSocket) Close() error {
	s.Cancel()
	return s.conn.Close()
}
