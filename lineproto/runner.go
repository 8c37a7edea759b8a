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

package lineproto

import (
	"io"
	"strings"
	"sync"

	"github/sabouaram/asynchttp/comm"
	"github/sabouaram/asynchttp/ioutils/delim"
)

// LineProtocolRunner drives a single LineHandler exchange over a
// comm.Socket, reading and writing CRLF-terminated lines. A runner can be
// shared by multiple goroutines: Call serializes their exchanges, though
// a stateful multi-command sequence built out of several Call invocations
// still needs its own external synchronization.
type LineProtocolRunner struct {
	mu     sync.Mutex
	sock   comm.Socket
	stream *comm.Stream
	rd     delim.BufferDelim
}

// NewLineProtocolRunner creates a runner bound to sock. sock is closed when
// Close is called; the runner does not take ownership otherwise.
func NewLineProtocolRunner(sock comm.Socket) *LineProtocolRunner {
	stream := comm.NewStream(sock)
	return &LineProtocolRunner{
		sock:   sock,
		stream: stream,
		rd:     delim.New(stream, '\n', 0, false),
	}
}

// collector implements LineSink by queuing lines for Call to flush in
// order, interleaved with reads exactly like the handler requested.
type collector struct {
	pending []string
}

func (c *collector) HandleLine(line string) {
	c.pending = append(c.pending, line)
}

// Call drives one exchange: handler.HandleOpening, then HandleLine for
// each line received until either side signals the end. Concurrent Call
// invocations on the same runner are serialized.
func (r *LineProtocolRunner) Call(handler LineHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var c collector
	end := handler.HandleOpening(&c)

	for {
		if len(c.pending) > 0 {
			line := c.pending[0]
			c.pending = c.pending[1:]
			if err := r.sendLine(line); err != nil {
				return err
			}
			continue
		}

		if end {
			return handlerErr(handler)
		}

		raw, err := r.rd.ReadBytes()
		if len(raw) == 0 {
			handler.HandleConnectionClose()
			if herr := handlerErr(handler); herr != nil {
				return herr
			}
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		}

		line := strings.TrimSuffix(string(raw), "\n")
		line = strings.TrimSuffix(line, "\r")

		if handler.HandleLine(line, &c) {
			end = true
		}

		if herr := handlerErr(handler); herr != nil {
			return herr
		}

		if err != nil && err != io.EOF {
			if len(c.pending) == 0 && end {
				return nil
			}
			return err
		}
	}
}

func handlerErr(handler LineHandler) error {
	if f, ok := handler.(Failer); ok {
		return f.Err()
	}
	return nil
}

func (r *LineProtocolRunner) sendLine(line string) error {
	_, err := io.WriteString(r.stream, line+"\r\n")
	return err
}

// Close tears down the underlying socket.
func (r *LineProtocolRunner) Close() error {
	return r.sock.Close()
}
