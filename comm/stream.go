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
	"io"

	"github/sabouaram/asynchttp/async"
)

// Stream adapts a CommunicationObject to io.ReadWriteCloser for consumers
// -- lineproto, chiefly -- that want ordinary blocking stream semantics
// instead of programming against async operations directly.
//
// Send reports only an error, never a byte count, so Write returns
// len(p) whenever Send returns nil and the error from Send otherwise. A
// Receive that returns no bytes and no error is reported by Read as
// io.EOF; a short Receive is returned to the caller as a short read.
type Stream struct {
	obj Socket
}

// NewStream wraps obj as an io.ReadWriteCloser.
func NewStream(obj Socket) *Stream {
	return &Stream{obj: obj}
}

// ErrShortWrite aliases io.ErrShortWrite. Stream's own Write does not
// return it: a Send that returns nil has written the whole buffer.
var ErrShortWrite = io.ErrShortWrite

func (s *Stream) Write(p []byte) (int, error) {
	if err := s.obj.Send(async.Buffer(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.obj.Receive(async.MutableBuffer(p))
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// Close closes the underlying socket.
func (s *Stream) Close() error {
	return s.obj.Close()
}
