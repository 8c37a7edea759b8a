/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package delim

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// ErrInstance is returned by every method once the BufferDelim has been
// closed, or was never properly constructed.
var ErrInstance = errors.New("delim: instance is closed or invalid")

// ErrMaxSize is returned by ReadBytes when a chunk exceeds the configured
// maximum size and overflow discarding is disabled.
var ErrMaxSize = errors.New("delim: maximum chunk size exceeded")

// dlm is the internal implementation of the BufferDelim interface. It
// wraps an io.ReadCloser with a buffered reader and tracks the delimiter
// byte plus an optional maximum chunk size.
//
// Fields:
//   - i: the underlying input stream
//   - r: the buffered reader wrapping i
//   - d: the delimiter byte
//   - s: maximum chunk size in bytes, 0 means unbounded
//   - o: whether to discard overflow bytes instead of returning ErrMaxSize
type dlm struct {
	m sync.Mutex
	i io.ReadCloser
	r *bufio.Reader
	d byte
	s int
	o bool
}

// Delim returns the delimiter rune configured for this BufferDelim instance.
func (o *dlm) Delim() rune {
	return rune(o.d)
}

func (o *dlm) getDelimByte() byte {
	return o.d
}
