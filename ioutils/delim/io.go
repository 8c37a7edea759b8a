/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

import "io"

// Reader returns the BufferDelim itself as an io.ReadCloser.
// This allows the BufferDelim to be used wherever an io.ReadCloser is expected.
func (o *dlm) Reader() io.ReadCloser {
	return o
}

// Copy reads data from the BufferDelim and writes it to w until EOF or an error occurs.
// It is a convenience wrapper around WriteTo(w).
func (o *dlm) Copy(w io.Writer) (n int64, err error) {
	return o.WriteTo(w)
}

// Read reads data up to and including the next delimiter into p.
// It implements the io.Reader interface.
//
// If p is too small to hold the delimited chunk, Read expands p to accommodate
// the data; callers should not rely on p's capacity remaining unchanged.
func (o *dlm) Read(p []byte) (n int, err error) {
	if o == nil || o.r == nil {
		return 0, ErrInstance
	}

	b, e := o.readChunk()

	if len(b) > 0 {
		if cap(p) < len(b) {
			p = append(p, make([]byte, len(b)-len(p))...)
		}
		copy(p, b)
	}

	return len(b), e
}

// UnRead returns the data currently buffered in the internal reader that has
// not yet been consumed, or nil if nothing is buffered.
func (o *dlm) UnRead() ([]byte, error) {
	if o == nil || o.r == nil {
		return nil, ErrInstance
	}

	if s := o.r.Buffered(); s > 0 {
		b, e := o.r.Peek(s)
		return append([]byte(nil), b...), e
	}

	return nil, nil
}

// ReadBytes reads until the first occurrence of the delimiter in the input,
// returning a slice containing the data up to and including the delimiter.
//
// When a maximum chunk size was configured and exceeded, ReadBytes returns
// ErrMaxSize unless overflow discarding is enabled, in which case the bytes
// past the limit are dropped up to the next delimiter and the truncated
// chunk (including the delimiter) is returned instead.
func (o *dlm) ReadBytes() ([]byte, error) {
	if o.r == nil {
		return nil, ErrInstance
	}

	return o.readChunk()
}

// readChunk implements the shared ReadBytes/Read logic, applying the
// configured maximum chunk size.
func (o *dlm) readChunk() ([]byte, error) {
	d := o.getDelimByte()

	if o.s <= 0 {
		return o.r.ReadBytes(d)
	}

	b, err := o.r.ReadBytes(d)
	if len(b) <= o.s {
		return b, err
	}

	if !o.o {
		return b, ErrMaxSize
	}

	// leave room for the delimiter so the chunk stays within o.s bytes
	kept := b[:o.s-1]
	for err == nil && (len(b) == 0 || b[len(b)-1] != d) {
		b, err = o.r.ReadBytes(d)
	}

	if !hasSuffix(kept, d) {
		kept = append(kept, d)
	}
	return kept, err
}

func hasSuffix(b []byte, d byte) bool {
	return len(b) > 0 && b[len(b)-1] == d
}

// Close closes the BufferDelim and releases associated resources.
// After Close is called, all subsequent operations return ErrInstance.
func (o *dlm) Close() error {
	if o.r == nil {
		return ErrInstance
	}
	o.r.Reset(nil)
	o.r = nil

	return o.i.Close()
}

// WriteTo reads data from the BufferDelim and writes it to w until EOF or an
// error occurs. It implements the io.WriterTo interface.
func (o *dlm) WriteTo(w io.Writer) (n int64, err error) {
	var (
		e error
		i int
		b []byte
	)

	if o.r == nil {
		return 0, ErrInstance
	}

	for err == nil {
		b, err = o.readChunk()

		if len(b) > 0 {
			i, e = w.Write(b)
			n += int64(i)
		}

		b = nil

		if err == nil && e != nil {
			err = e
		}
	}

	return n, err
}
