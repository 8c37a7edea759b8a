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
	"compress/flate"
	"compress/gzip"
	"io"
)

// DataSink receives body bytes as they arrive off the wire and is told
// when the body ends. Sinks compose: framing wraps decoding wraps
// delivery, so a single Write call on the outer sink flows through every
// stage before reaching the request's handler.
type DataSink interface {
	// Write delivers the next chunk of raw (still wire-framed/encoded)
	// bytes. Returns the number of bytes consumed -- always len(p) unless
	// an error occurs -- and any error.
	Write(p []byte) (int, error)
	// Close signals that no more bytes will arrive; a sink still holding
	// buffered decoded output must flush it to the next stage here.
	Close() error
}

// Encoding identifies the content-encoding applied to a response body.
type Encoding int

const (
	// Identity means no content-encoding was applied.
	Identity Encoding = iota
	// Gzip means the gzip format (RFC 1952).
	Gzip
	// Raw means a raw deflate stream with no zlib wrapper.
	Raw
	// Unknown means an encoding token this client does not implement.
	Unknown
)

// Framing identifies how the response body's extent is delimited.
type Framing int

const (
	// StreamLimit means the body runs until the connection closes.
	StreamLimit Framing = iota
	// ByteLimit means the body is exactly Content-Length bytes.
	ByteLimit
	// ChunkLimit means the body uses chunked transfer-encoding.
	ChunkLimit
)

// sinkFunc adapts a pair of functions to DataSink.
type sinkFunc struct {
	write func(p []byte) (int, error)
	close func() error
}

func (s *sinkFunc) Write(p []byte) (int, error) { return s.write(p) }
func (s *sinkFunc) Close() error                { return s.close() }

// identitySink passes bytes straight through to next.
func identitySink(next DataSink) DataSink {
	return &sinkFunc{
		write: next.Write,
		close: next.Close,
	}
}

// LimitedDataSink forwards at most limit bytes to next and then treats any
// further Write as end-of-body (a no-op success, since the framing layer
// -- not the peer -- decides when the body is over).
type LimitedDataSink struct {
	next      DataSink
	remaining int64
	closed    bool
}

// NewLimitedDataSink creates a sink that forwards exactly limit bytes.
func NewLimitedDataSink(next DataSink, limit int64) *LimitedDataSink {
	return &LimitedDataSink{next: next, remaining: limit}
}

func (l *LimitedDataSink) Write(p []byte) (int, error) {
	if l.remaining <= 0 {
		return len(p), nil
	}
	if l.closed {
		return 0, ErrorSinkClosed.Error(nil)
	}
	total := len(p)
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.next.Write(p)
	l.remaining -= int64(n)
	if l.remaining <= 0 && err == nil {
		err = l.Close()
	}
	if err == nil {
		n = total
	}
	return n, err
}

func (l *LimitedDataSink) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.next.Close()
}

// Remaining reports how many more bytes are expected before the body is
// complete.
func (l *LimitedDataSink) Remaining() int64 { return l.remaining }

// ChunkedSink decodes HTTP/1.1 chunked transfer-encoding, forwarding
// decoded chunk bodies to next and swallowing chunk-size lines, chunk
// trailers and the terminating zero-length chunk.
type ChunkedSink struct {
	next   DataSink
	closed bool

	// parser state machine: reading a hex size line, reading chunk data,
	// or reading trailers after the terminal chunk.
	state      chunkState
	sizeLine   []byte
	chunkLeft  int64
	sawLastChunk bool
}

type chunkState int

const (
	chunkStateSize chunkState = iota
	chunkStateData
	chunkStateDataCRLF
	chunkStateTrailer
)

// NewChunkedSink creates a chunked-transfer decoder writing decoded bytes
// to next.
func NewChunkedSink(next DataSink) *ChunkedSink {
	return &ChunkedSink{next: next}
}

func (c *ChunkedSink) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrorSinkClosed.Error(nil)
	}

	total := len(p)
	for len(p) > 0 {
		switch c.state {
		case chunkStateSize:
			i := indexByte(p, '\n')
			if i < 0 {
				c.sizeLine = append(c.sizeLine, p...)
				p = nil
				continue
			}
			c.sizeLine = append(c.sizeLine, p[:i]...)
			p = p[i+1:]

			size, err := parseChunkSize(c.sizeLine)
			c.sizeLine = c.sizeLine[:0]
			if err != nil {
				return total, ErrorResponseMalformed.Error(err)
			}
			if size == 0 {
				c.sawLastChunk = true
				c.state = chunkStateTrailer
			} else {
				c.chunkLeft = size
				c.state = chunkStateData
			}

		case chunkStateData:
			n := int64(len(p))
			if n > c.chunkLeft {
				n = c.chunkLeft
			}
			if n > 0 {
				if _, err := c.next.Write(p[:n]); err != nil {
					return total, err
				}
				c.chunkLeft -= n
				p = p[n:]
			}
			if c.chunkLeft == 0 {
				c.state = chunkStateDataCRLF
			}

		case chunkStateDataCRLF:
			i := indexByte(p, '\n')
			if i < 0 {
				p = nil
				continue
			}
			p = p[i+1:]
			c.state = chunkStateSize

		case chunkStateTrailer:
			i := indexByte(p, '\n')
			if i < 0 {
				p = nil
				continue
			}
			line := p[:i]
			p = p[i+1:]
			if len(trimCR(line)) == 0 {
				return total, c.Close()
			}
		}
	}

	return total, nil
}

// Complete reports whether the terminal zero-length chunk has been seen.
func (c *ChunkedSink) Complete() bool { return c.sawLastChunk }

func (c *ChunkedSink) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.next.Close()
}

func indexByte(p []byte, b byte) int {
	for i, c := range p {
		if c == b {
			return i
		}
	}
	return -1
}

func trimCR(p []byte) []byte {
	if len(p) > 0 && p[len(p)-1] == '\r' {
		return p[:len(p)-1]
	}
	return p
}

func parseChunkSize(line []byte) (int64, error) {
	line = trimCR(line)
	if i := indexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	var size int64
	if len(line) == 0 {
		return 0, ErrorResponseMalformed.Error(nil)
	}
	for _, c := range line {
		var v int64
		switch {
		case c >= '0' && c <= '9':
			v = int64(c - '0')
		case c >= 'a' && c <= 'f':
			v = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int64(c-'A') + 10
		default:
			return 0, ErrorResponseMalformed.Error(nil)
		}
		size = size*16 + v
	}
	return size, nil
}

// pipeSink adapts an io.WriteCloser-driving decompressor (gzip.Reader,
// flate) into DataSink by running the decoder over an io.Pipe fed from
// Write calls.
type pipeSink struct {
	pw     *io.PipeWriter
	done   chan error
	closed bool
}

// NewInflateDataSink wraps next with a decompressor for enc. Unknown
// encodings are rejected immediately rather than silently passed through,
// since delivering compressed bytes as if they were plain text would be a
// silent data-corruption bug.
func NewInflateDataSink(next DataSink, enc Encoding) (DataSink, error) {
	switch enc {
	case Identity:
		return identitySink(next), nil
	case Unknown:
		return nil, ErrorUnknownEncoding.Error(nil)
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		var (
			r   io.Reader
			err error
		)
		switch enc {
		case Gzip:
			r, err = gzip.NewReader(pr)
		case Raw:
			r = flate.NewReader(pr)
		}
		if err != nil {
			_ = pr.CloseWithError(err)
			done <- ErrorResponseMalformed.Error(err)
			return
		}

		buf := make([]byte, 32*1024)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if _, werr := next.Write(buf[:n]); werr != nil {
					_ = pr.CloseWithError(werr)
					done <- werr
					return
				}
			}
			if rerr == io.EOF {
				done <- next.Close()
				return
			}
			if rerr != nil {
				done <- ErrorResponseMalformed.Error(rerr)
				return
			}
		}
	}()

	return &pipeSink{pw: pw, done: done}, nil
}

func (p *pipeSink) Write(b []byte) (int, error) {
	return p.pw.Write(b)
}

func (p *pipeSink) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.pw.Close(); err != nil {
		return err
	}
	return <-p.done
}
