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

// Package async provides the buffer descriptors, operations and controller
// that every communication object in this module is built on.
//
// Buffer is a read-only view over a byte slice, MutableBuffer a writable
// one, and GrowableBuffer an owner that appends without ever shrinking its
// capacity. None of the three copy data on SubRange/Split: they are
// descriptors, not owners, so callers must not retain one past the
// lifetime of the memory it points into.
package async

// Buffer is a read-only view over a contiguous byte range. It never copies
// the underlying array; SubRange and Split only move the window.
type Buffer []byte

// Size returns the number of bytes visible through this descriptor.
func (b Buffer) Size() int { return len(b) }

// Empty reports whether the descriptor currently sees zero bytes.
func (b Buffer) Empty() bool { return len(b) == 0 }

// SubRange returns the descriptor starting at byte n. n beyond Size()
// yields an empty descriptor rather than panicking.
func (b Buffer) SubRange(n int) Buffer {
	if n <= 0 {
		return b
	}
	if n >= len(b) {
		return b[len(b):]
	}
	return b[n:]
}

// Split divides the descriptor at byte n, returning the first n bytes and
// the remainder. n is clamped to [0, Size()].
func (b Buffer) Split(n int) (head, tail Buffer) {
	if n <= 0 {
		return b[:0], b
	}
	if n >= len(b) {
		return b, b[len(b):]
	}
	return b[:n], b[n:]
}

// Trim limits the descriptor to its first n bytes, discarding the tail.
func (b Buffer) Trim(n int) Buffer {
	head, _ := b.Split(n)
	return head
}

// CopyTo copies as many bytes as fit into dst, returning the count copied.
func (b Buffer) CopyTo(dst MutableBuffer) int {
	return copy(dst, b)
}

// MutableBuffer is a writable view over a contiguous byte range. Like
// Buffer it is a descriptor: SubRange/Split move the window without
// copying.
type MutableBuffer []byte

// Size returns the number of bytes visible through this descriptor.
func (m MutableBuffer) Size() int { return len(m) }

// Empty reports whether the descriptor currently sees zero bytes.
func (m MutableBuffer) Empty() bool { return len(m) == 0 }

// SubRange returns the descriptor starting at byte n, clamped to Size().
func (m MutableBuffer) SubRange(n int) MutableBuffer {
	if n <= 0 {
		return m
	}
	if n >= len(m) {
		return m[len(m):]
	}
	return m[n:]
}

// Split divides the descriptor at byte n, clamped to [0, Size()].
func (m MutableBuffer) Split(n int) (head, tail MutableBuffer) {
	if n <= 0 {
		return m[:0], m
	}
	if n >= len(m) {
		return m, m[len(m):]
	}
	return m[:n], m[n:]
}

// CopyFrom copies as many bytes as fit from src, returning the count.
func (m MutableBuffer) CopyFrom(src Buffer) int {
	return copy(m, src)
}

// Freeze returns a read-only Buffer over the same bytes. Conversion only
// ever runs this direction: a Buffer obtained from a MutableBuffer must
// never be cast back to mutate the source.
func (m MutableBuffer) Freeze() Buffer {
	return Buffer(m)
}

// GrowableBuffer is an owning, append-only byte store. Append never
// shrinks the underlying capacity, and a reallocation on growth can
// invalidate descriptors returned by earlier calls to Bytes(); callers
// that need a stable view must copy it out first.
type GrowableBuffer struct {
	data []byte
}

// NewGrowableBuffer allocates an empty buffer with capacityHint
// pre-reserved.
func NewGrowableBuffer(capacityHint int) *GrowableBuffer {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &GrowableBuffer{data: make([]byte, 0, capacityHint)}
}

// Append copies b onto the end of the buffer, growing capacity
// exponentially (Go's append doubling) when needed, and returns a
// descriptor over the bytes just appended.
func (g *GrowableBuffer) Append(b Buffer) Buffer {
	start := len(g.data)
	g.data = append(g.data, b...)
	return Buffer(g.data[start:len(g.data)])
}

// Bytes returns a descriptor over the whole buffer as currently filled.
func (g *GrowableBuffer) Bytes() Buffer { return Buffer(g.data) }

// Len returns the number of bytes appended so far.
func (g *GrowableBuffer) Len() int { return len(g.data) }

// Cap returns the current backing capacity. It never decreases.
func (g *GrowableBuffer) Cap() int { return cap(g.data) }

// DropFront discards the first n bytes by shifting the remainder down,
// without releasing the backing array. Used to recycle the scratch buffer
// after a framed chunk has been consumed.
func (g *GrowableBuffer) DropFront(n int) {
	if n <= 0 {
		return
	}
	if n >= len(g.data) {
		g.data = g.data[:0]
		return
	}
	copy(g.data, g.data[n:])
	g.data = g.data[:len(g.data)-n]
}

// Reset empties the buffer without releasing its capacity.
func (g *GrowableBuffer) Reset() {
	g.data = g.data[:0]
}
