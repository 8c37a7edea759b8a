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

// ClientRequest is what a caller hands to Client.Submit. The client calls
// back into it at each stage of the exchange; none of these methods may
// block for long, since they run on the event loop's own goroutine.
type ClientRequest interface {
	// Target returns the origin (scheme + authority) this request should
	// be sent to; the request line and headers come from RenderHead.
	Target() Origin

	// RenderHead returns the request line and header block to write to
	// the wire, already CRLF-terminated and ending in a blank line.
	RenderHead() []byte

	// Body returns the request body to send and whether there is one; a
	// bodyless request (GET, HEAD, ...) returns nil, false.
	Body() ([]byte, bool)

	// HandleResponseHead is called once the status line and headers have
	// been parsed. Returning a non-nil error aborts the exchange as a
	// ServerError.
	HandleResponseHead(resp *Response) error

	// HandleResponseData delivers a chunk of decoded response body. It is
	// called zero or more times after HandleResponseHead.
	HandleResponseData(p []byte) error

	// HandleSuccess is called once the response body is fully delivered.
	HandleSuccess()

	// HandleFailure is called instead of HandleSuccess if the exchange
	// did not complete normally.
	HandleFailure(reason FailureReason, err error)

	// ShouldRestart is consulted when a connection closes before this
	// request received any response bytes (safe to retry, since nothing
	// reached the application). Returning false treats the closure as
	// ConnectionClosed instead of silently retrying.
	ShouldRestart() bool
}
