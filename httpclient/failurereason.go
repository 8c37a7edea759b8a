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

// Package httpclient is the event-driven, multi-connection HTTP/1.x user
// agent at the core of this module: a per-connection state machine
// (ClientConnection), its request/response model, the sink pipeline that
// decodes a response body, and the Client scheduler that dispatches queued
// requests across a pool of connections.
package httpclient

// FailureReason classifies why a request did not receive a response body.
// It is the terminal vocabulary every ClientRequest.HandleFailure call is
// expressed in.
type FailureReason int

const (
	// Cancelled means the request was cancelled by its caller before a
	// response was produced. Racing with a just-arriving success is
	// tolerated: either outcome is correct, never both and never neither.
	Cancelled FailureReason = iota
	// ConnectionFailed means no connection to the target could be
	// established (DNS, dial, TLS handshake).
	ConnectionFailed
	// ConnectionClosed means an established connection was closed by the
	// peer, or went idle past its timeout, while a request was pending on
	// it or waiting to be restarted.
	ConnectionClosed
	// UnsupportedProtocol means the request's target scheme is not one
	// this client's ConnectionProvider knows how to dial.
	UnsupportedProtocol
	// NetworkError means an I/O error occurred on an otherwise healthy
	// connection (reset, broken pipe, read/write timeout).
	NetworkError
	// ServerError means the peer sent a response this client could not
	// parse or decode (malformed status line/headers, unknown transfer
	// encoding, decompression failure).
	ServerError
)

// String renders the reason the way log fields and error messages use it.
func (f FailureReason) String() string {
	switch f {
	case Cancelled:
		return "cancelled"
	case ConnectionFailed:
		return "connection-failed"
	case ConnectionClosed:
		return "connection-closed"
	case UnsupportedProtocol:
		return "unsupported-protocol"
	case NetworkError:
		return "network-error"
	case ServerError:
		return "server-error"
	default:
		return "unknown"
	}
}
