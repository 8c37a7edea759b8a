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

// Package lineproto drives request/response protocols built out of
// CRLF-terminated text lines -- SMTP, POP3, and similar. It factors the
// "send a line, wait for a line" pattern out of any one protocol so a
// concrete exchange only has to say what to send and how to interpret
// what comes back.
package lineproto

// LineSink receives lines a LineHandler wants to send to the peer. Every
// line handed to HandleLine is queued for transmission without its own
// trailing delimiter; the runner appends "\r\n" once per call.
type LineSink interface {
	HandleLine(line string)
}

// LineHandler implements one side of a line-based exchange. Its methods
// are called in a fixed sequence by LineProtocolRunner.Call:
//
//   - HandleOpening once, to produce a possible opening line (a client's
//     first command, or a server's greeting).
//   - HandleLine once per line received from the peer.
//   - HandleConnectionClose if the peer closes the connection before the
//     handler signalled the end of the exchange itself.
//
// HandleOpening and HandleLine report, via their bool return, whether the
// exchange should end now. Either method may also call back into the
// LineSink it was given to queue outgoing lines.
type LineHandler interface {
	// HandleOpening is called once at the start of the exchange. Returning
	// true ends the exchange immediately, before any line is read.
	HandleOpening(response LineSink) bool

	// HandleLine is called once per line read from the peer, the trailing
	// delimiter already stripped. Returning true ends the exchange.
	HandleLine(line string, response LineSink) bool

	// HandleConnectionClose is called when the peer closes the connection
	// before the exchange reported its own end. It is never called when
	// the runner's own side initiated the close.
	HandleConnectionClose()
}

// Failer is an optional capability a LineHandler can implement to report a
// protocol-level failure discovered while handling a line -- e.g. a
// rejecting reply code -- without using its return value, which is
// already spoken for as "end the exchange". LineProtocolRunner.Call
// checks for it once the exchange ends and returns its error, if any,
// in place of a nil error.
type Failer interface {
	Err() error
}
