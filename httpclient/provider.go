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
	"github/sabouaram/asynchttp/comm"
)

// ConnectionProvider establishes sockets for the origins the Client needs
// to talk to. It is asynchronous by design: Dial returns immediately, and
// exactly one of ready or failed is called later, from whatever goroutine
// the provider uses to do the dialing. The concrete implementation this
// module ships lives in package netprovider, kept separate so this
// interface carries no dependency on any particular transport.
type ConnectionProvider interface {
	// Dial starts establishing a connection to origin. Calling it again for
	// an origin that already has a dial in flight is the provider's
	// decision to coalesce or duplicate; Client never relies on either.
	Dial(origin Origin, ready func(comm.Socket), failed func(FailureReason, error))
	// Close releases any resources the provider holds (background
	// goroutines, keep-alive timers). Dial must not be called again after
	// Close returns.
	Close() error
}
