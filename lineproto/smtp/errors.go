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

package smtp

import (
	liberr "github/sabouaram/asynchttp/errors"
)

const (
	// ErrorRejected means the server answered a command with a reply code
	// that the transaction did not expect (e.g. a 5xx to RCPT TO).
	ErrorRejected liberr.CodeError = liberr.MinPkgSMTP + iota
	// ErrorConnectionLost means the server closed the connection before
	// the transaction reached its QUIT exchange.
	ErrorConnectionLost
)

//nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorRejected) {
		panic("code error collision with package liberr")
	}
	liberr.RegisterIdFctMessage(ErrorRejected, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorRejected:
		return "server rejected the mail transaction"
	case ErrorConnectionLost:
		return "server closed the connection before the mail transaction completed"
	}

	return liberr.NullMessage
}
