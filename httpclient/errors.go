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
	liberr "github/sabouaram/asynchttp/errors"
)

const (
	ErrorParamEmpty liberr.CodeError = liberr.MinPkgHttpClient + iota
	ErrorResponseMalformed
	ErrorUnknownEncoding
	ErrorSinkClosed
	ErrorTooManyRestarts
)

//nolint #gochecknoinits
func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic("code error collision with package liberr")
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "at least one mandatory parameter is empty"
	case ErrorResponseMalformed:
		return "response status line or headers could not be parsed"
	case ErrorUnknownEncoding:
		return "response content-encoding is not supported"
	case ErrorSinkClosed:
		return "data sink is already closed"
	case ErrorTooManyRestarts:
		return "request exceeded its automatic restart budget"
	}

	return liberr.NullMessage
}
