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
	"encoding/json"
)

// JSONRequest wraps BytesRequest to marshal a Go value as the request
// body and unmarshal the response body into a target pointer once the
// exchange succeeds. Every ClientRequest method is promoted from the
// embedded BytesRequest.
type JSONRequest struct {
	*BytesRequest
	target interface{}
}

// NewJSONRequest builds a JSONRequest. reqBody may be nil for a bodyless
// request (GET, DELETE, ...); target may be nil to discard the response
// body after accumulating it. onDone receives the same JSONRequest and,
// on success, a target already populated by json.Unmarshal.
func NewJSONRequest(method string, origin Origin, path string, header map[string]string, reqBody interface{}, target interface{}, onDone func(*JSONRequest, error), opts ...RestartOption) (*JSONRequest, error) {
	var body []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}
		body = b
	}

	h := make(map[string]string, len(header)+1)
	for k, v := range header {
		h[k] = v
	}
	if _, ok := h["Content-Type"]; !ok && len(body) > 0 {
		h["Content-Type"] = "application/json"
	}
	if _, ok := h["Accept"]; !ok {
		h["Accept"] = "application/json"
	}

	jr := &JSONRequest{target: target}
	jr.BytesRequest = NewBytesRequest(method, origin, path, h, body, nil, opts...)
	jr.BytesRequest.onDone = func(br *BytesRequest, err error) {
		if err == nil && jr.target != nil && len(br.BodyBytes()) > 0 {
			if uerr := json.Unmarshal(br.BodyBytes(), jr.target); uerr != nil {
				err = uerr
			}
		}
		if onDone != nil {
			onDone(jr, err)
		}
	}

	return jr, nil
}
