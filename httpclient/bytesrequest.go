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
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BytesRequest is a reference ClientRequest that sends a fixed method,
// path, header set and body, and accumulates the entire response body in
// memory before handing the result to a completion callback. It is meant
// as a starting point for callers who don't need to stream either
// direction.
type BytesRequest struct {
	method string
	origin Origin
	path   string
	header map[string]string
	body   []byte

	restart *restartPolicy
	onDone  func(*BytesRequest, error)

	mu         sync.Mutex
	status     int
	respHeader map[string][]string
	respBody   []byte
}

// NewBytesRequest builds a BytesRequest. onDone is called exactly once,
// with a nil error on success. header keys are sent verbatim; Host and,
// when body is non-empty and Content-Length isn't already set,
// Content-Length are added automatically.
func NewBytesRequest(method string, origin Origin, path string, header map[string]string, body []byte, onDone func(*BytesRequest, error), opts ...RestartOption) *BytesRequest {
	return &BytesRequest{
		method:  strings.ToUpper(method),
		origin:  origin,
		path:    path,
		header:  header,
		body:    body,
		restart: newRestartPolicy(opts),
		onDone:  onDone,
	}
}

// Target implements ClientRequest.
func (r *BytesRequest) Target() Origin { return r.origin }

// RenderHead implements ClientRequest.
func (r *BytesRequest) RenderHead() []byte {
	var buf bytes.Buffer

	path := r.path
	if path == "" {
		path = "/"
	}
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", r.method, path)
	fmt.Fprintf(&buf, "Host: %s\r\n", r.origin.Host)

	hasContentLength := false
	keys := make([]string, 0, len(r.header))
	for k := range r.header {
		keys = append(keys, k)
		if strings.EqualFold(k, "content-length") {
			hasContentLength = true
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, r.header[k])
	}

	if len(r.body) > 0 && !hasContentLength {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(r.body))
	}
	buf.WriteString("Connection: keep-alive\r\n\r\n")

	return buf.Bytes()
}

// Body implements ClientRequest.
func (r *BytesRequest) Body() ([]byte, bool) {
	return r.body, len(r.body) > 0
}

// HandleResponseHead implements ClientRequest.
func (r *BytesRequest) HandleResponseHead(resp *Response) error {
	r.mu.Lock()
	r.status = resp.StatusCode
	r.respHeader = resp.Header
	r.mu.Unlock()
	return nil
}

// HandleResponseData implements ClientRequest.
func (r *BytesRequest) HandleResponseData(p []byte) error {
	r.mu.Lock()
	r.respBody = append(r.respBody, p...)
	r.mu.Unlock()
	return nil
}

// HandleSuccess implements ClientRequest.
func (r *BytesRequest) HandleSuccess() {
	if r.onDone != nil {
		r.onDone(r, nil)
	}
}

// HandleFailure implements ClientRequest.
func (r *BytesRequest) HandleFailure(reason FailureReason, err error) {
	if reason == ConnectionClosed && r.restart.exhausted() {
		err = ErrorTooManyRestarts.Error(err)
	} else if err == nil {
		err = errors.New(reason.String())
	}
	if r.onDone != nil {
		r.onDone(r, err)
	}
}

// ShouldRestart implements ClientRequest.
func (r *BytesRequest) ShouldRestart() bool {
	return r.restart.shouldRestart()
}

// StatusCode returns the parsed response status, valid once onDone fires
// with a nil error.
func (r *BytesRequest) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ResponseHeader returns the parsed response headers.
func (r *BytesRequest) ResponseHeader() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.respHeader
}

// BodyBytes returns the accumulated response body.
func (r *BytesRequest) BodyBytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.respBody
}
