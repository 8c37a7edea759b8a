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
	"strconv"
	"strings"
)

// Response is the parsed status line and header block of an HTTP/1.x
// response, before any body bytes have been delivered.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Header     map[string][]string
}

// HeaderGet returns the first value of header key, case-insensitively, or
// "" if absent.
func (r *Response) HeaderGet(key string) string {
	if v := r.Header[strings.ToLower(key)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ParseResponseHead parses a CRLF-terminated status line and header block
// (not including the trailing blank line's own CRLF) into a Response.
func ParseResponseHead(raw []byte) (*Response, error) {
	lines := strings.Split(string(raw), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, ErrorResponseMalformed.Error(nil)
	}

	statusParts := strings.SplitN(lines[0], " ", 3)
	if len(statusParts) < 2 {
		return nil, ErrorResponseMalformed.Error(nil)
	}
	code, err := strconv.Atoi(statusParts[1])
	if err != nil {
		return nil, ErrorResponseMalformed.Error(err)
	}

	reason := ""
	if len(statusParts) == 3 {
		reason = statusParts[2]
	}

	resp := &Response{
		Proto:      statusParts[0],
		StatusCode: code,
		Reason:     reason,
		Header:     make(map[string][]string),
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, ErrorResponseMalformed.Error(nil)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		val := strings.TrimSpace(line[i+1:])
		resp.Header[key] = append(resp.Header[key], val)
	}

	return resp, nil
}

// Framing determines how this response's body is delimited, per §6.1's
// precedence: chunked transfer-encoding first, then Content-Length, then
// stream-to-close. HEAD responses and 1xx/204/304 never carry a body
// regardless of headers.
func (r *Response) Framing(isHead bool) (Framing, int64) {
	if isHead || r.StatusCode == 204 || r.StatusCode == 304 || (r.StatusCode >= 100 && r.StatusCode < 200) {
		return ByteLimit, 0
	}

	if strings.EqualFold(r.HeaderGet("Transfer-Encoding"), "chunked") {
		return ChunkLimit, 0
	}

	if cl := r.HeaderGet("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			return ByteLimit, n
		}
	}

	return StreamLimit, 0
}

// ContentEncoding maps the Content-Encoding header to an Encoding value.
// Any token this client doesn't implement reports Unknown, which the
// sink pipeline turns into a ServerError rather than delivering
// still-compressed bytes to the caller.
func (r *Response) ContentEncoding() Encoding {
	switch strings.ToLower(r.HeaderGet("Content-Encoding")) {
	case "", "identity":
		return Identity
	case "gzip":
		return Gzip
	case "deflate":
		return Raw
	default:
		return Unknown
	}
}
