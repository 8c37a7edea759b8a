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
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// Origin is the (scheme, host, port) triple a connection is pooled by.
// Two requests differing only in how their host was spelled -- Unicode vs
// Punycode, mixed case -- must still land in the same pool bucket, so the
// host is normalized through IDNA/ToASCII and lower-cased before any
// comparison.
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

// NewOrigin builds a normalized Origin. An unparsable IDN host falls back
// to the raw input lower-cased rather than failing outright, since the
// dial attempt downstream will surface a clearer ConnectionFailed error.
func NewOrigin(scheme, host, port string) Origin {
	scheme = strings.ToLower(scheme)

	normalized := strings.ToLower(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		normalized = ascii
	}

	return Origin{Scheme: scheme, Host: normalized, Port: port}
}

// Key returns the pool-bucket identity for this origin.
func (o Origin) Key() string {
	return fmt.Sprintf("%s://%s:%s", o.Scheme, o.Host, o.Port)
}

// Address returns the host:port string a ConnectionProvider dials.
func (o Origin) Address() string {
	return o.Host + ":" + o.Port
}

// String renders the origin for logging.
func (o Origin) String() string { return o.Key() }
