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

// defaultMaxRestarts is the ceiling BytesRequest and JSONRequest apply
// unless overridden with WithMaxRestarts. The core state machine itself
// places no ceiling -- ShouldRestart is the request's own call -- but an
// unbounded requester risks livelock against a peer that keeps closing the
// connection before ever answering.
const defaultMaxRestarts = 2

// RestartOption configures the restart policy of a reference ClientRequest.
type RestartOption func(*restartPolicy)

// WithMaxRestarts overrides the restart ceiling.
func WithMaxRestarts(max int) RestartOption {
	return func(p *restartPolicy) { p.max = max }
}

type restartPolicy struct {
	max   int
	count int
}

func newRestartPolicy(opts []RestartOption) *restartPolicy {
	p := &restartPolicy{max: defaultMaxRestarts}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *restartPolicy) shouldRestart() bool {
	if p.count >= p.max {
		return false
	}
	p.count++
	return true
}

// exhausted reports whether the policy has actually denied a restart
// because the ceiling was reached, as opposed to never having a ceiling
// worth hitting (max <= 0).
func (p *restartPolicy) exhausted() bool {
	return p.max > 0 && p.count >= p.max
}
