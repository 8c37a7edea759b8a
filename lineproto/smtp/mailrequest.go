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

// Package smtp implements a single unauthenticated mail transaction
// (HELO/MAIL FROM/RCPT TO/DATA) as a lineproto.LineHandler, demonstrating
// the package against a real protocol rather than a synthetic one.
package smtp

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github/sabouaram/asynchttp/lineproto"
)

// Configuration names the two fields a HELO/MAIL FROM exchange needs.
type Configuration struct {
	// Hello is the host identifier sent with HELO.
	Hello string
	// From is the sender address sent with MAIL FROM.
	From string
}

type state int

const (
	stateGreeting state = iota
	stateHello
	stateFrom
	stateRecipient
	stateData
	stateContent
	stateQuit
)

// expectedDigit is the reply-code first digit a state expects: '2' for
// every step except the one following DATA, which expects '3' (an
// intermediate "go ahead" reply before the message body).
func (s state) expectedDigit() byte {
	if s == stateData {
		return '3'
	}
	return '2'
}

// MailRequest is a lineproto.LineHandler that executes a single mail
// transaction: it sends a request from a configured sender to a list of
// recipients, then the message content, against an unauthenticated MTA.
//
// Running a MailRequest with an empty recipient list just executes QUIT.
type MailRequest struct {
	config  Configuration
	to      []string
	content string
	log     *logrus.Entry

	state state
	err   error
}

// NewMailRequest builds a MailRequest. content should have its lines
// separated by CRLF and have lines starting with a dot doubled per RFC
// 821's transparency rule. A trailing CRLF, if present, is stripped here;
// the line runner appends one when the content is sent.
func NewMailRequest(config Configuration, to []string, content string, log *logrus.Entry) *MailRequest {
	content = strings.TrimSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\r")

	dst := make([]string, len(to))
	copy(dst, to)

	return &MailRequest{
		config:  config,
		to:      dst,
		content: content,
		log:     log,
		state:   stateGreeting,
	}
}

// HandleOpening implements lineproto.LineHandler. The server talks first
// in SMTP, so there is nothing to send yet.
func (m *MailRequest) HandleOpening(response lineproto.LineSink) bool {
	return false
}

// HandleLine implements lineproto.LineHandler.
func (m *MailRequest) HandleLine(line string, response lineproto.LineSink) bool {
	if len(line) < 4 || line[3] == '-' {
		// continuation line of a multi-line reply, not yet the final one
		return false
	}

	m.logf(logrus.TraceLevel, "> %s", line)

	if line[0] != m.state.expectedDigit() {
		m.err = ErrorRejected.Error(rejectionError(line))
		return true
	}

	switch m.state {
	case stateGreeting:
		if len(m.to) == 0 {
			m.sendLine("QUIT", response)
			m.state = stateQuit
		} else {
			m.sendLine("HELO "+m.config.Hello, response)
			m.state = stateHello
		}

	case stateHello:
		m.sendLine("MAIL FROM:<"+m.config.From+">", response)
		m.state = stateFrom

	case stateFrom:
		next := m.to[0]
		m.to = m.to[1:]
		m.sendLine("RCPT TO:<"+next+">", response)
		if len(m.to) == 0 {
			m.state = stateRecipient
		}

	case stateRecipient:
		m.sendLine("DATA", response)
		m.state = stateData

	case stateData:
		response.HandleLine(m.content)
		m.sendLine(".", response)
		m.state = stateContent

	case stateContent:
		m.sendLine("QUIT", response)
		m.state = stateQuit

	case stateQuit:
		return true
	}

	return false
}

// HandleConnectionClose implements lineproto.LineHandler. Losing the
// connection before QUIT means the transaction never finished.
func (m *MailRequest) HandleConnectionClose() {
	if m.state != stateQuit {
		m.err = ErrorConnectionLost.Error(nil)
	}
}

// Err implements lineproto.Failer, surfacing the transaction's outcome.
func (m *MailRequest) Err() error {
	return m.err
}

func (m *MailRequest) sendLine(line string, response lineproto.LineSink) {
	m.logf(logrus.TraceLevel, "< %s", line)
	response.HandleLine(line)
}

func (m *MailRequest) logf(level logrus.Level, format string, args ...interface{}) {
	if m.log != nil {
		m.log.Logf(level, format, args...)
	}
}

// rejectionError turns a rejecting SMTP reply line into a plain error
// describing what the server said.
func rejectionError(line string) error {
	return &remoteReplyError{line: line}
}

type remoteReplyError struct {
	line string
}

func (e *remoteReplyError) Error() string {
	return "smtp: " + e.line
}
