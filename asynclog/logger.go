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

// Package asynclog wraps logrus with the field-builder style the rest of
// this module's call sites use: FieldAdd chained onto an Entry, ending in
// Log(). It carries no transport- or protocol-specific knowledge -- it is
// the one logging surface httpclient and netprovider both log through.
package asynclog

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github/sabouaram/asynchttp/asynclog/level"
)

// Logger owns a logrus.Logger and the base Fields every Entry it creates
// starts from (e.g. a component name attached once at construction).
type Logger struct {
	log  *logrus.Logger
	base Fields
}

// New wraps log. A nil log defaults to a fresh logrus.Logger with its
// standard text formatter, writing to its default output.
func New(log *logrus.Logger) *Logger {
	if log == nil {
		log = logrus.New()
	}
	return &Logger{log: log}
}

// Discard returns a Logger that drops every entry. It is the default for
// components (ClientConnection, Client, DefaultConnectionProvider) that
// must stay silent until a caller opts in with a real Logger.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{log: log}
}

// SetLevel sets the minimum level this logger emits.
func (l *Logger) SetLevel(lvl level.Level) {
	l.log.SetLevel(lvl.Logrus())
}

// With returns a Logger that merges fields into every Entry it creates,
// leaving l itself unmodified.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{log: l.log, base: l.base.Merge(fields)}
}

// Entry starts a log entry at lvl with msg, pre-populated with this
// logger's base fields.
func (l *Logger) Entry(lvl level.Level, msg string) *Entry {
	return &Entry{
		logger: l,
		level:  lvl,
		msg:    msg,
		fields: l.base,
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) *Entry {
	return l.Entry(level.DebugLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) *Entry {
	return l.Entry(level.InfoLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) *Entry {
	return l.Entry(level.WarnLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) *Entry {
	return l.Entry(level.ErrorLevel, fmt.Sprintf(format, args...))
}

// Entry is a single log record under construction: FieldAdd/ErrorAdd chain,
// terminated by Log.
type Entry struct {
	logger *Logger
	level  level.Level
	msg    string
	fields Fields
	errs   []error
}

// FieldAdd adds one field to the entry and returns it for chaining.
func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	e.fields = e.fields.Add(key, val)
	return e
}

// ErrorAdd attaches errors to the entry, skipping any nil value.
func (e *Entry) ErrorAdd(err ...error) *Entry {
	for _, er := range err {
		if er != nil {
			e.errs = append(e.errs, er)
		}
	}
	return e
}

// Log emits the entry through the wrapped logrus.Logger.
func (e *Entry) Log() {
	fields := e.fields
	if len(e.errs) == 1 {
		fields = fields.Add("error", e.errs[0])
	} else if len(e.errs) > 1 {
		fields = fields.Add("errors", e.errs)
	}

	e.logger.log.WithFields(fields.Logrus()).Log(e.level.Logrus(), e.msg)
}
