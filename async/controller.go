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

package async

import (
	"sync"
	"time"
)

// Notifier is the completion callback type an operation is attached with.
// Operations record it, but neither they nor the Controller call it:
// completion is delivered by posting the operation to the Controller, where
// the owning goroutine picks it up with Wait.
type Notifier interface {
	NotifyCompletion(ctl *Controller, op Operation)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctl *Controller, op Operation)

// NotifyCompletion calls f.
func (f NotifierFunc) NotifyCompletion(ctl *Controller, op Operation) { f(ctl, op) }

// Controller is a single-consumer FIFO ready-queue: operations are posted
// from any goroutine, and a single owning goroutine drains them with Wait.
// It plays the role the original library gives an OS semaphore-backed
// event queue, expressed here with a mutex and a one-slot wake channel.
type Controller struct {
	mu    sync.Mutex
	ready []Operation
	wake  chan struct{}
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{wake: make(chan struct{}, 1)}
}

// Post appends op to the ready queue and wakes one pending Wait call.
func (c *Controller) Post(op Operation) {
	c.mu.Lock()
	c.ready = append(c.ready, op)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// RevertPost removes op from the ready queue if it is still sitting there
// unconsumed, reporting whether it found and removed it. Used to retract a
// completion that raced with a cancellation.
func (c *Controller) RevertPost(op Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, o := range c.ready {
		if o == op {
			c.ready = append(c.ready[:i], c.ready[i+1:]...)
			return true
		}
	}
	return false
}

// Wait blocks until an operation is ready or timeout elapses, returning nil
// on timeout. A negative timeout waits indefinitely. Only one goroutine
// should call Wait on a given Controller at a time; this is the event
// loop's own wait, not a general-purpose queue.
func (c *Controller) Wait(timeout time.Duration) Operation {
	for {
		c.mu.Lock()
		if len(c.ready) > 0 {
			op := c.ready[0]
			c.ready = c.ready[1:]
			c.mu.Unlock()
			return op
		}
		c.mu.Unlock()

		if timeout < 0 {
			<-c.wake
			continue
		}

		timer := time.NewTimer(timeout)
		select {
		case <-c.wake:
			timer.Stop()
			continue
		case <-timer.C:
			return nil
		}
	}
}

// Pending reports the number of operations currently queued but not yet
// drained by Wait.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready)
}
