// Copyright (C) 2023 The Gala Authors.
//
// This file is part of Gala.
//
// Gala is free software: you can redistribute it and/or modify it under the
// terms of the GNU Affero General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// Gala is distributed in the hope that it will be useful, but WITHOUT ANY
// WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for
// more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with Gala.  If not, see <https://www.gnu.org/licenses/>.

package bus

import (
	"sync"

	"github.com/edmundjohnson/gala/log"
)

// An Event names a resource collection and the ids that changed. User is
// only set for per-user changes (viewaward flags).
type Event struct {
	Resource string
	IDs      []int64
	User     string
}

type Listener func(Event)

// A Subscription delivers events to its listener in publish order. Each
// subscription drains its own queue so a slow or panicking listener never
// affects the publisher or other listeners.
type Subscription struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	fn     Listener
}

type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]bool
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]bool),
	}
}

// Subscribe registers fn to receive all events published until the
// subscription is cancelled with Unsubscribe.
func (b *Bus) Subscribe(fn Listener) *Subscription {
	s := &Subscription{fn: fn}
	s.cond = sync.NewCond(&s.mu)
	b.mu.Lock()
	b.subs[s] = true
	b.mu.Unlock()
	go s.run()
	return s
}

// Unsubscribe stops delivery. Events already queued are still delivered.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Publish queues the event for every current subscriber and returns without
// waiting for delivery.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	for s := range b.subs {
		s.enqueue(e)
	}
	b.mu.Unlock()
}

func (s *Subscription) enqueue(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Subscription) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.deliver(e)
	}
}

func (s *Subscription) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: listener panic: %v\n", r)
		}
	}()
	s.fn(e)
}
