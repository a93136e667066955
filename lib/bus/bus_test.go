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
	"testing"
	"time"
)

func TestPublish(t *testing.T) {
	b := NewBus()
	got := make(chan Event, 10)
	sub := b.Subscribe(func(e Event) {
		got <- e
	})
	defer b.Unsubscribe(sub)

	b.Publish(Event{Resource: "movie", IDs: []int64{4016934}})
	select {
	case e := <-got:
		if e.Resource != "movie" {
			t.Errorf("wrong resource %s\n", e.Resource)
		}
		if len(e.IDs) != 1 || e.IDs[0] != 4016934 {
			t.Errorf("wrong ids %v\n", e.IDs)
		}
	case <-time.After(time.Second):
		t.Error("no event")
	}
}

func TestPublishOrder(t *testing.T) {
	b := NewBus()
	got := make(chan Event, 10)
	sub := b.Subscribe(func(e Event) {
		got <- e
	})
	defer b.Unsubscribe(sub)

	for i := int64(1); i <= 5; i++ {
		b.Publish(Event{Resource: "award", IDs: []int64{i}})
	}
	for i := int64(1); i <= 5; i++ {
		select {
		case e := <-got:
			if e.IDs[0] != i {
				t.Errorf("expect %d got %d\n", i, e.IDs[0])
			}
		case <-time.After(time.Second):
			t.Errorf("missing event %d\n", i)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	got := make(chan Event, 10)
	sub := b.Subscribe(func(e Event) {
		got <- e
	})
	b.Unsubscribe(sub)
	b.Publish(Event{Resource: "movie", IDs: []int64{1}})
	select {
	case <-got:
		t.Error("got event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenerIsolation(t *testing.T) {
	b := NewBus()
	got := make(chan Event, 10)
	bad := b.Subscribe(func(e Event) {
		panic("listener gone wrong")
	})
	defer b.Unsubscribe(bad)
	good := b.Subscribe(func(e Event) {
		got <- e
	})
	defer b.Unsubscribe(good)

	b.Publish(Event{Resource: "movie", IDs: []int64{1}})
	b.Publish(Event{Resource: "movie", IDs: []int64{2}})
	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Error("event lost after listener panic")
		}
	}
}
