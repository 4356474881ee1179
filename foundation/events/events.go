// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
)

// AllTopics is used when acquiring a channel to receive the events of
// every topic.
const AllTopics = ""

// subscriber is a registered receiver of events.
type subscriber struct {
	topic string
	ch    chan string
}

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events. Each channel can be limited to the
// events of a single topic.
type Events struct {
	m  map[string]subscriber
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and the topic to listen on and returns a channel
// that can be used to receive events. Use AllTopics to receive everything.
func (evt *Events) Acquire(id string, topic string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if exists {
		return sub.ch
	}

	// Since a message will be dropped if the websocket receiver is
	// not ready to receive, this arbitrary buffer should give the receiver
	// enough time to not lose a message. Websocket send could take long.
	const messageBuffer = 100

	sub = subscriber{
		topic: topic,
		ch:    make(chan string, messageBuffer),
	}
	evt.m[id] = sub

	return sub.ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)
	return nil
}

// Count returns the number of registered channels.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every channel registered for the topic or for
// all topics. Send will not block waiting for a receiver on any given channel.
func (evt *Events) Send(topic string, s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.m {
		if sub.topic != AllTopics && sub.topic != topic {
			continue
		}

		select {
		case sub.ch <- s:
		default:
		}
	}
}
