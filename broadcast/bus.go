/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package broadcast is the publish/subscribe channel the server uses to
// notify every connected viewer about operation lifecycle changes.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Topic is one of the fixed notification kinds.
type Topic string

const (
	TopicStart      Topic = "start"
	TopicEnd        Topic = "end"
	TopicError      Topic = "error"
	TopicInvalidate Topic = "invalidate"
)

func (t Topic) Valid() bool {
	switch t {
	case TopicStart, TopicEnd, TopicError, TopicInvalidate:
		return true
	}

	return false
}

// Event is a single notification. Origin is empty for events published by
// this process and holds the instance id for events relayed from a peer.
type Event struct {
	Topic   Topic  `json:"topic"`
	Message string `json:"message,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

type Bus interface {
	Publish(Event)
	Subscribe(buffer int) *Subscription
}

// Subscription receives every event published after it was created, as long
// as it keeps up. Events that do not fit in the buffer are dropped.
type Subscription struct {
	C <-chan Event

	ch   chan Event
	bus  *LocalBus
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()

		close(s.ch)
	})
}

// LocalBus fans events out to in-process subscribers.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		subs: make(map[*Subscription]struct{}),
	}
}

func (b *LocalBus) Subscribe(buffer int) *Subscription {
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s
}

func (b *LocalBus) Publish(e Event) {
	if !e.Topic.Valid() {
		log.Warn().Str("topic", string(e.Topic)).Msg("dropping event with unknown topic")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			log.Warn().Str("topic", string(e.Topic)).Msg("subscriber buffer full, dropping event")
		}
	}
}
