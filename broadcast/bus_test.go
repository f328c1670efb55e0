package broadcast

import (
	"testing"
	"time"
)

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()

	select {
	case e := <-s.C:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	return Event{}
}

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus()

	a := bus.Subscribe(4)
	b := bus.Subscribe(4)
	defer a.Close()
	defer b.Close()

	bus.Publish(Event{Topic: TopicStart, Message: "Saving data..."})
	bus.Publish(Event{Topic: TopicInvalidate})

	for _, s := range []*Subscription{a, b} {
		if e := receive(t, s); e.Topic != TopicStart || e.Message != "Saving data..." {
			t.Errorf("first event = %+v", e)
		}
		if e := receive(t, s); e.Topic != TopicInvalidate {
			t.Errorf("second event = %+v", e)
		}
	}
}

func TestLocalBusDropsUnknownTopic(t *testing.T) {
	bus := NewLocalBus()
	s := bus.Subscribe(1)
	defer s.Close()

	bus.Publish(Event{Topic: "refresh"})

	select {
	case e := <-s.C:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestLocalBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewLocalBus()
	s := bus.Subscribe(1)
	defer s.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Topic: TopicEnd})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	if len(s.C) != 1 {
		t.Errorf("buffered %d events, want 1", len(s.C))
	}
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewLocalBus()
	s := bus.Subscribe(1)

	s.Close()
	s.Close()

	if _, ok := <-s.C; ok {
		t.Error("channel still open after Close")
	}

	bus.Publish(Event{Topic: TopicEnd})
}

func TestRelayFiltering(t *testing.T) {
	r := &Relay{instance: "self"}

	if !r.forward(Event{Topic: TopicEnd}) {
		t.Error("local event not forwarded")
	}
	if r.forward(Event{Topic: TopicEnd, Origin: "peer"}) {
		t.Error("relayed event forwarded again")
	}

	data, err := r.encode(Event{Topic: TopicInvalidate})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.decode(data); ok {
		t.Error("own echo accepted")
	}

	peer := &Relay{instance: "peer"}
	e, ok := peer.decode(data)
	if !ok || e.Topic != TopicInvalidate || e.Origin != "self" {
		t.Errorf("peer decoded %+v, %v", e, ok)
	}

	if _, ok := peer.decode([]byte("{")); ok {
		t.Error("malformed event accepted")
	}
}
