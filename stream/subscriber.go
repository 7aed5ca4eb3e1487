package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber is the delivery endpoint for one connection. It uses a
// bounded buffered channel with a drop-on-full policy plus credit-based
// flow control: the client grants credits indicating how many events it
// can receive, and the broker drops when credits reach zero. Sends
// never block the publisher.
type Subscriber struct {
	// id uniquely identifies this subscriber (the connection ID).
	id string

	// ch is the buffered channel events are sent on.
	ch chan *Event

	// credits tracks remaining flow-control credits.
	// When zero, the broker drops events for this subscriber.
	credits atomic.Int64

	// dropped counts events this subscriber failed to receive.
	dropped atomic.Int64

	// channels tracks which channels this subscriber is on.
	channels map[string]struct{}
	mu       sync.RWMutex

	// sendMu excludes Close from in-flight sends. Publishers hold the
	// read side, so they never contend with each other.
	sendMu sync.RWMutex

	// closed prevents double-close of the channel.
	closed atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size and
// initial credits.
func NewSubscriber(id string, bufferSize int, initialCredits int64) *Subscriber {
	s := &Subscriber{
		id:       id,
		ch:       make(chan *Event, bufferSize),
		channels: make(map[string]struct{}),
	}
	s.credits.Store(initialCredits)
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits replenishes flow-control credits.
func (s *Subscriber) AddCredits(n int64) {
	s.credits.Add(n)
}

// Credits returns the current credit count.
func (s *Subscriber) Credits() int64 {
	return s.credits.Load()
}

// Dropped returns how many events were dropped for this subscriber.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// addChannel records that this subscriber is on the given channel.
func (s *Subscriber) addChannel(channel string) {
	s.mu.Lock()
	s.channels[channel] = struct{}{}
	s.mu.Unlock()
}

// removeChannel removes a channel from the subscriber's tracked set.
func (s *Subscriber) removeChannel(channel string) {
	s.mu.Lock()
	delete(s.channels, channel)
	s.mu.Unlock()
}

// Channels returns a copy of all subscribed channel names.
func (s *Subscriber) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	return out
}

// send attempts to deliver an event to the subscriber. At most one
// delivery per event. Returns false if the event was dropped (closed,
// no credits, or full buffer).
func (s *Subscriber) send(evt *Event) bool {
	// Close waits for the write side of this lock, so the channel
	// cannot be closed while a send is in flight.
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.closed.Load() {
		s.dropped.Add(1)
		return false
	}

	// Check credits.
	for {
		current := s.credits.Load()
		if current <= 0 {
			s.dropped.Add(1)
			return false
		}
		if s.credits.CompareAndSwap(current, current-1) {
			break
		}
	}

	// Non-blocking send.
	select {
	case s.ch <- evt:
		return true
	default:
		// Buffer full, restore credit.
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
}

// Close closes the subscriber channel. Safe to call multiple times
// and safe against concurrent sends.
func (s *Subscriber) Close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
