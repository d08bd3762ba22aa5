package stream

import (
	"log"
	"sync"
	"time"
)

// subscriberBuffer bounds how far a slow subscriber may fall behind live
// events before it is dropped.
const subscriberBuffer = 64

// Subscriber is one registered output sink for a session's events.
type Subscriber struct {
	sessionID string
	events    chan Event
	closeOnce sync.Once
}

// Events returns the subscriber's event channel. The channel is closed when
// the subscriber is dropped, unsubscribed, or its session is closed.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// SessionID returns the session this subscriber watches.
func (s *Subscriber) SessionID() string {
	return s.sessionID
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// Distributor fans live update events out to all subscribers of a session.
// Delivery is at-most-once best-effort; callers needing a guarantee pair it
// with the repository polling backstop.
type Distributor struct {
	logger *log.Logger

	mu          sync.Mutex
	subscribers map[string]map[*Subscriber]struct{}
}

// NewDistributor creates an empty distributor.
func NewDistributor(logger *log.Logger) *Distributor {
	return &Distributor{
		logger:      logger,
		subscribers: make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new sink for the session. The subscriber's channel is
// pre-loaded with a connected event followed by the given replay events, so a
// new subscriber always sees full history before any live event. Registration
// and replay happen under the same lock as Publish: no live event can
// interleave with, or precede, the replay.
func (d *Distributor) Subscribe(sessionID string, replay []Event) *Subscriber {
	sub := &Subscriber{
		sessionID: sessionID,
		events:    make(chan Event, len(replay)+1+subscriberBuffer),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	sub.events <- Connected(time.Now())
	for _, event := range replay {
		sub.events <- event
	}
	sinks, ok := d.subscribers[sessionID]
	if !ok {
		sinks = make(map[*Subscriber]struct{})
		d.subscribers[sessionID] = sinks
	}
	sinks[sub] = struct{}{}
	return sub
}

// Publish delivers an event to every current subscriber of the session. A
// subscriber that cannot accept the event (its buffer is full, typically a
// stalled connection) is silently dropped from the registry.
func (d *Distributor) Publish(sessionID string, event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for sub := range d.subscribers[sessionID] {
		select {
		case sub.events <- event:
		default:
			d.remove(sub)
			d.logf("dropped stalled subscriber for session %s", sessionID)
		}
	}
}

// Unsubscribe removes exactly one sink. Safe to call more than once.
func (d *Distributor) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remove(sub)
}

// CloseSession drops every subscriber of the session. Buffered events,
// including a terminal session_update published just before the close, are
// still delivered before each subscriber's channel reports closed.
func (d *Distributor) CloseSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for sub := range d.subscribers[sessionID] {
		sub.close()
	}
	delete(d.subscribers, sessionID)
}

// SubscriberCount returns the number of live sinks for a session.
func (d *Distributor) SubscriberCount(sessionID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subscribers[sessionID])
}

func (d *Distributor) remove(sub *Subscriber) {
	sinks, ok := d.subscribers[sub.sessionID]
	if !ok {
		return
	}
	if _, registered := sinks[sub]; !registered {
		return
	}
	delete(sinks, sub)
	if len(sinks) == 0 {
		delete(d.subscribers, sub.sessionID)
	}
	sub.close()
}

func (d *Distributor) logf(format string, args ...any) {
	if d == nil || d.logger == nil {
		return
	}
	d.logger.Printf(format, args...)
}
