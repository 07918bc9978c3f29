// Package changefeed fans record change notifications out to in-process
// subscribers. Writers publish after a successful write; the Postgres
// listener publishes changes made by other processes.
package changefeed

import (
	"context"
	"sync"
	"time"
)

// Topics are collection names.
const (
	TopicPatients      = "patients"
	TopicAppointments  = "appointments"
	TopicScans         = "mri_scans"
	TopicResults       = "ai_results"
	TopicRegistrations = "patient_registrations"

	// TopicSessions carries session lifecycle events. RecordID is the
	// session ID.
	TopicSessions = "sessions"
)

// EventSessionEnded is published on TopicSessions when a session is ended.
const EventSessionEnded = "ENDED"

// Event describes one change to a collection.
type Event struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	RecordID  string    `json:"recordId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is implemented by Hub. Stores depend on this rather than on Hub.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscription receives events for its topics until Close is called.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	topics []string
	hub    *Hub
	once   sync.Once
}

// Close removes the subscription from the hub and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub tracks subscriptions by topic. All operations are safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	all    map[*Subscription]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		all:    make(map[*Subscription]struct{}),
		buffer: 16,
	}
}

// Subscribe registers interest in the given topics.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, topics: topics, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[sub] = struct{}{}
	for _, t := range topics {
		if h.topics[t] == nil {
			h.topics[t] = make(map[*Subscription]struct{})
		}
		h.topics[t][sub] = struct{}{}
	}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[sub]; !ok {
		return
	}
	for _, t := range sub.topics {
		if subs, ok := h.topics[t]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.topics, t)
			}
		}
	}
	delete(h.all, sub)
	close(sub.ch)
}

// Publish delivers the event to every subscriber of its topic. Slow
// subscribers whose buffer is full miss the event.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[event.Topic] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// SubscriberCount returns the number of open subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of subscriptions on a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
