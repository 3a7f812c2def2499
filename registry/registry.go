// Package registry implements the process-wide subscription table: which
// sessions are subscribed to which topic, and fan-out of published messages
// to them. Matching is exact-string only; no wildcards, no shared
// subscriptions, no retained messages.
package registry

import (
	"log/slog"
	"sync"

	"github.com/axonmq/broker5/internal/metrics"
)

// Subscriber is the session-side contract the registry needs: enough to
// enqueue a packet and to identify the session in logs, without the
// registry package depending on the session package's full state machine.
type Subscriber interface {
	ID() string
	Enqueue(topic string, payload []byte) bool
}

// Registry maps topic name to the set of subscribers listening on it. A
// session purges itself on termination rather than the registry holding a
// weak reference to it, per the RAII-style scoped-registration strategy.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
	log    *slog.Logger
}

func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		topics: make(map[string]map[Subscriber]struct{}),
		log:    log,
	}
}

// Subscribe adds sub to topic's subscriber set. Subscribing twice to the
// same topic is a no-op: the set already deduplicates by identity.
func (r *Registry) Subscribe(sub Subscriber, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.topics[topic]
	if !ok {
		set = make(map[Subscriber]struct{})
		r.topics[topic] = set
	}
	if _, already := set[sub]; !already {
		metrics.SubscriptionsActive.Inc()
	}
	set[sub] = struct{}{}
}

// Unsubscribe removes sub from topic. Unsubscribing from a topic sub never
// joined is a no-op.
func (r *Registry) Unsubscribe(sub Subscriber, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.topics[topic]
	if !ok {
		return
	}
	if _, present := set[sub]; present {
		metrics.SubscriptionsActive.Dec()
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(r.topics, topic)
	}
}

// Deliver enqueues payload to every current subscriber of topic. A
// subscriber whose outbox is full has its copy dropped; the publisher is
// never blocked by a slow subscriber.
func (r *Registry) Deliver(topic string, payload []byte) {
	r.mu.RLock()
	set := r.topics[topic]
	subs := make([]Subscriber, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		if !sub.Enqueue(topic, payload) {
			metrics.DroppedOutboxTotal.Inc()
			r.log.Warn("dropped publish: subscriber outbox full",
				"topic", topic, "subscriber", sub.ID())
		}
	}
}

// Purge removes sub from every topic it is subscribed to. Called exactly
// once per session, on every termination path.
func (r *Registry) Purge(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, set := range r.topics {
		if _, ok := set[sub]; ok {
			metrics.SubscriptionsActive.Dec()
			delete(set, sub)
			if len(set) == 0 {
				delete(r.topics, topic)
			}
		}
	}
}

// SubscriberCount returns the number of sessions subscribed to topic, for
// metrics and tests.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// TopicCount returns the number of topics with at least one subscriber.
func (r *Registry) TopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
