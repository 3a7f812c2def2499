// Package audit records broker lifecycle events (connects, disconnects,
// subscribes, publishes) to a pluggable sink. It is an append-only event
// log, not session-resumption state: nothing here survives a client's
// reconnect as broker-side session memory.
package audit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSinkClosed = errors.New("audit: sink closed")
	ErrNotFound   = errors.New("audit: event not found")
)

// Kind identifies what happened.
type Kind string

const (
	KindSessionConnected    Kind = "session_connected"
	KindSessionDisconnected Kind = "session_disconnected"
	KindSubscribed          Kind = "subscribed"
	KindUnsubscribed        Kind = "unsubscribed"
	KindPublished           Kind = "published"
	KindPublishDropped      Kind = "publish_dropped"
)

// Event is one audited occurrence.
type Event struct {
	ID        uint64
	Kind      Kind
	SessionID string
	Topic     string
	At        time.Time
}

// Sink persists events. Record is called synchronously from the event
// path, so implementations must not block longer than their own I/O
// requires.
type Sink interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, limit int) ([]Event, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
