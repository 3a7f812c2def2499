package audit

import (
	"context"
	"sync"
)

// MemorySink is an in-memory Sink, useful for tests and for the default
// configuration where events don't need to survive a restart.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	closed bool
	nextID uint64
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(ctx context.Context, event Event) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}

	m.nextID++
	event.ID = m.nextID
	m.events = append(m.events, event)
	return nil
}

func (m *MemorySink) List(ctx context.Context, limit int) ([]Event, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrSinkClosed
	}

	n := len(m.events)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Event, n)
	copy(out, m.events[len(m.events)-n:])
	return out, nil
}

func (m *MemorySink) Count(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrSinkClosed
	}

	return int64(len(m.events)), nil
}

func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}

	m.closed = true
	m.events = nil
	return nil
}
