package hook

import (
	"sync"
	"sync/atomic"
)

// Manager fans lifecycle events out to registered hooks. Reads (the hot
// path, one per connect/publish/etc.) load an atomic snapshot; writes
// (registration, which happens at startup) take a lock and copy.
type Manager struct {
	mu       sync.Mutex
	hooksPtr atomic.Pointer[[]Hook]
	index    map[string]int
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	m := &Manager{index: make(map[string]int)}
	hooks := make([]Hook, 0)
	m.hooksPtr.Store(&hooks)
	return m
}

// Add registers a hook. Returns ErrHookAlreadyExists if its ID collides
// with an already-registered hook.
func (m *Manager) Add(h Hook) error {
	if h == nil || h.ID() == "" {
		return ErrEmptyHookID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[h.ID()]; exists {
		return ErrHookAlreadyExists
	}

	old := *m.hooksPtr.Load()
	updated := make([]Hook, len(old)+1)
	copy(updated, old)
	updated[len(old)] = h

	m.index[h.ID()] = len(old)
	m.hooksPtr.Store(&updated)
	return nil
}

// Remove unregisters a hook by ID.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, exists := m.index[id]
	if !exists {
		return ErrHookNotFound
	}

	old := *m.hooksPtr.Load()
	updated := make([]Hook, len(old)-1)
	copy(updated[:idx], old[:idx])
	copy(updated[idx:], old[idx+1:])
	delete(m.index, id)

	for i := idx; i < len(updated); i++ {
		m.index[updated[i].ID()] = i
	}

	m.hooksPtr.Store(&updated)
	return nil
}

// Count returns the number of registered hooks.
func (m *Manager) Count() int {
	return len(*m.hooksPtr.Load())
}

// Close stops every registered hook.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	hooks := *m.hooksPtr.Load()
	for _, h := range hooks {
		_ = h.Stop()
	}
	empty := make([]Hook, 0)
	m.hooksPtr.Store(&empty)
	m.index = make(map[string]int)
}

func (m *Manager) FireSessionConnected(info SessionInfo) {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(SessionConnected) {
			h.OnSessionConnected(info)
		}
	}
}

func (m *Manager) FireSessionDisconnected(info SessionInfo) {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(SessionDisconnected) {
			h.OnSessionDisconnected(info)
		}
	}
}

func (m *Manager) FireSubscribed(sessionID, topic string) {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(Subscribed) {
			h.OnSubscribed(sessionID, topic)
		}
	}
}

func (m *Manager) FireUnsubscribed(sessionID, topic string) {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(Unsubscribed) {
			h.OnUnsubscribed(sessionID, topic)
		}
	}
}

// FirePublish runs every registered OnPublish hook and returns the first
// error encountered, vetoing the publish.
func (m *Manager) FirePublish(info PublishInfo) error {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(Published) {
			if err := h.OnPublish(info); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) FirePublishDropped(info PublishInfo) {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(PublishDropped) {
			h.OnPublishDropped(info)
		}
	}
}

func (m *Manager) FireShutdown() {
	for _, h := range *m.hooksPtr.Load() {
		if h.Provides(Shutdown) {
			h.OnShutdown()
		}
	}
}
