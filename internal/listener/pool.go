package listener

import (
	"sync"
	"sync/atomic"

	"github.com/axonmq/broker5/session"
)

// Pool tracks every live session so a graceful shutdown can reach all of
// them. It is not the subscription registry; membership here tracks
// connections, not topic interest.
type Pool struct {
	mu    sync.RWMutex
	conns map[string]*session.Session

	active atomic.Int32
	total  atomic.Int64
}

func NewPool() *Pool {
	return &Pool{conns: make(map[string]*session.Session)}
}

func (p *Pool) Add(s *session.Session) {
	p.mu.Lock()
	p.conns[s.ID()] = s
	p.mu.Unlock()
	p.active.Add(1)
	p.total.Add(1)
}

func (p *Pool) Remove(id string) {
	p.mu.Lock()
	_, existed := p.conns[id]
	delete(p.conns, id)
	p.mu.Unlock()
	if existed {
		p.active.Add(-1)
	}
}

// ForEach calls fn for every currently tracked session. fn must not mutate
// the pool.
func (p *Pool) ForEach(fn func(*session.Session)) {
	p.mu.RLock()
	sessions := make([]*session.Session, 0, len(p.conns))
	for _, s := range p.conns {
		sessions = append(sessions, s)
	}
	p.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}

func (p *Pool) Active() int32 { return p.active.Load() }

func (p *Pool) Total() int64 { return p.total.Load() }
