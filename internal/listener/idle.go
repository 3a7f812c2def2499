package listener

import (
	"time"

	"github.com/axonmq/broker5/session"
)

// IdleSessions reports the id of every session in pool that has been idle
// (no packet read or written) for at least threshold. This broker never
// acts on the result: there is no server-initiated keepalive timeout in
// the core, so this exists purely for observability.
func (l *Listener) IdleSessions(threshold time.Duration) []string {
	var idle []string
	l.pool.ForEach(func(s *session.Session) {
		if s.IdleSince() >= threshold {
			idle = append(idle, s.ID())
		}
	})
	return idle
}
