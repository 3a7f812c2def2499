package listener

import (
	"context"
	"sync"
	"time"

	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/mqtt"
	"github.com/axonmq/broker5/session"
)

// DefaultGracefulTimeout bounds how long Shutdown waits for every session's
// DISCONNECT to be written before force-closing the rest.
const DefaultGracefulTimeout = 10 * time.Second

// Shutdown sends every session in pool a DISCONNECT with reason
// ServerShuttingDown, then closes it, bounded by timeout. It returns once
// every session has been signaled, or the timeout elapses, whichever
// happens first.
func Shutdown(ctx context.Context, pool *Pool, hooks *hook.Manager, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultGracefulTimeout
	}
	if hooks != nil {
		hooks.FireShutdown()
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var wg sync.WaitGroup
	pool.ForEach(func(s *session.Session) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			disconnectSession(s)
		}()
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-timeoutCtx.Done():
		pool.ForEach(func(s *session.Session) { s.Close() })
	}
}

func disconnectSession(s *session.Session) {
	pkt := &mqtt.DisconnectPacket{ReasonCode: mqtt.ReasonServerShuttingDown}
	_ = s.SendDirect(pkt)
	s.Close()
}
