// Package listener accepts TCP connections, spins up one session per
// connection, and coordinates graceful shutdown across all live sessions.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/internal/metrics"
	"github.com/axonmq/broker5/registry"
	"github.com/axonmq/broker5/session"
)

// Listener owns the accept loop and the pool of sessions it spawns.
type Listener struct {
	addr     string
	ln       net.Listener
	pool     *Pool
	registry *registry.Registry
	hooks    *hook.Manager
	log      *slog.Logger

	connSeq atomic.Uint64
}

func New(addr string, reg *registry.Registry, hooks *hook.Manager, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		addr:     addr,
		pool:     NewPool(),
		registry: reg,
		hooks:    hooks,
		log:      log,
	}
}

func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) Pool() *Pool { return l.pool }

// Run opens the TCP listener and accepts connections until ctx is
// canceled. Each accepted connection is handled in its own goroutine; Run
// itself only returns once the accept loop has stopped.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listener: listen %s: %w", l.addr, err)
	}
	l.ln = ln

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("listener: accept: %w", err)
		}

		metrics.ConnectionsTotal.Inc()
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	id := l.nextConnID()
	sess := session.New(id, conn, l.registry, l.hooks, l.log)
	l.pool.Add(sess)
	defer l.pool.Remove(id)

	metrics.SessionsConnected.Inc()
	defer metrics.SessionsConnected.Dec()

	if err := sess.Run(ctx); err != nil {
		l.log.Debug("session ended", "session", id, "error", err)
	}
}

func (l *Listener) nextConnID() string {
	seq := l.connSeq.Add(1)
	return fmt.Sprintf("conn-%d-%d", time.Now().UnixNano(), seq)
}
