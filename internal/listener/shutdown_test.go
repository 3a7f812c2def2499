package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/mqtt"
)

func TestShutdownSendsDisconnect(t *testing.T) {
	pool := NewPool()
	s, client := newTestSession(t, "s1")
	pool.Add(s)

	done := make(chan error, 1)
	go func() {
		_, err := mqtt.ReadPacket(client)
		done <- err
	}()

	Shutdown(context.Background(), pool, nil, time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect packet")
	}
}

func TestShutdownFiresHook(t *testing.T) {
	pool := NewPool()
	manager := hook.NewManager()
	fired := make(chan struct{}, 1)
	h := &shutdownProbe{Base: hook.NewBase("probe"), fired: fired}
	require.NoError(t, manager.Add(h))

	Shutdown(context.Background(), pool, manager, time.Second)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook never fired")
	}
}

type shutdownProbe struct {
	*hook.Base
	fired chan struct{}
}

func (p *shutdownProbe) Provides(event hook.Event) bool { return event == hook.Shutdown }
func (p *shutdownProbe) OnShutdown()                    { p.fired <- struct{}{} }

// The client end never reads, so the DISCONNECT write blocks on the pipe
// and only the timeout gets Shutdown back.
func TestShutdownRespectsTimeoutWithUnresponsiveSession(t *testing.T) {
	pool := NewPool()
	s, _ := newTestSession(t, "stuck")
	pool.Add(s)

	start := time.Now()
	Shutdown(context.Background(), pool, nil, 50*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}
