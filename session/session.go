// Package session implements the per-connection state machine: the
// CONNECT handshake, a dispatch loop over subsequent packets, and the
// bounded outbound queue a session drains to its socket.
package session

import (
	"bytes"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/mqtt"
	"github.com/axonmq/broker5/registry"
)

// State is a session's position in the handshake/dispatch/termination
// lifecycle. Transitions only ever move forward.
type State int32

const (
	AwaitingConnect State = iota
	Connected
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingConnect:
		return "awaiting_connect"
	case Connected:
		return "connected"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// outboxCapacity bounds each session's pending-write queue. A delivery
// that would block past this is instead dropped, per the delivery
// contract: no subscriber slows down anyone else.
const outboxCapacity = 256

// Session is one TCP connection's broker-side state. It implements
// registry.Subscriber, so the registry can enqueue deliveries onto it
// without importing the session package.
type Session struct {
	id   string
	conn net.Conn
	log  *slog.Logger

	registry *registry.Registry
	hooks    *hook.Manager

	state atomic.Int32

	mu            sync.RWMutex
	subscriptions map[string]struct{}

	outbox chan mqtt.Packet

	lastActivity atomic.Int64
	dropped      atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

func New(id string, conn net.Conn, reg *registry.Registry, hooks *hook.Manager, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		id:            id,
		conn:          conn,
		log:           log,
		registry:      reg,
		hooks:         hooks,
		subscriptions: make(map[string]struct{}),
		outbox:        make(chan mqtt.Packet, outboxCapacity),
		done:          make(chan struct{}),
	}
	s.state.Store(int32(AwaitingConnect))
	s.touch()
	return s
}

func (s *Session) ID() string { return s.id }

// RemoteAddr returns the underlying connection's remote address.
func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) touch() { s.lastActivity.Store(time.Now().UnixNano()) }

// IdleSince reports how long it has been since the last packet was read
// from or written to this session. The broker tracks it but never acts on
// it: there is no server-initiated keepalive timeout in this core.
func (s *Session) IdleSince() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// DroppedCount returns how many outbound packets (publishes as well as
// CONNACK, SUBACK, UNSUBACK and PINGRESP replies) were dropped because this
// session's outbox was full.
func (s *Session) DroppedCount() uint64 { return s.dropped.Load() }

// Enqueue places a PUBLISH for topic/payload onto the outbox without
// blocking. Returns false if the session has already terminated, or if the
// outbox is full (only the full-outbox case increments DroppedCount). This
// is registry.Subscriber.
func (s *Session) Enqueue(topic string, payload []byte) bool {
	if s.State() == Terminated {
		return false
	}
	select {
	case s.outbox <- mqtt.NewPublish(topic, payload):
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

func (s *Session) addSubscription(topic string) {
	s.mu.Lock()
	s.subscriptions[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeSubscription(topic string) {
	s.mu.Lock()
	delete(s.subscriptions, topic)
	s.mu.Unlock()
}

// Subscriptions returns a snapshot of this session's subscribed topics.
func (s *Session) Subscriptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics := make([]string, 0, len(s.subscriptions))
	for t := range s.subscriptions {
		topics = append(topics, t)
	}
	return topics
}

// Close terminates the session exactly once: it purges the registry first,
// guaranteeing no further deliveries race a closing outbox, clears the
// session's own subscription set, then closes the socket and the drain
// loop's done channel.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		wasConnected := s.State() == Connected
		s.registry.Purge(s)
		s.mu.Lock()
		s.subscriptions = make(map[string]struct{})
		s.mu.Unlock()
		s.setState(Terminated)
		close(s.done)
		_ = s.conn.Close()

		if wasConnected && s.hooks != nil {
			s.hooks.FireSessionDisconnected(hook.SessionInfo{ID: s.id, RemoteAddr: s.RemoteAddr()})
		}
	})
}

// Done is closed once the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// writePacket serializes pkt into a buffer and writes it to the socket in
// a single Write. Used by the drain loop; callers producing packets
// concurrently must go through Enqueue.
func (s *Session) writePacket(pkt mqtt.Packet) error {
	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		return err
	}
	if _, err := (meterWriter{s.conn}).Write(buf.Bytes()); err != nil {
		return err
	}
	s.touch()
	return nil
}

// SendDirect writes pkt to the socket outside the outbox, bypassing the
// drain loop. Used only by graceful shutdown to deliver a final
// DISCONNECT before closing a session that may already be mid-teardown.
func (s *Session) SendDirect(pkt mqtt.Packet) error {
	return s.writePacket(pkt)
}
