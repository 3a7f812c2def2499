package session

import (
	"context"
	"errors"
	"bytes"
	"io"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/internal/metrics"
	"github.com/axonmq/broker5/mqtt"
)

// meterReader and meterWriter feed the broker-wide bytes in/out counters
// as a side effect of the session's normal socket I/O.
type meterReader struct {
	r io.Reader
}

func (m meterReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		metrics.BytesReceived.Add(float64(n))
	}
	return n, err
}

type meterWriter struct {
	w io.Writer
}

func (m meterWriter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	if n > 0 {
		metrics.BytesSent.Add(float64(n))
	}
	return n, err
}

// Run drives the session to completion: the CONNECT handshake, then the
// dispatch loop over subsequent packets, paired with the outbox drain
// loop. It returns once both goroutines have exited, after the session is
// fully terminated and purged from the registry.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	if err := s.handshake(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.dispatchLoop(gctx) })
	group.Go(func() error { return s.drainLoop(gctx) })

	err := group.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, errDisconnectRequested) {
		return nil
	}
	return err
}

// handshake enforces the AwaitingConnect -> Connected transition: the
// first packet read must be CONNECT. Any other type terminates the session
// with ErrProtocolError; a read error terminates it with that error. This
// broker does not validate protocol-name or version before accepting it.
func (s *Session) handshake() error {
	pkt, err := mqtt.ReadPacket(meterReader{s.conn})
	if err != nil {
		return err
	}

	if pkt.Type() != mqtt.CONNECT {
		return ErrProtocolError
	}

	s.setState(Connected)
	s.touch()

	ack := mqtt.NewConnAck()
	select {
	case s.outbox <- ack:
	default:
		s.dropped.Add(1)
	}

	s.log.Debug("session connected", "session", s.id)
	if s.hooks != nil {
		s.hooks.FireSessionConnected(hook.SessionInfo{ID: s.id, RemoteAddr: s.RemoteAddr()})
	}
	return nil
}

// dispatchLoop reads one packet at a time and applies it. SUBSCRIBE and
// UNSUBSCRIBE are applied to the registry before their ack is enqueued, so
// any PUBLISH whose registry lookup starts after the ack is observed sees
// the updated subscription set.
func (s *Session) dispatchLoop(ctx context.Context) error {
	log.Printf("[%s] dispatchLoop enter", s.id)
	defer func() { log.Printf("[%s] dispatchLoop exit", s.id) }()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		log.Printf("[%s] dispatchLoop about to read", s.id)
		var buf bytes.Buffer
		tee := io.TeeReader(s.conn, &buf)
		pkt, err := mqtt.ReadPacket(meterReader{tee})
		log.Printf("[%s] dispatchLoop read done err=%v raw=%x", s.id, err, buf.Bytes())
		if err != nil {
			return err
		}
		s.touch()
		metrics.PacketsReceived.WithLabelValues(pkt.Type().String()).Inc()

		if err := s.handle(pkt); err != nil {
			return err
		}
	}
}

func (s *Session) handle(pkt mqtt.Packet) error {
	switch p := pkt.(type) {
	case *mqtt.SubscribePacket:
		for _, f := range p.Filters {
			s.registry.Subscribe(s, f.Filter)
			s.addSubscription(f.Filter)
			if s.hooks != nil {
				s.hooks.FireSubscribed(s.id, f.Filter)
			}
		}
		return s.send(mqtt.NewSubAck(p))

	case *mqtt.UnsubscribePacket:
		for _, topic := range p.Filters {
			s.registry.Unsubscribe(s, topic)
			s.removeSubscription(topic)
			if s.hooks != nil {
				s.hooks.FireUnsubscribed(s.id, topic)
			}
		}
		return s.send(mqtt.NewUnsubAck(p))

	case *mqtt.PublishPacket:
		if s.hooks != nil {
			info := hook.PublishInfo{SessionID: s.id, Topic: p.Topic, Size: len(p.Payload)}
			if err := s.hooks.FirePublish(info); err != nil {
				s.hooks.FirePublishDropped(info)
				return nil
			}
		}
		s.registry.Deliver(p.Topic, p.Payload)
		return nil

	case *mqtt.PingreqPacket:
		return s.send(mqtt.NewPingResp())

	case *mqtt.DisconnectPacket:
		return errDisconnectRequested

	default:
		// Structurally valid but out-of-scope packet types (PUBACK,
		// PUBREC, PUBREL, PUBCOMP, AUTH, a client-sent CONNACK/CONNECT
		// after handshake) are logged and ignored rather than
		// terminating the session.
		s.log.Warn("ignoring unexpected packet", "session", s.id, "type", pkt.Type().String())
		return nil
	}
}

// send enqueues pkt for the drain loop to write. A full outbox counts the
// drop instead of blocking dispatch.
func (s *Session) send(pkt mqtt.Packet) error {
	select {
	case s.outbox <- pkt:
		return nil
	default:
		s.dropped.Add(1)
		return nil
	}
}

// drainLoop writes every packet placed on the outbox to the socket, in
// order, until the session is done or the context is canceled.
func (s *Session) drainLoop(ctx context.Context) error {
	log.Printf("[%s] drainLoop enter", s.id)
	defer func() { log.Printf("[%s] drainLoop exit", s.id) }()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case pkt := <-s.outbox:
			if err := s.writePacket(pkt); err != nil {
				return err
			}
			metrics.PacketsSent.WithLabelValues(pkt.Type().String()).Inc()
		}
	}
}
