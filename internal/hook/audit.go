package hook

import (
	"context"
	"time"

	"github.com/axonmq/broker5/internal/audit"
)

// AuditHook adapts an audit.Sink into a Hook, recording every lifecycle
// event it observes. It provides every session, subscription and publish
// event; Shutdown is the one event it does not record.
type AuditHook struct {
	*Base
	sink audit.Sink
}

// NewAuditHook wraps sink as a Hook.
func NewAuditHook(sink audit.Sink) *AuditHook {
	return &AuditHook{Base: NewBase("audit"), sink: sink}
}

func (h *AuditHook) Provides(event Event) bool {
	switch event {
	case SessionConnected, SessionDisconnected, Subscribed, Unsubscribed, Published, PublishDropped:
		return true
	default:
		return false
	}
}

func (h *AuditHook) OnSessionConnected(info SessionInfo) {
	h.record(audit.KindSessionConnected, info.ID, "")
}

func (h *AuditHook) OnSessionDisconnected(info SessionInfo) {
	h.record(audit.KindSessionDisconnected, info.ID, "")
}

func (h *AuditHook) OnSubscribed(sessionID, topic string) {
	h.record(audit.KindSubscribed, sessionID, topic)
}

func (h *AuditHook) OnUnsubscribed(sessionID, topic string) {
	h.record(audit.KindUnsubscribed, sessionID, topic)
}

func (h *AuditHook) OnPublish(info PublishInfo) error {
	h.record(audit.KindPublished, info.SessionID, info.Topic)
	return nil
}

func (h *AuditHook) OnPublishDropped(info PublishInfo) {
	h.record(audit.KindPublishDropped, info.SessionID, info.Topic)
}

func (h *AuditHook) Stop() error {
	return h.sink.Close()
}

func (h *AuditHook) record(kind audit.Kind, sessionID, topic string) {
	_ = h.sink.Record(context.Background(), audit.Event{
		Kind:      kind,
		SessionID: sessionID,
		Topic:     topic,
		At:        time.Now(),
	})
}
