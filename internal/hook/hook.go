// Package hook lets auxiliary behavior (rate limiting, audit logging)
// observe broker lifecycle events without the session and registry
// packages knowing about them directly.
package hook

import "time"

// Event identifies a point in a session's lifecycle that hooks can observe.
type Event byte

const (
	SessionConnected Event = iota
	SessionDisconnected
	Subscribed
	Unsubscribed
	Published
	PublishDropped
	Shutdown
)

func (e Event) String() string {
	names := [...]string{
		"SessionConnected",
		"SessionDisconnected",
		"Subscribed",
		"Unsubscribed",
		"Published",
		"PublishDropped",
		"Shutdown",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Unknown"
}

// SessionInfo describes the session a lifecycle event pertains to.
type SessionInfo struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
}

// PublishInfo describes a message that was published or dropped.
type PublishInfo struct {
	SessionID string
	Topic     string
	Size      int
}

// Hook defines the interface hooks register with a Manager. Provides
// lets a hook opt into only the events it cares about; the Manager skips
// calling the event-specific method otherwise.
type Hook interface {
	ID() string
	Provides(event Event) bool

	OnSessionConnected(info SessionInfo)
	OnSessionDisconnected(info SessionInfo)
	OnSubscribed(sessionID, topic string)
	OnUnsubscribed(sessionID, topic string)
	// OnPublish is called before a message is fanned out. Returning an
	// error vetoes the publish.
	OnPublish(info PublishInfo) error
	OnPublishDropped(info PublishInfo)
	OnShutdown()

	Stop() error
}
