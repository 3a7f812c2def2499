package hook

// Base is a no-op implementation of Hook. Embed it and override only the
// methods a concrete hook cares about.
type Base struct {
	id string
}

// NewBase creates a base hook with the given identifier.
func NewBase(id string) *Base {
	return &Base{id: id}
}

func (b *Base) ID() string                        { return b.id }
func (b *Base) Provides(event Event) bool         { return false }
func (b *Base) OnSessionConnected(SessionInfo)    {}
func (b *Base) OnSessionDisconnected(SessionInfo) {}
func (b *Base) OnSubscribed(string, string)       {}
func (b *Base) OnUnsubscribed(string, string)     {}
func (b *Base) OnPublish(PublishInfo) error       { return nil }
func (b *Base) OnPublishDropped(PublishInfo)      {}
func (b *Base) OnShutdown()                       {}
func (b *Base) Stop() error                       { return nil }
