package hook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	*Base
	events []Event
}

func newRecordingHook(id string) *recordingHook {
	return &recordingHook{Base: NewBase(id)}
}

func (h *recordingHook) Provides(Event) bool { return true }

func (h *recordingHook) OnSessionConnected(SessionInfo)    { h.events = append(h.events, SessionConnected) }
func (h *recordingHook) OnSessionDisconnected(SessionInfo) { h.events = append(h.events, SessionDisconnected) }
func (h *recordingHook) OnSubscribed(string, string)       { h.events = append(h.events, Subscribed) }
func (h *recordingHook) OnUnsubscribed(string, string)     { h.events = append(h.events, Unsubscribed) }
func (h *recordingHook) OnPublish(PublishInfo) error       { h.events = append(h.events, Published); return nil }
func (h *recordingHook) OnPublishDropped(PublishInfo)      { h.events = append(h.events, PublishDropped) }
func (h *recordingHook) OnShutdown()                       { h.events = append(h.events, Shutdown) }

func TestManagerFiresRegisteredHooks(t *testing.T) {
	m := NewManager()
	rec := newRecordingHook("rec")
	require.NoError(t, m.Add(rec))

	m.FireSessionConnected(SessionInfo{ID: "s1"})
	m.FireSubscribed("s1", "/a")
	m.FirePublish(PublishInfo{SessionID: "s1", Topic: "/a"})
	m.FireUnsubscribed("s1", "/a")
	m.FirePublishDropped(PublishInfo{SessionID: "s1", Topic: "/a"})
	m.FireSessionDisconnected(SessionInfo{ID: "s1"})
	m.FireShutdown()

	assert.Equal(t, []Event{
		SessionConnected, Subscribed, Published, Unsubscribed,
		PublishDropped, SessionDisconnected, Shutdown,
	}, rec.events)
}

func TestManagerRejectsDuplicateID(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add(newRecordingHook("dup")))
	assert.ErrorIs(t, m.Add(newRecordingHook("dup")), ErrHookAlreadyExists)
}

func TestManagerRemove(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add(newRecordingHook("a")))
	require.NoError(t, m.Add(newRecordingHook("b")))
	require.NoError(t, m.Remove("a"))
	assert.Equal(t, 1, m.Count())
	assert.ErrorIs(t, m.Remove("a"), ErrHookNotFound)
}

func TestRateLimitHookRejectsOverLimit(t *testing.T) {
	h := NewRateLimitHook(2, time.Minute)
	defer h.Stop()

	info := PublishInfo{SessionID: "s1", Topic: "/a"}
	require.NoError(t, h.OnPublish(info))
	require.NoError(t, h.OnPublish(info))
	assert.ErrorIs(t, h.OnPublish(info), ErrRateLimitExceeded)
}

func TestRateLimitHookTracksSessionsIndependently(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)
	defer h.Stop()

	require.NoError(t, h.OnPublish(PublishInfo{SessionID: "s1"}))
	require.NoError(t, h.OnPublish(PublishInfo{SessionID: "s2"}))
	assert.Equal(t, 2, h.ActiveSessions())
}

func TestRateLimitHookResetSession(t *testing.T) {
	h := NewRateLimitHook(1, time.Minute)
	defer h.Stop()

	require.NoError(t, h.OnPublish(PublishInfo{SessionID: "s1"}))
	h.ResetSession("s1")
	require.NoError(t, h.OnPublish(PublishInfo{SessionID: "s1"}))
}
