package hook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonmq/broker5/internal/audit"
)

func TestAuditHookRecordsEvents(t *testing.T) {
	sink := audit.NewMemorySink()
	h := NewAuditHook(sink)

	h.OnSessionConnected(SessionInfo{ID: "s1"})
	h.OnSubscribed("s1", "/a")
	require.NoError(t, h.OnPublish(PublishInfo{SessionID: "s1", Topic: "/a"}))
	h.OnUnsubscribed("s1", "/a")
	h.OnSessionDisconnected(SessionInfo{ID: "s1"})

	events, err := sink.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, audit.KindSessionConnected, events[0].Kind)
	assert.Equal(t, audit.KindSessionDisconnected, events[4].Kind)
}

func TestAuditHookStopClosesSink(t *testing.T) {
	sink := audit.NewMemorySink()
	h := NewAuditHook(sink)

	require.NoError(t, h.Stop())
	assert.ErrorIs(t, sink.Close(), audit.ErrSinkClosed)
}
