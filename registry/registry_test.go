package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	id       string
	capacity int
	received [][]byte
}

func newFakeSubscriber(id string, capacity int) *fakeSubscriber {
	return &fakeSubscriber{id: id, capacity: capacity}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Enqueue(topic string, payload []byte) bool {
	if len(f.received) >= f.capacity {
		return false
	}
	f.received = append(f.received, payload)
	return true
}

func TestSubscribeIdempotence(t *testing.T) {
	r := New(nil)
	sub := newFakeSubscriber("a", 10)

	r.Subscribe(sub, "/a")
	r.Subscribe(sub, "/a")

	assert.Equal(t, 1, r.SubscriberCount("/a"))
}

func TestFanOutToAllSubscribers(t *testing.T) {
	r := New(nil)
	a := newFakeSubscriber("a", 10)
	b := newFakeSubscriber("b", 10)
	c := newFakeSubscriber("c", 10)

	r.Subscribe(a, "/a")
	r.Subscribe(b, "/a")
	r.Subscribe(c, "/other")

	r.Deliver("/a", []byte("hi"))

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 1)
	assert.Equal(t, []byte("hi"), a.received[0])
	assert.Equal(t, []byte("hi"), b.received[0])
	assert.Empty(t, c.received)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := New(nil)
	a := newFakeSubscriber("a", 10)
	b := newFakeSubscriber("b", 10)

	r.Subscribe(a, "/a")
	r.Subscribe(b, "/a")
	r.Unsubscribe(a, "/a")

	r.Deliver("/a", []byte("hi"))

	assert.Empty(t, a.received)
	require.Len(t, b.received, 1)
}

func TestPurgeRemovesAllSubscriptions(t *testing.T) {
	r := New(nil)
	a := newFakeSubscriber("a", 10)

	r.Subscribe(a, "/a")
	r.Subscribe(a, "/b")
	r.Purge(a)

	assert.Equal(t, 0, r.SubscriberCount("/a"))
	assert.Equal(t, 0, r.SubscriberCount("/b"))
	assert.Equal(t, 0, r.TopicCount())
}

func TestDeliverDropsOnFullOutbox(t *testing.T) {
	r := New(nil)
	full := newFakeSubscriber("full", 0)

	r.Subscribe(full, "/a")
	r.Deliver("/a", []byte("hi"))

	assert.Empty(t, full.received)
}

func TestExactMatchOnlyNoWildcards(t *testing.T) {
	r := New(nil)
	sub := newFakeSubscriber("a", 10)

	r.Subscribe(sub, "/a/+")
	r.Deliver("/a/b", []byte("hi"))

	assert.Empty(t, sub.received, "subscription to a literal filter string must not match a different topic")
}
