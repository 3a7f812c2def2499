package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonmq/broker5/mqtt"
	"github.com/axonmq/broker5/registry"
)

func TestListenerAcceptsConnectionAndHandshakes(t *testing.T) {
	l := New("127.0.0.1:0", registry.New(nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Addr() != nil }, time.Second, time.Millisecond)

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	connect := &mqtt.ConnectPacket{ProtocolName: "MQTT", ProtocolVersion: 5, ClientID: "t1"}
	require.NoError(t, connect.Encode(conn))

	ack, err := mqtt.ReadPacket(conn)
	require.NoError(t, err)
	assert.Equal(t, mqtt.CONNACK, ack.Type())

	require.Eventually(t, func() bool { return l.Pool().Active() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after context cancellation")
	}
}
