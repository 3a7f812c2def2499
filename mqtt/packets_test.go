package mqtt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHex(t *testing.T, b []byte) Packet {
	t.Helper()
	pkt, err := ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	return pkt
}

// S1 — CONNECT/CONNACK handshake: MQTT v5, clean-start, keepalive 60, no
// properties, empty client id.
func TestConnectHandshakeBytes(t *testing.T) {
	raw := []byte{0x10, 0x0D, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x05, 0x02, 0x00, 0x3C, 0x00, 0x00, 0x00}

	pkt := decodeHex(t, raw)
	connect, ok := pkt.(*ConnectPacket)
	require.True(t, ok)
	assert.Equal(t, "MQTT", connect.ProtocolName)
	assert.Equal(t, byte(5), connect.ProtocolVersion)
	assert.True(t, connect.CleanStart)
	assert.Equal(t, uint16(60), connect.KeepAlive)
	assert.Equal(t, "", connect.ClientID)

	ack := NewConnAck()
	var buf bytes.Buffer
	require.NoError(t, ack.Encode(&buf))
	assert.Equal(t, []byte{0x20, 0x03, 0x00, 0x00, 0x00}, buf.Bytes())
}

// S2 — SUBSCRIBE/SUBACK.
func TestSubscribeAckBytes(t *testing.T) {
	raw := []byte{0x82, 0x08, 0x00, 0x01, 0x00, 0x00, 0x02, 0x2F, 0x61, 0x00}

	pkt := decodeHex(t, raw)
	sub, ok := pkt.(*SubscribePacket)
	require.True(t, ok)
	assert.Equal(t, uint16(1), sub.PacketID)
	require.Len(t, sub.Filters, 1)
	assert.Equal(t, "/a", sub.Filters[0].Filter)
	assert.Equal(t, byte(0), sub.Filters[0].Options)

	suback := NewSubAck(sub)
	var buf bytes.Buffer
	require.NoError(t, suback.Encode(&buf))
	assert.Equal(t, []byte{0x90, 0x04, 0x00, 0x01, 0x00, 0x00}, buf.Bytes())
}

// S3 — PUBLISH fan-out wire shape: the exact bytes forwarded to subscribers.
func TestPublishBytes(t *testing.T) {
	raw := []byte{0x30, 0x07, 0x00, 0x02, 0x2F, 0x61, 0x00, 0x68, 0x69}

	pkt := decodeHex(t, raw)
	pub, ok := pkt.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, "/a", pub.Topic)
	assert.Equal(t, byte(0), pub.QoS)
	assert.Equal(t, []byte("hi"), pub.Payload)

	forwarded := NewPublish("/a", []byte("hi"))
	var buf bytes.Buffer
	require.NoError(t, forwarded.Encode(&buf))
	assert.Equal(t, raw, buf.Bytes())
}

// S4 — UNSUBSCRIBE/UNSUBACK.
func TestUnsubscribeAckBytes(t *testing.T) {
	raw := []byte{0xA2, 0x07, 0x00, 0x02, 0x00, 0x00, 0x02, 0x2F, 0x61}

	pkt := decodeHex(t, raw)
	unsub, ok := pkt.(*UnsubscribePacket)
	require.True(t, ok)
	assert.Equal(t, uint16(2), unsub.PacketID)
	require.Len(t, unsub.Filters, 1)
	assert.Equal(t, "/a", unsub.Filters[0])

	unsuback := NewUnsubAck(unsub)
	var buf bytes.Buffer
	require.NoError(t, unsuback.Encode(&buf))
	assert.Equal(t, []byte{0xB0, 0x04, 0x00, 0x02, 0x00, 0x00}, buf.Bytes())
}

func TestSubscribeRejectsZeroFilters(t *testing.T) {
	raw := []byte{0x82, 0x03, 0x00, 0x01, 0x00}
	_, err := ReadPacket(bytes.NewReader(raw))
	var pktErr *PacketError
	require.ErrorAs(t, err, &pktErr)
	assert.Equal(t, ReasonProtocolError, pktErr.Reason)
}

func TestUnsubscribeRejectsZeroFilters(t *testing.T) {
	raw := []byte{0xA2, 0x03, 0x00, 0x02, 0x00}
	_, err := ReadPacket(bytes.NewReader(raw))
	var pktErr *PacketError
	require.ErrorAs(t, err, &pktErr)
	assert.Equal(t, ReasonProtocolError, pktErr.Reason)
}

func TestSubscribeRejectsBadFlags(t *testing.T) {
	raw := []byte{0x80, 0x08, 0x00, 0x01, 0x00, 0x00, 0x02, 0x2F, 0x61, 0x00}
	_, err := ReadPacket(bytes.NewReader(raw))
	assert.Error(t, err)
}

// S6 — a CONNACK sent by a client decodes like any other packet; the
// session handler rejects it at the handshake layer. A bare two-byte
// CONNACK with no variable header is malformed at the codec layer, which
// terminates the session just the same.
func TestDecodeClientSentConnack(t *testing.T) {
	pkt := decodeHex(t, []byte{0x20, 0x03, 0x00, 0x00, 0x00})
	assert.Equal(t, CONNACK, pkt.Type())

	_, err := ReadPacket(bytes.NewReader([]byte{0x20, 0x00}))
	assert.Error(t, err)
}

func TestPublishQoSGreaterThanZeroCarriesPacketID(t *testing.T) {
	raw := []byte{0x32, 0x09, 0x00, 0x02, 0x2F, 0x61, 0x00, 0x2A, 0x00, 0x68, 0x69}
	pkt := decodeHex(t, raw)
	pub, ok := pkt.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, byte(1), pub.QoS)
	assert.Equal(t, uint16(0x2A), pub.PacketID)
	assert.Equal(t, []byte("hi"), pub.Payload)
}

func TestPublishQoSZeroOmitsPacketID(t *testing.T) {
	forwarded := NewPublish("/a", []byte("hi"))
	assert.Equal(t, byte(0), forwarded.QoS)
	assert.Equal(t, uint16(0), forwarded.PacketID)
}

func TestPingreqPingrespRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PingreqPacket{}).Encode(&buf))
	assert.Equal(t, []byte{0xC0, 0x00}, buf.Bytes())

	pkt := decodeHex(t, []byte{0xD0, 0x00})
	assert.Equal(t, PINGRESP, pkt.Type())

	var respBuf bytes.Buffer
	require.NoError(t, NewPingResp().Encode(&respBuf))
	assert.Equal(t, []byte{0xD0, 0x00}, respBuf.Bytes())
}

func TestDisconnectZeroLengthIsSuccess(t *testing.T) {
	pkt := decodeHex(t, []byte{0xE0, 0x00})
	disc, ok := pkt.(*DisconnectPacket)
	require.True(t, ok)
	assert.Equal(t, ReasonSuccess, disc.ReasonCode)
}

func TestInvalidPacketTypeRejected(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0x00, 0x00}))
	assert.Error(t, err)
}

func TestPublishZeroLengthPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPublish("/a", nil).Encode(&buf))

	pub, ok := decodeHex(t, buf.Bytes()).(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, "/a", pub.Topic)
	assert.Empty(t, pub.Payload)
}

func TestPublishPropertiesRoundTrip(t *testing.T) {
	pub := NewPublish("/a", []byte("hi"))
	require.NoError(t, pub.Properties.Add(PropContentType, "text/plain"))
	require.NoError(t, pub.Properties.Add(PropUserProperty, StringPair{Key: "k", Value: "v"}))

	var buf bytes.Buffer
	require.NoError(t, pub.Encode(&buf))

	got, ok := decodeHex(t, buf.Bytes()).(*PublishPacket)
	require.True(t, ok)
	ct, found := got.Properties.Get(PropContentType)
	require.True(t, found)
	assert.Equal(t, "text/plain", ct.Value)
	up, found := got.Properties.Get(PropUserProperty)
	require.True(t, found)
	assert.Equal(t, StringPair{Key: "k", Value: "v"}, up.Value)
}

func TestUnknownPropertyIDIsMalformed(t *testing.T) {
	// property id 0x04 is unassigned
	raw := []byte{0x30, 0x07, 0x00, 0x02, 0x2F, 0x61, 0x02, 0x04, 0x00}
	_, err := ReadPacket(bytes.NewReader(raw))
	var pktErr *PacketError
	require.ErrorAs(t, err, &pktErr)
	assert.Equal(t, ReasonMalformedPacket, pktErr.Reason)
}

func TestRemainingLengthBeyondDecodedBodyIsMalformed(t *testing.T) {
	// PINGREQ claims a body byte its type does not define
	_, err := ReadPacket(bytes.NewReader([]byte{0xC0, 0x01, 0x00}))
	assert.Error(t, err)
}

func TestFixedHeaderRoundTripsRemainingLengthAcrossVarIntWidths(t *testing.T) {
	topic := bytes.Repeat([]byte{'x'}, 200)
	pub := NewPublish(string(topic), bytes.Repeat([]byte{'y'}, 200))

	var buf bytes.Buffer
	require.NoError(t, pub.Encode(&buf))

	pkt := decodeHex(t, buf.Bytes())
	got, ok := pkt.(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, string(topic), got.Topic)
	assert.Len(t, got.Payload, 200)
}
