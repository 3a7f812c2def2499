package mqtt

// NewConnAck builds the CONNACK this broker sends for every accepted
// CONNECT: session-present false, reason success, no properties.
func NewConnAck() *ConnackPacket {
	return &ConnackPacket{
		SessionPresent: false,
		ReasonCode:     ReasonSuccess,
	}
}

// NewSubAck builds a SUBACK for sub, one ReasonSuccess per filter, in order.
func NewSubAck(sub *SubscribePacket) *SubackPacket {
	codes := make([]ReasonCode, len(sub.Filters))
	for i := range codes {
		codes[i] = ReasonSuccess
	}
	return &SubackPacket{
		PacketID:    sub.PacketID,
		ReasonCodes: codes,
	}
}

// NewUnsubAck builds an UNSUBACK for unsub, one ReasonSuccess per filter.
func NewUnsubAck(unsub *UnsubscribePacket) *UnsubackPacket {
	codes := make([]ReasonCode, len(unsub.Filters))
	for i := range codes {
		codes[i] = ReasonSuccess
	}
	return &UnsubackPacket{
		PacketID:    unsub.PacketID,
		ReasonCodes: codes,
	}
}

// NewPublish builds a QoS 0 PUBLISH carrying payload for topic: no dup, no
// retain, no packet-id, no properties. This is what registry fan-out sends
// to every subscriber.
func NewPublish(topic string, payload []byte) *PublishPacket {
	return &PublishPacket{
		Topic:   topic,
		Payload: payload,
	}
}

// NewPingResp builds the PINGRESP reply to a PINGREQ.
func NewPingResp() *PingrespPacket {
	return &PingrespPacket{}
}
