package mqtt

import (
	"bytes"
	"io"

	"github.com/axonmq/broker5/wire"
)

// Packet is implemented by every decoded control packet type.
type Packet interface {
	Type() PacketType
	Encode(w io.Writer) error
}

// ConnectPacket is the CONNECT variable header plus payload. Per the
// handshake rule, protocol-name and protocol-version are parsed but never
// validated: any CONNECT is accepted and advances the session to Connected.
type ConnectPacket struct {
	ProtocolName    string
	ProtocolVersion byte
	CleanStart      bool
	WillFlag        bool
	WillQoS         byte
	WillRetain      bool
	PasswordFlag    bool
	UsernameFlag    bool
	KeepAlive       uint16
	Properties      Properties
	ClientID        string
	WillProperties  Properties
	WillTopic       string
	WillPayload     []byte
	Username        string
	Password        []byte
}

func (p *ConnectPacket) Type() PacketType { return CONNECT }

// DecodeConnectPacket reads the variable header and payload from a body
// reader already positioned past the fixed header.
func DecodeConnectPacket(r io.Reader) (*ConnectPacket, error) {
	p := &ConnectPacket{}

	name, err := wire.ReadString(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ProtocolName = name

	version, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ProtocolVersion = version

	flags, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.CleanStart = flags&0x02 != 0
	p.WillFlag = flags&0x04 != 0
	p.WillQoS = (flags >> 3) & 0x03
	p.WillRetain = flags&0x20 != 0
	p.PasswordFlag = flags&0x40 != 0
	p.UsernameFlag = flags&0x80 != 0

	keepAlive, err := wire.ReadUint16(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.KeepAlive = keepAlive

	props, err := decodeProperties(r)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	clientID, err := wire.ReadString(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ClientID = clientID

	if p.WillFlag {
		willProps, err := decodeProperties(r)
		if err != nil {
			return nil, err
		}
		p.WillProperties = willProps

		willTopic, err := wire.ReadString(r)
		if err != nil {
			return nil, malformed(err)
		}
		p.WillTopic = willTopic

		willPayload, err := wire.ReadBinary(r)
		if err != nil {
			return nil, malformed(err)
		}
		p.WillPayload = willPayload
	}

	if p.UsernameFlag {
		username, err := wire.ReadString(r)
		if err != nil {
			return nil, malformed(err)
		}
		p.Username = username
	}

	if p.PasswordFlag {
		password, err := wire.ReadBinary(r)
		if err != nil {
			return nil, malformed(err)
		}
		p.Password = password
	}

	return p, nil
}

func (p *ConnectPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteString(&body, p.ProtocolName); err != nil {
		return err
	}
	if err := wire.WriteUint8(&body, p.ProtocolVersion); err != nil {
		return err
	}

	var flags byte
	if p.CleanStart {
		flags |= 0x02
	}
	if p.WillFlag {
		flags |= 0x04
		flags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			flags |= 0x20
		}
	}
	if p.PasswordFlag {
		flags |= 0x40
	}
	if p.UsernameFlag {
		flags |= 0x80
	}
	if err := wire.WriteUint8(&body, flags); err != nil {
		return err
	}
	if err := wire.WriteUint16(&body, p.KeepAlive); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	if err := wire.WriteString(&body, p.ClientID); err != nil {
		return err
	}
	if p.WillFlag {
		if err := encodeProperties(&body, p.WillProperties); err != nil {
			return err
		}
		if err := wire.WriteString(&body, p.WillTopic); err != nil {
			return err
		}
		if err := wire.WriteBinary(&body, p.WillPayload); err != nil {
			return err
		}
	}
	if p.UsernameFlag {
		if err := wire.WriteString(&body, p.Username); err != nil {
			return err
		}
	}
	if p.PasswordFlag {
		if err := wire.WriteBinary(&body, p.Password); err != nil {
			return err
		}
	}

	if err := encodeFixedHeader(w, CONNECT, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// ConnackPacket acknowledges a CONNECT. This broker never rejects a
// handshake, so SessionPresent is always false and ReasonCode always
// ReasonSuccess in practice, but both fields are carried for completeness.
type ConnackPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     Properties
}

func (p *ConnackPacket) Type() PacketType { return CONNACK }

func DecodeConnackPacket(r io.Reader) (*ConnackPacket, error) {
	p := &ConnackPacket{}

	ackFlags, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.SessionPresent = ackFlags&0x01 != 0

	reason, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ReasonCode = ReasonCode(reason)

	props, err := decodeProperties(r)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	return p, nil
}

func (p *ConnackPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	var ackFlags byte
	if p.SessionPresent {
		ackFlags |= 0x01
	}
	if err := wire.WriteUint8(&body, ackFlags); err != nil {
		return err
	}
	if err := wire.WriteUint8(&body, byte(p.ReasonCode)); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}

	if err := encodeFixedHeader(w, CONNACK, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// PublishPacket carries application data for a topic. PacketID is present
// only when QoS > 0; this broker accepts any QoS on the wire but routes
// every message best-effort as QoS 0, so it never emits a PUBACK/PUBREC in
// response.
type PublishPacket struct {
	DUP        bool
	QoS        byte
	Retain     bool
	Topic      string
	PacketID   uint16
	Properties Properties
	Payload    []byte
}

func (p *PublishPacket) Type() PacketType { return PUBLISH }

func DecodePublishPacket(r io.Reader, hdr FixedHeader) (*PublishPacket, error) {
	p := &PublishPacket{DUP: hdr.DUP, QoS: hdr.QoS, Retain: hdr.Retain}

	lr := &io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	topic, err := wire.ReadString(lr)
	if err != nil {
		return nil, malformed(err)
	}
	p.Topic = topic

	if hdr.QoS > 0 {
		packetID, err := wire.ReadUint16(lr)
		if err != nil {
			return nil, malformed(err)
		}
		p.PacketID = packetID
	}

	props, err := decodeProperties(lr)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	payload := make([]byte, lr.N)
	if len(payload) > 0 {
		if _, err := io.ReadFull(lr, payload); err != nil {
			return nil, malformed(err)
		}
	}
	p.Payload = payload

	return p, nil
}

func (p *PublishPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteString(&body, p.Topic); err != nil {
		return err
	}
	if p.QoS > 0 {
		if err := wire.WriteUint16(&body, p.PacketID); err != nil {
			return err
		}
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	if _, err := body.Write(p.Payload); err != nil {
		return err
	}

	hdr := FixedHeader{DUP: p.DUP, QoS: p.QoS, Retain: p.Retain}
	if err := encodeFixedHeader(w, PUBLISH, publishFlags(hdr), uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// ackPacket is the shared shape of PUBACK/PUBREC/PUBREL/PUBCOMP: a packet-id
// followed by an optional reason-code and properties, present only when
// remaining-length permits. This broker never originates these (QoS 0 only)
// but decodes them permissively for clients that send QoS > 0 anyway.
type ackPacket struct {
	typ        PacketType
	PacketID   uint16
	ReasonCode ReasonCode
	Properties Properties
	hasReason  bool
}

func decodeAckPacket(r io.Reader, hdr FixedHeader, typ PacketType) (*ackPacket, error) {
	p := &ackPacket{typ: typ}

	packetID, err := wire.ReadUint16(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.PacketID = packetID

	if hdr.RemainingLength < 3 {
		p.ReasonCode = ReasonSuccess
		return p, nil
	}
	p.hasReason = true

	reason, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ReasonCode = ReasonCode(reason)

	if hdr.RemainingLength < 4 {
		return p, nil
	}

	props, err := decodeProperties(r)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	return p, nil
}

func (p *ackPacket) Type() PacketType { return p.typ }

func (p *ackPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteUint16(&body, p.PacketID); err != nil {
		return err
	}
	if p.hasReason || p.ReasonCode != ReasonSuccess || len(p.Properties.List) > 0 {
		if err := wire.WriteUint8(&body, byte(p.ReasonCode)); err != nil {
			return err
		}
		if err := encodeProperties(&body, p.Properties); err != nil {
			return err
		}
	}

	flags := byte(0)
	if p.typ == PUBREL {
		flags = 0x02
	}
	if err := encodeFixedHeader(w, p.typ, flags, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

type PubackPacket struct{ ackPacket }
type PubrecPacket struct{ ackPacket }
type PubrelPacket struct{ ackPacket }
type PubcompPacket struct{ ackPacket }

func DecodePubackPacket(r io.Reader, hdr FixedHeader) (*PubackPacket, error) {
	a, err := decodeAckPacket(r, hdr, PUBACK)
	if err != nil {
		return nil, err
	}
	return &PubackPacket{*a}, nil
}

func DecodePubrecPacket(r io.Reader, hdr FixedHeader) (*PubrecPacket, error) {
	a, err := decodeAckPacket(r, hdr, PUBREC)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{*a}, nil
}

func DecodePubrelPacket(r io.Reader, hdr FixedHeader) (*PubrelPacket, error) {
	a, err := decodeAckPacket(r, hdr, PUBREL)
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{*a}, nil
}

func DecodePubcompPacket(r io.Reader, hdr FixedHeader) (*PubcompPacket, error) {
	a, err := decodeAckPacket(r, hdr, PUBCOMP)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{*a}, nil
}

// TopicFilter is one entry of a SUBSCRIBE payload.
type TopicFilter struct {
	Filter  string
	Options byte
}

// SubscribePacket must carry at least one topic filter; an empty payload is
// a protocol error, not merely malformed.
type SubscribePacket struct {
	PacketID   uint16
	Properties Properties
	Filters    []TopicFilter
}

func (p *SubscribePacket) Type() PacketType { return SUBSCRIBE }

func DecodeSubscribePacket(r io.Reader, hdr FixedHeader) (*SubscribePacket, error) {
	p := &SubscribePacket{}
	lr := &io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	packetID, err := wire.ReadUint16(lr)
	if err != nil {
		return nil, malformed(err)
	}
	p.PacketID = packetID

	props, err := decodeProperties(lr)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	for lr.N > 0 {
		filter, err := wire.ReadString(lr)
		if err != nil {
			return nil, malformed(err)
		}
		options, err := wire.ReadUint8(lr)
		if err != nil {
			return nil, malformed(err)
		}
		p.Filters = append(p.Filters, TopicFilter{Filter: filter, Options: options})
	}

	if len(p.Filters) == 0 {
		return nil, protocolError(ErrEmptySubscribe)
	}

	return p, nil
}

func (p *SubscribePacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteUint16(&body, p.PacketID); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	for _, f := range p.Filters {
		if err := wire.WriteString(&body, f.Filter); err != nil {
			return err
		}
		if err := wire.WriteUint8(&body, f.Options); err != nil {
			return err
		}
	}

	if err := encodeFixedHeader(w, SUBSCRIBE, 0x02, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// SubackPacket carries one reason code per filter in the originating
// SUBSCRIBE, in the same order.
type SubackPacket struct {
	PacketID    uint16
	Properties  Properties
	ReasonCodes []ReasonCode
}

func (p *SubackPacket) Type() PacketType { return SUBACK }

func DecodeSubackPacket(r io.Reader, hdr FixedHeader) (*SubackPacket, error) {
	p := &SubackPacket{}
	lr := &io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	packetID, err := wire.ReadUint16(lr)
	if err != nil {
		return nil, malformed(err)
	}
	p.PacketID = packetID

	props, err := decodeProperties(lr)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	for lr.N > 0 {
		reason, err := wire.ReadUint8(lr)
		if err != nil {
			return nil, malformed(err)
		}
		p.ReasonCodes = append(p.ReasonCodes, ReasonCode(reason))
	}

	return p, nil
}

func (p *SubackPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteUint16(&body, p.PacketID); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	for _, rc := range p.ReasonCodes {
		if err := wire.WriteUint8(&body, byte(rc)); err != nil {
			return err
		}
	}

	if err := encodeFixedHeader(w, SUBACK, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// UnsubscribePacket must carry at least one topic filter.
type UnsubscribePacket struct {
	PacketID   uint16
	Properties Properties
	Filters    []string
}

func (p *UnsubscribePacket) Type() PacketType { return UNSUBSCRIBE }

func DecodeUnsubscribePacket(r io.Reader, hdr FixedHeader) (*UnsubscribePacket, error) {
	p := &UnsubscribePacket{}
	lr := &io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	packetID, err := wire.ReadUint16(lr)
	if err != nil {
		return nil, malformed(err)
	}
	p.PacketID = packetID

	props, err := decodeProperties(lr)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	for lr.N > 0 {
		filter, err := wire.ReadString(lr)
		if err != nil {
			return nil, malformed(err)
		}
		p.Filters = append(p.Filters, filter)
	}

	if len(p.Filters) == 0 {
		return nil, protocolError(ErrEmptyUnsubscribe)
	}

	return p, nil
}

func (p *UnsubscribePacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteUint16(&body, p.PacketID); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	for _, f := range p.Filters {
		if err := wire.WriteString(&body, f); err != nil {
			return err
		}
	}

	if err := encodeFixedHeader(w, UNSUBSCRIBE, 0x02, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// UnsubackPacket carries one reason code per filter in the originating
// UNSUBSCRIBE.
type UnsubackPacket struct {
	PacketID    uint16
	Properties  Properties
	ReasonCodes []ReasonCode
}

func (p *UnsubackPacket) Type() PacketType { return UNSUBACK }

func DecodeUnsubackPacket(r io.Reader, hdr FixedHeader) (*UnsubackPacket, error) {
	p := &UnsubackPacket{}
	lr := &io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	packetID, err := wire.ReadUint16(lr)
	if err != nil {
		return nil, malformed(err)
	}
	p.PacketID = packetID

	props, err := decodeProperties(lr)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	for lr.N > 0 {
		reason, err := wire.ReadUint8(lr)
		if err != nil {
			return nil, malformed(err)
		}
		p.ReasonCodes = append(p.ReasonCodes, ReasonCode(reason))
	}

	return p, nil
}

func (p *UnsubackPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if err := wire.WriteUint16(&body, p.PacketID); err != nil {
		return err
	}
	if err := encodeProperties(&body, p.Properties); err != nil {
		return err
	}
	for _, rc := range p.ReasonCodes {
		if err := wire.WriteUint8(&body, byte(rc)); err != nil {
			return err
		}
	}

	if err := encodeFixedHeader(w, UNSUBACK, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// PingreqPacket and PingrespPacket have no variable header or payload.
type PingreqPacket struct{}

func (p *PingreqPacket) Type() PacketType { return PINGREQ }

func DecodePingreqPacket(io.Reader, FixedHeader) (*PingreqPacket, error) {
	return &PingreqPacket{}, nil
}

func (p *PingreqPacket) Encode(w io.Writer) error {
	return encodeFixedHeader(w, PINGREQ, 0, 0)
}

type PingrespPacket struct{}

func (p *PingrespPacket) Type() PacketType { return PINGRESP }

func DecodePingrespPacket(io.Reader, FixedHeader) (*PingrespPacket, error) {
	return &PingrespPacket{}, nil
}

func (p *PingrespPacket) Encode(w io.Writer) error {
	return encodeFixedHeader(w, PINGRESP, 0, 0)
}

// DisconnectPacket's reason-code and properties are both optional, gated on
// remaining-length; a zero-length DISCONNECT means ReasonSuccess with no
// properties.
type DisconnectPacket struct {
	ReasonCode ReasonCode
	Properties Properties
	hasReason  bool
}

func (p *DisconnectPacket) Type() PacketType { return DISCONNECT }

func DecodeDisconnectPacket(r io.Reader, hdr FixedHeader) (*DisconnectPacket, error) {
	p := &DisconnectPacket{}
	if hdr.RemainingLength == 0 {
		p.ReasonCode = ReasonSuccess
		return p, nil
	}
	p.hasReason = true

	reason, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ReasonCode = ReasonCode(reason)

	if hdr.RemainingLength < 2 {
		return p, nil
	}

	props, err := decodeProperties(r)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	return p, nil
}

func (p *DisconnectPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if p.hasReason || p.ReasonCode != ReasonSuccess || len(p.Properties.List) > 0 {
		if err := wire.WriteUint8(&body, byte(p.ReasonCode)); err != nil {
			return err
		}
		if len(p.Properties.List) > 0 {
			if err := encodeProperties(&body, p.Properties); err != nil {
				return err
			}
		}
	}

	if err := encodeFixedHeader(w, DISCONNECT, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// AuthPacket follows the same optional reason-code/properties shape as
// DISCONNECT. This broker never initiates extended authentication
// (Non-goal), but decodes AUTH permissively so an unexpected one doesn't
// crash the session.
type AuthPacket struct {
	ReasonCode ReasonCode
	Properties Properties
	hasReason  bool
}

func (p *AuthPacket) Type() PacketType { return AUTH }

func DecodeAuthPacket(r io.Reader, hdr FixedHeader) (*AuthPacket, error) {
	p := &AuthPacket{}
	if hdr.RemainingLength == 0 {
		p.ReasonCode = ReasonSuccess
		return p, nil
	}
	p.hasReason = true

	reason, err := wire.ReadUint8(r)
	if err != nil {
		return nil, malformed(err)
	}
	p.ReasonCode = ReasonCode(reason)

	if hdr.RemainingLength < 2 {
		return p, nil
	}

	props, err := decodeProperties(r)
	if err != nil {
		return nil, err
	}
	p.Properties = props

	return p, nil
}

func (p *AuthPacket) Encode(w io.Writer) error {
	var body bytes.Buffer
	if p.hasReason || p.ReasonCode != ReasonSuccess || len(p.Properties.List) > 0 {
		if err := wire.WriteUint8(&body, byte(p.ReasonCode)); err != nil {
			return err
		}
		if len(p.Properties.List) > 0 {
			if err := encodeProperties(&body, p.Properties); err != nil {
				return err
			}
		}
	}

	if err := encodeFixedHeader(w, AUTH, 0, uint32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// ReadPacket reads one fixed header plus its body and returns the decoded
// packet. The fixed header's remaining-length must account for exactly the
// bytes the body decoder consumes; trailing bytes would desynchronize the
// stream, so they are rejected as malformed.
func ReadPacket(r io.Reader) (Packet, error) {
	hdr, err := ParseFixedHeader(r)
	if err != nil {
		return nil, err
	}

	body := io.LimitedReader{R: r, N: int64(hdr.RemainingLength)}

	var pkt Packet
	switch hdr.Type {
	case CONNECT:
		pkt, err = DecodeConnectPacket(&body)
	case CONNACK:
		pkt, err = DecodeConnackPacket(&body)
	case PUBLISH:
		pkt, err = DecodePublishPacket(&body, hdr)
	case PUBACK:
		pkt, err = DecodePubackPacket(&body, hdr)
	case PUBREC:
		pkt, err = DecodePubrecPacket(&body, hdr)
	case PUBREL:
		pkt, err = DecodePubrelPacket(&body, hdr)
	case PUBCOMP:
		pkt, err = DecodePubcompPacket(&body, hdr)
	case SUBSCRIBE:
		pkt, err = DecodeSubscribePacket(&body, hdr)
	case SUBACK:
		pkt, err = DecodeSubackPacket(&body, hdr)
	case UNSUBSCRIBE:
		pkt, err = DecodeUnsubscribePacket(&body, hdr)
	case UNSUBACK:
		pkt, err = DecodeUnsubackPacket(&body, hdr)
	case PINGREQ:
		pkt, err = DecodePingreqPacket(&body, hdr)
	case PINGRESP:
		pkt, err = DecodePingrespPacket(&body, hdr)
	case DISCONNECT:
		pkt, err = DecodeDisconnectPacket(&body, hdr)
	case AUTH:
		pkt, err = DecodeAuthPacket(&body, hdr)
	default:
		return nil, malformed(ErrInvalidPacketType)
	}
	if err != nil {
		return nil, err
	}
	if body.N > 0 {
		return nil, malformed(ErrMalformedPacket)
	}
	return pkt, nil
}
