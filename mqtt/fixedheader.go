package mqtt

import (
	"errors"
	"io"

	"github.com/axonmq/broker5/wire"
)

// PacketType is the 4-bit control packet type carried in the fixed header's
// high nibble.
type PacketType byte

const (
	Reserved0   PacketType = 0
	CONNECT     PacketType = 1
	CONNACK     PacketType = 2
	PUBLISH     PacketType = 3
	PUBACK      PacketType = 4
	PUBREC      PacketType = 5
	PUBREL      PacketType = 6
	PUBCOMP     PacketType = 7
	SUBSCRIBE   PacketType = 8
	SUBACK      PacketType = 9
	UNSUBSCRIBE PacketType = 10
	UNSUBACK    PacketType = 11
	PINGREQ     PacketType = 12
	PINGRESP    PacketType = 13
	DISCONNECT  PacketType = 14
	AUTH        PacketType = 15
)

func (t PacketType) String() string {
	switch t {
	case CONNECT:
		return "CONNECT"
	case CONNACK:
		return "CONNACK"
	case PUBLISH:
		return "PUBLISH"
	case PUBACK:
		return "PUBACK"
	case PUBREC:
		return "PUBREC"
	case PUBREL:
		return "PUBREL"
	case PUBCOMP:
		return "PUBCOMP"
	case SUBSCRIBE:
		return "SUBSCRIBE"
	case SUBACK:
		return "SUBACK"
	case UNSUBSCRIBE:
		return "UNSUBSCRIBE"
	case UNSUBACK:
		return "UNSUBACK"
	case PINGREQ:
		return "PINGREQ"
	case PINGRESP:
		return "PINGRESP"
	case DISCONNECT:
		return "DISCONNECT"
	case AUTH:
		return "AUTH"
	default:
		return "RESERVED"
	}
}

// fixedFlags holds the exact flags nibble MQTT 5 requires for every packet
// type except PUBLISH. SUBSCRIBE, UNSUBSCRIBE and PUBREL all require
// 0b0010; PUBLISH is the only type with meaningful flags.
var fixedFlags = map[PacketType]byte{
	CONNECT:     0x0,
	CONNACK:     0x0,
	PUBACK:      0x0,
	PUBREC:      0x0,
	PUBREL:      0x2,
	PUBCOMP:     0x0,
	SUBSCRIBE:   0x2,
	SUBACK:      0x0,
	UNSUBSCRIBE: 0x2,
	UNSUBACK:    0x0,
	PINGREQ:     0x0,
	PINGRESP:    0x0,
	DISCONNECT:  0x0,
	AUTH:        0x0,
}

// FixedHeader is the first 2-5 bytes of every MQTT control packet: the
// packet type and flags nibble, followed by the Variable Byte Integer
// remaining length.
type FixedHeader struct {
	Type            PacketType
	DUP             bool
	QoS             byte
	Retain          bool
	RemainingLength uint32
}

// ParseFixedHeader reads and validates the fixed header from r. PUBLISH's
// flags are decomposed into DUP/QoS/Retain; every other type's flags are
// checked against fixedFlags and rejected if they don't match.
func ParseFixedHeader(r io.Reader) (FixedHeader, error) {
	b, err := wire.ReadUint8(r)
	if err != nil {
		// EOF before the first byte is the peer closing cleanly between
		// packets, not a framing failure.
		if errors.Is(err, wire.ErrUnexpectedEOF) {
			return FixedHeader{}, io.EOF
		}
		return FixedHeader{}, malformed(err)
	}

	typ := PacketType(b >> 4)
	flags := b & 0x0F

	if typ == Reserved0 || typ > AUTH {
		return FixedHeader{}, malformed(ErrInvalidPacketType)
	}

	hdr := FixedHeader{Type: typ}

	if typ == PUBLISH {
		hdr.DUP = flags&0x08 != 0
		hdr.QoS = (flags >> 1) & 0x03
		hdr.Retain = flags&0x01 != 0
		if hdr.QoS > 2 {
			return FixedHeader{}, malformed(ErrInvalidQoS)
		}
	} else if want, ok := fixedFlags[typ]; ok && flags != want {
		return FixedHeader{}, malformed(ErrInvalidFlags)
	}

	length, err := wire.DecodeVarInt(r)
	if err != nil {
		return FixedHeader{}, malformed(err)
	}
	hdr.RemainingLength = length

	return hdr, nil
}

func publishFlags(hdr FixedHeader) byte {
	var flags byte
	if hdr.DUP {
		flags |= 0x08
	}
	flags |= (hdr.QoS & 0x03) << 1
	if hdr.Retain {
		flags |= 0x01
	}
	return flags
}

// encodeFixedHeader writes typ's flags nibble and remainingLength's VarInt
// encoding. Callers compute remainingLength by encoding the variable header
// and payload into a buffer first, then measuring it.
func encodeFixedHeader(w io.Writer, typ PacketType, flags byte, remainingLength uint32) error {
	if err := wire.WriteUint8(w, byte(typ)<<4|flags); err != nil {
		return err
	}
	lenBytes, err := wire.EncodeVarInt(remainingLength)
	if err != nil {
		return err
	}
	_, err = w.Write(lenBytes)
	return err
}
