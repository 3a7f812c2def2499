package mqtt

import (
	"io"

	"github.com/axonmq/broker5/wire"
)

// PropertyID identifies a property's meaning; its wire type is fixed by the
// table below, independent of which packet type carries it.
type PropertyID byte

const (
	PropPayloadFormatIndicator          PropertyID = 1
	PropMessageExpiryInterval           PropertyID = 2
	PropContentType                     PropertyID = 3
	PropResponseTopic                   PropertyID = 8
	PropCorrelationData                 PropertyID = 9
	PropSubscriptionIdentifier          PropertyID = 11
	PropSessionExpiryInterval           PropertyID = 17
	PropAssignedClientIdentifier        PropertyID = 18
	PropServerKeepAlive                 PropertyID = 19
	PropAuthenticationMethod            PropertyID = 21
	PropAuthenticationData              PropertyID = 22
	PropRequestProblemInformation       PropertyID = 23
	PropWillDelayInterval               PropertyID = 24
	PropRequestResponseInformation      PropertyID = 25
	PropResponseInformation             PropertyID = 26
	PropServerReference                 PropertyID = 28
	PropReasonString                    PropertyID = 31
	PropReceiveMaximum                  PropertyID = 33
	PropTopicAliasMaximum               PropertyID = 34
	PropTopicAlias                      PropertyID = 35
	PropMaximumQoS                      PropertyID = 36
	PropRetainAvailable                 PropertyID = 37
	PropUserProperty                    PropertyID = 38
	PropMaximumPacketSize               PropertyID = 39
	PropWildcardSubscriptionAvailable   PropertyID = 40
	PropSubscriptionIdentifierAvailable PropertyID = 41
	PropSharedSubscriptionAvailable     PropertyID = 42
)

type wireType byte

const (
	wireByte wireType = iota
	wireTwoByte
	wireFourByte
	wireVarInt
	wireBinary
	wireString
	wireStringPair
)

// propertySpecs is the property-id -> wire-type dispatch table from the
// data model: every id MQTT5 defines, and nothing else. An id absent from
// this map is rejected on the wire as a malformed packet.
var propertySpecs = map[PropertyID]struct {
	typ      wireType
	multiple bool
}{
	PropPayloadFormatIndicator:          {wireByte, false},
	PropMessageExpiryInterval:           {wireFourByte, false},
	PropContentType:                     {wireString, false},
	PropResponseTopic:                   {wireString, false},
	PropCorrelationData:                 {wireBinary, false},
	PropSubscriptionIdentifier:          {wireVarInt, true},
	PropSessionExpiryInterval:           {wireFourByte, false},
	PropAssignedClientIdentifier:        {wireString, false},
	PropServerKeepAlive:                 {wireTwoByte, false},
	PropAuthenticationMethod:            {wireString, false},
	PropAuthenticationData:              {wireBinary, false},
	PropRequestProblemInformation:       {wireByte, false},
	PropWillDelayInterval:               {wireFourByte, false},
	PropRequestResponseInformation:      {wireByte, false},
	PropResponseInformation:             {wireString, false},
	PropServerReference:                 {wireString, false},
	PropReasonString:                    {wireString, false},
	PropReceiveMaximum:                  {wireTwoByte, false},
	PropTopicAliasMaximum:               {wireTwoByte, false},
	PropTopicAlias:                      {wireTwoByte, false},
	PropMaximumQoS:                      {wireByte, false},
	PropRetainAvailable:                 {wireByte, false},
	PropUserProperty:                    {wireStringPair, true},
	PropMaximumPacketSize:               {wireFourByte, false},
	PropWildcardSubscriptionAvailable:   {wireByte, false},
	PropSubscriptionIdentifierAvailable: {wireByte, false},
	PropSharedSubscriptionAvailable:     {wireByte, false},
}

// Property is a single {id, value} pair; Value's concrete type is determined
// by propertySpecs[ID].typ (byte, uint16, uint32, uint32 for VarInt, string,
// wire.ReadStringPair's (string,string) wrapped in StringPair, or []byte).
type Property struct {
	ID    PropertyID
	Value any
}

// StringPair is the wire shape of the User Property (id 38).
type StringPair struct {
	Key   string
	Value string
}

// Properties is a packet's property list plus the property-list byte length
// read from the wire on decode. Encoding ignores Length and recomputes the
// length from List.
type Properties struct {
	List   []Property
	Length uint32
}

func (p *Properties) Get(id PropertyID) (Property, bool) {
	for _, prop := range p.List {
		if prop.ID == id {
			return prop, true
		}
	}
	return Property{}, false
}

func (p *Properties) Add(id PropertyID, value any) error {
	spec, ok := propertySpecs[id]
	if !ok {
		return ErrInvalidPropertyID
	}
	if !spec.multiple {
		if _, exists := p.Get(id); exists {
			return ErrDuplicateProperty
		}
	}
	p.List = append(p.List, Property{ID: id, Value: value})
	return nil
}

// decodeProperties reads the VarInt total-length prefix followed by that
// many bytes of {id,value} pairs.
func decodeProperties(r io.Reader) (Properties, error) {
	length, err := wire.DecodeVarInt(r)
	if err != nil {
		return Properties{}, malformed(err)
	}

	props := Properties{Length: length}
	if length == 0 {
		return props, nil
	}

	lr := &io.LimitedReader{R: r, N: int64(length)}
	for lr.N > 0 {
		prop, err := decodeProperty(lr)
		if err != nil {
			return Properties{}, err
		}
		props.List = append(props.List, prop)
	}
	return props, nil
}

func decodeProperty(r io.Reader) (Property, error) {
	idByte, err := wire.ReadUint8(r)
	if err != nil {
		return Property{}, malformed(err)
	}

	id := PropertyID(idByte)
	spec, ok := propertySpecs[id]
	if !ok {
		return Property{}, malformed(ErrInvalidPropertyID)
	}

	prop := Property{ID: id}
	switch spec.typ {
	case wireByte:
		prop.Value, err = wire.ReadUint8(r)
	case wireTwoByte:
		prop.Value, err = wire.ReadUint16(r)
	case wireFourByte:
		prop.Value, err = wire.ReadUint32(r)
	case wireVarInt:
		prop.Value, err = wire.DecodeVarInt(r)
	case wireString:
		prop.Value, err = wire.ReadString(r)
	case wireBinary:
		prop.Value, err = wire.ReadBinary(r)
	case wireStringPair:
		var k, v string
		k, v, err = wire.ReadStringPair(r)
		prop.Value = StringPair{Key: k, Value: v}
	}
	if err != nil {
		return Property{}, malformed(err)
	}
	return prop, nil
}

func propertyWireLength(prop Property) uint32 {
	switch v := prop.Value.(type) {
	case byte:
		return 1 + 1
	case uint16:
		return 1 + 2
	case uint32:
		spec := propertySpecs[prop.ID]
		if spec.typ == wireVarInt {
			return 1 + uint32(wire.SizeVarInt(v))
		}
		return 1 + 4
	case string:
		return 1 + 2 + uint32(len(v))
	case []byte:
		return 1 + 2 + uint32(len(v))
	case StringPair:
		return 1 + 2 + uint32(len(v.Key)) + 2 + uint32(len(v.Value))
	default:
		return 0
	}
}

func (p *Properties) wireLength() uint32 {
	var length uint32
	for _, prop := range p.List {
		length += propertyWireLength(prop)
	}
	return length
}

// encodeProperties writes the VarInt total-length prefix followed by every
// property, in the order they were added.
func encodeProperties(w io.Writer, p Properties) error {
	length := p.wireLength()
	lenBytes, err := wire.EncodeVarInt(length)
	if err != nil {
		return err
	}
	if _, err := w.Write(lenBytes); err != nil {
		return err
	}

	for _, prop := range p.List {
		if err := encodeProperty(w, prop); err != nil {
			return err
		}
	}
	return nil
}

func encodeProperty(w io.Writer, prop Property) error {
	if err := wire.WriteUint8(w, byte(prop.ID)); err != nil {
		return err
	}
	switch v := prop.Value.(type) {
	case byte:
		return wire.WriteUint8(w, v)
	case uint16:
		return wire.WriteUint16(w, v)
	case uint32:
		spec := propertySpecs[prop.ID]
		if spec.typ == wireVarInt {
			b, err := wire.EncodeVarInt(v)
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		}
		return wire.WriteUint32(w, v)
	case string:
		return wire.WriteString(w, v)
	case []byte:
		return wire.WriteBinary(w, v)
	case StringPair:
		return wire.WriteStringPair(w, v.Key, v.Value)
	default:
		return ErrInvalidPropertyID
	}
}
