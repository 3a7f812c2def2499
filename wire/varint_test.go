package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	boundaries := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxVarInt}

	for _, n := range boundaries {
		encoded, err := EncodeVarInt(n)
		require.NoError(t, err)
		assert.Equal(t, SizeVarInt(n), len(encoded))

		decoded, err := DecodeVarInt(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.Equal(t, n, decoded)
	}
}

func TestVarIntEncodingIsMinimal(t *testing.T) {
	cases := []struct {
		value uint32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{2097151, []byte{0xFF, 0xFF, 0x7F}},
		{2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{268435455, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, c := range cases {
		encoded, err := EncodeVarInt(c.value)
		require.NoError(t, err)
		assert.Equal(t, c.bytes, encoded)
	}
}

func TestVarIntTooLarge(t *testing.T) {
	_, err := EncodeVarInt(MaxVarInt + 1)
	assert.ErrorIs(t, err, ErrVarIntTooLarge)
}

func TestVarIntFifthContinuationByteIsMalformed(t *testing.T) {
	_, err := DecodeVarInt(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x01}))
	assert.ErrorIs(t, err, ErrMalformedVarInt)
}

func TestVarIntUnexpectedEOF(t *testing.T) {
	_, err := DecodeVarInt(bytes.NewReader([]byte{0x80}))
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "/a/b/c"))

	got, err := ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", got)
}

func TestStringRejectsNullCharacter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, []byte{'a', 0x00, 'b'}))

	_, err := ReadString(&buf)
	assert.ErrorIs(t, err, ErrNullCharacter)
}

func TestBinaryRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0x01, 0x02, 0x03, 0xFF}
	require.NoError(t, WriteBinary(&buf, payload))

	got, err := ReadBinary(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
