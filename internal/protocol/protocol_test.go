package protocol

import (
	"testing"

	"lanspeed/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		offer Offer
	}{
		{name: "typical ports", offer: Offer{UDPPort: 34567, TCPPort: 45678}},
		{name: "zero ports", offer: Offer{}},
		{name: "max ports", offer: Offer{UDPPort: 65535, TCPPort: 65535}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.offer))
			require.NoError(t, err)
			assert.Equal(t, tt.offer, decoded)
		})
	}
}

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size uint64
	}{
		{name: "typical size", size: 1024 * 1024},
		{name: "zero size is structurally valid", size: 0},
		{name: "max size", size: ^uint64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(Request{RequestedSize: tt.size}))
			require.NoError(t, err)
			assert.Equal(t, Request{RequestedSize: tt.size}, decoded)
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}

	decoded, err := Decode(Encode(Payload{TotalSegments: 10, SegmentIndex: 3, Data: data}))
	require.NoError(t, err)

	payload, ok := decoded.(Payload)
	require.True(t, ok)
	assert.Equal(t, uint64(10), payload.TotalSegments)
	assert.Equal(t, uint64(3), payload.SegmentIndex)
	assert.Equal(t, data, payload.Data)
}

func TestPayloadRoundTripEmptyData(t *testing.T) {
	decoded, err := Decode(Encode(Payload{TotalSegments: 1, SegmentIndex: 0}))
	require.NoError(t, err)
	assert.Equal(t, Payload{TotalSegments: 1, SegmentIndex: 0}, decoded)
}

func TestAckRoundTrip(t *testing.T) {
	decoded, err := Decode(Encode(Ack{}))
	require.NoError(t, err)
	assert.Equal(t, Ack{}, decoded)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty buffer", data: nil},
		{name: "shorter than header", data: []byte{0xAB, 0xCD}},
		{name: "corrupted magic", data: []byte{0xDE, 0xAD, 0xBE, 0xEF, TypeOffer, 0x01, 0x02, 0x03, 0x04}},
		{name: "unknown type tag", data: nil}, // filled in below
		{name: "truncated offer", data: Encode(Offer{UDPPort: 1, TCPPort: 2})[:7]},
		{name: "truncated request", data: Encode(Request{RequestedSize: 5000})[:9]},
		{name: "truncated payload header", data: Encode(Payload{TotalSegments: 2, SegmentIndex: 1})[:12]},
	}

	// unknown type tag: valid magic followed by an unassigned tag
	tests[3].data = append(append([]byte{}, Encode(Ack{})[:4]...), 0x7F)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode(tt.data)
			assert.Nil(t, frame)
			assert.ErrorIs(t, err, errors.ErrMalformedFrame)
		})
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	raw := Encode(Payload{TotalSegments: 1, SegmentIndex: 0, Data: []byte{1, 2, 3}})
	decoded, err := Decode(raw)
	require.NoError(t, err)

	raw[PayloadHeaderSize] = 99
	assert.Equal(t, []byte{1, 2, 3}, decoded.(Payload).Data)
}
