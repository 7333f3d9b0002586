package protocol

import (
	"encoding/binary"

	"lanspeed/internal/errors"
)

// MagicNumber is the sentinel every frame starts with. Datagrams without it
// are treated as network noise and dropped.
const MagicNumber uint32 = 0xABCDDCBA

// Frame type tags
const (
	TypeOffer   byte = 0x02
	TypeRequest byte = 0x03
	TypePayload byte = 0x04
	TypeAck     byte = 0x05
)

// Fixed frame sizes in bytes
const (
	HeaderSize        = 5 // magic + type tag
	OfferSize         = HeaderSize + 4
	RequestSize       = HeaderSize + 8
	PayloadHeaderSize = HeaderSize + 16
	AckSize           = HeaderSize
)

// Frame is the tagged union of all wire messages.
type Frame interface {
	frameType() byte
}

// Offer advertises the server's transfer ports. Broadcast on the discovery
// port once per announce interval.
type Offer struct {
	UDPPort uint16
	TCPPort uint16
}

// Request asks the UDP engine for RequestedSize bytes. A zero size is
// structurally valid; the transfer engine decides what to do with it.
type Request struct {
	RequestedSize uint64
}

// Payload carries one segment of a UDP transfer. SegmentIndex is zero-based.
// The last segment's Data may be shorter than the chunk size so that exactly
// the requested number of bytes is delivered.
type Payload struct {
	TotalSegments uint64
	SegmentIndex  uint64
	Data          []byte
}

// Ack signals that the server has begun processing a Request. Best-effort;
// clients must not depend on receiving it.
type Ack struct{}

func (Offer) frameType() byte   { return TypeOffer }
func (Request) frameType() byte { return TypeRequest }
func (Payload) frameType() byte { return TypePayload }
func (Ack) frameType() byte     { return TypeAck }

// Encode serializes a frame into its fixed big-endian layout.
func Encode(f Frame) []byte {
	switch m := f.(type) {
	case Offer:
		buf := make([]byte, OfferSize)
		putHeader(buf, TypeOffer)
		binary.BigEndian.PutUint16(buf[HeaderSize:], m.UDPPort)
		binary.BigEndian.PutUint16(buf[HeaderSize+2:], m.TCPPort)
		return buf
	case Request:
		buf := make([]byte, RequestSize)
		putHeader(buf, TypeRequest)
		binary.BigEndian.PutUint64(buf[HeaderSize:], m.RequestedSize)
		return buf
	case Payload:
		buf := make([]byte, PayloadHeaderSize+len(m.Data))
		putHeader(buf, TypePayload)
		binary.BigEndian.PutUint64(buf[HeaderSize:], m.TotalSegments)
		binary.BigEndian.PutUint64(buf[HeaderSize+8:], m.SegmentIndex)
		copy(buf[PayloadHeaderSize:], m.Data)
		return buf
	case Ack:
		buf := make([]byte, AckSize)
		putHeader(buf, TypeAck)
		return buf
	}
	return nil
}

// Decode parses a frame from raw bytes. It returns a malformed-frame error
// when the sentinel mismatches, the buffer is shorter than the type's fixed
// header, or the type tag is unknown. Decoding is pure: no allocation is
// shared with the input except the Payload data slice, which is copied.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return nil, errors.NewFrameError("shorter than frame header", len(data))
	}
	if binary.BigEndian.Uint32(data) != MagicNumber {
		return nil, errors.NewFrameError("bad magic sentinel", len(data))
	}

	switch data[4] {
	case TypeOffer:
		if len(data) < OfferSize {
			return nil, errors.NewFrameError("offer truncated", len(data))
		}
		return Offer{
			UDPPort: binary.BigEndian.Uint16(data[HeaderSize:]),
			TCPPort: binary.BigEndian.Uint16(data[HeaderSize+2:]),
		}, nil
	case TypeRequest:
		if len(data) < RequestSize {
			return nil, errors.NewFrameError("request truncated", len(data))
		}
		return Request{
			RequestedSize: binary.BigEndian.Uint64(data[HeaderSize:]),
		}, nil
	case TypePayload:
		if len(data) < PayloadHeaderSize {
			return nil, errors.NewFrameError("payload header truncated", len(data))
		}
		payload := Payload{
			TotalSegments: binary.BigEndian.Uint64(data[HeaderSize:]),
			SegmentIndex:  binary.BigEndian.Uint64(data[HeaderSize+8:]),
		}
		if body := data[PayloadHeaderSize:]; len(body) > 0 {
			payload.Data = make([]byte, len(body))
			copy(payload.Data, body)
		}
		return payload, nil
	case TypeAck:
		return Ack{}, nil
	default:
		return nil, errors.NewFrameError("unknown frame type", len(data))
	}
}

func putHeader(buf []byte, frameType byte) {
	binary.BigEndian.PutUint32(buf, MagicNumber)
	buf[4] = frameType
}
