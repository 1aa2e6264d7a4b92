// Package wire implements the little-endian, fixed-layout binary protocol
// exchanged with the field device over the /out and /in WebSocket links.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// TelemetryMagic is the 4-byte magic prefixing a telemetry frame. Unlike
	// every other multi-byte field in the frame, the magic is written and
	// read big-endian so the wire bytes spell "GRID" in order; it is an
	// ASCII tag, not a little-endian integer.
	TelemetryMagic uint32 = 0x47524944
	// DispatchMagic is the 4-byte magic prefixing a dispatch frame, written
	// big-endian so the wire bytes spell "DISP" in order.
	DispatchMagic uint32 = 0x44495350

	telemetryHeaderLen = 9  // magic(4) + timestamp(4) + count(1)
	telemetryNodeLen   = 10 // id(1) + type(1) + pad(1) + demand(4) + fulfillment(4)
	dispatchHeaderLen  = 5  // magic(4) + count(1)
	dispatchNodeLen    = 6  // id(1) + supply(4) + source(1)

	// MaxNodes is the largest node count a single frame's 1-byte count field
	// can carry.
	MaxNodes = 255
)

// NodeType distinguishes a power source from a consumer in a telemetry record.
type NodeType uint8

const (
	NodeTypePower    NodeType = 0
	NodeTypeConsumer NodeType = 1
)

var (
	ErrBadMagic       = errors.New("wire: bad magic")
	ErrTruncatedFrame = errors.New("wire: truncated frame")
	ErrLengthMismatch = errors.New("wire: length mismatch")
	ErrTooManyNodes   = errors.New("wire: too many nodes")
)

// TelemetryNode is one per-node record within a telemetry frame. The Pad
// byte exists solely to mirror the embedded device's C struct layout
// (type is followed by a 1-byte alignment pad before the float fields) and
// must round-trip bit-exact.
type TelemetryNode struct {
	ID          uint8
	Type        NodeType
	Pad         uint8
	Demand      float32
	Fulfillment float32
}

// TelemetryPacket is one decoded telemetry frame.
type TelemetryPacket struct {
	Timestamp uint32 // milliseconds
	Nodes     []TelemetryNode
}

// DispatchNode is one per-node record within a dispatch frame.
type DispatchNode struct {
	ID     uint8
	Supply float32 // normalized to [0,1] by the caller before encoding
	Source uint8
}

// DispatchPacket is one dispatch frame to send to the device.
type DispatchPacket struct {
	Nodes []DispatchNode
}

// EncodeTelemetry serializes a telemetry packet to its wire form. It is the
// counterpart to DecodeTelemetry and exists chiefly for tests and loopback
// tooling; production code only ever encodes dispatch frames.
func EncodeTelemetry(p *TelemetryPacket) ([]byte, error) {
	if len(p.Nodes) > MaxNodes {
		return nil, ErrTooManyNodes
	}
	buf := make([]byte, telemetryHeaderLen+telemetryNodeLen*len(p.Nodes))
	binary.BigEndian.PutUint32(buf[0:4], TelemetryMagic)
	binary.LittleEndian.PutUint32(buf[4:8], p.Timestamp)
	buf[8] = uint8(len(p.Nodes))

	off := telemetryHeaderLen
	for _, n := range p.Nodes {
		buf[off] = n.ID
		buf[off+1] = uint8(n.Type)
		buf[off+2] = n.Pad
		binary.LittleEndian.PutUint32(buf[off+3:off+7], math.Float32bits(n.Demand))
		binary.LittleEndian.PutUint32(buf[off+7:off+11], math.Float32bits(n.Fulfillment))
		off += telemetryNodeLen
	}
	return buf, nil
}

// DecodeTelemetry parses a telemetry frame. Numeric fields are copied
// verbatim with no clamping; validation is the caller's responsibility.
func DecodeTelemetry(b []byte) (*TelemetryPacket, error) {
	if len(b) < telemetryHeaderLen {
		return nil, ErrTruncatedFrame
	}
	magic := binary.BigEndian.Uint32(b[0:4])
	if magic != TelemetryMagic {
		return nil, ErrBadMagic
	}
	count := int(b[8])
	want := telemetryHeaderLen + telemetryNodeLen*count
	if len(b) < want {
		return nil, ErrTruncatedFrame
	}
	if len(b) != want {
		return nil, ErrLengthMismatch
	}

	p := &TelemetryPacket{
		Timestamp: binary.LittleEndian.Uint32(b[4:8]),
		Nodes:     make([]TelemetryNode, count),
	}
	off := telemetryHeaderLen
	for i := 0; i < count; i++ {
		p.Nodes[i] = TelemetryNode{
			ID:          b[off],
			Type:        NodeType(b[off+1]),
			Pad:         b[off+2],
			Demand:      math.Float32frombits(binary.LittleEndian.Uint32(b[off+3 : off+7])),
			Fulfillment: math.Float32frombits(binary.LittleEndian.Uint32(b[off+7 : off+11])),
		}
		off += telemetryNodeLen
	}
	return p, nil
}

// EncodeDispatch serializes a dispatch packet to its wire form.
func EncodeDispatch(p *DispatchPacket) ([]byte, error) {
	if len(p.Nodes) > MaxNodes {
		return nil, ErrTooManyNodes
	}
	buf := make([]byte, dispatchHeaderLen+dispatchNodeLen*len(p.Nodes))
	binary.BigEndian.PutUint32(buf[0:4], DispatchMagic)
	buf[4] = uint8(len(p.Nodes))

	off := dispatchHeaderLen
	for _, n := range p.Nodes {
		buf[off] = n.ID
		binary.LittleEndian.PutUint32(buf[off+1:off+5], math.Float32bits(n.Supply))
		buf[off+5] = n.Source
		off += dispatchNodeLen
	}
	return buf, nil
}

// DecodeDispatch parses a dispatch frame.
func DecodeDispatch(b []byte) (*DispatchPacket, error) {
	if len(b) < dispatchHeaderLen {
		return nil, ErrTruncatedFrame
	}
	magic := binary.BigEndian.Uint32(b[0:4])
	if magic != DispatchMagic {
		return nil, ErrBadMagic
	}
	count := int(b[4])
	want := dispatchHeaderLen + dispatchNodeLen*count
	if len(b) < want {
		return nil, ErrTruncatedFrame
	}
	if len(b) != want {
		return nil, ErrLengthMismatch
	}

	p := &DispatchPacket{Nodes: make([]DispatchNode, count)}
	off := dispatchHeaderLen
	for i := 0; i < count; i++ {
		p.Nodes[i] = DispatchNode{
			ID:     b[off],
			Supply: math.Float32frombits(binary.LittleEndian.Uint32(b[off+1 : off+5])),
			Source: b[off+5],
		}
		off += dispatchNodeLen
	}
	return p, nil
}
