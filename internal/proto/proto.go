// Package proto implements the RakNet unconnected (discovery) packets used
// by MCPE server list pings: the 0x01 unconnected ping and the 0x1c
// unconnected pong with its semicolon-delimited advertisement payload.
//
// Encoding is bit-exact: multi-byte integers are big-endian and the pong
// payload is length-prefixed UTF-8. Decoding is deliberately tolerant of
// version skew between server implementations; see Pong.
package proto

import (
	"errors"
	"fmt"
)

// Packet IDs for the unconnected discovery exchange.
const (
	UnconnectedPingID byte = 0x01
	UnconnectedPongID byte = 0x1c
)

// Packet sizes. A full ping is PingSize bytes, but some clients omit the
// trailing client ID, so decoding accepts anything down to PingMinSize and
// zero-fills the missing field. Pongs carry a variable payload after a
// PongHeaderSize-byte header.
const (
	PingMinSize    = 25 // id(1) + pingTime(8) + magic(16)
	PingSize       = 33 // PingMinSize + clientID(8)
	PongHeaderSize = 35 // id(1) + pingTime(8) + serverGUID(8) + magic(16) + length(2)
)

// Magic is the 16-byte offline-message marker present in both packets.
var Magic = [16]byte{
	0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe,
	0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78,
}

// Decode errors.
var (
	ErrTooShort    = errors.New("packet too short")
	ErrPacketID    = errors.New("unexpected packet id")
	ErrTruncated   = errors.New("payload length exceeds packet")
	ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")
)

func short(want int, got int) error {
	return fmt.Errorf("%w: need %d bytes, have %d", ErrTooShort, want, got)
}
