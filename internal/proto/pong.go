package proto

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// PongInfo is the semicolon-delimited server advertisement carried in an
// unconnected pong. Servers disagree on how many fields they send, so every
// field defaults independently and decoding keeps defaults for anything the
// payload omits.
type PongInfo struct {
	Edition         string
	MOTD            string
	ProtocolVersion string
	Version         string
	Players         string
	MaxPlayers      string
	ServerID        string
	SubMOTD         string
	GameMode        string
	GameModeNumeric string
	Port4           string
	Port6           string

	// extra holds fields beyond the 12 phantom understands, so that
	// re-encoding a rewritten pong preserves whatever the upstream server
	// advertised. Includes the empty trailing field produced by the
	// protocol's trailing semicolon.
	extra []string
}

// DefaultPongInfo returns the advertisement phantom uses when no upstream
// pong is available.
func DefaultPongInfo() PongInfo {
	return PongInfo{
		Edition:         "MCPE",
		MOTD:            "phantom Server offline",
		ProtocolVersion: "800",
		Version:         "1.31.83",
		Players:         "0",
		MaxPlayers:      "1",
		ServerID:        "13253860892328930865",
		SubMOTD:         "Server Offline",
		GameMode:        "Creative",
		GameModeNumeric: "1",
		Port4:           "19132",
		Port6:           "19132",
	}
}

// ParsePongInfo parses a semicolon-delimited advertisement. Fields beyond
// those present keep their defaults; extra fields are ignored.
func ParsePongInfo(payload string) PongInfo {
	info := DefaultPongInfo()
	parts := strings.Split(payload, ";")

	fields := []*string{
		&info.Edition,
		&info.MOTD,
		&info.ProtocolVersion,
		&info.Version,
		&info.Players,
		&info.MaxPlayers,
		&info.ServerID,
		&info.SubMOTD,
		&info.GameMode,
		&info.GameModeNumeric,
		&info.Port4,
		&info.Port6,
	}
	for i, f := range fields {
		if i < len(parts) {
			*f = parts[i]
		}
	}
	// A lone empty 13th part is just the trailing semicolon, which String
	// reproduces on its own; anything more is preserved verbatim.
	if rest := parts[min(len(parts), len(fields)):]; len(rest) > 0 {
		if len(rest) != 1 || rest[0] != "" {
			info.extra = rest
		}
	}
	return info
}

// String renders the advertisement in wire form: the 12 fields joined by
// semicolons with a trailing semicolon, followed by any preserved extra
// fields.
func (i PongInfo) String() string {
	fields := []string{
		i.Edition,
		i.MOTD,
		i.ProtocolVersion,
		i.Version,
		i.Players,
		i.MaxPlayers,
		i.ServerID,
		i.SubMOTD,
		i.GameMode,
		i.GameModeNumeric,
		i.Port4,
		i.Port6,
	}
	if len(i.extra) > 0 {
		// The trailing semicolon of the original payload lives in extra
		// as a final empty field, so a plain join reproduces it.
		return strings.Join(append(fields, i.extra...), ";")
	}
	return strings.Join(fields, ";") + ";"
}

// Pong is the 0x1c unconnected pong a server answers a discovery ping with.
type Pong struct {
	PingTime   [8]byte
	ServerGUID [8]byte
	Magic      [16]byte
	Info       PongInfo
}

// NewPong creates a pong with the protocol magic and default advertisement.
func NewPong() Pong {
	return Pong{
		Magic: Magic,
		Info:  DefaultPongInfo(),
	}
}

// Marshal serializes the pong into its wire form.
func (p Pong) Marshal() []byte {
	payload := p.Info.String()

	buf := make([]byte, 0, PongHeaderSize+len(payload))
	buf = append(buf, UnconnectedPongID)
	buf = append(buf, p.PingTime[:]...)
	buf = append(buf, p.ServerGUID[:]...)
	buf = append(buf, p.Magic[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	return buf
}

// UnmarshalPong parses an unconnected pong. It fails on packets shorter than
// the fixed header, on a wrong packet ID, on a declared payload length that
// exceeds the packet, and on payloads that are not valid UTF-8. Trailing
// bytes beyond the declared payload are ignored.
func UnmarshalPong(data []byte) (Pong, error) {
	var p Pong
	if len(data) < PongHeaderSize {
		return p, short(PongHeaderSize, len(data))
	}
	if data[0] != UnconnectedPongID {
		return p, ErrPacketID
	}

	copy(p.PingTime[:], data[1:9])
	copy(p.ServerGUID[:], data[9:17])
	copy(p.Magic[:], data[17:33])

	payloadLen := int(binary.BigEndian.Uint16(data[33:35]))
	if payloadLen > len(data)-PongHeaderSize {
		return p, ErrTruncated
	}

	payload := data[PongHeaderSize : PongHeaderSize+payloadLen]
	if !utf8.Valid(payload) {
		return p, ErrInvalidUTF8
	}

	p.Info = ParsePongInfo(string(payload))
	return p, nil
}
