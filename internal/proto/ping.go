package proto

// Ping is the 0x01 unconnected ping an MCPE client broadcasts to discover
// servers.
type Ping struct {
	PingTime [8]byte
	Magic    [16]byte
	ClientID [8]byte
}

// NewPing creates a ping carrying the protocol magic.
func NewPing(clientID, pingTime [8]byte) Ping {
	return Ping{
		PingTime: pingTime,
		Magic:    Magic,
		ClientID: clientID,
	}
}

// Marshal serializes the ping into its wire form.
func (p Ping) Marshal() []byte {
	buf := make([]byte, 0, PingSize)
	buf = append(buf, UnconnectedPingID)
	buf = append(buf, p.PingTime[:]...)
	buf = append(buf, p.Magic[:]...)
	buf = append(buf, p.ClientID[:]...)
	return buf
}

// UnmarshalPing parses an unconnected ping. Packets shorter than PingMinSize
// or with the wrong leading byte are rejected; a missing trailing client ID
// is tolerated and left zero.
func UnmarshalPing(data []byte) (Ping, error) {
	var p Ping
	if len(data) < PingMinSize {
		return p, short(PingMinSize, len(data))
	}
	if data[0] != UnconnectedPingID {
		return p, ErrPacketID
	}

	copy(p.PingTime[:], data[1:9])
	copy(p.Magic[:], data[9:25])
	if len(data) >= PingSize {
		copy(p.ClientID[:], data[25:33])
	}
	return p, nil
}
