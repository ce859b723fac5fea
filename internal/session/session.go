// Package session provides tracking of per-client relay sessions.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session tracks one client's path through the proxy: when it appeared,
// which upstream port it was assigned, and how many bytes flowed each way.
// Counters are atomics so the relay paths never take a lock.
type Session struct {
	ID         string
	ClientAddr string
	StartTime  time.Time

	bytesUp      atomic.Int64
	bytesDown    atomic.Int64
	packetsUp    atomic.Int64
	packetsDown  atomic.Int64
	lastSeenNano atomic.Int64

	mu           sync.Mutex
	upstreamPort int
}

// AddBytesUp records client-to-server traffic.
func (s *Session) AddBytesUp(n int64) {
	s.bytesUp.Add(n)
	s.packetsUp.Add(1)
	s.lastSeenNano.Store(time.Now().UnixNano())
}

// AddBytesDown records server-to-client traffic.
func (s *Session) AddBytesDown(n int64) {
	s.bytesDown.Add(n)
	s.packetsDown.Add(1)
	s.lastSeenNano.Store(time.Now().UnixNano())
}

// BytesUp returns total client-to-server bytes.
func (s *Session) BytesUp() int64 { return s.bytesUp.Load() }

// BytesDown returns total server-to-client bytes.
func (s *Session) BytesDown() int64 { return s.bytesDown.Load() }

// LastSeen returns the time of the most recent traffic in either direction.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeenNano.Load())
}

// SetUpstreamPort records the local port of the upstream socket dedicated
// to this client.
func (s *Session) SetUpstreamPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upstreamPort = port
}

// UpstreamPort returns the local port of this client's upstream socket.
func (s *Session) UpstreamPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upstreamPort
}

// Record converts the session into an immutable record for persistence.
func (s *Session) Record(endTime time.Time) Record {
	return Record{
		ID:           s.ID,
		ClientAddr:   s.ClientAddr,
		UpstreamPort: s.UpstreamPort(),
		StartTime:    s.StartTime,
		EndTime:      endTime,
		BytesUp:      s.bytesUp.Load(),
		BytesDown:    s.bytesDown.Load(),
		PacketsUp:    s.packetsUp.Load(),
		PacketsDown:  s.packetsDown.Load(),
	}
}

// Record is a finished session, as persisted to session history.
type Record struct {
	ID           string    `json:"id"`
	ClientAddr   string    `json:"client_addr"`
	UpstreamPort int       `json:"upstream_port"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	BytesUp      int64     `json:"bytes_up"`
	BytesDown    int64     `json:"bytes_down"`
	PacketsUp    int64     `json:"packets_up"`
	PacketsDown  int64     `json:"packets_down"`
}
