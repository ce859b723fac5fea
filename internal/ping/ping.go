// Package ping implements a discovery ping client for Bedrock servers.
package ping

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/proto"
)

// DefaultTimeout bounds how long Server waits for a pong.
const DefaultTimeout = 5 * time.Second

var (
	ErrInvalidAddress  = errors.New("invalid server address")
	ErrTimeout         = errors.New("ping timed out")
	ErrInvalidResponse = errors.New("invalid ping response")
)

// Server sends an unconnected ping to address and returns the server's
// advertisement. A timeout of zero uses DefaultTimeout.
func Server(address string, timeout time.Duration) (proto.PongInfo, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	remoteAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return proto.PongInfo{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}

	conn, err := net.DialUDP("udp", nil, remoteAddr)
	if err != nil {
		return proto.PongInfo{}, fmt.Errorf("failed to open ping socket: %w", err)
	}
	defer conn.Close()

	var clientID, pingTime [8]byte
	rand.Read(clientID[:])

	ping := proto.NewPing(clientID, pingTime)
	if _, err := conn.Write(ping.Marshal()); err != nil {
		return proto.PongInfo{}, fmt.Errorf("failed to send ping: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(timeout))

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return proto.PongInfo{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return proto.PongInfo{}, fmt.Errorf("failed to read pong: %w", err)
		}

		pong, err := proto.UnmarshalPong(buf[:n])
		if err != nil {
			// A connected socket still only filters by address, so skip
			// anything that is not a pong and keep waiting.
			logger.Debug("[ping] ignoring %d-byte non-pong reply from %s: %v", n, address, err)
			continue
		}
		if pong.Magic != proto.Magic {
			return proto.PongInfo{}, fmt.Errorf("%w: bad magic", ErrInvalidResponse)
		}
		return pong.Info, nil
	}
}
