package proxy

import (
	"context"
	"net"

	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/metrics"
)

// maxDatagramSize is the read buffer size for all UDP sockets. Bedrock
// datagrams stay well under this.
const maxDatagramSize = 8192

// readPackets reads datagrams from conn and hands each to handle, until a
// socket error or cancellation. Cancelling ctx closes the socket, which
// unblocks an in-progress read, so shutdown preempts the wait. The socket
// is owned by this loop and closed when it exits.
func readPackets(ctx context.Context, conn *net.UDPConn, m *metrics.Metrics, handle func(data []byte, addr *net.UDPAddr)) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("[socket-read] %s read loop cancelled", localAddrString(conn))
				return
			}
			// An I/O failure terminates only this reader; siblings and
			// the router keep running.
			logger.Error("[socket-read] %s read failed: %v", localAddrString(conn), err)
			m.ReaderErrors.Inc()
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		logger.Debug("[socket-read] received %d bytes from %s", n, addr)
		handle(data, addr)
	}
}

func localAddrString(conn *net.UDPConn) string {
	if addr := conn.LocalAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
