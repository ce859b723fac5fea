// Package proxy implements a transparent UDP reverse proxy for Bedrock
// game servers. A single Proxy binds the well-known discovery port plus a
// dedicated proxy port, funnels every inbound datagram through a routing
// actor that keeps one upstream socket per client, and rewrites the port
// advertised in discovery pongs so clients connect back through the proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/metrics"
	"github.com/jhead/phantom/internal/session"
	"github.com/jhead/phantom/internal/task"
)

// DiscoveryPort is the fixed port Bedrock clients broadcast unconnected
// pings to when scanning for LAN servers.
const DiscoveryPort = 19132

var (
	ErrAlreadyRunning = errors.New("proxy already running")
	ErrInvalidAddress = errors.New("invalid server address")
	ErrFailedToBind   = errors.New("failed to bind")
)

// Proxy is one running instance bound to a single remote server. All
// exported methods are safe for concurrent use.
type Proxy struct {
	serverAddr string
	bindAddr   string
	bindPort   uint16

	// discoveryPort is DiscoveryPort in production. Tests point it at an
	// ephemeral port so instances do not collide on 19132.
	discoveryPort int

	sessions *session.Manager
	metrics  *metrics.Metrics

	mu        sync.Mutex
	running   bool
	proxyPort uint16
	tasks     *task.Manager
	stopped   chan struct{}
}

// New creates a stopped proxy. server is the remote host:port, bindAddr
// the local interface, and bindPort the proxy listening port (0 for an
// OS-assigned port).
func New(server, bindAddr string, bindPort uint16, sessions *session.Manager, m *metrics.Metrics) *Proxy {
	return &Proxy{
		serverAddr:    server,
		bindAddr:      bindAddr,
		bindPort:      bindPort,
		discoveryPort: DiscoveryPort,
		sessions:      sessions,
		metrics:       m,
	}
}

// Running reports whether the proxy is currently listening.
func (p *Proxy) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ProxyPort reports the port the proxy socket is bound to. Meaningful
// only after a successful Listen.
func (p *Proxy) ProxyPort() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proxyPort
}

// Listen binds the proxy and discovery sockets, starts the router, and
// returns with traffic flowing. A second call on a running proxy returns
// ErrAlreadyRunning without touching the first listener.
func (p *Proxy) Listen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	remoteAddr, err := net.ResolveUDPAddr("udp", p.serverAddr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, p.serverAddr, err)
	}

	// The proxy port is exclusive so two instances cannot silently split
	// one client's traffic.
	proxyConn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.ParseIP(p.bindAddr),
		Port: int(p.bindPort),
	})
	if err != nil {
		return fmt.Errorf("%w proxy port %d: %v", ErrFailedToBind, p.bindPort, err)
	}
	proxyPort := uint16(proxyConn.LocalAddr().(*net.UDPAddr).Port)

	conns := []*net.UDPConn{proxyConn}

	// The discovery port is shared so the proxy can coexist with a game
	// client or another instance on the same machine.
	if int(proxyPort) != p.discoveryPort {
		discoveryConn, err := bindReuse(net.JoinHostPort(p.bindAddr, strconv.Itoa(p.discoveryPort)))
		if err != nil {
			proxyConn.Close()
			return fmt.Errorf("%w discovery port %d: %v", ErrFailedToBind, p.discoveryPort, err)
		}
		conns = append(conns, discoveryConn)
	}

	router := NewRouter(remoteAddr, proxyPort, p.sessions, p.metrics)

	tasks := &task.Manager{}
	tasks.Add(router)
	for _, conn := range conns {
		tasks.Add(p.pipeToRouter(conn, router))
	}

	p.running = true
	p.proxyPort = proxyPort
	p.tasks = tasks
	p.stopped = make(chan struct{})

	logger.Info("[proxy] listening on %s (discovery %d), forwarding to %s",
		localAddrString(proxyConn), p.discoveryPort, remoteAddr)
	return nil
}

// pipeToRouter reads one listening socket and hands every datagram to the
// router, tagged with the socket it came in on.
func (p *Proxy) pipeToRouter(conn *net.UDPConn, router *Router) *task.Task {
	ref := router.Ref()
	return task.Spawn(func(ctx context.Context) {
		readPackets(ctx, conn, p.metrics, func(data []byte, addr *net.UDPAddr) {
			if err := ref.Send(Message{Data: data, ClientAddr: addr, Source: conn}); err != nil {
				logger.Debug("[proxy] dropping datagram from %s: %v", addr, err)
			}
		})
	})
}

// Shutdown stops the proxy: every reader, the router, and all per-client
// relays are cancelled and joined, sockets closed, and sessions flushed.
// Calling it on a stopped proxy is a no-op.
func (p *Proxy) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	tasks := p.tasks
	stopped := p.stopped
	p.running = false
	p.tasks = nil
	p.mu.Unlock()

	tasks.Shutdown()
	flushed := p.sessions.RemoveAll()
	close(stopped)

	logger.Info("[proxy] shut down, %d sessions closed", flushed)
}

// Join blocks until Shutdown completes. It returns immediately if the
// proxy never started.
func (p *Proxy) Join() {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped == nil {
		return
	}
	<-stopped
}

// bindReuse binds a UDP socket with address and port sharing enabled.
func bindReuse(addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
