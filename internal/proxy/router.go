package proxy

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/jhead/phantom/internal/actor"
	"github.com/jhead/phantom/internal/logger"
	"github.com/jhead/phantom/internal/metrics"
	"github.com/jhead/phantom/internal/proto"
	"github.com/jhead/phantom/internal/session"
	"github.com/jhead/phantom/internal/task"
)

// Message is the single message kind the router consumes: one datagram
// received from a client on one of the proxy's listening sockets.
type Message struct {
	Data       []byte
	ClientAddr *net.UDPAddr
	// Source is the listening socket the datagram arrived on. Replies go
	// back out the same socket so the client sees a consistent peer.
	Source *net.UDPConn
}

// Router owns the client routing table. It is an actor: the table is
// mutated only inside the sequential message handler, so no lock guards it.
type Router = actor.Actor[Message]

// clientPair is the upstream socket dedicated to one client address.
type clientPair struct {
	upstream *net.UDPConn
}

// routerState is the routing table plus its fixed collaborators. The
// clients map is owned exclusively by the handler; entries are added on
// first sight of an address and never removed.
type routerState struct {
	remoteAddr *net.UDPAddr
	proxyPort  uint16
	clients    map[string]clientPair
	sessions   *session.Manager
	metrics    *metrics.Metrics
}

// NewRouter starts the routing actor. proxyPort is the externally visible
// proxy listening port, substituted into rewritten discovery pongs.
func NewRouter(remoteAddr *net.UDPAddr, proxyPort uint16, sessions *session.Manager, m *metrics.Metrics) *Router {
	state := routerState{
		remoteAddr: remoteAddr,
		proxyPort:  proxyPort,
		clients:    make(map[string]clientPair),
		sessions:   sessions,
		metrics:    m,
	}
	return actor.Run(state, handleMessage)
}

// handleMessage processes one client datagram: allocate the client's
// upstream socket if this is a new address, then forward the payload
// verbatim to the remote server.
func handleMessage(ref *actor.Ref[Message], msg Message, state routerState) routerState {
	key := msg.ClientAddr.String()

	pair, ok := state.clients[key]
	if !ok {
		var err error
		pair, err = state.addClient(ref, msg)
		if err != nil {
			logger.Error("[router] failed to add client %s: %v", key, err)
			return state
		}
	}

	if _, err := pair.upstream.WriteToUDP(msg.Data, state.remoteAddr); err != nil {
		logger.Debug("[router] forward to %s failed for client %s: %v", state.remoteAddr, key, err)
		return state
	}

	if sess, ok := state.sessions.Get(key); ok {
		sess.AddBytesUp(int64(len(msg.Data)))
	}
	state.metrics.PacketsUp.Inc()
	state.metrics.BytesUp.Add(float64(len(msg.Data)))

	logger.Debug("[router] forwarded %d bytes from %s via %s to %s",
		len(msg.Data), key, localAddrString(pair.upstream), state.remoteAddr)
	return state
}

// addClient binds a fresh upstream socket on an OS-assigned port, records
// the pairing, and attaches a relay task that reads the socket for as long
// as the router lives.
func (state routerState) addClient(ref *actor.Ref[Message], msg Message) (clientPair, error) {
	upstream, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return clientPair{}, fmt.Errorf("failed to bind upstream socket: %w", err)
	}

	key := msg.ClientAddr.String()
	pair := clientPair{upstream: upstream}
	state.clients[key] = pair

	sess, _ := state.sessions.GetOrCreate(key)
	if local, ok := upstream.LocalAddr().(*net.UDPAddr); ok {
		sess.SetUpstreamPort(local.Port)
	}
	state.metrics.ActiveClients.Inc()

	logger.Info("[router] new client %s -> %s", key, localAddrString(upstream))

	source := msg.Source
	clientAddr := msg.ClientAddr
	proxyPort := state.proxyPort
	m := state.metrics

	ref.AttachChild(task.Spawn(func(ctx context.Context) {
		defer m.ActiveClients.Dec()
		relayUpstream(ctx, upstream, source, clientAddr, proxyPort, sess, m)
	}))

	return pair, nil
}

// relayUpstream is the per-client child task: it receives the remote
// server's replies on the client's dedicated socket and relays them back.
// Discovery pongs get their advertised IPv4 port rewritten to the proxy's
// port so reconnecting clients land back on the proxy; anything that does
// not decode as a pong is in-session traffic and passes through untouched.
func relayUpstream(ctx context.Context, upstream *net.UDPConn, source *net.UDPConn, clientAddr *net.UDPAddr, proxyPort uint16, sess *session.Session, m *metrics.Metrics) {
	logger.Debug("[relay] listening for server replies on %s for client %s", localAddrString(upstream), clientAddr)

	readPackets(ctx, upstream, m, func(data []byte, _ *net.UDPAddr) {
		out := data

		if pong, err := proto.UnmarshalPong(data); err == nil {
			pong.Info.Port4 = strconv.Itoa(int(proxyPort))
			out = pong.Marshal()
			m.PongRewrites.Inc()
			logger.Debug("[relay] rewrote pong port to %d for client %s", proxyPort, clientAddr)
		} else {
			m.Passthrough.Inc()
		}

		if _, err := source.WriteToUDP(out, clientAddr); err != nil {
			logger.Debug("[relay] write to client %s failed: %v", clientAddr, err)
			return
		}
		sess.AddBytesDown(int64(len(out)))
		m.PacketsDown.Inc()
		m.BytesDown.Add(float64(len(out)))
	})
}
