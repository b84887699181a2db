// Package discovery implements the viewer-side half of UDP autodiscovery
// (§4.8): listening for BroadcastMessage beacons on the advertised port
// range and maintaining a directory of currently-live producers.
package discovery

import (
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/telemetrylog"
	"github.com/tgfxgo/inspector/wire"
)

// staleAfter removes a client entry if no beacon has refreshed it within
// this window (§9 supplement: clients with no fresh beacon for ~4 commit
// intervals are considered gone, not just momentarily silent).
const staleAfter = 4 * time.Second

// Client is one producer entry in the discovery directory, resolved from
// its beacons.
type Client struct {
	Addr        string
	Port        uint16
	ProgramName string
	Pid         uint32
	LastSeen    time.Time
}

// Listener listens for BroadcastMessage beacons on one UDP port and
// maintains a directory of live producers, expiring entries that stop
// beaconing or announce ActiveTimeS < 0 (shutdown).
type Listener struct {
	conn   *net.UDPConn
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]Client

	resolver *Resolver

	done chan struct{}
}

// Listen opens a UDP listener on port and returns a Listener. Callers
// typically start one Listener per port in [wire.BasePort,
// wire.BasePort+broadcastNum) to cover every port a producer might use.
// A Resolver is started alongside it (§4.8: "hostname resolution ... runs on
// a background reverse-DNS service with a {ip -> name} cache") and fed every
// IP the listener sees.
func Listen(port int, logger *zap.Logger) (*Listener, error) {
	if logger == nil {
		logger = telemetrylog.Noop()
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	l := &Listener{
		conn:     conn,
		logger:   logger,
		clients:  make(map[string]Client),
		resolver: NewResolver(logger),
		done:     make(chan struct{}),
	}
	go l.readLoop()
	go l.expireLoop()
	return l, nil
}

// Resolver returns the background reverse-DNS resolver feeding this
// Listener's client IPs.
func (l *Listener) Resolver() *Resolver {
	return l.resolver
}

// Close stops the listener and its resolver.
func (l *Listener) Close() error {
	close(l.done)
	l.resolver.Close()
	return l.conn.Close()
}

// Snapshot returns the currently live clients, keyed by "addr:port".
func (l *Listener) Snapshot() map[string]Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Client, len(l.clients))
	for k, v := range l.clients {
		out[k] = v
	}
	return out
}

func (l *Listener) readLoop() {
	buf := make([]byte, wire.BroadcastMessageSize)
	for {
		n, src, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < wire.BroadcastMessageSize {
			continue
		}
		msg, ok := wire.UnmarshalBroadcastMessage(buf[:n])
		if !ok || msg.ProtocolVersion != wire.ProtocolVersion {
			continue
		}
		l.upsert(src.IP.String(), msg)
	}
}

func (l *Listener) upsert(ip string, msg wire.BroadcastMessage) {
	key := net.JoinHostPort(ip, strconv.Itoa(int(msg.ListenPort)))

	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ActiveTimeS < 0 {
		delete(l.clients, key)
		l.logger.Debug("producer shutdown beacon", zap.String("addr", key))
		return
	}

	l.clients[key] = Client{
		Addr:        ip,
		Port:        msg.ListenPort,
		ProgramName: trimProgramName(msg.ProgramName),
		Pid:         msg.Pid,
		LastSeen:    time.Now(),
	}
	l.resolver.Resolve(ip)
}

func (l *Listener) expireLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, c := range l.clients {
				if now.Sub(c.LastSeen) > staleAfter {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func trimProgramName(b [wire.ProgramNameSize]byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b[:])
}
