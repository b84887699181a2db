package discovery

import (
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/telemetrylog"
)

// Resolver is the background reverse-DNS service backing a Listener's
// client directory (§4.8): IPs are resolved asynchronously so the UDP
// read loop never blocks on a DNS round trip, and results are cached under
// a mutex for lock-free-ish reads via HostName.
type Resolver struct {
	lookup func(string) ([]string, error)
	logger *zap.Logger

	mu      sync.RWMutex
	cache   map[string]string
	pending map[string]struct{}

	wg   sync.WaitGroup
	done chan struct{}
}

// NewResolver starts a Resolver using net.LookupAddr.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = telemetrylog.Noop()
	}
	return &Resolver{
		lookup:  net.LookupAddr,
		logger:  logger,
		cache:   make(map[string]string),
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// Resolve kicks off a background lookup for ip if it isn't already cached or
// in flight. Safe to call repeatedly; duplicate requests for the same IP
// while a lookup is outstanding are no-ops.
func (r *Resolver) Resolve(ip string) {
	r.mu.Lock()
	if _, cached := r.cache[ip]; cached {
		r.mu.Unlock()
		return
	}
	if _, inFlight := r.pending[ip]; inFlight {
		r.mu.Unlock()
		return
	}
	r.pending[ip] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.resolve(ip)
}

func (r *Resolver) resolve(ip string) {
	defer r.wg.Done()

	names, err := r.lookup(ip)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, ip)

	select {
	case <-r.done:
		return
	default:
	}

	if err != nil || len(names) == 0 {
		r.logger.Debug("reverse DNS lookup failed", zap.String("ip", ip), zap.Error(err))
		return
	}
	r.cache[ip] = strings.TrimSuffix(names[0], ".")
}

// HostName is the read-only accessor a viewer reads under the cache's lock.
// ok is false until the background lookup for ip completes (or if it never
// resolves to anything).
func (r *Resolver) HostName(ip string) (name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok = r.cache[ip]
	return name, ok
}

// Close stops accepting new lookups and waits for in-flight ones to finish.
func (r *Resolver) Close() {
	close(r.done)
	r.wg.Wait()
}
