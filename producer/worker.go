// Package producer implements the Client Worker (§4.2): the instrumented
// process's single dedicated thread driving listen/advertise/handshake/
// stream/shutdown, fed by the lock-free queue the instrumentation entry
// points enqueue onto.
package producer

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/compress"
	"github.com/tgfxgo/inspector/errs"
	"github.com/tgfxgo/inspector/internal/collision"
	"github.com/tgfxgo/inspector/internal/options"
	"github.com/tgfxgo/inspector/internal/pool"
	"github.com/tgfxgo/inspector/metrics"
	"github.com/tgfxgo/inspector/queue"
	"github.com/tgfxgo/inspector/telemetrylog"
	"github.com/tgfxgo/inspector/wire"
)

// idlePollInterval is the granularity of the worker's idle/keep-alive poll
// (§4.2: "wait 10 µs; after 500 such iterations ... force a commit"). Go's
// scheduler makes a literal 10µs busy-poll wasteful; a short ticker achieves
// the same forced-keepalive-after-idle behavior with less CPU churn.
const idlePollInterval = 2 * time.Millisecond

// idleIterationsBeforeKeepAlive keeps the original's 500-iteration
// threshold. At idlePollInterval that is 500 * 2ms == 1s of idle time
// before a forced KeepAlive, against 500 * 10µs == 5ms in the original.
const idleIterationsBeforeKeepAlive = 500

// Worker is the producer's single dedicated thread (§5: "exactly one
// dedicated worker thread"). Run() must execute on its own goroutine; the
// instrumentation entry points (SendFrameMark, SendAttribute*, Scope) are
// safe to call from any number of concurrent goroutines.
type Worker struct {
	cfg *Config
	q   *queue.Queue

	state    atomic.Int32
	shutdown atomic.Bool

	frameCount atomic.Uint64
	refTime    atomic.Int64
	initBegin  int64
	initEnd    int64

	listener net.Listener
	udpConn  *net.UDPConn
	conn     net.Conn

	enc   *wire.Encoder
	fw    *compress.FrameWriter
	stage *pool.ByteBuffer

	mu            sync.Mutex
	querySpace    int32
	lastQueryFill time.Time
	queryPriority []wire.ServerQueryPacket
	queryRegular  []wire.ServerQueryPacket
	names         *collision.Tracker

	done chan struct{}
}

// maxQuerySpace caps the producer's server-query rate-limit credit (§4.2,
// §6 serverQuerySpaceLeft); one credit is restored per queryFillInterval.
const maxQuerySpace = 4

const queryFillInterval = time.Second

// New creates a Worker. Run must be started on its own goroutine before any
// session will be established; instrumentation calls are safe beforehand
// (they simply enqueue and, once the queue fills, drop).
func New(opts ...Option) (*Worker, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetrylog.Noop()
	}

	now := monotonicNow()
	w := &Worker{
		cfg:           cfg,
		q:             queue.New(cfg.QueueCapacity),
		initBegin:     now,
		stage:         pool.NewByteBuffer(cfg.TargetFrameSize),
		lastQueryFill: time.Now(),
		names:         collision.NewTracker(),
		done:          make(chan struct{}),
	}
	w.refTime.Store(now)
	w.state.Store(int32(StateInit))
	return w, nil
}

// State returns the worker's current state-machine position.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Shutdown sets the shutdown flag; Run observes it at every blocking point
// and unwinds within one loop iteration (§5 cancellation), broadcasting a
// final activeTime=-1 beacon before returning.
func (w *Worker) Shutdown() {
	w.shutdown.Store(true)
	if w.conn != nil {
		_ = w.conn.Close()
	}
	if w.listener != nil {
		_ = w.listener.Close()
	}
}

// Done returns a channel closed once Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Enqueue offers item to the MPSC queue. It never blocks; on overflow it
// increments metrics.QueueDroppedTotal and returns immediately (§3
// invariant 5, §7 OverflowDrop).
func (w *Worker) Enqueue(item wire.QueueItem) {
	if !w.q.TryPush(item) {
		metrics.QueueDroppedTotal.Inc()
	}
}

// SendFrameMark enqueues a FrameMark with the current monotonic time and
// bumps the frame counter (§4.1).
func (w *Worker) SendFrameMark() {
	w.frameCount.Add(1)
	w.Enqueue(wire.NewFrameMark(monotonicNow()))
}

// SendAttributeUInt32 enqueues a ValueDataUInt32 (also used for color).
func (w *Worker) SendAttributeUInt32(name uint64, value uint32) {
	w.Enqueue(wire.NewValueDataUInt32(name, value))
}

// SendAttributeInt enqueues a ValueDataInt.
func (w *Worker) SendAttributeInt(name uint64, value int32) {
	w.Enqueue(wire.NewValueDataInt(name, value))
}

// SendAttributeFloat enqueues a ValueDataFloat.
func (w *Worker) SendAttributeFloat(name uint64, value float32) {
	w.Enqueue(wire.NewValueDataFloat(name, value))
}

// SendAttributeFloat4 enqueues a ValueDataFloat4.
func (w *Worker) SendAttributeFloat4(name uint64, value [4]float32) {
	w.Enqueue(wire.NewValueDataFloat4(name, value))
}

// SendAttributeMat4 enqueues a ValueDataMat4 (6-float affine 2x3 form).
func (w *Worker) SendAttributeMat4(name uint64, value [6]float32) {
	w.Enqueue(wire.NewValueDataMat4(name, value))
}

// SendAttributeBool enqueues a ValueDataBool.
func (w *Worker) SendAttributeBool(name uint64, value bool) {
	w.Enqueue(wire.NewValueDataBool(name, value))
}

// SendAttributeEnum enqueues a ValueDataEnum.
func (w *Worker) SendAttributeEnum(name uint64, enumType, ordinal uint8) {
	w.Enqueue(wire.NewValueDataEnum(name, enumType, ordinal))
}

// RegisterName associates handle with name in the worker's name registry, so
// a later ServerQueryValueName/ServerQueryString for handle can be answered
// (§4.2, §4.6). Called by inspector.NameID on every hash, which makes
// re-registration of the same (handle, name) pair the common case; that
// returns errs.ErrNameAlreadyRegistered and is ignored here. A genuine hash
// collision (same handle, different name) is logged and counted, not fatal:
// the most recently registered name simply wins any future lookup.
func (w *Worker) RegisterName(handle uint64, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, existed := w.names.Lookup(handle)
	err := w.names.TrackName(name, handle)
	if errors.Is(err, errs.ErrNameAlreadyRegistered) {
		return
	}
	if err == nil && existed && prev != name {
		metrics.NameCollisionsTotal.Inc()
		w.cfg.Logger.Warn("name hash collision", zap.Uint64("handle", handle), zap.String("name", name))
	}
}

// lookupName returns the name registered for handle, if any.
func (w *Worker) lookupName(handle uint64) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.names.Lookup(handle)
}

// ScopeBegin enqueues an OperateBegin and returns the monotonic begin time,
// for use by Scope's RAII-style helper.
func (w *Worker) ScopeBegin(opType uint8) int64 {
	t := monotonicNow()
	w.Enqueue(wire.NewOperateBegin(t, opType))
	return t
}

// ScopeEnd enqueues an OperateEnd.
func (w *Worker) ScopeEnd(opType uint8) {
	w.Enqueue(wire.NewOperateEnd(monotonicNow(), opType))
}

// Scope is the RAII-style scope/span helper (§4.1 scope_begin/scope_end).
// Construct with NewScope at the start of an operation; call End at the
// logical end. End is idempotent and safe to call more than once; the intended
// semantics (§9 open question) are "emit OperateEnd only when active" —
// unlike the original C++ destructor's inverted condition, which was a bug.
type Scope struct {
	w      *Worker
	opType uint8
	active bool
}

// NewScope begins a scope, enqueuing OperateBegin immediately.
func NewScope(w *Worker, opType uint8) *Scope {
	w.ScopeBegin(opType)
	return &Scope{w: w, opType: opType, active: true}
}

// End emits OperateEnd only if the scope is still active, then deactivates
// it. Safe to call multiple times (or via defer plus an explicit early End).
func (s *Scope) End() {
	if !s.active {
		return
	}
	s.active = false
	s.w.ScopeEnd(s.opType)
}

func monotonicNow() int64 {
	return time.Now().UnixNano()
}

func serverQueryAddrPort(conn net.Conn) string {
	return conn.RemoteAddr().String()
}
