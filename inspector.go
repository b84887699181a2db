// Package inspector is the instrumented process's entry point: a
// process-wide singleton wrapping a producer.Worker, exposing the
// instrumentation API described in §4.1 (frame marks, attributes, scopes)
// without requiring callers to hold a *producer.Worker themselves.
//
// Install starts the worker's dedicated goroutine; every exported function
// before Install is a safe no-op, so instrumented code never needs to guard
// calls on whether the subsystem is active.
package inspector

import (
	"sync"
	"sync/atomic"

	"github.com/tgfxgo/inspector/internal/hash"
	"github.com/tgfxgo/inspector/producer"
)

var (
	mu     sync.Mutex
	worker *producer.Worker
	active atomic.Bool
)

// Install creates the global Worker and starts it on its own goroutine.
// Calling Install while already installed returns an "inspector: already
// installed" error without creating a second Worker; callers should
// Uninstall first.
func Install(opts ...producer.Option) error {
	mu.Lock()
	defer mu.Unlock()

	if active.Load() {
		return errAlreadyInstalled
	}

	w, err := producer.New(opts...)
	if err != nil {
		return err
	}
	worker = w
	active.Store(true)

	go func() {
		_ = w.Run()
	}()
	return nil
}

// Uninstall signals the Worker to shut down and blocks until its goroutine
// has returned (§5: "worker thread first, then consumer net/work threads"
// teardown order — for the producer side this means the single dedicated
// thread drains and sends its final shutdown beacon before Uninstall
// returns).
func Uninstall() {
	mu.Lock()
	w := worker
	mu.Unlock()

	if w == nil {
		return
	}
	w.Shutdown()
	<-w.Done()

	mu.Lock()
	worker = nil
	active.Store(false)
	mu.Unlock()
}

// NameID hashes a human-readable attribute/operation name into the 64-bit
// identifier the wire protocol carries, registering the mapping with the
// installed worker so a later ServerQueryValueName/ServerQueryString for
// this handle gets answered (§4.6 NameMap). Safe to call before Install;
// the registration is simply skipped.
func NameID(name string) uint64 {
	id := hash.ID(name)
	if w := current(); w != nil {
		w.RegisterName(id, name)
	}
	return id
}

// SendFrameMark marks a frame boundary. No-op if not installed.
func SendFrameMark() {
	if w := current(); w != nil {
		w.SendFrameMark()
	}
}

// SendAttributeUInt32 records a uint32/color attribute under name.
func SendAttributeUInt32(name uint64, value uint32) {
	if w := current(); w != nil {
		w.SendAttributeUInt32(name, value)
	}
}

// SendAttributeInt records an int32 attribute under name.
func SendAttributeInt(name uint64, value int32) {
	if w := current(); w != nil {
		w.SendAttributeInt(name, value)
	}
}

// SendAttributeFloat records a float32 attribute under name.
func SendAttributeFloat(name uint64, value float32) {
	if w := current(); w != nil {
		w.SendAttributeFloat(name, value)
	}
}

// SendAttributeFloat4 records a 4-float attribute under name.
func SendAttributeFloat4(name uint64, value [4]float32) {
	if w := current(); w != nil {
		w.SendAttributeFloat4(name, value)
	}
}

// SendAttributeMat4 records a 2x3 affine matrix attribute under name.
func SendAttributeMat4(name uint64, value [6]float32) {
	if w := current(); w != nil {
		w.SendAttributeMat4(name, value)
	}
}

// SendAttributeBool records a bool attribute under name.
func SendAttributeBool(name uint64, value bool) {
	if w := current(); w != nil {
		w.SendAttributeBool(name, value)
	}
}

// SendAttributeEnum records an enum attribute under name.
func SendAttributeEnum(name uint64, enumType, ordinal uint8) {
	if w := current(); w != nil {
		w.SendAttributeEnum(name, enumType, ordinal)
	}
}

// Scope is the RAII-style operation span helper (§4.1). It is a no-op
// placeholder if the subsystem isn't installed, so End is always safe to
// call unconditionally.
type Scope struct {
	s *producer.Scope
}

// NewScope begins an operation span of opType. Call End when the operation
// completes, typically via defer.
func NewScope(opType uint8) Scope {
	w := current()
	if w == nil {
		return Scope{}
	}
	return Scope{s: producer.NewScope(w, opType)}
}

// End closes the span. Safe to call on a zero Scope or multiple times.
func (s Scope) End() {
	if s.s != nil {
		s.s.End()
	}
}

func current() *producer.Worker {
	if !active.Load() {
		return nil
	}
	mu.Lock()
	w := worker
	mu.Unlock()
	return w
}

var errAlreadyInstalled = installError("inspector: already installed")

type installError string

func (e installError) Error() string { return string(e) }
