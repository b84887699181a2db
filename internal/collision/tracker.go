package collision

import (
	"github.com/tgfxgo/inspector/errs"
)

// Tracker tracks the attribute/operation names a producer.Worker has
// resolved (§4.6 NameMap) and detects the rare case where two distinct
// names hash to the same 64-bit handle. It maintains a handle-to-name map
// for lookup plus an ordered list of names in registration order.
type Tracker struct {
	names        map[uint64]string // handle -> name, for collision detection and lookup
	namesList    []string          // ordered list, for diagnostics
	hasCollision bool              // whether a collision has been detected
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names:     make(map[uint64]string),
		namesList: make([]string, 0),
	}
}

// TrackNameID tracks a handle without an associated name, for callers that
// mint a handle directly rather than through NameID/RegisterName. Returns
// errs.ErrHashCollision if the handle was already used - this indicates a
// collision that cannot be disambiguated without a name.
func (t *Tracker) TrackNameID(handle uint64) error {
	if _, exists := t.names[handle]; exists {
		return errs.ErrHashCollision
	}
	t.names[handle] = ""
	return nil
}

// TrackName registers name under handle (the usual inspector.NameID path).
// Returns errs.ErrInvalidName if name is empty, or errs.ErrNameAlreadyRegistered
// if the exact same (handle, name) pair was already tracked - harmless,
// since NameID is called every time instrumentation code references the
// same literal.
//
// A hash collision (different names sharing a handle) is NOT an error here:
// HasCollision is set and the new name is tracked alongside the old one, so
// a later lookup sees the most recently registered name for that handle.
func (t *Tracker) TrackName(name string, handle uint64) error {
	if name == "" {
		return errs.ErrInvalidName
	}

	if existingName, exists := t.names[handle]; exists {
		if existingName != name {
			t.hasCollision = true
		} else {
			return errs.ErrNameAlreadyRegistered
		}
	}

	t.names[handle] = name
	t.namesList = append(t.namesList, name)
	return nil
}

// Lookup returns the name registered for handle, if any.
func (t *Tracker) Lookup(handle uint64) (string, bool) {
	name, ok := t.names[handle]
	return name, ok && name != ""
}

// HasCollision returns true if a collision has been detected.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Names returns the ordered list of registered names, in registration order.
func (t *Tracker) Names() []string {
	return t.namesList
}

// Count returns the number of names tracked.
func (t *Tracker) Count() int {
	return len(t.namesList)
}

// Reset clears all tracked names and collision state, preserving the
// underlying map/slice capacity to avoid reallocating on reuse.
func (t *Tracker) Reset() {
	for k := range t.names {
		delete(t.names, k)
	}
	t.namesList = t.namesList[:0]
	t.hasCollision = false
}
