// Package model implements the Data Model Builder (§4.6): it turns a stream
// of decoded wire.QueueItems into the FrameData/OpTaskData/PropertyData/
// NameMap structures a viewer (or file writer) consumes.
package model

import "math"

// FrameEvent is one frame's boundary markers and per-frame counters.
// EndNs is -1 until the next FrameMark arrives (continuous mode) or an
// explicit end is set.
type FrameEvent struct {
	StartNs      int64
	EndNs        int64
	DrawCall     uint32
	Triangles    uint32
	FrameImageID uint32
}

// FrameData is a sequence of FrameEvents plus rolling statistics over closed
// frame durations (§3, §8 invariant 6).
type FrameData struct {
	Events []FrameEvent

	Min   int64
	Max   int64
	Total int64
	SumSq float64

	closedCount int64
	realCount   int
}

// NewFrameData creates an empty FrameData. Min starts at the max int64 so
// the first observed duration always lowers it.
func NewFrameData() *FrameData {
	return &FrameData{Min: math.MaxInt64}
}

// AddFrameMark appends a new open FrameEvent at startNs, closing the
// previous *real* frame (if any and still open) at startNs first — matching
// the original's "continuous mode" semantics where a FrameMark both ends
// the previous frame and begins the next. The welcome-seeded placeholder
// frames (added via SeedWelcomeFrames, not through this method) are exempt:
// no real FrameMark closes them, per §8 Scenario A.
func (f *FrameData) AddFrameMark(startNs int64) {
	if f.realCount > 0 {
		f.closeFrame(len(f.Events)-1, startNs)
	}
	f.Events = append(f.Events, FrameEvent{StartNs: startNs, EndNs: -1})
	f.realCount++
}

// ExtendLastTo closes a still-open final frame at lastTime, used when a
// capture ends mid-frame (§9 supplemented feature: "last frame duration
// extends to lastTime").
func (f *FrameData) ExtendLastTo(lastTime int64) {
	if n := len(f.Events); n > 0 && f.Events[n-1].EndNs == -1 {
		f.closeFrame(n-1, lastTime)
	}
}

func (f *FrameData) closeFrame(idx int, endNs int64) {
	f.Events[idx].EndNs = endNs
	dur := endNs - f.Events[idx].StartNs
	if dur < f.Min {
		f.Min = dur
	}
	if dur > f.Max {
		f.Max = dur
	}
	f.Total += dur
	f.SumSq += float64(dur) * float64(dur)
	f.closedCount++
}

// RecomputeStats rebuilds Min/Max/Total/SumSq from the current Events
// slice. Used by the capture-file reader after loading events directly,
// since the rolling stats are a derived view rather than part of the
// persisted record.
func (f *FrameData) RecomputeStats() {
	f.Min = math.MaxInt64
	f.Max = 0
	f.Total = 0
	f.SumSq = 0
	f.closedCount = 0

	for _, ev := range f.Events {
		if ev.EndNs == -1 {
			continue
		}
		dur := ev.EndNs - ev.StartNs
		if dur < f.Min {
			f.Min = dur
		}
		if dur > f.Max {
			f.Max = dur
		}
		f.Total += dur
		f.SumSq += float64(dur) * float64(dur)
		f.closedCount++
	}
}

// AddDrawCall accumulates draw_call/triangle counters into the currently
// open frame, per §3 invariant 6 ("accumulate between consecutive
// FrameMarks"). A no-op if no frame is open yet.
func (f *FrameData) AddDrawCall(draws, triangles uint32) {
	if n := len(f.Events); n > 0 {
		f.Events[n-1].DrawCall += draws
		f.Events[n-1].Triangles += triangles
	}
}

// OpKind classifies an OpTaskType byte into the broad category the original
// InspectorEvent.cpp's getOpTaskType distinguishes (§9 supplemented
// feature). The concrete OpTaskType enumeration belongs to the instrumented
// graphics library and is out of scope here; this module only preserves the
// classification bit so a future UI can group tasks vs. ops.
type OpKind uint8

const (
	OpKindUnknown OpKind = iota
	OpKindTask
	OpKindOp
)

// ClassifyOpKind buckets a raw op type byte. Values 0x00-0x3F are tasks,
// 0x40-0x7F are ops, everything else is unknown — this numbering is a
// local convention for the Go port (the instrumented library's real type
// registry is external), preserving the three-way split the original made.
func ClassifyOpKind(opType uint8) OpKind {
	switch {
	case opType < 0x40:
		return OpKindTask
	case opType < 0x80:
		return OpKindOp
	default:
		return OpKindUnknown
	}
}

// OpTaskData is a single instrumented operation's span.
type OpTaskData struct {
	ID      uint32
	StartNs int64
	EndNs   int64 // -1 until closed
	Type    uint8
	Kind    OpKind
}

// DataHead is the generic attribute header used by PropertyData, split into
// a head (name handle + declared type) and its raw byte payload — mirroring
// the original file format's DataHead/TagUtils split so the capture
// round-trip exercises the same shape (§9 supplemented feature 8).
type DataHead struct {
	NameHandle uint64
	Type       DataType
}

// DataType enumerates the attribute value kinds recorded in PropertyData,
// following InspectorEvent.h's DataType enum.
type DataType uint8

const (
	DataTypeColor DataType = iota
	DataTypeVect
	DataTypeMat4
	DataTypeInt
	DataTypeFloat
	DataTypeString
)

// PropertyData is the list of attribute values captured for one op task.
type PropertyData struct {
	Heads []DataHead
	Data  [][]byte
}

// Append records one attribute's head + raw bytes.
func (p *PropertyData) Append(head DataHead, data []byte) {
	p.Heads = append(p.Heads, head)
	p.Data = append(p.Data, data)
}

// NameMap is the append-only handle -> resolved string table (§3).
type NameMap struct {
	m map[uint64]string
}

// NewNameMap creates an empty NameMap.
func NewNameMap() *NameMap {
	return &NameMap{m: make(map[uint64]string)}
}

// Resolve records handle -> name. Idempotent: re-resolving the same handle
// to the same name is a no-op; resolving to a different name overwrites
// (the protocol never does this in practice, but the map itself doesn't
// enforce immutability beyond "append-only within a session" semantics).
func (n *NameMap) Resolve(handle uint64, name string) {
	n.m[handle] = name
}

// Lookup returns the resolved name for handle, if any.
func (n *NameMap) Lookup(handle uint64) (string, bool) {
	v, ok := n.m[handle]
	return v, ok
}

// Has reports whether handle has already been resolved (used to avoid
// issuing duplicate ServerQueryValueName requests, §8 invariant 5).
func (n *NameMap) Has(handle uint64) bool {
	_, ok := n.m[handle]
	return ok
}

// Len returns the number of resolved names.
func (n *NameMap) Len() int {
	return len(n.m)
}

// All iterates every resolved (handle, name) pair. Order is unspecified.
func (n *NameMap) All(yield func(handle uint64, name string) bool) {
	for h, s := range n.m {
		if !yield(h, s) {
			return
		}
	}
}
