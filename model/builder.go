package model

import (
	"math"

	"github.com/tgfxgo/inspector/wire"
)

// Builder accumulates one session's worth of decoded QueueItems into the
// data model (§4.6). It owns the per-thread begin/end stack discipline, the
// arena+index parent-child DAG (§9: never back-pointers), and the pending
// string-resolution query list.
//
// A Builder is single-threaded by construction: it is driven exclusively by
// the consumer's work thread under the DataContext lock (§5).
type Builder struct {
	Frames   *FrameData
	OpTasks  []OpTaskData
	OpChilds map[uint32][]uint32
	Props    map[uint32]*PropertyData
	Names    *NameMap

	BaseTime int64
	LastTime int64

	// SessionID identifies the consumer session that produced this model,
	// assigned by consumer.Client at Dial time and carried through to the
	// capture file's session-metadata chunk (§9 supplement).
	SessionID string

	stack []uint32

	// pendingNames holds handles awaiting ServerQueryValueName resolution,
	// queued in first-seen order, deduplicated against Names so §8
	// invariant 5 holds ("zero additional queries" for a handle already
	// pending or resolved).
	pendingNames   []uint64
	pendingNameSet map[uint64]bool
}

// NewBuilder creates an empty Builder seeded with baseTime (the session's
// init-begin time from the welcome message, §3 invariant 3).
func NewBuilder(baseTime int64) *Builder {
	b := &Builder{
		Frames:         NewFrameData(),
		OpChilds:       make(map[uint32][]uint32),
		Props:          make(map[uint32]*PropertyData),
		Names:          NewNameMap(),
		BaseTime:       baseTime,
		LastTime:       baseTime,
		pendingNameSet: make(map[uint64]bool),
	}
	return b
}

// SeedWelcomeFrames installs the two placeholder frames the worker pushes
// before any real data arrives, mirroring Worker.cpp's handshake handler
// verbatim: one frame starting at the session's base time (relative StartNs
// 0) and a second starting at the init-end time, both left open (EndNs=-1,
// DrawCall=0, Triangles=0, FrameImageID unset). Both initBeginNs and
// initEndNs are absolute nanosecond times from the WelcomeMessage; the
// second frame's StartNs is stored relative to initBeginNs (the Builder's
// BaseTime) to match every other timestamp the Builder carries. Real
// FrameMarks never close the placeholders: the first one only opens the
// session's first real frame after them (§8 Scenario A).
func (b *Builder) SeedWelcomeFrames(initBeginNs, initEndNs int64) {
	initEndRel := initEndNs - initBeginNs
	b.Frames.Events = append(b.Frames.Events,
		FrameEvent{StartNs: 0, EndNs: -1, FrameImageID: FrameImageIDUnset},
		FrameEvent{StartNs: initEndRel, EndNs: -1, FrameImageID: FrameImageIDUnset},
	)
	b.LastTime = initEndRel
}

// FrameImageIDUnset is the sentinel used for the seeded placeholder frames'
// FrameImageID field, mirroring the original's "-1" for an unsigned field.
const FrameImageIDUnset = ^uint32(0)

// Dispatch processes one decoded QueueItem, updating the model per §4.6.
// item.NsTime is the absolute nanosecond time already rebuilt from the
// refTime deltas by the wire decoder; Dispatch rebases it against BaseTime
// before storing (§3 invariant 3).
func (b *Builder) Dispatch(item wire.QueueItem) {
	switch item.Tag {
	case wire.TagFrameMark:
		t := item.NsTime - b.BaseTime
		b.Frames.AddFrameMark(t)
		b.LastTime = t

	case wire.TagOperateBegin:
		t := item.NsTime - b.BaseTime
		id := uint32(len(b.OpTasks))
		kind := ClassifyOpKind(item.OpType)
		b.OpTasks = append(b.OpTasks, OpTaskData{ID: id, StartNs: t, EndNs: -1, Type: item.OpType, Kind: kind})
		if len(b.stack) > 0 {
			parent := b.stack[len(b.stack)-1]
			b.OpChilds[parent] = append(b.OpChilds[parent], id)
		}
		b.stack = append(b.stack, id)
		b.LastTime = t

	case wire.TagOperateEnd:
		t := item.NsTime - b.BaseTime
		if len(b.stack) == 0 {
			// §3 invariant 1 / §7 StackMismatch: drop, not fatal.
			return
		}
		id := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.OpTasks[id].EndNs = t
		b.LastTime = t

	case wire.TagValueDataUInt32, wire.TagValueDataInt, wire.TagValueDataFloat,
		wire.TagValueDataFloat4, wire.TagValueDataMat4, wire.TagValueDataBool, wire.TagValueDataEnum:
		b.appendProperty(item)
		b.maybeQueryName(item.Name)

	case wire.TagValueName:
		b.Names.Resolve(item.Name, string(item.Bytes))
		b.removePending(item.Name)

	case wire.TagStringData:
		// StringData responses resolve ad-hoc ServerQueryString requests;
		// the core model treats them identically to ValueName for naming
		// purposes since both populate the same NameMap in this subsystem.
		b.Names.Resolve(item.Name, string(item.Bytes))
		b.removePending(item.Name)

	case wire.TagKeepAlive:
		// no model effect
	}
}

func (b *Builder) currentOpID() (uint32, bool) {
	if len(b.stack) == 0 {
		return 0, false
	}
	return b.stack[len(b.stack)-1], true
}

func (b *Builder) appendProperty(item wire.QueueItem) {
	opID, ok := b.currentOpID()
	if !ok {
		return
	}
	p, ok := b.Props[opID]
	if !ok {
		p = &PropertyData{}
		b.Props[opID] = p
	}

	head := DataHead{NameHandle: item.Name}
	var data []byte
	switch item.Tag {
	case wire.TagValueDataUInt32:
		head.Type = DataTypeColor
		data = u32bytes(item.Value32)
	case wire.TagValueDataInt:
		head.Type = DataTypeInt
		data = u32bytes(item.Value32)
	case wire.TagValueDataFloat:
		head.Type = DataTypeFloat
		data = u32bytes(item.Value32)
	case wire.TagValueDataFloat4:
		head.Type = DataTypeVect
		data = f32sbytes(item.Value4[:])
	case wire.TagValueDataMat4:
		head.Type = DataTypeMat4
		data = f32sbytes(item.Value6[:])
	case wire.TagValueDataBool:
		head.Type = DataTypeInt
		if item.ValueBool {
			data = []byte{1}
		} else {
			data = []byte{0}
		}
	case wire.TagValueDataEnum:
		head.Type = DataTypeInt
		data = []byte{byte(item.ValueEnum), byte(item.ValueEnum >> 8)}
	}
	p.Append(head, data)
}

// maybeQueryName enqueues a ServerQueryValueName for handle if it is
// neither resolved nor already pending (§8 invariant 5, Scenario C).
func (b *Builder) maybeQueryName(handle uint64) {
	if b.Names.Has(handle) || b.pendingNameSet[handle] {
		return
	}
	b.pendingNameSet[handle] = true
	b.pendingNames = append(b.pendingNames, handle)
}

func (b *Builder) removePending(handle uint64) {
	delete(b.pendingNameSet, handle)
}

// DrainPendingNameQueries returns and clears the handles awaiting
// resolution, for the caller to turn into ServerQueryValueName packets.
func (b *Builder) DrainPendingNameQueries() []uint64 {
	out := b.pendingNames
	b.pendingNames = nil
	return out
}

func u32bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func f32sbytes(vs []float32) []byte {
	out := make([]byte, 0, len(vs)*4)
	for _, f := range vs {
		out = append(out, u32bytes(math.Float32bits(f))...)
	}
	return out
}
