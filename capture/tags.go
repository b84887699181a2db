package capture

import (
	"fmt"

	"github.com/tgfxgo/inspector/errs"
	"github.com/tgfxgo/inspector/model"
)

// --- NameMap tag: varint count, then (ptr u64, varint-length UTF8 string) pairs ---

func writeNameMapTag(dst []byte, names *model.NameMap) []byte {
	var body []byte
	body = putUvarint(body, uint64(names.Len()))
	names.All(func(handle uint64, name string) bool {
		body = appendU64(body, handle)
		body = putUvarint(body, uint64(len(name)))
		body = append(body, name...)
		return true
	})
	dst = writeTagHeader(dst, TagNameMap, uint32(len(body)))
	return append(dst, body...)
}

func readNameMapTag(payload []byte, names *model.NameMap) error {
	count, n := uvarint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad NameMap count: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]

	for i := uint64(0); i < count; i++ {
		if len(payload) < 8 {
			return fmt.Errorf("capture: truncated NameMap entry: %w", errs.ErrFileFormat)
		}
		handle := readU64(payload)
		payload = payload[8:]

		l, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad NameMap string length: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]
		if uint64(len(payload)) < l {
			return fmt.Errorf("capture: truncated NameMap string: %w", errs.ErrFileFormat)
		}
		names.Resolve(handle, string(payload[:l]))
		payload = payload[l:]
	}
	return nil
}

// --- SessionMeta tag: varint-length UTF8 session ID string, generated by
// consumer.Client at Dial time (google/uuid) and carried through so a
// replayed capture file can be traced back to the session that recorded it.

func writeSessionMetaTag(dst []byte, sessionID string) []byte {
	var body []byte
	body = putUvarint(body, uint64(len(sessionID)))
	body = append(body, sessionID...)
	dst = writeTagHeader(dst, TagSessionMeta, uint32(len(body)))
	return append(dst, body...)
}

func readSessionMetaTag(payload []byte) (string, error) {
	l, n := uvarint(payload)
	if n <= 0 {
		return "", fmt.Errorf("capture: bad SessionMeta length: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]
	if uint64(len(payload)) < l {
		return "", fmt.Errorf("capture: truncated SessionMeta: %w", errs.ErrFileFormat)
	}
	return string(payload[:l]), nil
}

// --- Frame tag: varint count, then per-frame (deltaStart varint, closed
// flag byte, duration varint if closed, drawCall varint, triangles varint).
// Running start-time delta accumulator mirrors TagUtils' ReadTimeOffset/
// WriteTimeOffset scheme.

func writeFrameTag(dst []byte, frames *model.FrameData) []byte {
	var body []byte
	body = putUvarint(body, uint64(len(frames.Events)))

	var last int64
	for _, ev := range frames.Events {
		body = putVarint(body, ev.StartNs-last)
		last = ev.StartNs

		if ev.EndNs == -1 {
			body = append(body, 0)
		} else {
			body = append(body, 1)
			body = putVarint(body, ev.EndNs-ev.StartNs)
		}
		body = putUvarint(body, uint64(ev.DrawCall))
		body = putUvarint(body, uint64(ev.Triangles))
	}
	dst = writeTagHeader(dst, TagFrame, uint32(len(body)))
	return append(dst, body...)
}

func readFrameTag(payload []byte, frames *model.FrameData) error {
	count, n := uvarint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad Frame count: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]

	events := make([]model.FrameEvent, 0, count)
	var last int64
	for i := uint64(0); i < count; i++ {
		dStart, n := varint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad Frame start delta: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]
		start := last + dStart
		last = start

		if len(payload) < 1 {
			return fmt.Errorf("capture: truncated Frame closed flag: %w", errs.ErrFileFormat)
		}
		closed := payload[0] != 0
		payload = payload[1:]

		end := int64(-1)
		if closed {
			dur, n := varint(payload)
			if n <= 0 {
				return fmt.Errorf("capture: bad Frame duration: %w", errs.ErrFileFormat)
			}
			payload = payload[n:]
			end = start + dur
		}

		draw, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad Frame drawCall: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		tri, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad Frame triangles: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		events = append(events, model.FrameEvent{
			StartNs:   start,
			EndNs:     end,
			DrawCall:  uint32(draw),
			Triangles: uint32(tri),
		})
	}

	frames.Events = events
	frames.RecomputeStats()
	return nil
}

// --- OpTask tag: baseTime, lastTime, then opTasks array of (varint start,
// closed flag, varint duration if closed, type byte), then opChilds map of
// (parent varint, count varint, child varints...).

func writeOpTaskTag(dst []byte, b *model.Builder) []byte {
	var body []byte
	body = putVarint(body, b.BaseTime)
	body = putVarint(body, b.LastTime)

	body = putUvarint(body, uint64(len(b.OpTasks)))
	for _, op := range b.OpTasks {
		body = putVarint(body, op.StartNs)
		if op.EndNs == -1 {
			body = append(body, 0)
		} else {
			body = append(body, 1)
			body = putVarint(body, op.EndNs-op.StartNs)
		}
		body = append(body, op.Type)
	}

	body = putUvarint(body, uint64(len(b.OpChilds)))
	for parent, children := range b.OpChilds {
		body = putUvarint(body, uint64(parent))
		body = putUvarint(body, uint64(len(children)))
		for _, c := range children {
			body = putUvarint(body, uint64(c))
		}
	}

	dst = writeTagHeader(dst, TagOpTask, uint32(len(body)))
	return append(dst, body...)
}

func readOpTaskTag(payload []byte, b *model.Builder) error {
	baseTime, n := varint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad OpTask baseTime: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]
	b.BaseTime = baseTime

	lastTime, n := varint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad OpTask lastTime: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]
	b.LastTime = lastTime

	opCount, n := uvarint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad OpTask count: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]

	ops := make([]model.OpTaskData, 0, opCount)
	for i := uint64(0); i < opCount; i++ {
		start, n := varint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad OpTask start: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		if len(payload) < 1 {
			return fmt.Errorf("capture: truncated OpTask closed flag: %w", errs.ErrFileFormat)
		}
		closed := payload[0] != 0
		payload = payload[1:]

		end := int64(-1)
		if closed {
			dur, n := varint(payload)
			if n <= 0 {
				return fmt.Errorf("capture: bad OpTask duration: %w", errs.ErrFileFormat)
			}
			payload = payload[n:]
			end = start + dur
		}

		if len(payload) < 1 {
			return fmt.Errorf("capture: truncated OpTask type: %w", errs.ErrFileFormat)
		}
		opType := payload[0]
		payload = payload[1:]

		ops = append(ops, model.OpTaskData{
			ID:      uint32(i),
			StartNs: start,
			EndNs:   end,
			Type:    opType,
			Kind:    model.ClassifyOpKind(opType),
		})
	}
	b.OpTasks = ops

	childCount, n := uvarint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad opChilds count: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]

	opChilds := make(map[uint32][]uint32, childCount)
	for i := uint64(0); i < childCount; i++ {
		parent, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad opChilds parent: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		cc, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad opChilds child count: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		children := make([]uint32, 0, cc)
		for j := uint64(0); j < cc; j++ {
			c, n := uvarint(payload)
			if n <= 0 {
				return fmt.Errorf("capture: bad opChilds child: %w", errs.ErrFileFormat)
			}
			payload = payload[n:]
			children = append(children, uint32(c))
		}
		opChilds[uint32(parent)] = children
	}
	b.OpChilds = opChilds

	return nil
}

// --- Property tag: varint op count, then per op (opID varint, varint
// attribute count, then per attribute: nameHandle u64, type byte, varint
// data length, data bytes) — mirrors PropertyTag.cpp's head-list +
// raw-data-blob split (§9 supplement 8).

func writePropertyTag(dst []byte, props map[uint32]*model.PropertyData) []byte {
	var body []byte
	body = putUvarint(body, uint64(len(props)))

	for opID, p := range props {
		body = putUvarint(body, uint64(opID))
		body = putUvarint(body, uint64(len(p.Heads)))
		for i, head := range p.Heads {
			body = appendU64(body, head.NameHandle)
			body = append(body, byte(head.Type))
			data := p.Data[i]
			body = putUvarint(body, uint64(len(data)))
			body = append(body, data...)
		}
	}
	dst = writeTagHeader(dst, TagProperty, uint32(len(body)))
	return append(dst, body...)
}

func readPropertyTag(payload []byte, props map[uint32]*model.PropertyData) error {
	opCount, n := uvarint(payload)
	if n <= 0 {
		return fmt.Errorf("capture: bad Property op count: %w", errs.ErrFileFormat)
	}
	payload = payload[n:]

	for i := uint64(0); i < opCount; i++ {
		opID, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad Property opID: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		attrCount, n := uvarint(payload)
		if n <= 0 {
			return fmt.Errorf("capture: bad Property attr count: %w", errs.ErrFileFormat)
		}
		payload = payload[n:]

		p := &model.PropertyData{}
		for j := uint64(0); j < attrCount; j++ {
			if len(payload) < 9 {
				return fmt.Errorf("capture: truncated Property head: %w", errs.ErrFileFormat)
			}
			handle := readU64(payload)
			typ := model.DataType(payload[8])
			payload = payload[9:]

			l, n := uvarint(payload)
			if n <= 0 {
				return fmt.Errorf("capture: bad Property data length: %w", errs.ErrFileFormat)
			}
			payload = payload[n:]
			if uint64(len(payload)) < l {
				return fmt.Errorf("capture: truncated Property data: %w", errs.ErrFileFormat)
			}
			data := append([]byte(nil), payload[:l]...)
			payload = payload[l:]

			p.Append(model.DataHead{NameHandle: handle, Type: typ}, data)
		}
		props[uint32(opID)] = p
	}
	return nil
}
