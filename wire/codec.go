package wire

import (
	"fmt"

	"github.com/tgfxgo/inspector/endian"
	"github.com/tgfxgo/inspector/errs"
)

// wireEndian is the byte order every wire.Encoder/Decoder uses, matching
// the original protocol's native little-endian layout.
var wireEndian = endian.GetLittleEndianEngine()

// Encoder appends QueueItems to a byte buffer in wire format, rewriting the
// timestamp fields of OperateBegin/OperateEnd/FrameMark to deltas against a
// per-stream reference time as it goes (§4.3). A single Encoder instance is
// owned by one logical stream (the producer's single worker thread, or one
// decode pass of a capture file that tracks deltas the same way).
type Encoder struct {
	refTime int64
}

// NewEncoder creates an Encoder with the given initial reference time.
func NewEncoder(refTime int64) *Encoder {
	return &Encoder{refTime: refTime}
}

// RefTime returns the encoder's current reference time.
func (e *Encoder) RefTime() int64 { return e.refTime }

// Encode appends the wire bytes of item to dst and returns the extended
// slice. For OperateBegin/OperateEnd/FrameMark, the timestamp is written as
// the delta of item.NsTime against the running refTime (item itself is not
// modified), exactly as §4.3 specifies:
//
//	dt = ns_time - refTimeThread
//	refTimeThread = ns_time
func (e *Encoder) Encode(dst []byte, item QueueItem) []byte {
	dst = append(dst, byte(item.Tag))

	switch item.Tag {
	case TagOperateBegin, TagOperateEnd:
		dt := item.NsTime - e.refTime
		e.refTime = item.NsTime
		dst = appendI64(dst, dt)
		dst = append(dst, item.OpType)
	case TagFrameMark:
		dt := item.NsTime - e.refTime
		e.refTime = item.NsTime
		dst = appendI64(dst, dt)
	case TagKeepAlive:
		// no payload
	case TagValueDataUInt32, TagValueDataInt, TagValueDataFloat:
		dst = appendU64(dst, item.Name)
		dst = appendU32(dst, item.Value32)
	case TagValueDataFloat4:
		dst = appendU64(dst, item.Name)
		for _, f := range item.Value4 {
			dst = appendU32(dst, float32bits(f))
		}
	case TagValueDataMat4:
		dst = appendU64(dst, item.Name)
		for _, f := range item.Value6 {
			dst = appendU32(dst, float32bits(f))
		}
	case TagValueDataBool:
		dst = appendU64(dst, item.Name)
		var b byte
		if item.ValueBool {
			b = 1
		}
		dst = append(dst, b)
	case TagValueDataEnum:
		dst = appendU64(dst, item.Name)
		dst = appendU16(dst, item.ValueEnum)
	case TagStringData, TagValueName:
		dst = appendU64(dst, item.Name)
		dst = appendU16(dst, uint16(len(item.Bytes)))
		dst = append(dst, item.Bytes...)
	}

	return dst
}

// Decoder walks a byte buffer as a sequence of QueueItems, reconstructing
// absolute timestamps from deltas against a running reference time (the
// mirror of Encoder).
type Decoder struct {
	refTime int64
}

// NewDecoder creates a Decoder with the given initial reference time.
func NewDecoder(refTime int64) *Decoder {
	return &Decoder{refTime: refTime}
}

// RefTime returns the decoder's current reference time.
func (d *Decoder) RefTime() int64 { return d.refTime }

// Next decodes one QueueItem starting at src[0], returning the item and the
// number of bytes consumed. Returns errs.ErrUnknownTag if the leading byte is
// not a known tag; per §7 this is fatal for the session since the size table
// mandates a known width to keep the byte stream aligned.
func (d *Decoder) Next(src []byte) (QueueItem, int, error) {
	if len(src) < 1 {
		return QueueItem{}, 0, fmt.Errorf("wire: empty buffer: %w", errs.ErrTransport)
	}

	tag := Tag(src[0])
	if !tag.Valid() {
		return QueueItem{}, 0, fmt.Errorf("wire: tag %d: %w", src[0], errs.ErrUnknownTag)
	}

	body := src[1:]
	fixed := FixedSize[tag]
	if len(body) < fixed {
		return QueueItem{}, 0, fmt.Errorf("wire: short body for %s: %w", tag, errs.ErrTransport)
	}

	item := QueueItem{Tag: tag}
	n := 1

	switch tag {
	case TagOperateBegin, TagOperateEnd:
		dt := readI64(body)
		d.refTime += dt
		item.NsTime = d.refTime
		item.OpType = body[8]
		n += fixed
	case TagFrameMark:
		dt := readI64(body)
		d.refTime += dt
		item.NsTime = d.refTime
		n += fixed
	case TagKeepAlive:
		n += fixed
	case TagValueDataUInt32, TagValueDataInt, TagValueDataFloat:
		item.Name = readU64(body)
		item.Value32 = readU32(body[8:])
		n += fixed
	case TagValueDataFloat4:
		item.Name = readU64(body)
		for i := range item.Value4 {
			item.Value4[i] = float32frombits(readU32(body[8+i*4:]))
		}
		n += fixed
	case TagValueDataMat4:
		item.Name = readU64(body)
		for i := range item.Value6 {
			item.Value6[i] = float32frombits(readU32(body[8+i*4:]))
		}
		n += fixed
	case TagValueDataBool:
		item.Name = readU64(body)
		item.ValueBool = body[8] != 0
		n += fixed
	case TagValueDataEnum:
		item.Name = readU64(body)
		item.ValueEnum = readU16(body[8:])
		n += fixed
	case TagStringData, TagValueName:
		item.Name = readU64(body)
		l := int(readU16(body[8:]))
		n += fixed
		if len(body) < fixed+l {
			return QueueItem{}, 0, fmt.Errorf("wire: short tail for %s: %w", tag, errs.ErrTransport)
		}
		item.Bytes = append([]byte(nil), body[fixed:fixed+l]...)
		n += l
	}

	return item, n, nil
}

func appendU16(dst []byte, v uint16) []byte { return wireEndian.AppendUint16(dst, v) }
func appendU32(dst []byte, v uint32) []byte { return wireEndian.AppendUint32(dst, v) }
func appendU64(dst []byte, v uint64) []byte { return wireEndian.AppendUint64(dst, v) }

func appendI64(dst []byte, v int64) []byte {
	return appendU64(dst, uint64(v))
}

func readU16(b []byte) uint16 { return wireEndian.Uint16(b) }
func readU32(b []byte) uint32 { return wireEndian.Uint32(b) }
func readU64(b []byte) uint64 { return wireEndian.Uint64(b) }
func readI64(b []byte) int64  { return int64(readU64(b)) }
