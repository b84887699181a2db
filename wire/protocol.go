package wire

import "encoding/binary"

// ProtocolVersion is the single monotonically increasing protocol version
// number (§1 Non-goals: no schema evolution beyond this).
const ProtocolVersion uint32 = 1

// Shibboleth is the fixed 8-byte identifier the client presents at
// handshake to prove it speaks the protocol.
var Shibboleth = [8]byte{'T', 'G', 'F', 'X', 'I', 'N', 'S', 'P'}

// HandshakeStatus is the single-byte reply to a handshake attempt.
type HandshakeStatus uint8

const (
	HandshakeWelcome HandshakeStatus = iota
	HandshakeProtocolMismatch
	HandshakeNotAvailable
	HandshakeDropped
)

// ProgramNameSize is the fixed width of the program-name field carried in
// WelcomeMessage and BroadcastMessage.
const ProgramNameSize = 64

// WelcomeMessage is sent by the producer immediately after a Welcome
// handshake status.
type WelcomeMessage struct {
	InitBeginNs int64
	InitEndNs   int64
	RefTimeNs   int64
	ProgramName [ProgramNameSize]byte
}

// MarshalBinary encodes the WelcomeMessage in wire order.
func (w *WelcomeMessage) MarshalBinary() []byte {
	b := make([]byte, 8+8+8+ProgramNameSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(w.InitBeginNs))
	binary.LittleEndian.PutUint64(b[8:16], uint64(w.InitEndNs))
	binary.LittleEndian.PutUint64(b[16:24], uint64(w.RefTimeNs))
	copy(b[24:], w.ProgramName[:])
	return b
}

// UnmarshalWelcomeMessage decodes a WelcomeMessage from b.
func UnmarshalWelcomeMessage(b []byte) (WelcomeMessage, bool) {
	if len(b) < 24+ProgramNameSize {
		return WelcomeMessage{}, false
	}
	var w WelcomeMessage
	w.InitBeginNs = int64(binary.LittleEndian.Uint64(b[0:8]))
	w.InitEndNs = int64(binary.LittleEndian.Uint64(b[8:16]))
	w.RefTimeNs = int64(binary.LittleEndian.Uint64(b[16:24]))
	copy(w.ProgramName[:], b[24:24+ProgramNameSize])
	return w, true
}

// ServerQueryType identifies the kind of back-channel query the viewer sends
// to the instrumented process. Values below ServerQueryDisconnect are
// prioritized (§4.2, §6).
type ServerQueryType uint8

const (
	ServerQueryString ServerQueryType = iota
	ServerQueryValueName
	ServerQueryDisconnect
	ServerQueryTerminate
)

// Prioritized reports whether this query type goes into the priority queue.
func (t ServerQueryType) Prioritized() bool {
	return t < ServerQueryDisconnect
}

// ServerQueryPacket is the back-channel request format, sent viewer -> producer.
type ServerQueryPacket struct {
	Type  ServerQueryType
	Ptr   uint64
	Extra uint32
}

// ServerQueryPacketSize is the packet's fixed wire size: type(1) + ptr(8) + extra(4).
const ServerQueryPacketSize = 1 + 8 + 4

// MarshalBinary encodes the packet in wire order.
func (p *ServerQueryPacket) MarshalBinary() []byte {
	b := make([]byte, ServerQueryPacketSize)
	b[0] = byte(p.Type)
	binary.LittleEndian.PutUint64(b[1:9], p.Ptr)
	binary.LittleEndian.PutUint32(b[9:13], p.Extra)
	return b
}

// UnmarshalServerQueryPacket decodes a ServerQueryPacket from b.
func UnmarshalServerQueryPacket(b []byte) (ServerQueryPacket, bool) {
	if len(b) < ServerQueryPacketSize {
		return ServerQueryPacket{}, false
	}
	return ServerQueryPacket{
		Type:  ServerQueryType(b[0]),
		Ptr:   binary.LittleEndian.Uint64(b[1:9]),
		Extra: binary.LittleEndian.Uint32(b[9:13]),
	}, true
}

// BroadcastMessage is the UDP beacon payload advertised by the producer
// (§4.8, §6). ActiveTimeS < 0 signals "process is shutting down".
type BroadcastMessage struct {
	BroadcastVersion uint32
	ListenPort       uint16
	ActiveTimeS      int32
	ProgramName      [ProgramNameSize]byte
	Pid              uint32
	ProtocolVersion  uint32
	Type             uint8
}

// BroadcastMessageSize is the packet's fixed wire size.
const BroadcastMessageSize = 4 + 2 + 4 + ProgramNameSize + 4 + 4 + 1

// MarshalBinary encodes the beacon in wire order.
func (m *BroadcastMessage) MarshalBinary() []byte {
	b := make([]byte, BroadcastMessageSize)
	off := 0
	binary.LittleEndian.PutUint32(b[off:], m.BroadcastVersion)
	off += 4
	binary.LittleEndian.PutUint16(b[off:], m.ListenPort)
	off += 2
	binary.LittleEndian.PutUint32(b[off:], uint32(m.ActiveTimeS))
	off += 4
	copy(b[off:], m.ProgramName[:])
	off += ProgramNameSize
	binary.LittleEndian.PutUint32(b[off:], m.Pid)
	off += 4
	binary.LittleEndian.PutUint32(b[off:], m.ProtocolVersion)
	off += 4
	b[off] = m.Type
	return b
}

// UnmarshalBroadcastMessage decodes a beacon from b.
func UnmarshalBroadcastMessage(b []byte) (BroadcastMessage, bool) {
	if len(b) < BroadcastMessageSize {
		return BroadcastMessage{}, false
	}
	var m BroadcastMessage
	off := 0
	m.BroadcastVersion = binary.LittleEndian.Uint32(b[off:])
	off += 4
	m.ListenPort = binary.LittleEndian.Uint16(b[off:])
	off += 2
	m.ActiveTimeS = int32(binary.LittleEndian.Uint32(b[off:]))
	off += 4
	copy(m.ProgramName[:], b[off:off+ProgramNameSize])
	off += ProgramNameSize
	m.Pid = binary.LittleEndian.Uint32(b[off:])
	off += 4
	m.ProtocolVersion = binary.LittleEndian.Uint32(b[off:])
	off += 4
	m.Type = b[off]
	return m, true
}

// BasePort is the lowest UDP broadcast/TCP listen port searched, per §4.2/§4.8.
const BasePort = 8086

// ListenPortSearchRange bounds the producer's TCP listen-port search,
// [BasePort, BasePort+ListenPortSearchRange).
const ListenPortSearchRange = 20
