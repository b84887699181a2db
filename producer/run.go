package producer

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/compress"
	"github.com/tgfxgo/inspector/metrics"
	"github.com/tgfxgo/inspector/wire"
)

// handshakeTimeout bounds how long the worker waits for a connecting
// viewer to present its shibboleth and version (§4.2).
const handshakeTimeout = 2 * time.Second

// acceptPollInterval bounds each Accept() attempt while advertising, so the
// loop can also re-broadcast and observe Shutdown() without a second
// goroutine.
const acceptPollInterval = 200 * time.Millisecond

// Run drives the worker's state machine until Shutdown is called or an
// unrecoverable transport error occurs. It must run on its own goroutine.
func (w *Worker) Run() error {
	defer close(w.done)

	for {
		if w.shutdown.Load() && w.State() != StateShutdown {
			w.state.Store(int32(StateShutdown))
		}

		switch w.State() {
		case StateInit:
			if err := w.runInit(); err != nil {
				w.cfg.Logger.Error("init failed", zap.Error(err))
				w.state.Store(int32(StateShutdown))
				continue
			}
			w.state.Store(int32(StateAdvertising))

		case StateAdvertising:
			conn, err := w.runAdvertising()
			if err != nil {
				if w.shutdown.Load() {
					w.state.Store(int32(StateShutdown))
					continue
				}
				w.cfg.Logger.Warn("advertising error", zap.Error(err))
				continue
			}
			if conn == nil {
				continue // no connection yet, keep advertising
			}
			w.conn = conn
			w.state.Store(int32(StateHandshaking))

		case StateHandshaking:
			peer := serverQueryAddrPort(w.conn)
			if err := w.runHandshake(); err != nil {
				w.cfg.Logger.Info("handshake rejected", zap.String("peer", peer), zap.Error(err))
				_ = w.conn.Close()
				w.conn = nil
				w.state.Store(int32(StateAdvertising))
				continue
			}
			w.cfg.Logger.Info("session established", zap.String("peer", peer))
			metrics.SessionsTotal.Inc()
			w.state.Store(int32(StateStreaming))

		case StateStreaming:
			if err := w.runStreaming(); err != nil {
				w.cfg.Logger.Info("session ended", zap.Error(err))
			}
			if w.conn != nil {
				_ = w.conn.Close()
				w.conn = nil
			}
			if w.shutdown.Load() {
				w.state.Store(int32(StateShutdown))
			} else {
				w.state.Store(int32(StateAdvertising))
			}

		case StateShutdown:
			w.runShutdown()
			return nil
		}
	}
}

// runInit searches [BasePort, BasePort+ListenPortSearchRange) for a free TCP
// port to listen on and opens the UDP socket used for beacon broadcasts
// (§4.2, §4.8).
func (w *Worker) runInit() error {
	var lastErr error
	for port := w.cfg.BasePort; port < w.cfg.BasePort+wire.ListenPortSearchRange; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			continue
		}
		w.listener = ln
		break
	}
	if w.listener == nil {
		return lastErr
	}

	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return err
	}
	w.udpConn = udpConn

	w.initEnd = monotonicNow()
	return nil
}

// runAdvertising broadcasts a beacon on every port in
// [BasePort, BasePort+BroadcastNum) roughly every AdvertiseInterval seconds,
// while polling Accept() on the listen socket for an incoming viewer (§4.8).
// It returns a non-nil conn once a viewer connects, or (nil, nil) to let the
// caller re-enter this state and keep advertising.
func (w *Worker) runAdvertising() (net.Conn, error) {
	ln, ok := w.listener.(*net.TCPListener)
	if !ok {
		return nil, io.ErrClosedPipe
	}

	w.broadcastBeacon(int32(w.cfg.AdvertiseInterval))

	next := time.Now().Add(time.Duration(w.cfg.AdvertiseInterval) * time.Second)
	for {
		if err := ln.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			return nil, err
		}
		conn, err := ln.Accept()
		if err == nil {
			return conn, nil
		}
		if ne, isNetErr := err.(net.Error); !isNetErr || !ne.Timeout() {
			return nil, err
		}
		if w.shutdown.Load() || !time.Now().Before(next) {
			return nil, nil
		}
	}
}

// broadcastBeacon sends one BroadcastMessage to every port the producer
// advertises on. Failures are logged, not fatal: a viewer on another subnet
// or a firewalled port simply won't see this beacon (§4.8 best-effort
// semantics).
func (w *Worker) broadcastBeacon(activeTimeS int32) {
	tcpAddr, ok := w.listener.Addr().(*net.TCPAddr)
	if !ok {
		return
	}

	msg := wire.BroadcastMessage{
		BroadcastVersion: 1,
		ListenPort:       uint16(tcpAddr.Port),
		ActiveTimeS:      activeTimeS,
		Pid:              uint32(os.Getpid()),
		ProtocolVersion:  wire.ProtocolVersion,
	}
	copy(msg.ProgramName[:], w.cfg.ProgramName)
	payload := msg.MarshalBinary()

	for i := 0; i < w.cfg.BroadcastNum; i++ {
		dst := &net.UDPAddr{IP: net.IPv4bcast, Port: w.cfg.BasePort + i}
		if _, err := w.udpConn.WriteToUDP(payload, dst); err != nil {
			w.cfg.Logger.Debug("beacon send failed", zap.Int("port", dst.Port), zap.Error(err))
		}
	}
}

// runHandshake reads the shibboleth+version preamble, replies with a
// HandshakeStatus, and on success sends the WelcomeMessage (§4.2).
func (w *Worker) runHandshake() error {
	_ = w.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = w.conn.SetDeadline(time.Time{}) }()

	preamble := make([]byte, 8+4)
	if _, err := io.ReadFull(w.conn, preamble); err != nil {
		return err
	}

	var shib [8]byte
	copy(shib[:], preamble[:8])
	version := binary.LittleEndian.Uint32(preamble[8:])

	status := wire.HandshakeWelcome
	switch {
	case shib != wire.Shibboleth:
		status = wire.HandshakeDropped
	case version != wire.ProtocolVersion:
		status = wire.HandshakeProtocolMismatch
	}

	if _, err := w.conn.Write([]byte{byte(status)}); err != nil {
		return err
	}
	if status != wire.HandshakeWelcome {
		return errProtocolHandshake(status)
	}

	welcome := wire.WelcomeMessage{
		InitBeginNs: w.initBegin,
		InitEndNs:   w.initEnd,
		RefTimeNs:   w.refTime.Load(),
	}
	copy(welcome.ProgramName[:], w.cfg.ProgramName)
	_, err := w.conn.Write(welcome.MarshalBinary())
	return err
}

// runStreaming drains the event queue into the staging buffer, committing a
// compressed frame once TargetFrameSize is reached or the queue has sat idle
// for idleIterationsBeforeKeepAlive iterations (§4.2, §4.4). It also drains
// inbound server queries, servicing the priority queue ahead of the regular
// one (§4.2, §6).
func (w *Worker) runStreaming() error {
	w.enc = wire.NewEncoder(w.refTime.Load())
	w.stage.Reset()
	w.fw = compress.NewFrameWriter(w.conn)
	defer func() { _ = w.fw.Close() }()

	queries := make(chan wire.ServerQueryPacket, 64)
	readErrs := make(chan error, 1)
	go w.readServerQueries(queries, readErrs)

	idle := 0
	for {
		if w.shutdown.Load() {
			return w.commitStage()
		}

		select {
		case err := <-readErrs:
			_ = w.commitStage()
			return err
		case q := <-queries:
			w.enqueueQuery(q)
		default:
		}

		w.drainQueries()

		item, ok := w.q.TryPop()
		if !ok {
			idle++
			if idle >= idleIterationsBeforeKeepAlive {
				idle = 0
				w.stage.B = w.enc.Encode(w.stage.B, wire.NewKeepAlive())
				metrics.KeepAliveTotal.Inc()
				if err := w.commitStage(); err != nil {
					return err
				}
			}
			time.Sleep(idlePollInterval)
			continue
		}
		idle = 0

		w.stage.B = w.enc.Encode(w.stage.B, item)
		if w.stage.Len() >= w.cfg.TargetFrameSize {
			if err := w.commitStage(); err != nil {
				return err
			}
		}
	}
}

// commitStage flushes the staging buffer through the frame compressor and
// resets it, a no-op when the buffer is empty.
func (w *Worker) commitStage() error {
	if w.stage.Len() == 0 {
		return nil
	}
	n, err := w.fw.WriteFrame(w.stage.Bytes())
	metrics.BytesSentTotal.Add(float64(n))
	w.stage.Reset()
	return err
}

// readServerQueries reads fixed-size ServerQueryPacket records off the
// session connection on a dedicated goroutine, handing each to the main
// streaming loop over a channel so the connection's read deadline never
// blocks the commit/keep-alive cadence.
func (w *Worker) readServerQueries(out chan<- wire.ServerQueryPacket, errc chan<- error) {
	buf := make([]byte, wire.ServerQueryPacketSize)
	for {
		if _, err := io.ReadFull(w.conn, buf); err != nil {
			errc <- err
			return
		}
		pkt, ok := wire.UnmarshalServerQueryPacket(buf)
		if !ok {
			errc <- io.ErrUnexpectedEOF
			return
		}
		out <- pkt
	}
}

// enqueueQuery files an inbound query into the priority or regular queue
// per its type (§6 priority-then-regular drain order).
func (w *Worker) enqueueQuery(q wire.ServerQueryPacket) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if q.Type.Prioritized() {
		w.queryPriority = append(w.queryPriority, q)
	} else {
		w.queryRegular = append(w.queryRegular, q)
	}
	metrics.ServerQuerySpaceLeft.Set(float64(w.querySpace))
}

// drainQueries services queued server queries up to the available query
// space credit, priority queue first (§4.2, §6 serverQuerySpaceLeft). Each
// serviced query that resolves to a known name is answered in place with a
// ValueName/StringData reply item appended to the staging buffer; queries
// for an unregistered handle are simply consumed, since the viewer has
// nothing to gain from an empty reply.
func (w *Worker) drainQueries() {
	var toAnswer []wire.ServerQueryPacket

	w.mu.Lock()
	now := time.Now()
	if w.querySpace < maxQuerySpace && now.Sub(w.lastQueryFill) >= queryFillInterval {
		w.querySpace++
		w.lastQueryFill = now
	}

	for w.querySpace > 0 && len(w.queryPriority) > 0 {
		toAnswer = append(toAnswer, w.queryPriority[0])
		w.queryPriority = w.queryPriority[1:]
		w.querySpace--
	}
	for w.querySpace > 0 && len(w.queryRegular) > 0 {
		toAnswer = append(toAnswer, w.queryRegular[0])
		w.queryRegular = w.queryRegular[1:]
		w.querySpace--
	}
	metrics.ServerQuerySpaceLeft.Set(float64(w.querySpace))
	w.mu.Unlock()

	for _, q := range toAnswer {
		w.respondToQuery(q)
	}
}

// respondToQuery answers a single serviced query by appending the resolved
// name as a reply item to the staging buffer, riding the same compressed
// stream as regular instrumentation events (§4.2, §4.6).
func (w *Worker) respondToQuery(q wire.ServerQueryPacket) {
	switch q.Type {
	case wire.ServerQueryValueName:
		if name, ok := w.lookupName(q.Ptr); ok {
			w.stage.B = w.enc.Encode(w.stage.B, wire.NewValueName(q.Ptr, []byte(name)))
		}
	case wire.ServerQueryString:
		if name, ok := w.lookupName(q.Ptr); ok {
			w.stage.B = w.enc.Encode(w.stage.B, wire.NewStringData(q.Ptr, []byte(name)))
		}
	}
}

// runShutdown broadcasts a final activeTime<0 beacon (§4.8) so discovery
// clients drop this producer promptly, then releases the listen/broadcast
// sockets.
func (w *Worker) runShutdown() {
	if w.listener != nil && w.udpConn != nil {
		w.broadcastBeacon(-1)
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
	if w.listener != nil {
		_ = w.listener.Close()
	}
	if w.udpConn != nil {
		_ = w.udpConn.Close()
	}
}

type handshakeError struct {
	status wire.HandshakeStatus
}

func errProtocolHandshake(status wire.HandshakeStatus) error {
	return &handshakeError{status: status}
}

func (e *handshakeError) Error() string {
	switch e.status {
	case wire.HandshakeProtocolMismatch:
		return "producer: protocol version mismatch"
	case wire.HandshakeDropped:
		return "producer: invalid shibboleth"
	default:
		return "producer: handshake rejected"
	}
}

