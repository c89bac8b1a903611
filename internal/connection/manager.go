// Package connection manages the push channel to the event source: a
// WebSocket session with handshake, topic subscription, heartbeat, fixed-delay
// reconnect, and snapshot/replay requests.
package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/protocol"
)

// Status is the session state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// ErrNotConnected is returned by Send while no session is established.
var ErrNotConnected = errors.New("not connected")

// Defaults for Options.
const (
	DefaultHeartbeatInterval    = 25 * time.Second
	DefaultReconnectDelay       = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDialTimeout          = 10 * time.Second
	DefaultReadLimit            = 16 << 20
)

// Handler receives what the server pushes. Calls arrive on the read-loop
// goroutine, one at a time.
type Handler interface {
	HandleEvent(env events.Envelope)
	HandleSnapshot(snap events.Snapshot)
	HandleReplay(envs []events.Envelope, currentSeq int64)
}

// Options configures a Manager.
type Options struct {
	URL        string
	ClientName string
	Topics     []string
	Header     http.Header

	HeartbeatInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	DialTimeout          time.Duration
	ReadLimit            int64

	// Logger defaults to discarding. Activity receives transport errors
	// and connection notices.
	Logger   *slog.Logger
	Activity *activity.Log
}

func (o *Options) setDefaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	switch {
	case o.MaxReconnectAttempts == 0:
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	case o.MaxReconnectAttempts < 0:
		o.MaxReconnectAttempts = 0 // never reconnect
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Activity == nil {
		o.Activity = activity.NewLog(0, 0)
	}
}

// Info is a point-in-time view of the session.
type Info struct {
	Status            Status
	ClientID          string
	ReconnectAttempts int
	LastConnected     time.Time
	LastError         error
}

// Manager owns one logical session and its reconnects. It also tracks the
// stream's sequence watermark.
type Manager struct {
	opts    Options
	handler Handler
	logger  *slog.Logger
	log     *activity.Log
	seq     atomic.Int64

	mu            sync.Mutex
	status        Status
	conn          *websocket.Conn
	cancel        context.CancelFunc
	timer         *time.Timer
	stopped       bool
	attempts      int
	clientID      string
	beating       *websocket.Conn // connection whose heartbeat loop is running
	lastConnected time.Time
	lastError     error
	listeners     []func(Status)
	giveUp        []func(attempts int)
}

// NewManager creates a disconnected manager delivering to h.
func NewManager(opts Options, h Handler) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:    opts,
		handler: h,
		logger:  opts.Logger.With("component", "connection"),
		log:     opts.Activity,
		status:  StatusDisconnected,
	}
}

// OnStatusChange registers a listener for status transitions.
func (m *Manager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// OnGiveUp registers a callback run once reconnect attempts are exhausted.
func (m *Manager) OnGiveUp(fn func(attempts int)) {
	m.mu.Lock()
	m.giveUp = append(m.giveUp, fn)
	m.mu.Unlock()
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Info returns the session details.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{
		Status:            m.status,
		ClientID:          m.clientID,
		ReconnectAttempts: m.attempts,
		LastConnected:     m.lastConnected,
		LastError:         m.lastError,
	}
}

// CurrentSeq returns the highest sequence number seen.
func (m *Manager) CurrentSeq() int64 {
	return m.seq.Load()
}

// AdvanceSeq raises the watermark to seq. It never lowers it.
func (m *Manager) AdvanceSeq(seq int64) {
	for {
		cur := m.seq.Load()
		if seq <= cur || m.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// setStatusLocked must be called with m.mu held. The returned func notifies
// listeners and must be called after unlocking.
func (m *Manager) setStatusLocked(s Status) func() {
	if m.status == s {
		return func() {}
	}
	m.status = s
	listeners := slices.Clone(m.listeners)
	return func() {
		for _, fn := range listeners {
			fn(s)
		}
	}
}

// Connect opens the session. It is a no-op while connecting or connected.
// A failed dial is returned, and a reconnect is scheduled as for any other
// abnormal loss. Calling Connect after reconnects were exhausted starts over.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = false
	if m.status == StatusDisconnected {
		m.attempts = 0
	}
	m.mu.Unlock()
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped || m.status == StatusConnecting || m.status == StatusConnected {
		m.mu.Unlock()
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	sessCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	notify := m.setStatusLocked(StatusConnecting)
	m.mu.Unlock()
	notify()

	m.logger.Info("connecting", "url", m.opts.URL)
	dialCtx, dialCancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, m.opts.URL, &websocket.DialOptions{HTTPHeader: m.opts.Header})
	if err != nil {
		cancel()
		err = fmt.Errorf("dialing %s: %w", m.opts.URL, err)
		m.lost(err)
		return err
	}
	conn.SetReadLimit(m.opts.ReadLimit)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		return nil
	}
	m.conn = conn
	m.mu.Unlock()

	if err := wsjson.Write(sessCtx, conn, protocol.NewHandshake(m.opts.ClientName)); err != nil {
		cancel()
		_ = conn.CloseNow()
		err = fmt.Errorf("sending handshake: %w", err)
		m.lost(err)
		return err
	}

	go m.readLoop(sessCtx, conn)
	return nil
}

// Disconnect closes the session normally and cancels any pending reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn, cancel := m.conn, m.cancel
	m.conn, m.cancel = nil, nil
	notify := m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	if cancel != nil {
		cancel()
	}
	notify()
	m.logger.Info("disconnected")
}

// Send writes a control message on the live session.
func (m *Manager) Send(ctx context.Context, msg protocol.Message) error {
	m.mu.Lock()
	conn, status := m.conn, m.status
	m.mu.Unlock()
	if conn == nil || status != StatusConnected {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		m.log.Addf(activity.KindError, "Failed to send %s: %v", msg.Type, err)
		m.logger.Warn("send failed", "type", msg.Type, "err", err)
		return fmt.Errorf("sending %s: %w", msg.Type, err)
	}
	return nil
}

// RequestSnapshot asks the server for a full snapshot.
func (m *Manager) RequestSnapshot(ctx context.Context) error {
	return m.Send(ctx, protocol.NewGetSnapshot())
}

// RequestReplay asks the server for every event after sinceSeq.
func (m *Manager) RequestReplay(ctx context.Context, sinceSeq int64) error {
	m.logger.Info("requesting replay", "since_seq", sinceSeq)
	return m.Send(ctx, protocol.NewReplayEvents(sinceSeq))
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	connCtx, stop := context.WithCancel(ctx)
	defer stop()

	for {
		_, data, err := conn.Read(connCtx)
		if err != nil {
			m.closed(conn, err)
			return
		}
		m.route(connCtx, conn, data)
	}
}

func (m *Manager) route(ctx context.Context, conn *websocket.Conn, data []byte) {
	f, err := protocol.Parse(data)
	if err != nil {
		m.log.Addf(activity.KindError, "Failed to parse message: %v", err)
		m.logger.Warn("unparseable frame", "err", err)
		return
	}

	switch f := f.(type) {
	case protocol.HandshakeAck:
		m.established(ctx, conn, f.ClientID)
	case protocol.SubscribeAck:
		m.logger.Info("subscribed", "topics", f.Subscribed)
	case protocol.Pong:
		m.logger.Debug("pong")
	case protocol.Error:
		m.log.Addf(activity.KindError, "Server error: %v", f)
		m.logger.Error("server error", "code", f.Code, "error", f.Message)
	case protocol.Snapshot:
		m.handler.HandleSnapshot(f.Data)
	case protocol.Replay:
		m.logger.Info("replay received", "events", len(f.Events), "current_seq", f.CurrentSeq)
		m.handler.HandleReplay(f.Events, f.CurrentSeq)
	case protocol.Event:
		m.handler.HandleEvent(f.Envelope)
	}
}

// established runs on handshake_ack: the session is usable from here on.
func (m *Manager) established(ctx context.Context, conn *websocket.Conn, clientID string) {
	m.mu.Lock()
	m.attempts = 0
	m.clientID = clientID
	m.lastConnected = time.Now()
	m.lastError = nil
	startBeat := m.beating != conn
	m.beating = conn
	notify := m.setStatusLocked(StatusConnected)
	m.mu.Unlock()
	notify()

	m.log.Addf(activity.KindSuccess, "Connected to event stream")
	m.logger.Info("connected", "client_id", clientID)

	for _, msg := range []protocol.Message{
		protocol.NewSubscribe(m.opts.Topics),
		protocol.NewGetSnapshot(),
	} {
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			m.logger.Warn("post-handshake send failed", "type", msg.Type, "err", err)
			return
		}
	}
	if startBeat {
		go m.heartbeat(ctx, conn)
	}
}

func (m *Manager) heartbeat(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(m.opts.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := wsjson.Write(ctx, conn, protocol.NewPing()); err != nil {
				m.logger.Debug("heartbeat stopped", "err", err)
				return
			}
		}
	}
}

// closed handles the end of a read loop.
func (m *Manager) closed(conn *websocket.Conn, err error) {
	m.mu.Lock()
	current := m.conn == conn
	if current {
		m.conn = nil
	}
	stopped := m.stopped
	m.mu.Unlock()

	if stopped || !current {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		m.mu.Lock()
		notify := m.setStatusLocked(StatusDisconnected)
		m.mu.Unlock()
		notify()
		m.log.Addf(activity.KindInfo, "Connection closed by server")
		m.logger.Info("closed by server")
		return
	}
	m.lost(fmt.Errorf("connection lost: %w", err))
}

// lost records an abnormal loss and schedules a reconnect if attempts remain.
func (m *Manager) lost(err error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.lastError = err
	notify := m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()
	notify()

	m.log.Addf(activity.KindError, "Connection error: %v", err)
	m.logger.Warn("connection lost", "err", err)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.opts.MaxReconnectAttempts {
		attempts := m.attempts
		giveUp := slices.Clone(m.giveUp)
		m.mu.Unlock()
		m.log.Addf(activity.KindError, "Connection lost after %d attempts. Refresh to reconnect.", attempts)
		m.logger.Error("giving up", "attempts", attempts)
		for _, fn := range giveUp {
			fn(attempts)
		}
		return
	}
	m.attempts++
	attempt := m.attempts
	notify = m.setStatusLocked(StatusReconnecting)
	m.timer = time.AfterFunc(m.opts.ReconnectDelay, m.reconnect)
	m.mu.Unlock()
	notify()

	m.logger.Info("reconnect scheduled", "attempt", attempt, "delay", m.opts.ReconnectDelay)
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.stopped || m.status != StatusReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()
	_ = m.connect(context.Background())
}
