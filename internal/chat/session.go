package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
	"github.com/rs/zerolog"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultTypingExpiry   = 3 * time.Second
	DefaultTypingIdle     = 1 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultHistoryLimit   = 100
	DefaultAppProtocol    = "databutton.app"
)

var (
	ErrEmptyMessage   = errors.New("chat: message is empty")
	ErrSendInProgress = errors.New("chat: a message is already being sent")
	ErrNotConnected   = errors.New("chat: not connected")
	ErrSessionClosed  = errors.New("chat: session disconnected")
)

// API is the REST side of the backend.
type API interface {
	ChatMessages(ctx context.Context, limit, offset int) (ChatMessagesResponse, error)
	OnlineUsers(ctx context.Context) ([]OnlineUser, error)
	SendChatMessage(ctx context.Context, content string) (ChatMessage, error)
}

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient user-facing notification. Key is the translation
// key, Text the default wording.
type Notice struct {
	Level NoticeLevel
	Key   string
	Text  string
	Err   error
}

// Snapshot is a copy of the session state at one point in time.
type Snapshot struct {
	State       ConnState
	Messages    []ChatMessage
	Total       int
	OnlineUsers []OnlineUser
	Typing      []string
}

// Hooks are invoked outside the session lock. Any of them may be nil.
type Hooks struct {
	OnChange  func(Snapshot)
	OnMessage func(ChatMessage)
	OnNotice  func(Notice)
}

type options struct {
	userID           string
	url              string
	appProtocol      string
	headerCredential bool
	reconnectDelay   time.Duration
	typingExpiry     time.Duration
	typingIdle       time.Duration
	pingInterval     time.Duration
	logger           zerolog.Logger
	hooks            Hooks
}

type Option func(*options)

// WithUserID sets the current user; typing signals from it are ignored.
func WithUserID(id string) Option { return func(o *options) { o.userID = id } }

// WithURL sets the chat websocket endpoint.
func WithURL(url string) Option { return func(o *options) { o.url = url } }

// WithAppProtocol sets the application subprotocol; empty omits it.
func WithAppProtocol(p string) Option { return func(o *options) { o.appProtocol = p } }

// WithHeaderCredential sends the bearer token as an Authorization header on
// the handshake instead of inside a subprotocol.
func WithHeaderCredential(on bool) Option { return func(o *options) { o.headerCredential = on } }

func WithReconnectDelay(d time.Duration) Option { return func(o *options) { o.reconnectDelay = d } }

func WithTypingExpiry(d time.Duration) Option { return func(o *options) { o.typingExpiry = d } }

func WithTypingIdle(d time.Duration) Option { return func(o *options) { o.typingIdle = d } }

// WithPingInterval sets the keepalive period; zero disables pings.
func WithPingInterval(d time.Duration) Option { return func(o *options) { o.pingInterval = d } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = l } }

func WithHooks(h Hooks) Option { return func(o *options) { o.hooks = h } }

// Session keeps a live view of the chat room for the current user: message
// history, presence and typing indicators, over one auto-reconnecting socket.
type Session struct {
	api    API
	dialer Dialer
	tokens auth.TokenSource
	opts   options
	log    zerolog.Logger

	mu           sync.RWMutex
	state        ConnState
	messages     []ChatMessage
	total        int
	online       []OnlineUser
	sock         *socket
	sockGen      uint64
	epoch        uint64
	stopped      bool
	reconnect    *time.Timer
	reconnectGen uint64
	sending      bool

	typing   *TypingTracker
	notifier *typingNotifier
}

func NewSession(api API, dialer Dialer, tokens auth.TokenSource, opts ...Option) *Session {
	o := options{
		appProtocol:    DefaultAppProtocol,
		reconnectDelay: DefaultReconnectDelay,
		typingExpiry:   DefaultTypingExpiry,
		typingIdle:     DefaultTypingIdle,
		pingInterval:   DefaultPingInterval,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		api:      api,
		dialer:   dialer,
		tokens:   tokens,
		opts:     o,
		messages: []ChatMessage{},
		online:   []OnlineUser{},
		log: o.logger.With().
			Str("component", "chat").
			Str("session", uuid.NewString()[:8]).
			Logger(),
	}
	s.typing = NewTypingTracker(o.typingExpiry, s.emitChange)
	s.notifier = newTypingNotifier(o.typingIdle, s.sendFrame)
	return s
}

// Start runs the mount sequence: history, presence, then the socket.
// Load failures are reported through notices and do not stop the connect.
func (s *Session) Start(ctx context.Context) error {
	var errs []error
	if err := s.LoadHistory(ctx, DefaultHistoryLimit, 0); err != nil {
		errs = append(errs, err)
	}
	if err := s.LoadOnlineUsers(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Connect(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadHistory replaces the message list with one page from the backend.
// On failure prior state is kept and an error notice is emitted.
func (s *Session) LoadHistory(ctx context.Context, limit, offset int) error {
	epoch := s.currentEpoch()
	resp, err := s.api.ChatMessages(ctx, limit, offset)
	if err != nil {
		s.log.Error().Err(err).Int("limit", limit).Int("offset", offset).Msg("load history")
		s.notice(NoticeError, "chat.notice.history_failed", "Failed to load chat history", err)
		return err
	}

	msgs := make([]ChatMessage, len(resp.Messages))
	copy(msgs, resp.Messages)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.messages = msgs
	s.total = resp.Total
	s.mu.Unlock()

	s.log.Debug().Int("count", len(msgs)).Int("total", resp.Total).Msg("history loaded")
	s.emitChange()
	return nil
}

// LoadOnlineUsers replaces the presence list from the backend.
func (s *Session) LoadOnlineUsers(ctx context.Context) error {
	epoch := s.currentEpoch()
	users, err := s.api.OnlineUsers(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("load online users")
		s.notice(NoticeError, "chat.notice.users_failed", "Failed to load online users", err)
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.online = copyUsers(users)
	s.mu.Unlock()

	s.emitChange()
	return nil
}

// Connect opens the socket. It is a no-op while connecting or connected.
// A failed attempt schedules another one after the reconnect delay.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	s.stopped = false
	s.cancelReconnectLocked()
	s.state = Connecting
	epoch := s.epoch
	s.mu.Unlock()
	s.emitChange()

	conn, err := s.dial(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("url", s.opts.url).Msg("connect failed")
		s.mu.Lock()
		current := s.epoch == epoch
		if current {
			s.state = Disconnected
			s.scheduleReconnectLocked()
		}
		s.mu.Unlock()
		if current {
			s.notice(NoticeError, "chat.notice.connect_failed", "Failed to connect to chat", err)
			s.emitChange()
		}
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}
	sock := newSocket(conn)
	s.sockGen++
	gen := s.sockGen
	s.sock = sock
	s.state = Connected
	s.mu.Unlock()

	ping, _ := json.Marshal(Frame{Type: FramePing})
	go sock.writePump(s.opts.pingInterval, ping)
	go sock.readPump(s.handleFrame, func(err error) { s.socketClosed(gen, err) })

	s.log.Info().Str("url", s.opts.url).Msg("connected")
	s.notice(NoticeSuccess, "chat.notice.connected", "Connected to chat", nil)
	s.emitChange()
	return nil
}

func (s *Session) dial(ctx context.Context) (ConnLike, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: bearer token: %w", err)
	}

	var protocols []string
	if s.opts.appProtocol != "" {
		protocols = append(protocols, s.opts.appProtocol)
	}
	header := http.Header{}
	if s.opts.headerCredential {
		header.Set("Authorization", "Bearer "+token)
	} else {
		protocols = append(protocols, auth.SubprotocolPrefix+token)
	}
	return s.dialer.Dial(ctx, s.opts.url, protocols, header)
}

// socketClosed handles the end of a socket's read pump. Closes of a socket
// that is no longer current are ignored.
func (s *Session) socketClosed(gen uint64, err error) {
	s.mu.Lock()
	if s.sock == nil || gen != s.sockGen {
		s.mu.Unlock()
		return
	}
	sock := s.sock
	s.sock = nil
	s.state = Disconnected
	stopped := s.stopped
	if !stopped {
		s.scheduleReconnectLocked()
	}
	s.mu.Unlock()

	sock.close()
	s.notifier.reset()
	s.log.Info().Err(err).Int("code", closeCode(err)).Msg("socket closed")
	if !stopped {
		s.notice(NoticeError, "chat.notice.disconnected", "Disconnected from chat", nil)
	}
	s.emitChange()
}

func (s *Session) scheduleReconnectLocked() {
	if s.reconnect != nil {
		return
	}
	s.reconnectGen++
	g := s.reconnectGen
	s.reconnect = time.AfterFunc(s.opts.reconnectDelay, func() { s.reconnectNow(g) })
	s.log.Debug().Dur("delay", s.opts.reconnectDelay).Msg("reconnect scheduled")
}

func (s *Session) cancelReconnectLocked() {
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	s.reconnectGen++
}

func (s *Session) reconnectNow(g uint64) {
	s.mu.Lock()
	if g != s.reconnectGen || s.stopped {
		s.mu.Unlock()
		return
	}
	s.reconnect = nil
	s.mu.Unlock()

	s.log.Info().Msg("reconnecting")
	_ = s.Connect(context.Background())
}

func (s *Session) handleFrame(data []byte) {
	ev, err := ParseEvent(data)
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping frame")
		return
	}
	s.HandleEvent(ev)
}

// HandleEvent applies one server event to the session state.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Type {
	case EventNewMessage:
		if ev.Message == nil {
			s.log.Debug().Msg("new_message without message")
			return
		}
		msg := *ev.Message
		s.mu.Lock()
		s.messages = append(s.messages, msg)
		s.mu.Unlock()
		s.emitChange()
		if s.opts.hooks.OnMessage != nil {
			s.opts.hooks.OnMessage(msg)
		}

	case EventOnlineUsers, EventUserJoined, EventUserLeft:
		users := copyUsers(ev.Presence())
		s.mu.Lock()
		s.online = users
		s.mu.Unlock()
		s.emitChange()

	case EventTyping:
		if ev.UserID == "" || ev.UserID == s.opts.userID {
			return
		}
		s.typing.Set(ev.UserID, ev.IsTyping)

	case EventPong:
		// liveness only

	default:
		s.log.Debug().Str("type", ev.Type).Msg("ignoring unknown event")
	}
}

// SendMessage posts trimmed text through the REST API. The message is not
// added locally; it arrives back as a new_message event.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrSendInProgress
	}
	s.sending = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if _, err := s.api.SendChatMessage(ctx, content); err != nil {
		s.log.Error().Err(err).Msg("send message")
		s.notice(NoticeError, "chat.notice.send_failed", "Failed to send message", err)
		return err
	}
	return nil
}

// NotifyTyping reports local typing activity. Only effective while connected.
func (s *Session) NotifyTyping(active bool) error {
	if s.State() != Connected {
		return ErrNotConnected
	}
	s.notifier.notify(active)
	return nil
}

func (s *Session) sendFrame(frameType string) bool {
	data, err := json.Marshal(Frame{Type: frameType})
	if err != nil {
		return false
	}
	s.mu.RLock()
	sock := s.sock
	s.mu.RUnlock()
	if sock == nil {
		return false
	}
	return sock.enqueue(data)
}

// Disconnect closes the socket, cancels every timer and stops reconnecting.
// REST results that arrive afterwards are discarded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.stopped = true
	s.epoch++
	s.cancelReconnectLocked()
	sock := s.sock
	s.sock = nil
	prev := s.state
	s.state = Disconnected
	s.mu.Unlock()

	s.notifier.reset()
	s.typing.Stop()
	if sock != nil {
		sock.close()
	}
	if prev != Disconnected {
		s.log.Info().Msg("disconnected")
		s.emitChange()
	}
}

func (s *Session) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) OnlineUsers() []OnlineUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUsers(s.online)
}

// IsTyping reports whether userID is currently shown as typing.
func (s *Session) IsTyping(userID string) bool {
	return s.typing.IsTyping(userID)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		State:       s.state,
		Messages:    make([]ChatMessage, len(s.messages)),
		Total:       s.total,
		OnlineUsers: copyUsers(s.online),
	}
	copy(snap.Messages, s.messages)
	s.mu.RUnlock()
	snap.Typing = s.typing.Active()
	return snap
}

func (s *Session) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Session) emitChange() {
	if s.opts.hooks.OnChange != nil {
		s.opts.hooks.OnChange(s.Snapshot())
	}
}

func (s *Session) notice(level NoticeLevel, key, text string, err error) {
	if s.opts.hooks.OnNotice != nil {
		s.opts.hooks.OnNotice(Notice{Level: level, Key: key, Text: text, Err: err})
	}
}

func copyUsers(users []OnlineUser) []OnlineUser {
	out := make([]OnlineUser, len(users))
	copy(out, users)
	return out
}
