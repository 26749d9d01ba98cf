package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
)

type fakeAPI struct {
	mu          sync.Mutex
	history     ChatMessagesResponse
	historyErr  error
	historyGate chan struct{}
	users       []OnlineUser
	usersErr    error
	sendErr     error
	sent        []string
	historyReq  [][2]int
}

func (f *fakeAPI) ChatMessages(ctx context.Context, limit, offset int) (ChatMessagesResponse, error) {
	f.mu.Lock()
	f.historyReq = append(f.historyReq, [2]int{limit, offset})
	gate := f.historyGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, f.historyErr
}

func (f *fakeAPI) OnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, f.usersErr
}

func (f *fakeAPI) SendChatMessage(ctx context.Context, content string) (ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	if f.sendErr != nil {
		return ChatMessage{}, f.sendErr
	}
	return ChatMessage{ID: "srv-1", Content: content}, nil
}

func (f *fakeAPI) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// fakeConn is a scripted socket: frames pushed with deliver are read in
// order, fail ends the read pump with the given error.
type fakeConn struct {
	frames chan []byte
	fails  chan error
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		fails:  make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	case err := <-c.fails:
		return 0, nil, err
	case <-c.done:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, f.Type)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) deliver(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	c.frames <- data
}

func (c *fakeConn) fail(err error) { c.fails <- err }

func (c *fakeConn) writtenTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func (c *fakeConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

type dialCall struct {
	url       string
	protocols []string
	header    http.Header
}

type fakeDialer struct {
	mu    sync.Mutex
	calls []dialCall
	conns []*fakeConn
	errs  []error // consumed one per dial before succeeding
}

func (d *fakeDialer) Dial(_ context.Context, url string, protocols []string, header http.Header) (ConnLike, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dialCall{url: url, protocols: protocols, header: header})
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// recorder collects hook invocations.
type recorder struct {
	mu       sync.Mutex
	notices  []Notice
	messages []ChatMessage
	states   []ConnState
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnChange: func(s Snapshot) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if n := len(r.states); n == 0 || r.states[n-1] != s.State {
				r.states = append(r.states, s.State)
			}
		},
		OnMessage: func(m ChatMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, m)
		},
		OnNotice: func(n Notice) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notices = append(r.notices, n)
		},
	}
}

func (r *recorder) noticeKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		keys = append(keys, n.Key)
	}
	return keys
}

func (r *recorder) stateHistory() []ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnState(nil), r.states...)
}

func newTestSession(t *testing.T, api *fakeAPI, dialer *fakeDialer, rec *recorder, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithUserID("me"),
		WithURL("ws://backend.test/routes/chat/ws"),
		WithReconnectDelay(50 * time.Millisecond),
		WithTypingExpiry(50 * time.Millisecond),
		WithTypingIdle(40 * time.Millisecond),
		WithPingInterval(0),
		WithHooks(rec.hooks()),
	}
	s := NewSession(api, dialer, auth.StaticToken("tok"), append(base, opts...)...)
	t.Cleanup(s.Disconnect)
	return s
}

var errBoom = errors.New("boom")
