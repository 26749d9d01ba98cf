package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

// ConnLike is the part of a websocket connection the session needs.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Dialer opens the chat socket.
type Dialer interface {
	Dial(ctx context.Context, url string, subprotocols []string, header http.Header) (ConnLike, error)
}

// WebsocketDialer dials with fasthttp/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, url string, subprotocols []string, header http.Header) (ConnLike, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     subprotocols,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 16
)

// socket is one live connection plus its pumps.
type socket struct {
	conn ConnLike
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newSocket(conn ConnLike) *socket {
	if c, ok := conn.(*websocket.Conn); ok {
		c.SetReadLimit(maxMessageSize)
	}
	return &socket{
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking the caller.
func (s *socket) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// readPump delivers frames to onFrame until the connection fails, then
// reports the error exactly once.
func (s *socket) readPump(onFrame func([]byte), onClose func(error)) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			onClose(err)
			return
		}
		onFrame(data)
	}
}

// writePump serialises all writes. A zero pingEvery disables keepalives.
func (s *socket) writePump(pingEvery time.Duration, pingFrame []byte) {
	var ping <-chan time.Time
	if pingEvery > 0 {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case data := <-s.send:
			if err := s.write(data); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-ping:
			if err := s.write(pingFrame); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *socket) write(data []byte) error {
	if c, ok := s.conn.(*websocket.Conn); ok {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// close stops the write pump and closes the connection; safe to call twice.
func (s *socket) close() {
	s.once.Do(s.shutdown)
}

func (s *socket) shutdown() {
	close(s.done)
	if c, ok := s.conn.(*websocket.Conn); ok {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	_ = s.conn.Close()
}

// closeCode extracts the websocket close code, or CloseAbnormalClosure.
func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
