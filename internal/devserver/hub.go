package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
	"github.com/rs/zerolog"
)

var ErrHubClosed = errors.New("devserver: hub closed")

type inbound struct {
	client *Client
	data   []byte
}

// Hub owns every chat socket. All membership changes and fan-out happen on
// the Run goroutine; the lock only guards reads from other goroutines.
type Hub struct {
	log zerolog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	inbound    chan inbound
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]*Client // socket id -> client
	sockets map[string]int     // user id -> open sockets
	order   []string           // online user ids, join order
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "hub").Logger(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		inbound:    make(chan inbound, 64),
		done:       make(chan struct{}),
		clients:    map[string]*Client{},
		sockets:    map[string]int{},
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case data := <-h.broadcast:
			h.fanOut(data)

		case in := <-h.inbound:
			h.handleFrame(in.client, in.data)
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() { <-h.done }

func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends v, JSON encoded, to every socket.
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case h.inbound <- inbound{client: c, data: data}:
	case <-h.done:
	}
}

// OnlineUsers lists connected user ids in the order they came online.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string{}, h.order...)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	if h.sockets[c.UserID] == 0 {
		h.order = append(h.order, c.UserID)
	}
	h.sockets[c.UserID]++
	online := append([]string{}, h.order...)
	h.mu.Unlock()

	h.log.Info().Str("user", c.UserID).Str("socket", c.ID).Msg("connected")
	h.push(c, fiber.Map{"type": chat.EventOnlineUsers, "users": online})
	h.fanOutJSON(fiber.Map{"type": chat.EventUserJoined, "user_id": c.UserID, "online_users": online})
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)
	h.sockets[c.UserID]--
	left := h.sockets[c.UserID] == 0
	if left {
		delete(h.sockets, c.UserID)
		for i, id := range h.order {
			if id == c.UserID {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
	online := append([]string{}, h.order...)
	h.mu.Unlock()

	h.log.Info().Str("user", c.UserID).Str("socket", c.ID).Msg("disconnected")
	if left {
		h.fanOutJSON(fiber.Map{"type": chat.EventUserLeft, "user_id": c.UserID, "online_users": online})
	}
}

func (h *Hub) handleFrame(c *Client, data []byte) {
	var f struct {
		Type     string `json:"type"`
		IsTyping bool   `json:"is_typing"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		h.log.Debug().Err(err).Str("socket", c.ID).Msg("bad frame")
		return
	}

	switch f.Type {
	case chat.FramePing:
		h.push(c, fiber.Map{"type": chat.EventPong})
	case chat.FrameTypingStart:
		h.typing(c.UserID, true)
	case chat.FrameTypingStop:
		h.typing(c.UserID, false)
	case chat.EventTyping:
		h.typing(c.UserID, f.IsTyping)
	default:
		h.log.Debug().Str("type", f.Type).Msg("ignoring frame")
	}
}

func (h *Hub) typing(userID string, on bool) {
	h.fanOutJSON(fiber.Map{"type": chat.EventTyping, "user_id": userID, "is_typing": on})
}

func (h *Hub) push(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal")
		return
	}
	h.mu.RLock()
	_, live := h.clients[c.ID]
	h.mu.RUnlock()
	if live {
		c.trySend(data)
	}
}

func (h *Hub) fanOutJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal")
		return
	}
	h.fanOut(data)
}

func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.trySend(data)
	}
}

// goingAwayConn is a socket that can be told the server is leaving. Close
// alone does not reach a hijacked fiber connection.
type goingAwayConn interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.Send)
		if g, ok := c.Conn.(goingAwayConn); ok {
			_ = g.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			// unblocks the handler's ReadPump
			_ = g.SetReadDeadline(time.Now())
		}
		_ = c.Conn.Close()
		delete(h.clients, id)
	}
	h.sockets = map[string]int{}
	h.order = nil
}
