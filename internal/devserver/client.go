package devserver

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

// Client is one chat socket. Send is closed by the hub once the client is
// unregistered.
type Client struct {
	ID     string
	UserID string
	Conn   chat.ConnLike
	Send   chan []byte
}

func (c *Client) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) ReadPump(h *Hub) {
	defer h.Unregister(c)
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		h.deliver(c, data)
	}
}

func (c *Client) WritePump() {
	for data := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.Conn.Close()
			for range c.Send {
			}
			return
		}
	}
}
