package devserver

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

const (
	localUserID         = "user_id"
	defaultHistoryLimit = 50
)

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "connected_clients": s.hub.ClientCount()})
	})

	routes := s.app.Group("/routes")

	tr := routes.Group("/translations")
	tr.Get("/languages", s.languagesHandler)
	tr.Get("/by-language/:code", s.translationsHandler)

	ch := routes.Group("/chat", requireUser)
	ch.Get("/messages", s.listMessagesHandler)
	ch.Post("/messages", s.createMessageHandler)
	ch.Get("/online-users", s.onlineUsersHandler)
	ch.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(s.socketHandler, websocket.Config{
		Subprotocols: []string{chat.DefaultAppProtocol},
	}))
}

// requireUser resolves the caller from a bearer header, or from the
// websocket subprotocol list browsers are limited to.
func requireUser(c *fiber.Ctx) error {
	token, ok := auth.BearerFromHeader(c.Get(fiber.HeaderAuthorization))
	if !ok {
		token, ok = auth.BearerFromSubprotocols(c.Get(fiber.HeaderSecWebSocketProtocol))
	}
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated")
	}
	userID := token
	if sub, err := auth.Subject(token); err == nil {
		userID = sub
	}
	c.Locals(localUserID, userID)
	return c.Next()
}

// listMessagesHandler GET /routes/chat/messages?limit=&offset=
func (s *Server) listMessagesHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	offset := c.QueryInt("offset", 0)
	if limit < 0 || offset < 0 {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "limit and offset must be non-negative")
	}
	msgs, total := s.store.Page(limit, offset)
	return c.JSON(chat.ChatMessagesResponse{Messages: msgs, Total: total})
}

// createMessageHandler POST /routes/chat/messages
func (s *Server) createMessageHandler(c *fiber.Ctx) error {
	var req chat.ChatMessageCreate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "content is required")
	}

	userID, _ := c.Locals(localUserID).(string)
	msg := s.store.AddMessage(userID, req.Content)
	if err := s.hub.Broadcast(fiber.Map{"type": chat.EventNewMessage, "message": msg}); err != nil {
		s.log.Warn().Err(err).Msg("broadcast new_message")
	}
	return c.JSON(msg)
}

// onlineUsersHandler GET /routes/chat/online-users
func (s *Server) onlineUsersHandler(c *fiber.Ctx) error {
	users := s.hub.OnlineUsers()
	return c.JSON(fiber.Map{"online_users": users, "count": len(users)})
}

// languagesHandler GET /routes/translations/languages
func (s *Server) languagesHandler(c *fiber.Ctx) error {
	return c.JSON(s.store.Languages())
}

// translationsHandler GET /routes/translations/by-language/:code
func (s *Server) translationsHandler(c *fiber.Ctx) error {
	code := c.Params("code")
	return c.JSON(fiber.Map{"language_code": code, "translations": s.store.Translations(code)})
}

func (s *Server) socketHandler(conn *websocket.Conn) {
	userID, _ := conn.Locals(localUserID).(string)
	client := &Client{ID: uuid.NewString(), UserID: userID, Conn: conn, Send: make(chan []byte, 32)}
	if err := s.hub.Register(client); err != nil {
		return
	}

	written := make(chan struct{})
	go func() {
		client.WritePump()
		close(written)
	}()
	client.ReadPump(s.hub)
	// the conn is recycled once this handler returns
	<-written
}
