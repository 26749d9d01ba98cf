package brain

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

// ChatMessages returns one page of history, oldest first.
func (c *Client) ChatMessages(ctx context.Context, limit, offset int) (chat.ChatMessagesResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp chat.ChatMessagesResponse
	if err := c.do(ctx, fiber.MethodGet, "/chat/messages", q, nil, &resp); err != nil {
		return chat.ChatMessagesResponse{}, err
	}
	if resp.Messages == nil {
		resp.Messages = []chat.ChatMessage{}
	}
	return resp, nil
}

func (c *Client) SendChatMessage(ctx context.Context, content string) (chat.ChatMessage, error) {
	var msg chat.ChatMessage
	err := c.do(ctx, fiber.MethodPost, "/chat/messages", nil, chat.ChatMessageCreate{Content: content}, &msg)
	return msg, err
}

// OnlineUsersResponse is the body of GET /chat/online-users.
type OnlineUsersResponse struct {
	OnlineUsers []chat.OnlineUser `json:"online_users"`
	Count       int               `json:"count"`
}

func (c *Client) OnlineUsers(ctx context.Context) ([]chat.OnlineUser, error) {
	var resp OnlineUsersResponse
	if err := c.do(ctx, fiber.MethodGet, "/chat/online-users", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.OnlineUsers == nil {
		return []chat.OnlineUser{}, nil
	}
	return resp.OnlineUsers, nil
}

var _ chat.API = (*Client)(nil)
