package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ChatMessage is a message as stored by the backend. Never mutated after decode.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"created_at"`
}

// ChatMessageCreate is the body of POST /chat/messages.
type ChatMessageCreate struct {
	Content string `json:"content"`
}

// ChatMessagesResponse is the body of GET /chat/messages.
type ChatMessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
	Total    int           `json:"total"`
}

// OnlineUser is one entry of the presence list.
type OnlineUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DisplayName returns Name, or ID when the backend only sent an id.
func (u OnlineUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// UnmarshalJSON accepts both {"id":..,"name":..} and a bare user id string.
func (u *OnlineUser) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = OnlineUser{ID: id}
		return nil
	}
	type plain OnlineUser
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = OnlineUser(p)
	return nil
}

// Timestamp decodes the backend's isoformat() output, which may lack a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("chat: unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Server -> client frame kinds.
const (
	EventNewMessage  = "new_message"
	EventOnlineUsers = "online_users"
	EventUserJoined  = "user_joined"
	EventUserLeft    = "user_left"
	EventTyping      = "typing"
	EventPong        = "pong"
)

// Client -> server frame kinds.
const (
	FrameTypingStart = "typing_start"
	FrameTypingStop  = "typing_stop"
	FramePing        = "ping"
)

// Event is one inbound socket frame. Only the fields relevant to Type are set.
type Event struct {
	Type        string       `json:"type"`
	Message     *ChatMessage `json:"message,omitempty"`
	OnlineUsers []OnlineUser `json:"online_users,omitempty"`
	Users       []OnlineUser `json:"users,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	IsTyping    bool         `json:"is_typing,omitempty"`
}

// Presence returns the presence list carried by the event; the backend uses
// "online_users" on join/leave and "users" on the initial snapshot.
func (e Event) Presence() []OnlineUser {
	if e.OnlineUsers != nil {
		return e.OnlineUsers
	}
	if e.Users != nil {
		return e.Users
	}
	return []OnlineUser{}
}

// ParseEvent decodes one inbound frame.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("chat: decode frame: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("chat: frame without type")
	}
	return ev, nil
}

// Frame is one outbound socket frame.
type Frame struct {
	Type string `json:"type"`
}
