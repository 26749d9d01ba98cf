package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
)

// Store keeps chat history and translations in memory.
type Store struct {
	mu           sync.RWMutex
	messages     []chat.ChatMessage // oldest first
	translations map[string]map[string]string
	now          func() time.Time
}

func NewStore() *Store {
	s := &Store{
		translations: map[string]map[string]string{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for lang, bundle := range seedTranslations {
		s.SetTranslations(lang, bundle)
	}
	return s
}

// AddMessage stores a message from userID and returns it. The username is
// the user id, as the backend does.
func (s *Store) AddMessage(userID, content string) chat.ChatMessage {
	msg := chat.ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		UserID:    userID,
		Username:  userID,
		CreatedAt: chat.Timestamp{Time: s.now()},
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Page returns the newest limit messages after skipping offset of the
// newest, oldest first, with the total count.
func (s *Store) Page(limit, offset int) ([]chat.ChatMessage, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.messages)
	end := total - offset
	if end <= 0 || limit <= 0 {
		return []chat.ChatMessage{}, total
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]chat.ChatMessage, end-start)
	copy(out, s.messages[start:end])
	return out, total
}

func (s *Store) SetTranslations(lang string, bundle map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := s.translations[lang]
	if dst == nil {
		dst = map[string]string{}
		s.translations[lang] = dst
	}
	for k, v := range bundle {
		dst[k] = v
	}
}

// Translations returns a copy of the bundle for lang; unknown languages
// yield an empty bundle.
func (s *Store) Translations(lang string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.translations[lang]))
	for k, v := range s.translations[lang] {
		out[k] = v
	}
	return out
}

func (s *Store) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.translations))
	for code := range s.translations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
