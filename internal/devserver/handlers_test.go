package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New()
	t.Cleanup(func() {
		s.cancel()
		s.hub.Wait()
	})
	return s
}

func do(t *testing.T, s *Server, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHandlers_RequireBearer(t *testing.T) {
	s := newTestServer(t)

	status, body := do(t, s, http.MethodGet, "/routes/chat/messages", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Not authenticated", body["detail"])

	status, _ = do(t, s, http.MethodGet, "/routes/chat/online-users", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHandlers_MessagesRoundTrip(t *testing.T) {
	s := newTestServer(t)

	status, body := do(t, s, http.MethodGet, "/routes/chat/messages", "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["messages"])
	assert.EqualValues(t, 0, body["total"])

	status, body = do(t, s, http.MethodPost, "/routes/chat/messages", "carol", `{"content":"agenda?"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "agenda?", body["content"])
	assert.Equal(t, "carol", body["user_id"])
	assert.Equal(t, "carol", body["username"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["created_at"])

	status, body = do(t, s, http.MethodGet, "/routes/chat/messages?limit=10&offset=0", "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["messages"], 1)
	assert.EqualValues(t, 1, body["total"])
}

func TestHandlers_Validation(t *testing.T) {
	s := newTestServer(t)

	status, body := do(t, s, http.MethodPost, "/routes/chat/messages", "carol", `{"content":"   "}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "content is required", body["detail"])

	status, _ = do(t, s, http.MethodGet, "/routes/chat/messages?limit=-1", "carol", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = do(t, s, http.MethodGet, "/routes/chat/ws", "carol", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestHandlers_PresenceAndTranslations(t *testing.T) {
	s := newTestServer(t)

	status, body := do(t, s, http.MethodGet, "/routes/chat/online-users", "carol", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["online_users"])
	assert.EqualValues(t, 0, body["count"])

	status, body = do(t, s, http.MethodGet, "/routes/translations/by-language/fr", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "fr", body["language_code"])
	assert.Equal(t, "Discussion du Conseil", body["translations"].(map[string]any)["chat.title"])

	req := httptest.NewRequest(http.MethodGet, "/routes/translations/languages", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var langs []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&langs))
	assert.Equal(t, []string{"en", "fr"}, langs)

	status, body = do(t, s, http.MethodGet, "/health", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
