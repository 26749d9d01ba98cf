package brain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("brain: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("brain: %d %s", e.Status, e.Detail)
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// newHTTPError reads the FastAPI {"detail": ...} body when there is one.
// Validation errors carry a list under detail; their messages are joined.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{Status: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Detail) == 0 {
		e.Detail = strings.TrimSpace(string(body))
		if len(e.Detail) > 200 {
			e.Detail = e.Detail[:200]
		}
		return e
	}

	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		e.Detail = s
		return e
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(payload.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
		return e
	}
	e.Detail = string(payload.Detail)
	return e
}
