package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when no bearer credential is configured.
var ErrNoToken = errors.New("auth: no bearer token")

// SubprotocolPrefix carries the bearer token inside a websocket subprotocol.
const SubprotocolPrefix = "Authorization.Bearer."

// TokenSource supplies the bearer credential for REST calls and the socket.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource over a fixed token.
type StaticToken string

func (t StaticToken) Token(_ context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Subject returns the "sub" claim of a JWT without verifying its signature.
// The backend verifies; the client only needs to know who it is.
func Subject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("auth: token has no subject")
	}
	return sub, nil
}

// BearerFromHeader extracts the token from "Authorization: Bearer <token>".
func BearerFromHeader(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// BearerFromSubprotocols extracts the token from a Sec-WebSocket-Protocol
// header value such as "databutton.app, Authorization.Bearer.<token>".
func BearerFromSubprotocols(value string) (string, bool) {
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if token, ok := strings.CutPrefix(p, SubprotocolPrefix); ok && token != "" {
			return token, true
		}
	}
	return "", false
}
