// Package brain is a typed client for the BoardHub backend REST routes.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 10 * time.Second

type Client struct {
	base    string
	tokens  auth.TokenSource
	http    *fiber.Client
	timeout time.Duration
	log     zerolog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l.With().Str("component", "brain").Logger() }
}

func WithUserAgent(ua string) Option { return func(c *Client) { c.http.UserAgent = ua } }

// New returns a client for the backend at baseURL. Routes are resolved under
// "<baseURL>/routes" unless baseURL already ends in it.
func New(baseURL string, tokens auth.TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("brain: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("brain: base url %q: scheme must be http or https", baseURL)
	}
	base := strings.TrimRight(u.String(), "/")
	if !strings.HasSuffix(base, "/routes") {
		base += "/routes"
	}

	c := &Client{
		base:    base,
		tokens:  tokens,
		http:    &fiber.Client{UserAgent: "boardhub-chat"},
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL is the resolved "/routes" root.
func (c *Client) BaseURL() string { return c.base }

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("brain: %w", err)
	}

	endpoint := c.base + path
	var a *fiber.Agent
	switch method {
	case fiber.MethodPost:
		a = c.http.Post(endpoint)
	default:
		a = c.http.Get(endpoint)
	}
	a.Set(fiber.HeaderAuthorization, "Bearer "+token).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(c.requestTimeout(ctx))
	if len(query) > 0 {
		a.QueryString(query.Encode())
	}
	if body != nil {
		a.JSON(body)
	}

	start := time.Now()
	status, data, errs := a.Bytes()
	log := c.log.Debug().Str("method", method).Str("path", path).Int("status", status).Dur("took", time.Since(start))
	if len(errs) > 0 {
		log.Errs("errors", errs).Msg("request failed")
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("brain: %s %s: %w", method, path, errors.Join(errs...))
	}
	log.Msg("request")

	if err := ctx.Err(); err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return newHTTPError(status, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("brain: decode %s: %w", path, err)
	}
	return nil
}

// requestTimeout honours the context deadline, falling back to the client default.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < c.timeout {
			if left <= 0 {
				return time.Millisecond
			}
			return left
		}
	}
	return c.timeout
}
