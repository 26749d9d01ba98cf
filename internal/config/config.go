package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL     string
	WSURL      string
	Token      string
	UserID     string
	Language   string
	LogLevel   string
	LogFormat  string
	LogFile    string
	HeaderAuth bool
	DevAddr    string
}

// Load reads the environment, after merging an optional .env file (or the
// files given) without overriding variables that are already set.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		APIURL:    getenv("BOARDHUB_API_URL", "http://localhost:8080"),
		WSURL:     os.Getenv("BOARDHUB_WS_URL"),
		Token:     os.Getenv("BOARDHUB_TOKEN"),
		UserID:    os.Getenv("BOARDHUB_USER_ID"),
		Language:  getenv("BOARDHUB_LANG", os.Getenv("LANG")),
		LogLevel:  getenv("BOARDHUB_LOG_LEVEL", "info"),
		LogFormat: getenv("BOARDHUB_LOG_FORMAT", "console"),
		LogFile:   os.Getenv("BOARDHUB_LOG_FILE"),
		DevAddr:   getenv("DEVSERVER_ADDR", ":8080"),
	}

	switch mode := strings.ToLower(getenv("BOARDHUB_WS_AUTH", "subprotocol")); mode {
	case "subprotocol":
	case "header":
		cfg.HeaderAuth = true
	default:
		return nil, fmt.Errorf("config: BOARDHUB_WS_AUTH must be subprotocol or header, got %q", mode)
	}

	if cfg.WSURL == "" {
		ws, err := ChatSocketURL(cfg.APIURL)
		if err != nil {
			return nil, err
		}
		cfg.WSURL = ws
	}
	return cfg, nil
}

// ChatSocketURL derives the chat websocket endpoint from the API base URL:
// the scheme becomes ws/wss, and the path gains "/chat/ws" when the base
// already points at "/routes", "/routes/chat/ws" otherwise.
func ChatSocketURL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("config: api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("config: api url %q: unsupported scheme", apiURL)
	}
	path := strings.TrimRight(u.Path, "/")
	if strings.Contains(path, "routes") {
		u.Path = path + "/chat/ws"
	} else {
		u.Path = path + "/routes/chat/ws"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
