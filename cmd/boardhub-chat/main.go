package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelusa-v/boardhub-chat/internal/auth"
	"github.com/pelusa-v/boardhub-chat/internal/brain"
	"github.com/pelusa-v/boardhub-chat/internal/chat"
	"github.com/pelusa-v/boardhub-chat/internal/config"
	"github.com/pelusa-v/boardhub-chat/internal/i18n"
	"github.com/pelusa-v/boardhub-chat/internal/logging"
	"github.com/pelusa-v/boardhub-chat/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "boardhub-chat:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// the terminal belongs to the UI
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)

	tokens := auth.StaticToken(cfg.Token)
	if _, err := tokens.Token(context.Background()); err != nil {
		return fmt.Errorf("%w: set BOARDHUB_TOKEN", err)
	}
	userID := cfg.UserID
	if userID == "" {
		if sub, err := auth.Subject(cfg.Token); err == nil {
			userID = sub
		} else {
			userID = cfg.Token
		}
	}

	api, err := brain.New(cfg.APIURL, tokens, brain.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := i18n.NewCatalog(api, log)
	lang := i18n.FallbackLanguage
	if cfg.Language != "" {
		if lang, err = catalog.Negotiate(ctx, cfg.Language); err != nil {
			log.Warn().Err(err).Msg("language negotiation")
		}
	}
	if err := catalog.ChangeLanguage(ctx, lang); err != nil {
		log.Warn().Err(err).Str("lang", lang).Msg("translations")
	}

	var program *tea.Program
	session := chat.NewSession(api, chat.WebsocketDialer{}, tokens,
		chat.WithUserID(userID),
		chat.WithURL(cfg.WSURL),
		chat.WithHeaderCredential(cfg.HeaderAuth),
		chat.WithLogger(log),
		chat.WithHooks(tui.Hooks(func(msg tea.Msg) { program.Send(msg) })),
	)
	defer session.Disconnect()

	log.Info().Str("api", api.BaseURL()).Str("ws", cfg.WSURL).Str("user", userID).Str("lang", lang).Msg("starting")
	program = tea.NewProgram(tui.New(ctx, session, catalog, userID), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}
