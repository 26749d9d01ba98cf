package main

import (
	"context"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/pelusa-v/boardhub-chat/internal/config"
	"github.com/pelusa-v/boardhub-chat/internal/devserver"
	"github.com/pelusa-v/boardhub-chat/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "console", os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	srv := devserver.New(devserver.WithLogger(log))

	go func() {
		if err := srv.Listen(cfg.DevAddr); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.DevAddr).Msg("listen")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"devserver": func(ctx context.Context) error {
				log.Info().Msg("shutting down")
				return srv.Shutdown(ctx)
			},
		},
	)

	code := <-wait
	log.Info().Int("code", code).Msg("exited")
	os.Exit(code)
}
