package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jaminalder/tictactoe/internal/app"
	"github.com/jaminalder/tictactoe/internal/config"
	"github.com/jaminalder/tictactoe/internal/game"
	"github.com/jaminalder/tictactoe/internal/store"
	"github.com/jaminalder/tictactoe/internal/term"
	"github.com/jaminalder/tictactoe/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("exited with error")
	}
}

func setupLogging(cfg config.Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	// The terminal game owns stdout.
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func run(ctx context.Context, cfg config.Config) error {
	prefs := store.NewFileStore(cfg.StateFile, cfg.Difficulty)
	if cfg.DifficultySet {
		if err := prefs.Save(cfg.Difficulty); err != nil {
			log.Warn().Err(err).Msg("could not save difficulty")
		}
	}
	svc := app.NewService(
		app.WithStore(prefs),
		app.WithComputerSymbol(cfg.Automated),
		app.WithControllerOptions(game.WithLogger(log.Logger.With().Str("component", "game").Logger())),
	)
	log.Info().Str("mode", cfg.Mode).Str("difficulty", svc.Difficulty().String()).Str("computer", cfg.Automated.String()).Msg("starting")

	switch cfg.Mode {
	case config.ModeTerm:
		return term.Run(ctx, svc, os.Stdin, term.NewRenderer(os.Stdout))
	default:
		return serve(ctx, cfg, svc)
	}
}

func serve(ctx context.Context, cfg config.Config, svc *app.Service) error {
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: web.NewServer(svc,
			web.WithLogger(log.Logger.With().Str("component", "http").Logger()),
			web.WithHeartbeat(cfg.Heartbeat),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("listening on %s", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
