package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/conorfennell/flashdeck/internal/auth"
	"github.com/conorfennell/flashdeck/internal/card"
	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/store"
	"github.com/conorfennell/flashdeck/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "flashdeck: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	storage, closeStorage, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	cardStore := store.New(storage, log.With().Str("component", "store").Logger())
	users := auth.NewUserStore(filepath.Join(cfg.DataDir, "users.json"),
		log.With().Str("component", "auth").Logger())
	tokens := auth.NewTokens(cfg.JWTSecret)

	seedTier, err := card.ParseTier(cfg.Seed.Tier)
	if err != nil {
		return fmt.Errorf("parsing seed tier: %w", err)
	}
	reposDir := filepath.Join(cfg.DataDir, cfg.Seed.ReposDir)
	seeder := deck.NewSeeder(cardStore, reposDir, log.With().Str("component", "seed").Logger())
	if len(cfg.Seed.Sources) > 0 {
		if err := deck.EnsureReposDir(reposDir); err != nil {
			return fmt.Errorf("creating repos dir: %w", err)
		}
		res := seeder.Seed(cfg.Seed.Sources, seedTier)
		log.Info().
			Int("parsed", res.Parsed).
			Int("added", res.Added).
			Int("skipped", res.Skipped).
			Strs("errors", res.Errors).
			Msg("startup seed complete")
	}

	handler := web.NewServer(cardStore, users, tokens, seeder,
		web.SeedConfig{Sources: cfg.Seed.Sources, Tier: seedTier},
		log.With().Str("component", "web").Logger())

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}

func openStorage(cfg *config.Config) (store.Storage, func(), error) {
	path := filepath.Join(cfg.DataDir, cfg.Storage.Path)
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return store.NewJSONFile(path), func() {}, nil
	}
}
