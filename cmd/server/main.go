package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Keystroke/internal/adapters/http"
	wssignal "github.com/dkeye/Keystroke/internal/adapters/signal"
	"github.com/dkeye/Keystroke/internal/app"
	"github.com/dkeye/Keystroke/internal/app/ban"
	"github.com/dkeye/Keystroke/internal/app/moderation"
	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/config"
	"github.com/dkeye/Keystroke/internal/core"
	"github.com/dkeye/Keystroke/internal/domain"
	"github.com/dkeye/Keystroke/internal/storage/journal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	var j journal.Journal = journal.Nop{}
	if cfg.Journal.Path != "" {
		sq, err := journal.Open(cfg.Journal.Path, cfg.Journal.Buffer)
		if err != nil {
			return err
		}
		j = sq
	}
	defer func() {
		if err := j.Close(); err != nil {
			log.Error().Err(err).Msg("journal close failed")
		}
	}()

	clock := core.SystemClock()
	o := orch.New(orch.Options{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomManager(core.NewNumericIDGenerator(), cfg.Rooms.MaxMembers),
		Policy:   app.SimplePolicy{},
		Filter: moderation.NewFilter(moderation.Config{
			Words:     cfg.Moderation.Words,
			Fuzzy:     cfg.Moderation.Fuzzy,
			Threshold: cfg.Moderation.FuzzyThreshold,
		}),
		Bans:      ban.NewStore(clock),
		Journal:   j,
		Clock:     clock,
		Scheduler: clock,
		Settings:  orchSettings(cfg),
	})

	ws := wssignal.Settings{
		ReadLimit:    cfg.WS.ReadLimit,
		SendBuffer:   cfg.WS.SendBuffer,
		WriteTimeout: cfg.WS.WriteTimeout,
		PingPeriod:   cfg.WS.PingPeriod,
		RateEvents:   cfg.RateLimit.Events,
		RateInterval: cfg.RateLimit.Interval,
	}
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(ctx, cfg, o, ws),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Keystroke server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func orchSettings(cfg *config.Config) orch.Settings {
	mods := make([]domain.UserID, 0, len(cfg.Moderation.Moderators))
	for _, m := range cfg.Moderation.Moderators {
		mods = append(mods, domain.UserID(m))
	}
	return orch.Settings{
		MaxTextLength:  cfg.Rooms.MaxTextLength,
		DeletionGrace:  cfg.Rooms.DeletionGrace,
		LobbySample:    cfg.Rooms.LobbySample,
		VoteMinMembers: cfg.Votes.MinMembers,
		EjectionDelay:  cfg.Votes.EjectionDelay,
		ChatBan:        cfg.Moderation.ChatBan,
		MaxBan:         cfg.Moderation.MaxBan,
		Moderators:     mods,
		ModCode:        cfg.Moderation.ModCode,
		RequireModCode: cfg.Moderation.RequireModCode,
	}
}
