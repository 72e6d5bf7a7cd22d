package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/backend"
	"tableflip.dev/moodlog/pkg/config"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/profile"
	"tableflip.dev/moodlog/pkg/syncer"
)

// session is an opened profile and the store behind it.
type session struct {
	cfg     config.Config
	handle  *backend.Handle
	profile *profile.Profile
	log     *slog.Logger
}

var verbose bool

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openSession loads config, connects the backend and loads the profile. A
// profile that failed to load is still returned so offline commands work.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if s, ok := cfg.(*config.Settings); ok {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	logger := newLogger()

	handle, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p, err := profile.New(handle.Store, cfg.Subject(), profile.Config{
		Logger:     logger,
		Aggregator: analytics.Aggregator{Location: time.Local, Registry: mood.Default},
	})
	if err != nil {
		_ = handle.Close(ctx)
		return nil, err
	}
	if err := p.Open(ctx); err != nil {
		logger.Warn("moodlog: could not load history", "err", err)
	}
	return &session{cfg: cfg, handle: handle, profile: p, log: logger}, nil
}

func (s *session) close(ctx context.Context) {
	s.profile.Close()
	if err := s.handle.Close(ctx); err != nil {
		s.log.Warn("moodlog: close store", "err", err)
	}
}

// startSyncer replays queued changes on the configured schedule and whenever
// the store comes back online. It stops with ctx.
func (s *session) startSyncer(ctx context.Context) (*syncer.Syncer, error) {
	sy, err := syncer.New(s.profile.History, s.handle.Store, syncer.Config{
		Schedule: s.cfg.SyncSchedule(),
		Logger:   s.log,
	})
	if err != nil {
		return nil, err
	}
	if err := sy.Start(ctx); err != nil {
		return nil, err
	}
	return sy, nil
}
