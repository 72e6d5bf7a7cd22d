// Package backend opens the remote store a Config selects.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tableflip.dev/moodlog/pkg/config"
	"tableflip.dev/moodlog/pkg/remote"
	"tableflip.dev/moodlog/pkg/remote/diskv"
	"tableflip.dev/moodlog/pkg/remote/memory"
	"tableflip.dev/moodlog/pkg/remote/mongo"
)

// Handle is an open store and the function that releases it.
type Handle struct {
	Store remote.Store
	Close func(ctx context.Context) error
}

// Open connects to the configured backend. When cfg asks to start offline
// the store is switched offline where the backend supports it.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func(context.Context) error { return nil }

	switch cfg.Backend() {
	case config.BackendMemory:
		s := memory.New()
		if cfg.Offline() {
			s.SetOnline(false)
		}
		return &Handle{Store: s, Close: noop}, nil
	case config.BackendMongo:
		s, err := mongo.Connect(ctx, cfg.MongoURI(), cfg.MongoDatabase(), logger)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: s, Close: s.Close}, nil
	case config.BackendDiskv, "":
		s, err := diskv.Open(cfg.BasePath(), logger)
		if err != nil {
			return nil, err
		}
		if cfg.Offline() {
			if err := s.SetOnline(false); err != nil {
				return nil, err
			}
		}
		return &Handle{Store: s, Close: noop}, nil
	default:
		return nil, fmt.Errorf("backend: unsupported backend %q", cfg.Backend())
	}
}
