// Package syncer replays a personal history's pending queue in the
// background: on a cron schedule, and as soon as the store comes back online.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tableflip.dev/moodlog/pkg/history"
)

const (
	// DefaultSchedule replays the queue every minute.
	DefaultSchedule = "@every 1m"
	// DefaultCheck checks connectivity every ten seconds.
	DefaultCheck = "@every 10s"
)

// Trigger says why a sync ran.
type Trigger string

const (
	TriggerSchedule  Trigger = "schedule"
	TriggerReconnect Trigger = "reconnect"
	TriggerManual    Trigger = "manual"
)

// Queue is the part of history.PersonalHistory the syncer drives.
type Queue interface {
	HasPendingChanges() bool
	SyncPendingChanges(ctx context.Context) (history.SyncReport, error)
}

// Checker reports connectivity; remote.Store satisfies it.
type Checker interface {
	IsOnline() bool
}

// Result is one completed sync attempt.
type Result struct {
	At      time.Time
	Trigger Trigger
	Report  history.SyncReport
	Err     error
}

// Config adjusts a Syncer. Zero values use the defaults.
type Config struct {
	Schedule string
	Check    string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Syncer owns a cron scheduler.
type Syncer struct {
	queue  Queue
	checker Checker
	cfg    Config
	log    *slog.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	ctx       context.Context
	done      chan struct{}
	wasOnline bool

	results chan Result
}

// New validates the schedules and builds a stopped Syncer.
func New(queue Queue, checker Checker, cfg Config) (*Syncer, error) {
	if queue == nil || checker == nil {
		return nil, errors.New("syncer: queue and checker required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Check == "" {
		cfg.Check = DefaultCheck
	}
	for _, spec := range []string{cfg.Schedule, cfg.Check} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("syncer: invalid schedule %q: %w", spec, err)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Syncer{
		queue:     queue,
		checker:    checker,
		cfg:       cfg,
		log:       cfg.Logger,
		wasOnline: checker.IsOnline(),
		results:   make(chan Result, 16),
	}, nil
}

// Results streams completed attempts. Sends never block; old results are
// dropped when nobody reads.
func (s *Syncer) Results() <-chan Result {
	return s.results
}

// Start schedules the jobs. They run until Stop or until ctx is done.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("syncer: already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		s.Sync(s.context(), TriggerSchedule)
	}); err != nil {
		return fmt.Errorf("syncer: schedule sync: %w", err)
	}
	if _, err := c.AddFunc(s.cfg.Check, func() {
		s.CheckConnectivity(s.context())
	}); err != nil {
		return fmt.Errorf("syncer: schedule connectivity check: %w", err)
	}
	done := make(chan struct{})
	s.cron = c
	s.ctx = ctx
	s.done = done
	c.Start()
	s.log.Info("syncer: started", "schedule", s.cfg.Schedule, "check", s.cfg.Check)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()
	return nil
}

// Running reports whether the scheduler is started.
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Syncer) Stop() {
	s.mu.Lock()
	c, done := s.cron, s.done
	s.cron, s.done = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	close(done)
	<-c.Stop().Done()
	s.log.Info("syncer: stopped")
}

func (s *Syncer) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// CheckConnectivity asks the store whether it is online and syncs on an
// offline to online transition. It reports whether a sync ran.
func (s *Syncer) CheckConnectivity(ctx context.Context) bool {
	online := s.checker.IsOnline()
	s.mu.Lock()
	reconnected := online && !s.wasOnline
	s.wasOnline = online
	s.mu.Unlock()
	if !reconnected {
		return false
	}
	s.log.Info("syncer: back online")
	s.Sync(ctx, TriggerReconnect)
	return true
}

// Sync replays the queue now. An empty queue is not sent anywhere.
func (s *Syncer) Sync(ctx context.Context, trigger Trigger) Result {
	res := Result{At: s.cfg.Now(), Trigger: trigger}
	if !s.queue.HasPendingChanges() {
		return res
	}
	res.Report, res.Err = s.queue.SyncPendingChanges(ctx)
	switch {
	case res.Err != nil:
		s.log.Warn("syncer: sync failed", "trigger", trigger, "applied", res.Report.Applied, "remaining", res.Report.Remaining, "err", res.Err)
	default:
		s.log.Info("syncer: synced", "trigger", trigger, "applied", res.Report.Applied)
	}
	select {
	case s.results <- res:
	default:
	}
	return res
}
