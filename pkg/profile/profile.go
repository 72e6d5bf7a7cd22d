// Package profile ties a subject's own history and the feed of the people
// they follow to one injected remote store.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/history"
	"tableflip.dev/moodlog/pkg/remote"
)

var (
	// ErrNoFollowGraph is returned when the store cannot manage follows.
	ErrNoFollowGraph = errors.New("profile: store does not support following")
	// ErrNoFollowRequests is returned when the store has no request workflow.
	ErrNoFollowRequests = errors.New("profile: store does not support follow requests")
	// ErrAlreadyFollowing is returned when requesting someone already followed.
	ErrAlreadyFollowing = errors.New("profile: already following")
)

// Profile is one signed-in subject's session.
type Profile struct {
	Subject string

	History *history.PersonalHistory
	Feed    *history.Cache

	store remote.Store
	agg   analytics.Aggregator
	eval  filter.Evaluator
	log   *slog.Logger
}

// Config adjusts a Profile.
type Config struct {
	Logger     *slog.Logger
	Now        func() time.Time
	Aggregator analytics.Aggregator
}

// New builds an unloaded profile for subject.
func New(store remote.Store, subject string, cfg Config) (*Profile, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("profile: subject required")
	}
	if store == nil {
		return nil, history.ErrNoStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	agg := cfg.Aggregator
	if agg.Now == nil {
		agg.Now = now
	}
	opts := []history.Option{history.WithLogger(logger), history.WithClock(now)}
	return &Profile{
		Subject: subject,
		History: history.NewPersonal(store, subject, opts...),
		Feed:    history.New(store, subject, history.Following, opts...),
		store:   store,
		agg:     agg,
		eval:    filter.Evaluator{Now: now},
		log:     logger.With("subject", subject),
	}, nil
}

// Open loads both caches. Both loads are attempted; the errors are joined.
func (p *Profile) Open(ctx context.Context) error {
	return p.RefreshAll(ctx)
}

// RefreshAll reloads the history and the feed.
func (p *Profile) RefreshAll(ctx context.Context) error {
	var errs []error
	if err := p.History.Load(ctx, p.Subject); err != nil {
		errs = append(errs, err)
	}
	if err := p.Feed.Load(ctx, p.Subject, history.Following); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Online reports the store's connectivity.
func (p *Profile) Online() bool {
	return p.store.IsOnline()
}

func (p *Profile) graph() (remote.FollowGraph, error) {
	g, ok := p.store.(remote.FollowGraph)
	if !ok {
		return nil, ErrNoFollowGraph
	}
	return g, nil
}

// Following lists who the subject follows.
func (p *Profile) Following(ctx context.Context) ([]string, error) {
	g, err := p.graph()
	if err != nil {
		return nil, err
	}
	return g.Following(ctx, p.Subject)
}

// Unfollow removes target and reloads the feed.
func (p *Profile) Unfollow(ctx context.Context, target string) error {
	g, err := p.graph()
	if err != nil {
		return err
	}
	if err := g.Unfollow(ctx, p.Subject, strings.TrimSpace(target)); err != nil {
		return fmt.Errorf("profile: unfollow %q: %w", target, err)
	}
	p.log.Info("profile: unfollowed", "target", target)
	return p.Feed.Refresh(ctx)
}

func (p *Profile) requests() (remote.FollowRequests, error) {
	r, ok := p.store.(remote.FollowRequests)
	if !ok {
		return nil, ErrNoFollowRequests
	}
	return r, nil
}

// IsFollowing reports whether the subject follows target.
func (p *Profile) IsFollowing(ctx context.Context, target string) (bool, error) {
	following, err := p.Following(ctx)
	if err != nil {
		return false, err
	}
	target = strings.TrimSpace(target)
	for _, f := range following {
		if f == target {
			return true, nil
		}
	}
	return false, nil
}

// RequestFollow asks target to accept the subject as a follower. The feed
// only changes once target accepts.
func (p *Profile) RequestFollow(ctx context.Context, target string) (remote.FollowRequest, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return remote.FollowRequest{}, errors.New("profile: target required")
	}
	if target == p.Subject {
		return remote.FollowRequest{}, errors.New("profile: cannot follow yourself")
	}
	r, err := p.requests()
	if err != nil {
		return remote.FollowRequest{}, err
	}
	following, err := p.IsFollowing(ctx, target)
	if err != nil {
		return remote.FollowRequest{}, err
	}
	if following {
		return remote.FollowRequest{}, fmt.Errorf("%w %q", ErrAlreadyFollowing, target)
	}
	req, err := r.RequestFollow(ctx, p.Subject, target)
	if err != nil {
		return req, fmt.Errorf("profile: request to follow %q: %w", target, err)
	}
	p.log.Info("profile: follow requested", "target", target, "request", req.ID)
	return req, nil
}

// Accept lets the sender of requestID follow the subject.
func (p *Profile) Accept(ctx context.Context, requestID string) (remote.FollowRequest, error) {
	return p.respond(ctx, requestID, true)
}

// Decline rejects requestID.
func (p *Profile) Decline(ctx context.Context, requestID string) (remote.FollowRequest, error) {
	return p.respond(ctx, requestID, false)
}

func (p *Profile) respond(ctx context.Context, requestID string, accept bool) (remote.FollowRequest, error) {
	r, err := p.requests()
	if err != nil {
		return remote.FollowRequest{}, err
	}
	req, err := r.RespondToRequest(ctx, p.Subject, strings.TrimSpace(requestID), accept)
	if err != nil {
		return req, fmt.Errorf("profile: answer request %q: %w", requestID, err)
	}
	p.log.Info("profile: answered follow request", "from", req.From, "status", req.Status)
	return req, nil
}

// PendingRequests lists requests waiting for the subject's answer.
func (p *Profile) PendingRequests(ctx context.Context) ([]remote.FollowRequest, error) {
	r, err := p.requests()
	if err != nil {
		return nil, err
	}
	return r.PendingRequests(ctx, p.Subject)
}

// SentRequests lists the subject's unanswered requests.
func (p *Profile) SentRequests(ctx context.Context) ([]remote.FollowRequest, error) {
	r, err := p.requests()
	if err != nil {
		return nil, err
	}
	return r.SentRequests(ctx, p.Subject)
}

// Followers lists who follows the subject.
func (p *Profile) Followers(ctx context.Context) ([]string, error) {
	r, err := p.requests()
	if err != nil {
		return nil, err
	}
	return r.Followers(ctx, p.Subject)
}

// View is a filtered listing together with the scope the caller should
// display when the criteria route elsewhere.
type View struct {
	Events []event.Event
	Scope  filter.Scope
	// Err is the load error of the cache the events came from.
	Err error
}

// Events applies c to the cache its scope selects. ScopeOwn reads the
// history, ScopeFollowed and ScopeAll read the feed; ScopeNearby reads both
// and leaves location filtering to Nearby.
func (p *Profile) Events(c filter.Criteria) View {
	c.Viewer = p.Subject
	switch c.Scope {
	case filter.ScopeOwn:
		res := p.History.Result()
		return View{Events: p.eval.Apply(c, res.Events), Scope: c.Scope, Err: res.Err}
	case filter.ScopeNearby:
		own := p.History.Result()
		feed := p.Feed.Result()
		all := append(own.Events, feed.Events...)
		event.SortNewestFirst(all)
		return View{Events: p.eval.Apply(c, all), Scope: c.Scope, Err: errors.Join(own.Err, feed.Err)}
	default:
		res := p.Feed.Result()
		return View{Events: p.eval.Apply(c, res.Events), Scope: c.Scope, Err: res.Err}
	}
}

// FeedView is the followed feed limited to perAuthor events per person.
func (p *Profile) FeedView(c filter.Criteria, perAuthor int) View {
	c.Scope = filter.ScopeFollowed
	v := p.Events(c)
	v.Events = filter.LatestPerAuthor(v.Events, perAuthor)
	return v
}

// Nearby lists located events within radiusKm of origin from both caches.
func (p *Profile) Nearby(c filter.Criteria, origin filter.Point, radiusKm float64) []filter.Placed {
	c.Scope = filter.ScopeNearby
	return filter.Nearby(p.Events(c).Events, origin, radiusKm)
}

// Stats summarises the subject's own events for year/month.
func (p *Profile) Stats(year int, month time.Month) (analytics.Stats, bool) {
	return p.agg.MonthlyStats(p.History.Events(), year, month)
}

// Trend returns the subject's daily mood trend for year/month.
func (p *Profile) Trend(year int, month time.Month) []analytics.TrendPoint {
	return p.agg.MonthlyTrend(p.History.Events(), year, month)
}

// Aggregator exposes the profile's aggregator settings.
func (p *Profile) Aggregator() analytics.Aggregator {
	return p.agg
}

// Close discards unconfirmed changes, as on logout.
func (p *Profile) Close() {
	if n := p.History.Discard(); n > 0 {
		p.log.Warn("profile: closed with unsynced changes", "count", n)
	}
}
