// Package history keeps a subject's mood events in memory, loaded from a
// remote.Store, and queues the owner's own mutations until the store confirms
// them.
//
// The cache mirrors an informer: state lives locally, readers take consistent
// snapshots without touching the network, and every mutation is announced on a
// buffered Changes channel.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/remote"
)

var (
	// ErrInvalidEvent rejects events without an emotional state.
	ErrInvalidEvent = errors.New("history: invalid event")
	// ErrNotFound is returned for ids the cache does not hold.
	ErrNotFound = errors.New("history: event not found")
	// ErrPending means a mutation was applied locally and queued because the
	// remote store could not confirm it. It wraps the cause.
	ErrPending = errors.New("history: change queued")
	// ErrStaleLoad is returned by a load superseded by a newer one.
	ErrStaleLoad = errors.New("history: stale load discarded")
	// ErrNoStore is returned when the cache has no remote store.
	ErrNoStore = errors.New("history: remote store unavailable")
)

// RecentWindow bounds Recent.
const RecentWindow = 7 * 24 * time.Hour

// Mode selects whose events a cache holds.
type Mode int

const (
	// Personal holds the subject's own events.
	Personal Mode = iota
	// Following holds the public events of everyone the subject follows.
	Following
)

func (m Mode) String() string {
	switch m {
	case Personal:
		return "personal"
	case Following:
		return "following"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// LoadState is the outcome of the latest completed load.
type LoadState int

const (
	Unloaded LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// LoadStatus separates "no events" from "load failed".
type LoadStatus struct {
	State      LoadState
	Err        error
	Generation uint64
	LoadedAt   time.Time
	// Cached is set when the store was offline and the events came from its
	// local copy.
	Cached bool
}

// Result pairs a snapshot with the error of the load that produced it.
type Result struct {
	Events []event.Event
	Err    error
}

// ChangeType classifies a cache change.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	// ChangeReset is emitted when a load fails and the cache is emptied.
	ChangeReset ChangeType = "reset"
)

// Change announces one mutation. Previous is set for updates and id remaps.
type Change struct {
	Type     ChangeType
	Event    event.Event
	Previous *event.Event
}

// Option configures a Cache or Personal history.
type Option func(*options)

type options struct {
	log    *slog.Logger
	now    func() time.Time
	buffer int
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithChangeBuffer sizes the Changes channel.
func WithChangeBuffer(n int) Option {
	return func(o *options) {
		o.buffer = n
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:    slog.Default(),
		now:    time.Now,
		buffer: 64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.buffer < 0 {
		o.buffer = 0
	}
	return o
}

// Cache holds one subject's events, newest first.
type Cache struct {
	store remote.Store
	log   *slog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	subject string
	mode    Mode
	events  []event.Event
	status  LoadStatus
	gen     uint64
	// overlay rewrites freshly loaded events; Personal uses it to keep
	// unconfirmed local changes visible across reloads.
	overlay func([]event.Event) []event.Event

	changes chan Change
}

// New creates an unloaded cache for subject.
func New(store remote.Store, subject string, mode Mode, opts ...Option) *Cache {
	o := buildOptions(opts)
	return &Cache{
		store:   store,
		log:     o.log,
		now:     o.now,
		subject: subject,
		mode:    mode,
		changes: make(chan Change, o.buffer),
	}
}

// Subject returns the subject of the most recent load.
func (c *Cache) Subject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subject
}

// Mode returns the mode of the most recent load.
func (c *Cache) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Changes exposes the change channel. Sends never block; a consumer that
// falls behind misses changes and should re-read Events.
func (c *Cache) Changes() <-chan Change {
	return c.changes
}

// Load fetches subject's events in mode and replaces the cache contents. On
// failure the cache is emptied, Status reports Failed and the error is
// returned. A load that completes after a newer one started is discarded with
// ErrStaleLoad.
func (c *Cache) Load(ctx context.Context, subject string, mode Mode) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.subject = subject
	c.mode = mode
	c.mu.Unlock()

	events, err := c.fetch(ctx, subject, mode, c.store)
	cached := false
	if snap, ok := c.store.(remote.Snapshotter); ok && errors.Is(err, remote.ErrOffline) {
		c.log.Info("history: store offline, loading its local copy", "subject", subject, "mode", mode)
		events, err = c.fetch(ctx, subject, mode, snapshotReader{snap})
		cached = err == nil
	}
	return c.complete(gen, events, err, cached)
}

// snapshotReader routes listing calls to a Snapshotter. fetch only lists.
type snapshotReader struct {
	remote.Snapshotter
}

func (r snapshotReader) Events(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	return r.CachedEvents(ctx, subjectID, q)
}

func (r snapshotReader) FollowingEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	return r.CachedFollowingEvents(ctx, subjectID, q)
}

// lister is the part of remote.Store that loads need.
type lister interface {
	Events(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error)
	FollowingEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error)
}

// Refresh reloads with the current subject and mode.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.RLock()
	subject, mode := c.subject, c.mode
	c.mu.RUnlock()
	return c.Load(ctx, subject, mode)
}

func (c *Cache) fetch(ctx context.Context, subject string, mode Mode, src lister) ([]event.Event, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	switch mode {
	case Personal:
		return src.Events(ctx, subject, remote.Query{})
	case Following:
		events, err := src.FollowingEvents(ctx, subject, remote.Query{})
		if err != nil {
			return nil, err
		}
		public := make([]event.Event, 0, len(events))
		for _, e := range events {
			if e.IsPublic() {
				public = append(public, e)
			}
		}
		return public, nil
	default:
		return nil, fmt.Errorf("history: unknown mode %v", mode)
	}
}

func (c *Cache) complete(gen uint64, events []event.Event, err error, cached bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("history: discarding stale load", "generation", gen, "latest", c.gen)
		return ErrStaleLoad
	}
	if err != nil {
		c.events = nil
		c.status = LoadStatus{State: Failed, Err: err, Generation: gen, LoadedAt: c.now()}
		c.emit(Change{Type: ChangeReset})
		c.log.Warn("history: load failed", "subject", c.subject, "mode", c.mode, "err", err)
		return fmt.Errorf("history: load %s events for %q: %w", c.mode, c.subject, err)
	}
	next := event.CloneAll(events)
	if next == nil {
		next = []event.Event{}
	}
	if c.overlay != nil {
		next = c.overlay(next)
	}
	event.SortNewestFirst(next)
	c.diffLocked(c.events, next)
	c.events = next
	c.status = LoadStatus{State: Loaded, Generation: gen, LoadedAt: c.now(), Cached: cached}
	return nil
}

// Events returns a snapshot of the cache, newest first. Callers may modify
// the returned slice.
func (c *Cache) Events() []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := event.CloneAll(c.events)
	if out == nil {
		out = []event.Event{}
	}
	return out
}

// Len is the number of cached events.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// EventByID looks up a cached event.
func (c *Cache) EventByID(id string) (event.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.events, id); i >= 0 {
		return c.events[i].Clone(), true
	}
	return event.Event{}, false
}

// Status reports the outcome of the latest completed load.
func (c *Cache) Status() LoadStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Result returns the events together with the last load error, if any.
func (c *Cache) Result() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := event.CloneAll(c.events)
	if out == nil {
		out = []event.Event{}
	}
	return Result{Events: out, Err: c.status.Err}
}

// Recent returns up to limit events from the RecentWindow before now, newest
// first. A limit of zero or less means no limit.
func (c *Cache) Recent(limit int, now time.Time) []event.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cutoff := now.Add(-RecentWindow)
	out := make([]event.Event, 0)
	for _, e := range c.events {
		if e.Timestamp.Before(cutoff) || e.Timestamp.After(now) {
			continue
		}
		out = append(out, e.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// setEvents replaces the contents wholesale, emitting the differences.
func (c *Cache) setEvents(events []event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := event.CloneAll(events)
	if next == nil {
		next = []event.Event{}
	}
	event.SortNewestFirst(next)
	c.diffLocked(c.events, next)
	c.events = next
}

func (c *Cache) insert(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e.Clone())
	event.SortNewestFirst(c.events)
	c.emit(Change{Type: ChangeCreate, Event: e.Clone()})
}

func (c *Cache) replace(id string, e event.Event) (event.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.events, id)
	if i < 0 {
		return event.Event{}, false
	}
	prev := c.events[i]
	c.events[i] = e.Clone()
	event.SortNewestFirst(c.events)
	c.emit(Change{Type: ChangeUpdate, Event: e.Clone(), Previous: &prev})
	return prev, true
}

func (c *Cache) remove(id string) (event.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.events, id)
	if i < 0 {
		return event.Event{}, false
	}
	prev := c.events[i]
	c.events = append(c.events[:i], c.events[i+1:]...)
	c.emit(Change{Type: ChangeDelete, Event: prev.Clone()})
	return prev, true
}

// remapID swaps a provisional id for the store-assigned one.
func (c *Cache) remapID(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.events, from)
	if i < 0 {
		return
	}
	prev := c.events[i].Clone()
	c.events[i].ID = to
	event.SortNewestFirst(c.events)
	c.emit(Change{Type: ChangeUpdate, Event: c.events[indexOf(c.events, to)].Clone(), Previous: &prev})
}

// diffLocked emits create, update and delete changes turning prev into next.
func (c *Cache) diffLocked(prev, next []event.Event) {
	old := make(map[string]event.Event, len(prev))
	for _, e := range prev {
		old[e.ID] = e
	}
	for _, e := range next {
		before, ok := old[e.ID]
		if !ok {
			c.emit(Change{Type: ChangeCreate, Event: e.Clone()})
			continue
		}
		delete(old, e.ID)
		if !sameContent(before, e) {
			p := before.Clone()
			c.emit(Change{Type: ChangeUpdate, Event: e.Clone(), Previous: &p})
		}
	}
	for _, e := range prev {
		if _, gone := old[e.ID]; gone {
			c.emit(Change{Type: ChangeDelete, Event: e.Clone()})
		}
	}
}

func (c *Cache) emit(ch Change) {
	select {
	case c.changes <- ch:
	default:
	}
}

func indexOf(events []event.Event, id string) int {
	if id == "" {
		return -1
	}
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}

func sameContent(a, b event.Event) bool {
	a.ID, b.ID = "", ""
	return event.Equal(a, b)
}
