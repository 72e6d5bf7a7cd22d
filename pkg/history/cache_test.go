package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
	"tableflip.dev/moodlog/pkg/remote/memory"
)

var testNow = time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fixedClock() Option {
	return WithClock(func() time.Time { return testNow })
}

func ev(id, author string, state mood.State, ago time.Duration) event.Event {
	return event.Event{
		ID:         id,
		AuthorID:   author,
		State:      state,
		Timestamp:  event.At(testNow.Add(-ago)),
		Visibility: event.Public,
	}
}

func TestLoadPersonalSortsNewestFirst(t *testing.T) {
	store := memory.New(memory.WithEvents(
		ev("a", "alice", mood.Happiness, 3*time.Hour),
		ev("b", "alice", mood.Sadness, time.Hour),
		ev("c", "alice", mood.Fear, 2*time.Hour),
		ev("x", "bob", mood.Anger, time.Minute),
	))
	c := New(store, "alice", Personal, quiet(), fixedClock())
	if got := c.Status().State; got != Unloaded {
		t.Fatalf("expected unloaded, got %v", got)
	}
	if err := c.Load(context.Background(), "alice", Personal); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := c.Events()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	st := c.Status()
	if st.State != Loaded || st.Err != nil || st.Generation != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLoadFollowingKeepsOnlyPublic(t *testing.T) {
	private := ev("p", "bob", mood.Shame, time.Hour)
	private.Visibility = event.Private
	store := memory.New(memory.WithEvents(
		ev("a", "bob", mood.Happiness, 2*time.Hour),
		private,
		ev("c", "carol", mood.Surprise, 3*time.Hour),
	))
	_ = store.Follow(context.Background(), "alice", "bob")
	_ = store.Follow(context.Background(), "alice", "carol")

	c := New(store, "alice", Following, quiet())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := c.Events()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("expected public events a, c; got %+v", got)
	}
}

func TestLoadFailureEmptiesAndReportsFailed(t *testing.T) {
	store := memory.New(memory.WithEvents(ev("a", "alice", mood.Happiness, time.Hour)))
	c := New(store, "alice", Personal, quiet())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	store.SetOnline(false)
	err := c.Refresh(context.Background())
	if !errors.Is(err, remote.ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
	res := c.Result()
	if len(res.Events) != 0 || !errors.Is(res.Err, remote.ErrOffline) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Status().State != Failed {
		t.Fatalf("expected failed, got %v", c.Status().State)
	}
}

func TestEmptyLoadIsDistinctFromFailure(t *testing.T) {
	c := New(memory.New(), "alice", Personal, quiet())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	res := c.Result()
	if res.Err != nil || res.Events == nil || len(res.Events) != 0 {
		t.Fatalf("expected empty ok result, got %+v", res)
	}
	if c.Status().State != Loaded {
		t.Fatalf("expected loaded, got %v", c.Status().State)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	store := memory.New(memory.WithEvents(
		ev("a", "alice", mood.Happiness, time.Hour),
		ev("b", "alice", mood.Sadness, 2*time.Hour),
	))
	c := New(store, "alice", Personal, quiet())
	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	first := c.Events()
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	second := c.Events()
	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !event.Equal(first[i], second[i]) || !sameContent(first[i], second[i]) {
			t.Fatalf("event %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNilStoreFails(t *testing.T) {
	c := New(nil, "alice", Personal, quiet())
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

// gatedStore blocks Events until released so loads can be interleaved.
type gatedStore struct {
	*memory.Store
	mu    sync.Mutex
	gates []chan struct{}
}

func (g *gatedStore) Events(ctx context.Context, subject string, q remote.Query) ([]event.Event, error) {
	g.mu.Lock()
	gate := g.gates[0]
	g.gates = g.gates[1:]
	g.mu.Unlock()
	<-gate
	return g.Store.Events(ctx, subject, q)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	store := &gatedStore{
		Store: memory.New(memory.WithEvents(ev("a", "alice", mood.Happiness, time.Hour))),
		gates: []chan struct{}{first, second},
	}
	c := New(store, "alice", Personal, quiet())
	ctx := context.Background()

	staleErr := make(chan error, 1)
	go func() { staleErr <- c.Refresh(ctx) }()
	// Wait for the first load to claim its gate.
	for {
		store.mu.Lock()
		n := len(store.gates)
		store.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	freshErr := make(chan error, 1)
	go func() { freshErr <- c.Refresh(ctx) }()
	close(second)
	if err := <-freshErr; err != nil {
		t.Fatalf("fresh load: %v", err)
	}
	close(first)
	if err := <-staleErr; !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if c.Status().Generation != 2 || c.Len() != 1 {
		t.Fatalf("unexpected state after stale load: %+v len=%d", c.Status(), c.Len())
	}
}

func TestRecentLimitsToLastWeek(t *testing.T) {
	store := memory.New(memory.WithEvents(
		ev("a", "alice", mood.Happiness, time.Hour),
		ev("b", "alice", mood.Sadness, 3*24*time.Hour),
		ev("c", "alice", mood.Fear, 6*24*time.Hour),
		ev("d", "alice", mood.Anger, 8*24*time.Hour),
	))
	c := New(store, "alice", Personal, quiet())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := c.Recent(0, testNow)
	if len(got) != 3 {
		t.Fatalf("expected 3 recent events, got %d", len(got))
	}
	got = c.Recent(2, testNow)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected limited events: %+v", got)
	}
}

func TestReloadEmitsDiff(t *testing.T) {
	store := memory.New(memory.WithEvents(
		ev("a", "alice", mood.Happiness, time.Hour),
		ev("b", "alice", mood.Sadness, 2*time.Hour),
	))
	c := New(store, "alice", Personal, quiet())
	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	drain(c)

	if err := store.UpdateEvent(ctx, "a", ev("a", "alice", mood.Surprise, time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.DeleteEvent(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.AddEvent(ctx, ev("", "alice", mood.Fear, 3*time.Hour)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	counts := map[ChangeType]int{}
	for _, ch := range drain(c) {
		counts[ch.Type]++
	}
	if counts[ChangeCreate] != 1 || counts[ChangeUpdate] != 1 || counts[ChangeDelete] != 1 {
		t.Fatalf("unexpected changes: %v", counts)
	}
}

func TestEventByIDReturnsCopy(t *testing.T) {
	e := ev("a", "alice", mood.Happiness, time.Hour)
	e.SetLocation(1, 2, "park")
	c := New(memory.New(memory.WithEvents(e)), "alice", Personal, quiet())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got, ok := c.EventByID("a")
	if !ok {
		t.Fatal("expected event a")
	}
	got.Location.PlaceName = "changed"
	again, _ := c.EventByID("a")
	if again.Location.PlaceName != "park" {
		t.Fatal("EventByID leaked internal state")
	}
	if _, ok := c.EventByID("missing"); ok {
		t.Fatal("unexpected event")
	}
}

func drain(c *Cache) []Change {
	var out []Change
	for {
		select {
		case ch := <-c.Changes():
			out = append(out, ch)
		default:
			return out
		}
	}
}

// localCopy serves reads from the memory store's contents even while it is
// offline, the way a device-side copy would.
type localCopy struct {
	*memory.Store
}

func (l localCopy) CachedEvents(_ context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	out := []event.Event{}
	for _, e := range l.Snapshot() {
		if e.AuthorID == subjectID && remote.Matches(q, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l localCopy) CachedFollowingEvents(context.Context, string, remote.Query) ([]event.Event, error) {
	return []event.Event{}, nil
}

func TestOfflineLoadReadsLocalCopy(t *testing.T) {
	store := memory.New(memory.WithEvents(
		ev("a", "alice", mood.Happiness, time.Hour),
		ev("x", "bob", mood.Anger, time.Minute),
	))
	store.SetOnline(false)
	c := New(localCopy{store}, "alice", Personal, quiet(), fixedClock())
	if err := c.Load(context.Background(), "alice", Personal); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected alice's event, got %d", c.Len())
	}
	if st := c.Status(); st.State != Loaded || !st.Cached {
		t.Fatalf("expected a cached load, got %+v", st)
	}

	store.SetOnline(true)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Status().Cached {
		t.Fatal("an online load should not be marked cached")
	}
}
