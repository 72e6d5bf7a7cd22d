// Package memory provides an in-process remote.Store. It backs tests and the
// `--backend memory` demo mode and records every call it receives.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/remote"
)

// Method names a Store call.
type Method string

const (
	MethodEvents          Method = "Events"
	MethodFollowingEvents Method = "FollowingEvents"
	MethodAdd             Method = "AddEvent"
	MethodUpdate          Method = "UpdateEvent"
	MethodDelete          Method = "DeleteEvent"
)

// Call records one request the store received.
type Call struct {
	Method  Method
	Subject string
	ID      string
	Event   event.Event
}

// Store is a thread-safe in-memory remote.Store, remote.FollowGraph and
// remote.FollowRequests.
type Store struct {
	mu        sync.Mutex
	events    map[string]event.Event
	following map[string][]string
	requests  map[string]remote.FollowRequest
	online    bool
	calls     []Call
	fail      func(Call) error
	idGen     func() string
}

var (
	_ remote.Store          = (*Store)(nil)
	_ remote.FollowGraph    = (*Store)(nil)
	_ remote.FollowRequests = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithEvents seeds the store. Events without ids get generated ones.
func WithEvents(events ...event.Event) Option {
	return func(s *Store) {
		for _, e := range events {
			if e.ID == "" {
				e.ID = s.idGen()
			}
			s.events[e.ID] = e.Clone()
		}
	}
}

// WithIDs makes id assignment deterministic.
func WithIDs(gen func() string) Option {
	return func(s *Store) {
		s.idGen = gen
	}
}

// WithFailure installs a hook consulted before every call. A non-nil return
// fails the call without side effects.
func WithFailure(fn func(Call) error) Option {
	return func(s *Store) {
		s.fail = fn
	}
}

// New returns an online store.
func New(opts ...Option) *Store {
	s := &Store{
		events:    make(map[string]event.Event),
		following: make(map[string][]string),
		requests:  make(map[string]remote.FollowRequest),
		online:    true,
		idGen:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOnline toggles connectivity.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

// SetFailure replaces the failure hook; nil clears it.
func (s *Store) SetFailure(fn func(Call) error) {
	s.mu.Lock()
	s.fail = fn
	s.mu.Unlock()
}

func (s *Store) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Calls returns the recorded calls in arrival order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Mutations returns only add, update and delete calls.
func (s *Store) Mutations() []Call {
	out := make([]Call, 0)
	for _, c := range s.Calls() {
		switch c.Method {
		case MethodAdd, MethodUpdate, MethodDelete:
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns every stored event, newest first.
func (s *Store) Snapshot() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Clone())
	}
	event.SortNewestFirst(out)
	return out
}

// begin records c and reports whether the call may proceed. Callers hold mu.
func (s *Store) begin(c Call) error {
	s.calls = append(s.calls, c)
	if !s.online {
		return remote.ErrOffline
	}
	if s.fail != nil {
		if err := s.fail(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Events(_ context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(Call{Method: MethodEvents, Subject: subjectID}); err != nil {
		return nil, err
	}
	return s.collect(map[string]bool{subjectID: true}, q), nil
}

func (s *Store) FollowingEvents(_ context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(Call{Method: MethodFollowingEvents, Subject: subjectID}); err != nil {
		return nil, err
	}
	authors := make(map[string]bool)
	for _, id := range s.following[subjectID] {
		authors[id] = true
	}
	return s.collect(authors, q), nil
}

func (s *Store) collect(authors map[string]bool, q remote.Query) []event.Event {
	out := make([]event.Event, 0)
	for _, e := range s.events {
		if authors[e.AuthorID] && remote.Matches(q, e) {
			out = append(out, e.Clone())
		}
	}
	event.SortNewestFirst(out)
	return out
}

func (s *Store) AddEvent(_ context.Context, e event.Event) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(Call{Method: MethodAdd, Event: e.Clone()}); err != nil {
		return "", err
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = s.idGen()
	s.events[e.ID] = e.Clone()
	return e.ID, nil
}

func (s *Store) UpdateEvent(_ context.Context, id string, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(Call{Method: MethodUpdate, ID: id, Event: e.Clone()}); err != nil {
		return err
	}
	if _, ok := s.events[id]; !ok {
		return remote.ErrNotFound
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.ID = id
	s.events[id] = e.Clone()
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(Call{Method: MethodDelete, ID: id}); err != nil {
		return err
	}
	if _, ok := s.events[id]; !ok {
		return remote.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Store) Following(_ context.Context, subjectID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return nil, remote.ErrOffline
	}
	return append([]string(nil), s.following[subjectID]...), nil
}

func (s *Store) Follow(_ context.Context, subjectID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return remote.ErrOffline
	}
	s.addFollowing(subjectID, strings.TrimSpace(targetID))
	return nil
}

// addFollowing must be called with mu held.
func (s *Store) addFollowing(subjectID, targetID string) {
	for _, existing := range s.following[subjectID] {
		if existing == targetID {
			return
		}
	}
	s.following[subjectID] = append(s.following[subjectID], targetID)
	sort.Strings(s.following[subjectID])
}

func (s *Store) Unfollow(_ context.Context, subjectID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return remote.ErrOffline
	}
	list := s.following[subjectID]
	filtered := make([]string, 0, len(list))
	for _, existing := range list {
		if existing != targetID {
			filtered = append(filtered, existing)
		}
	}
	s.following[subjectID] = filtered
	return nil
}

func (s *Store) Followers(_ context.Context, subjectID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return nil, remote.ErrOffline
	}
	out := []string{}
	for follower, list := range s.following {
		for _, id := range list {
			if id == subjectID {
				out = append(out, follower)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) RequestFollow(_ context.Context, fromID, toID string) (remote.FollowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return remote.FollowRequest{}, remote.ErrOffline
	}
	for _, r := range s.requests {
		if r.From == fromID && r.To == toID && r.Status == remote.RequestPending {
			return r, remote.ErrRequestExists
		}
	}
	r := remote.FollowRequest{
		ID:     s.idGen(),
		From:   fromID,
		To:     toID,
		Status: remote.RequestPending,
		SentAt: time.Now().UTC(),
	}
	s.requests[r.ID] = r
	return r, nil
}

func (s *Store) RespondToRequest(_ context.Context, subjectID, requestID string, accept bool) (remote.FollowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return remote.FollowRequest{}, remote.ErrOffline
	}
	r, ok := s.requests[requestID]
	if !ok || r.To != subjectID || r.Status != remote.RequestPending {
		return remote.FollowRequest{}, remote.ErrRequestNotFound
	}
	r.Status = remote.RequestDeclined
	if accept {
		r.Status = remote.RequestAccepted
		s.addFollowing(r.From, r.To)
	}
	s.requests[requestID] = r
	return r, nil
}

func (s *Store) PendingRequests(_ context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.pending(func(r remote.FollowRequest) bool { return r.To == subjectID })
}

func (s *Store) SentRequests(_ context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.pending(func(r remote.FollowRequest) bool { return r.From == subjectID })
}

func (s *Store) pending(match func(remote.FollowRequest) bool) ([]remote.FollowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.online {
		return nil, remote.ErrOffline
	}
	out := []remote.FollowRequest{}
	for _, r := range s.requests {
		if r.Status == remote.RequestPending && match(r) {
			out = append(out, r)
		}
	}
	remote.SortRequests(out)
	return out, nil
}
