// Package remote defines the contract for the backend that durably stores mood
// events and the follow graph. The history cache and pending queue talk to it
// only through Store.
package remote

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
)

var (
	// ErrOffline is returned by adapters that cannot reach the backend.
	ErrOffline = errors.New("remote: offline")
	// ErrNotFound is returned when an id does not exist remotely.
	ErrNotFound = errors.New("remote: event not found")
	// ErrRequestExists is returned when the same follow request is already
	// pending.
	ErrRequestExists = errors.New("remote: follow request already pending")
	// ErrRequestNotFound is returned for unknown or already answered requests.
	ErrRequestNotFound = errors.New("remote: follow request not found")
)

// Query narrows an events request. The zero value matches everything.
type Query struct {
	// Since keeps events strictly after this instant.
	Since time.Time
	State mood.State
	// Text matches the trigger, case-insensitively.
	Text string
}

// Store is the remote persistence contract. Listing calls return events
// ordered newest first.
type Store interface {
	Events(ctx context.Context, subjectID string, q Query) ([]event.Event, error)
	FollowingEvents(ctx context.Context, subjectID string, q Query) ([]event.Event, error)
	AddEvent(ctx context.Context, e event.Event) (string, error)
	UpdateEvent(ctx context.Context, id string, e event.Event) error
	DeleteEvent(ctx context.Context, id string) error
	// IsOnline is a cheap synchronous connectivity check.
	IsOnline() bool
}

// FollowGraph is implemented by stores that manage who follows whom.
type FollowGraph interface {
	Following(ctx context.Context, subjectID string) ([]string, error)
	Follow(ctx context.Context, subjectID, targetID string) error
	Unfollow(ctx context.Context, subjectID, targetID string) error
}

// RequestStatus is the lifecycle of a FollowRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// FollowRequest asks To to let From see their public moods.
type FollowRequest struct {
	ID     string        `json:"id" bson:"_id"`
	From   string        `json:"from" bson:"from"`
	To     string        `json:"to" bson:"to"`
	Status RequestStatus `json:"status" bson:"status"`
	SentAt time.Time     `json:"sentAt" bson:"sentAt"`
}

// FollowRequests is implemented by stores where following needs the
// target's consent. Accepting a request adds From to the followers of To.
type FollowRequests interface {
	RequestFollow(ctx context.Context, fromID, toID string) (FollowRequest, error)
	// RespondToRequest answers a pending request addressed to subjectID.
	RespondToRequest(ctx context.Context, subjectID, requestID string, accept bool) (FollowRequest, error)
	// PendingRequests lists the pending requests addressed to subjectID,
	// oldest first.
	PendingRequests(ctx context.Context, subjectID string) ([]FollowRequest, error)
	// SentRequests lists subjectID's own requests that are still pending.
	SentRequests(ctx context.Context, subjectID string) ([]FollowRequest, error)
	Followers(ctx context.Context, subjectID string) ([]string, error)
}

// Snapshotter is implemented by stores that keep a device-local copy of what
// they last held. Caches read it while the store reports ErrOffline.
type Snapshotter interface {
	CachedEvents(ctx context.Context, subjectID string, q Query) ([]event.Event, error)
	CachedFollowingEvents(ctx context.Context, subjectID string, q Query) ([]event.Event, error)
}

// ChangeType describes a remote change notification.
type ChangeType int

const (
	// ChangeAuthor means the events of Author changed.
	ChangeAuthor ChangeType = iota
	// ChangeInvalidated means the caller should reload everything.
	ChangeInvalidated
)

// Change is emitted by Watcher implementations.
type Change struct {
	Type   ChangeType
	Author string
}

// Watcher is implemented by stores that can push change notifications.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// Matches applies q the way adapters filter server side.
func Matches(q Query, e event.Event) bool {
	if !q.Since.IsZero() && !e.Timestamp.After(q.Since) {
		return false
	}
	if q.State != mood.None && e.State != q.State {
		return false
	}
	if q.Text != "" {
		if e.Trigger == "" || !strings.Contains(strings.ToLower(e.Trigger), strings.ToLower(q.Text)) {
			return false
		}
	}
	return true
}

// Filter returns the events matching q, preserving order.
func Filter(q Query, events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if Matches(q, e) {
			out = append(out, e)
		}
	}
	return out
}

// SortRequests orders requests oldest first, breaking ties by id.
func SortRequests(reqs []FollowRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].SentAt.Equal(reqs[j].SentAt) {
			return reqs[i].SentAt.Before(reqs[j].SentAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
}
