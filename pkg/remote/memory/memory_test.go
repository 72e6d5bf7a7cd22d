package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tableflip.dev/moodlog/pkg/remote"
)

func TestFollowRequests(t *testing.T) {
	ctx := context.Background()
	n := 0
	s := New(WithIDs(func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}))

	req, err := s.RequestFollow(ctx, "alice", "bob")
	if err != nil || req.ID != "r1" || req.Status != remote.RequestPending {
		t.Fatalf("request: %+v (%v)", req, err)
	}
	if _, err := s.RequestFollow(ctx, "alice", "bob"); !errors.Is(err, remote.ErrRequestExists) {
		t.Fatalf("expected ErrRequestExists, got %v", err)
	}
	if _, err := s.RespondToRequest(ctx, "alice", req.ID, true); !errors.Is(err, remote.ErrRequestNotFound) {
		t.Fatalf("the sender cannot answer, got %v", err)
	}
	if _, err := s.RespondToRequest(ctx, "bob", req.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	following, _ := s.Following(ctx, "alice")
	if len(following) != 1 || following[0] != "bob" {
		t.Fatalf("unexpected following %v", following)
	}
	followers, _ := s.Followers(ctx, "bob")
	if len(followers) != 1 || followers[0] != "alice" {
		t.Fatalf("unexpected followers %v", followers)
	}

	s.SetOnline(false)
	if _, err := s.PendingRequests(ctx, "bob"); !errors.Is(err, remote.ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
}
