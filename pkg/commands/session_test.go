package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/fatih/color"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/remote"
	"tableflip.dev/moodlog/pkg/remote/diskv"
)

// useStore points every command at a fresh diskv directory for subject and
// returns the directory.
func useStore(t *testing.T, subject string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("MOODLOG_CONFIG_PATH", dir)
	t.Setenv("MOODLOG_BACKEND", "diskv")
	t.Setenv("MOODLOG_PATH", filepath.Join(dir, "store"))
	t.Setenv("MOODLOG_SUBJECT", subject)
	t.Setenv("MOODLOG_OFFLINE", "false")
	return filepath.Join(dir, "store")
}

// run executes one command line and returns what it printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	prev := color.Output
	color.Output = &buf
	defer func() { color.Output = prev }()

	root := New()
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("moodlog %v: %v", args, err)
	}
	return buf.String()
}

func decode(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
}

func listOwn(t *testing.T) []event.Event {
	t.Helper()
	var events []event.Event
	decode(t, run(t, "list", "--json"), &events)
	return events
}

func TestAddListSync(t *testing.T) {
	useStore(t, "alice")

	var added struct {
		Event  event.Event `json:"event"`
		Queued bool        `json:"queued"`
	}
	decode(t, run(t, "add", "happiness", "--trigger", "Great workout", "--json"), &added)
	if added.Queued || added.Event.ID == "" || event.IsLocalID(added.Event.ID) {
		t.Fatalf("expected a confirmed event, got %+v", added)
	}

	events := listOwn(t)
	if len(events) != 1 || events[0].ID != added.Event.ID || events[0].State != mood.Happiness || events[0].Trigger != "Great workout" {
		t.Fatalf("unexpected listing %+v", events)
	}

	var synced struct {
		Online  bool `json:"online"`
		History int  `json:"history"`
		Feed    int  `json:"feed"`
	}
	decode(t, run(t, "sync", "--json"), &synced)
	if !synced.Online || synced.History != 1 || synced.Feed != 0 {
		t.Fatalf("unexpected sync %+v", synced)
	}
}

func TestOfflineEditIsQueued(t *testing.T) {
	path := useStore(t, "alice")
	run(t, "add", "fear", "--trigger", "exam", "--json")
	id := listOwn(t)[0].ID

	run(t, "connectivity", "offline")
	var edited struct {
		Event  event.Event `json:"event"`
		Queued bool        `json:"queued"`
	}
	decode(t, run(t, "edit", id, "--mood", "sadness", "--json"), &edited)
	if !edited.Queued || edited.Event.ID != id || edited.Event.State != mood.Sadness {
		t.Fatalf("expected a queued edit, got %+v", edited)
	}

	// The queue ends with the process, so the store still has the original.
	store, err := diskv.Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stored, err := store.CachedEvents(context.Background(), "alice", remote.Query{})
	if err != nil || len(stored) != 1 || stored[0].State != mood.Fear {
		t.Fatalf("unexpected stored events %+v (%v)", stored, err)
	}
}

func TestFollowRequestCommands(t *testing.T) {
	useStore(t, "alice")
	var sent struct {
		Request remote.FollowRequest `json:"request"`
	}
	decode(t, run(t, "follow", "bob", "--json"), &sent)
	if sent.Request.Status != remote.RequestPending || sent.Request.To != "bob" {
		t.Fatalf("unexpected request %+v", sent.Request)
	}

	t.Setenv("MOODLOG_SUBJECT", "bob")
	var pending struct {
		Requests []remote.FollowRequest `json:"requests"`
	}
	decode(t, run(t, "requests", "--json"), &pending)
	if len(pending.Requests) != 1 || pending.Requests[0].ID != sent.Request.ID {
		t.Fatalf("unexpected pending %+v", pending)
	}
	run(t, "accept", sent.Request.ID, "--json")

	var followers struct {
		Followers []string `json:"followers"`
	}
	decode(t, run(t, "followers", "--json"), &followers)
	if len(followers.Followers) != 1 || followers.Followers[0] != "alice" {
		t.Fatalf("unexpected followers %+v", followers)
	}

	t.Setenv("MOODLOG_SUBJECT", "alice")
	var following struct {
		Following []string `json:"following"`
	}
	decode(t, run(t, "following", "--json"), &following)
	if len(following.Following) != 1 || following.Following[0] != "bob" {
		t.Fatalf("unexpected following %+v", following)
	}
}
