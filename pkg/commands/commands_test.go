package commands

import (
	"net"
	"testing"
	"time"

	"tableflip.dev/moodlog/pkg/commands/options"
	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/filter"
	"tableflip.dev/moodlog/pkg/mood"
)

func TestNewRegistersCommands(t *testing.T) {
	root := New()
	for _, name := range []string{"add", "edit", "delete", "list", "nearby", "stats", "trend", "sync",
		"pending", "follow", "unfollow", "following", "followers", "requests", "accept", "decline", "connectivity", "seed", "watch", "mcp", "serve", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected command %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestCriteria(t *testing.T) {
	c, err := criteria(&options.FilterOptions{Scope: "feed", Window: "week", Mood: "happiness", Trigger: " exam "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Scope != filter.ScopeFollowed || c.Window != filter.LastWeek || c.State != mood.Happiness || c.Trigger != "exam" {
		t.Fatalf("unexpected criteria %+v", c)
	}
	for _, fo := range []*options.FilterOptions{
		{Scope: "everyone"},
		{Window: "fortnight"},
		{Mood: "boredom"},
	} {
		if _, err := criteria(fo); err == nil {
			t.Fatalf("expected error for %+v", fo)
		}
	}
}

func TestSince(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := []event.Event{
		{ID: "a", Timestamp: event.At(now.Add(-time.Hour))},
		{ID: "b", Timestamp: event.At(now.Add(-72 * time.Hour))},
	}

	got, label, err := since(events, "2d", now)
	if err != nil || label != "2d" || len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected since %v %q (%v)", got, label, err)
	}
	got, label, err = since(events, "", now)
	if err != nil || label != "" || len(got) != 2 {
		t.Fatalf("blank since should keep everything, got %v %q (%v)", got, label, err)
	}
	if _, _, err := since(events, "2 fortnights", now); err == nil {
		t.Fatal("expected age error")
	}
}

func TestListenURL(t *testing.T) {
	tests := map[string]struct {
		host string
		addr net.Addr
		want string
	}{
		"host":     {host: "127.0.0.1", addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8081}, want: "http://127.0.0.1:8081"},
		"wildcard": {host: "0.0.0.0", addr: &net.TCPAddr{IP: net.IPv4zero, Port: 80}, want: "http://127.0.0.1:80"},
		"blank":    {host: "", addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 9000}, want: "http://10.0.0.2:9000"},
		"ipv6":     {host: "::1", addr: &net.TCPAddr{IP: net.IPv6loopback, Port: 1}, want: "http://[::1]:1"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := listenURL("http", tc.host, tc.addr); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
