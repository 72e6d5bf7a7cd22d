package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tableflip.dev/moodlog/pkg/analytics"
	"tableflip.dev/moodlog/pkg/mood"
	"tableflip.dev/moodlog/pkg/profile"
	"tableflip.dev/moodlog/pkg/remote"
	"tableflip.dev/moodlog/pkg/remote/memory"
	moodmcp "tableflip.dev/moodlog/pkg/runner/mcp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, store *memory.Store) *gin.Engine {
	t.Helper()
	return routerFor(t, store, "alice")
}

func routerFor(t *testing.T, store *memory.Store, subject string) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := profile.New(store, subject, profile.Config{
		Logger:     logger,
		Aggregator: analytics.Aggregator{Location: time.UTC},
	})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	s := &Server{Service: moodmcp.NewService(p, mood.NewRegistry()), Logger: logger}
	return s.Router()
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := do(t, newRouter(t, memory.New()), http.MethodGet, "/ping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
}

func TestEventLifecycle(t *testing.T) {
	r := newRouter(t, memory.New())

	w := do(t, r, http.MethodPost, "/api/v1/events", map[string]any{
		"emotionalState": "Happiness",
		"trigger":        "Got a good grade",
		"timestamp":      "2025-02-03T10:00:00Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: status %d: %s", w.Code, w.Body)
	}
	var added moodmcp.MutationResult
	if err := json.Unmarshal(w.Body.Bytes(), &added); err != nil || added.Event == nil {
		t.Fatalf("decode: %v %s", err, w.Body)
	}
	id := added.Event.ID

	w = do(t, r, http.MethodPut, "/api/v1/events/"+id, map[string]any{"emotionalState": "Surprise"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit: status %d: %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodGet, "/api/v1/events?scope=own", nil)
	var listed struct {
		Events []moodmcp.EventDTO `json:"events"`
		Count  int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil || listed.Count != 1 || listed.Events[0].State != "Surprise" {
		t.Fatalf("unexpected listing %s (%v)", w.Body, err)
	}

	w = do(t, r, http.MethodGet, "/api/v1/stats/2025/2", nil)
	var stats analytics.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil || stats.Total != 1 {
		t.Fatalf("unexpected stats %s (%v)", w.Body, err)
	}

	w = do(t, r, http.MethodDelete, "/api/v1/events/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/v1/events/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: status %d", w.Code)
	}
}

func TestOfflineAddIsAccepted(t *testing.T) {
	store := memory.New()
	r := newRouter(t, store)
	store.SetOnline(false)

	w := do(t, r, http.MethodPost, "/api/v1/events", map[string]any{"emotionalState": "Fear"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body)
	}
	w = do(t, r, http.MethodPost, "/api/v1/sync", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while offline, got %d", w.Code)
	}

	store.SetOnline(true)
	w = do(t, r, http.MethodPost, "/api/v1/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
	}
	w = do(t, r, http.MethodGet, "/api/v1/pending", nil)
	var pending struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil || pending.Count != 0 {
		t.Fatalf("expected empty queue, got %s", w.Body)
	}
}

func TestBadRequests(t *testing.T) {
	r := newRouter(t, memory.New())
	tests := map[string]struct {
		method, path string
		body         any
		want         int
	}{
		"missing state": {http.MethodPost, "/api/v1/events", map[string]any{"trigger": "x"}, http.StatusBadRequest},
		"half location": {http.MethodPost, "/api/v1/events", map[string]any{"emotionalState": "Fear", "latitude": 1.0}, http.StatusBadRequest},
		"bad window":    {http.MethodGet, "/api/v1/events?window=fortnight", nil, http.StatusBadRequest},
		"bad month":     {http.MethodGet, "/api/v1/stats/2025/13", nil, http.StatusBadRequest},
		"bad lat":       {http.MethodGet, "/api/v1/nearby?lat=north&lng=1", nil, http.StatusBadRequest},
		"unknown edit":  {http.MethodPut, "/api/v1/events/nope", map[string]any{"emotionalState": "Fear"}, http.StatusNotFound},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if w := do(t, r, tc.method, tc.path, tc.body); w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body)
			}
		})
	}
}

func TestFollowRequestRoutes(t *testing.T) {
	store := memory.New()
	alice := newRouter(t, store)
	bob := routerFor(t, store, "bob")

	w := do(t, alice, http.MethodPost, "/api/v1/following/bob", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var sent struct {
		Request remote.FollowRequest `json:"request"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil || sent.Request.ID == "" {
		t.Fatalf("decode request: %v (%s)", err, w.Body.String())
	}
	if w := do(t, alice, http.MethodPost, "/api/v1/following/bob", nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a repeat request, got %d", w.Code)
	}

	w = do(t, bob, http.MethodGet, "/api/v1/follow-requests", nil)
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil || listed.Count != 1 {
		t.Fatalf("expected one incoming request: %v (%s)", err, w.Body.String())
	}
	if w := do(t, bob, http.MethodGet, "/api/v1/follow-requests?sent=maybe", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	if w := do(t, alice, http.MethodPost, "/api/v1/follow-requests/"+sent.Request.ID+"/accept", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for the sender, got %d", w.Code)
	}
	if w := do(t, bob, http.MethodPost, "/api/v1/follow-requests/"+sent.Request.ID+"/accept", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, bob, http.MethodGet, "/api/v1/followers", nil)
	var followers struct {
		Followers []string `json:"followers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &followers); err != nil || len(followers.Followers) != 1 || followers.Followers[0] != "alice" {
		t.Fatalf("unexpected followers: %v (%s)", err, w.Body.String())
	}
	w = do(t, alice, http.MethodGet, "/api/v1/following", nil)
	var following struct {
		Following []string `json:"following"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &following); err != nil || len(following.Following) != 1 {
		t.Fatalf("unexpected following: %v (%s)", err, w.Body.String())
	}
}
