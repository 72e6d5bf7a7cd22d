// Package diskv implements remote.Store on a local diskv directory. It stands
// in for the hosted backend during development and powers the CLI.
package diskv

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/remote"
)

const (
	layoutISO     = "2006-01-02"
	followingFile = ".following.json"
	requestsFile  = ".requests.json"
	offlineMarker = ".offline"
)

// Store is a diskv backed remote.Store. It also manages the follow graph and
// follow requests as JSON files in the root, and watches the tree.
type Store struct {
	d        *diskv.Diskv
	basePath string
	log      *slog.Logger

	mu      sync.Mutex
	offline bool

	// graphMu guards the read-modify-write of the follow and request files.
	graphMu sync.Mutex
}

var (
	_ remote.Store          = (*Store)(nil)
	_ remote.FollowGraph    = (*Store)(nil)
	_ remote.FollowRequests = (*Store)(nil)
	_ remote.Watcher        = (*Store)(nil)
	_ remote.Snapshotter    = (*Store)(nil)
)

// Open creates a Store rooted at basePath.
func Open(basePath string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("diskv: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("diskv: ensure base path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
		}),
		basePath: basePath,
		log:      logger,
	}, nil
}

// SetOnline toggles simulated connectivity. It also maintains a marker file so
// other processes sharing the directory observe the same state.
func (s *Store) SetOnline(online bool) error {
	s.mu.Lock()
	s.offline = !online
	s.mu.Unlock()
	marker := filepath.Join(s.basePath, offlineMarker)
	if online {
		if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(marker, nil, 0o644)
}

// IsOnline reports false when SetOnline(false) was called here or by another
// process sharing the directory.
func (s *Store) IsOnline() bool {
	s.mu.Lock()
	offline := s.offline
	s.mu.Unlock()
	if offline {
		return false
	}
	_, err := os.Stat(filepath.Join(s.basePath, offlineMarker))
	return errors.Is(err, os.ErrNotExist)
}

func (s *Store) Events(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	if !s.IsOnline() {
		return nil, remote.ErrOffline
	}
	return s.CachedEvents(ctx, subjectID, q)
}

func (s *Store) FollowingEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	if !s.IsOnline() {
		return nil, remote.ErrOffline
	}
	return s.CachedFollowingEvents(ctx, subjectID, q)
}

// CachedEvents reads the files on disk whether or not the store is offline.
func (s *Store) CachedEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	return s.list(ctx, map[string]bool{toAuthor(subjectID): true}, q), nil
}

// CachedFollowingEvents is FollowingEvents without the connectivity check.
func (s *Store) CachedFollowingEvents(ctx context.Context, subjectID string, q remote.Query) ([]event.Event, error) {
	graph, err := s.loadFollowing()
	if err != nil {
		return nil, fmt.Errorf("diskv: load following: %w", err)
	}
	following := graph[subjectID]
	if len(following) == 0 {
		return []event.Event{}, nil
	}
	authors := make(map[string]bool, len(following))
	for _, id := range following {
		authors[toAuthor(id)] = true
	}
	return s.list(ctx, authors, q), nil
}

func (s *Store) AddEvent(_ context.Context, e event.Event) (string, error) {
	if !s.IsOnline() {
		return "", remote.ErrOffline
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = newID()
	if err := s.write(e); err != nil {
		return "", err
	}
	return e.ID, nil
}

func (s *Store) UpdateEvent(ctx context.Context, id string, e event.Event) error {
	if !s.IsOnline() {
		return remote.ErrOffline
	}
	if err := e.Validate(); err != nil {
		return err
	}
	key, ok := s.keyFor(ctx, id)
	if !ok {
		return remote.ErrNotFound
	}
	e.ID = id
	// The key embeds author and date, so rewrite under the new key first.
	if err := s.write(e); err != nil {
		return err
	}
	if newKey := toKey(e); newKey != key {
		if err := s.d.Erase(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if !s.IsOnline() {
		return remote.ErrOffline
	}
	key, ok := s.keyFor(ctx, id)
	if !ok {
		return remote.ErrNotFound
	}
	return s.d.Erase(key)
}

// Following lists who subjectID follows.
func (s *Store) Following(_ context.Context, subjectID string) ([]string, error) {
	if !s.IsOnline() {
		return nil, remote.ErrOffline
	}
	graph, err := s.loadFollowing()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), graph[subjectID]...), nil
}

func (s *Store) Follow(_ context.Context, subjectID, targetID string) error {
	if !s.IsOnline() {
		return remote.ErrOffline
	}
	subjectID = strings.TrimSpace(subjectID)
	targetID = strings.TrimSpace(targetID)
	if subjectID == "" || targetID == "" {
		return errors.New("diskv: subject and target required")
	}
	if subjectID == targetID {
		return errors.New("diskv: cannot follow yourself")
	}
	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	return s.addFollowing(subjectID, targetID)
}

// addFollowing must be called with graphMu held.
func (s *Store) addFollowing(subjectID, targetID string) error {
	graph, err := s.loadFollowing()
	if err != nil {
		return err
	}
	for _, existing := range graph[subjectID] {
		if existing == targetID {
			return nil
		}
	}
	graph[subjectID] = append(graph[subjectID], targetID)
	sort.Strings(graph[subjectID])
	return s.saveFollowing(graph)
}

func (s *Store) Unfollow(_ context.Context, subjectID, targetID string) error {
	if !s.IsOnline() {
		return remote.ErrOffline
	}
	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	graph, err := s.loadFollowing()
	if err != nil {
		return err
	}
	list := graph[subjectID]
	filtered := list[:0]
	for _, existing := range list {
		if existing != targetID {
			filtered = append(filtered, existing)
		}
	}
	graph[subjectID] = filtered
	return s.saveFollowing(graph)
}

func (s *Store) Followers(_ context.Context, subjectID string) ([]string, error) {
	if !s.IsOnline() {
		return nil, remote.ErrOffline
	}
	graph, err := s.loadFollowing()
	if err != nil {
		return nil, err
	}
	out := []string{}
	for follower, list := range graph {
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
	if !s.IsOnline() {
		return remote.FollowRequest{}, remote.ErrOffline
	}
	if fromID == "" || toID == "" || fromID == toID {
		return remote.FollowRequest{}, errors.New("diskv: a request needs two different users")
	}
	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	reqs, err := s.loadRequests()
	if err != nil {
		return remote.FollowRequest{}, err
	}
	for _, r := range reqs {
		if r.From == fromID && r.To == toID && r.Status == remote.RequestPending {
			return r, remote.ErrRequestExists
		}
	}
	r := remote.FollowRequest{
		ID:     uuid.NewString(),
		From:   fromID,
		To:     toID,
		Status: remote.RequestPending,
		SentAt: time.Now().UTC(),
	}
	if err := s.saveRequests(append(reqs, r)); err != nil {
		return remote.FollowRequest{}, err
	}
	return r, nil
}

func (s *Store) RespondToRequest(_ context.Context, subjectID, requestID string, accept bool) (remote.FollowRequest, error) {
	if !s.IsOnline() {
		return remote.FollowRequest{}, remote.ErrOffline
	}
	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	reqs, err := s.loadRequests()
	if err != nil {
		return remote.FollowRequest{}, err
	}
	for i, r := range reqs {
		if r.ID != requestID {
			continue
		}
		if r.To != subjectID || r.Status != remote.RequestPending {
			break
		}
		if accept {
			if err := s.addFollowing(r.From, r.To); err != nil {
				return remote.FollowRequest{}, err
			}
			r.Status = remote.RequestAccepted
		} else {
			r.Status = remote.RequestDeclined
		}
		reqs[i] = r
		return r, s.saveRequests(reqs)
	}
	return remote.FollowRequest{}, remote.ErrRequestNotFound
}

func (s *Store) PendingRequests(_ context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.pendingRequests(func(r remote.FollowRequest) bool { return r.To == subjectID })
}

func (s *Store) SentRequests(_ context.Context, subjectID string) ([]remote.FollowRequest, error) {
	return s.pendingRequests(func(r remote.FollowRequest) bool { return r.From == subjectID })
}

func (s *Store) pendingRequests(match func(remote.FollowRequest) bool) ([]remote.FollowRequest, error) {
	if !s.IsOnline() {
		return nil, remote.ErrOffline
	}
	reqs, err := s.loadRequests()
	if err != nil {
		return nil, err
	}
	// The file is append-only, so it is already oldest first.
	out := []remote.FollowRequest{}
	for _, r := range reqs {
		if r.Status == remote.RequestPending && match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) list(ctx context.Context, authors map[string]bool, q remote.Query) []event.Event {
	all := make([]event.Event, 0)
	for key := range s.d.Keys(ctx.Done()) {
		pk := keyToPathTransform(key)
		if len(pk.Path) == 0 || !authors[pk.Path[0]] {
			continue
		}
		e, err := s.read(key)
		if err != nil {
			s.log.Warn("diskv: skipping unreadable event", "key", key, "err", err)
			continue
		}
		if remote.Matches(q, e) {
			all = append(all, e)
		}
	}
	event.SortNewestFirst(all)
	return all
}

func (s *Store) read(key string) (event.Event, error) {
	val, err := s.d.Read(key)
	if err != nil {
		return event.Event{}, err
	}
	e := event.Event{}
	if err := json.Unmarshal(val, &e); err != nil {
		return event.Event{}, err
	}
	e.ID = keyToPathTransform(key).FileName
	return e, nil
}

func (s *Store) write(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.d.Write(toKey(e), data)
}

func (s *Store) keyFor(ctx context.Context, id string) (string, bool) {
	if strings.TrimSpace(id) == "" {
		return "", false
	}
	cancel := make(chan struct{})
	defer close(cancel)
	for key := range s.d.Keys(cancel) {
		if keyToPathTransform(key).FileName == id {
			return key, true
		}
		if ctx.Err() != nil {
			return "", false
		}
	}
	return "", false
}

func (s *Store) followingPath() string {
	return filepath.Join(s.basePath, followingFile)
}

func (s *Store) loadFollowing() (map[string][]string, error) {
	data, err := os.ReadFile(s.followingPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string][]string), nil
		}
		return nil, err
	}
	graph := make(map[string][]string)
	if len(data) == 0 {
		return graph, nil
	}
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func (s *Store) saveFollowing(graph map[string][]string) error {
	return s.replaceFile(s.followingPath(), graph)
}

func (s *Store) loadRequests() ([]remote.FollowRequest, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, requestsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var reqs []remote.FollowRequest
	if len(data) == 0 {
		return reqs, nil
	}
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("diskv: decode %s: %w", requestsFile, err)
	}
	return reqs, nil
}

func (s *Store) saveRequests(reqs []remote.FollowRequest) error {
	return s.replaceFile(filepath.Join(s.basePath, requestsFile), reqs)
}

// replaceFile writes v as indented JSON through a temp file and rename.
func (s *Store) replaceFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

// toKey makes `author-yyyy-mm-dd-id`, nesting events by author and day.
func toKey(e event.Event) string {
	return fmt.Sprintf("%s-%s-%s", toAuthor(e.AuthorID), e.Timestamp.UTC().Format(layoutISO), e.ID)
}

// Ids and authors are encoded without '-' since it separates key segments.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func toAuthor(s string) string {
	if s == "" {
		return "_"
	}
	return hex.EncodeToString([]byte(s))
}

func fromAuthor(s string) string {
	if s == "_" {
		return ""
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Sprintf("fromAuthor: %s", err)
	}
	return string(b)
}
