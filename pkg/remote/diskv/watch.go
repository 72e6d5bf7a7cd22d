package diskv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tableflip.dev/moodlog/pkg/remote"
)

// Watch streams changes until ctx is cancelled. The channel is closed once ctx
// is done or the watcher fails. Slow consumers miss notifications rather than
// block the watcher; a reload picks the changes up anyway.
func (s *Store) Watch(ctx context.Context) (<-chan remote.Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("diskv: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				s.log.Warn("diskv: watcher close", "err", err)
			}
		})
	}

	dirs, err := collectDirs(s.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("diskv: enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("diskv: watch %s: %w", dir, err)
		}
	}

	changes := make(chan remote.Change, 64)

	go func() {
		defer close(changes)
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(c remote.Change) {
			select {
			case changes <- c:
			default:
			}
		}

		throttle := newThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Debug("diskv: watcher error", "err", err)
				throttle.Enqueue(remote.Change{Type: remote.ChangeInvalidated}, send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						dir := filepath.Clean(evt.Name)
						if _, found := watched[dir]; !found {
							if err := watcher.Add(dir); err != nil {
								s.log.Warn("diskv: watch directory", "dir", dir, "err", err)
							} else {
								watched[dir] = struct{}{}
							}
						}
						// Files written before the directory was watched are missed.
						if author, ok := s.authorForPath(dir); ok {
							throttle.Enqueue(remote.Change{Type: remote.ChangeAuthor, Author: author}, send)
						}
						continue
					}
				}
				if author, ok := s.authorForPath(evt.Name); ok {
					throttle.Enqueue(remote.Change{Type: remote.ChangeAuthor, Author: author}, send)
					continue
				}
				if filepath.Base(evt.Name) == offlineMarker || strings.HasSuffix(evt.Name, ".tmp") {
					continue
				}
				throttle.Enqueue(remote.Change{Type: remote.ChangeInvalidated}, send)
			}
		}
	}()

	return changes, nil
}

func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// authorForPath maps a file below basePath to the author segment of its key.
func (s *Store) authorForPath(path string) (string, bool) {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || rel == "." {
		return "", false
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	// A bare file in the root is an index or marker, not an event.
	if len(parts) < 2 || parts[0] == "" || strings.HasPrefix(parts[0], ".") {
		return "", false
	}
	return fromAuthor(parts[0]), true
}

// throttle coalesces bursts of filesystem activity into one notification per
// author. After Stop returns no further send happens.
type throttle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[remote.ChangeType]map[string]struct{}
	delay   time.Duration
	stopped bool
	// flushes counts scheduled flushes that have not finished.
	flushes sync.WaitGroup
}

func newThrottle(delay time.Duration) *throttle {
	return &throttle{
		delay:   delay,
		pending: make(map[remote.ChangeType]map[string]struct{}),
	}
}

func (t *throttle) Enqueue(c remote.Change, send func(remote.Change)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.pending[c.Type] == nil {
		t.pending[c.Type] = make(map[string]struct{})
	}
	t.pending[c.Type][c.Author] = struct{}{}
	if t.timer == nil {
		t.flushes.Add(1)
		t.timer = time.AfterFunc(t.delay, func() {
			defer t.flushes.Done()
			t.flush(send)
		})
	}
}

func (t *throttle) flush(send func(remote.Change)) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	pending := t.pending
	t.pending = make(map[remote.ChangeType]map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	// An invalidation supersedes per-author changes in the same burst.
	if _, ok := pending[remote.ChangeInvalidated]; ok {
		send(remote.Change{Type: remote.ChangeInvalidated})
		return
	}
	for author := range pending[remote.ChangeAuthor] {
		send(remote.Change{Type: remote.ChangeAuthor, Author: author})
	}
}

// Stop cancels the pending flush and waits for one already running.
func (t *throttle) Stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil && t.timer.Stop() {
		// The callback will never run, so it cannot mark itself done.
		t.flushes.Done()
	}
	t.timer = nil
	t.mu.Unlock()
	t.flushes.Wait()
}
