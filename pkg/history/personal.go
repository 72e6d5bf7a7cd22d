package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tableflip.dev/moodlog/pkg/event"
	"tableflip.dev/moodlog/pkg/remote"
)

// PersonalHistory is the owner's own history. Mutations are applied to the
// cache at once and queued until the remote store confirms them; the queue is
// replayed in FIFO order.
type PersonalHistory struct {
	*Cache

	// opMu serialises mutations and syncs so at most one remote mutation is
	// in flight for the subject.
	opMu sync.Mutex

	qmu   sync.Mutex
	queue []Operation
	seq   uint64
}

// NewPersonal creates an unloaded personal history for subject.
func NewPersonal(store remote.Store, subject string, opts ...Option) *PersonalHistory {
	p := &PersonalHistory{Cache: New(store, subject, Personal, opts...)}
	p.Cache.overlay = p.overlayPending
	return p
}

// Load is restricted to Personal mode.
func (p *PersonalHistory) Load(ctx context.Context, subject string) error {
	return p.Cache.Load(ctx, subject, Personal)
}

// AddEvent stamps e with the subject and, when unset, the current time, then
// shows it in the cache under a provisional id. The returned event carries the
// store id when the store confirmed it. Otherwise the error wraps ErrPending
// and the cause, and the add waits in the queue.
func (p *PersonalHistory) AddEvent(ctx context.Context, e event.Event) (event.Event, error) {
	if !e.IsValid() {
		return event.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, e.Validate())
	}
	p.opMu.Lock()
	defer p.opMu.Unlock()

	e = e.Clone()
	e.AuthorID = p.Subject()
	e.EnsureTimestamp(p.now())
	e.ID = event.NewLocalID()
	p.insert(e)
	op := p.enqueue(OpAdd, e.ID, e)

	report, err := p.submit(ctx, op)
	if cur, ok := p.EventByID(report.resolve(e.ID)); ok {
		e = cur
	}
	return e, err
}

// EditEvent replaces the cached event id with updates, keeping its id and
// author and, when updates has none, its timestamp. Unknown ids fail with
// ErrNotFound and never reach the store.
func (p *PersonalHistory) EditEvent(ctx context.Context, id string, updates event.Event) (event.Event, error) {
	if !updates.IsValid() {
		return event.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, updates.Validate())
	}
	p.opMu.Lock()
	defer p.opMu.Unlock()

	existing, ok := p.EventByID(id)
	if !ok {
		return event.Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	updated := updates.Clone()
	updated.ID = existing.ID
	updated.AuthorID = existing.AuthorID
	if updated.Timestamp.IsZero() {
		updated.Timestamp = existing.Timestamp
	}
	if updated.Visibility == "" {
		updated.Visibility = existing.Visibility
	}
	p.replace(id, updated)
	op := p.enqueue(OpEdit, id, updated)

	report, err := p.submit(ctx, op)
	if cur, ok := p.EventByID(report.resolve(id)); ok {
		updated = cur
	}
	return updated, err
}

// DeleteEvent removes id from the cache and queues the remote delete.
func (p *PersonalHistory) DeleteEvent(ctx context.Context, id string) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	removed, ok := p.remove(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	op := p.enqueue(OpDelete, id, removed)
	_, err := p.submit(ctx, op)
	return err
}

// HasPendingChanges reports whether any mutation awaits confirmation.
func (p *PersonalHistory) HasPendingChanges() bool {
	return p.PendingCount() > 0
}

// PendingCount is the queue length.
func (p *PersonalHistory) PendingCount() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return len(p.queue)
}

// Pending returns a copy of the queue in replay order.
func (p *PersonalHistory) Pending() []Operation {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	out := make([]Operation, len(p.queue))
	for i, op := range p.queue {
		out[i] = op.clone()
	}
	return out
}

// SyncPendingChanges replays the queue when the store is online. Each
// operation leaves the queue only once confirmed; the first failure stops the
// replay and leaves it and everything after it queued. When offline the queue
// is untouched and remote.ErrOffline is returned. A sync that empties the
// queue refreshes the cache.
func (p *PersonalHistory) SyncPendingChanges(ctx context.Context) (SyncReport, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.store == nil {
		return SyncReport{Remaining: p.PendingCount()}, ErrNoStore
	}
	if !p.store.IsOnline() {
		return SyncReport{Remaining: p.PendingCount()}, remote.ErrOffline
	}
	report, err := p.drain(ctx)
	if err != nil {
		return report, err
	}
	if report.Applied > 0 {
		if err := p.Refresh(ctx); err != nil && !errors.Is(err, ErrStaleLoad) {
			return report, fmt.Errorf("history: refresh after sync: %w", err)
		}
	}
	return report, nil
}

// Discard drops every queued operation, as on logout. Local changes already
// applied to the cache stay until the next load.
func (p *PersonalHistory) Discard() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	n := len(p.queue)
	p.queue = nil
	if n > 0 {
		p.log.Info("history: discarded pending operations", "count", n)
	}
	return n
}

// submit pushes the queue, which ends with op, to the store when online.
func (p *PersonalHistory) submit(ctx context.Context, op Operation) (SyncReport, error) {
	if p.store == nil {
		return SyncReport{}, fmt.Errorf("%w: %w", ErrPending, ErrNoStore)
	}
	if !p.store.IsOnline() {
		p.log.Debug("history: offline, queued", "op", op.Kind, "id", op.EventID)
		return SyncReport{}, fmt.Errorf("%w: %w", ErrPending, remote.ErrOffline)
	}
	report, err := p.drain(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrPending, err)
	}
	return report, nil
}

// drain replays the queue head first until it is empty or an operation fails.
// Callers hold opMu.
func (p *PersonalHistory) drain(ctx context.Context) (SyncReport, error) {
	report := SyncReport{IDs: make(map[string]string)}
	for {
		op, ok := p.head()
		if !ok {
			break
		}
		storeID, err := p.send(ctx, op)
		if op.Kind == OpDelete && errors.Is(err, remote.ErrNotFound) {
			// Already gone remotely; the delete has nothing left to do.
			p.log.Debug("history: delete target already gone", "id", op.EventID)
			err = nil
		}
		if err != nil {
			failed := p.fail(op.Seq, err)
			report.Failed = &failed
			report.Remaining = p.PendingCount()
			p.log.Warn("history: pending operation failed", "op", op.Kind, "id", op.EventID, "attempts", failed.Attempts, "err", err)
			return report, err
		}
		if p.confirm(op, storeID) {
			report.IDs[op.EventID] = storeID
		}
		report.Applied++
	}
	report.Remaining = p.PendingCount()
	return report, nil
}

func (p *PersonalHistory) send(ctx context.Context, op Operation) (string, error) {
	switch op.Kind {
	case OpAdd:
		e := op.Event.Clone()
		e.ID = ""
		return p.store.AddEvent(ctx, e)
	case OpEdit:
		e := op.Event.Clone()
		e.ID = op.EventID
		return "", p.store.UpdateEvent(ctx, op.EventID, e)
	case OpDelete:
		return "", p.store.DeleteEvent(ctx, op.EventID)
	default:
		return "", fmt.Errorf("history: unknown operation %v", op.Kind)
	}
}

func (p *PersonalHistory) enqueue(kind OpKind, id string, e event.Event) Operation {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	p.seq++
	op := Operation{
		Seq:       p.seq,
		Kind:      kind,
		EventID:   id,
		Event:     e.Clone(),
		CreatedAt: p.now(),
		State:     OpQueued,
	}
	p.queue = append(p.queue, op)
	return op.clone()
}

// head marks the first queued operation in flight and returns it.
func (p *PersonalHistory) head() (Operation, bool) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if len(p.queue) == 0 {
		return Operation{}, false
	}
	p.queue[0].State = OpInFlight
	p.queue[0].Attempts++
	return p.queue[0].clone(), true
}

// fail records err on the operation and makes it eligible for retry.
func (p *PersonalHistory) fail(seq uint64, err error) Operation {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	for i := range p.queue {
		if p.queue[i].Seq == seq {
			p.queue[i].State = OpFailed
			p.queue[i].LastErr = err
			failed := p.queue[i].clone()
			p.queue[i].State = OpQueued
			return failed
		}
	}
	return Operation{Seq: seq, State: OpFailed, LastErr: err}
}

// confirm pops op and, for adds, swaps its provisional id for storeID in the
// cache and in every later operation.
func (p *PersonalHistory) confirm(op Operation, storeID string) bool {
	remap := op.Kind == OpAdd && storeID != "" && storeID != op.EventID

	p.qmu.Lock()
	if len(p.queue) > 0 && p.queue[0].Seq == op.Seq {
		p.queue = p.queue[1:]
	}
	if remap {
		for i := range p.queue {
			if p.queue[i].EventID == op.EventID {
				p.queue[i].EventID = storeID
				p.queue[i].Event.ID = storeID
			}
		}
	}
	p.qmu.Unlock()

	if remap {
		p.remapID(op.EventID, storeID)
	}
	p.log.Debug("history: confirmed", "op", op.Kind, "id", op.EventID, "storeId", storeID)
	return remap
}

// overlayPending keeps queued changes visible over freshly loaded events.
// It runs under the cache lock.
func (p *PersonalHistory) overlayPending(events []event.Event) []event.Event {
	p.qmu.Lock()
	ops := make([]Operation, len(p.queue))
	copy(ops, p.queue)
	p.qmu.Unlock()
	return applyOps(events, ops)
}
