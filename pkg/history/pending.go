package history

import (
	"fmt"
	"time"

	"tableflip.dev/moodlog/pkg/event"
)

// OpKind is the kind of a pending mutation.
type OpKind int

const (
	OpAdd OpKind = iota
	OpEdit
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// OpState tracks an operation between queueing and confirmation. Confirmed
// operations leave the queue, so there is no confirmed state.
type OpState int

const (
	OpQueued OpState = iota
	OpInFlight
	OpFailed
)

func (s OpState) String() string {
	switch s {
	case OpQueued:
		return "queued"
	case OpInFlight:
		return "in-flight"
	case OpFailed:
		return "failed"
	default:
		return fmt.Sprintf("OpState(%d)", int(s))
	}
}

// Operation is a locally applied mutation awaiting remote confirmation.
type Operation struct {
	Seq     uint64
	Kind    OpKind
	EventID string
	// Event is the full event for adds and edits.
	Event     event.Event
	CreatedAt time.Time
	State     OpState
	Attempts  int
	LastErr   error
}

func (o Operation) clone() Operation {
	o.Event = o.Event.Clone()
	return o
}

// SyncReport summarises a replay of the queue.
type SyncReport struct {
	// Applied counts operations the store confirmed.
	Applied int
	// Remaining is the queue length afterwards.
	Remaining int
	// Failed is the operation that stopped the replay.
	Failed *Operation
	// IDs maps provisional ids to the ids the store assigned.
	IDs map[string]string
}

// resolve follows a confirmed add from its provisional id.
func (r SyncReport) resolve(id string) string {
	if storeID, ok := r.IDs[id]; ok {
		return storeID
	}
	return id
}

// applyOps replays ops over events the way they were applied to the cache.
func applyOps(events []event.Event, ops []Operation) []event.Event {
	for _, op := range ops {
		switch op.Kind {
		case OpAdd:
			if indexOf(events, op.EventID) < 0 {
				events = append(events, op.Event.Clone())
			}
		case OpEdit:
			if i := indexOf(events, op.EventID); i >= 0 {
				events[i] = op.Event.Clone()
			}
		case OpDelete:
			if i := indexOf(events, op.EventID); i >= 0 {
				events = append(events[:i], events[i+1:]...)
			}
		}
	}
	return events
}
