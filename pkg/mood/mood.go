// Package mood defines the catalog of emotional states a mood event can carry.
package mood

import (
	"fmt"
	"strings"
	"sync"
)

// State names one emotional state. The zero value means no state was chosen.
type State string

const (
	Anger     State = "Anger"
	Confusion State = "Confusion"
	Disgust   State = "Disgust"
	Fear      State = "Fear"
	Happiness State = "Happiness"
	Sadness   State = "Sadness"
	Shame     State = "Shame"
	Surprise  State = "Surprise"

	// None is the neutral placeholder used where no state is known.
	None State = ""
)

// BaseStates returns the built-in states in declaration order.
func BaseStates() []State {
	return []State{
		Anger,
		Confusion,
		Disgust,
		Fear,
		Happiness,
		Sadness,
		Shame,
		Surprise,
	}
}

func (s State) String() string {
	if s == None {
		return "none"
	}
	return string(s)
}

// Registry is an ordered, extensible catalog of states. Order is registration
// order and is used wherever a deterministic tie-break between states is needed.
type Registry struct {
	mu     sync.RWMutex
	order  []State
	byName map[string]State
}

// Default is the registry used by callers that do not inject their own.
var Default = NewRegistry()

// NewRegistry returns a registry seeded with BaseStates.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Register adds a state, replacing an existing one with the same name (case
// insensitive) in place. It returns the replaced state and whether one existed.
func (r *Registry) Register(s State) (State, bool) {
	key := normalize(string(s))
	if key == "" {
		return None, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.byName[key]
	if ok {
		for i := range r.order {
			if r.order[i] == prev {
				r.order[i] = s
				break
			}
		}
	} else {
		r.order = append(r.order, s)
	}
	r.byName[key] = s
	return prev, ok
}

// Lookup resolves a name to a registered state, ignoring case and surrounding space.
func (r *Registry) Lookup(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[normalize(name)]
	return s, ok
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Remove drops a state, base states included.
func (r *Registry) Remove(name string) (State, bool) {
	key := normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[key]
	if !ok {
		return None, false
	}
	delete(r.byName, key)
	for i := range r.order {
		if r.order[i] == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return s, true
}

// Reset restores the registry to BaseStates only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = BaseStates()
	r.byName = make(map[string]State, len(r.order))
	for _, s := range r.order {
		r.byName[normalize(string(s))] = s
	}
}

// All returns the registered states in order. The slice is a copy.
func (r *Registry) All() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]State(nil), r.order...)
}

// Index returns the position of s in registration order, or len(All()) for
// states the registry does not know so they sort after every known state.
func (r *Registry) Index(s State) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, candidate := range r.order {
		if candidate == s {
			return i
		}
	}
	return len(r.order)
}

// Parse resolves name against r, failing for blank or unknown names.
func (r *Registry) Parse(name string) (State, error) {
	if strings.TrimSpace(name) == "" {
		return None, fmt.Errorf("mood: state name required")
	}
	s, ok := r.Lookup(name)
	if !ok {
		return None, fmt.Errorf("mood: unknown state %q", name)
	}
	return s, nil
}

// Parse resolves name against the Default registry.
func Parse(name string) (State, error) {
	return Default.Parse(name)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
