package interaction

import (
	"sync"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
)

// State is a toggle's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePending:
		return "PENDING"
	case StateCommitted:
		return "COMMITTED"
	case StateRolledBack:
		return "ROLLED_BACK"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// Toggle is one like/unlike invocation. It is created Pending by
// Controller.Begin and settled exactly once.
type Toggle struct {
	controller *Controller
	key        catalog.ItemKey
	identity   *catalog.Identity
	from       bool
	to         bool

	mu       sync.Mutex
	state    State
	settling bool
	err      error
	done     chan struct{}
}

// Key is the toggled item.
func (t *Toggle) Key() catalog.ItemKey { return t.key }

// Previous is the liked flag before the toggle.
func (t *Toggle) Previous() bool { return t.from }

// Target is the liked flag the toggle tries to reach.
func (t *Toggle) Target() bool { return t.to }

// State returns the current state.
func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the failure that rolled the toggle back, if any.
func (t *Toggle) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Liked is the flag the toggle leaves visible: the target unless it rolled
// back.
func (t *Toggle) Liked() bool {
	if t.State() == StateRolledBack {
		return t.from
	}
	return t.to
}

// Done is closed once the toggle is settled.
func (t *Toggle) Done() <-chan struct{} {
	return t.done
}

// claim reserves the single Settle call.
func (t *Toggle) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending || t.settling {
		return false
	}
	t.settling = true
	return true
}

// transition moves a pending toggle to a terminal state. It reports false
// if the toggle had already settled.
func (t *Toggle) transition(to State, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return false
	}
	t.state = to
	t.err = err
	close(t.done)
	return true
}
