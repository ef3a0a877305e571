package deferred

import (
	"context"
	"fmt"
	"sync"
)

// Action is a unit of deferred work.
type Action func(ctx context.Context) error

// State is the lifecycle stage of a Queue.
type State uint8

const (
	// Recording accepts actions; nothing has run.
	Recording State = iota
	// Draining is running actions. New actions run in the same pass.
	Draining
	// Drained has finished. The queue accepts nothing more.
	Drained
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Draining:
		return "draining"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

// Queue holds the actions recorded during one dispatch and runs them
// once, in order.
type Queue struct {
	mu      sync.Mutex
	actions []Action
	state   State
}

// NewQueue creates an empty queue in the Recording state.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends an action.
func (q *Queue) Enqueue(a Action) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == Drained {
		return ErrQueueDrained
	}
	q.actions = append(q.actions, a)
	return nil
}

// Len returns the number of actions recorded so far.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// State returns the current lifecycle stage.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Drain runs every action in order. The first failing action stops the
// drain; its error is returned wrapped with the action's position. The
// context is checked before each action.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if q.state != Recording {
		q.mu.Unlock()
		return ErrAlreadyDrained
	}
	q.state = Draining
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.state = Drained
		q.mu.Unlock()
	}()

	for i := 0; ; i++ {
		q.mu.Lock()
		if i >= len(q.actions) {
			q.mu.Unlock()
			return nil
		}
		action := q.actions[i]
		q.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := action(ctx); err != nil {
			return &ActionError{Index: i, Err: err}
		}
	}
}

// ActionError reports the deferred action that stopped a drain.
type ActionError struct {
	Index int
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("deferred: action %d: %v", e.Index, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
