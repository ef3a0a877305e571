package deferred

import "errors"

var (
	// ErrQueueDrained indicates an action was enqueued after the drain finished.
	ErrQueueDrained = errors.New("deferred: queue already drained")

	// ErrAlreadyDrained indicates Drain was called more than once.
	ErrAlreadyDrained = errors.New("deferred: drain already started")
)
