package state

import "time"

// State identifies a finite-state-machine step used in conversations.
type State string

// StateIdle indicates there is no active conversation step for the user.
const StateIdle State = "idle"

// Session is a snapshot of one user's conversation.
type Session[T any] struct {
	State State
	Data  T
	// Touched is the last time the session was created or updated.
	Touched time.Time
}

// Sweeper evicts sessions idle for longer than maxIdle and reports how many were removed.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}
