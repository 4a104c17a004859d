package entity

import "fmt"

// LifecycleState is the visible state of one payment attempt.
type LifecycleState int

const (
	StateIdle LifecycleState = iota
	StateProcessing
	StateSuccess
	StateFailed
)

func (s LifecycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// Terminal reports whether the state waits for a dismissal.
func (s LifecycleState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition lists the only moves an attempt may make.
// Idle goes straight to Failed when an attempt fails before broadcast.
func (s LifecycleState) CanTransition(to LifecycleState) bool {
	switch s {
	case StateIdle:
		return to == StateProcessing || to == StateFailed
	case StateProcessing:
		return to == StateSuccess || to == StateFailed
	case StateSuccess, StateFailed:
		return to == StateIdle
	default:
		return false
	}
}
