package service

import (
	"fmt"
	"sync"

	"paygate/internal/domain/entity"
)

// Lifecycle is the state machine of a single checkout. It only accepts the
// moves entity.LifecycleState.CanTransition allows.
type Lifecycle struct {
	mu        sync.RWMutex
	state     entity.LifecycleState
	history   []entity.LifecycleState
	listeners []func(from, to entity.LifecycleState)
}

// NewLifecycle returns a lifecycle in the Idle state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state:   entity.StateIdle,
		history: []entity.LifecycleState{entity.StateIdle},
	}
}

// Transition moves to `to` or fails without changing state.
func (l *Lifecycle) Transition(to entity.LifecycleState) error {
	l.mu.Lock()
	from := l.state
	if !from.CanTransition(to) {
		l.mu.Unlock()
		return fmt.Errorf("illegal lifecycle transition %s -> %s", from, to)
	}
	l.state = to
	if to == entity.StateIdle {
		// новая попытка начинается с чистой истории
		l.history = l.history[:0]
	}
	l.history = append(l.history, to)
	listeners := append([]func(from, to entity.LifecycleState){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
	return nil
}

// State returns the current state.
func (l *Lifecycle) State() entity.LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// History returns the states observed since the last return to Idle, Idle included.
func (l *Lifecycle) History() []entity.LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.LifecycleState, len(l.history))
	copy(out, l.history)
	return out
}

// OnTransition registers fn to be called after every successful transition.
func (l *Lifecycle) OnTransition(fn func(from, to entity.LifecycleState)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Dismiss returns a finished attempt to Idle. Dismissing Idle is a no-op.
func (l *Lifecycle) Dismiss() error {
	state := l.State()
	switch {
	case state == entity.StateIdle:
		return nil
	case state.Terminal():
		return l.Transition(entity.StateIdle)
	default:
		return ErrNotDismissable
	}
}
