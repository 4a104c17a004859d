// Package presentation renders the payment lifecycle for the user.
package presentation

import (
	"errors"
	"fmt"

	"paygate/internal/domain/entity"
)

// ErrNotDismissable is returned when the current view has no close control.
var ErrNotDismissable = errors.New("payment view cannot be dismissed")

// Tone tells the client which indicator to draw.
type Tone string

const (
	ToneNone     Tone = ""
	ToneProgress Tone = "progress"
	ToneSuccess  Tone = "success"
	ToneFailure  Tone = "failure"
)

// View is what the payment modal shows for a lifecycle state.
type View struct {
	Visible     bool   `json:"visible"`
	Dismissable bool   `json:"dismissable"`
	Tone        Tone   `json:"tone,omitempty"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Render maps a state to its view. Every state has an explicit case; an
// unknown state is an error rather than an empty view.
func Render(state entity.LifecycleState) (View, error) {
	switch state {
	case entity.StateIdle:
		return View{}, nil
	case entity.StateProcessing:
		return View{
			Visible: true,
			Tone:    ToneProgress,
			Title:   "Transaction Processing...",
			Message: "Please wait while we confirm your payment",
		}, nil
	case entity.StateSuccess:
		return View{
			Visible:     true,
			Dismissable: true,
			Tone:        ToneSuccess,
			Title:       "Transaction Successful!",
			Message:     "Your payment has been confirmed",
		}, nil
	case entity.StateFailed:
		return View{
			Visible:     true,
			Dismissable: true,
			Tone:        ToneFailure,
			Title:       "Transaction Failed",
			Message:     "Payment was rejected or failed. Please try again.",
		}, nil
	default:
		return View{}, fmt.Errorf("no view for lifecycle state %s", state)
	}
}

// Modal binds a state source to the caller's reset callback. It has no retry
// of its own; a new attempt always starts from the caller.
type Modal struct {
	state   func() entity.LifecycleState
	onClose func() error
}

// NewModal creates a modal reading state and calling onClose on dismissal.
func NewModal(state func() entity.LifecycleState, onClose func() error) *Modal {
	return &Modal{state: state, onClose: onClose}
}

// View renders the current state.
func (m *Modal) View() (View, error) {
	return Render(m.state())
}

// Dismiss closes a dismissable view. Dismissing a hidden or progress view fails.
func (m *Modal) Dismiss() error {
	v, err := m.View()
	if err != nil {
		return err
	}
	if !v.Dismissable {
		return fmt.Errorf("%w in state %s", ErrNotDismissable, m.state())
	}
	return m.onClose()
}
