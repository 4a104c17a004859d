// Package gate holds verified payments and spends them on gated mutations.
package gate

import (
	"errors"
	"sync"

	"paygate/internal/domain/entity"
)

// ErrPaymentRequired is returned when a gated mutation is attempted without a verified payment.
var ErrPaymentRequired = errors.New("complete payment first")

// ErrInvalidDraft wraps validation failures of a job draft.
var ErrInvalidDraft = errors.New("invalid job draft")

// PaymentGate keeps the verified payment of one gated action until it is spent.
// It does not track consumption beyond that; the backend does.
type PaymentGate struct {
	mu      sync.RWMutex
	payment *entity.VerifiedPayment
}

func NewPaymentGate() *PaymentGate {
	return &PaymentGate{}
}

// Hold stores a freshly verified payment, replacing any unspent one.
func (g *PaymentGate) Hold(payment entity.VerifiedPayment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payment = &payment
}

// PaymentID returns the held payment id.
func (g *PaymentGate) PaymentID() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.payment == nil || g.payment.ID == "" {
		return "", false
	}
	return g.payment.ID, true
}

// Discard drops the payment if it is still id. A newer payment is kept.
func (g *PaymentGate) Discard(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payment != nil && g.payment.ID == id {
		g.payment = nil
	}
}
