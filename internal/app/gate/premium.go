package gate

import (
	"context"
	"sync"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	"go.uber.org/zap"
)

// PremiumActivator upgrades a job seeker once the premium fee is paid.
type PremiumActivator struct {
	gate   *PaymentGate
	board  port.JobBoard
	logger *zap.Logger
	mu     sync.Mutex
}

func NewPremiumActivator(gate *PaymentGate, board port.JobBoard, logger *zap.Logger) *PremiumActivator {
	return &PremiumActivator{gate: gate, board: board, logger: logger.Named("PremiumActivator")}
}

// Activate spends the held payment on premium status.
func (a *PremiumActivator) Activate(ctx context.Context) (*entity.PremiumActivation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	paymentID, ok := a.gate.PaymentID()
	if !ok {
		return nil, ErrPaymentRequired
	}

	res, err := a.board.ActivatePremium(ctx, paymentID)
	if err != nil {
		a.logger.Warn("Premium activation failed, keeping payment", zap.String("paymentID", paymentID), zap.Error(err))
		return nil, err
	}

	a.gate.Discard(paymentID)
	return res, nil
}
