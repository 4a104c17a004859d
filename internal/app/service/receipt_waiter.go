package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paygate/internal/app/port"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReceiptWaiter polls a wallet until a transaction is included in a block.
// It has no timeout of its own; only ctx ends the wait.
type ReceiptWaiter struct {
	interval time.Duration
	burst    int
	logger   *zap.Logger
}

// NewReceiptWaiter creates a waiter polling at most once per interval after an initial burst.
func NewReceiptWaiter(interval time.Duration, burst int, logger *zap.Logger) *ReceiptWaiter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &ReceiptWaiter{
		interval: interval,
		burst:    burst,
		logger:   logger.Named("ReceiptWaiter"),
	}
}

// Wait returns the receipt of hash once mined. Lookup errors are logged and
// retried; the wait only ends with a receipt or with ctx.
func (w *ReceiptWaiter) Wait(ctx context.Context, wallet port.WalletProvider, hash common.Hash) (*types.Receipt, error) {
	limiter := rate.NewLimiter(rate.Every(w.interval), w.burst)
	failures := 0

	for {
		if err := pace(ctx, limiter); err != nil {
			return nil, fmt.Errorf("stopped waiting for transaction %s: %w", hash.Hex(), err)
		}

		receipt, err := wallet.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			failures = 0
			w.logger.Debug("Transaction still pending", zap.String("txHash", hash.Hex()))
		default:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("stopped waiting for transaction %s: %w", hash.Hex(), ctx.Err())
			}
			failures++
			w.logger.Warn("Receipt lookup failed",
				zap.String("txHash", hash.Hex()),
				zap.Int("consecutiveFailures", failures),
				zap.Error(err))
		}
	}
}

// pace blocks until limiter admits the next poll. Unlike limiter.Wait it
// reports ctx.Err() rather than a deadline prediction.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := limiter.Reserve()
	d := r.Delay()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
