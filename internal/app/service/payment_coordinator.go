package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"
	"paygate/internal/pkg/utils"
	"paygate/internal/pkg/walleterr"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PaymentCoordinator drives the wallet through a fee payment. Every checkout
// shares one coordinator, and it runs a single attempt at a time.
type PaymentCoordinator struct {
	guard   port.NetworkGuard
	chain   entity.ChainParameters
	policy  BalancePolicy
	waiter  *ReceiptWaiter
	metrics port.MetricsRecorder
	logger  *zap.Logger

	validate *validator.Validate
	busy     atomic.Bool
}

// NewPaymentCoordinator wires a coordinator for chain.
func NewPaymentCoordinator(
	guard port.NetworkGuard,
	chain entity.ChainParameters,
	policy BalancePolicy,
	waiter *ReceiptWaiter,
	metrics port.MetricsRecorder,
	logger *zap.Logger,
) *PaymentCoordinator {
	if policy == nil {
		policy = StrictBalancePolicy{}
	}
	return &PaymentCoordinator{
		guard:    guard,
		chain:    chain,
		policy:   policy,
		waiter:   waiter,
		metrics:  metrics,
		logger:   logger.Named("PaymentCoordinator"),
		validate: validator.New(),
	}
}

// Preflight runs the checks that need no wallet interaction: a complete intent
// and a present wallet. Failures here leave the lifecycle untouched.
func (c *PaymentCoordinator) Preflight(intent entity.PaymentIntent, wallet port.WalletProvider) error {
	if _, err := c.amountInWei(intent); err != nil {
		return err
	}
	if wallet == nil {
		return entity.ErrWalletUnavailable
	}
	return nil
}

// Busy reports whether an attempt is running.
func (c *PaymentCoordinator) Busy() bool { return c.busy.Load() }

// Submit pays intent from the wallet's active account and has the transaction
// verified. Each step short-circuits; failures after the wallet has been
// contacted move observer to Failed. When a failure happens after broadcast
// the returned result still carries the transaction handle.
//
// While another attempt runs Submit returns ErrPaymentInFlight without
// touching the wallet or observer.
func (c *PaymentCoordinator) Submit(
	ctx context.Context,
	intent entity.PaymentIntent,
	wallet port.WalletProvider,
	verifier port.PaymentVerifier,
	observer port.LifecycleObserver,
) (*entity.PaymentResult, error) {
	if err := c.Preflight(intent, wallet); err != nil {
		return nil, err
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Info("Rejected payment while another is in flight")
		return nil, ErrPaymentInFlight
	}
	defer c.busy.Store(false)

	result, err := c.run(ctx, intent, wallet, verifier, observer)
	if err != nil {
		if tErr := observer.Transition(entity.StateFailed); tErr != nil {
			c.logger.Error("Failed to record failed payment state", zap.Error(tErr))
		}
		c.logger.Warn("Payment attempt failed",
			zap.String("code", string(entity.CodeOf(err))),
			zap.Error(err))
		return result, err
	}
	return result, nil
}

func (c *PaymentCoordinator) run(
	ctx context.Context,
	intent entity.PaymentIntent,
	wallet port.WalletProvider,
	verifier port.PaymentVerifier,
	observer port.LifecycleObserver,
) (*entity.PaymentResult, error) {
	amount, _ := c.amountInWei(intent)
	recipient := intent.Recipient()

	accounts, err := wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, walletFailure(err, entity.CodeUnknown, "account access request failed")
	}
	if len(accounts) == 0 {
		return nil, entity.ErrNoAccount
	}

	start := time.Now()
	if err := c.guard.EnsureNetwork(ctx, wallet); err != nil {
		return nil, walletFailure(err, entity.CodeChain, "wallet is not on "+c.chain.DisplayName)
	}
	c.observe("network", start)

	sender, err := wallet.SignerAddress(ctx)
	if err != nil {
		return nil, walletFailure(err, entity.CodeUnknown, "failed to resolve signer")
	}
	// common.Address compares bytes, so letter casing of either side is irrelevant.
	if sender == recipient {
		return nil, entity.ErrSameAccount
	}

	balance, err := wallet.BalanceAt(ctx, sender)
	if err != nil {
		return nil, walletFailure(err, entity.CodeChain, "failed to read balance")
	}
	ok, err := c.policy.Sufficient(ctx, wallet, sender, recipient, amount, balance)
	if err != nil {
		return nil, walletFailure(err, entity.CodeChain, "failed to check balance")
	}
	if !ok {
		c.logger.Info("Insufficient balance for payment",
			zap.String("sender", sender.Hex()),
			zap.String("balance", utils.FormatUnits(balance, c.chain.NativeCurrency.Decimals)),
			zap.String("amount", intent.Amount.String()))
		return nil, entity.ErrInsufficientBalance
	}

	start = time.Now()
	hash, err := wallet.SendTransaction(ctx, sender, recipient, amount)
	if err != nil {
		return nil, walletFailure(err, entity.CodeChain, "failed to send transaction")
	}
	c.observe("broadcast", start)
	partial := &entity.PaymentResult{Handle: entity.TransactionHandle{Hash: hash, SenderAddress: sender}}
	if err := observer.Transition(entity.StateProcessing); err != nil {
		return partial, entity.NewPaymentError(entity.CodeUnknown, "invalid payment state", err)
	}
	c.logger.Info("Payment transaction broadcast",
		zap.String("txHash", hash.Hex()),
		zap.String("sender", sender.Hex()),
		zap.String("recipient", recipient.Hex()))

	start = time.Now()
	receipt, err := c.waiter.Wait(ctx, wallet, hash)
	if err != nil {
		return partial, entity.NewPaymentError(entity.CodeChain, "transaction confirmation failed", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return partial, entity.NewPaymentError(entity.CodeChain,
			fmt.Sprintf("transaction %s reverted in block %s", hash.Hex(), receipt.BlockNumber), nil)
	}
	c.observe("confirmation", start)

	start = time.Now()
	payment, err := verifier.Verify(ctx, hash.Hex())
	if err != nil {
		// Funds have already moved on-chain.
		c.logger.Error("Backend rejected a confirmed payment",
			zap.String("txHash", hash.Hex()),
			zap.Error(err))
		if errors.Is(err, entity.ErrVerification) {
			return partial, err
		}
		return partial, entity.NewPaymentError(entity.CodeVerification, "payment verification failed", err)
	}
	c.observe("verification", start)

	if err := observer.Transition(entity.StateSuccess); err != nil {
		return partial, entity.NewPaymentError(entity.CodeUnknown, "invalid payment state", err)
	}
	partial.Payment = *payment
	return partial, nil
}

func (c *PaymentCoordinator) amountInWei(intent entity.PaymentIntent) (*big.Int, error) {
	if err := c.validate.Struct(intent); err != nil {
		return nil, entity.NewPaymentError(entity.CodeConfiguration, "recipient wallet is not configured", err)
	}
	if !intent.Amount.IsPositive() {
		return nil, entity.NewPaymentError(entity.CodeConfiguration, "platform fee is missing", nil)
	}
	wei, err := utils.ToBaseUnits(intent.Amount, c.chain.NativeCurrency.Decimals)
	if err != nil {
		return nil, entity.NewPaymentError(entity.CodeConfiguration, "platform fee cannot be paid in "+c.chain.NativeCurrency.Symbol, err)
	}
	return wei, nil
}

func (c *PaymentCoordinator) observe(stage string, start time.Time) {
	c.metrics.ObserveLatency(stage, time.Since(start), map[string]string{"chain": c.chain.Identifier})
}

// walletFailure tags err with code unless the user dismissed the prompt.
func walletFailure(err error, code entity.ErrorCode, message string) error {
	if walleterr.IsUserRejection(err) {
		return entity.NewPaymentError(entity.CodeUserRejected, "transaction rejected", err)
	}
	return entity.NewPaymentError(code, message, err)
}
