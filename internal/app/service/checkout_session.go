package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"paygate/internal/app/port"
	"paygate/internal/app/presentation"
	"paygate/internal/domain/entity"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentHolder receives the verified payment a checkout produced.
type PaymentHolder interface {
	Hold(payment entity.VerifiedPayment)
}

// CheckoutStatus is a point-in-time view of a checkout.
type CheckoutStatus struct {
	Action    entity.GatedAction    `json:"action"`
	State     entity.LifecycleState `json:"state"`
	InFlight  bool                  `json:"in_flight"`
	Notice    string                `json:"notice,omitempty"`
	ErrorCode entity.ErrorCode      `json:"error_code,omitempty"`
	TxHash    string                `json:"tx_hash,omitempty"`
	PaymentID string                `json:"payment_id,omitempty"`
}

// CheckoutConfig holds the call-site settings of a checkout.
type CheckoutConfig struct {
	Action entity.GatedAction
	// FallbackFee is charged when the public config carries no fee. Zero disables it.
	FallbackFee decimal.Decimal
}

// CheckoutSession is the call site of the payment flow for one gated action.
// It owns the lifecycle and admits one attempt at a time. Sessions sharing a
// submitter also refuse to start while another session's attempt runs.
type CheckoutSession struct {
	cfg       CheckoutConfig
	config    port.PublicConfigSource
	detector  port.WalletDetector
	submitter port.PaymentSubmitter
	verifier  port.PaymentVerifier
	holder    PaymentHolder
	metrics   port.MetricsRecorder
	logger    *zap.Logger

	lifecycle *Lifecycle
	modal     *presentation.Modal
	inFlight  atomic.Bool

	mu     sync.RWMutex
	notice string
	code   entity.ErrorCode
	handle *entity.TransactionHandle
	result *entity.VerifiedPayment
}

// NewCheckoutSession creates an idle checkout.
func NewCheckoutSession(
	cfg CheckoutConfig,
	config port.PublicConfigSource,
	detector port.WalletDetector,
	submitter port.PaymentSubmitter,
	verifier port.PaymentVerifier,
	holder PaymentHolder,
	metrics port.MetricsRecorder,
	logger *zap.Logger,
) *CheckoutSession {
	s := &CheckoutSession{
		cfg:       cfg,
		config:    config,
		detector:  detector,
		submitter: submitter,
		verifier:  verifier,
		holder:    holder,
		metrics:   metrics,
		logger:    logger.Named("CheckoutSession").With(zap.String("action", string(cfg.Action))),
		lifecycle: NewLifecycle(),
	}
	s.modal = presentation.NewModal(s.lifecycle.State, s.reset)
	return s
}

// Lifecycle exposes the checkout's state machine.
func (s *CheckoutSession) Lifecycle() *Lifecycle { return s.lifecycle }

// attempt is a payment that passed preflight.
type attempt struct {
	intent entity.PaymentIntent
	wallet port.WalletProvider
}

// Pay runs a whole attempt and blocks until it finishes.
func (s *CheckoutSession) Pay(ctx context.Context) (*entity.PaymentResult, error) {
	a, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, a)
}

// Start runs preflight synchronously and the rest of the attempt in the
// background under runCtx. The returned channel closes when the attempt ends.
func (s *CheckoutSession) Start(ctx, runCtx context.Context) (<-chan struct{}, error) {
	a, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.finish(runCtx, a)
	}()
	return done, nil
}

// begin claims the checkout and performs the wallet-free checks.
func (s *CheckoutSession) begin(ctx context.Context) (*attempt, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrPaymentInFlight
	}
	if s.submitter.Busy() {
		s.inFlight.Store(false)
		return nil, ErrPaymentInFlight
	}
	if s.lifecycle.State() != entity.StateIdle {
		s.inFlight.Store(false)
		return nil, ErrDismissRequired
	}
	s.setOutcome("", "", nil, nil)

	a, err := s.preflight(ctx)
	if err != nil {
		s.inFlight.Store(false)
		s.setOutcome(noticeFor(err), entity.CodeOf(err), nil, nil)
		s.count(entity.CodeOf(err))
		return nil, err
	}
	return a, nil
}

func (s *CheckoutSession) preflight(ctx context.Context) (*attempt, error) {
	intent, err := s.intent(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := s.detector.Detect(ctx)
	if err != nil {
		s.logger.Warn("Wallet detection failed", zap.Error(err))
		wallet = nil
	}
	if err := s.submitter.Preflight(intent, wallet); err != nil {
		return nil, err
	}
	return &attempt{intent: intent, wallet: wallet}, nil
}

func (s *CheckoutSession) intent(ctx context.Context) (entity.PaymentIntent, error) {
	pc, err := s.config.PublicConfig(ctx)
	if err != nil {
		return entity.PaymentIntent{}, entity.NewPaymentError(entity.CodeConfiguration, "failed to load payment configuration", err)
	}
	fee := pc.PlatformFee
	if !fee.IsPositive() && s.cfg.FallbackFee.IsPositive() {
		fee = s.cfg.FallbackFee
	}
	return entity.PaymentIntent{RecipientAddress: pc.AdminWallet, Amount: fee}, nil
}

func (s *CheckoutSession) finish(ctx context.Context, a *attempt) (*entity.PaymentResult, error) {
	defer s.inFlight.Store(false)
	started := time.Now()

	s.logger.Info("Starting payment",
		zap.String("recipient", a.intent.RecipientAddress),
		zap.String("amount", a.intent.Amount.String()))

	result, err := s.submitter.Submit(ctx, a.intent, a.wallet, s.verifier, s.lifecycle)
	if err != nil {
		var handle *entity.TransactionHandle
		if result != nil {
			handle = &result.Handle
		}
		s.setOutcome(noticeFor(err), entity.CodeOf(err), handle, nil)
		s.count(entity.CodeOf(err))
		return result, err
	}

	s.holder.Hold(result.Payment)
	s.setOutcome("Payment verified", "", &result.Handle, &result.Payment)
	s.count("")
	s.metrics.ObserveLatency("checkout", time.Since(started), map[string]string{"action": string(s.cfg.Action)})
	s.logger.Info("Payment verified",
		zap.String("paymentID", result.Payment.ID),
		zap.String("txHash", result.Handle.Hash.Hex()))
	return result, nil
}

// Dismiss acknowledges a finished attempt and returns the checkout to Idle.
// Dismissing an idle checkout does nothing.
func (s *CheckoutSession) Dismiss() error {
	if s.lifecycle.State() == entity.StateIdle {
		return nil
	}
	return s.modal.Dismiss()
}

// View renders the checkout's payment modal.
func (s *CheckoutSession) View() (presentation.View, error) {
	return s.modal.View()
}

func (s *CheckoutSession) reset() error {
	if err := s.lifecycle.Dismiss(); err != nil {
		return err
	}
	s.setOutcome("", "", nil, nil)
	return nil
}

// Status returns the checkout's current view.
func (s *CheckoutSession) Status() CheckoutStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := CheckoutStatus{
		Action:    s.cfg.Action,
		State:     s.lifecycle.State(),
		InFlight:  s.inFlight.Load(),
		Notice:    s.notice,
		ErrorCode: s.code,
	}
	if s.handle != nil {
		st.TxHash = s.handle.Hash.Hex()
	}
	if s.result != nil {
		st.PaymentID = s.result.ID
	}
	return st
}

func (s *CheckoutSession) setOutcome(notice string, code entity.ErrorCode, handle *entity.TransactionHandle, payment *entity.VerifiedPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = notice
	s.code = code
	s.handle = handle
	s.result = payment
}

func (s *CheckoutSession) count(code entity.ErrorCode) {
	outcome := "success"
	if code != "" {
		outcome = string(code)
	}
	s.metrics.IncCounter("payment_attempt", map[string]string{
		"action":  string(s.cfg.Action),
		"outcome": outcome,
	})
}

// noticeFor turns a failure into the message shown next to the payment modal.
func noticeFor(err error) string {
	switch {
	case errors.Is(err, entity.ErrUserRejected):
		return "Transaction rejected"
	case errors.Is(err, entity.ErrWalletUnavailable):
		return "No wallet found. Please install or enable one."
	case errors.Is(err, entity.ErrSameAccount):
		return "Select a different account to send from; admin wallet is the recipient."
	case errors.Is(err, entity.ErrInsufficientBalance):
		return "Not enough funds to cover the fee and gas. Fund your account and retry."
	case errors.Is(err, entity.ErrVerification):
		return "Payment was sent but could not be verified: " + err.Error()
	default:
		return err.Error()
	}
}
