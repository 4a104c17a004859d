package port

import (
	"context"

	"paygate/internal/domain/entity"
)

// PaymentVerifier asks the backend to verify a confirmed transaction for one action.
type PaymentVerifier interface {
	Verify(ctx context.Context, txHash string) (*entity.VerifiedPayment, error)
}

// CredentialProvider supplies the session token for authenticated backend calls.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// PublicConfigSource returns the recipient and fee the platform charges.
type PublicConfigSource interface {
	PublicConfig(ctx context.Context) (*entity.PublicConfig, error)
}

// JobBoard is the backend surface gated actions mutate.
type JobBoard interface {
	CreateJob(ctx context.Context, req entity.CreateJobRequest) (*entity.Job, error)
	ActivatePremium(ctx context.Context, paymentID string) (*entity.PremiumActivation, error)
}

// PaymentSubmitter runs one payment attempt end to end.
// Preflight performs only the checks that need no wallet interaction.
// Busy reports whether an attempt is running on the submitter's wallet.
type PaymentSubmitter interface {
	Preflight(intent entity.PaymentIntent, wallet WalletProvider) error
	Busy() bool
	Submit(ctx context.Context, intent entity.PaymentIntent, wallet WalletProvider, verifier PaymentVerifier, observer LifecycleObserver) (*entity.PaymentResult, error)
}

// LifecycleObserver receives lifecycle transitions of an attempt.
type LifecycleObserver interface {
	Transition(to entity.LifecycleState) error
}
