package backend

import (
	"context"
	"errors"
	"fmt"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Verifier returns the verifier for payments made to unlock action.
func (c *Client) Verifier(action entity.GatedAction) port.PaymentVerifier {
	return &actionVerifier{client: c, action: action}
}

type actionVerifier struct {
	client *Client
	action entity.GatedAction
}

func verifyPath(action entity.GatedAction) (string, error) {
	switch action {
	case entity.ActionJobPosting:
		return "/payments/verify", nil
	case entity.ActionPremium:
		return "/payments/verify-jobseeker-premium", nil
	default:
		return "", fmt.Errorf("no verification endpoint for action %q", action)
	}
}

// premiumVerification is the premium endpoint's answer, which nests the payment.
type premiumVerification struct {
	Payment *entity.VerifiedPayment `json:"payment"`
	Message string                  `json:"message"`
}

// Verify sends the hash of a confirmed transaction for verification. Backend
// errors come back as verification failures carrying the backend's message.
func (v *actionVerifier) Verify(ctx context.Context, txHash string) (*entity.VerifiedPayment, error) {
	path, err := verifyPath(v.action)
	if err != nil {
		return nil, entity.NewPaymentError(entity.CodeConfiguration, err.Error(), err)
	}
	body := map[string]string{"tx_hash": txHash}

	var payment entity.VerifiedPayment
	switch v.action {
	case entity.ActionPremium:
		var premium premiumVerification
		err = v.client.do(ctx, fasthttp.MethodPost, path, true, body, &premium)
		if err == nil {
			if premium.Payment == nil {
				err = errors.New("backend response carried no payment")
			} else {
				payment = *premium.Payment
			}
		}
	default:
		err = v.client.do(ctx, fasthttp.MethodPost, path, true, body, &payment)
	}
	if err != nil {
		// A rejection may stem from a changed recipient or fee.
		v.client.InvalidatePublicConfig()
		return nil, verificationError(err)
	}
	if payment.ID == "" {
		return nil, entity.NewPaymentError(entity.CodeVerification, "verification returned no payment id", nil)
	}
	if want := v.action.PaymentType(); payment.PaymentType != "" && payment.PaymentType != want {
		return nil, entity.NewPaymentError(entity.CodeVerification,
			fmt.Sprintf("payment %s is a %s payment, expected %s", payment.ID, payment.PaymentType, want), nil)
	}

	v.client.logger.Info("Payment verified",
		zap.String("action", string(v.action)),
		zap.String("paymentType", v.action.PaymentType()),
		zap.String("paymentID", payment.ID),
		zap.String("txHash", txHash))
	return &payment, nil
}

func verificationError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return entity.NewPaymentError(entity.CodeVerification, apiErr.Message, err)
	}
	return entity.NewPaymentError(entity.CodeVerification, "Payment verification failed", err)
}
