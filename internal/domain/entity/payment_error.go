package entity

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed payment attempt.
type ErrorCode string

const (
	CodeConfiguration       ErrorCode = "CONFIGURATION_ERROR"
	CodeWalletUnavailable   ErrorCode = "WALLET_UNAVAILABLE"
	CodeNoAccount           ErrorCode = "NO_ACCOUNT"
	CodeSameAccount         ErrorCode = "SAME_ACCOUNT"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeUserRejected        ErrorCode = "USER_REJECTED"
	CodeNetworkSwitch       ErrorCode = "NETWORK_SWITCH_ERROR"
	CodeChain               ErrorCode = "CHAIN_ERROR"
	CodeVerification        ErrorCode = "VERIFICATION_ERROR"
	CodeUnknown             ErrorCode = "UNKNOWN_ERROR"
)

// PaymentError is the error type returned by every payment step.
// Two PaymentErrors match under errors.Is when their codes are equal.
type PaymentError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error { return e.Err }

func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrConfiguration       = &PaymentError{Code: CodeConfiguration, Message: "payment is not configured"}
	ErrWalletUnavailable   = &PaymentError{Code: CodeWalletUnavailable, Message: "no wallet available, install or enable one"}
	ErrNoAccount           = &PaymentError{Code: CodeNoAccount, Message: "no account selected"}
	ErrSameAccount         = &PaymentError{Code: CodeSameAccount, Message: "select a different account to send from; admin wallet is the recipient"}
	ErrInsufficientBalance = &PaymentError{Code: CodeInsufficientBalance, Message: "not enough funds to cover the fee and gas"}
	ErrUserRejected        = &PaymentError{Code: CodeUserRejected, Message: "transaction rejected"}
	ErrNetworkSwitch       = &PaymentError{Code: CodeNetworkSwitch, Message: "could not switch wallet network"}
	ErrChain               = &PaymentError{Code: CodeChain, Message: "chain interaction failed"}
	ErrVerification        = &PaymentError{Code: CodeVerification, Message: "payment verification failed"}
	ErrUnknown             = &PaymentError{Code: CodeUnknown, Message: "payment failed"}
)

// NewPaymentError builds a PaymentError with the given code.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost PaymentError in err's chain, or CodeUnknown.
func CodeOf(err error) ErrorCode {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnknown
}
