package service

import (
	"errors"

	"paygate/internal/app/presentation"
)

var (
	// ErrPaymentInFlight is returned when an attempt is already running on the wallet.
	ErrPaymentInFlight = errors.New("payment already in progress")
	// ErrDismissRequired is returned when a finished attempt has not been acknowledged yet.
	ErrDismissRequired = errors.New("previous payment result must be dismissed first")
	// ErrNotDismissable is returned when dismissing while the transaction is processing.
	ErrNotDismissable = presentation.ErrNotDismissable
)
