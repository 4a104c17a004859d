package entity

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GatedAction identifies the mutation a platform fee unlocks.
type GatedAction string

const (
	ActionJobPosting GatedAction = "job-posting"
	ActionPremium    GatedAction = "premium"
)

// PaymentType returns the backend's name for payments made for this action.
func (a GatedAction) PaymentType() string {
	switch a {
	case ActionJobPosting:
		return "JOB_POSTING"
	case ActionPremium:
		return "JOB_SEEKER_PREMIUM"
	default:
		return ""
	}
}

// ParseGatedAction converts a route segment into a GatedAction.
func ParseGatedAction(s string) (GatedAction, error) {
	switch GatedAction(strings.ToLower(s)) {
	case ActionJobPosting:
		return ActionJobPosting, nil
	case ActionPremium:
		return ActionPremium, nil
	default:
		return "", fmt.Errorf("unknown gated action %q", s)
	}
}

// PaymentIntent is built fresh for every attempt from the public config.
type PaymentIntent struct {
	RecipientAddress string          `json:"recipient" validate:"required,eth_addr"`
	Amount           decimal.Decimal `json:"amount"`
}

// Recipient returns the checksummed recipient. Callers validate the intent first.
func (i PaymentIntent) Recipient() common.Address {
	return common.HexToAddress(i.RecipientAddress)
}

// TransactionHandle identifies a broadcast, possibly unconfirmed, transfer.
type TransactionHandle struct {
	Hash          common.Hash    `json:"hash"`
	SenderAddress common.Address `json:"sender"`
}

// VerifiedPayment is the backend's record of a verified on-chain payment.
type VerifiedPayment struct {
	ID          string          `json:"id"`
	TxHash      string          `json:"tx_hash"`
	Amount      decimal.Decimal `json:"amount"`
	Consumed    bool            `json:"consumed"`
	PaymentType string          `json:"payment_type,omitempty"`
	Recipient   string          `json:"recipient,omitempty"`
	Network     string          `json:"network,omitempty"`
	Status      string          `json:"status,omitempty"`
}

type verifiedPaymentWire struct {
	ID          jsoniter.RawMessage `json:"id"`
	TxHash      string              `json:"tx_hash"`
	TxHashCamel string              `json:"txHash"`
	Amount      decimal.Decimal     `json:"amount"`
	Consumed    bool                `json:"consumed"`
	PaymentType string              `json:"payment_type"`
	Recipient   string              `json:"recipient"`
	Network     string              `json:"network"`
	Status      string              `json:"status"`
}

// UnmarshalJSON accepts both tx_hash and txHash and string or numeric ids.
func (p *VerifiedPayment) UnmarshalJSON(data []byte) error {
	var w verifiedPaymentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := decodeID(w.ID)
	if err != nil {
		return err
	}

	*p = VerifiedPayment{
		ID:          id,
		TxHash:      w.TxHash,
		Amount:      w.Amount,
		Consumed:    w.Consumed,
		PaymentType: w.PaymentType,
		Recipient:   w.Recipient,
		Network:     w.Network,
		Status:      w.Status,
	}
	if p.TxHash == "" {
		p.TxHash = w.TxHashCamel
	}
	return nil
}

func decodeID(raw jsoniter.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid id: %w", err)
		}
		return s, nil
	}
	return string(raw), nil
}

// PaymentResult is what a completed attempt hands to its caller.
type PaymentResult struct {
	Handle  TransactionHandle `json:"transaction"`
	Payment VerifiedPayment   `json:"payment"`
}

// PublicConfig is the backend's public fee configuration.
type PublicConfig struct {
	AdminWallet string          `json:"admin_wallet"`
	PlatformFee decimal.Decimal `json:"platform_fee_matic"`
}
