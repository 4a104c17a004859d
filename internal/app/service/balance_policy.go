package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"paygate/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// BalancePolicy decides whether a balance can fund a transfer of amount.
type BalancePolicy interface {
	Sufficient(ctx context.Context, wallet port.WalletProvider, from, to common.Address, amount, balance *big.Int) (bool, error)
}

const (
	BalancePolicyStrict       = "strict"
	BalancePolicyEstimatedGas = "estimated-gas"
)

// NewBalancePolicy maps a config name to a policy.
func NewBalancePolicy(name string, logger *zap.Logger) (BalancePolicy, error) {
	switch strings.ToLower(name) {
	case "", BalancePolicyStrict:
		return StrictBalancePolicy{}, nil
	case BalancePolicyEstimatedGas:
		return &EstimatedGasPolicy{logger: logger.Named("EstimatedGasPolicy")}, nil
	default:
		return nil, fmt.Errorf("unknown balance policy %q", name)
	}
}

// StrictBalancePolicy requires balance > amount. The margin stands in for gas.
type StrictBalancePolicy struct{}

func (StrictBalancePolicy) Sufficient(_ context.Context, _ port.WalletProvider, _, _ common.Address, amount, balance *big.Int) (bool, error) {
	return balance.Cmp(amount) > 0, nil
}

// EstimatedGasPolicy requires balance >= amount + estimated fee when the wallet
// can estimate fees, and falls back to the strict rule otherwise.
type EstimatedGasPolicy struct {
	logger *zap.Logger
}

func (p *EstimatedGasPolicy) Sufficient(ctx context.Context, wallet port.WalletProvider, from, to common.Address, amount, balance *big.Int) (bool, error) {
	strict := balance.Cmp(amount) > 0
	estimator, ok := wallet.(port.FeeEstimator)
	if !ok {
		return strict, nil
	}

	fee, err := estimator.EstimateTransferFee(ctx, from, to, amount)
	if err != nil {
		p.logger.Warn("Fee estimation failed, using strict balance rule", zap.Error(err))
		return strict, nil
	}

	required := new(big.Int).Add(amount, fee)
	return strict && balance.Cmp(required) >= 0, nil
}
