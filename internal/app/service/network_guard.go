package service

import (
	"context"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"
	"paygate/internal/pkg/walleterr"

	"go.uber.org/zap"
)

type networkGuardImpl struct {
	params entity.ChainParameters
	logger *zap.Logger
}

// NewNetworkGuard creates a guard that keeps wallets on the chain described by params.
func NewNetworkGuard(params entity.ChainParameters, logger *zap.Logger) port.NetworkGuard {
	return &networkGuardImpl{
		params: params,
		logger: logger.Named("NetworkGuard"),
	}
}

// EnsureNetwork switches the wallet to the payment chain, registering the chain
// first when the wallet reports it as unknown. A wallet already on the chain is
// not prompted at all.
func (g *networkGuardImpl) EnsureNetwork(ctx context.Context, wallet port.WalletProvider) error {
	current, err := wallet.ChainID(ctx)
	if err != nil {
		return entity.NewPaymentError(entity.CodeNetworkSwitch, "failed to read wallet network", err)
	}
	if g.params.SameChain(current) {
		return nil
	}

	g.logger.Info("Wallet is on a different network, requesting switch",
		zap.String("current", current),
		zap.String("target", g.params.ChainIDHex))

	err = wallet.SwitchChain(ctx, g.params.ChainIDHex)
	if err == nil {
		return nil
	}
	if !walleterr.IsUnrecognizedChain(err) {
		g.logger.Warn("Network switch failed", zap.Error(err))
		return entity.NewPaymentError(entity.CodeNetworkSwitch, "failed to switch wallet network", err)
	}

	g.logger.Info("Wallet does not know the payment chain, adding it",
		zap.String("chain", g.params.DisplayName))
	if err := wallet.AddChain(ctx, g.params); err != nil {
		g.logger.Warn("Add chain failed", zap.Error(err))
		return entity.NewPaymentError(entity.CodeNetworkSwitch, "failed to add "+g.params.DisplayName+" to wallet", err)
	}
	if err := wallet.SwitchChain(ctx, g.params.ChainIDHex); err != nil {
		g.logger.Warn("Network switch after add chain failed", zap.Error(err))
		return entity.NewPaymentError(entity.CodeNetworkSwitch, "failed to switch wallet network", err)
	}
	return nil
}
