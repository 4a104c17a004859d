package port

import (
	"context"

	"paygate/internal/domain/entity"
)

// NetworkGuard makes sure the wallet is on the payment chain.
type NetworkGuard interface {
	EnsureNetwork(ctx context.Context, wallet WalletProvider) error
}

// ChainParametersProvider resolves compiled-in chain definitions.
type ChainParametersProvider interface {
	All() []entity.ChainParameters
	ByIdentifier(identifier string) (entity.ChainParameters, bool)
	ByChainID(chainIDHex string) (entity.ChainParameters, bool)
}
