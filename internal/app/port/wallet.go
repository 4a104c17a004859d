package port

import (
	"context"
	"math/big"

	"paygate/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WalletProvider is the capability set of an injected wallet.
// Every call may block on a user prompt; implementations honour ctx.
type WalletProvider interface {
	// RequestAccounts asks the user to grant account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// ChainID returns the wallet's current network as a hex string.
	ChainID(ctx context.Context) (string, error)
	// SwitchChain asks the wallet to change networks.
	SwitchChain(ctx context.Context, chainIDHex string) error
	// AddChain registers a network the wallet does not know yet.
	AddChain(ctx context.Context, params entity.ChainParameters) error
	// SignerAddress returns the account transactions will be sent from.
	SignerAddress(ctx context.Context) (common.Address, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	// SendTransaction transfers value wei to `to` and returns the tx hash once broadcast.
	SendTransaction(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error)
	// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// FeeEstimator is implemented by wallets that can price a transfer before sending it.
type FeeEstimator interface {
	EstimateTransferFee(ctx context.Context, from, to common.Address, value *big.Int) (*big.Int, error)
}

// WalletDetector finds the wallet available in the environment. It returns nil when there is none.
type WalletDetector interface {
	Detect(ctx context.Context) (WalletProvider, error)
}
