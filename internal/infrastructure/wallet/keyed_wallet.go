package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"paygate/internal/domain/entity"
	"paygate/internal/infrastructure/network/client"
	"paygate/internal/pkg/walleterr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// KeyedWallet signs with a local private key and behaves like an injected
// wallet: it knows a set of chains, has a current chain, and answers 4902
// for chains it has not been told about.
type KeyedWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	clients *client.EVMClientProvider
	logger  *zap.Logger

	mu      sync.Mutex
	known   map[string]entity.ChainParameters
	current entity.ChainParameters
}

// NewKeyedWallet creates a wallet from a hex private key, starting on home.
func NewKeyedWallet(hexKey string, home entity.ChainParameters, clients *client.EVMClientProvider, logger *zap.Logger) (*KeyedWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet private key: %w", err)
	}
	w := &KeyedWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		clients: clients,
		logger:  logger.Named("KeyedWallet"),
		known:   map[string]entity.ChainParameters{entity.CanonicalChainID(home.ChainIDHex): home},
		current: home,
	}
	return w, nil
}

func (w *KeyedWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	return []common.Address{w.address}, nil
}

func (w *KeyedWallet) ChainID(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return entity.CanonicalChainID(w.current.ChainIDHex), nil
}

func (w *KeyedWallet) SwitchChain(_ context.Context, chainIDHex string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	params, ok := w.known[entity.CanonicalChainID(chainIDHex)]
	if !ok {
		return &walleterr.ProviderError{
			Code:    walleterr.CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", chainIDHex),
		}
	}
	w.current = params
	w.logger.Info("Switched chain", zap.String("chain", params.DisplayName))
	return nil
}

// AddChain dials the chain to make sure its endpoints serve the advertised id.
func (w *KeyedWallet) AddChain(_ context.Context, params entity.ChainParameters) error {
	if _, err := w.clients.GetClient(params); err != nil {
		return &walleterr.ProviderError{Code: -32603, Message: err.Error()}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known[entity.CanonicalChainID(params.ChainIDHex)] = params
	return nil
}

func (w *KeyedWallet) SignerAddress(context.Context) (common.Address, error) {
	return w.address, nil
}

func (w *KeyedWallet) node() (*client.EVMClient, error) {
	w.mu.Lock()
	params := w.current
	w.mu.Unlock()
	return w.clients.GetClient(params)
}

func (w *KeyedWallet) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	node, err := w.node()
	if err != nil {
		return nil, err
	}
	return node.BalanceAt(ctx, account)
}

// EstimateTransferFee prices a transfer at the fee cap SendTransaction would use.
func (w *KeyedWallet) EstimateTransferFee(ctx context.Context, from, to common.Address, value *big.Int) (*big.Int, error) {
	node, err := w.node()
	if err != nil {
		return nil, err
	}
	gas, err := node.EstimateGas(ctx, from, to, value)
	if err != nil {
		return nil, err
	}
	_, feeCap, err := node.FeeCaps(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), feeCap), nil
}

func (w *KeyedWallet) SendTransaction(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error) {
	if from != w.address {
		return common.Hash{}, &walleterr.ProviderError{Code: walleterr.CodeUnauthorized, Message: "sender is not an account of this wallet"}
	}
	node, err := w.node()
	if err != nil {
		return common.Hash{}, err
	}

	state, err := node.AccountState(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	tip, feeCap, err := node.FeeCaps(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	gas, err := node.EstimateGas(ctx, from, to, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   node.ChainID(),
		Nonce:     state.Nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(node.ChainID()), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	w.logger.Info("Transaction sent",
		zap.String("txHash", signed.Hash().Hex()),
		zap.Uint64("nonce", state.Nonce),
		zap.String("chain", node.Params().DisplayName))
	return signed.Hash(), nil
}

func (w *KeyedWallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	node, err := w.node()
	if err != nil {
		return nil, err
	}
	return node.TransactionReceipt(ctx, hash)
}
