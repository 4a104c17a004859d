package wallet

import (
	"context"
	"fmt"
	"math/big"

	"paygate/internal/domain/entity"
	"paygate/internal/pkg/walleterr"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// addChainParams is the wallet_addEthereumChain parameter object (EIP-3085).
type addChainParams struct {
	ChainID           string                `json:"chainId"`
	ChainName         string                `json:"chainName"`
	NativeCurrency    entity.NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string              `json:"rpcUrls"`
	BlockExplorerURLs []string              `json:"blockExplorerUrls,omitempty"`
}

func newAddChainParams(p entity.ChainParameters) addChainParams {
	out := addChainParams{
		ChainID:        entity.CanonicalChainID(p.ChainIDHex),
		ChainName:      p.DisplayName,
		NativeCurrency: p.NativeCurrency,
		RPCURLs:        p.RPCEndpoints,
	}
	if p.ExplorerURL != "" {
		out.BlockExplorerURLs = []string{p.ExplorerURL}
	}
	return out
}

type transferArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

// RPCWallet talks EIP-1193 to a wallet exposing it over JSON-RPC.
// Calls may wait on the user indefinitely; only ctx bounds them.
type RPCWallet struct {
	client *rpc.Client
	logger *zap.Logger
}

// NewRPCWallet wraps an already dialed client.
func NewRPCWallet(client *rpc.Client, logger *zap.Logger) *RPCWallet {
	return &RPCWallet{client: client, logger: logger.Named("RPCWallet")}
}

// DialRPCWallet connects to a wallet endpoint.
func DialRPCWallet(ctx context.Context, url string, logger *zap.Logger) (*RPCWallet, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet at %s: %w", url, err)
	}
	return NewRPCWallet(client, logger), nil
}

func (w *RPCWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := w.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (w *RPCWallet) ChainID(ctx context.Context) (string, error) {
	var id hexutil.Big
	if err := w.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return hexutil.EncodeBig(id.ToInt()), nil
}

func (w *RPCWallet) SwitchChain(ctx context.Context, chainIDHex string) error {
	params := map[string]string{"chainId": entity.CanonicalChainID(chainIDHex)}
	err := w.client.CallContext(ctx, nil, "wallet_switchEthereumChain", params)
	if err != nil {
		code, _ := walleterr.ErrorCode(err)
		w.logger.Debug("wallet_switchEthereumChain failed", zap.Int("code", code), zap.Error(err))
	}
	return err
}

func (w *RPCWallet) AddChain(ctx context.Context, params entity.ChainParameters) error {
	return w.client.CallContext(ctx, nil, "wallet_addEthereumChain", newAddChainParams(params))
}

func (w *RPCWallet) SignerAddress(ctx context.Context) (common.Address, error) {
	var accounts []common.Address
	if err := w.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, &walleterr.ProviderError{Code: walleterr.CodeUnauthorized, Message: "no authorized account"}
	}
	return accounts[0], nil
}

func (w *RPCWallet) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance hexutil.Big
	if err := w.client.CallContext(ctx, &balance, "eth_getBalance", account, "latest"); err != nil {
		return nil, err
	}
	return balance.ToInt(), nil
}

func (w *RPCWallet) SendTransaction(ctx context.Context, from, to common.Address, value *big.Int) (common.Hash, error) {
	var hash common.Hash
	args := transferArgs{From: from, To: to, Value: (*hexutil.Big)(value)}
	if err := w.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (w *RPCWallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := w.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// Close releases the connection.
func (w *RPCWallet) Close() {
	w.client.Close()
}
