package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"paygate/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient is a node connection for one chain.
type EVMClient struct {
	ethClient      *ethclient.Client
	params         entity.ChainParameters
	chainID        *big.Int
	rpcCallTimeout time.Duration
}

// AccountState is the part of an account a transfer needs.
type AccountState struct {
	Balance *big.Int
	Nonce   uint64
}

// NewEVMClient dials the chain's RPC endpoints in order and keeps the first
// one that answers with the expected chain id.
func NewEVMClient(params entity.ChainParameters, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	if len(params.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints for network %s", params.DisplayName)
	}
	expected, err := params.ChainID()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, rpcURL := range params.RPCEndpoints {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		reported, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			client.Close()
			lastErr = fmt.Errorf("failed to verify chainID for %s: %w", rpcURL, err)
			continue
		}
		if reported.Cmp(expected) != 0 {
			client.Close()
			lastErr = fmt.Errorf("chainID mismatch for %s: expected %s, got %s", rpcURL, expected, reported)
			continue
		}
		return &EVMClient{ethClient: client, params: params, chainID: expected, rpcCallTimeout: rpcCallTimeout}, nil
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", params.DisplayName, lastErr)
}

func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

// Params returns the chain this client is connected to.
func (c *EVMClient) Params() entity.ChainParameters { return c.params }

// ChainID returns the verified chain id.
func (c *EVMClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// BalanceAt returns the latest balance of account.
func (c *EVMClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.BalanceAt(ctx, account, nil)
}

// AccountState fetches balance and pending nonce in one batch request.
func (c *EVMClient) AccountState(ctx context.Context, account common.Address) (*AccountState, error) {
	var balance hexutil.Big
	var nonce hexutil.Uint64
	batch := []rpc.BatchElem{
		{Method: "eth_getBalance", Args: []interface{}{account, "latest"}, Result: &balance},
		{Method: "eth_getTransactionCount", Args: []interface{}{account, "pending"}, Result: &nonce},
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	if err := c.ethClient.Client().BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("RPC batch call failed: %w", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, fmt.Errorf("%s for %s failed: %w", elem.Method, account.Hex(), elem.Error)
		}
	}
	return &AccountState{Balance: balance.ToInt(), Nonce: uint64(nonce)}, nil
}

// FeeCaps returns the tip and fee cap for an EIP-1559 transaction. The cap
// allows the base fee to double before the transaction stops being includable.
func (c *EVMClient) FeeCaps(ctx context.Context) (tip, feeCap *big.Int, err error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	tip, err = c.ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	head, err := c.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, nil, errors.New("network does not support EIP-1559")
	}
	feeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return tip, feeCap, nil
}

// EstimateGas estimates gas for a plain value transfer.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value})
}

// SendTransaction broadcasts a signed transaction.
func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.SendTransaction(ctx, tx)
}

// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.TransactionReceipt(ctx, hash)
}

// Close releases the connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
