// Package evmtest runs an in-process JSON-RPC node for tests. It speaks the
// node methods go-ethereum's ethclient uses and the wallet methods of EIP-1193.
package evmtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCError is returned by wallet methods to produce a JSON-RPC error with code and data.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string          { return e.Message }
func (e *RPCError) ErrorCode() int         { return e.Code }
func (e *RPCError) ErrorData() interface{} { return e.Data }

// Node is a fake chain plus wallet.
type Node struct {
	mu sync.Mutex

	ChainID  *big.Int
	BaseFee  *big.Int
	Tip      *big.Int
	Balances map[common.Address]*big.Int
	Nonces   map[common.Address]uint64

	// Wallet side
	Accounts    []common.Address
	WalletChain string
	SwitchErrs  []error
	AddErr      error
	Added       []map[string]interface{}
	Sent        []map[string]interface{}

	// PendingPolls is how many receipt lookups return null before the receipt appears.
	PendingPolls int
	txs          map[common.Hash]*types.Transaction
	calls        []string

	server *rpc.Server
	http   *httptest.Server
}

// NewNode starts a node for chainID.
func NewNode(chainID int64) *Node {
	n := &Node{
		ChainID:     big.NewInt(chainID),
		BaseFee:     big.NewInt(1_000_000_000),
		Tip:         big.NewInt(1_500_000_000),
		Balances:    make(map[common.Address]*big.Int),
		Nonces:      make(map[common.Address]uint64),
		WalletChain: hexutil.EncodeBig(big.NewInt(chainID)),
		txs:         make(map[common.Hash]*types.Transaction),
	}
	n.server = rpc.NewServer()
	if err := n.server.RegisterName("eth", &ethAPI{n}); err != nil {
		panic(err)
	}
	if err := n.server.RegisterName("wallet", &walletAPI{n}); err != nil {
		panic(err)
	}
	n.http = httptest.NewServer(n.server)
	return n
}

// URL is the HTTP endpoint of the node.
func (n *Node) URL() string { return n.http.URL }

// Close stops the node.
func (n *Node) Close() {
	n.http.Close()
	n.server.Stop()
}

// Calls returns the RPC methods served so far.
func (n *Node) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// CallCount counts served calls of method.
func (n *Node) CallCount(method string) int {
	c := 0
	for _, m := range n.Calls() {
		if m == method {
			c++
		}
	}
	return c
}

// SetBalance sets an account balance in wei.
func (n *Node) SetBalance(addr common.Address, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Balances[addr] = wei
}

// Transactions returns the raw transactions received.
func (n *Node) Transactions() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*types.Transaction, 0, len(n.txs))
	for _, tx := range n.txs {
		out = append(out, tx)
	}
	return out
}

func (n *Node) record(method string) {
	n.calls = append(n.calls, method)
}

func (n *Node) balance(addr common.Address) *big.Int {
	if b, ok := n.Balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (n *Node) receipt(hash common.Hash) *types.Receipt {
	if _, ok := n.txs[hash]; !ok {
		return nil
	}
	if n.PendingPolls > 0 {
		n.PendingPolls--
		return nil
	}
	return &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		Logs:              []*types.Log{},
		TxHash:            hash,
		BlockHash:         common.HexToHash("0xb1"),
		BlockNumber:       big.NewInt(2),
		EffectiveGasPrice: new(big.Int).Add(n.BaseFee, n.Tip),
	}
}

type ethAPI struct{ n *Node }

func (a *ethAPI) ChainId() *hexutil.Big {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_chainId")
	// As a wallet the node reports the network the user is on.
	id, err := hexutil.DecodeBig(a.n.WalletChain)
	if err != nil {
		return (*hexutil.Big)(a.n.ChainID)
	}
	return (*hexutil.Big)(id)
}

func (a *ethAPI) GetBalance(addr common.Address, _ string) *hexutil.Big {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_getBalance")
	return (*hexutil.Big)(a.n.balance(addr))
}

func (a *ethAPI) GetTransactionCount(addr common.Address, _ string) hexutil.Uint64 {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_getTransactionCount")
	return hexutil.Uint64(a.n.Nonces[addr])
}

func (a *ethAPI) MaxPriorityFeePerGas() *hexutil.Big {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_maxPriorityFeePerGas")
	return (*hexutil.Big)(a.n.Tip)
}

func (a *ethAPI) GetBlockByNumber(_ string, _ bool) *types.Header {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_getBlockByNumber")
	return &types.Header{
		Number:     big.NewInt(1),
		Difficulty: new(big.Int),
		GasLimit:   30_000_000,
		BaseFee:    a.n.BaseFee,
	}
}

func (a *ethAPI) EstimateGas(_ map[string]interface{}, _ *string) hexutil.Uint64 {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_estimateGas")
	return 21000
}

func (a *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_sendRawTransaction")

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	if tx.ChainId().Cmp(a.n.ChainID) != 0 {
		return common.Hash{}, fmt.Errorf("invalid chain id %s", tx.ChainId())
	}
	sender, err := types.Sender(types.LatestSignerForChainID(a.n.ChainID), tx)
	if err != nil {
		return common.Hash{}, err
	}
	a.n.Nonces[sender]++
	a.n.txs[tx.Hash()] = tx
	return tx.Hash(), nil
}

func (a *ethAPI) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_getTransactionReceipt")
	return a.n.receipt(hash)
}

func (a *ethAPI) RequestAccounts() ([]common.Address, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_requestAccounts")
	return a.n.Accounts, nil
}

func (a *ethAPI) Accounts() []common.Address {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_accounts")
	return a.n.Accounts
}

// SendTransaction accepts a wallet-side transfer and fabricates a mined transaction for it.
func (a *ethAPI) SendTransaction(_ context.Context, args map[string]interface{}) (common.Hash, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.record("eth_sendTransaction")

	a.n.Sent = append(a.n.Sent, args)
	to := common.HexToAddress(fmt.Sprint(args["to"]))
	value, err := hexutil.DecodeBig(fmt.Sprint(args["value"]))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid value: %w", err)
	}
	tx := types.NewTx(&types.DynamicFeeTx{ChainID: a.n.ChainID, Nonce: uint64(len(a.n.txs)), To: &to, Value: value, Gas: 21000})
	a.n.txs[tx.Hash()] = tx
	return tx.Hash(), nil
}

type walletAPI struct{ n *Node }

type switchParams struct {
	ChainID string `json:"chainId"`
}

func (w *walletAPI) SwitchEthereumChain(p switchParams) (interface{}, error) {
	w.n.mu.Lock()
	defer w.n.mu.Unlock()
	w.n.record("wallet_switchEthereumChain")

	if len(w.n.SwitchErrs) > 0 {
		err := w.n.SwitchErrs[0]
		w.n.SwitchErrs = w.n.SwitchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	w.n.WalletChain = strings.ToLower(p.ChainID)
	return nil, nil
}

func (w *walletAPI) AddEthereumChain(p map[string]interface{}) (interface{}, error) {
	w.n.mu.Lock()
	defer w.n.mu.Unlock()
	w.n.record("wallet_addEthereumChain")

	if w.n.AddErr != nil {
		return nil, w.n.AddErr
	}
	if _, ok := p["chainId"]; !ok {
		return nil, errors.New("missing chainId")
	}
	w.n.Added = append(w.n.Added, p)
	return nil, nil
}
