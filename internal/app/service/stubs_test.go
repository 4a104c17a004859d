package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

var sepolia = entity.ChainParameters{
	ChainIDHex:     "0xaa36a7",
	Identifier:     "sepolia",
	DisplayName:    "Sepolia Testnet",
	NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
	RPCEndpoints:   []string{"https://rpc.sepolia.org"},
}

// stubWallet records every call made to it in order.
type stubWallet struct {
	mu    sync.Mutex
	calls []string

	accounts    []common.Address
	accountsErr error
	chainID     string
	switchErrs  []error
	addErr      error
	signer      common.Address
	balance     *big.Int
	sendErr     error
	txHash      common.Hash
	pending     int
	receiptErrs int
	status      uint64
	fee         *big.Int
}

func newStubWallet() *stubWallet {
	sender := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	return &stubWallet{
		accounts: []common.Address{sender},
		chainID:  "0xaa36a7",
		signer:   sender,
		balance:  ether("1.0"),
		txHash:   common.HexToHash("0x123"),
		status:   types.ReceiptStatusSuccessful,
	}
}

func (w *stubWallet) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *stubWallet) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *stubWallet) count(call string) int {
	n := 0
	for _, c := range w.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (w *stubWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	w.record("requestAccounts")
	return w.accounts, w.accountsErr
}

func (w *stubWallet) ChainID(context.Context) (string, error) {
	w.record("chainId")
	return w.chainID, nil
}

func (w *stubWallet) SwitchChain(_ context.Context, chainIDHex string) error {
	w.record("switchChain")
	if len(w.switchErrs) > 0 {
		err := w.switchErrs[0]
		w.switchErrs = w.switchErrs[1:]
		if err != nil {
			return err
		}
	}
	w.chainID = chainIDHex
	return nil
}

func (w *stubWallet) AddChain(context.Context, entity.ChainParameters) error {
	w.record("addChain")
	return w.addErr
}

func (w *stubWallet) SignerAddress(context.Context) (common.Address, error) {
	w.record("signer")
	return w.signer, nil
}

func (w *stubWallet) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	w.record("balance")
	return w.balance, nil
}

func (w *stubWallet) SendTransaction(context.Context, common.Address, common.Address, *big.Int) (common.Hash, error) {
	w.record("send")
	return w.txHash, w.sendErr
}

func (w *stubWallet) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	w.record("receipt")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.receiptErrs > 0 {
		w.receiptErrs--
		return nil, errors.New("upstream rpc unavailable")
	}
	if w.pending > 0 {
		w.pending--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: w.status, TxHash: w.txHash, BlockNumber: big.NewInt(7)}, nil
}

// feeWallet adds fee estimation to stubWallet.
type feeWallet struct {
	*stubWallet
}

func (w feeWallet) EstimateTransferFee(context.Context, common.Address, common.Address, *big.Int) (*big.Int, error) {
	return w.fee, nil
}

// heldWallet parks SendTransaction until release closes and tracks how many
// sends overlap.
type heldWallet struct {
	*stubWallet
	entered chan struct{}
	release chan struct{}

	active atomic.Int32
	peak   atomic.Int32
}

func newHeldWallet() *heldWallet {
	return &heldWallet{
		stubWallet: newStubWallet(),
		entered:    make(chan struct{}, 4),
		release:    make(chan struct{}),
	}
}

func (w *heldWallet) SendTransaction(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	n := w.active.Add(1)
	defer w.active.Add(-1)
	for {
		p := w.peak.Load()
		if n <= p || w.peak.CompareAndSwap(p, n) {
			break
		}
	}
	w.entered <- struct{}{}
	<-w.release
	return w.stubWallet.SendTransaction(ctx, from, to, amount)
}

type stubVerifier struct {
	calls   []string
	payment *entity.VerifiedPayment
	err     error
}

func (v *stubVerifier) Verify(_ context.Context, txHash string) (*entity.VerifiedPayment, error) {
	v.calls = append(v.calls, txHash)
	if v.err != nil {
		return nil, v.err
	}
	return v.payment, nil
}

type stubConfig struct {
	cfg *entity.PublicConfig
	err error
}

func (c stubConfig) PublicConfig(context.Context) (*entity.PublicConfig, error) { return c.cfg, c.err }

type stubDetector struct {
	wallet   *stubWallet
	provider port.WalletProvider
}

func (d stubDetector) Detect(context.Context) (port.WalletProvider, error) {
	if d.provider != nil {
		return d.provider, nil
	}
	if d.wallet == nil {
		return nil, nil
	}
	return d.wallet, nil
}

type stubHolder struct {
	mu  sync.Mutex
	ids []string
}

func (h *stubHolder) Hold(p entity.VerifiedPayment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, p.ID)
}

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func lower(a common.Address) string { return strings.ToLower(a.Hex()) }
