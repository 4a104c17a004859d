package wallet

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"paygate/internal/app/service"
	"paygate/internal/domain/entity"
	"paygate/internal/infrastructure/network/client"
	"paygate/internal/pkg/evmtest"
	"paygate/internal/pkg/metrics"
	"paygate/internal/pkg/walleterr"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var recipient = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

func chainFor(node *evmtest.Node, identifier string) entity.ChainParameters {
	return entity.ChainParameters{
		ChainIDHex:     "0x" + node.ChainID.Text(16),
		Identifier:     identifier,
		DisplayName:    identifier,
		NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCEndpoints:   []string{node.URL()},
	}
}

type stubVerifier struct{ hashes []string }

func (v *stubVerifier) Verify(_ context.Context, txHash string) (*entity.VerifiedPayment, error) {
	v.hashes = append(v.hashes, txHash)
	return &entity.VerifiedPayment{ID: "p_1", TxHash: txHash}, nil
}

func coordinator(chain entity.ChainParameters) *service.PaymentCoordinator {
	logger := zap.NewNop()
	return service.NewPaymentCoordinator(
		service.NewNetworkGuard(chain, logger),
		chain,
		service.StrictBalancePolicy{},
		service.NewReceiptWaiter(time.Millisecond, 1, logger),
		metrics.NewNoopRecorder(),
		logger,
	)
}

func TestRPCWalletSwitchReportsUnknownChainFromData(t *testing.T) {
	node := evmtest.NewNode(11155111)
	defer node.Close()
	node.WalletChain = "0x1"
	node.SwitchErrs = []error{&evmtest.RPCError{
		Code:    -32603,
		Message: "Internal JSON-RPC error.",
		Data:    map[string]interface{}{"info": map[string]interface{}{"error": map[string]interface{}{"code": 4902}}},
	}}

	w, err := DialRPCWallet(context.Background(), node.URL(), zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	err = w.SwitchChain(context.Background(), "0xaa36a7")
	require.Error(t, err)
	assert.True(t, walleterr.IsUnrecognizedChain(err))

	chain := chainFor(node, "sepolia")
	node.SwitchErrs = []error{&evmtest.RPCError{Code: walleterr.CodeUnrecognizedChain, Message: "Unrecognized chain ID"}}
	require.NoError(t, service.NewNetworkGuard(chain, zap.NewNop()).EnsureNetwork(context.Background(), w))
	assert.Equal(t, 1, node.CallCount("wallet_addEthereumChain"))
	assert.Equal(t, 3, node.CallCount("wallet_switchEthereumChain"))
	require.Len(t, node.Added, 1)
	assert.Equal(t, "0xaa36a7", node.Added[0]["chainId"])

	id, err := w.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", id)
}

func TestRPCWalletPayment(t *testing.T) {
	node := evmtest.NewNode(11155111)
	defer node.Close()
	sender := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	node.Accounts = []common.Address{sender}
	node.SetBalance(sender, big.NewInt(1e18))
	node.PendingPolls = 2

	w, err := DialRPCWallet(context.Background(), node.URL(), zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	intent := entity.PaymentIntent{RecipientAddress: recipient.Hex(), Amount: decimal.RequireFromString("0.1")}
	v := &stubVerifier{}
	lifecycle := service.NewLifecycle()

	result, err := coordinator(chainFor(node, "sepolia")).Submit(context.Background(), intent, w, v, lifecycle)
	require.NoError(t, err)
	assert.Equal(t, "p_1", result.Payment.ID)
	assert.Equal(t, sender, result.Handle.SenderAddress)
	assert.Equal(t, []string{result.Handle.Hash.Hex()}, v.hashes)
	assert.Equal(t, 3, node.CallCount("eth_getTransactionReceipt"))
	assert.Zero(t, node.CallCount("wallet_switchEthereumChain"))

	require.Len(t, node.Sent, 1)
	assert.Equal(t, "0x16345785d8a0000", node.Sent[0]["value"])
}

func TestRPCWalletReceiptPending(t *testing.T) {
	node := evmtest.NewNode(1)
	defer node.Close()

	w, err := DialRPCWallet(context.Background(), node.URL(), zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	_, err = w.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestKeyedWalletAddsChainAndPays(t *testing.T) {
	home := evmtest.NewNode(31337)
	defer home.Close()
	target := evmtest.NewNode(11155111)
	defer target.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)
	target.SetBalance(address, big.NewInt(1e18))

	clients := client.NewEVMClientProvider(time.Second, time.Second, zap.NewNop())
	defer clients.Close()
	w, err := NewKeyedWallet("0x"+hex.EncodeToString(crypto.FromECDSA(key)), chainFor(home, "local"), clients, zap.NewNop())
	require.NoError(t, err)

	chain := chainFor(target, "sepolia")
	err = w.SwitchChain(context.Background(), chain.ChainIDHex)
	assert.True(t, walleterr.IsUnrecognizedChain(err))

	intent := entity.PaymentIntent{RecipientAddress: recipient.Hex(), Amount: decimal.RequireFromString("0.1")}
	lifecycle := service.NewLifecycle()
	result, err := coordinator(chain).Submit(context.Background(), intent, w, &stubVerifier{}, lifecycle)
	require.NoError(t, err)
	assert.Equal(t, []entity.LifecycleState{entity.StateIdle, entity.StateProcessing, entity.StateSuccess}, lifecycle.History())

	txs := target.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, result.Handle.Hash, txs[0].Hash())
	from, err := types.Sender(types.LatestSignerForChainID(target.ChainID), txs[0])
	require.NoError(t, err)
	assert.Equal(t, address, from)
	assert.Equal(t, recipient, *txs[0].To())
	assert.Empty(t, home.Transactions())

	fee, err := w.EstimateTransferFee(context.Background(), address, recipient, big.NewInt(1))
	require.NoError(t, err)
	// 21000 gas at tip + 2 * base fee
	assert.Equal(t, "73500000000000", fee.String())
}

func TestKeyedWalletRejectsForeignSender(t *testing.T) {
	node := evmtest.NewNode(31337)
	defer node.Close()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	clients := client.NewEVMClientProvider(time.Second, time.Second, zap.NewNop())
	defer clients.Close()
	w, err := NewKeyedWallet(hex.EncodeToString(crypto.FromECDSA(key)), chainFor(node, "local"), clients, zap.NewNop())
	require.NoError(t, err)

	_, err = w.SendTransaction(context.Background(), recipient, recipient, big.NewInt(1))
	code, ok := walleterr.ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, walleterr.CodeUnauthorized, code)

	_, err = NewKeyedWallet("not-a-key", chainFor(node, "local"), clients, zap.NewNop())
	assert.Error(t, err)
}

func TestDetector(t *testing.T) {
	d := NewDetector(DetectorConfig{Mode: ModeNone}, nil, zap.NewNop())
	w, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)

	t.Setenv("PAYGATE_TEST_KEY", "")
	d = NewDetector(DetectorConfig{Mode: ModeKeyed, PrivateKeyEnv: "PAYGATE_TEST_KEY"}, nil, zap.NewNop())
	w, err = d.Detect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)

	d = NewDetector(DetectorConfig{Mode: ModeRPC, RPCURL: "http://127.0.0.1:1", ProbeTimeout: 200 * time.Millisecond}, nil, zap.NewNop())
	w, err = d.Detect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)

	node := evmtest.NewNode(1)
	defer node.Close()
	d = NewDetector(DetectorConfig{Mode: ModeRPC, RPCURL: node.URL()}, nil, zap.NewNop())
	first, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}
