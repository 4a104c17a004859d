package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifiedPaymentAcceptsBothHashSpellings(t *testing.T) {
	var camel VerifiedPayment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p_1","txHash":"0x123","amount":0.1}`), &camel))
	assert.Equal(t, "p_1", camel.ID)
	assert.Equal(t, "0x123", camel.TxHash)
	assert.True(t, camel.Amount.Equal(decimal.RequireFromString("0.1")))

	var snake VerifiedPayment
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"tx_hash":"0xabc","amount":"0.25","consumed":true,"payment_type":"JOB_POSTING"}`), &snake))
	assert.Equal(t, "42", snake.ID)
	assert.Equal(t, "0xabc", snake.TxHash)
	assert.True(t, snake.Consumed)
	assert.Equal(t, "JOB_POSTING", snake.PaymentType)
}

func TestCanonicalChainID(t *testing.T) {
	p := ChainParameters{ChainIDHex: "0xaa36a7"}
	assert.True(t, p.SameChain("0xAA36A7"))
	assert.True(t, p.SameChain("0x00aa36a7"))
	assert.False(t, p.SameChain("0x1"))

	id, err := p.ChainID()
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id.Int64())
}

func TestCanonicalChainIDLeadingZeros(t *testing.T) {
	assert.Equal(t, "0xaa36a7", CanonicalChainID("0x00AA36A7"))
	assert.Equal(t, "0x89", CanonicalChainID(" 0x0089 "))
	assert.Equal(t, "0x0", CanonicalChainID("0x000"))
	assert.Equal(t, "garbage", CanonicalChainID("garbage"))
	assert.Equal(t, "0x", CanonicalChainID("0x"))

	padded := ChainParameters{ChainIDHex: "0x0089"}
	id, err := padded.ChainID()
	require.NoError(t, err)
	assert.Equal(t, int64(137), id.Int64())
	assert.True(t, padded.SameChain("0x89"))
}

func TestLifecycleTransitions(t *testing.T) {
	allowed := map[[2]LifecycleState]bool{
		{StateIdle, StateProcessing}:    true,
		{StateIdle, StateFailed}:        true,
		{StateProcessing, StateSuccess}: true,
		{StateProcessing, StateFailed}:  true,
		{StateSuccess, StateIdle}:       true,
		{StateFailed, StateIdle}:        true,
	}
	states := []LifecycleState{StateIdle, StateProcessing, StateSuccess, StateFailed}
	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, allowed[[2]LifecycleState{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestPaymentErrorMatchesByCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("step failed: %w", NewPaymentError(CodeChain, "switch failed", NewPaymentError(CodeNetworkSwitch, "switch", cause)))

	assert.ErrorIs(t, err, ErrChain)
	assert.ErrorIs(t, err, ErrNetworkSwitch)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrVerification)
	assert.Equal(t, CodeChain, CodeOf(err))
	assert.Equal(t, CodeUnknown, CodeOf(cause))
}

func TestParseGatedAction(t *testing.T) {
	a, err := ParseGatedAction("Premium")
	require.NoError(t, err)
	assert.Equal(t, ActionPremium, a)
	assert.Equal(t, "JOB_POSTING", ActionJobPosting.PaymentType())

	_, err = ParseGatedAction("messaging")
	assert.Error(t, err)
}
