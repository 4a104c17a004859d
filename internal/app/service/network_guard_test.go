package service

import (
	"context"
	"errors"
	"testing"

	"paygate/internal/domain/entity"
	"paygate/internal/pkg/walleterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureNetworkAlreadyOnChain(t *testing.T) {
	for _, reported := range []string{"0xaa36a7", "0xAA36A7", "0x00aa36a7"} {
		w := newStubWallet()
		w.chainID = reported

		require.NoError(t, NewNetworkGuard(sepolia, zap.NewNop()).EnsureNetwork(context.Background(), w))
		assert.Equal(t, []string{"chainId"}, w.Calls(), "reported %s", reported)
	}
}

func TestEnsureNetworkSwitches(t *testing.T) {
	w := newStubWallet()
	w.chainID = "0x1"

	require.NoError(t, NewNetworkGuard(sepolia, zap.NewNop()).EnsureNetwork(context.Background(), w))
	assert.Equal(t, []string{"chainId", "switchChain"}, w.Calls())
}

func TestEnsureNetworkAddsUnknownChain(t *testing.T) {
	shapes := map[string]error{
		"code":            &walleterr.ProviderError{Code: walleterr.CodeUnrecognizedChain},
		"error.code":      &walleterr.ProviderError{Code: -32603, Nested: &walleterr.ProviderError{Code: walleterr.CodeUnrecognizedChain}},
		"info.error.code": &walleterr.ProviderError{Info: &walleterr.ErrorInfo{Error: &walleterr.ProviderError{Code: walleterr.CodeUnrecognizedChain}}},
	}

	for name, switchErr := range shapes {
		t.Run(name, func(t *testing.T) {
			w := newStubWallet()
			w.chainID = "0x1"
			w.switchErrs = []error{switchErr}

			require.NoError(t, NewNetworkGuard(sepolia, zap.NewNop()).EnsureNetwork(context.Background(), w))
			assert.Equal(t, []string{"chainId", "switchChain", "addChain", "switchChain"}, w.Calls())
			assert.Equal(t, 1, w.count("addChain"))
		})
	}
}

func TestEnsureNetworkPropagatesOtherErrors(t *testing.T) {
	cause := &walleterr.ProviderError{Code: -32002, Message: "Request already pending"}
	w := newStubWallet()
	w.chainID = "0x1"
	w.switchErrs = []error{cause}

	err := NewNetworkGuard(sepolia, zap.NewNop()).EnsureNetwork(context.Background(), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNetworkSwitch)
	assert.True(t, errors.Is(err, cause))
	assert.Zero(t, w.count("addChain"))
}

func TestEnsureNetworkAddChainRejected(t *testing.T) {
	w := newStubWallet()
	w.chainID = "0x1"
	w.switchErrs = []error{&walleterr.ProviderError{Code: walleterr.CodeUnrecognizedChain}}
	w.addErr = &walleterr.ProviderError{Code: walleterr.CodeUserRejected, Message: "User rejected the request."}

	err := NewNetworkGuard(sepolia, zap.NewNop()).EnsureNetwork(context.Background(), w)
	assert.ErrorIs(t, err, entity.ErrNetworkSwitch)
	assert.Equal(t, 1, w.count("switchChain"))
}
