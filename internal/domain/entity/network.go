package entity

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency describes the chain's fee currency as wallets expect it in add-chain requests.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
}

// ChainParameters is the compiled-in description of the chain payments are sent on.
// ChainIDHex is the value compared against the network a wallet reports.
type ChainParameters struct {
	ChainIDHex     string         `json:"chainId" yaml:"chainId"`
	Identifier     string         `json:"identifier" yaml:"identifier"` // Короткое имя для конфига, например "sepolia"
	DisplayName    string         `json:"chainName" yaml:"chainName"`
	NativeCurrency NativeCurrency `json:"nativeCurrency" yaml:"nativeCurrency"`
	RPCEndpoints   []string       `json:"rpcUrls" yaml:"rpcUrls"`
	ExplorerURL    string         `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// ChainID decodes ChainIDHex.
func (p ChainParameters) ChainID() (*big.Int, error) {
	id, ok := parseChainID(strings.TrimSpace(p.ChainIDHex))
	if !ok {
		return nil, fmt.Errorf("invalid chain id %q for %s", p.ChainIDHex, p.DisplayName)
	}
	return id, nil
}

// SameChain reports whether a wallet-reported chain id denotes this chain.
// Wallets differ in letter casing and leading zeros, so both sides are decoded first.
func (p ChainParameters) SameChain(reported string) bool {
	return CanonicalChainID(reported) == CanonicalChainID(p.ChainIDHex)
}

// CanonicalChainID returns the lower-case, minimal hex form of a chain id.
// Values that do not decode are returned lower-cased and trimmed.
func CanonicalChainID(id string) string {
	trimmed := strings.ToLower(strings.TrimSpace(id))
	v, ok := parseChainID(trimmed)
	if !ok {
		return trimmed
	}
	return hexutil.EncodeBig(v)
}

// parseChainID decodes 0x-prefixed hex. Unlike hexutil.DecodeBig it accepts
// leading zeros, which some wallets report.
func parseChainID(id string) (*big.Int, bool) {
	digits, ok := strings.CutPrefix(strings.ToLower(id), "0x")
	if !ok || digits == "" {
		return nil, false
	}
	return new(big.Int).SetString(digits, 16)
}
