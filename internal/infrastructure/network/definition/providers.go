package networkdefinition

import (
	"strings"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	"go.uber.org/zap"
)

// ChainParametersProvider serves the compiled-in chains plus any chains from config.
type ChainParametersProvider struct {
	logger *zap.Logger
	byID   map[string]entity.ChainParameters
	order  []string
}

// Predefined chain parameters
var ( //nolint:gochecknoglobals // Global for definitions
	Sepolia = entity.ChainParameters{
		ChainIDHex:     "0xaa36a7", // 11155111
		Identifier:     "sepolia",
		DisplayName:    "Sepolia Testnet",
		NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCEndpoints: []string{
			"https://sepolia.infura.io/v3/de11139a237947098e16a7eff66b3fd1",
			"https://eth-sepolia.g.alchemy.com/v2/demo",
			"https://rpc.sepolia.org",
		},
		ExplorerURL: "https://sepolia.etherscan.io/",
	}
	Holesky = entity.ChainParameters{
		ChainIDHex:     "0x4268", // 17000
		Identifier:     "holesky",
		DisplayName:    "Holesky Testnet",
		NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCEndpoints:   []string{"https://ethereum-holesky-rpc.publicnode.com", "https://holesky.drpc.org"},
		ExplorerURL:    "https://holesky.etherscan.io/",
	}
	PolygonAmoy = entity.ChainParameters{
		ChainIDHex:     "0x13882", // 80002
		Identifier:     "amoy",
		DisplayName:    "Polygon Amoy Testnet",
		NativeCurrency: entity.NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
		RPCEndpoints:   []string{"https://rpc-amoy.polygon.technology", "https://polygon-amoy-bor-rpc.publicnode.com"},
		ExplorerURL:    "https://amoy.polygonscan.com/",
	}
	// Anvil / Hardhat по умолчанию
	LocalDev = entity.ChainParameters{
		ChainIDHex:     "0x7a69", // 31337
		Identifier:     "local",
		DisplayName:    "Local Dev Chain",
		NativeCurrency: entity.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPCEndpoints:   []string{"http://127.0.0.1:8545"},
	}
)

var allKnownDefinitions = []entity.ChainParameters{Sepolia, Holesky, PolygonAmoy, LocalDev} //nolint:gochecknoglobals

// NewChainParametersProvider indexes the predefined chains and then extra,
// which may override a predefined chain with the same identifier.
func NewChainParametersProvider(logger *zap.Logger, extra []entity.ChainParameters) port.ChainParametersProvider {
	p := &ChainParametersProvider{
		logger: logger.Named("ChainParametersProvider"),
		byID:   make(map[string]entity.ChainParameters),
	}
	for _, def := range allKnownDefinitions {
		p.add(def)
	}
	for _, def := range extra {
		if def.Identifier == "" || def.ChainIDHex == "" {
			p.logger.Warn("Skipping configured chain without identifier or chain id", zap.String("name", def.DisplayName))
			continue
		}
		if _, err := def.ChainID(); err != nil {
			p.logger.Warn("Skipping configured chain with invalid chain id", zap.String("identifier", def.Identifier), zap.Error(err))
			continue
		}
		if _, exists := p.byID[strings.ToLower(def.Identifier)]; exists {
			p.logger.Info("Configured chain overrides built-in definition", zap.String("identifier", def.Identifier))
		}
		p.add(def)
	}
	return p
}

func (p *ChainParametersProvider) add(def entity.ChainParameters) {
	key := strings.ToLower(def.Identifier)
	if _, exists := p.byID[key]; !exists {
		p.order = append(p.order, key)
	}
	p.byID[key] = def
}

// All returns every known chain in definition order.
func (p *ChainParametersProvider) All() []entity.ChainParameters {
	out := make([]entity.ChainParameters, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.byID[key])
	}
	return out
}

// ByIdentifier looks a chain up by its config identifier, case-insensitively.
func (p *ChainParametersProvider) ByIdentifier(identifier string) (entity.ChainParameters, bool) {
	def, ok := p.byID[strings.ToLower(identifier)]
	return def, ok
}

// ByChainID looks a chain up by any hex spelling of its id.
func (p *ChainParametersProvider) ByChainID(chainIDHex string) (entity.ChainParameters, bool) {
	for _, key := range p.order {
		if def := p.byID[key]; def.SameChain(chainIDHex) {
			return def, true
		}
	}
	return entity.ChainParameters{}, false
}
