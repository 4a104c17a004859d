package configloader

import (
	"fmt"
	"os"
	"strings"

	"paygate/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Chain   ChainConfig   `yaml:"chain"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Backend BackendConfig `yaml:"backend"`
	Payment PaymentConfig `yaml:"payment"`
}

// ServerConfig holds the server-specific configuration. Timeouts are in seconds.
type ServerConfig struct {
	Port         string   `yaml:"port"`
	ReadTimeout  int      `yaml:"readTimeout"`
	WriteTimeout int      `yaml:"writeTimeout"`
	IdleTimeout  int      `yaml:"idleTimeout"`
	AllowOrigins []string `yaml:"allowOrigins"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// ChainConfig selects the chain payments are made on.
type ChainConfig struct {
	Identifier string            `yaml:"identifier"`
	Extra      []ChainDefinition `yaml:"extra"`
}

// ChainDefinition describes a chain not compiled into the binary.
type ChainDefinition struct {
	ChainID        string   `yaml:"chainId"`
	Identifier     string   `yaml:"identifier"`
	Name           string   `yaml:"name"`
	CurrencyName   string   `yaml:"currencyName"`
	CurrencySymbol string   `yaml:"currencySymbol"`
	Decimals       int32    `yaml:"decimals"`
	RPCURLs        []string `yaml:"rpcUrls"`
	ExplorerURL    string   `yaml:"explorerUrl"`
}

// WalletConfig selects the wallet backend.
type WalletConfig struct {
	Mode                string `yaml:"mode"` // rpc, keyed, none
	RPCURL              string `yaml:"rpcURL"`
	PrivateKeyEnv       string `yaml:"privateKeyEnv"`
	HomeChain           string `yaml:"homeChain"`
	ProbeTimeoutMs      int64  `yaml:"probeTimeoutMs"`
	ConnectionTimeoutMs int64  `yaml:"connectionTimeoutMs"`
	RPCCallTimeoutMs    int64  `yaml:"rpcCallTimeoutMs"`
}

// BackendConfig holds the platform backend settings.
type BackendConfig struct {
	BaseURL                string `yaml:"baseURL"`
	RequestTimeoutMillis   int64  `yaml:"requestTimeoutMillis"`
	AuthTokenEnv           string `yaml:"authTokenEnv"`
	PublicConfigTTLMinutes int    `yaml:"publicConfigTTLMinutes"`
}

// PaymentConfig holds checkout settings.
type PaymentConfig struct {
	BalancePolicy         string `yaml:"balancePolicy"` // strict, estimated-gas
	ReceiptPollIntervalMs int64  `yaml:"receiptPollIntervalMs"`
	ReceiptPollBurst      int    `yaml:"receiptPollBurst"`
	// FallbackFee is charged when the backend publishes no fee. Empty disables it.
	FallbackFee string `yaml:"fallbackFee"`
}

// Params converts the definition into chain parameters.
func (d ChainDefinition) Params() entity.ChainParameters {
	return entity.ChainParameters{
		ChainIDHex:  d.ChainID,
		Identifier:  d.Identifier,
		DisplayName: d.Name,
		NativeCurrency: entity.NativeCurrency{
			Name:     d.CurrencyName,
			Symbol:   d.CurrencySymbol,
			Decimals: d.Decimals,
		},
		RPCEndpoints: d.RPCURLs,
		ExplorerURL:  d.ExplorerURL,
	}
}

// ExtraChains returns the configured chain definitions as chain parameters.
func (c *Config) ExtraChains() []entity.ChainParameters {
	out := make([]entity.ChainParameters, 0, len(c.Chain.Extra))
	for _, d := range c.Chain.Extra {
		out = append(out, d.Params())
	}
	return out
}

// FallbackFee returns the parsed fallback fee; zero when unset.
func (c *Config) FallbackFee() decimal.Decimal {
	fee, err := decimal.NewFromString(c.Payment.FallbackFee)
	if err != nil {
		return decimal.Zero
	}
	return fee
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8090"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Chain.Identifier == "" {
		cfg.Chain.Identifier = "sepolia"
		logrus.Infof("Chain.Identifier not set, defaulting to %s", cfg.Chain.Identifier)
	}

	if cfg.Wallet.Mode == "" {
		cfg.Wallet.Mode = "none"
		logrus.Infof("Wallet.Mode not set, defaulting to %s", cfg.Wallet.Mode)
	}
	cfg.Wallet.Mode = strings.ToLower(cfg.Wallet.Mode)
	if cfg.Wallet.PrivateKeyEnv == "" {
		cfg.Wallet.PrivateKeyEnv = "PAYGATE_WALLET_KEY"
	}
	if cfg.Wallet.HomeChain == "" {
		cfg.Wallet.HomeChain = cfg.Chain.Identifier
	}
	if cfg.Wallet.ProbeTimeoutMs <= 0 {
		cfg.Wallet.ProbeTimeoutMs = 3000
	}
	if cfg.Wallet.ConnectionTimeoutMs <= 0 {
		cfg.Wallet.ConnectionTimeoutMs = 5000
		logrus.Infof("Wallet.ConnectionTimeoutMs not set, defaulting to %d ms", cfg.Wallet.ConnectionTimeoutMs)
	}
	if cfg.Wallet.RPCCallTimeoutMs <= 0 {
		cfg.Wallet.RPCCallTimeoutMs = 10000
		logrus.Infof("Wallet.RPCCallTimeoutMs not set, defaulting to %d ms", cfg.Wallet.RPCCallTimeoutMs)
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8080/api"
		logrus.Infof("Backend.BaseURL not set, defaulting to %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RequestTimeoutMillis == 0 {
		cfg.Backend.RequestTimeoutMillis = 20000
		logrus.Infof("Backend.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Backend.RequestTimeoutMillis)
	}
	if cfg.Backend.AuthTokenEnv == "" {
		cfg.Backend.AuthTokenEnv = "PAYGATE_AUTH_TOKEN"
	}
	if cfg.Backend.PublicConfigTTLMinutes == 0 {
		cfg.Backend.PublicConfigTTLMinutes = 5
		logrus.Infof("Backend.PublicConfigTTLMinutes not set, defaulting to %d minutes", cfg.Backend.PublicConfigTTLMinutes)
	}

	if cfg.Payment.BalancePolicy == "" {
		cfg.Payment.BalancePolicy = "strict"
	}
	cfg.Payment.BalancePolicy = strings.ToLower(cfg.Payment.BalancePolicy)
	if cfg.Payment.ReceiptPollIntervalMs <= 0 {
		cfg.Payment.ReceiptPollIntervalMs = 2000
		logrus.Infof("Payment.ReceiptPollIntervalMs not set, defaulting to %d ms", cfg.Payment.ReceiptPollIntervalMs)
	}
	if cfg.Payment.ReceiptPollBurst <= 0 {
		cfg.Payment.ReceiptPollBurst = 1
	}
}

func validate(cfg *Config) error {
	switch cfg.Wallet.Mode {
	case "rpc":
		if cfg.Wallet.RPCURL == "" {
			return fmt.Errorf("wallet.rpcURL is required in rpc mode")
		}
	case "keyed", "none":
	default:
		return fmt.Errorf("unknown wallet.mode %q", cfg.Wallet.Mode)
	}

	switch cfg.Payment.BalancePolicy {
	case "strict", "estimated-gas":
	default:
		return fmt.Errorf("unknown payment.balancePolicy %q", cfg.Payment.BalancePolicy)
	}

	if cfg.Payment.FallbackFee != "" {
		fee, err := decimal.NewFromString(cfg.Payment.FallbackFee)
		if err != nil {
			return fmt.Errorf("invalid payment.fallbackFee: %w", err)
		}
		if !fee.IsPositive() {
			return fmt.Errorf("payment.fallbackFee must be positive, got %s", fee)
		}
	}

	for i, d := range cfg.Chain.Extra {
		if d.Identifier == "" || d.ChainID == "" {
			return fmt.Errorf("chain.extra[%d]: identifier and chainId are required", i)
		}
		if _, err := d.Params().ChainID(); err != nil {
			return fmt.Errorf("chain.extra[%d]: %w", i, err)
		}
	}
	return nil
}
