package wallet

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"
	"paygate/internal/infrastructure/network/client"

	"go.uber.org/zap"
)

const (
	ModeRPC   = "rpc"
	ModeKeyed = "keyed"
	ModeNone  = "none"
)

// DetectorConfig selects and configures the wallet backend.
type DetectorConfig struct {
	Mode          string
	RPCURL        string
	PrivateKeyEnv string
	Home          entity.ChainParameters
	ProbeTimeout  time.Duration
}

// Detector finds the wallet once and then keeps returning it, the way a page
// sees the same injected provider for its whole life.
type Detector struct {
	cfg     DetectorConfig
	clients *client.EVMClientProvider
	logger  *zap.Logger

	mu     sync.Mutex
	wallet port.WalletProvider
}

func NewDetector(cfg DetectorConfig, clients *client.EVMClientProvider, logger *zap.Logger) *Detector {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	return &Detector{cfg: cfg, clients: clients, logger: logger.Named("WalletDetector")}
}

// Detect returns the wallet, or nil without error when none is available.
func (d *Detector) Detect(ctx context.Context) (port.WalletProvider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wallet != nil {
		return d.wallet, nil
	}

	switch strings.ToLower(d.cfg.Mode) {
	case ModeRPC:
		w, err := d.detectRPC(ctx)
		if err != nil || w == nil {
			return nil, err
		}
		d.wallet = w
	case ModeKeyed:
		hexKey := os.Getenv(d.cfg.PrivateKeyEnv)
		if hexKey == "" {
			d.logger.Info("Wallet private key not set", zap.String("env", d.cfg.PrivateKeyEnv))
			return nil, nil
		}
		w, err := NewKeyedWallet(hexKey, d.cfg.Home, d.clients, d.logger)
		if err != nil {
			return nil, err
		}
		d.wallet = w
	default:
		return nil, nil
	}

	d.logger.Info("Wallet detected", zap.String("mode", d.cfg.Mode))
	return d.wallet, nil
}

// detectRPC treats an endpoint that does not answer eth_chainId as absent.
func (d *Detector) detectRPC(ctx context.Context) (port.WalletProvider, error) {
	if d.cfg.RPCURL == "" {
		return nil, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	w, err := DialRPCWallet(probeCtx, d.cfg.RPCURL, d.logger)
	if err != nil {
		d.logger.Warn("Wallet endpoint unavailable", zap.String("url", d.cfg.RPCURL), zap.Error(err))
		return nil, nil
	}
	if _, err := w.ChainID(probeCtx); err != nil {
		d.logger.Warn("Wallet endpoint did not answer", zap.String("url", d.cfg.RPCURL), zap.Error(err))
		w.Close()
		return nil, nil
	}
	return w, nil
}
