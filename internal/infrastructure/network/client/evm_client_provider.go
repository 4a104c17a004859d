package client

import (
	"fmt"
	"sync"
	"time"

	"paygate/internal/domain/entity"

	"go.uber.org/zap"
)

// EVMClientProvider dials chains on first use and caches the connections.
type EVMClientProvider struct {
	clients           map[string]*EVMClient
	mu                sync.Mutex
	logger            *zap.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewEVMClientProvider creates an empty provider.
func NewEVMClientProvider(connectionTimeout, rpcCallTimeout time.Duration, logger *zap.Logger) *EVMClientProvider {
	return &EVMClientProvider{
		clients:           make(map[string]*EVMClient),
		logger:            logger.Named("EVMClientProvider"),
		connectionTimeout: connectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
	}
}

// GetClient returns the cached client for params, dialing it if needed.
func (p *EVMClientProvider) GetClient(params entity.ChainParameters) (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := entity.CanonicalChainID(params.ChainIDHex)
	if client, exists := p.clients[key]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", zap.String("network", params.DisplayName), zap.Strings("rpcEndpoints", params.RPCEndpoints))
	newClient, err := NewEVMClient(params, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", zap.String("network", params.DisplayName), zap.Error(err))
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", params.DisplayName, err)
	}

	p.clients[key] = newClient
	return newClient, nil
}

// Close closes every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.clients {
		c.Close()
		delete(p.clients, key)
	}
}
