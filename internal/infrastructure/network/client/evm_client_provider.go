package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
	defaultRPCCallTimeout            = 15 * time.Second
)

// EVMClientProvider implements port.ConnectionFactory and keeps one client per network.
type EVMClientProvider struct {
	clients     map[string]*EVMClient
	mu          sync.Mutex
	opts        Options
	logger      port.Logger
	loggerInfo  func(msg string, args ...any)
	loggerError func(msg string, args ...any)
}

// NewEVMClientProvider creates a connection factory caching clients by network identifier.
func NewEVMClientProvider(opts Options, logger port.Logger) *EVMClientProvider {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = defaultProviderConnectionTimeout
	}
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = defaultRPCCallTimeout
	}
	l := logger.With("component", "evm_client_provider")
	return &EVMClientProvider{
		clients:     make(map[string]*EVMClient),
		opts:        opts,
		logger:      logger,
		loggerInfo:  l.Info,
		loggerError: l.Error,
	}
}

// Connect returns the cached client of netDef or dials a new one. A cached client whose
// definition changed is replaced.
func (p *EVMClientProvider) Connect(_ context.Context, netDef entity.NetworkDefinition) (port.ChainConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientKey := netDef.Identifier
	if client, exists := p.clients[clientKey]; exists {
		if client.Definition().PrimaryRPCURL == netDef.PrimaryRPCURL && client.Definition().ChainID == netDef.ChainID {
			return client, nil
		}
		client.Close()
		delete(p.clients, clientKey)
	}

	p.loggerInfo("Creating new EVM client", "network", netDef.Identifier, "rpc_primary", netDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(netDef, p.opts, p.logger)
	if err != nil {
		p.loggerError("Failed to create EVM client", "network", netDef.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", netDef.Name, err)
	}

	p.clients[clientKey] = newClient
	return newClient, nil
}

// Close releases every cached client.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, client := range p.clients {
		client.Close()
		delete(p.clients, key)
	}
}
