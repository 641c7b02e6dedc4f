package provider

import (
	"sort"
	"strings"
	"sync"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
)

type tokenProviderImpl struct {
	loader port.TokenProvider
	logger port.Logger

	mu          sync.Mutex
	tokensCache map[string]map[string][]entity.TokenInfo // key: sorted network identifiers
}

// NewTokenProvider wraps loader with a cache per requested network set.
func NewTokenProvider(loader port.TokenProvider, logger port.Logger) port.TokenProvider {
	return &tokenProviderImpl{
		loader:      loader,
		logger:      logger,
		tokensCache: make(map[string]map[string][]entity.TokenInfo),
	}
}

// GetTokensByNetwork loads token definitions for the given networks.
// It caches the results after the first successful load.
func (p *tokenProviderImpl) GetTokensByNetwork(activeNetworkDefs []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	ids := make([]string, 0, len(activeNetworkDefs))
	for _, def := range activeNetworkDefs {
		ids = append(ids, def.Identifier)
	}
	sort.Strings(ids)
	key := strings.Join(ids, ",")

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.tokensCache[key]; ok {
		p.logger.Debug("Returning cached tokens by network", "networks", key)
		return cached, nil
	}

	tokens, err := p.loader.GetTokensByNetwork(activeNetworkDefs)
	if err != nil {
		p.logger.Error("Failed to load tokens", "networks", key, "error", err)
		return nil, err
	}
	p.tokensCache[key] = tokens
	p.logger.Debug("Tokens loaded and cached", "networks", key, "total_networks_with_tokens", len(tokens))
	return tokens, nil
}
