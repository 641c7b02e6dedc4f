package networkdefinition

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[string]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

var _ port.NetworkDefinitionProvider = (*NetworkDefinitionProvider)(nil)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Rinkeby = entity.NetworkDefinition{
		ChainID:          4,
		Name:             "Rinkeby",
		Identifier:       "rinkeby",
		Kind:             entity.PrimaryNetwork,
		NativeSymbol:     "rETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://rpc.ankr.com/eth_rinkeby",
		FallbackRPCURLs:  []string{"https://rinkeby-light.eth.linkpool.io"},
		BlockExplorerURL: "https://rinkeby.etherscan.io",
		PollingInterval:  6 * time.Second,
	}
	GodwokenTestnet = entity.NetworkDefinition{
		ChainID:          71393,
		Name:             "Godwoken Testnet",
		Identifier:       "godwoken-testnet",
		Kind:             entity.RollupNetwork,
		NativeSymbol:     "CKB",
		Decimals:         8,
		PrimaryRPCURL:    "https://godwoken-testnet-web3-rpc.ckbapp.dev",
		BlockExplorerURL: "https://aggron.layerview.io",
		PollingInterval:  6 * time.Second,
	}
)

var allKnownDefinitions = map[string]entity.NetworkDefinition{ //nolint:gochecknoglobals // Global for definitions
	Rinkeby.Identifier:         Rinkeby,
	GodwokenTestnet.Identifier: GodwokenTestnet,
}

// NewNetworkDefinitionProvider activates every predefined network, with the non-zero fields
// of each override replacing the predefined ones. An override with an unknown identifier
// defines a new network.
func NewNetworkDefinitionProvider(log port.Logger, overrides []entity.NetworkDefinition) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:            log,
		allNetworkDefs:    make(map[string]entity.NetworkDefinition, len(allKnownDefinitions)+len(overrides)),
		activeNetworkDefs: make([]entity.NetworkDefinition, 0, len(allKnownDefinitions)+len(overrides)),
	}
	for id, def := range allKnownDefinitions {
		p.allNetworkDefs[id] = def
	}

	for _, o := range overrides {
		identifier := strings.ToLower(strings.TrimSpace(o.Identifier))
		if identifier == "" {
			p.logger.Warn("Network override without identifier. Skipping.", "name", o.Name)
			continue
		}
		def, known := p.allNetworkDefs[identifier]
		if !known {
			if o.Kind == "" || o.ChainID == 0 {
				p.logger.Warn(fmt.Sprintf("Network '%s' is not predefined and lacks kind or chainId. Skipping.", identifier))
				continue
			}
			def = entity.NetworkDefinition{Identifier: identifier}
		}
		p.allNetworkDefs[identifier] = merge(def, o)
		p.logger.Debug(fmt.Sprintf("Network '%s' configured from overrides.", identifier))
	}

	for _, def := range p.allNetworkDefs {
		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
	}
	sort.Slice(p.activeNetworkDefs, func(i, j int) bool {
		return p.activeNetworkDefs[i].ChainID < p.activeNetworkDefs[j].ChainID
	})

	p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Active networks: %d", len(p.activeNetworkDefs)))
	for _, netDef := range p.activeNetworkDefs {
		p.logger.Debug(fmt.Sprintf("  - Active network: %s (ID: %s, ChainID: %d, Kind: %s)", netDef.Name, netDef.Identifier, netDef.ChainID, netDef.Kind))
	}
	return p
}

func merge(def, o entity.NetworkDefinition) entity.NetworkDefinition {
	if o.ChainID != 0 {
		def.ChainID = o.ChainID
	}
	if o.Name != "" {
		def.Name = o.Name
	}
	if o.Kind != "" {
		def.Kind = o.Kind
	}
	if o.NativeSymbol != "" {
		def.NativeSymbol = o.NativeSymbol
	}
	if o.Decimals != 0 {
		def.Decimals = o.Decimals
	}
	if o.PrimaryRPCURL != "" {
		def.PrimaryRPCURL = o.PrimaryRPCURL
	}
	if len(o.FallbackRPCURLs) > 0 {
		def.FallbackRPCURLs = o.FallbackRPCURLs
	}
	if o.BlockExplorerURL != "" {
		def.BlockExplorerURL = o.BlockExplorerURL
	}
	if o.PollingInterval > 0 {
		def.PollingInterval = o.PollingInterval
	}
	return def
}

// GetAllNetworkDefinitions returns the active network definitions ordered by chain ID.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByChainID returns a specific network definition by its chain ID if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// GetNetworkDefinitionByKind returns the first active network playing kind, by chain ID order.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByKind(kind entity.NetworkKind) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.Kind == kind {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
