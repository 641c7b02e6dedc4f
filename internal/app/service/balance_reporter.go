package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const defaultReportBatchSize = 50

// ReporterConfig tunes how balances are batched.
type ReporterConfig struct {
	BatchSize     int
	MaxConcurrent int
}

// BalanceReporter reads the balances of many addresses on one network through JSON-RPC batches.
type BalanceReporter struct {
	networks   port.NetworkDefinitionProvider
	tokens     port.TokenProvider
	factory    port.ConnectionFactory
	translator port.AddressTranslator
	logger     port.Logger
	cfg        ReporterConfig
}

// NewBalanceReporter creates a reporter.
func NewBalanceReporter(
	networks port.NetworkDefinitionProvider,
	tokens port.TokenProvider,
	factory port.ConnectionFactory,
	translator port.AddressTranslator,
	logger port.Logger,
	cfg ReporterConfig,
) *BalanceReporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultReportBatchSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &BalanceReporter{
		networks:   networks,
		tokens:     tokens,
		factory:    factory,
		translator: translator,
		logger:     logger.With("component", "balance_reporter"),
		cfg:        cfg,
	}
}

// Report returns one HolderReport per address, in input order. On the rollup the balances
// of the short address are read. Per-address problems are recorded in the report; only a
// missing network or connection fails the whole call.
func (r *BalanceReporter) Report(ctx context.Context, networkID string, addresses []string) ([]entity.HolderReport, error) {
	def, ok := r.networks.GetNetworkDefinitionByName(networkID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, networkID)
	}
	conn, err := r.factory.Connect(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entity.ErrConnectionUnavailable, def.Identifier, err)
	}

	var tokens []entity.TokenInfo
	if r.tokens != nil {
		byNetwork, err := r.tokens.GetTokensByNetwork([]entity.NetworkDefinition{def})
		if err != nil {
			r.logger.Warn("Failed to get tokens by network, reporting native balance only", "network", def.Identifier, "error", err)
		}
		tokens = byNetwork[def.Identifier]
	}

	reports := make([]entity.HolderReport, len(addresses))
	index := make(map[string]int, len(addresses))
	var requests []entity.BalanceRequestItem

	for i, raw := range addresses {
		address := strings.TrimSpace(raw)
		reports[i] = entity.HolderReport{Address: address, Network: def.Identifier, ChainID: def.ChainID}

		short, err := r.translator.ToShortAddress(address)
		if err != nil {
			reports[i].Errors = append(reports[i].Errors, err.Error())
			continue
		}
		holder := common.HexToAddress(address)
		if def.IsRollup() {
			holder = short.Address()
			reports[i].ShortAddress = short.Hex()
		}

		for _, req := range r.requestsFor(i, def, holder, tokens) {
			index[req.ID] = i
			requests = append(requests, req)
		}
	}

	if len(requests) == 0 {
		return reports, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.MaxConcurrent)

	for _, batch := range utils.Batch(requests, r.cfg.BatchSize) {
		g.Go(func() error {
			results, err := conn.Balances(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error("Batch balance request failed", "network", def.Identifier, "requests", len(batch), "error", err)
				for _, req := range batch {
					i := index[req.ID]
					reports[i].Errors = append(reports[i].Errors, fmt.Sprintf("%s: %v", req.TokenSymbol, err))
				}
				return nil
			}
			for _, res := range results {
				i, ok := index[res.RequestID]
				if !ok {
					continue
				}
				if res.Error != nil {
					fe := &entity.FetchError{Field: res.TokenSymbol, NetworkName: def.Name, ChainID: def.ChainID, Holder: res.Holder.Hex(), Err: res.Error}
					reports[i].Errors = append(reports[i].Errors, fe.Error())
					continue
				}
				detail := entity.TokenDetail{
					TokenSymbol:      res.TokenSymbol,
					Decimals:         res.Decimals,
					IsNative:         res.IsNative,
					FormattedBalance: res.FormattedBalance,
				}
				if !res.IsNative {
					detail.TokenAddress = res.TokenAddress.Hex()
				}
				reports[i].Balances = append(reports[i].Balances, detail)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("Balance report built", "network", def.Identifier, "holders", len(addresses), "requests", len(requests))
	return reports, nil
}

func (r *BalanceReporter) requestsFor(i int, def entity.NetworkDefinition, holder common.Address, tokens []entity.TokenInfo) []entity.BalanceRequestItem {
	nativeDecimals := def.Decimals
	if nativeDecimals == 0 {
		nativeDecimals = 18
	}
	requests := make([]entity.BalanceRequestItem, 0, 1+len(tokens))
	requests = append(requests, entity.BalanceRequestItem{
		ID:            fmt.Sprintf("%d-%s-NATIVE", i, def.Identifier),
		Type:          entity.NativeBalanceRequest,
		Holder:        holder,
		TokenSymbol:   def.NativeSymbol,
		TokenDecimals: uint8(nativeDecimals),
	})
	for _, token := range tokens {
		if token.ChainID != def.ChainID || !common.IsHexAddress(token.Address) {
			r.logger.Warn("Skipping token in batch preparation", "network", def.Identifier,
				"token_symbol", token.Symbol, "token_chain_id", token.ChainID)
			continue
		}
		requests = append(requests, entity.BalanceRequestItem{
			ID:            fmt.Sprintf("%d-%s-%s", i, def.Identifier, strings.ToLower(token.Address)),
			Type:          entity.TokenBalanceRequest,
			Holder:        holder,
			TokenAddress:  common.HexToAddress(token.Address),
			TokenSymbol:   token.Symbol,
			TokenDecimals: token.Decimals,
		})
	}
	return requests
}
