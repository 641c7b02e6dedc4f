package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

const defaultResolveTimeout = 30 * time.Second

// SessionDeps are the collaborators of a ConnectionSession.
type SessionDeps struct {
	Networks   port.NetworkDefinitionProvider
	Tokens     port.TokenProvider // optional
	Factory    port.ConnectionFactory
	Binder     port.MultiSendBinder
	Translator port.AddressTranslator
	Watcher    *BalanceWatcher
	Submitter  *BatchTransferSubmitter
	Logger     port.Logger
	// ResolveTimeout bounds one deposit address resolution.
	ResolveTimeout time.Duration
}

// ConnectionSession owns the connected wallet and the chain connection of the active network.
// Every activation, switch or deactivation advances the epoch shared with the watcher; the
// deposit address resolved for an older epoch is discarded.
type ConnectionSession struct {
	deps   SessionDeps
	logger port.Logger

	// opMu serializes state transitions; mu guards the fields below.
	opMu sync.Mutex

	mu            sync.RWMutex
	active        bool
	wallet        port.Wallet
	conn          port.ChainConnection
	def           entity.NetworkDefinition
	epoch         uint64
	deposit       entity.DepositAddress
	cancelResolve context.CancelFunc
}

// NewConnectionSession creates an inactive session.
func NewConnectionSession(deps SessionDeps) *ConnectionSession {
	if deps.ResolveTimeout <= 0 {
		deps.ResolveTimeout = defaultResolveTimeout
	}
	return &ConnectionSession{deps: deps, logger: deps.Logger.With("component", "session")}
}

// Activate connects wallet to the network identified by networkID.
func (s *ConnectionSession) Activate(ctx context.Context, networkID string, wallet port.Wallet) (entity.SessionState, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.activate(ctx, networkID, wallet); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// SwitchNetwork keeps the wallet and moves the session to another network.
func (s *ConnectionSession) SwitchNetwork(ctx context.Context, networkID string) (entity.SessionState, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	active, wallet := s.active, s.wallet
	s.mu.RUnlock()
	if !active {
		return s.State(), entity.ErrNotReady
	}
	if err := s.activate(ctx, networkID, wallet); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// SwitchAccount keeps the network and replaces the wallet.
func (s *ConnectionSession) SwitchAccount(ctx context.Context, wallet port.Wallet) (entity.SessionState, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	active, networkID := s.active, s.def.Identifier
	s.mu.RUnlock()
	if !active {
		return s.State(), entity.ErrNotReady
	}
	if err := s.activate(ctx, networkID, wallet); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// Deactivate drops the wallet and connection, unmounts the watcher and unbinds the contract.
func (s *ConnectionSession) Deactivate() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.deps.Watcher.Unmount()
	s.deps.Submitter.Unbind()

	s.mu.Lock()
	if s.cancelResolve != nil {
		s.cancelResolve()
		s.cancelResolve = nil
	}
	s.active = false
	s.wallet = nil
	s.conn = nil
	s.def = entity.NetworkDefinition{}
	s.epoch = s.deps.Watcher.Epoch()
	s.deposit = entity.DepositAddress{}
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.Info("Session deactivated", "epoch", epoch)
}

func (s *ConnectionSession) activate(ctx context.Context, networkID string, wallet port.Wallet) error {
	if wallet == nil {
		return entity.ErrNotReady
	}
	def, ok := s.deps.Networks.GetNetworkDefinitionByName(networkID)
	if !ok {
		return fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, networkID)
	}

	conn, err := s.deps.Factory.Connect(ctx, def)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", entity.ErrConnectionUnavailable, def.Identifier, err)
	}
	remote, err := conn.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: chain id: %w", entity.ErrConnectionUnavailable, def.Identifier, err)
	}
	if !remote.IsUint64() || remote.Uint64() != def.ChainID {
		return fmt.Errorf("%w: %s expects chain %d, node reports %s", entity.ErrChainMismatch, def.Identifier, def.ChainID, remote)
	}

	epoch, err := s.deps.Watcher.Mount(conn, wallet.Address(), s.queriesFor(def))
	if err != nil {
		return err
	}

	if def.IsRollup() {
		contract, err := s.deps.Binder.BindMultiSend(ctx, conn)
		if err != nil {
			s.logger.Warn("Multisend contract unavailable", "network", def.Identifier, "error", err)
			s.deps.Submitter.Unbind()
		} else {
			s.deps.Submitter.Bind(contract)
		}
	} else {
		s.deps.Submitter.Unbind()
	}

	resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.ResolveTimeout)

	s.mu.Lock()
	if s.cancelResolve != nil {
		s.cancelResolve()
	}
	s.active = true
	s.wallet = wallet
	s.conn = conn
	s.def = def
	s.epoch = epoch
	s.deposit = entity.DepositAddress{Status: entity.DepositUnresolved}
	s.cancelResolve = cancel
	s.mu.Unlock()

	s.logger.Info("Session activated", "network", def.Identifier, "chainId", def.ChainID,
		"account", wallet.Address().Hex(), "epoch", epoch)

	go s.resolveDeposit(resolveCtx, cancel, epoch, def, conn, wallet.Address())
	return nil
}

func (s *ConnectionSession) queriesFor(def entity.NetworkDefinition) []entity.BalanceQuery {
	native := entity.BalanceQuery{Field: entity.FieldPrimaryChain, Symbol: def.NativeSymbol, Decimals: uint8(def.Decimals)}
	if def.IsRollup() {
		native.Field = entity.FieldRollupChain
		native.HolderIsShortAddress = true
	}
	queries := []entity.BalanceQuery{native}

	if s.deps.Tokens == nil {
		return queries
	}
	byNetwork, err := s.deps.Tokens.GetTokensByNetwork([]entity.NetworkDefinition{def})
	if err != nil {
		s.logger.Warn("Token list unavailable, tracking native balance only", "network", def.Identifier, "error", err)
		return queries
	}
	for _, token := range byNetwork[def.Identifier] {
		if !common.IsHexAddress(token.Address) {
			s.logger.Warn("Skipping token with malformed address", "network", def.Identifier, "symbol", token.Symbol)
			continue
		}
		queries = append(queries, entity.BalanceQuery{
			Field:                entity.FieldToken,
			Symbol:               token.Symbol,
			Decimals:             token.Decimals,
			TokenAddress:         common.HexToAddress(token.Address),
			HolderIsShortAddress: def.IsRollup(),
		})
	}
	return queries
}

// resolveDeposit looks the deposit address up over a rollup connection. On the primary
// network a connection to the rollup is opened for the lookup.
func (s *ConnectionSession) resolveDeposit(ctx context.Context, cancel context.CancelFunc, epoch uint64, def entity.NetworkDefinition, conn port.ChainConnection, account common.Address) {
	defer cancel()

	deposit := entity.DepositAddress{Status: entity.DepositResolved}
	address, err := s.depositAddress(ctx, def, conn, account)
	if err != nil {
		deposit = entity.DepositAddress{Status: entity.DepositFailed, Err: err.Error()}
	} else {
		deposit.Address = address
	}

	s.mu.Lock()
	if s.epoch != epoch || !s.active {
		s.mu.Unlock()
		s.logger.Debug("Dropping deposit address of a superseded epoch", "epoch", epoch)
		return
	}
	s.deposit = deposit
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Deposit address resolution failed", "account", account.Hex(), "epoch", epoch, "error", err)
		return
	}
	s.logger.Info("Deposit address resolved", "account", account.Hex(), "epoch", epoch)
}

func (s *ConnectionSession) depositAddress(ctx context.Context, def entity.NetworkDefinition, conn port.ChainConnection, account common.Address) (string, error) {
	if def.IsRollup() {
		return s.deps.Translator.ToDepositAddress(ctx, account.Hex(), conn)
	}
	return ResolveDepositAddress(ctx, s.deps.Networks, s.deps.Factory, s.deps.Translator, account.Hex())
}

// ResolveDepositAddress connects to the configured rollup and resolves the deposit address
// of the primary-chain owner address.
func ResolveDepositAddress(ctx context.Context, networks port.NetworkDefinitionProvider, factory port.ConnectionFactory, translator port.AddressTranslator, owner string) (string, error) {
	rollup, ok := networks.GetNetworkDefinitionByKind(entity.RollupNetwork)
	if !ok {
		return "", fmt.Errorf("%w: no rollup network configured", entity.ErrConnectionUnavailable)
	}
	conn, err := factory.Connect(ctx, rollup)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", entity.ErrConnectionUnavailable, rollup.Identifier, err)
	}
	return translator.ToDepositAddress(ctx, owner, conn)
}

// State describes the session.
func (s *ConnectionSession) State() entity.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := entity.SessionState{Active: s.active, Epoch: s.epoch, Deposit: s.deposit}
	if s.active {
		state.Account = s.wallet.Address().Hex()
		state.Network = s.def.Identifier
		state.ChainID = s.def.ChainID
		state.Kind = s.def.Kind
	}
	return state
}

// DepositAddress returns the deposit address of the current epoch.
func (s *ConnectionSession) DepositAddress() entity.DepositAddress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deposit
}

// Wallet returns the connected wallet, nil while inactive.
func (s *ConnectionSession) Wallet() port.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// Connection returns the active chain connection, nil while inactive.
func (s *ConnectionSession) Connection() port.ChainConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Network returns the active network definition.
func (s *ConnectionSession) Network() (entity.NetworkDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def, s.active
}

// Epoch returns the current session epoch.
func (s *ConnectionSession) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}
