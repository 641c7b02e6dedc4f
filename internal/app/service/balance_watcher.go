package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 10 * time.Second
	blockBufferSize     = 16
)

// BalanceWatcher keeps a BalanceSnapshot of one account on one connection live.
//
// Every Mount and Unmount advances the epoch. Fetches carry the epoch they were started in
// and their results are discarded once it is superseded, so a slow response from a previous
// account or chain can never overwrite the current snapshot.
type BalanceWatcher struct {
	translator   port.AddressTranslator
	logger       port.Logger
	fetchTimeout time.Duration

	mu       sync.RWMutex
	epoch    uint64
	mount    *mountState
	snapshot entity.BalanceSnapshot

	subsMu      sync.Mutex
	subscribers map[int]chan entity.BalanceSnapshot
	nextSubID   int
}

type mountState struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sub     ethereum.Subscription
	conn    port.ChainConnection
	account common.Address
	short   common.Address
	queries []entity.BalanceQuery
}

// NewBalanceWatcher creates an unmounted watcher.
func NewBalanceWatcher(translator port.AddressTranslator, logger port.Logger, fetchTimeout time.Duration) *BalanceWatcher {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &BalanceWatcher{
		translator:   translator,
		logger:       logger.With("component", "balance_watcher"),
		fetchTimeout: fetchTimeout,
		snapshot:     entity.BalanceSnapshot{TokenBalances: map[string]entity.BalanceValue{}},
		subscribers:  make(map[int]chan entity.BalanceSnapshot),
	}
}

// Mount tears down any previous session, subscribes to new blocks on conn and fetches the
// block number and every query once. It returns the new epoch.
func (w *BalanceWatcher) Mount(conn port.ChainConnection, account common.Address, queries []entity.BalanceQuery) (uint64, error) {
	short, err := w.holderFor(account, queries)
	if err != nil {
		return 0, err
	}

	def := conn.Definition()
	ctx, cancel := context.WithCancel(context.Background())
	m := &mountState{
		ctx:     ctx,
		cancel:  cancel,
		conn:    conn,
		account: account,
		short:   short,
		queries: append([]entity.BalanceQuery(nil), queries...),
	}

	w.mu.Lock()
	w.teardownLocked()
	epoch := w.epoch
	w.mount = m
	w.snapshot = freshSnapshot(epoch, account, def.ChainID, queries)
	snap := w.snapshot.Clone()
	w.mu.Unlock()
	w.publish(snap)

	blocks := make(chan uint64, blockBufferSize)
	sub, err := conn.SubscribeBlocks(ctx, blocks)
	if err != nil {
		w.logger.Warn("Block subscription failed, balances will not follow new blocks",
			"network", def.Identifier, "epoch", epoch, "error", err)
	} else {
		w.mu.Lock()
		if w.epoch == epoch {
			m.sub = sub
		} else {
			sub.Unsubscribe()
			sub = nil
		}
		w.mu.Unlock()
		if sub != nil {
			go w.follow(m, epoch, blocks, sub)
		}
	}

	w.logger.Info("Watcher mounted", "network", def.Identifier, "account", account.Hex(), "epoch", epoch, "queries", len(queries))
	go w.fetchAll(m, epoch, true)
	return epoch, nil
}

// Unmount advances the epoch, drops the block subscription and resets the snapshot.
func (w *BalanceWatcher) Unmount() {
	w.mu.Lock()
	w.teardownLocked()
	w.snapshot = entity.BalanceSnapshot{Epoch: w.epoch, TokenBalances: map[string]entity.BalanceValue{}}
	snap := w.snapshot.Clone()
	w.mu.Unlock()
	w.publish(snap)
}

// Refresh re-issues every query for the current epoch and waits for the results.
func (w *BalanceWatcher) Refresh() {
	w.mu.RLock()
	m, epoch := w.mount, w.epoch
	w.mu.RUnlock()
	if m == nil {
		return
	}
	w.fetchAll(m, epoch, true)
}

// Snapshot returns a copy of the current snapshot.
func (w *BalanceWatcher) Snapshot() entity.BalanceSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot.Clone()
}

// Epoch returns the current epoch.
func (w *BalanceWatcher) Epoch() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.epoch
}

// Subscribe returns a channel receiving every snapshot change. Slow readers only see the
// latest snapshot. The returned func removes the subscription.
func (w *BalanceWatcher) Subscribe() (<-chan entity.BalanceSnapshot, func()) {
	ch := make(chan entity.BalanceSnapshot, 1)

	w.subsMu.Lock()
	id := w.nextSubID
	w.nextSubID++
	w.subscribers[id] = ch
	w.subsMu.Unlock()

	return ch, func() {
		w.subsMu.Lock()
		delete(w.subscribers, id)
		w.subsMu.Unlock()
	}
}

func (w *BalanceWatcher) teardownLocked() {
	w.epoch++
	metrics.SessionEpoch.Set(float64(w.epoch))
	if w.mount == nil {
		return
	}
	w.mount.cancel()
	if w.mount.sub != nil {
		w.mount.sub.Unsubscribe()
	}
	w.mount = nil
}

func (w *BalanceWatcher) holderFor(account common.Address, queries []entity.BalanceQuery) (common.Address, error) {
	for _, q := range queries {
		if q.HolderIsShortAddress {
			short, err := w.translator.ToShortAddress(account.Hex())
			if err != nil {
				return common.Address{}, err
			}
			return short.Address(), nil
		}
	}
	return account, nil
}

func freshSnapshot(epoch uint64, account common.Address, chainID uint64, queries []entity.BalanceQuery) entity.BalanceSnapshot {
	s := entity.BalanceSnapshot{
		Account:       account,
		ChainID:       chainID,
		Epoch:         epoch,
		TokenBalances: make(map[string]entity.BalanceValue),
	}
	for _, q := range queries {
		if q.Field == entity.FieldToken {
			s.TokenBalances[q.Symbol] = entity.BalanceValue{}
		}
	}
	return s
}

func (w *BalanceWatcher) follow(m *mountState, epoch uint64, blocks <-chan uint64, sub ethereum.Subscription) {
	network := m.conn.Definition().Identifier
	for {
		select {
		case <-m.ctx.Done():
			return
		case err, ok := <-sub.Err():
			if ok && err != nil {
				w.logger.Warn("Block subscription ended", "network", network, "epoch", epoch, "error", err)
			}
			return
		case n := <-blocks:
			metrics.BlocksObserved.WithLabelValues(network).Inc()
			w.apply(epoch, func(s *entity.BalanceSnapshot) {
				s.BlockNumber = entity.BlockCursor{Status: entity.BalanceLoaded, Number: n}
			})
			go w.fetchAll(m, epoch, false)
		}
	}
}

// fetchAll runs every query of m in parallel. Each result is applied on its own so that one
// failing field leaves the others intact.
func (w *BalanceWatcher) fetchAll(m *mountState, epoch uint64, withBlockNumber bool) {
	var g errgroup.Group

	if withBlockNumber {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(m.ctx, w.fetchTimeout)
			defer cancel()
			n, err := m.conn.BlockNumber(ctx)
			metrics.BalanceFetches.WithLabelValues("block_number", metrics.Outcome(err)).Inc()
			if err != nil {
				w.logger.Warn("Block number fetch failed", "epoch", epoch, "error", err)
			}
			w.apply(epoch, func(s *entity.BalanceSnapshot) {
				if err != nil {
					s.BlockNumber = entity.BlockCursor{Status: entity.BalanceFailed}
					return
				}
				if s.BlockNumber.Status != entity.BalanceLoaded || n > s.BlockNumber.Number {
					s.BlockNumber = entity.BlockCursor{Status: entity.BalanceLoaded, Number: n}
				}
			})
			return nil
		})
	}

	for _, q := range m.queries {
		g.Go(func() error {
			value := w.fetch(m, q)
			w.apply(epoch, func(s *entity.BalanceSnapshot) {
				switch q.Field {
				case entity.FieldPrimaryChain:
					s.PrimaryChainBalance = value
				case entity.FieldRollupChain:
					s.RollupChainBalance = value
				case entity.FieldToken:
					s.TokenBalances[q.Symbol] = value
				}
			})
			return nil
		})
	}

	_ = g.Wait()
}

func (w *BalanceWatcher) fetch(m *mountState, q entity.BalanceQuery) entity.BalanceValue {
	ctx, cancel := context.WithTimeout(m.ctx, w.fetchTimeout)
	defer cancel()

	holder := m.account
	if q.HolderIsShortAddress {
		holder = m.short
	}

	var (
		amount *big.Int
		err    error
	)
	if q.Field == entity.FieldToken {
		amount, err = m.conn.TokenBalance(ctx, q.TokenAddress, holder)
	} else {
		amount, err = m.conn.NativeBalance(ctx, holder)
	}
	metrics.BalanceFetches.WithLabelValues(string(q.Field), metrics.Outcome(err)).Inc()

	if err != nil {
		def := m.conn.Definition()
		fe := &entity.FetchError{Field: q.Key(), NetworkName: def.Name, ChainID: def.ChainID, Holder: holder.Hex(), Err: err}
		if m.ctx.Err() == nil {
			w.logger.Warn("Balance fetch failed", "error", fe)
		}
		return entity.FailedBalance(fe)
	}
	return entity.LoadedBalance(amount)
}

// apply mutates the snapshot if epoch is still current and reports whether it did.
func (w *BalanceWatcher) apply(epoch uint64, mutate func(*entity.BalanceSnapshot)) bool {
	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		metrics.StaleResults.Inc()
		return false
	}
	mutate(&w.snapshot)
	w.snapshot.UpdatedAt = time.Now()
	snap := w.snapshot.Clone()
	w.mu.Unlock()

	w.publish(snap)
	return true
}

func (w *BalanceWatcher) publish(snap entity.BalanceSnapshot) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
