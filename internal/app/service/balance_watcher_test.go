package service

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"multisender/internal/app/port/porttest"
	"multisender/internal/domain/entity"
	"multisender/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var ckETH = common.HexToAddress("0x00000000000000000000000000000000000c4e7f")

func rollupQueries() []entity.BalanceQuery {
	return []entity.BalanceQuery{
		{Field: entity.FieldRollupChain, Symbol: "CKB", Decimals: 8, HolderIsShortAddress: true},
		{Field: entity.FieldToken, Symbol: "ckETH", Decimals: 18, TokenAddress: ckETH, HolderIsShortAddress: true},
	}
}

func newWatcher() *BalanceWatcher {
	return NewBalanceWatcher(testTranslator(), testLogger(), time.Second)
}

func TestWatcherMountFetchesEverything(t *testing.T) {
	account := common.HexToAddress(alice)
	short := shortOf(t, alice).Address()

	conn := porttest.NewConnection(godwokenTestnet)
	conn.BlockNumberFunc = func(context.Context) (uint64, error) { return 100, nil }
	conn.NativeBalanceFunc = func(_ context.Context, holder common.Address) (*big.Int, error) {
		if holder != short {
			return nil, errors.New("expected short address holder")
		}
		return big.NewInt(5_000_000_000), nil
	}
	conn.TokenBalanceFunc = func(_ context.Context, token, holder common.Address) (*big.Int, error) {
		if token != ckETH || holder != short {
			return nil, errors.New("unexpected token call")
		}
		return big.NewInt(42), nil
	}

	w := newWatcher()
	epoch, err := w.Mount(conn, account, rollupQueries())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := w.Snapshot()
		return s.BlockNumber.Status == entity.BalanceLoaded &&
			s.RollupChainBalance.Status == entity.BalanceLoaded &&
			s.Token("ckETH").Status == entity.BalanceLoaded
	}, waitFor, tick)

	s := w.Snapshot()
	assert.Equal(t, epoch, s.Epoch)
	assert.Equal(t, account, s.Account)
	assert.Equal(t, uint64(71393), s.ChainID)
	assert.Equal(t, uint64(100), s.BlockNumber.Number)
	assert.Equal(t, "5000000000", s.RollupChainBalance.Amount.String())
	assert.Equal(t, "42", s.Token("ckETH").Amount.String())
	assert.Equal(t, entity.BalanceUnknown, s.PrimaryChainBalance.Status, "rollup native never lands in the primary field")
	assert.Equal(t, int64(1), conn.Subscriptions())
}

func TestWatcherFieldFailureIsIsolated(t *testing.T) {
	conn := porttest.NewConnection(godwokenTestnet)
	conn.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		return big.NewInt(1), nil
	}
	conn.TokenBalanceFunc = func(context.Context, common.Address, common.Address) (*big.Int, error) {
		return nil, errors.New("execution reverted")
	}

	w := newWatcher()
	_, err := w.Mount(conn, common.HexToAddress(alice), rollupQueries())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := w.Snapshot()
		return s.RollupChainBalance.Status == entity.BalanceLoaded && s.Token("ckETH").Status == entity.BalanceFailed
	}, waitFor, tick)
	assert.Contains(t, w.Snapshot().Token("ckETH").Err, "execution reverted")
}

func TestWatcherDropsResultsAfterTeardown(t *testing.T) {
	release := make(chan struct{})
	slow := porttest.NewConnection(godwokenTestnet)
	slow.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		<-release
		return big.NewInt(999), nil
	}
	slow.TokenBalanceFunc = func(context.Context, common.Address, common.Address) (*big.Int, error) {
		<-release
		return big.NewInt(1), nil
	}

	fast := porttest.NewConnection(rinkeby)
	fast.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		return big.NewInt(7), nil
	}

	w := newWatcher()
	first, err := w.Mount(slow, common.HexToAddress(alice), rollupQueries())
	require.NoError(t, err)

	second, err := w.Mount(fast, common.HexToAddress(bob), []entity.BalanceQuery{{Field: entity.FieldPrimaryChain, Symbol: "rETH", Decimals: 18}})
	require.NoError(t, err)
	require.Greater(t, second, first)

	require.Eventually(t, func() bool {
		return w.Snapshot().PrimaryChainBalance.Status == entity.BalanceLoaded
	}, waitFor, tick)

	before := testutil.ToFloat64(metrics.StaleResults)
	close(release)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.StaleResults) > before
	}, waitFor, tick)

	s := w.Snapshot()
	assert.Equal(t, second, s.Epoch)
	assert.Equal(t, common.HexToAddress(bob), s.Account)
	assert.Equal(t, entity.BalanceUnknown, s.RollupChainBalance.Status)
	assert.Empty(t, s.TokenBalances)
	assert.Equal(t, "7", s.PrimaryChainBalance.Amount.String())
}

func TestWatcherRefetchesOnEveryBlock(t *testing.T) {
	var reads atomic.Int64
	conn := porttest.NewConnection(rinkeby)
	conn.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		return big.NewInt(reads.Add(1)), nil
	}

	w := newWatcher()
	_, err := w.Mount(conn, common.HexToAddress(alice), []entity.BalanceQuery{{Field: entity.FieldPrimaryChain, Symbol: "rETH", Decimals: 18}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return reads.Load() == 1 }, waitFor, tick)

	require.Eventually(t, func() bool { return conn.EmitBlock(11) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool {
		s := w.Snapshot()
		return s.BlockNumber.Number == 11 && s.PrimaryChainBalance.Amount != nil && s.PrimaryChainBalance.Amount.Int64() == 2
	}, waitFor, tick)
}

func TestWatcherUnmountResetsAndUnsubscribes(t *testing.T) {
	conn := porttest.NewConnection(rinkeby)
	conn.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		return big.NewInt(3), nil
	}

	w := newWatcher()
	updates, cancel := w.Subscribe()
	defer cancel()

	epoch, err := w.Mount(conn, common.HexToAddress(alice), []entity.BalanceQuery{{Field: entity.FieldPrimaryChain, Symbol: "rETH"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return w.Snapshot().PrimaryChainBalance.Status == entity.BalanceLoaded
	}, waitFor, tick)

	select {
	case s := <-updates:
		assert.Equal(t, epoch, s.Epoch)
	case <-time.After(waitFor):
		t.Fatal("no snapshot published")
	}

	w.Unmount()
	s := w.Snapshot()
	assert.Equal(t, epoch+1, s.Epoch)
	assert.Equal(t, entity.BalanceUnknown, s.PrimaryChainBalance.Status)
	assert.Equal(t, entity.BalanceUnknown, s.BlockNumber.Status)
	assert.Equal(t, 0, conn.EmitBlock(12), "subscription released on unmount")

	w.Refresh()
	assert.Equal(t, entity.BalanceUnknown, w.Snapshot().PrimaryChainBalance.Status)
}

func TestWatcherSubscriptionFailureStillFetches(t *testing.T) {
	conn := porttest.NewConnection(rinkeby)
	conn.SubscribeBlocksFunc = func(context.Context, chan<- uint64) (ethereum.Subscription, error) {
		return nil, errors.New("notifications not supported")
	}
	conn.NativeBalanceFunc = func(context.Context, common.Address) (*big.Int, error) {
		return big.NewInt(9), nil
	}

	w := newWatcher()
	_, err := w.Mount(conn, common.HexToAddress(alice), []entity.BalanceQuery{{Field: entity.FieldPrimaryChain, Symbol: "rETH"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return w.Snapshot().PrimaryChainBalance.Status == entity.BalanceLoaded
	}, waitFor, tick)
}
