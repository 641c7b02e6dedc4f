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

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rollupTypeHashHex = "0x4cc2e6526204ae6a2e8fcf12f7ad472f41a1606d5b9624beebd215d780809f6a"
	ethLockHashHex    = "0xdeec13a7b8e100579541384ccaf4b5223733e4a5483c3aec95ddc4c1d5ea5b22"
)

type staticNetworks []entity.NetworkDefinition

func (n staticNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return n }

func (n staticNetworks) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	for _, def := range n {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

func (n staticNetworks) GetNetworkDefinitionByKind(kind entity.NetworkKind) (entity.NetworkDefinition, bool) {
	for _, def := range n {
		if def.Kind == kind {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type staticTokens map[string][]entity.TokenInfo

func (t staticTokens) GetTokensByNetwork([]entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	return t, nil
}

func answerRollupLookups(_ context.Context, result any, method string, _ ...any) error {
	out := result.(*string)
	switch method {
	case "poly_getRollupTypeHash":
		*out = rollupTypeHashHex
	case "poly_getEthAccountLockHash":
		*out = ethLockHashHex
	default:
		return errors.New("unexpected method " + method)
	}
	return nil
}

type sessionFixture struct {
	session   *ConnectionSession
	primary   *porttest.Connection
	rollup    *porttest.Connection
	watcher   *BalanceWatcher
	submitter *BatchTransferSubmitter
	contract  *porttest.Contract
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		primary:   porttest.NewConnection(rinkeby),
		rollup:    porttest.NewConnection(godwokenTestnet),
		watcher:   newWatcher(),
		submitter: newSubmitter(),
		contract:  &porttest.Contract{Addr: common.HexToAddress("0x6e20280512D096592CbECeB6928D487bCE1926BE")},
	}
	f.rollup.CallContextFunc = answerRollupLookups
	f.session = NewConnectionSession(SessionDeps{
		Networks: staticNetworks{rinkeby, godwokenTestnet},
		Tokens: staticTokens{
			"godwoken-testnet": {{ChainID: 71393, Address: ckETH.Hex(), Name: "Wrapped ETH", Symbol: "ckETH", Decimals: 18}},
			"rinkeby":          {{ChainID: 4, Address: "not-hex", Symbol: "BAD", Decimals: 18}},
		},
		Factory: &porttest.ConnectionFactory{Conns: map[string]*porttest.Connection{
			"rinkeby":          f.primary,
			"godwoken-testnet": f.rollup,
		}},
		Binder:     &porttest.Binder{Contract: f.contract},
		Translator: testTranslator(),
		Watcher:    f.watcher,
		Submitter:  f.submitter,
		Logger:     testLogger(),
	})
	return f
}

func expectedDeposit(t *testing.T, account string) string {
	t.Helper()
	conn := porttest.NewConnection(godwokenTestnet)
	conn.CallContextFunc = answerRollupLookups
	addr, err := testTranslator().ToDepositAddress(context.Background(), account, conn)
	require.NoError(t, err)
	return addr
}

func TestSessionActivateRollup(t *testing.T) {
	f := newSessionFixture(t)
	wallet := &porttest.Wallet{Addr: common.HexToAddress(alice)}

	state, err := f.session.Activate(context.Background(), "godwoken-testnet", wallet)
	require.NoError(t, err)

	assert.True(t, state.Active)
	assert.Equal(t, alice, state.Account)
	assert.Equal(t, uint64(71393), state.ChainID)
	assert.Equal(t, entity.RollupNetwork, state.Kind)
	assert.Equal(t, f.watcher.Epoch(), state.Epoch)
	assert.True(t, f.submitter.Bound())
	assert.Equal(t, wallet, f.session.Wallet())

	require.Eventually(t, func() bool {
		return f.session.DepositAddress().Status == entity.DepositResolved
	}, waitFor, tick)
	assert.Equal(t, expectedDeposit(t, alice), f.session.DepositAddress().Address)

	snap := f.watcher.Snapshot()
	assert.Equal(t, uint64(71393), snap.ChainID)
	_, tracked := snap.TokenBalances["ckETH"]
	assert.True(t, tracked)
}

func TestSessionActivatePrimaryResolvesOverRollup(t *testing.T) {
	f := newSessionFixture(t)

	state, err := f.session.Activate(context.Background(), "rinkeby", &porttest.Wallet{Addr: common.HexToAddress(bob)})
	require.NoError(t, err)
	assert.Equal(t, entity.PrimaryNetwork, state.Kind)
	assert.False(t, f.submitter.Bound(), "multisend lives on the rollup only")

	require.Eventually(t, func() bool {
		return f.session.DepositAddress().Status == entity.DepositResolved
	}, waitFor, tick)
	assert.Equal(t, expectedDeposit(t, bob), f.session.DepositAddress().Address)
	assert.Empty(t, f.watcher.Snapshot().TokenBalances, "malformed token skipped")
}

func TestSessionActivationErrors(t *testing.T) {
	f := newSessionFixture(t)
	wallet := &porttest.Wallet{Addr: common.HexToAddress(alice)}

	_, err := f.session.Activate(context.Background(), "mainnet", wallet)
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)

	_, err = f.session.Activate(context.Background(), "rinkeby", nil)
	assert.ErrorIs(t, err, entity.ErrNotReady)

	f.rollup.ChainIDFunc = func(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
	_, err = f.session.Activate(context.Background(), "godwoken-testnet", wallet)
	assert.ErrorIs(t, err, entity.ErrChainMismatch)

	f.rollup.ChainIDFunc = func(context.Context) (*big.Int, error) { return nil, errors.New("dial tcp: refused") }
	_, err = f.session.Activate(context.Background(), "godwoken-testnet", wallet)
	assert.ErrorIs(t, err, entity.ErrConnectionUnavailable)

	assert.False(t, f.session.State().Active)
	assert.False(t, f.submitter.Bound())
	assert.Nil(t, f.session.Wallet())

	_, err = f.session.SwitchNetwork(context.Background(), "rinkeby")
	assert.ErrorIs(t, err, entity.ErrNotReady)
}

func TestSessionSwitchesAdvanceEpoch(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first, err := f.session.Activate(ctx, "godwoken-testnet", &porttest.Wallet{Addr: common.HexToAddress(alice)})
	require.NoError(t, err)
	require.True(t, f.submitter.Bound())

	second, err := f.session.SwitchNetwork(ctx, "rinkeby")
	require.NoError(t, err)
	assert.Greater(t, second.Epoch, first.Epoch)
	assert.Equal(t, alice, second.Account)
	assert.False(t, f.submitter.Bound())

	third, err := f.session.SwitchAccount(ctx, &porttest.Wallet{Addr: common.HexToAddress(carol)})
	require.NoError(t, err)
	assert.Greater(t, third.Epoch, second.Epoch)
	assert.Equal(t, "rinkeby", third.Network)
	assert.Equal(t, carol, third.Account)
	assert.Equal(t, common.HexToAddress(carol), f.watcher.Snapshot().Account)
}

func TestSessionDropsSupersededDepositAddress(t *testing.T) {
	f := newSessionFixture(t)
	release := make(chan struct{})
	var blocked atomic.Bool
	f.rollup.CallContextFunc = func(ctx context.Context, result any, method string, args ...any) error {
		if blocked.CompareAndSwap(false, true) {
			<-release
			return errors.New("late failure")
		}
		return answerRollupLookups(ctx, result, method, args...)
	}

	_, err := f.session.Activate(context.Background(), "godwoken-testnet", &porttest.Wallet{Addr: common.HexToAddress(alice)})
	require.NoError(t, err)
	require.Eventually(t, blocked.Load, waitFor, tick)

	_, err = f.session.SwitchAccount(context.Background(), &porttest.Wallet{Addr: common.HexToAddress(bob)})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return f.session.DepositAddress().Status == entity.DepositResolved
	}, waitFor, tick)

	close(release)
	assert.Never(t, func() bool {
		return f.session.DepositAddress().Status != entity.DepositResolved
	}, 100*time.Millisecond, tick)
	assert.Equal(t, expectedDeposit(t, bob), f.session.DepositAddress().Address)
}

func TestSessionDeactivate(t *testing.T) {
	f := newSessionFixture(t)
	state, err := f.session.Activate(context.Background(), "godwoken-testnet", &porttest.Wallet{Addr: common.HexToAddress(alice)})
	require.NoError(t, err)

	f.session.Deactivate()

	after := f.session.State()
	assert.False(t, after.Active)
	assert.Greater(t, after.Epoch, state.Epoch)
	assert.Equal(t, entity.DepositUnresolved, after.Deposit.Status)
	assert.Nil(t, f.session.Wallet())
	assert.Nil(t, f.session.Connection())
	assert.False(t, f.submitter.Bound())
	assert.Equal(t, entity.BalanceUnknown, f.watcher.Snapshot().RollupChainBalance.Status)
}

func TestResolveDepositAddress(t *testing.T) {
	rollup := porttest.NewConnection(godwokenTestnet)
	rollup.CallContextFunc = answerRollupLookups
	factory := &porttest.ConnectionFactory{Conns: map[string]*porttest.Connection{"godwoken-testnet": rollup}}

	got, err := ResolveDepositAddress(context.Background(), staticNetworks{rinkeby, godwokenTestnet}, factory, testTranslator(), alice)
	require.NoError(t, err)
	assert.Equal(t, expectedDeposit(t, alice), got)

	_, err = ResolveDepositAddress(context.Background(), staticNetworks{rinkeby}, factory, testTranslator(), alice)
	assert.ErrorIs(t, err, entity.ErrConnectionUnavailable)
}
