package main

import (
	"context"
	"fmt"

	"multisender/internal/app/port"
	"multisender/internal/app/provider"
	"multisender/internal/app/service"
	"multisender/internal/domain/entity"
	"multisender/internal/infrastructure/configloader"
	"multisender/internal/infrastructure/godwoken"
	"multisender/internal/infrastructure/httpclient"
	"multisender/internal/infrastructure/network/client"
	"multisender/internal/infrastructure/network/contract"
	networkdefinition "multisender/internal/infrastructure/network/definition"
	"multisender/internal/infrastructure/tokenloader"
	"multisender/internal/infrastructure/walletloader"
	"multisender/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// application holds the wired services shared by the subcommands.
type application struct {
	cfg        *configloader.Config
	log        *zap.Logger
	networks   *networkdefinition.NetworkDefinitionProvider
	clients    *client.EVMClientProvider
	translator *godwoken.Translator
	tokens     port.TokenProvider
	wallets    port.WalletProvider
	watcher    *service.BalanceWatcher
	submitter  *service.BatchTransferSubmitter
	session    *service.ConnectionSession
	form       *service.TransferForm
	reporter   *service.BalanceReporter
}

func newApplication(cfg *configloader.Config, zl *zap.Logger) (*application, error) {
	appLog := logger.NewSlogAdapter()

	networks := networkdefinition.NewNetworkDefinitionProvider(appLog, cfg.Networks)
	if _, ok := networks.GetNetworkDefinitionByName(cfg.ActiveNetwork); !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, cfg.ActiveNetwork)
	}

	clients := client.NewEVMClientProvider(client.Options{
		ConnectionTimeout: cfg.ConnectionTimeout(),
		RPCCallTimeout:    cfg.CallTimeout(),
		RequestsPerSecond: cfg.RPCClient.RequestsPerSecond,
		Burst:             cfg.RPCClient.Burst,
	}, appLog)

	translator := godwoken.NewTranslator(godwoken.Config{
		RollupTypeHash:         common.HexToHash(cfg.Rollup.RollupTypeHash),
		EthAccountLockCodeHash: common.HexToHash(cfg.Rollup.EthAccountLockCodeHash),
		DepositLockCodeHash:    common.HexToHash(cfg.Rollup.DepositLockCodeHash),
		OwnerLockCodeHash:      common.HexToHash(cfg.Rollup.OwnerLockCodeHash),
		CancelTimeout:          cfg.Rollup.CancelTimeout,
		AddressPrefix:          cfg.Rollup.AddressPrefix,
		LookupTTL:              cfg.LookupTTL(),
		LookupTimeout:          cfg.CallTimeout(),
	}, zl)

	loader := tokenloader.NewTokenLoader(cfg.TokensDir, appLog.Info, appLog.Warn)
	tokens := provider.NewTokenProvider(loader, appLog)
	wallets := provider.NewWalletProvider(walletloader.NewKeyFileLoader(cfg.Wallet.KeyFile, appLog.Info), appLog)

	watcher := service.NewBalanceWatcher(translator, appLog, cfg.FetchTimeout())
	submitter := service.NewBatchTransferSubmitter(service.SubmitterConfig{
		UnitDecimals:   cfg.MultiSend.UnitDecimals,
		GasLimit:       cfg.MultiSend.GasLimit,
		ConfirmTimeout: cfg.ConfirmTimeout(),
	}, appLog)
	submitter.OnSettle(service.RefreshOnSettle(watcher))
	if cfg.Notifier.WebhookURL != "" {
		notifier := httpclient.NewWebhookNotifier(cfg.Notifier.WebhookURL, cfg.NotifierTimeout(), zl)
		submitter.OnSettle(service.NotifyOnSettle(notifier, appLog))
	}

	session := service.NewConnectionSession(service.SessionDeps{
		Networks:       networks,
		Tokens:         tokens,
		Factory:        clients,
		Binder:         contract.NewBinder(common.HexToAddress(cfg.MultiSend.Address), zl),
		Translator:     translator,
		Watcher:        watcher,
		Submitter:      submitter,
		Logger:         appLog,
		ResolveTimeout: cfg.CallTimeout(),
	})

	unit := "CKB"
	if rollup, ok := networks.GetNetworkDefinitionByKind(entity.RollupNetwork); ok && rollup.NativeSymbol != "" {
		unit = rollup.NativeSymbol
	}
	form := service.NewTransferForm(service.NewBatchIntentParser(translator, unit), submitter, session, appLog)

	reporter := service.NewBalanceReporter(networks, tokens, clients, translator, appLog, service.ReporterConfig{
		BatchSize:     cfg.RPCClient.BatchSize,
		MaxConcurrent: cfg.RPCClient.MaxConcurrentRoutines,
	})

	return &application{
		cfg:        cfg,
		log:        zl,
		networks:   networks,
		clients:    clients,
		translator: translator,
		tokens:     tokens,
		wallets:    wallets,
		watcher:    watcher,
		submitter:  submitter,
		session:    session,
		form:       form,
		reporter:   reporter,
	}, nil
}

// connect loads the wallet and activates the session on the configured network.
func (a *application) connect(ctx context.Context) (entity.SessionState, error) {
	wallet, err := a.wallets.GetWallet()
	if err != nil {
		return entity.SessionState{}, fmt.Errorf("failed to load wallet: %w", err)
	}
	state, err := a.session.Activate(ctx, a.cfg.ActiveNetwork, wallet)
	if err != nil {
		return state, fmt.Errorf("failed to activate session on %s: %w", a.cfg.ActiveNetwork, err)
	}
	a.log.Info("Session active",
		zap.String("network", state.Network),
		zap.Uint64("chainId", state.ChainID),
		zap.String("account", state.Account),
		zap.Uint64("epoch", state.Epoch))
	return state, nil
}

func (a *application) close() {
	a.session.Deactivate()
	a.clients.Close()
}
