package main

import (
	"errors"
	"io/fs"
	"strings"

	"multisender/internal/infrastructure/configloader"
	"multisender/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "MULTISENDER"

// cli carries what every subcommand needs once the root has run.
type cli struct {
	v   *viper.Viper
	cfg *configloader.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "multisender",
		Short: "Split one payment across many rollup recipients",
		Long: `multisender watches the balances of a wallet on a Godwoken rollup and its primary chain,
translates primary-chain recipients to rollup short addresses and sends one value-bearing
multisend call that splits the total evenly between them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "config/config.yaml", "path to the YAML configuration file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("network", "", "network identifier to connect to")
	flags.String("key-file", "", "file holding the hex private key of the sending wallet")
	flags.String("webhook-url", "", "endpoint receiving settled transfer tickets")
	_ = c.v.BindPFlags(flags)

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		newServeCmd(c),
		newSendCmd(c),
		newTranslateCmd(c),
		newDepositAddressCmd(c),
		newBalancesCmd(c),
	)
	return root
}

// init loads .env, the YAML config and the flag/env overrides, then builds the logger.
func (c *cli) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	cfg, err := configloader.Load(c.v.GetString("config"))
	if err != nil {
		return err
	}
	if lvl := c.v.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if network := c.v.GetString("network"); network != "" {
		cfg.ActiveNetwork = network
	}
	if keyFile := c.v.GetString("key-file"); keyFile != "" {
		cfg.Wallet.KeyFile = keyFile
	}
	if url := c.v.GetString("webhook-url"); url != "" {
		cfg.Notifier.WebhookURL = url
	}
	if err := configloader.Validate(cfg); err != nil {
		return err
	}

	zl, err := logger.Init(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = zl
	zl.Debug("Command initialized", zap.String("command", cmd.Name()), zap.String("network", cfg.ActiveNetwork))
	return nil
}
