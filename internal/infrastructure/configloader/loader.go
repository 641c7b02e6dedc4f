package configloader

import (
	"fmt"
	"os"
	"time"

	"multisender/internal/domain/entity"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string   `yaml:"port" validate:"required"`
	ReadTimeoutSeconds  int      `yaml:"readTimeoutSeconds" validate:"gte=0"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds" validate:"gte=0"`
	AllowedOrigins      []string `yaml:"allowedOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// RollupConfig holds the Godwoken constants addresses are derived from.
type RollupConfig struct {
	RollupTypeHash         string `yaml:"rollupTypeHash" validate:"required,hexadecimal,len=66"`
	EthAccountLockCodeHash string `yaml:"ethAccountLockCodeHash" validate:"required,hexadecimal,len=66"`
	DepositLockCodeHash    string `yaml:"depositLockCodeHash" validate:"required,hexadecimal,len=66"`
	OwnerLockCodeHash      string `yaml:"ownerLockCodeHash" validate:"required,hexadecimal,len=66"`
	CancelTimeout          uint64 `yaml:"cancelTimeout" validate:"required"`
	AddressPrefix          string `yaml:"addressPrefix" validate:"oneof=ckb ckt"`
	LookupTTLMinutes       int    `yaml:"lookupTTLMinutes" validate:"gte=0"`
}

// MultiSendConfig holds the multisend contract settings.
type MultiSendConfig struct {
	Address               string `yaml:"address" validate:"required,eth_addr"`
	UnitDecimals          int32  `yaml:"unitDecimals" validate:"gte=0,lte=36"`
	GasLimit              uint64 `yaml:"gasLimit"`
	ConfirmTimeoutSeconds int    `yaml:"confirmTimeoutSeconds" validate:"gte=0"`
}

// WalletConfig points at the signing key.
type WalletConfig struct {
	KeyFile string `yaml:"keyFile"`
}

// RPCClientConfig holds configuration for RPC clients.
type RPCClientConfig struct {
	ConnectionTimeoutSeconds int     `yaml:"connectionTimeoutSeconds" validate:"gte=0"`
	CallTimeoutSeconds       int     `yaml:"callTimeoutSeconds" validate:"gte=0"`
	FetchTimeoutSeconds      int     `yaml:"fetchTimeoutSeconds" validate:"gte=0"`
	RequestsPerSecond        float64 `yaml:"requestsPerSecond" validate:"gte=0"`
	Burst                    int     `yaml:"burst" validate:"gte=0"`
	MaxConcurrentRoutines    int     `yaml:"maxConcurrentRoutines" validate:"gte=0"`
	BatchSize                int     `yaml:"batchSize" validate:"gte=0"`
}

// NotifierConfig configures the transfer outcome webhook. An empty URL disables it.
type NotifierConfig struct {
	WebhookURL    string `yaml:"webhookURL" validate:"omitempty,url"`
	TimeoutMillis int64  `yaml:"timeoutMillis" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig               `yaml:"server"`
	Logging       LoggingConfig              `yaml:"logging"`
	Networks      []entity.NetworkDefinition `yaml:"networks"`
	ActiveNetwork string                     `yaml:"activeNetwork" validate:"required"`
	TokensDir     string                     `yaml:"tokensDir"`
	Rollup        RollupConfig               `yaml:"rollup"`
	MultiSend     MultiSendConfig            `yaml:"multisend"`
	Wallet        WalletConfig               `yaml:"wallet"`
	RPCClient     RPCClientConfig            `yaml:"rpcClient"`
	Notifier      NotifierConfig             `yaml:"notifier"`
	Metrics       MetricsConfig              `yaml:"metrics"`
}

// ConnectionTimeout returns the dial timeout.
func (c *Config) ConnectionTimeout() time.Duration {
	return time.Duration(c.RPCClient.ConnectionTimeoutSeconds) * time.Second
}

// CallTimeout returns the per-call RPC timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.RPCClient.CallTimeoutSeconds) * time.Second
}

// FetchTimeout returns the timeout of one watcher balance read.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.RPCClient.FetchTimeoutSeconds) * time.Second
}

// ConfirmTimeout bounds waiting for a multisend receipt.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.MultiSend.ConfirmTimeoutSeconds) * time.Second
}

// LookupTTL is how long rollup lookups stay cached.
func (c *Config) LookupTTL() time.Duration {
	return time.Duration(c.Rollup.LookupTTLMinutes) * time.Minute
}

// NotifierTimeout bounds one webhook delivery.
func (c *Config) NotifierTimeout() time.Duration {
	return time.Duration(c.Notifier.TimeoutMillis) * time.Millisecond
}

// Load reads the YAML configuration file from the given path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		logrus.Infof("Logging.Level not set, defaulting to %s", cfg.Logging.Level)
	}
	if cfg.ActiveNetwork == "" {
		cfg.ActiveNetwork = "godwoken-testnet"
		logrus.Infof("ActiveNetwork not set, defaulting to %s", cfg.ActiveNetwork)
	}
	if cfg.TokensDir == "" {
		cfg.TokensDir = "data/tokens"
	}

	if cfg.Rollup.RollupTypeHash == "" {
		cfg.Rollup.RollupTypeHash = "0x4cc2e6526204ae6a2e8fcf12f7ad472f41a1606d5b9624beebd215d780809f6a"
		logrus.Infof("Rollup.RollupTypeHash not set, defaulting to the Godwoken testnet value")
	}
	if cfg.Rollup.EthAccountLockCodeHash == "" {
		cfg.Rollup.EthAccountLockCodeHash = "0xdeec13a7b8e100579541384ccaf4b5223733e4a5483c3aec95ddc4c1d5ea5b22"
		logrus.Infof("Rollup.EthAccountLockCodeHash not set, defaulting to the Godwoken testnet value")
	}
	if cfg.Rollup.DepositLockCodeHash == "" {
		cfg.Rollup.DepositLockCodeHash = "0x5a2506bb68d81a11dcadad4cb7eae62a17c43c619fe47ac8037bc8ad2d76ddc9"
	}
	if cfg.Rollup.OwnerLockCodeHash == "" {
		cfg.Rollup.OwnerLockCodeHash = "0x58c5f491aba6d61678b7cf7edf4910b1f5e00ec0cde2f42e0abb4fd9aff25a63"
	}
	if cfg.Rollup.CancelTimeout == 0 {
		cfg.Rollup.CancelTimeout = 0xc0000000000004b0
	}
	if cfg.Rollup.AddressPrefix == "" {
		cfg.Rollup.AddressPrefix = "ckt"
	}
	if cfg.Rollup.LookupTTLMinutes == 0 {
		cfg.Rollup.LookupTTLMinutes = 30
	}

	if cfg.MultiSend.Address == "" {
		cfg.MultiSend.Address = "0x6e20280512D096592CbECeB6928D487bCE1926BE"
		logrus.Infof("MultiSend.Address not set, defaulting to %s", cfg.MultiSend.Address)
	}
	if cfg.MultiSend.UnitDecimals == 0 {
		cfg.MultiSend.UnitDecimals = 8
	}
	if cfg.MultiSend.GasLimit == 0 {
		cfg.MultiSend.GasLimit = 6_000_000
	}
	if cfg.MultiSend.ConfirmTimeoutSeconds == 0 {
		cfg.MultiSend.ConfirmTimeoutSeconds = 300
	}

	if cfg.Wallet.KeyFile == "" {
		cfg.Wallet.KeyFile = "data/wallet.key"
	}

	if cfg.RPCClient.ConnectionTimeoutSeconds == 0 {
		cfg.RPCClient.ConnectionTimeoutSeconds = 10
	}
	if cfg.RPCClient.CallTimeoutSeconds == 0 {
		cfg.RPCClient.CallTimeoutSeconds = 15
	}
	if cfg.RPCClient.FetchTimeoutSeconds == 0 {
		cfg.RPCClient.FetchTimeoutSeconds = 10
	}
	if cfg.RPCClient.Burst == 0 {
		cfg.RPCClient.Burst = 10
	}
	if cfg.RPCClient.MaxConcurrentRoutines == 0 {
		cfg.RPCClient.MaxConcurrentRoutines = 4
		logrus.Infof("RPCClient.MaxConcurrentRoutines not set, defaulting to %d", cfg.RPCClient.MaxConcurrentRoutines)
	}
	if cfg.RPCClient.BatchSize == 0 {
		cfg.RPCClient.BatchSize = 50
	}

	if cfg.Notifier.TimeoutMillis == 0 {
		cfg.Notifier.TimeoutMillis = 5000
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, n := range cfg.Networks {
		if n.Identifier == "" {
			logrus.Warnf("Network override '%s' has no identifier and will be ignored", n.Name)
		}
	}
	return nil
}
