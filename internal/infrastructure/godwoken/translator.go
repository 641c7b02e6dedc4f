package godwoken

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	methodRollupTypeHash     = "poly_getRollupTypeHash"
	methodEthAccountLockHash = "poly_getEthAccountLockHash"

	// fullAddressFormat marks a CKB full address: code_hash, hash_type and args follow.
	fullAddressFormat byte = 0x00

	defaultLookupTTL = 30 * time.Minute
	defaultTimeout   = 10 * time.Second
)

var primaryAddressPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)

// Config carries the rollup constants the translator derives addresses from.
type Config struct {
	RollupTypeHash         common.Hash
	EthAccountLockCodeHash common.Hash
	DepositLockCodeHash    common.Hash
	OwnerLockCodeHash      common.Hash
	CancelTimeout          uint64
	AddressPrefix          string
	LookupTTL              time.Duration
	LookupTimeout          time.Duration
}

// Translator implements port.AddressTranslator for a Godwoken rollup.
type Translator struct {
	cfg     Config
	lookups *cache.Cache
	logger  *zap.Logger
}

var _ port.AddressTranslator = (*Translator)(nil)

// NewTranslator creates a translator. Rollup lookups are cached per endpoint for cfg.LookupTTL.
func NewTranslator(cfg Config, logger *zap.Logger) *Translator {
	if cfg.LookupTTL <= 0 {
		cfg.LookupTTL = defaultLookupTTL
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		cfg:     cfg,
		lookups: cache.New(cfg.LookupTTL, 2*cfg.LookupTTL),
		logger:  logger.Named("godwoken_translator"),
	}
}

// ParsePrimaryAddress validates a primary-chain address. The 0x prefix is optional; mixed-case
// input must carry a valid EIP-55 checksum, all-lower and all-upper input is accepted as is.
func ParsePrimaryAddress(s string) (common.Address, error) {
	if !primaryAddressPattern.MatchString(s) {
		return common.Address{}, errors.Wrapf(entity.ErrInvalidAddressFormat, "%q is not 20 hex bytes", s)
	}

	body := strings.TrimPrefix(s, "0x")
	addr := common.HexToAddress(body)
	if isMixedCase(body) && addr.Hex()[2:] != body {
		return common.Address{}, errors.Wrapf(entity.ErrInvalidAddressFormat, "bad checksum for %q", s)
	}
	return addr, nil
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}

// ToShortAddress derives the rollup short address of a primary address: the first 20 bytes of
// the hash of the eth account lock {ethAccountLockCodeHash, type, rollupTypeHash ‖ address}.
func (t *Translator) ToShortAddress(primary string) (entity.ShortAddress, error) {
	addr, err := ParsePrimaryAddress(primary)
	if err != nil {
		return entity.ShortAddress{}, err
	}
	return shortAddress(t.cfg.EthAccountLockCodeHash, t.cfg.RollupTypeHash, addr), nil
}

func shortAddress(lockCodeHash, rollupTypeHash common.Hash, addr common.Address) entity.ShortAddress {
	hash := accountLock(lockCodeHash, rollupTypeHash, addr).Hash()
	return entity.ShortAddress(common.BytesToAddress(hash[:common.AddressLength]))
}

func accountLock(lockCodeHash, rollupTypeHash common.Hash, addr common.Address) Script {
	args := make([]byte, 0, common.HashLength+common.AddressLength)
	args = append(args, rollupTypeHash[:]...)
	args = append(args, addr[:]...)
	return Script{CodeHash: lockCodeHash, HashType: HashTypeType, Args: args}
}

// ToDepositAddress returns the CKB address that credits the rollup account of primary when
// funded. The rollup type hash and account lock hash are read from conn.
func (t *Translator) ToDepositAddress(ctx context.Context, primary string, conn port.ChainConnection) (string, error) {
	if conn == nil {
		return "", entity.ErrConnectionUnavailable
	}
	addr, err := ParsePrimaryAddress(primary)
	if err != nil {
		return "", err
	}

	rollupTypeHash, err := t.lookupHash(ctx, conn, methodRollupTypeHash)
	if err != nil {
		return "", err
	}
	lockHash, err := t.lookupHash(ctx, conn, methodEthAccountLockHash)
	if err != nil {
		return "", err
	}

	owner := Script{CodeHash: t.cfg.OwnerLockCodeHash, HashType: HashTypeType, Args: addr.Bytes()}
	args := DepositLockArgs{
		OwnerLockHash: owner.Hash(),
		Layer2Lock:    accountLock(lockHash, rollupTypeHash, addr),
		CancelTimeout: t.cfg.CancelTimeout,
	}
	depositArgs := append(rollupTypeHash.Bytes(), args.Serialize()...)
	deposit := Script{CodeHash: t.cfg.DepositLockCodeHash, HashType: HashTypeType, Args: depositArgs}

	encoded, err := EncodeFullAddress(t.cfg.AddressPrefix, deposit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrResolutionFailed, err)
	}
	t.logger.Debug("Resolved deposit address", zap.String("account", addr.Hex()), zap.String("network", conn.Definition().Identifier))
	return encoded, nil
}

func (t *Translator) lookupHash(ctx context.Context, conn port.ChainConnection, method string) (common.Hash, error) {
	def := conn.Definition()
	key := def.Identifier + "|" + def.PrimaryRPCURL + "|" + method
	if cached, ok := t.lookups.Get(key); ok {
		return cached.(common.Hash), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.LookupTimeout)
	defer cancel()

	var raw string
	if err := conn.CallContext(callCtx, &raw, method); err != nil {
		t.logger.Warn("Rollup lookup failed", zap.String("method", method), zap.String("network", def.Identifier), zap.Error(err))
		return common.Hash{}, fmt.Errorf("%w: %s: %w", entity.ErrResolutionFailed, method, err)
	}
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %s returned %q", entity.ErrResolutionFailed, method, raw)
	}

	h := common.BytesToHash(b)
	t.lookups.Set(key, h, cache.DefaultExpiration)
	return h, nil
}

// EncodeFullAddress encodes script as a bech32m CKB full address under hrp.
func EncodeFullAddress(hrp string, script Script) (string, error) {
	payload := make([]byte, 0, 1+common.HashLength+1+len(script.Args))
	payload = append(payload, fullAddressFormat)
	payload = append(payload, script.CodeHash[:]...)
	payload = append(payload, script.HashType)
	payload = append(payload, script.Args...)

	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "convert address payload")
	}
	encoded, err := bech32.EncodeM(hrp, data)
	if err != nil {
		return "", errors.Wrap(err, "bech32m encode")
	}
	return encoded, nil
}
