package godwoken

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"multisender/internal/app/port/porttest"
	"multisender/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRollupTypeHash = "0x4cc2e6526204ae6a2e8fcf12f7ad472f41a1606d5b9624beebd215d780809f6a"
	testEthLockHash    = "0xdeec13a7b8e100579541384ccaf4b5223733e4a5483c3aec95ddc4c1d5ea5b22"
	testAccount        = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testShortAddress   = "0xDf8dA8AA26Ae9F4C745CecC863a7a7BEBDc71844"
	testDepositAddress = "ckt1qpdz2p4mdrvp5ywu4kk5edl2uc4p03puvx07g7kgqdau3tfdwmwujq2vctn9ycsy4e4zar70ztm663e0gxskqm2mjcjta67jzhtcpqyld2ssqqqqzqqqqqpsqqqqpxgqqqq2lflys3ks5a50548zse5kdt6w7dmqcxv2n5qwfv6j8ry77gsc5vnfqqqqqyqqqqqrqqqqqqcsqqqqmmkp8facuyq9092p8pxv4a94ygmn8e99fq7r4my4mhzvr402tv3qzdqqqqqyeshx2f3qftn2968u7yhh44rj7sdpvpk4h93yhm4ay9whszqf76j646mq20e7jnymngylxdnfgd08aud74mdsqsqqqqqqqrqqe8uqu7"
)

func testConfig() Config {
	return Config{
		RollupTypeHash:         common.HexToHash(testRollupTypeHash),
		EthAccountLockCodeHash: common.HexToHash(testEthLockHash),
		DepositLockCodeHash:    common.HexToHash("0x5a2506bb68d81a11dcadad4cb7eae62a17c43c619fe47ac8037bc8ad2d76ddc9"),
		OwnerLockCodeHash:      common.HexToHash("0x58c5f491aba6d61678b7cf7edf4910b1f5e00ec0cde2f42e0abb4fd9aff25a63"),
		CancelTimeout:          0xc0000000000004b0,
		AddressPrefix:          "ckt",
	}
}

func TestCKBHashEmpty(t *testing.T) {
	assert.Equal(t, "0x44f4c69744d5f8c55d642062949dcae49bc4e7ef43d388c5a12f42b5633d163e", CKBHash().Hex())
	assert.Equal(t, CKBHash([]byte("ab")), CKBHash([]byte("a"), []byte("b")))
}

func TestScriptSerializeLayout(t *testing.T) {
	args := make([]byte, 52)
	raw := Script{CodeHash: common.HexToHash(testEthLockHash), HashType: HashTypeType, Args: args}.Serialize()

	require.Len(t, raw, 53+len(args))
	assert.Equal(t, uint32(len(raw)), binary.LittleEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(raw[4:8]))
	assert.Equal(t, uint32(48), binary.LittleEndian.Uint32(raw[8:12]))
	assert.Equal(t, uint32(49), binary.LittleEndian.Uint32(raw[12:16]))
	assert.Equal(t, HashTypeType, raw[48])
	assert.Equal(t, uint32(len(args)), binary.LittleEndian.Uint32(raw[49:53]))
}

func TestEmptyScriptHash(t *testing.T) {
	assert.Equal(t, "0x77c93b0632b5b6c3ef922c5b7cea208fb0a7c427a13d50e13d3fefad17e0c590", Script{}.Hash().Hex())
}

func TestParsePrimaryAddress(t *testing.T) {
	lower := strings.ToLower(testAccount)
	upper := "0x" + strings.ToUpper(testAccount[2:])

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"checksummed", testAccount, false},
		{"all lower", lower, false},
		{"all upper", upper, false},
		{"no prefix", lower[2:], false},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", true},
		{"too short", "0x1234", true},
		{"not hex", "0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"empty", "", true},
		{"upper prefix", "0X" + lower[2:], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParsePrimaryAddress(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrInvalidAddressFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testAccount, addr.Hex())
		})
	}
}

func TestToShortAddress(t *testing.T) {
	tr := NewTranslator(testConfig(), nil)

	short, err := tr.ToShortAddress(testAccount)
	require.NoError(t, err)
	assert.Equal(t, testShortAddress, short.Hex())

	again, err := tr.ToShortAddress(strings.ToLower(testAccount))
	require.NoError(t, err)
	assert.Equal(t, short, again)

	_, err = tr.ToShortAddress("0x123")
	assert.ErrorIs(t, err, entity.ErrInvalidAddressFormat)
}

func rollupConnection() *porttest.Connection {
	conn := porttest.NewConnection(entity.NetworkDefinition{Identifier: "godwoken-testnet", ChainID: 71393, PrimaryRPCURL: "http://godwoken"})
	conn.CallContextFunc = func(_ context.Context, result any, method string, _ ...any) error {
		out := result.(*string)
		switch method {
		case methodRollupTypeHash:
			*out = testRollupTypeHash
		case methodEthAccountLockHash:
			*out = testEthLockHash
		default:
			return errors.New("unexpected method " + method)
		}
		return nil
	}
	return conn
}

func TestToDepositAddress(t *testing.T) {
	tr := NewTranslator(testConfig(), nil)
	conn := rollupConnection()

	addr, err := tr.ToDepositAddress(context.Background(), testAccount, conn)
	require.NoError(t, err)
	assert.Equal(t, testDepositAddress, addr)
	assert.Equal(t, int64(2), conn.Calls())

	again, err := tr.ToDepositAddress(context.Background(), testAccount, conn)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, int64(2), conn.Calls(), "lookups are served from the cache")
}

func TestToDepositAddressFailures(t *testing.T) {
	tr := NewTranslator(testConfig(), nil)

	_, err := tr.ToDepositAddress(context.Background(), testAccount, nil)
	assert.ErrorIs(t, err, entity.ErrConnectionUnavailable)

	broken := porttest.NewConnection(entity.NetworkDefinition{Identifier: "broken"})
	broken.CallContextFunc = func(context.Context, any, string, ...any) error {
		return errors.New("method not found")
	}
	_, err = tr.ToDepositAddress(context.Background(), testAccount, broken)
	assert.ErrorIs(t, err, entity.ErrResolutionFailed)

	garbage := porttest.NewConnection(entity.NetworkDefinition{Identifier: "garbage"})
	garbage.CallContextFunc = func(_ context.Context, result any, _ string, _ ...any) error {
		*result.(*string) = "0x1234"
		return nil
	}
	_, err = tr.ToDepositAddress(context.Background(), testAccount, garbage)
	assert.ErrorIs(t, err, entity.ErrResolutionFailed)

	_, err = tr.ToDepositAddress(context.Background(), "nope", rollupConnection())
	assert.ErrorIs(t, err, entity.ErrInvalidAddressFormat)
}
