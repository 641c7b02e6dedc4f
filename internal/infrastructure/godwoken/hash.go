package godwoken

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/blake2b-simd"
)

const ckbHashPersonalization = "ckb-default-hash"

// CKBHash is blake2b-256 personalised with "ckb-default-hash", the hash CKB uses for scripts.
func CKBHash(data ...[]byte) common.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: common.HashLength, Person: []byte(ckbHashPersonalization)})
	if err != nil {
		panic(fmt.Sprintf("invalid blake2b config: %v", err))
	}
	for _, d := range data {
		h.Write(d)
	}

	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}
