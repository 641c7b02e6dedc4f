package godwoken

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Script hash types.
const (
	HashTypeData byte = 0
	HashTypeType byte = 1
)

// Script is a CKB lock or type script.
type Script struct {
	CodeHash common.Hash
	HashType byte
	Args     []byte
}

// Serialize encodes the script as a molecule table {code_hash, hash_type, args}.
func (s Script) Serialize() []byte {
	return serializeTable(s.CodeHash[:], []byte{s.HashType}, serializeBytes(s.Args))
}

// Hash returns the CKB script hash.
func (s Script) Hash() common.Hash {
	return CKBHash(s.Serialize())
}

// DepositLockArgs are the args of the rollup deposit lock, after the rollup type hash.
type DepositLockArgs struct {
	OwnerLockHash common.Hash
	Layer2Lock    Script
	CancelTimeout uint64
}

// Serialize encodes the args as a molecule table {owner_lock_hash, layer2_lock, cancel_timeout}.
func (a DepositLockArgs) Serialize() []byte {
	var timeout [8]byte
	binary.LittleEndian.PutUint64(timeout[:], a.CancelTimeout)
	return serializeTable(a.OwnerLockHash[:], a.Layer2Lock.Serialize(), timeout[:])
}

// serializeTable writes the total size, one offset per field, then the fields. All integers are u32 LE.
func serializeTable(fields ...[]byte) []byte {
	headerSize := 4 * (len(fields) + 1)
	total := headerSize
	for _, f := range fields {
		total += len(f)
	}

	buf := make([]byte, 0, total)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	offset := headerSize
	for _, f := range fields {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(offset))
		offset += len(f)
	}
	for _, f := range fields {
		buf = append(buf, f...)
	}
	return buf
}

// serializeBytes encodes a fixvec<byte>: item count then items.
func serializeBytes(b []byte) []byte {
	buf := make([]byte, 0, 4+len(b))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}
