package evmexec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// emptyCodeHash is the well-known Keccak256 of the empty byte string,
// the CodeHash an externally-owned account carries.
var emptyCodeHash = crypto.Keccak256Hash(nil)

func codeHash(code []byte) common.Hash {
	if len(code) == 0 {
		return emptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}
