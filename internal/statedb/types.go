// Package statedb is the sparse, proof-backed state store the EVM
// driver (C3) reads and writes during block re-execution. It never
// talks to the network itself: every value it serves was registered
// through Prove against a trie proof supplied in the witness.
package statedb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account mirrors the zkTrie account leaf: nonce, balance, and the
// commitments to code and storage. CodeSize is committed alongside
// CodeHash the way Scroll's zkTrie does, unlike vanilla go-ethereum's
// account leaf.
type Account struct {
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    common.Hash
	CodeSize    uint64
	StorageRoot common.Hash
}

// Copy returns a deep copy safe to mutate independently.
func (a Account) Copy() Account {
	out := a
	if a.Balance != nil {
		out.Balance = new(uint256.Int).Set(a.Balance)
	}
	return out
}

// IsEmpty matches go-ethereum's EIP-161 emptiness rule, used to decide
// whether an untouched account may be pruned after execution.
func (a Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeSize == 0
}

// StorageKey addresses a single word in an account's storage trie.
type StorageKey struct {
	Addr common.Address
	Slot common.Hash
}
