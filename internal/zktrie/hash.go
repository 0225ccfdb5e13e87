// Package zktrie implements the binary Poseidon Merkle trie used to
// commit to the L2 state: a sparse Merkle tree keyed by the bits of
// Poseidon(key), MSB-first from the root, with a fixed all-zero
// sentinel for empty subtrees.
package zktrie

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// domain tags distinguish a branch hash from a leaf hash so that a
// branch node and a leaf node can never collide even if their raw
// child words happen to match.
const (
	domainBranch = 1
	domainLeaf   = 2
)

// fr is the BN254 scalar field modulus poseidon operates over.
var fr, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

func toField(h common.Hash) *big.Int {
	v := new(big.Int).SetBytes(h[:])
	v.Mod(v, fr)
	return v
}

func toHash(v *big.Int) common.Hash {
	var out common.Hash
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// poseidonHash mixes two 32-byte words plus a domain tag into one.
func poseidonHash(a, b common.Hash, domain int64) common.Hash {
	inputs := []*big.Int{toField(a), toField(b), big.NewInt(domain)}
	out, err := poseidon.Hash(inputs)
	if err != nil {
		// poseidon.Hash only errors on inputs not reduced modulo fr,
		// which toField rules out; a failure here means the
		// dependency's contract changed underneath us.
		panic(err)
	}
	return toHash(out)
}

// BranchHash combines the two children of an internal node.
func BranchHash(left, right common.Hash) common.Hash {
	return poseidonHash(left, right, domainBranch)
}

// LeafHash commits to the (key, value) pair stored at a leaf. keyHash
// is Poseidon(key) — the same digest used to derive the traversal
// path — so inclusion proofs implicitly prove key equality.
func LeafHash(keyHash, valueHash common.Hash) common.Hash {
	return poseidonHash(keyHash, valueHash, domainLeaf)
}

// KeyPath returns Poseidon(key), whose bits (MSB-first) select the
// traversal direction at each trie depth.
func KeyPath(key []byte) common.Hash {
	digest, err := poseidon.HashBytes(key)
	if err != nil {
		panic(err)
	}
	return toHash(digest)
}

// EmptyRoot is the deterministic root of a trie with no entries.
func EmptyRoot() common.Hash {
	return common.Hash{}
}

// bitAt returns the bit of h at position i (0 = MSB, i.e. the bit
// consulted at the root).
func bitAt(h common.Hash, i int) int {
	byteIdx := i / 8
	bitIdx := 7 - uint(i%8)
	return int((h[byteIdx] >> bitIdx) & 1)
}
