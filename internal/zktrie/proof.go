package zktrie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/scroll-tech/sgx-prover/internal/errs"
)

// Leaf is the terminating leaf of an inclusion proof: the raw value
// stored at key, alongside its precomputed hash.
type Leaf struct {
	Value     []byte
	ValueHash common.Hash
}

// Proof is the sibling path from the leaf up to the root, one entry
// per trie depth, ordered root-first (index 0 is the sibling seen at
// the shallowest level the proof covers). A nil Leaf means the proof
// terminates at the fixed empty-node sentinel (exclusion).
type Proof struct {
	Siblings []common.Hash
	Leaf     *Leaf
}

// walk replays the sibling path for key starting from the leaf level
// and returns the resulting root.
func (p Proof) walk(key []byte) common.Hash {
	path := KeyPath(key)

	var cur common.Hash
	if p.Leaf != nil {
		cur = LeafHash(path, p.Leaf.ValueHash)
	} else {
		cur = EmptyRoot()
	}

	depth := len(p.Siblings)
	for i := depth - 1; i >= 0; i-- {
		sib := p.Siblings[i]
		if bitAt(path, i) == 0 {
			cur = BranchHash(cur, sib)
		} else {
			cur = BranchHash(sib, cur)
		}
	}
	return cur
}

// ProofRoot recomputes the root a proof chains to, without checking it
// against any claimed root. Callers that are constructing a proof (as
// opposed to verifying one presented to them) use this to derive the
// root their fixture actually produces.
func ProofRoot(key []byte, proof Proof) common.Hash {
	return proof.walk(key)
}

// VerifyProof recomputes root from proof and reports the verdict: the
// stored value on inclusion, or nil on verified exclusion. It fails
// with errs.BadProof if the recomputed root does not match.
func VerifyProof(root common.Hash, key []byte, proof Proof) ([]byte, bool, error) {
	got := proof.walk(key)
	if got != root {
		return nil, false, errs.New("zktrie.VerifyProof", errs.BadProof,
			errors.Errorf("recomputed root %x != claimed root %x", got, root))
	}
	if proof.Leaf == nil {
		return nil, false, nil
	}
	return proof.Leaf.Value, true, nil
}

// Update replays proof with newValue substituted at the leaf and
// returns the resulting root. It first re-verifies proof against
// root, so a stale or forged proof is rejected before any hash is
// recomputed against newValue.
func Update(root common.Hash, key, newValue []byte, valueHash common.Hash, proof Proof) (common.Hash, error) {
	if _, _, err := VerifyProof(root, key, proof); err != nil {
		return common.Hash{}, err
	}
	newProof := Proof{
		Siblings: proof.Siblings,
		Leaf:     &Leaf{Value: newValue, ValueHash: valueHash},
	}
	return newProof.walk(key), nil
}
