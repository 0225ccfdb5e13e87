package zktrie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// buildProof constructs a tiny fixed-depth tree with a single
// populated leaf and returns a valid inclusion proof for it, along
// with the resulting root. Used to exercise VerifyProof/Update
// without needing a full trie implementation.
func buildProof(key, value []byte, depth int) (common.Hash, Proof) {
	valueHash := common.BytesToHash(value)
	siblings := make([]common.Hash, depth)
	for i := range siblings {
		siblings[i] = EmptyRoot()
	}
	proof := Proof{Siblings: siblings, Leaf: &Leaf{Value: value, ValueHash: valueHash}}
	root := proof.walk(key)
	return root, proof
}

func TestVerifyProofInclusion(t *testing.T) {
	key := []byte("account:0xabc")
	value := []byte{1, 2, 3}
	root, proof := buildProof(key, value, 4)

	got, included, err := VerifyProof(root, key, proof)
	require.NoError(t, err)
	require.True(t, included)
	require.Equal(t, value, got)
}

func TestVerifyProofExclusion(t *testing.T) {
	key := []byte("account:missing")
	depth := 4
	siblings := make([]common.Hash, depth)
	for i := range siblings {
		siblings[i] = EmptyRoot()
	}
	proof := Proof{Siblings: siblings}
	root := proof.walk(key)

	value, included, err := VerifyProof(root, key, proof)
	require.NoError(t, err)
	require.False(t, included)
	require.Nil(t, value)
}

func TestVerifyProofBadRoot(t *testing.T) {
	key := []byte("k")
	_, proof := buildProof(key, []byte{9}, 3)
	_, _, err := VerifyProof(common.Hash{0xff}, key, proof)
	require.Error(t, err)
}

// TestUpdateIdempotentNoOp checks the quantified invariant:
// verifyProof(R,k,p) = Some(v) implies update(R,k,v,p) = R.
func TestUpdateIdempotentNoOp(t *testing.T) {
	key := []byte("account:0xabc")
	value := []byte{1, 2, 3}
	root, proof := buildProof(key, value, 4)

	valueHash := common.BytesToHash(value)
	newRoot, err := Update(root, key, value, valueHash, proof)
	require.NoError(t, err)
	require.Equal(t, root, newRoot)
}

func TestUpdateChangesRoot(t *testing.T) {
	key := []byte("account:0xabc")
	value := []byte{1, 2, 3}
	root, proof := buildProof(key, value, 4)

	newValue := []byte{9, 9, 9}
	newValueHash := common.BytesToHash(newValue)
	newRoot, err := Update(root, key, newValue, newValueHash, proof)
	require.NoError(t, err)
	require.NotEqual(t, root, newRoot)
}

func TestEmptyRootIsZero(t *testing.T) {
	require.Equal(t, common.Hash{}, EmptyRoot())
}

func TestBranchHashDeterministic(t *testing.T) {
	a := common.BytesToHash([]byte{1})
	b := common.BytesToHash([]byte{2})
	require.Equal(t, BranchHash(a, b), BranchHash(a, b))
	require.NotEqual(t, BranchHash(a, b), BranchHash(b, a))
}
