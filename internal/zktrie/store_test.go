package zktrie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertAndUpdateOverlappingKeys(t *testing.T) {
	keyA := []byte("addr-a")
	keyB := []byte("addr-b")
	depth := 6

	rootProof := Proof{Siblings: make([]common.Hash, depth)}
	for i := range rootProof.Siblings {
		rootProof.Siblings[i] = EmptyRoot()
	}
	root := ProofRoot(keyA, rootProof) // both keys start from an all-empty tree

	store := NewStore(root)
	require.NoError(t, store.Insert(keyA, rootProof))
	require.NoError(t, store.Insert(keyB, rootProof))

	newRoot, err := store.Update(keyA, []byte{1}, common.BytesToHash([]byte{1}))
	require.NoError(t, err)
	require.NotEqual(t, root, newRoot)

	// keyB must still resolve, walking through the branch nodes that
	// keyA's update just rewrote along their shared prefix.
	val, included, err := store.Get(keyB)
	require.NoError(t, err)
	require.False(t, included)
	require.Nil(t, val)

	newRoot2, err := store.Update(keyB, []byte{2}, common.BytesToHash([]byte{2}))
	require.NoError(t, err)
	require.NotEqual(t, newRoot, newRoot2)

	valA, includedA, err := store.Get(keyA)
	require.NoError(t, err)
	require.True(t, includedA)
	require.Equal(t, []byte{1}, valA)
}

func TestStoreGetUnprovenKeyFails(t *testing.T) {
	store := NewStore(EmptyRoot())
	_, _, err := store.Get([]byte("nope"))
	require.ErrorIs(t, err, ErrMissingProof)
}

func TestStoreInsertBadProofFails(t *testing.T) {
	store := NewStore(common.Hash{0x1})
	err := store.Insert([]byte("k"), Proof{Siblings: []common.Hash{EmptyRoot()}})
	require.Error(t, err)
}
