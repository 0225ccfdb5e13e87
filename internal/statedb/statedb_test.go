package statedb

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/sgx-prover/internal/errs"
	"github.com/scroll-tech/sgx-prover/internal/zktrie"
)

func emptyProof(depth int) zktrie.Proof {
	p := zktrie.Proof{Siblings: make([]common.Hash, depth)}
	for i := range p.Siblings {
		p.Siblings[i] = zktrie.EmptyRoot()
	}
	return p
}

func TestGetBeforeProveFails(t *testing.T) {
	addr := common.HexToAddress("0x01")
	db := New(zktrie.EmptyRoot())
	_, err := db.GetAccount(addr)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.WitnessIncomplete))
}

func TestSetBeforeProveFails(t *testing.T) {
	addr := common.HexToAddress("0x01")
	db := New(zktrie.EmptyRoot())
	err := db.SetAccount(addr, Account{Nonce: 1, Balance: uint256.NewInt(0)})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.WitnessIncomplete))
}

func TestProveGetSetCommitAccount(t *testing.T) {
	addr := common.HexToAddress("0x01")
	depth := 4
	proof := emptyProof(depth)
	root := zktrie.ProofRoot(addr.Bytes(), proof)

	db := New(root)
	acc := Account{Nonce: 0, Balance: uint256.NewInt(100), CodeHash: common.Hash{}, StorageRoot: zktrie.EmptyRoot()}
	require.NoError(t, db.ProveAccount(addr, acc, proof))

	got, err := db.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), got.Nonce)

	acc.Nonce = 1
	require.NoError(t, db.SetAccount(addr, acc))

	newRoot, err := db.Commit()
	require.NoError(t, err)
	require.NotEqual(t, root, newRoot)

	_, err = db.Commit()
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Internal))
}

func TestProveAccountTwiceIsNoOp(t *testing.T) {
	addr := common.HexToAddress("0x02")
	depth := 3
	proof := emptyProof(depth)
	root := zktrie.ProofRoot(addr.Bytes(), proof)

	db := New(root)
	acc := Account{Balance: uint256.NewInt(1)}
	require.NoError(t, db.ProveAccount(addr, acc, proof))
	require.NoError(t, db.ProveAccount(addr, acc, proof))
}

func TestIntermediateRootDoesNotFreeze(t *testing.T) {
	addr := common.HexToAddress("0x06")
	depth := 4
	proof := emptyProof(depth)
	root := zktrie.ProofRoot(addr.Bytes(), proof)

	db := New(root)
	acc := Account{Balance: uint256.NewInt(1), StorageRoot: zktrie.EmptyRoot()}
	require.NoError(t, db.ProveAccount(addr, acc, proof))

	acc.Nonce = 1
	require.NoError(t, db.SetAccount(addr, acc))

	// simulates the prover checking the first block's post-state root
	// mid-batch, before moving on to the next block.
	midRoot, err := db.IntermediateRoot()
	require.NoError(t, err)
	require.NotEqual(t, root, midRoot)

	// the next block's ProveAccount call for an already-known account
	// must still succeed: IntermediateRoot must not have frozen the db.
	require.NoError(t, db.ProveAccount(addr, acc, proof))

	acc.Nonce = 2
	require.NoError(t, db.SetAccount(addr, acc))

	// with nothing dirty between the two calls, IntermediateRoot and
	// Commit must agree on the same root.
	secondRoot, err := db.IntermediateRoot()
	require.NoError(t, err)
	require.NotEqual(t, midRoot, secondRoot)

	finalRoot, err := db.Commit()
	require.NoError(t, err)
	require.Equal(t, secondRoot, finalRoot)

	err = db.ProveAccount(common.HexToAddress("0x08"), Account{}, emptyProof(depth))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Internal))
}

func TestStorageRequiresAccountProvenFirst(t *testing.T) {
	addr := common.HexToAddress("0x03")
	slot := common.HexToHash("0x1")
	db := New(zktrie.EmptyRoot())
	err := db.ProveStorage(addr, slot, *uint256.NewInt(5), emptyProof(2))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.WitnessIncomplete))
}

func TestStorageRootFoldsIntoAccountOnCommit(t *testing.T) {
	addr := common.HexToAddress("0x04")
	slot := common.HexToHash("0x1")
	accDepth := 3
	accProof := emptyProof(accDepth)
	accRoot := zktrie.ProofRoot(addr.Bytes(), accProof)

	storageDepth := 2
	storageProof := emptyProof(storageDepth)
	storageRoot := zktrie.ProofRoot(slot.Bytes(), storageProof)

	db := New(accRoot)
	acc := Account{Balance: uint256.NewInt(0), StorageRoot: storageRoot}
	require.NoError(t, db.ProveAccount(addr, acc, accProof))

	// storage proof must chain to the account's declared StorageRoot
	require.NoError(t, db.ProveStorage(addr, slot, *uint256.NewInt(0), storageProof))
	require.NoError(t, db.SetStorage(addr, slot, *uint256.NewInt(42)))

	newAccRoot, err := db.Commit()
	require.NoError(t, err)
	require.NotEqual(t, accRoot, newAccRoot)

	got, err := db.GetAccount(addr)
	require.NoError(t, err)
	require.NotEqual(t, zktrie.EmptyRoot(), got.StorageRoot)
}

func TestAccessLogRecordsFirstTouchOnly(t *testing.T) {
	addr := common.HexToAddress("0x05")
	depth := 2
	proof := emptyProof(depth)
	root := zktrie.ProofRoot(addr.Bytes(), proof)

	db := New(root)
	acc := Account{Balance: uint256.NewInt(7)}
	require.NoError(t, db.ProveAccount(addr, acc, proof))
	require.NoError(t, db.SetAccount(addr, Account{Balance: uint256.NewInt(8)}))

	entries := db.AccessLog()
	require.Len(t, entries, 1)
	require.Equal(t, AccessAccount, entries[0].Kind)
}
