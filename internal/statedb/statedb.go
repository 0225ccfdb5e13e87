package statedb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
	"github.com/scroll-tech/sgx-prover/internal/zktrie"
)

// StateDB is the passive, proof-backed store a single Prover.prove
// invocation owns for the duration of one batch: every account and
// storage word it serves was proven against the batch's witness, and
// only IntermediateRoot and Commit advance its root.
type StateDB struct {
	accountTrie *zktrie.Store
	// storageTries holds one sub-trie per address whose storage was
	// touched; each is anchored to that account's StorageRoot at the
	// time it was first proven.
	storageTries map[common.Address]*zktrie.Store

	accounts map[common.Address]Account
	storage  map[StorageKey]uint256.Int

	dirtyAccounts map[common.Address]struct{}
	dirtyStorage  map[StorageKey]struct{}

	accessLog *AccessLog
	committed bool
}

// New seeds a StateDB against the batch's claimed pre-state root.
func New(prevRoot common.Hash) *StateDB {
	return &StateDB{
		accountTrie:   zktrie.NewStore(prevRoot),
		storageTries:  make(map[common.Address]*zktrie.Store),
		accounts:      make(map[common.Address]Account),
		storage:       make(map[StorageKey]uint256.Int),
		dirtyAccounts: make(map[common.Address]struct{}),
		dirtyStorage:  make(map[StorageKey]struct{}),
		accessLog:     newAccessLog(),
	}
}

func encodeAccount(a Account) []byte {
	balance := a.Balance
	if balance == nil {
		balance = new(uint256.Int)
	}
	out := make([]byte, 8+32+32+8+32)
	i := 0
	for j := 0; j < 8; j++ {
		out[i+j] = byte(a.Nonce >> (56 - 8*j))
	}
	i += 8
	b := balance.Bytes32()
	copy(out[i:], b[:])
	i += 32
	copy(out[i:], a.CodeHash[:])
	i += 32
	for j := 0; j < 8; j++ {
		out[i+j] = byte(a.CodeSize >> (56 - 8*j))
	}
	i += 8
	copy(out[i:], a.StorageRoot[:])
	return out
}

func accountKey(addr common.Address) []byte { return addr.Bytes() }

func storageKeyBytes(k StorageKey) []byte {
	out := make([]byte, 20+32)
	copy(out, k.Addr.Bytes())
	copy(out[20:], k.Slot.Bytes())
	return out
}

// ProveAccount registers a verified mapping from addr to account
// against the trie's current root. Idempotent: once addr is known,
// a further call is a no-op and its account and proof are not checked.
func (s *StateDB) ProveAccount(addr common.Address, account Account, proof zktrie.Proof) error {
	if s.committed {
		return errs.New("statedb.ProveAccount", errs.Internal, errors.New("state db already committed"))
	}
	if _, ok := s.accounts[addr]; ok {
		return nil
	}
	if err := s.accountTrie.Insert(accountKey(addr), proof); err != nil {
		return errs.New("statedb.ProveAccount", errs.BadProof, err)
	}
	s.accounts[addr] = account
	s.accessLog.record(AccessAccount, accountKey(addr), encodeAccount(account))
	return nil
}

// ProveStorage registers a verified mapping from (addr,slot) to value
// against addr's storage sub-trie, itself anchored at account's
// StorageRoot. The account must already have been proven.
func (s *StateDB) ProveStorage(addr common.Address, slot common.Hash, value uint256.Int, proof zktrie.Proof) error {
	if s.committed {
		return errs.New("statedb.ProveStorage", errs.Internal, errors.New("state db already committed"))
	}
	acc, ok := s.accounts[addr]
	if !ok {
		return errs.New("statedb.ProveStorage", errs.WitnessIncomplete, errors.Errorf("account %s not proven before its storage", addr))
	}
	key := StorageKey{Addr: addr, Slot: slot}
	if _, ok := s.storage[key]; ok {
		return nil
	}
	trie, ok := s.storageTries[addr]
	if !ok {
		trie = zktrie.NewStore(acc.StorageRoot)
		s.storageTries[addr] = trie
	}
	valBytes := value.Bytes32()
	if err := trie.Insert(slot.Bytes(), proof); err != nil {
		return errs.New("statedb.ProveStorage", errs.BadProof, err)
	}
	s.storage[key] = value
	s.accessLog.record(AccessStorage, storageKeyBytes(key), valBytes[:])
	return nil
}

// GetAccount returns a previously-proven account. It never touches
// the network: the read either hits a proof-backed preimage, or it
// fails with errs.WitnessIncomplete, per §4.2's read invariant.
func (s *StateDB) GetAccount(addr common.Address) (Account, error) {
	acc, ok := s.accounts[addr]
	if !ok {
		return Account{}, errs.New("statedb.GetAccount", errs.WitnessIncomplete, errors.Errorf("no proof for account %s", addr))
	}
	return acc, nil
}

// GetStorage returns a previously-proven storage word.
func (s *StateDB) GetStorage(addr common.Address, slot common.Hash) (uint256.Int, error) {
	v, ok := s.storage[StorageKey{Addr: addr, Slot: slot}]
	if !ok {
		return uint256.Int{}, errs.New("statedb.GetStorage", errs.WitnessIncomplete, errors.Errorf("no proof for %s/%s", addr, slot))
	}
	return v, nil
}

// SetAccount marks addr dirty with a new account value. addr must
// already have been proven.
func (s *StateDB) SetAccount(addr common.Address, account Account) error {
	if s.committed {
		return errs.New("statedb.SetAccount", errs.Internal, errors.New("state db already committed"))
	}
	if _, ok := s.accounts[addr]; !ok {
		return errs.New("statedb.SetAccount", errs.WitnessIncomplete, errors.Errorf("write to unproven account %s", addr))
	}
	s.accounts[addr] = account
	s.dirtyAccounts[addr] = struct{}{}
	return nil
}

// SetStorage marks (addr,slot) dirty with a new word.
func (s *StateDB) SetStorage(addr common.Address, slot common.Hash, value uint256.Int) error {
	if s.committed {
		return errs.New("statedb.SetStorage", errs.Internal, errors.New("state db already committed"))
	}
	key := StorageKey{Addr: addr, Slot: slot}
	if _, ok := s.storage[key]; !ok {
		return errs.New("statedb.SetStorage", errs.WitnessIncomplete, errors.Errorf("write to unproven slot %s/%s", addr, slot))
	}
	s.storage[key] = value
	s.dirtyStorage[key] = struct{}{}
	return nil
}

// AccessLog exposes the ordered, de-duplicated log of proven keys used
// to derive the batch's stateHash.
func (s *StateDB) AccessLog() []AccessEntry { return s.accessLog.Entries() }

// IntermediateRoot recomputes and returns the trie's current root
// without freezing the db, mirroring go-ethereum's own per-block
// state.StateDB.IntermediateRoot. The prover calls this once per
// block to check the block's claimed post-state root before
// continuing on to the next block in the batch.
func (s *StateDB) IntermediateRoot() (common.Hash, error) {
	if s.committed {
		return common.Hash{}, errs.New("statedb.IntermediateRoot", errs.Internal, errors.New("state db already committed"))
	}
	root, err := s.foldDirty()
	if err != nil {
		return common.Hash{}, err
	}
	s.dirtyAccounts = make(map[common.Address]struct{})
	s.dirtyStorage = make(map[StorageKey]struct{})
	return root, nil
}

// Commit recomputes every dirty storage sub-trie root, folds each
// updated StorageRoot back into its account, recomputes the account
// trie root, and freezes the db. A second Commit call fails.
func (s *StateDB) Commit() (common.Hash, error) {
	if s.committed {
		return common.Hash{}, errs.New("statedb.Commit", errs.Internal, errors.New("state db already committed"))
	}
	root, err := s.foldDirty()
	if err != nil {
		return common.Hash{}, err
	}
	s.committed = true
	return root, nil
}

// foldDirty applies every pending storage and account write to their
// respective tries and returns the resulting account trie root,
// leaving the dirty sets intact for the caller to clear or freeze.
func (s *StateDB) foldDirty() (common.Hash, error) {
	dirtyAddrsWithStorage := make(map[common.Address]struct{})
	for key := range s.dirtyStorage {
		trie, ok := s.storageTries[key.Addr]
		if !ok {
			return common.Hash{}, errs.New("statedb.foldDirty", errs.Internal, errors.Errorf("dirty storage for %s with no trie", key.Addr))
		}
		val := s.storage[key]
		valBytes := val.Bytes32()
		if _, err := trie.Update(key.Slot.Bytes(), valBytes[:], common.BytesToHash(valBytes[:])); err != nil {
			return common.Hash{}, errs.New("statedb.foldDirty", errs.Internal, err)
		}
		dirtyAddrsWithStorage[key.Addr] = struct{}{}
	}
	for addr := range dirtyAddrsWithStorage {
		acc := s.accounts[addr]
		acc.StorageRoot = s.storageTries[addr].Root()
		s.accounts[addr] = acc
		s.dirtyAccounts[addr] = struct{}{}
	}

	for addr := range s.dirtyAccounts {
		acc := s.accounts[addr]
		enc := encodeAccount(acc)
		if _, err := s.accountTrie.Update(accountKey(addr), enc, crypto.Keccak256Hash(enc)); err != nil {
			return common.Hash{}, errs.New("statedb.foldDirty", errs.Internal, err)
		}
	}

	return s.accountTrie.Root(), nil
}
