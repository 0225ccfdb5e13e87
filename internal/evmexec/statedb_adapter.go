package evmexec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/sgx-prover/internal/statedb"
)

// journalEntry undoes one mutation made during a call. snapshot/revert
// on stateAdapter is implemented as a simple append-only journal
// rather than go-ethereum's per-field dirty tracking. statedb.StateDB
// has no snapshots of its own, so the journal undoes both the balance,
// nonce, code and storage writes the adapter forwards to it and the
// EVM-session bookkeeping (refund, logs, access lists, transient
// storage, self-destructs).
type journalEntry func(*stateAdapter)

// stateAdapter satisfies core/vm.StateDB by delegating account and
// storage reads/writes to a proof-backed statedb.StateDB, and keeping
// purely EVM-session state (refund counter, logs, access lists,
// transient storage, self-destruct set) in memory for the lifetime of
// one block's execution.
type stateAdapter struct {
	db *statedb.StateDB

	refund uint64
	logs   []*types.Log

	selfDestructed map[common.Address]struct{}
	destructed6780 map[common.Address]struct{}

	addrAccessList map[common.Address]struct{}
	slotAccessList map[common.Address]map[common.Hash]struct{}

	transient map[common.Address]map[common.Hash]common.Hash

	// code holds the preimages of CodeHash values proven or produced
	// during this block: the account trie only ever commits to the
	// hash and size, never the bytes themselves.
	code map[common.Hash][]byte

	journal   []journalEntry
	snapshots int

	witnessExhausted error
}

func newStateAdapter(db *statedb.StateDB) *stateAdapter {
	return &stateAdapter{
		db:             db,
		selfDestructed: make(map[common.Address]struct{}),
		destructed6780: make(map[common.Address]struct{}),
		addrAccessList: make(map[common.Address]struct{}),
		slotAccessList: make(map[common.Address]map[common.Hash]struct{}),
		transient:      make(map[common.Address]map[common.Hash]common.Hash),
		code:           make(map[common.Hash][]byte),
	}
}

// seedCode registers a code preimage supplied by the witness, so a
// later GetCode against the matching CodeHash succeeds without a
// trie lookup.
func (s *stateAdapter) seedCode(code []byte) common.Hash {
	hash := codeHash(code)
	s.code[hash] = code
	return hash
}

// fail records the first InsufficientWitness-class error hit during
// execution. vm.StateDB has no error return on most methods, so the
// driver checks adapter.err() after each call the interpreter makes.
func (s *stateAdapter) fail(err error) {
	if s.witnessExhausted == nil {
		s.witnessExhausted = err
	}
}

func (s *stateAdapter) err() error { return s.witnessExhausted }

func (s *stateAdapter) account(addr common.Address) statedb.Account {
	acc, err := s.db.GetAccount(addr)
	if err != nil {
		s.fail(err)
		return statedb.Account{Balance: new(uint256.Int)}
	}
	return acc
}

func (s *stateAdapter) setAccount(addr common.Address, acc statedb.Account) {
	if err := s.db.SetAccount(addr, acc); err != nil {
		s.fail(err)
	}
}

func (s *stateAdapter) CreateAccount(addr common.Address) {
	prev := s.account(addr)
	s.journal = append(s.journal, func(a *stateAdapter) { a.setAccount(addr, prev) })
	acc := prev
	acc.Nonce = 0
	acc.CodeHash = common.Hash{}
	acc.CodeSize = 0
	s.setAccount(addr, acc)
}

func (s *stateAdapter) SubBalance(addr common.Address, amount *big.Int) {
	acc := s.account(addr)
	prevBal := acc.Balance.Clone()
	acc.Balance = new(uint256.Int).Sub(acc.Balance, uint256.MustFromBig(amount))
	s.journal = append(s.journal, func(a *stateAdapter) {
		acc := a.account(addr)
		acc.Balance = prevBal
		a.setAccount(addr, acc)
	})
	s.setAccount(addr, acc)
}

func (s *stateAdapter) AddBalance(addr common.Address, amount *big.Int) {
	acc := s.account(addr)
	prevBal := acc.Balance.Clone()
	acc.Balance = new(uint256.Int).Add(acc.Balance, uint256.MustFromBig(amount))
	s.journal = append(s.journal, func(a *stateAdapter) {
		acc := a.account(addr)
		acc.Balance = prevBal
		a.setAccount(addr, acc)
	})
	s.setAccount(addr, acc)
}

func (s *stateAdapter) GetBalance(addr common.Address) *big.Int {
	return s.account(addr).Balance.ToBig()
}

func (s *stateAdapter) GetNonce(addr common.Address) uint64 {
	return s.account(addr).Nonce
}

func (s *stateAdapter) SetNonce(addr common.Address, nonce uint64) {
	acc := s.account(addr)
	prev := acc.Nonce
	acc.Nonce = nonce
	s.journal = append(s.journal, func(a *stateAdapter) {
		acc := a.account(addr)
		acc.Nonce = prev
		a.setAccount(addr, acc)
	})
	s.setAccount(addr, acc)
}

func (s *stateAdapter) GetCodeHash(addr common.Address) common.Hash {
	return s.account(addr).CodeHash
}

func (s *stateAdapter) GetCode(addr common.Address) []byte {
	return s.code[s.account(addr).CodeHash]
}

func (s *stateAdapter) SetCode(addr common.Address, code []byte) {
	acc := s.account(addr)
	prevHash, prevSize := acc.CodeHash, acc.CodeSize
	hash := s.seedCode(code)
	acc.CodeHash = hash
	acc.CodeSize = uint64(len(code))
	s.journal = append(s.journal, func(a *stateAdapter) {
		acc := a.account(addr)
		acc.CodeHash, acc.CodeSize = prevHash, prevSize
		a.setAccount(addr, acc)
	})
	s.setAccount(addr, acc)
}

func (s *stateAdapter) GetCodeSize(addr common.Address) int {
	return int(s.account(addr).CodeSize)
}

func (s *stateAdapter) AddRefund(v uint64) {
	prev := s.refund
	s.refund += v
	s.journal = append(s.journal, func(a *stateAdapter) { a.refund = prev })
}

func (s *stateAdapter) SubRefund(v uint64) {
	prev := s.refund
	if v > s.refund {
		panic("evmexec: refund underflow")
	}
	s.refund -= v
	s.journal = append(s.journal, func(a *stateAdapter) { a.refund = prev })
}

func (s *stateAdapter) GetRefund() uint64 { return s.refund }

func (s *stateAdapter) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	v, err := s.db.GetStorage(addr, key)
	if err != nil {
		s.fail(err)
		return common.Hash{}
	}
	return common.Hash(v.Bytes32())
}

func (s *stateAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return s.GetCommittedState(addr, key)
}

func (s *stateAdapter) SetState(addr common.Address, key, value common.Hash) {
	prev := s.GetCommittedState(addr, key)
	s.journal = append(s.journal, func(a *stateAdapter) {
		v, _ := uint256.FromBig(prev.Big())
		_ = a.db.SetStorage(addr, key, *v)
	})
	v, _ := uint256.FromBig(value.Big())
	if err := s.db.SetStorage(addr, key, *v); err != nil {
		s.fail(err)
	}
}

func (s *stateAdapter) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	if m, ok := s.transient[addr]; ok {
		return m[key]
	}
	return common.Hash{}
}

func (s *stateAdapter) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := s.GetTransientState(addr, key)
	s.journal = append(s.journal, func(a *stateAdapter) { a.rawSetTransient(addr, key, prev) })
	s.rawSetTransient(addr, key, value)
}

func (s *stateAdapter) rawSetTransient(addr common.Address, key, value common.Hash) {
	m, ok := s.transient[addr]
	if !ok {
		m = make(map[common.Hash]common.Hash)
		s.transient[addr] = m
	}
	m[key] = value
}

func (s *stateAdapter) SelfDestruct(addr common.Address) {
	_, was := s.selfDestructed[addr]
	s.journal = append(s.journal, func(a *stateAdapter) {
		if !was {
			delete(a.selfDestructed, addr)
		}
	})
	s.selfDestructed[addr] = struct{}{}
	acc := s.account(addr)
	prevBalance := acc.Balance.Clone()
	s.journal = append(s.journal, func(a *stateAdapter) {
		acc := a.account(addr)
		acc.Balance = prevBalance
		a.setAccount(addr, acc)
	})
	acc.Balance = new(uint256.Int)
	s.setAccount(addr, acc)
}

func (s *stateAdapter) HasSelfDestructed(addr common.Address) bool {
	_, ok := s.selfDestructed[addr]
	return ok
}

func (s *stateAdapter) Selfdestruct6780(addr common.Address) {
	s.destructed6780[addr] = struct{}{}
	s.SelfDestruct(addr)
}

func (s *stateAdapter) Exist(addr common.Address) bool {
	_, err := s.db.GetAccount(addr)
	return err == nil
}

func (s *stateAdapter) Empty(addr common.Address) bool {
	acc, err := s.db.GetAccount(addr)
	if err != nil {
		return true
	}
	return acc.IsEmpty()
}

func (s *stateAdapter) AddressInAccessList(addr common.Address) bool {
	_, ok := s.addrAccessList[addr]
	return ok
}

func (s *stateAdapter) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	addrOK := s.AddressInAccessList(addr)
	slots, ok := s.slotAccessList[addr]
	if !ok {
		return addrOK, false
	}
	_, slotOK := slots[slot]
	return addrOK, slotOK
}

func (s *stateAdapter) AddAddressToAccessList(addr common.Address) {
	if _, ok := s.addrAccessList[addr]; ok {
		return
	}
	s.journal = append(s.journal, func(a *stateAdapter) { delete(a.addrAccessList, addr) })
	s.addrAccessList[addr] = struct{}{}
}

func (s *stateAdapter) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.AddAddressToAccessList(addr)
	slots, ok := s.slotAccessList[addr]
	if !ok {
		slots = make(map[common.Hash]struct{})
		s.slotAccessList[addr] = slots
	}
	if _, ok := slots[slot]; ok {
		return
	}
	s.journal = append(s.journal, func(a *stateAdapter) { delete(a.slotAccessList[addr], slot) })
	slots[slot] = struct{}{}
}

func (s *stateAdapter) Prepare(rules params.Rules, sender, coinbase common.Address, dst *common.Address, precompiles []common.Address, list types.AccessList) {
	s.addrAccessList = make(map[common.Address]struct{})
	s.slotAccessList = make(map[common.Address]map[common.Hash]struct{})
	s.AddAddressToAccessList(sender)
	if dst != nil {
		s.AddAddressToAccessList(*dst)
	}
	for _, addr := range precompiles {
		s.AddAddressToAccessList(addr)
	}
	if rules.IsBerlin {
		s.AddAddressToAccessList(coinbase)
	}
	for _, el := range list {
		s.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			s.AddSlotToAccessList(el.Address, key)
		}
	}
}

func (s *stateAdapter) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic("evmexec: invalid snapshot id")
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i](s)
	}
	s.journal = s.journal[:id]
}

func (s *stateAdapter) Snapshot() int { return len(s.journal) }

func (s *stateAdapter) AddLog(l *types.Log) {
	s.logs = append(s.logs, l)
	s.journal = append(s.journal, func(a *stateAdapter) { a.logs = a.logs[:len(a.logs)-1] })
}

func (s *stateAdapter) AddPreimage(common.Hash, []byte) {
	// The prover never needs preimages of Keccak(key) outside of the
	// witness itself, so this is intentionally a no-op.
}
