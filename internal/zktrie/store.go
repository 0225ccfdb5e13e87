package zktrie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/scroll-tech/sgx-prover/internal/errs"
)

// ErrMissingProof is returned by Store.Get/Update when a key was
// never proven against the store's root.
var ErrMissingProof = errors.New("zktrie: key not proven")

type nodeKind uint8

const (
	kindEmpty nodeKind = iota
	kindLeaf
	kindBranch
)

type node struct {
	kind               nodeKind
	left, right        common.Hash
	keyHash, valueHash common.Hash
	value              []byte
}

// Store rebuilds a trie locally out of the proofs presented to it,
// content-addressing every node it has ever seen by hash. Unlike a
// single Proof.Update, a Store lets the caller commit several dirty
// keys in sequence even when their paths share a common prefix,
// because a later Update walks the tree the earlier one actually
// produced instead of replaying a now-stale sibling list.
type Store struct {
	nodes map[common.Hash]node
	root  common.Hash
}

// NewStore creates a Store pinned to root; every subsequent Insert
// must present a proof valid against that same root.
func NewStore(root common.Hash) *Store {
	return &Store{nodes: make(map[common.Hash]node), root: root}
}

// Root returns the trie's current root.
func (s *Store) Root() common.Hash { return s.root }

// Insert verifies proof against the store's current root and, on
// success, remembers every node it traversed so later Update calls
// can see this key's siblings.
func (s *Store) Insert(key []byte, proof Proof) error {
	path := KeyPath(key)

	var cur node
	var curHash common.Hash
	if proof.Leaf != nil {
		cur = node{kind: kindLeaf, keyHash: path, valueHash: proof.Leaf.ValueHash, value: proof.Leaf.Value}
		curHash = LeafHash(path, proof.Leaf.ValueHash)
	} else {
		cur = node{kind: kindEmpty}
		curHash = EmptyRoot()
	}
	s.nodes[curHash] = cur

	for i := len(proof.Siblings) - 1; i >= 0; i-- {
		sib := proof.Siblings[i]
		var branch node
		var h common.Hash
		if bitAt(path, i) == 0 {
			branch = node{kind: kindBranch, left: curHash, right: sib}
			h = BranchHash(curHash, sib)
		} else {
			branch = node{kind: kindBranch, left: sib, right: curHash}
			h = BranchHash(sib, curHash)
		}
		s.nodes[h] = branch
		curHash = h
	}

	if curHash != s.root {
		return errs.New("zktrie.Store.Insert", errs.BadProof,
			errors.Errorf("proof for key %x does not chain to root %x (got %x)", key, s.root, curHash))
	}
	return nil
}

type trailEntry struct {
	tookLeft    bool
	siblingHash common.Hash
}

// lookupPath walks the store from its root along the bits of path,
// returning the trail of branch decisions and the hash of the node it
// bottomed out on (a leaf or the empty sentinel).
func (s *Store) lookupPath(path common.Hash) ([]trailEntry, common.Hash, error) {
	cur := s.root
	var trail []trailEntry
	for depth := 0; ; depth++ {
		n, ok := s.nodes[cur]
		if !ok {
			return nil, common.Hash{}, errors.Wrapf(ErrMissingProof, "node %x", cur)
		}
		if n.kind != kindBranch {
			return trail, cur, nil
		}
		if bitAt(path, depth) == 0 {
			trail = append(trail, trailEntry{tookLeft: true, siblingHash: n.right})
			cur = n.left
		} else {
			trail = append(trail, trailEntry{tookLeft: false, siblingHash: n.left})
			cur = n.right
		}
	}
}

// Get returns the value stored at key, per §4.2's read invariant: it
// fails with ErrMissingProof unless key has already been Insert-ed.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	path := KeyPath(key)
	_, leafHash, err := s.lookupPath(path)
	if err != nil {
		return nil, false, err
	}
	n := s.nodes[leafHash]
	if n.kind == kindEmpty || n.keyHash != path {
		return nil, false, nil
	}
	return n.value, true, nil
}

// Update writes newValue at key and returns the new root. key must
// already have been Insert-ed (proven) against some ancestor root of
// the store's current root.
func (s *Store) Update(key, newValue []byte, newValueHash common.Hash) (common.Hash, error) {
	path := KeyPath(key)
	trail, _, err := s.lookupPath(path)
	if err != nil {
		return common.Hash{}, err
	}

	newLeaf := node{kind: kindLeaf, keyHash: path, valueHash: newValueHash, value: newValue}
	newHash := LeafHash(path, newValueHash)
	s.nodes[newHash] = newLeaf

	for i := len(trail) - 1; i >= 0; i-- {
		e := trail[i]
		var branch node
		var h common.Hash
		if e.tookLeft {
			branch = node{kind: kindBranch, left: newHash, right: e.siblingHash}
			h = BranchHash(newHash, e.siblingHash)
		} else {
			branch = node{kind: kindBranch, left: e.siblingHash, right: newHash}
			h = BranchHash(e.siblingHash, newHash)
		}
		s.nodes[h] = branch
		newHash = h
	}
	s.root = newHash
	return newHash, nil
}
