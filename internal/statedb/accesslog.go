package statedb

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccessKind tags which flavor of state key an AccessEntry names.
type AccessKind uint8

const (
	AccessAccount AccessKind = iota
	AccessStorage
)

// AccessEntry records the proven (pre-execution) value of a state key
// proven into a StateDB, so the prover can derive stateHash: a
// commitment an on-chain challenge could use to re-derive the
// pre-state without re-fetching the whole witness.
type AccessEntry struct {
	Kind     AccessKind
	Key      []byte // addr, or addr||slot
	PreValue []byte
}

// AccessLog is an ordered, de-duplicated (per key) record of every
// state key proven during a StateDB's lifetime. Keys are recorded by
// ProveAccount/ProveStorage, not by reads or writes, so a proven key
// that execution never touches is still recorded.
type AccessLog struct {
	seen    map[string]struct{}
	entries []AccessEntry
}

func newAccessLog() *AccessLog {
	return &AccessLog{seen: make(map[string]struct{})}
}

// record appends an entry the first time key is seen; later touches
// of the same key are no-ops, since only the pre-value matters.
func (l *AccessLog) record(kind AccessKind, key, preValue []byte) {
	k := string(append([]byte{byte(kind)}, key...))
	if _, ok := l.seen[k]; ok {
		return
	}
	l.seen[k] = struct{}{}
	l.entries = append(l.entries, AccessEntry{Kind: kind, Key: append([]byte(nil), key...), PreValue: append([]byte(nil), preValue...)})
}

// Entries returns the log in first-touch order.
func (l *AccessLog) Entries() []AccessEntry {
	return l.entries
}

// CanonicalHash serialises the log as length-prefixed, sorted
// (kind, key, pre_value) tuples and returns keccak256 of the result,
// exactly the stateHash construction in §4.4 step 5.
func CanonicalHash(entries []AccessEntry) common.Hash {
	sorted := make([]AccessEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})

	var buf bytes.Buffer
	var lenBuf [8]byte
	writeLP := func(b []byte) {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
		buf.Write(lenBuf[:])
		buf.Write(b)
	}
	for _, e := range sorted {
		buf.WriteByte(byte(e.Kind))
		writeLP(e.Key)
		writeLP(e.PreValue)
	}

	return crypto.Keccak256Hash(buf.Bytes())
}
