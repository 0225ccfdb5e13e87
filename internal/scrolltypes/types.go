// Package scrolltypes holds the wire and witness types the prover
// and attestor exchange with the outside world: L2 blocks, the
// per-batch witness bundle, and the signed proof-of-execution report.
package scrolltypes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/scroll-tech/sgx-prover/internal/zktrie"
)

// Block is a standard Ethereum-shaped L2 block plus the withdrawal
// root Scroll-family chains carry in a reserved header field.
type Block struct {
	Header         *types.Header
	Transactions   types.Transactions
	WithdrawalRoot common.Hash
}

// Hash is keccak256(rlp(header)), delegated to go-ethereum's header
// hashing so it matches the exact encoding an L2 full node produces.
func (b *Block) Hash() common.Hash {
	return b.Header.Hash()
}

// AccountProof is the witness's evidence for one account's pre-state:
// the account's leaf value plus the trie proof chaining it to the
// batch's claimed prevStateRoot.
type AccountProof struct {
	Address     common.Address
	Nonce       uint64
	Balance     []byte // big-endian, left-padded to 32 bytes
	CodeHash    common.Hash
	CodeSize    uint64
	StorageRoot common.Hash
	Proof       zktrie.Proof
}

// StorageProof is the witness's evidence for one storage word.
type StorageProof struct {
	Address common.Address
	Slot    common.Hash
	Value   []byte
	Proof   zktrie.Proof
}

// BlockWitness bundles everything C3 needs to re-execute one block
// without touching the network: the account and storage proofs
// needed by the block's transactions, and the code preimages those
// transactions call into.
type BlockWitness struct {
	Block          Block
	AccountProofs  []AccountProof
	StorageProofs  []StorageProof
	Codes          [][]byte
	PrevStateRoot  common.Hash
	PostStateRoot  common.Hash
}

// BatchWitness is the ordered per-block witness list for one batch,
// the unit the prove RPC method is called with.
type BatchWitness struct {
	BatchID uint64
	Blocks  []BlockWitness
}

// PoE is the signed proof-of-execution report C4 produces: the
// batch's identity, the state commitments straddling it, and the
// enclave's signature over all of it.
type PoE struct {
	BatchHash      common.Hash
	StateHash      common.Hash
	PrevStateRoot  common.Hash
	NewStateRoot   common.Hash
	WithdrawalRoot common.Hash
	Signature      [65]byte
}

// AttestationReport is the one-shot enclave binding C5 exposes: the
// DCAP quote alongside the pubkey it commits to and a signature
// proving the enclave, not just anyone re-publishing the quote,
// controls that pubkey.
type AttestationReport struct {
	Quote     []byte
	PubKey    [64]byte
	Signature [65]byte
}
