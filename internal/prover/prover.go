// Package prover implements the off-chain half of C4: it turns a
// batch's block bodies and zkTrie witness into a signed
// proof-of-execution by replaying every block through
// internal/evmexec against a fresh internal/statedb.StateDB, then
// signs the result with the enclave keypair internal/attestation
// boots at process start.
package prover

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/errs"
	"github.com/scroll-tech/sgx-prover/internal/evmexec"
	"github.com/scroll-tech/sgx-prover/internal/scrolltypes"
	"github.com/scroll-tech/sgx-prover/internal/statedb"
)

// L2MessageQueue is the designated predeploy whose storage slot 0
// carries the batch's withdrawal trie root; prove's step 4 reads it
// there and cross-checks it against the witness's own block-level
// withdrawal root rather than trusting either one blindly.
var (
	L2MessageQueue       = common.HexToAddress("0x5300000000000000000000000000000000000000")
	withdrawTrieRootSlot = common.Hash{}
)

// Prover holds the process-scoped state a report()/prove() RPC needs:
// the booted enclave and the chain parameters re-execution requires.
// The enclave is generated once at boot and never rotates: MonitorAttested
// only ever re-submits this same key's report as its on-chain attestation
// approaches expiry, it never mints a replacement keypair.
type Prover struct {
	// Mu serializes prove, per §5; report takes no lock.
	Mu sync.Mutex

	enclave *attestation.Enclave

	chainID   uint64
	l1BaseFee *uint256.Int

	// dev gates the mock/validate RPC methods.
	dev bool
}

// New builds a Prover bound to enclave for chainID, crediting the L1
// data fee at l1BaseFee during re-execution. dev enables the
// development-only mock/validate RPC methods.
func New(enclave *attestation.Enclave, chainID uint64, l1BaseFee *uint256.Int, dev bool) *Prover {
	return &Prover{enclave: enclave, chainID: chainID, l1BaseFee: l1BaseFee, dev: dev}
}

// DevEnabled reports whether mock/validate are exposed.
func (p *Prover) DevEnabled() bool { return p.dev }

// ActiveEnclave returns the enclave that signs every PoE and report
// for the lifetime of this process.
func (p *Prover) ActiveEnclave() *attestation.Enclave {
	return p.enclave
}

// Report returns the active enclave's one-time signed attestation
// report.
func (p *Prover) Report() (scrolltypes.AttestationReport, error) {
	return p.ActiveEnclave().Report()
}

// Prove runs the six-step algorithm over witness and returns the
// signed PoE for batchID. Any failure aborts before signing; no
// partial PoE is ever produced.
func (p *Prover) Prove(batchID uint64, witness scrolltypes.BatchWitness) (scrolltypes.PoE, error) {
	p.Mu.Lock()
	defer p.Mu.Unlock()
	return p.prove(witness)
}

func (p *Prover) prove(witness scrolltypes.BatchWitness) (scrolltypes.PoE, error) {
	if len(witness.Blocks) == 0 {
		return scrolltypes.PoE{}, errs.New("prover.Prove", errs.L2Inconsistent, errors.New("batch has no blocks"))
	}

	// Step 1: recompute batchHash from the ordered block hashes.
	hashes := make([]byte, 0, len(witness.Blocks)*common.HashLength)
	for i := range witness.Blocks {
		h := witness.Blocks[i].Block.Hash()
		hashes = append(hashes, h[:]...)
	}
	batchHash := crypto.Keccak256Hash(hashes)

	// Step 2: seed the State DB with block one's claimed pre-state root.
	prevStateRoot := witness.Blocks[0].PrevStateRoot
	db := statedb.New(prevStateRoot)

	blockHashes := make(map[uint64]common.Hash, len(witness.Blocks))
	for i := range witness.Blocks {
		h := witness.Blocks[i].Block.Header
		blockHashes[h.Number.Uint64()] = witness.Blocks[i].Block.Hash()
	}
	getHash := func(n uint64) common.Hash { return blockHashes[n] }

	driver := evmexec.New(new(big.Int).SetUint64(p.chainID), getHash, p.l1BaseFee)

	// Step 3: feed each block's witness, re-execute it, and check its
	// claimed post-state root before moving on to the next block.
	for i := range witness.Blocks {
		bw := witness.Blocks[i]
		for _, ap := range bw.AccountProofs {
			acc := statedb.Account{
				Nonce:       ap.Nonce,
				Balance:     new(uint256.Int).SetBytes(ap.Balance),
				CodeHash:    ap.CodeHash,
				CodeSize:    ap.CodeSize,
				StorageRoot: ap.StorageRoot,
			}
			if err := db.ProveAccount(ap.Address, acc, ap.Proof); err != nil {
				return scrolltypes.PoE{}, err
			}
		}
		for _, sp := range bw.StorageProofs {
			val := new(uint256.Int).SetBytes(sp.Value)
			if err := db.ProveStorage(sp.Address, sp.Slot, *val, sp.Proof); err != nil {
				return scrolltypes.PoE{}, err
			}
		}

		if _, err := driver.ExecuteBlock(db, bw.Block.Header, bw.Block.Transactions, bw.Codes); err != nil {
			return scrolltypes.PoE{}, err
		}

		got, err := db.IntermediateRoot()
		if err != nil {
			return scrolltypes.PoE{}, err
		}
		if got != bw.PostStateRoot {
			return scrolltypes.PoE{}, errs.New("prover.Prove", errs.RootMismatch,
				errors.Errorf("block %s: recomputed root %s != claimed %s", bw.Block.Header.Number, got, bw.PostStateRoot))
		}
	}

	// Step 4: read the withdrawal root off the designated system
	// contract slot and cross-check it against the header's copy.
	wdRootWord, err := db.GetStorage(L2MessageQueue, withdrawTrieRootSlot)
	if err != nil {
		return scrolltypes.PoE{}, err
	}
	withdrawalRoot := common.Hash(wdRootWord.Bytes32())
	lastBlock := witness.Blocks[len(witness.Blocks)-1].Block
	if withdrawalRoot != lastBlock.WithdrawalRoot {
		return scrolltypes.PoE{}, errs.New("prover.Prove", errs.L2Inconsistent,
			errors.New("withdrawal root disagrees with block header"))
	}

	newStateRoot, err := db.Commit()
	if err != nil {
		return scrolltypes.PoE{}, err
	}

	// Step 5: stateHash over the full batch's access log.
	stateHash := statedb.CanonicalHash(db.AccessLog())

	// Step 6: sign and return.
	digest, err := signingDigest(p.chainID, batchHash, stateHash, prevStateRoot, newStateRoot, withdrawalRoot)
	if err != nil {
		return scrolltypes.PoE{}, errs.New("prover.Prove", errs.Internal, err)
	}
	sig, err := p.ActiveEnclave().Sign([32]byte(digest))
	if err != nil {
		return scrolltypes.PoE{}, err
	}

	return scrolltypes.PoE{
		BatchHash:      batchHash,
		StateHash:      stateHash,
		PrevStateRoot:  prevStateRoot,
		NewStateRoot:   newStateRoot,
		WithdrawalRoot: withdrawalRoot,
		Signature:      sig,
	}, nil
}
