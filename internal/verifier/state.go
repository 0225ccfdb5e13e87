// Package verifier models the Verifier contract's state machine: an
// in-memory reference implementation (State) used by tests and by
// the attestor/prover to reason about on-chain state without a live
// chain, plus a real on-chain Client (see client.go) built on
// go-ethereum's abi/bind.
package verifier

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// revokedAt is the sentinel timestamp attestedProvers[p] carries once
// a prover has been challenged and revoked; it is deliberately not 0
// (unknown) so a revoked prover can never silently look unattested.
const revokedAt = 1

// Vote is one attestor's ballot on a report; voted tracks whether the
// attestor has cast one at all, distinguishing "no vote yet" from
// "voted reject".
type Vote struct {
	Voted    bool
	Approved bool
}

// ReportRecord is the per-report-hash bookkeeping the contract keeps
// from submission through quorum.
type ReportRecord struct {
	Prover      common.Address
	BlockNumber uint64
	Approved    uint64
	Votes       map[common.Address]Vote
}

// BatchInfo is the immutable record a successful commitBatch writes.
type BatchInfo struct {
	BatchID        uint64
	NewStateRoot   common.Hash
	PrevStateRoot  common.Hash
	WithdrawalRoot common.Hash
}

// State is a pure, deterministic reimplementation of the Verifier
// contract's storage and transition rules, advanced by an explicit
// "now" passed to each call rather than a wall clock, so tests can
// exercise the attestValiditySeconds boundary precisely.
type State struct {
	Owner     common.Address
	attestors map[common.Address]bool

	reports         map[common.Hash]*ReportRecord
	attestedProvers map[common.Address]uint64

	batches map[common.Hash]BatchInfo
	// batchIDs indexes batches already used, purely for the
	// permissive-batchId decision in DESIGN.md: batchId is caller
	// supplied and never checked for monotonicity or uniqueness.
	batchIDs map[uint64][]common.Hash

	AttestValiditySeconds uint64
	Threshold             uint64

	LayerTwoChainID uint64
}

// NewState constructs an empty Verifier reference state owned by
// owner, requiring threshold approvals per report and
// attestValiditySeconds of attested validity.
func NewState(owner common.Address, threshold, attestValiditySeconds, chainID uint64) *State {
	return &State{
		Owner:                 owner,
		attestors:             make(map[common.Address]bool),
		reports:               make(map[common.Hash]*ReportRecord),
		attestedProvers:       make(map[common.Address]uint64),
		batches:               make(map[common.Hash]BatchInfo),
		batchIDs:              make(map[uint64][]common.Hash),
		AttestValiditySeconds: attestValiditySeconds,
		Threshold:             threshold,
		LayerTwoChainID:       chainID,
	}
}

func (s *State) requireOwner(caller common.Address) error {
	if caller != s.Owner {
		return errors.New("caller is not owner")
	}
	return nil
}

// AddAttestors registers addrs as eligible voters. Owner-only.
func (s *State) AddAttestors(caller common.Address, addrs []common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	for _, a := range addrs {
		s.attestors[a] = true
	}
	return nil
}

// RemoveAttestors revokes voting rights. Owner-only.
func (s *State) RemoveAttestors(caller common.Address, addrs []common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	for _, a := range addrs {
		s.attestors[a] = false
	}
	return nil
}

// ChangeAttestValiditySeconds updates the attestation validity window.
// Owner-only.
func (s *State) ChangeAttestValiditySeconds(caller common.Address, seconds uint64) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.AttestValiditySeconds = seconds
	return nil
}

// ChangeOwner transfers ownership. Owner-only.
func (s *State) ChangeOwner(caller, newOwner common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.Owner = newOwner
	return nil
}

// IsAttestor reports whether addr currently holds voting rights.
func (s *State) IsAttestor(addr common.Address) bool { return s.attestors[addr] }

// SubmitAttestationReport records a new pending report for prover,
// keyed by h = hash(reportBytes); h is the RequestAttestation event
// payload a caller would emit. A repeat submission for the same prover is rejected
// so a prover cannot reset an in-progress vote tally by resubmitting.
func (s *State) SubmitAttestationReport(h common.Hash, prover common.Address, blockNumber uint64) error {
	if rec, ok := s.reports[h]; ok && rec.Prover == prover {
		return errors.New("report already submitted for this prover")
	}
	s.reports[h] = &ReportRecord{
		Prover:      prover,
		BlockNumber: blockNumber,
		Votes:       make(map[common.Address]Vote),
	}
	return nil
}

// VoteAttestationReport casts attestor's ballot on report h. Once the
// approval count reaches Threshold, the prover is marked attested at
// now. Attestor-only; each attestor may vote at most once per report;
// voting on an already-attested prover's report is rejected.
func (s *State) VoteAttestationReport(attestor common.Address, h common.Hash, approve bool, now uint64) error {
	if !s.attestors[attestor] {
		return errors.New("caller is not an attestor")
	}
	rec, ok := s.reports[h]
	if !ok {
		return errors.New("unknown report")
	}
	// A revoked prover (attestedProvers==revokedAt) is not "already
	// attested" by IsAttested, so a fresh report can re-attest it; a
	// revoked prover only stays locked out as long as no attestor
	// votes approve on a newly submitted report for it.
	if s.IsAttested(rec.Prover, now) {
		return errors.New("prover already attested")
	}
	if _, voted := rec.Votes[attestor]; voted {
		return errors.New("attestor already voted")
	}
	rec.Votes[attestor] = Vote{Voted: true, Approved: approve}
	if approve {
		rec.Approved++
	}
	if rec.Approved >= s.Threshold {
		s.attestedProvers[rec.Prover] = now
	}
	return nil
}

// ChallengeReport revokes both attestor and prover when attestor
// voted approve on h but on-chain DCAP re-verification (verified,
// supplied by the caller as dcapValid) fails. This is the contract's
// only slashing hook.
func (s *State) ChallengeReport(attestor common.Address, h common.Hash, dcapValid bool) error {
	rec, ok := s.reports[h]
	if !ok {
		return errors.New("unknown report")
	}
	v, voted := rec.Votes[attestor]
	if !voted || !v.Approved {
		return errors.New("attestor did not vote approve on this report")
	}
	if dcapValid {
		return errors.New("challenge failed: quote verifies")
	}
	s.attestors[attestor] = false
	s.attestedProvers[rec.Prover] = revokedAt
	return nil
}

// IsAttested reports whether signer's attestation is currently valid
// at time now: attested, unrevoked, and within the validity window.
func (s *State) IsAttested(signer common.Address, now uint64) bool {
	t := s.attestedProvers[signer]
	if t == 0 || t == revokedAt {
		return false
	}
	return t+s.AttestValiditySeconds > now
}

// CommitBatch validates signer's attestation and records a new,
// immutable batch entry keyed by batchHash. batchId is caller
// supplied and intentionally not checked for ordering (§9's
// permissive-batchId decision, see DESIGN.md).
func (s *State) CommitBatch(signer common.Address, now uint64, batchID uint64, batchHash common.Hash, info BatchInfo) error {
	if !s.IsAttested(signer, now) {
		return errors.New("prover not attested")
	}
	if _, exists := s.batches[batchHash]; exists {
		return errors.New("batch already commit")
	}
	info.BatchID = batchID
	s.batches[batchHash] = info
	s.batchIDs[batchID] = append(s.batchIDs[batchID], batchHash)
	return nil
}

// Batch returns the committed record for batchHash, if any.
func (s *State) Batch(batchHash common.Hash) (BatchInfo, bool) {
	b, ok := s.batches[batchHash]
	return b, ok
}

// Report returns the bookkeeping for report hash h, if any.
func (s *State) Report(h common.Hash) (ReportRecord, bool) {
	rec, ok := s.reports[h]
	if !ok {
		return ReportRecord{}, false
	}
	return *rec, true
}
