package verifier

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	owner     = common.HexToAddress("0x0a")
	attestor  = common.HexToAddress("0x0b")
	attestor2 = common.HexToAddress("0x0c")
	prover    = common.HexToAddress("0x0d")
)

func newTestState() *State {
	return NewState(owner, 1, 3600, 534351)
}

func TestHappyPath(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))

	h := common.HexToHash("0x1")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))
	require.True(t, s.IsAttested(prover, 1000))

	batchHash := common.HexToHash("0xb1")
	require.NoError(t, s.CommitBatch(prover, 1001, 1, batchHash, BatchInfo{NewStateRoot: common.HexToHash("0x0e")}))
	got, ok := s.Batch(batchHash)
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0x0e"), got.NewStateRoot)
}

func TestBadProverChallenge(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))

	h := common.HexToHash("0x2")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))

	require.NoError(t, s.ChallengeReport(attestor, h, false))
	require.False(t, s.IsAttestor(attestor))
	require.False(t, s.IsAttested(prover, 1000))

	err := s.CommitBatch(prover, 1000, 1, common.HexToHash("0xb2"), BatchInfo{})
	require.EqualError(t, err, "prover not attested")
}

func TestExpiredAttestation(t *testing.T) {
	s := NewState(owner, 1, 1, 534351)
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))

	h := common.HexToHash("0x3")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))
	require.True(t, s.IsAttested(prover, 1000))

	// exactly at the boundary: strict '>' means this must NOT count as attested
	require.False(t, s.IsAttested(prover, 1001))
	err := s.CommitBatch(prover, 1002, 1, common.HexToHash("0xb3"), BatchInfo{})
	require.EqualError(t, err, "prover not attested")
}

func TestRootMismatchNeverPersistsIsOutOfScopeHereButBatchIdempotent(t *testing.T) {
	// The RPC-level "no partial PoE" behavior is covered in the
	// prover package; here we only check commitBatch's own atomicity.
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))
	h := common.HexToHash("0x4")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))

	batchHash := common.HexToHash("0xb4")
	require.NoError(t, s.CommitBatch(prover, 1000, 1, batchHash, BatchInfo{NewStateRoot: common.HexToHash("0xaa")}))
	got, _ := s.Batch(batchHash)
	require.Equal(t, common.HexToHash("0xaa"), got.NewStateRoot)
}

func TestResubmitRejection(t *testing.T) {
	s := newTestState()
	h := common.HexToHash("0x5")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	err := s.SubmitAttestationReport(h, prover, 101)
	require.Error(t, err)
}

func TestDoubleCommitRejected(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))
	h := common.HexToHash("0x6")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))

	batchHash := common.HexToHash("0xb6")
	require.NoError(t, s.CommitBatch(prover, 1000, 1, batchHash, BatchInfo{}))
	err := s.CommitBatch(prover, 1000, 1, batchHash, BatchInfo{})
	require.EqualError(t, err, "batch already commit")
}

func TestDoubleVoteRejected(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor}))
	h := common.HexToHash("0x7")
	require.NoError(t, s.SubmitAttestationReport(h, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h, true, 1000))
	err := s.VoteAttestationReport(attestor, h, true, 1000)
	require.Error(t, err)
}

func TestOnlyOwnerMutatesAttestorSet(t *testing.T) {
	s := newTestState()
	err := s.AddAttestors(attestor, []common.Address{attestor2})
	require.Error(t, err)
}

func TestRevokedProverCanReattestWithFreshReport(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.AddAttestors(owner, []common.Address{attestor, attestor2}))

	h1 := common.HexToHash("0x8")
	require.NoError(t, s.SubmitAttestationReport(h1, prover, 100))
	require.NoError(t, s.VoteAttestationReport(attestor, h1, true, 1000))
	require.NoError(t, s.ChallengeReport(attestor, h1, false))
	require.False(t, s.IsAttested(prover, 1000))

	h2 := common.HexToHash("0x9")
	require.NoError(t, s.SubmitAttestationReport(h2, prover, 200))
	require.NoError(t, s.VoteAttestationReport(attestor2, h2, true, 2000))
	require.True(t, s.IsAttested(prover, 2000))
}
