package attestor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/backoff"
	"github.com/scroll-tech/sgx-prover/internal/prover"
	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

var errReceiptNotFound = errors.New("fakeBackend: no receipt for hash")

// fakeBackend is a hand-rolled bind.ContractBackend that records every
// transaction it is asked to send and hands back a receipt whose
// status the test controls, standing in for a live chain the pack has
// no compiled Verifier bytecode to deploy against.
type fakeBackend struct {
	mu       sync.Mutex
	sent     []*types.Transaction
	statuses map[common.Hash]uint64
	nextRcpt uint64
	sourceTx *types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{statuses: make(map[common.Hash]uint64), nextRcpt: types.ReceiptStatusSuccessful}
}

func (f *fakeBackend) queueStatus(status uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRcpt = status
}

func (f *fakeBackend) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{1}, nil
}
func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}
func (f *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{1}, nil
}
func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}
func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error)  { return big.NewInt(1), nil }
func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}
func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.statuses[tx.Hash()] = f.nextRcpt
	return nil
}
func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}
func (f *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}
func (f *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}
func (f *fakeBackend) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sourceTx, false, nil
}
func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[hash]
	if !ok {
		return nil, errReceiptNotFound
	}
	return &types.Receipt{Status: status}, nil
}

func noopSigner(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
	return tx, nil
}

// submitReportCalldata builds the exact calldata a submitAttestationReport
// transaction would carry, the form vote decodes back out of
// TransactionCalldata's result.
func submitReportCalldata(t *testing.T, prover common.Address, reportBytes []byte) []byte {
	t.Helper()
	addrT, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	bytesT, err := abi.NewType("bytes", "", nil)
	require.NoError(t, err)
	args := abi.Arguments{{Type: addrT}, {Type: bytesT}}
	packed, err := args.Pack(prover, reportBytes)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("submitAttestationReport(address,bytes)"))[:4]
	return append(append([]byte{}, selector...), packed...)
}

func TestReserveNonceIsMonotonic(t *testing.T) {
	backend := newFakeBackend()
	client := verifier.NewClient(common.HexToAddress("0x1"), backend)
	relay := &bind.TransactOpts{From: common.HexToAddress("0xaaaa"), Signer: noopSigner}

	a := New(client, attestation.DummyBackend{}, relay, 3, backoff.Config{MaxRetries: 1, Delay: time.Millisecond})

	n1, err := a.reserveNonce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 7, n1)

	n2, err := a.reserveNonce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 8, n2)
}

// TestProcessDropsAfterMaxRequeues drives process directly (bypassing
// Submit's channel loop) against a backend that always reports a
// reverted receipt, and checks the event stops being pushed back onto
// the shared channel once it has been retried maxRequeues times.
func TestProcessDropsAfterMaxRequeues(t *testing.T) {
	backend := newFakeBackend()
	backend.queueStatus(types.ReceiptStatusFailed)
	client := verifier.NewClient(common.HexToAddress("0x1"), backend)
	relay := &bind.TransactOpts{From: common.HexToAddress("0xaaaa"), Signer: noopSigner}

	enclave, err := attestation.Boot(attestation.DummyBackend{})
	require.NoError(t, err)
	report, err := enclave.Report()
	require.NoError(t, err)
	reportBytes, err := prover.EncodeAttestationReport(report)
	require.NoError(t, err)
	backend.sourceTx = types.NewTransaction(0, common.HexToAddress("0x1"), big.NewInt(0), 21000, big.NewInt(1),
		submitReportCalldata(t, common.Address(enclave.Address()), reportBytes))

	const maxRequeues = 2
	a := New(client, attestation.DummyBackend{}, relay, maxRequeues, backoff.Config{MaxRetries: 1, Delay: time.Millisecond})

	ev := queuedEvent{RequestAttestationEvent: verifier.RequestAttestationEvent{Hash: common.HexToHash("0xbeef")}}
	requeued := 0
	for {
		a.process(context.Background(), ev)
		select {
		case ev = <-a.events:
			requeued++
		default:
			require.Equal(t, maxRequeues, requeued)
			require.Equal(t, maxRequeues+1, backend.sentCount())
			return
		}
	}
}

// TestVoteApprovesValidReport exercises the full happy path: a report
// that locally re-verifies against DummyBackend gets an approve vote,
// which the fake backend mines as successful, so process never
// re-queues it.
func TestVoteApprovesValidReport(t *testing.T) {
	backend := newFakeBackend()
	client := verifier.NewClient(common.HexToAddress("0x1"), backend)
	relay := &bind.TransactOpts{From: common.HexToAddress("0xaaaa"), Signer: noopSigner}

	enclave, err := attestation.Boot(attestation.DummyBackend{})
	require.NoError(t, err)
	report, err := enclave.Report()
	require.NoError(t, err)
	reportBytes, err := prover.EncodeAttestationReport(report)
	require.NoError(t, err)
	backend.sourceTx = types.NewTransaction(0, common.HexToAddress("0x1"), big.NewInt(0), 21000, big.NewInt(1),
		submitReportCalldata(t, common.Address(enclave.Address()), reportBytes))

	a := New(client, attestation.DummyBackend{}, relay, 3, backoff.Config{MaxRetries: 1, Delay: time.Millisecond})
	ev := verifier.RequestAttestationEvent{Hash: common.HexToHash("0xf00d")}
	err = a.vote(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, 1, backend.sentCount())
	// voteAttestationReport(bytes32,bool): the last ABI word is approve.
	data := backend.sent[0].Data()
	require.Equal(t, byte(1), data[len(data)-1])
}

func TestDecodeAttestationReportRoundTrips(t *testing.T) {
	enclave, err := attestation.Boot(attestation.DummyBackend{})
	require.NoError(t, err)
	report, err := enclave.Report()
	require.NoError(t, err)

	encoded, err := prover.EncodeAttestationReport(report)
	require.NoError(t, err)
	decoded, err := prover.DecodeAttestationReport(encoded)
	require.NoError(t, err)
	require.Equal(t, report, decoded)
	require.NoError(t, attestation.VerifyReport(attestation.DummyBackend{}, decoded))
}
