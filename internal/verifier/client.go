package verifier

import (
	"context"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
)

var parsedABI abi.ABI

func init() {
	a, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		panic(err)
	}
	parsedABI = a
}

// Client is the real on-chain binding for the Verifier contract, used
// by the attestor's submitter loop and by the off-chain relay that
// carries a prover's PoE into commitBatch. It wraps bind.BoundContract
// directly rather than a generated package, per abi.go's note.
type Client struct {
	address  common.Address
	backend  bind.ContractBackend
	contract *bind.BoundContract
}

// NewClient binds Client to address over backend (typically an
// *ethclient.Client dialed against verifier.endpoint).
func NewClient(address common.Address, backend bind.ContractBackend) *Client {
	return &Client{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, parsedABI, backend, backend, backend),
	}
}

// SubmitAttestationReport calls submitAttestationReport(prover, reportBytes).
func (c *Client) SubmitAttestationReport(opts *bind.TransactOpts, prover common.Address, reportBytes []byte) (*types.Transaction, error) {
	tx, err := c.contract.Transact(opts, "submitAttestationReport", prover, reportBytes)
	if err != nil {
		return nil, errs.New("verifier.SubmitAttestationReport", errs.ContractRevert, err)
	}
	return tx, nil
}

// VoteAttestationReport calls voteAttestationReport(h, approve).
func (c *Client) VoteAttestationReport(opts *bind.TransactOpts, h common.Hash, approve bool) (*types.Transaction, error) {
	tx, err := c.contract.Transact(opts, "voteAttestationReport", h, approve)
	if err != nil {
		return nil, errs.New("verifier.VoteAttestationReport", errs.ContractRevert, err)
	}
	return tx, nil
}

// ChallengeReport calls challengeReport(attestor, reportBytes).
func (c *Client) ChallengeReport(opts *bind.TransactOpts, attestor common.Address, reportBytes []byte) (*types.Transaction, error) {
	tx, err := c.contract.Transact(opts, "challengeReport", attestor, reportBytes)
	if err != nil {
		return nil, errs.New("verifier.ChallengeReport", errs.ContractRevert, err)
	}
	return tx, nil
}

// CommitBatch calls commitBatch(batchId, poe).
func (c *Client) CommitBatch(opts *bind.TransactOpts, batchID uint64, poe []byte) (*types.Transaction, error) {
	tx, err := c.contract.Transact(opts, "commitBatch", new(big.Int).SetUint64(batchID), poe)
	if err != nil {
		return nil, errs.New("verifier.CommitBatch", errs.ContractRevert, err)
	}
	return tx, nil
}

// AttestedAt reads the raw attestedProvers(prover) timestamp: 0 if
// prover has never been attested, revokedAt (1) if it has been
// revoked, otherwise the unix time quorum was reached.
func (c *Client) AttestedAt(callOpts *bind.CallOpts, prover common.Address) (uint64, error) {
	var out []interface{}
	if err := c.contract.Call(callOpts, &out, "attestedProvers", prover); err != nil {
		return 0, errs.New("verifier.AttestedAt", errs.Network, err)
	}
	t, ok := out[0].(*big.Int)
	if !ok {
		return 0, errs.New("verifier.AttestedAt", errs.Network, errors.New("unexpected return type for attestedProvers"))
	}
	return t.Uint64(), nil
}

// IsAttested reads attestedProvers(prover) and reports whether the
// timestamp it returns still satisfies the validity window.
func (c *Client) IsAttested(callOpts *bind.CallOpts, prover common.Address, attestValiditySeconds, now uint64) (bool, error) {
	t, err := c.AttestedAt(callOpts, prover)
	if err != nil {
		return false, err
	}
	if t == 0 || t == revokedAt {
		return false, nil
	}
	return t+attestValiditySeconds > now, nil
}

// AttestValiditySeconds reads the contract's current attestation
// validity window, the value MonitorAttested uses to decide when a
// prover's attestation is due for renewal.
func (c *Client) AttestValiditySeconds(callOpts *bind.CallOpts) (uint64, error) {
	var out []interface{}
	if err := c.contract.Call(callOpts, &out, "attestValiditySeconds"); err != nil {
		return 0, errs.New("verifier.AttestValiditySeconds", errs.Network, err)
	}
	t, ok := out[0].(*big.Int)
	if !ok {
		return 0, errs.New("verifier.AttestValiditySeconds", errs.Network, errors.New("unexpected return type for attestValiditySeconds"))
	}
	return t.Uint64(), nil
}

// RequestAttestationEvent is the decoded form of a RequestAttestation
// log, the event the attestor's log-tailing task subscribes to.
type RequestAttestationEvent struct {
	Hash        common.Hash
	TxHash      common.Hash
	BlockNumber uint64
}

// WatchRequestAttestation returns every RequestAttestation event
// emitted in [fromBlock, latest], the crash-safe restart point the
// attestor's log tailer resumes from (head-K, per §4.7).
func (c *Client) WatchRequestAttestation(ctx context.Context, fromBlock int64) ([]RequestAttestationEvent, error) {
	eventID := parsedABI.Events["RequestAttestation"].ID
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{eventID}},
	}
	logs, err := c.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, errs.New("verifier.WatchRequestAttestation", errs.Network, err)
	}

	events := make([]RequestAttestationEvent, 0, len(logs))
	for _, l := range logs {
		unpacked, err := parsedABI.Events["RequestAttestation"].Inputs.Unpack(l.Data)
		if err != nil {
			return nil, errs.New("verifier.WatchRequestAttestation", errs.Network, err)
		}
		h, _ := unpacked[0].(common.Hash)
		events = append(events, RequestAttestationEvent{
			Hash:        h,
			TxHash:      l.TxHash,
			BlockNumber: l.BlockNumber,
		})
	}
	return events, nil
}

// PendingNonce reads addr's next usable nonce, the seed value the
// attestor's monotonic nonce counter initializes itself from before
// its first send.
func (c *Client) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	noncer, ok := c.backend.(interface {
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	})
	if !ok {
		return 0, errs.New("verifier.PendingNonce", errs.Internal, errors.New("backend does not support PendingNonceAt"))
	}
	nonce, err := noncer.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, errs.New("verifier.PendingNonce", errs.Network, err)
	}
	return nonce, nil
}

// WaitReceipt polls for txHash's receipt, doubling delay after each
// miss up to maxDelay, giving up after maxPolls attempts. It is the
// attestor's own receipt-poll loop (§4.7's "N receipt-polls with
// exponential back-off") rather than bind.WaitMined, since Client's
// backend is typed as the narrower bind.ContractBackend rather than
// bind.DeployBackend.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, maxPolls int, baseDelay, maxDelay time.Duration) (*types.Receipt, error) {
	receipter, ok := c.backend.(interface {
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	})
	if !ok {
		return nil, errs.New("verifier.WaitReceipt", errs.Internal, errors.New("backend does not support TransactionReceipt"))
	}

	delay := baseDelay
	for attempt := 0; attempt < maxPolls; attempt++ {
		receipt, err := receipter.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if attempt == maxPolls-1 {
			return nil, errs.New("verifier.WaitReceipt", errs.Network, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return nil, errs.New("verifier.WaitReceipt", errs.Network, errors.New("exhausted receipt polls"))
}

// DecodeSubmitAttestationReport unpacks a submitAttestationReport
// call's calldata (selector-prefixed) back into its prover address and
// reportBytes arguments; the attestor's vote feeds TransactionCalldata's
// result into it.
func DecodeSubmitAttestationReport(calldata []byte) (common.Address, []byte, error) {
	method := parsedABI.Methods["submitAttestationReport"]
	if len(calldata) < 4 {
		return common.Address{}, nil, errs.New("verifier.DecodeSubmitAttestationReport", errs.WitnessIncomplete, errors.New("calldata too short"))
	}
	vals, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return common.Address{}, nil, errs.New("verifier.DecodeSubmitAttestationReport", errs.WitnessIncomplete, err)
	}
	prover, _ := vals[0].(common.Address)
	reportBytes, _ := vals[1].([]byte)
	return prover, reportBytes, nil
}

// TransactionCalldata fetches the calldata of the transaction that
// emitted a RequestAttestation event, the source the attestor decodes
// reportBytes from (per §4.7: "fetch the original reportBytes from
// the transaction calldata").
func (c *Client) TransactionCalldata(ctx context.Context, txHash common.Hash) ([]byte, error) {
	tx, isPending, err := c.backend.(interface {
		TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	}).TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, errs.New("verifier.TransactionCalldata", errs.Network, err)
	}
	_ = isPending
	return tx.Data(), nil
}
