package attestor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/backoff"
	"github.com/scroll-tech/sgx-prover/internal/prover"
	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

const (
	receiptPolls    = 10
	receiptBaseWait = 2 * time.Second
	receiptMaxWait  = 30 * time.Second
)

// Submit is the single-consumer submitter task: it drains events in
// order, one at a time, and casts a vote for each. A submission whose
// transaction reverts is re-queued at most maxRequeues times before
// being dropped with a structured log record; duplicate events cost
// nothing extra since the contract itself rejects a second vote from
// the same attestor. It returns only when ctx is cancelled.
func (a *Attestor) Submit(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-a.events:
			a.process(ctx, ev)
		}
	}
}

func (a *Attestor) process(ctx context.Context, ev queuedEvent) {
	err := a.vote(ctx, ev.RequestAttestationEvent)
	if err == nil {
		log.Info("attestor: voted", "hash", ev.Hash)
		return
	}

	ev.attempts++
	if ev.attempts > a.maxRequeues {
		log.Error("attestor: dropping event after exhausting requeues",
			"hash", ev.Hash, "tx", ev.TxHash, "attempts", ev.attempts, "err", err)
		return
	}
	log.Warn("attestor: requeueing event after failed vote",
		"hash", ev.Hash, "attempts", ev.attempts, "err", err)
	select {
	case a.events <- ev:
	case <-ctx.Done():
	}
}

// vote fetches the report the RequestAttestation event's transaction
// carried, verifies it locally the same way the on-chain view does,
// and submits a matching approve/reject vote using a nonce reserved
// from the shared counter.
func (a *Attestor) vote(ctx context.Context, ev verifier.RequestAttestationEvent) error {
	calldata, err := a.client.TransactionCalldata(ctx, ev.TxHash)
	if err != nil {
		return err
	}
	_, reportBytes, err := verifier.DecodeSubmitAttestationReport(calldata)
	if err != nil {
		return err
	}
	report, err := prover.DecodeAttestationReport(reportBytes)
	if err != nil {
		return err
	}

	approve := attestation.VerifyReport(a.backend, report) == nil

	nonce, err := a.reserveNonce(ctx)
	if err != nil {
		return err
	}
	opts := *a.relay
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)

	// The send itself gets its own short retry budget for transient
	// RPC failures; reusing the same reserved nonce across attempts is
	// safe since only one of them can ever be included.
	var txHash common.Hash
	sendOK, sendErr := backoff.Retry(ctx, a.voteRetry, "attestor: send vote", func(ctx context.Context) (bool, error) {
		tx, err := a.client.VoteAttestationReport(&opts, ev.Hash, approve)
		if err != nil {
			return false, err
		}
		txHash = tx.Hash()
		return true, nil
	})
	if !sendOK {
		return sendErr
	}

	receipt, err := a.client.WaitReceipt(ctx, txHash, receiptPolls, receiptBaseWait, receiptMaxWait)
	if err != nil {
		return err
	}
	if receipt.Status == 0 {
		return errReverted
	}
	return nil
}
