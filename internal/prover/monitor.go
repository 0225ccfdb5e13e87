package prover

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

// MonitorAttested keeps the active enclave's on-chain attestation
// fresh. The enclave's keypair never changes: once less than half the
// validity window remains on its current attestation, this re-signs
// and resubmits a fresh report for the SAME key through relay, and
// polls the contract until it records the renewal. Restructured from
// prover.rs's monitor_attested as one cancellable goroutine instead of
// a blocking poll thread; unlike prover.rs, it never generates a
// replacement keypair, matching this enclave's boot-once lifecycle.
func (p *Prover) MonitorAttested(ctx context.Context, client *verifier.Client, relay *bind.TransactOpts) {
	const pollInterval = 5 * time.Second
	submitCooldown := 180 * time.Second
	var lastSubmit time.Time

	enclaveAddr := common.Address(p.ActiveEnclave().Address())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		validitySecs, err := client.AttestValiditySeconds(&bind.CallOpts{Context: ctx})
		if err != nil {
			log.Error("prover: read attestValiditySeconds failed", "err", err)
			sleepCtx(ctx, time.Second)
			continue
		}
		if validitySecs/2 < uint64(submitCooldown.Seconds()) {
			submitCooldown = time.Duration(validitySecs/2) * time.Second
		}

		attestedAt, err := client.AttestedAt(&bind.CallOpts{Context: ctx}, enclaveAddr)
		if err != nil {
			log.Error("prover: read attestedProvers failed", "err", err)
			sleepCtx(ctx, time.Second)
			continue
		}

		now := uint64(time.Now().Unix())
		needRenewal := attestedAt+validitySecs/2 < now

		if !needRenewal {
			log.Info("prover: enclave is attested", "prover", enclaveAddr)
			sleepFor := time.Duration(validitySecs/2) * time.Second
			if sleepFor > time.Minute {
				sleepFor = time.Minute
			}
			sleepCtx(ctx, sleepFor)
			continue
		}

		if time.Since(lastSubmit) > submitCooldown {
			report, err := p.ActiveEnclave().Report()
			if err != nil {
				log.Error("prover: generate attestation report failed", "err", err)
				sleepCtx(ctx, time.Second)
				continue
			}
			reportBytes, err := EncodeAttestationReport(report)
			if err != nil {
				log.Error("prover: encode attestation report failed", "err", err)
				sleepCtx(ctx, time.Second)
				continue
			}
			if _, err := client.SubmitAttestationReport(relay, enclaveAddr, reportBytes); err != nil {
				log.Error("prover: submit attestation report failed", "err", err)
				sleepCtx(ctx, time.Second)
				continue
			}
			lastSubmit = time.Now()
			log.Info("prover: attestation report submitted", "prover", enclaveAddr)
		} else {
			log.Info("prover: waiting for attestor quorum", "prover", enclaveAddr)
		}
		sleepCtx(ctx, pollInterval)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
