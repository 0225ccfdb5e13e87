// Package attestor implements C7: an independent watchdog process
// that tails RequestAttestation events off the Verifier contract,
// re-runs DCAP verification locally against the reportBytes each
// event's submission transaction carried, and casts an approve/reject
// vote on-chain. It never touches an enclave's signing key or a
// prover's state db — its only shared mutable resource is the relay
// account's nonce counter.
package attestor

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/backoff"
	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

// errReverted marks a vote transaction that was mined but reverted,
// the trigger for process's requeue-up-to-M-times logic.
var errReverted = errors.New("attestor: vote transaction reverted")

// queuedEvent tracks an event alongside how many times it has already
// been re-queued after a failed vote attempt.
type queuedEvent struct {
	verifier.RequestAttestationEvent
	attempts int
}

// Attestor is multi-producer/single-consumer per its concurrency
// model: Tail is the sole producer, Submit the sole consumer, and
// events flows between them in submission order. The relay account's
// nonce is the only state either side shares, guarded by nonceMu.
type Attestor struct {
	client  *verifier.Client
	backend attestation.Backend
	relay   *bind.TransactOpts

	maxRequeues int
	voteRetry   backoff.Config

	nonceMu   sync.Mutex
	nonce     uint64
	nonceInit bool
	events    chan queuedEvent
}

// reserveNonce hands out the relay account's next nonce, seeding the
// counter from the chain's pending nonce on first use. Every call
// happens under nonceMu: it is the one piece of cross-request mutable
// state the attestor core carries.
func (a *Attestor) reserveNonce(ctx context.Context) (uint64, error) {
	a.nonceMu.Lock()
	defer a.nonceMu.Unlock()

	if !a.nonceInit {
		seed, err := a.client.PendingNonce(ctx, a.relay.From)
		if err != nil {
			return 0, err
		}
		a.nonce = seed
		a.nonceInit = true
	}
	n := a.nonce
	a.nonce++
	return n, nil
}

// New builds an Attestor. maxRequeues bounds how many times a
// reverted vote is retried before being dropped (§4.7's M); voteRetry
// bounds the fixed-delay retries of each vote transaction's send. The
// receipt of a sent vote is polled on submitter.go's own fixed
// schedule, not through voteRetry.
func New(client *verifier.Client, backend attestation.Backend, relay *bind.TransactOpts, maxRequeues int, voteRetry backoff.Config) *Attestor {
	return &Attestor{
		client:      client,
		backend:     backend,
		relay:       relay,
		maxRequeues: maxRequeues,
		voteRetry:   voteRetry,
		events:      make(chan queuedEvent, 256),
	}
}
