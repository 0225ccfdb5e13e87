package attestor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Tail is the log-tailing producer task. It resumes from fromBlock
// (head - K, the crash-safe restart point a caller computes before
// starting the loop) and re-polls forward, pushing every
// RequestAttestation event it observes onto the shared events
// channel for Submit to drain in order. It returns only when ctx is
// cancelled.
func (a *Attestor) Tail(ctx context.Context, fromBlock int64, pollInterval time.Duration) error {
	cursor := fromBlock
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, err := a.client.WatchRequestAttestation(ctx, cursor)
		if err != nil {
			log.Error("attestor: watch RequestAttestation failed", "err", err)
		} else {
			for _, ev := range events {
				select {
				case a.events <- queuedEvent{RequestAttestationEvent: ev}:
				case <-ctx.Done():
					return ctx.Err()
				}
				if next := int64(ev.BlockNumber) + 1; next > cursor {
					cursor = next
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
