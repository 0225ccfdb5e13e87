// Package backoff provides the fixed-delay retry loop the attestor
// uses around its vote submissions,
// modeled on the espresso TEE integration's ContractVerification
// helper.
package backoff

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Config controls a Retry loop's attempt count and delay between
// attempts.
type Config struct {
	MaxRetries int           `koanf:"max-retries"`
	Delay      time.Duration `koanf:"delay"`
}

// DefaultConfig matches the cadence espressotee.ContractVerification
// uses for its own on-chain polling.
var DefaultConfig = Config{
	MaxRetries: 5,
	Delay:      5 * time.Second,
}

// Fn is one retryable attempt. A nil error with ok=false means "try
// again"; a non-nil error is logged and also triggers a retry, up to
// MaxRetries.
type Fn func(ctx context.Context) (ok bool, err error)

// Retry calls fn up to cfg.MaxRetries times, sleeping cfg.Delay
// between attempts, stopping early on success or context
// cancellation. msg labels the retry's log lines.
func Retry(ctx context.Context, cfg Config, msg string, fn Fn) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		ok, err := fn(ctx)
		if err != nil {
			lastErr = err
			log.Error(msg, "attempt", attempt, "err", err)
		} else if ok {
			return true, nil
		}

		if attempt == cfg.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}
	return false, lastErr
}
