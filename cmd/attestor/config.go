package main

import (
	"time"

	flag "github.com/spf13/pflag"

	"github.com/scroll-tech/sgx-prover/cmd/genericconf"
	"github.com/scroll-tech/sgx-prover/internal/logutil"
	"github.com/scroll-tech/sgx-prover/internal/metrics"
)

// VerifierConfig mirrors the prover binary's own copy; kept separate
// since the two processes' Config trees aren't shared, following the
// teacher's own per-binary config convention.
type VerifierConfig struct {
	Endpoint string `koanf:"endpoint"`
	Addr     string `koanf:"addr"`
}

func VerifierConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".endpoint", "", "JSON-RPC websocket URL for the chain hosting the Verifier contract")
	f.String(prefix+".addr", "", "Verifier contract address")
}

// Config is the attestor binary's full koanf-tagged configuration
// tree. private_key is the attestor account's own key: it both casts
// votes and pays their gas, unlike the prover's separate
// relay-account/enclave-key split.
type Config struct {
	Conf     genericconf.ConfConfig `koanf:"conf"`
	Verifier VerifierConfig         `koanf:"verifier"`

	PrivateKey string `koanf:"private-key"`

	FromBlockLag int64         `koanf:"from-block-lag"`
	PollInterval time.Duration `koanf:"poll-interval"`
	MaxRequeues  int           `koanf:"max-requeues"`

	VoteRetryAttempts int           `koanf:"vote-retry-attempts"`
	VoteRetryDelay    time.Duration `koanf:"vote-retry-delay"`

	Log     logutil.Config `koanf:"log"`
	Metrics metrics.Config `koanf:"metrics"`

	Insecure               bool `koanf:"insecure"`
	DummyAttestationReport bool `koanf:"dummy-attestation-report"`
}

var DefaultConfig = Config{
	FromBlockLag:      64,
	PollInterval:      5 * time.Second,
	MaxRequeues:       3,
	VoteRetryAttempts: 5,
	VoteRetryDelay:    2 * time.Second,
	Log:               logutil.DefaultConfig,
	Metrics:           metrics.DefaultConfig,
}

func ConfigAddOptions(f *flag.FlagSet) {
	genericconf.ConfConfigAddOptions("conf", f)
	VerifierConfigAddOptions("verifier", f)
	f.String("private-key", "", "hex-encoded private key for this attestor's own on-chain account")
	f.Int64("from-block-lag", DefaultConfig.FromBlockLag, "blocks behind head to resume tailing from on startup (the crash-safe restart point K)")
	f.Duration("poll-interval", DefaultConfig.PollInterval, "polling interval for new RequestAttestation events")
	f.Int("max-requeues", DefaultConfig.MaxRequeues, "maximum times a reverted vote is re-queued before being dropped (M)")
	f.Int("vote-retry-attempts", DefaultConfig.VoteRetryAttempts, "maximum send attempts for a single vote transaction before giving up")
	f.Duration("vote-retry-delay", DefaultConfig.VoteRetryDelay, "delay between send retries for a single vote transaction")
	logutil.AddOptions("log", f)
	metrics.ConfigAddOptions("metrics", f)
	f.Bool("insecure", false, "accept any attestation report without local DCAP verification (development only)")
	f.Bool("dummy-attestation-report", false, "verify against the fixed dummy quote format instead of DCAP (development only)")
}
