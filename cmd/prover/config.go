package main

import (
	"time"

	flag "github.com/spf13/pflag"

	"github.com/scroll-tech/sgx-prover/cmd/genericconf"
	"github.com/scroll-tech/sgx-prover/internal/logutil"
	"github.com/scroll-tech/sgx-prover/internal/metrics"
)

// VerifierConfig binds the process to a deployed Verifier contract
// over a JSON-RPC websocket endpoint, per the enumerated
// verifier.endpoint / verifier.addr keys.
type VerifierConfig struct {
	Endpoint string `koanf:"endpoint"`
	Addr     string `koanf:"addr"`
}

func VerifierConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".endpoint", "", "JSON-RPC websocket URL for the chain hosting the Verifier contract")
	f.String(prefix+".addr", "", "Verifier contract address")
}

// ServerConfig is the prover's own JSON-RPC listener.
type ServerConfig struct {
	Addr      string `koanf:"addr"`
	Port      uint64 `koanf:"port"`
	BodyLimit int64  `koanf:"body-limit"`
	Workers   int    `koanf:"workers"`
}

var DefaultServerConfig = ServerConfig{
	Addr:      "127.0.0.1",
	Port:      8546,
	BodyLimit: 10 << 20,
	Workers:   32,
}

func ServerConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".addr", DefaultServerConfig.Addr, "prover RPC listen address")
	f.Uint64(prefix+".port", DefaultServerConfig.Port, "prover RPC listen port")
	f.Int64(prefix+".body-limit", DefaultServerConfig.BodyLimit, "request body size limit in bytes (parsed but not passed to the RPC server, which sets no body limit)")
	f.Int(prefix+".workers", DefaultServerConfig.Workers, "concurrent RPC call limit (parsed but not passed to the RPC server, which sets no concurrency limit)")
}

// Config is the prover binary's full koanf-tagged configuration tree.
type Config struct {
	Conf     genericconf.ConfConfig `koanf:"conf"`
	Verifier VerifierConfig         `koanf:"verifier"`
	L2       string                 `koanf:"l2"`
	ChainID  uint64                 `koanf:"chain-id"`
	L1BaseFee uint64                `koanf:"l1-base-fee"`

	RelayAccount string `koanf:"relay-account"`

	Server ServerConfig    `koanf:"server"`
	Log    logutil.Config  `koanf:"log"`
	Metrics metrics.Config `koanf:"metrics"`

	Insecure               bool `koanf:"insecure"`
	DummyAttestationReport bool `koanf:"dummy-attestation-report"`
	Dev                    bool `koanf:"dev"`

	AttestPollInterval time.Duration `koanf:"attest-poll-interval"`
}

var DefaultConfig = Config{
	Server:             DefaultServerConfig,
	Log:                logutil.DefaultConfig,
	Metrics:            metrics.DefaultConfig,
	AttestPollInterval: 5 * time.Second,
}

func ConfigAddOptions(f *flag.FlagSet) {
	genericconf.ConfConfigAddOptions("conf", f)
	VerifierConfigAddOptions("verifier", f)
	f.String("l2", "", "L2 execution node JSON-RPC URL")
	f.Uint64("chain-id", 0, "L2 chain id credited into re-executed blocks")
	f.Uint64("l1-base-fee", 0, "L1 base fee (wei) credited during re-execution's data fee accounting")
	f.String("relay-account", "", "hex-encoded private key for the fee-paying relay account (not the enclave key)")
	ServerConfigAddOptions("server", f)
	logutil.AddOptions("log", f)
	metrics.ConfigAddOptions("metrics", f)
	f.Bool("insecure", false, "accept any attestation report without DCAP verification (development only)")
	f.Bool("dummy-attestation-report", false, "self-issue a fixed, clearly-invalid quote instead of calling into DCAP (development only)")
	f.Bool("dev", false, "enable the mock/validate development RPC methods (this binary wires no block source, so they still return an error)")
	f.Duration("attest-poll-interval", DefaultConfig.AttestPollInterval, "polling interval for the attestation refresh loop (parsed but not passed to the loop, which polls on its own fixed schedule)")
}
