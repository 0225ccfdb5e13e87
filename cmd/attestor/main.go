// Command attestor runs C7: it tails RequestAttestation events off a
// deployed Verifier contract, re-verifies each report locally, and
// casts an approve/reject vote. It is an independent process from
// the prover and never touches an enclave key.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	flag "github.com/spf13/pflag"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/attestor"
	"github.com/scroll-tech/sgx-prover/internal/backoff"
	appconfig "github.com/scroll-tech/sgx-prover/internal/config"
	"github.com/scroll-tech/sgx-prover/internal/metrics"
	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

func main() {
	os.Exit(run())
}

func run() int {
	f := flag.NewFlagSet("attestor", flag.ContinueOnError)
	f.StringP("c", "c", "", "path to a JSON config file (shorthand for --conf.file)")
	ConfigAddOptions(f)

	k, err := appconfig.BeginParse(f, os.Args[1:])
	if err != nil {
		appconfig.PrintErrorAndExit(err, printUsage(f))
		return 1
	}
	if shorthand, _ := f.GetString("c"); shorthand != "" {
		if err := appconfig.LoadFile(k, shorthand); err != nil {
			fmt.Println(err)
			return 1
		}
	}

	cfg := DefaultConfig
	if err := appconfig.EndParse(k, &cfg); err != nil {
		appconfig.PrintErrorAndExit(err, printUsage(f))
		return 1
	}

	if err := cfg.Log.Init(""); err != nil {
		fmt.Println("failed to initialize logging:", err)
		return 1
	}

	if cfg.Conf.Dump {
		_ = appconfig.DumpConfig(k, map[string]interface{}{"private-key": ""})
	}

	if err := metrics.Start(cfg.Metrics); err != nil {
		log.Error("failed to start metrics", "err", err)
		return 1
	}

	if cfg.Verifier.Endpoint == "" || cfg.Verifier.Addr == "" {
		fmt.Println("verifier.endpoint and verifier.addr are required")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rpcClient, err := ethclient.DialContext(ctx, cfg.Verifier.Endpoint)
	if err != nil {
		log.Error("failed to dial verifier endpoint", "err", err)
		return 1
	}
	chainID, err := rpcClient.ChainID(ctx)
	if err != nil {
		log.Error("failed to read chain id", "err", err)
		return 1
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		log.Error("invalid private-key", "err", err)
		return 1
	}
	relay, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		log.Error("failed to build transactor", "err", err)
		return 1
	}
	client := verifier.NewClient(common.HexToAddress(cfg.Verifier.Addr), rpcClient)

	backend := verificationBackend(cfg)
	voteRetry := backoff.Config{MaxRetries: cfg.VoteRetryAttempts, Delay: cfg.VoteRetryDelay}
	a := attestor.New(client, backend, relay, cfg.MaxRequeues, voteRetry)

	head, err := rpcClient.BlockNumber(ctx)
	if err != nil {
		log.Error("failed to read chain head", "err", err)
		return 1
	}
	fromBlock := int64(head) - cfg.FromBlockLag
	if fromBlock < 0 {
		fromBlock = 0
	}

	go func() {
		if err := a.Tail(ctx, fromBlock, cfg.PollInterval); err != nil && ctx.Err() == nil {
			log.Error("attestor: tail loop exited", "err", err)
		}
	}()
	go func() {
		if err := a.Submit(ctx); err != nil && ctx.Err() == nil {
			log.Error("attestor: submit loop exited", "err", err)
		}
	}()

	log.Info("attestor: running", "verifier", cfg.Verifier.Addr, "from-block", fromBlock)
	<-ctx.Done()
	log.Info("attestor: shutting down")
	return 0
}

// verificationBackend picks the local re-verification path a vote is
// checked against, matching the same reportBytes format the prover
// side's dummy/DCAP quote used at submission time.
func verificationBackend(cfg Config) attestation.Backend {
	if cfg.DummyAttestationReport || cfg.Insecure {
		return attestation.DummyBackend{}
	}
	return attestation.DCAPBackend{}
}

func printUsage(f *flag.FlagSet) func(string) {
	return func(progname string) {
		fmt.Println("Usage of", progname+":")
		f.PrintDefaults()
	}
}
