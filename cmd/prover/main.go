// Command prover runs C2-C5: it boots an enclave keypair, serves the
// report/prove(/mock/validate in --dev) JSON-RPC methods, and keeps
// the enclave's on-chain attestation fresh against a deployed
// Verifier contract.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	flag "github.com/spf13/pflag"

	appconfig "github.com/scroll-tech/sgx-prover/internal/config"

	"github.com/scroll-tech/sgx-prover/internal/attestation"
	"github.com/scroll-tech/sgx-prover/internal/metrics"
	"github.com/scroll-tech/sgx-prover/internal/prover"
	"github.com/scroll-tech/sgx-prover/internal/verifier"
)

func main() {
	os.Exit(run())
}

func run() int {
	f := flag.NewFlagSet("prover", flag.ContinueOnError)
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
		_ = appconfig.DumpConfig(k, map[string]interface{}{"relay-account": ""})
	}

	if err := metrics.Start(cfg.Metrics); err != nil {
		log.Error("failed to start metrics", "err", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend := attestationBackend(cfg)
	enclave, err := attestation.Boot(backend)
	if err != nil {
		log.Error("failed to boot enclave", "err", err)
		return 1
	}

	l1BaseFee, overflow := uint256.FromBig(new(big.Int).SetUint64(cfg.L1BaseFee))
	if overflow {
		log.Error("l1-base-fee overflows a uint256")
		return 1
	}
	p := prover.New(enclave, cfg.ChainID, l1BaseFee, cfg.Dev)

	api := prover.NewAPI(p, nil)
	if _, err := prover.StartServer(ctx, cfg.Server.Addr, cfg.Server.Port, prover.DefaultServerTimeouts, api); err != nil {
		log.Error("failed to start RPC server", "err", err)
		return 1
	}
	log.Info("prover: RPC server listening", "addr", cfg.Server.Addr, "port", cfg.Server.Port)

	if cfg.Verifier.Endpoint != "" {
		client, relay, err := dialVerifier(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to verifier", "err", err)
			return 1
		}
		go p.MonitorAttested(ctx, client, relay)
	} else {
		log.Warn("prover: verifier.endpoint not set, on-chain attestation refresh disabled")
	}

	<-ctx.Done()
	log.Info("prover: shutting down")
	return 0
}

// attestationBackend selects the quote-generation backend. Dummy
// quotes are self-issued whenever --dummy-attestation-report or
// --insecure is set (a Verifier deployed in permissive mode accepts
// either); otherwise DCAPBackend is used unconfigured, since this
// module carries no cgo binding to a platform quoting enclave.
func attestationBackend(cfg Config) attestation.Backend {
	if cfg.DummyAttestationReport || cfg.Insecure {
		return attestation.DummyBackend{}
	}
	return attestation.DCAPBackend{}
}

func dialVerifier(ctx context.Context, cfg Config) (*verifier.Client, *bind.TransactOpts, error) {
	rpcClient, err := ethclient.DialContext(ctx, cfg.Verifier.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	chainID, err := rpcClient.ChainID(ctx)
	if err != nil {
		return nil, nil, err
	}
	key, err := crypto.HexToECDSA(cfg.RelayAccount)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid relay-account key: %w", err)
	}
	relay, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, nil, err
	}
	client := verifier.NewClient(common.HexToAddress(cfg.Verifier.Addr), rpcClient)
	return client, relay, nil
}

func printUsage(f *flag.FlagSet) func(string) {
	return func(progname string) {
		fmt.Println("Usage of", progname+":")
		f.PrintDefaults()
	}
}
