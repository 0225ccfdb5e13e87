package prover

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/scroll-tech/sgx-prover/internal/scrolltypes"
)

// ProverAPI is the receiver rpc.Server dispatches report/prove/mock/
// validate to, registered under the "prover" namespace the same way
// the teacher's das RPC server registers DASRPCServer under "das".
// lint:require-exhaustive-initialization
type ProverAPI struct {
	prover *Prover
	source BlockSource
}

// NewAPI builds the RPC receiver. source may be nil when the process
// is not running in development mode; Mock/Validate then fail with an
// explicit error instead of a nil pointer dereference.
func NewAPI(p *Prover, source BlockSource) *ProverAPI {
	return &ProverAPI{prover: p, source: source}
}

// Report exposes Prover.Report as the report() RPC method.
func (a *ProverAPI) Report(ctx context.Context) (scrolltypes.AttestationReport, error) {
	return a.prover.Report()
}

// Prove exposes Prover.Prove as the prove(batchId, blocks) RPC method.
func (a *ProverAPI) Prove(ctx context.Context, batchID hexutil.Uint64, witness scrolltypes.BatchWitness) (scrolltypes.PoE, error) {
	return a.prover.Prove(uint64(batchID), witness)
}

// Mock exposes Prover.Mock as the development-only mock(from, to) RPC
// method. It is still registered when dev mode is off, matching the
// teacher's pattern of gating behavior rather than API surface, but
// returns an error immediately since no BlockSource was wired in.
func (a *ProverAPI) Mock(ctx context.Context, from, to hexutil.Uint64) (scrolltypes.PoE, error) {
	if !a.prover.DevEnabled() || a.source == nil {
		return scrolltypes.PoE{}, fmt.Errorf("prover: mock is a development-only method")
	}
	return a.prover.Mock(ctx, a.source, uint64(from), uint64(to))
}

// Validate exposes Prover.Validate as the development-only
// validate(from, count) RPC method.
func (a *ProverAPI) Validate(ctx context.Context, from, count hexutil.Uint64) ([]BlockResult, error) {
	if !a.prover.DevEnabled() || a.source == nil {
		return nil, fmt.Errorf("prover: validate is a development-only method")
	}
	return a.prover.Validate(ctx, a.source, uint64(from), uint64(count))
}

// ServerTimeouts mirrors cmd/genericconf's HTTP timeout knobs; kept
// local since this module's genericconf subset doesn't carry that
// type, but the fields and defaults follow the same shape.
type ServerTimeouts struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// DefaultServerTimeouts matches the teacher's own DAS RPC server
// defaults.
var DefaultServerTimeouts = ServerTimeouts{
	ReadTimeout:       30 * time.Second,
	ReadHeaderTimeout: 5 * time.Second,
	WriteTimeout:      60 * time.Second,
	IdleTimeout:       120 * time.Second,
}

// StartServer listens on addr:port and serves report/prove/mock/
// validate over JSON-RPC until ctx is cancelled, following the
// listener/http.Server/graceful-shutdown shape of
// StartDASRPCServerOnListener.
func StartServer(ctx context.Context, addr string, port uint64, timeouts ServerTimeouts, api *ProverAPI) (*http.Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return nil, err
	}
	return StartServerOnListener(ctx, listener, timeouts, api)
}

// StartServerOnListener is StartServer with an already-bound
// listener, split out so tests can bind to an ephemeral port.
func StartServerOnListener(ctx context.Context, listener net.Listener, timeouts ServerTimeouts, api *ProverAPI) (*http.Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("prover", api); err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           rpcServer,
		ReadTimeout:       timeouts.ReadTimeout,
		ReadHeaderTimeout: timeouts.ReadHeaderTimeout,
		WriteTimeout:      timeouts.WriteTimeout,
		IdleTimeout:       timeouts.IdleTimeout,
	}

	go func() {
		if err := srv.Serve(listener); err != nil {
			return
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	return srv, nil
}
