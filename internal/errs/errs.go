// Package errs defines the error taxonomy shared by the prover and
// attestor services, so RPC handlers and log lines can key off a
// stable, small set of kinds instead of ad-hoc string matching.
package errs

import "fmt"

// Kind is one of the error categories a caller can react to.
type Kind string

const (
	Config              Kind = "Config"
	Network             Kind = "Network"
	L2Inconsistent       Kind = "L2Inconsistent"
	WitnessIncomplete    Kind = "WitnessIncomplete"
	BadProof             Kind = "BadProof"
	RootMismatch         Kind = "RootMismatch"
	StateHashMismatch    Kind = "StateHashMismatch"
	EvmInternal          Kind = "EvmInternal"
	AttestationGenerate  Kind = "AttestationGenerate"
	AttestationVerify    Kind = "AttestationVerify"
	Signature            Kind = "Signature"
	ContractRevert       Kind = "ContractRevert"
	Internal             Kind = "Internal"
)

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorData satisfies go-ethereum rpc's DataError, so a JSON-RPC
// handler returning an *Error carries its Kind in the error's data.
func (e *Error) ErrorData() interface{} { return string(e.Kind) }

// New builds an *Error for op/kind, optionally wrapping cause.
func New(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
