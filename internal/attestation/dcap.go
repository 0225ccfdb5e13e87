package attestation

import (
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
)

// DCAPBackend delegates quote generation and verification to the
// platform's DCAP library. That library's quote-parsing and
// signature-chain primitives are outside this module's scope — they
// live in the SGX/DCAP SDK the process links against — so DCAPBackend
// only adapts its two entry points to the Backend interface.
type DCAPBackend struct {
	// GenerateQuote requests a quote from the platform's quoting
	// enclave binding report_data into it.
	GenerateQuote func(reportData [64]byte) ([]byte, error)
	// VerifyQuote checks MRENCLAVE against the whitelisted identity,
	// the TCB level, and the signature chain to Intel's root, and
	// returns the report_data the quote commits to.
	VerifyQuote func(quote []byte) ([64]byte, error)
}

func (b DCAPBackend) Quote(reportData [64]byte) ([]byte, error) {
	if b.GenerateQuote == nil {
		return nil, errs.New("attestation.DCAPBackend.Quote", errs.AttestationGenerate,
			errors.New("no DCAP quoting enclave binding configured"))
	}
	quote, err := b.GenerateQuote(reportData)
	if err != nil {
		return nil, errs.New("attestation.DCAPBackend.Quote", errs.AttestationGenerate, err)
	}
	return quote, nil
}

func (b DCAPBackend) Verify(quote []byte) ([64]byte, error) {
	var reportData [64]byte
	if b.VerifyQuote == nil {
		return reportData, errs.New("attestation.DCAPBackend.Verify", errs.AttestationVerify,
			errors.New("no DCAP verification binding configured"))
	}
	reportData, err := b.VerifyQuote(quote)
	if err != nil {
		return reportData, errs.New("attestation.DCAPBackend.Verify", errs.AttestationVerify, err)
	}
	return reportData, nil
}
