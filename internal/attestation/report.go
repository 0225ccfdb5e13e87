package attestation

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
	"github.com/scroll-tech/sgx-prover/internal/scrolltypes"
)

var reportDomain = []byte("automata-prover-v1")

// Report builds the enclave's one-time signed attestation report: the
// cached quote, the pubkey it commits to, and a signature over
// keccak256(domain ‖ pubkey) proving this process holds the key the
// quote was generated for.
func (e *Enclave) Report() (scrolltypes.AttestationReport, error) {
	pub := e.PubKey()
	digest := crypto.Keccak256Hash(reportDomain, pub[:])
	sig, err := e.Sign([32]byte(digest))
	if err != nil {
		return scrolltypes.AttestationReport{}, err
	}
	return scrolltypes.AttestationReport{
		Quote:     e.Quote(),
		PubKey:    pub,
		Signature: sig,
	}, nil
}

// VerifyReport reruns the exact check Report's counterpart on-chain
// view performs: the quote's report_data must commit to the claimed
// pubkey, and the signature must recover to that same pubkey. The
// attestor's submitter loop calls this locally before voting approve.
func VerifyReport(backend Backend, r scrolltypes.AttestationReport) error {
	reportData, err := backend.Verify(r.Quote)
	if err != nil {
		return err
	}
	if reportData != r.PubKey {
		return errs.New("attestation.VerifyReport", errs.AttestationVerify,
			errors.New("quote report_data does not match reported pubkey"))
	}

	digest := crypto.Keccak256Hash(reportDomain, r.PubKey[:])
	rawSig := append(append([]byte{}, r.Signature[:64]...), r.Signature[64]-27)
	pub, err := crypto.SigToPub(digest[:], rawSig)
	if err != nil {
		return errs.New("attestation.VerifyReport", errs.AttestationVerify, err)
	}
	if PubKeyToReportData(pub) != r.PubKey {
		return errs.New("attestation.VerifyReport", errs.AttestationVerify,
			errors.New("signature does not recover to reported pubkey"))
	}
	return nil
}
