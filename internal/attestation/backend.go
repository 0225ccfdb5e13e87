// Package attestation binds a TEE-resident secp256k1 keypair to a
// remote-attestation quote once per enclave process. It never rotates
// the key and never persists it outside the process.
package attestation

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
)

// Backend is the platform-specific half of attestation: producing a
// quote that commits to reportData, and (on the attestor side)
// verifying one. Production uses DCAPBackend; development runs use
// DummyBackend.
type Backend interface {
	// Quote produces an attestation quote whose report_data field
	// equals reportData (the enclave's 64-byte uncompressed pubkey).
	Quote(reportData [64]byte) ([]byte, error)
	// Verify checks a quote's signature chain and report_data, and
	// returns the pubkey it commits to.
	Verify(quote []byte) (reportData [64]byte, err error)
}

// DummyBackend replaces the DCAP call with a fixed, clearly-invalid
// quote, for the explicit --dummy-attestation-report (or --insecure)
// development flag. It is only usable against a Verifier deployed with its own
// DCAP implementation in permissive mode.
type DummyBackend struct{}

var dummyQuoteMagic = []byte("dummy-attestation-report-v1")

func (DummyBackend) Quote(reportData [64]byte) ([]byte, error) {
	out := make([]byte, 0, len(dummyQuoteMagic)+64)
	out = append(out, dummyQuoteMagic...)
	out = append(out, reportData[:]...)
	return out, nil
}

func (DummyBackend) Verify(quote []byte) ([64]byte, error) {
	var reportData [64]byte
	if len(quote) != len(dummyQuoteMagic)+64 {
		return reportData, errs.New("attestation.DummyBackend.Verify", errs.AttestationVerify,
			errors.New("malformed dummy quote"))
	}
	copy(reportData[:], quote[len(dummyQuoteMagic):])
	return reportData, nil
}

// PubKeyToReportData packs an uncompressed secp256k1 public key's X
// and Y coordinates into the 64-byte report_data DCAP commits to.
func PubKeyToReportData(pub *ecdsa.PublicKey) [64]byte {
	var out [64]byte
	x := pub.X.Bytes()
	y := pub.Y.Bytes()
	copy(out[32-len(x):32], x)
	copy(out[64-len(y):64], y)
	return out
}

// Enclave holds the process-scoped keypair and cached quote: the
// state a booting prover or attestor process creates exactly once
// and threads through by explicit dependency injection, never a
// package-level global.
type Enclave struct {
	key     *ecdsa.PrivateKey
	quote   []byte
	pubKey  [64]byte
	backend Backend
}

// Boot generates a fresh keypair via the platform RNG, requests a
// quote committing to it from backend, and caches both for the
// lifetime of the returned Enclave.
func Boot(backend Backend) (*Enclave, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errs.New("attestation.Boot", errs.AttestationGenerate, err)
	}
	reportData := PubKeyToReportData(&key.PublicKey)
	quote, err := backend.Quote(reportData)
	if err != nil {
		return nil, errs.New("attestation.Boot", errs.AttestationGenerate, err)
	}
	return &Enclave{key: key, quote: quote, pubKey: reportData, backend: backend}, nil
}

// PubKey returns the enclave's 64-byte uncompressed public key.
func (e *Enclave) PubKey() [64]byte { return e.pubKey }

// Address is the Ethereum address derived from PubKey, the last 20
// bytes of keccak256(pubkey).
func (e *Enclave) Address() [20]byte {
	return crypto.PubkeyToAddress(e.key.PublicKey)
}

// Quote returns the cached attestation quote generated at Boot.
func (e *Enclave) Quote() []byte { return e.quote }

// Sign signs digest (already hashed by the caller) with the enclave
// key, returning the concatenated (r,s,v) 65-byte signature with
// v in {27,28} matching Ethereum's convention.
func (e *Enclave) Sign(digest [32]byte) ([65]byte, error) {
	var out [65]byte
	sig, err := crypto.Sign(digest[:], e.key)
	if err != nil {
		return out, errs.New("attestation.Sign", errs.Signature, err)
	}
	copy(out[:], sig)
	out[64] += 27
	return out, nil
}
