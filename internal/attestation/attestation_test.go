package attestation

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestDummyBackendRoundTrip(t *testing.T) {
	var reportData [64]byte
	copy(reportData[:], []byte("some-pubkey-bytes"))

	backend := DummyBackend{}
	quote, err := backend.Quote(reportData)
	require.NoError(t, err)

	got, err := backend.Verify(quote)
	require.NoError(t, err)
	require.Equal(t, reportData, got)
}

func TestDummyBackendRejectsTruncatedQuote(t *testing.T) {
	_, err := DummyBackend{}.Verify([]byte("too short"))
	require.Error(t, err)
}

func TestBootProducesConsistentPubKeyAndQuote(t *testing.T) {
	e, err := Boot(DummyBackend{})
	require.NoError(t, err)

	got, err := DummyBackend{}.Verify(e.Quote())
	require.NoError(t, err)
	require.Equal(t, e.PubKey(), got)
}

func TestReportSignatureRecoversToEnclaveAddress(t *testing.T) {
	e, err := Boot(DummyBackend{})
	require.NoError(t, err)

	report, err := e.Report()
	require.NoError(t, err)

	digest := crypto.Keccak256(reportDomain, report.PubKey[:])
	rawSig := append(append([]byte{}, report.Signature[:64]...), report.Signature[64]-27)
	pub, err := crypto.SigToPub(digest, rawSig)
	require.NoError(t, err)
	require.Equal(t, e.Address(), [20]byte(crypto.PubkeyToAddress(*pub)))
}

func TestDCAPBackendRequiresConfiguredHooks(t *testing.T) {
	_, err := DCAPBackend{}.Quote([64]byte{})
	require.Error(t, err)

	_, err = DCAPBackend{}.Verify([]byte("quote"))
	require.Error(t, err)
}
