package prover

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/scroll-tech/sgx-prover/internal/scrolltypes"
)

var (
	signingArgs abi.Arguments
	wireArgs    abi.Arguments
	reportArgs  abi.Arguments
)

func init() {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	bytes32T, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}

	signingArgs = abi.Arguments{
		{Type: uint256T}, // chainId
		{Type: bytes32T}, // batchHash
		{Type: bytes32T}, // stateHash
		{Type: bytes32T}, // prevStateRoot
		{Type: bytes32T}, // newStateRoot
		{Type: bytes32T}, // withdrawalRoot
		{Type: bytesT},   // zeros(65) placeholder
	}
	wireArgs = abi.Arguments{
		{Type: bytes32T}, // batchHash
		{Type: bytes32T}, // stateHash
		{Type: bytes32T}, // prevStateRoot
		{Type: bytes32T}, // newStateRoot
		{Type: bytes32T}, // withdrawalRoot
		{Type: bytesT},   // signature65
	}
	reportArgs = abi.Arguments{
		{Type: bytesT}, // quote
		{Type: bytesT}, // pubkey (64 bytes)
		{Type: bytesT}, // signature65
	}
}

// signingDigest computes the msgHash a PoE's signature is over, per
// §6's signing domain: keccak256(abi.encode(chainId, batchHash,
// stateHash, prevStateRoot, newStateRoot, withdrawalRoot,
// zeros(65))).
func signingDigest(chainID uint64, batchHash, stateHash, prevRoot, newRoot, wdRoot common.Hash) (common.Hash, error) {
	packed, err := signingArgs.Pack(
		new(big.Int).SetUint64(chainID),
		batchHash,
		stateHash,
		prevRoot,
		newRoot,
		wdRoot,
		make([]byte, 65),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// EncodePoE returns the wire form commitBatch expects: abi.encode of
// the five commitments plus the trailing signature bytes.
func EncodePoE(poe scrolltypes.PoE) ([]byte, error) {
	return wireArgs.Pack(
		poe.BatchHash,
		poe.StateHash,
		poe.PrevStateRoot,
		poe.NewStateRoot,
		poe.WithdrawalRoot,
		poe.Signature[:],
	)
}

// EncodeAttestationReport returns the reportBytes wire form
// submitAttestationReport expects: abi.encode of the quote, pubkey,
// and signature the enclave produced.
func EncodeAttestationReport(r scrolltypes.AttestationReport) ([]byte, error) {
	return reportArgs.Pack(r.Quote, r.PubKey[:], r.Signature[:])
}

// DecodeAttestationReport reverses EncodeAttestationReport, the form
// the attestor's vote decodes back out of a submission transaction's
// calldata.
func DecodeAttestationReport(data []byte) (scrolltypes.AttestationReport, error) {
	vals, err := reportArgs.UnpackValues(data)
	if err != nil {
		return scrolltypes.AttestationReport{}, err
	}
	quote, _ := vals[0].([]byte)
	pubkeyBytes, _ := vals[1].([]byte)
	sigBytes, _ := vals[2].([]byte)

	var report scrolltypes.AttestationReport
	report.Quote = quote
	copy(report.PubKey[:], pubkeyBytes)
	copy(report.Signature[:], sigBytes)
	return report, nil
}
