// Package evmexec drives a third-party EVM interpreter transaction by
// transaction against a proof-backed statedb.StateDB, matching the
// Scroll-family chain rules: no block reward, priority fee to the
// block's coinbase, and the L1 data fee routed to a fixed vault
// address instead of being burned.
package evmexec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/scroll-tech/sgx-prover/internal/errs"
	"github.com/scroll-tech/sgx-prover/internal/statedb"
)

// L1FeeVault is the fixed predeploy address Scroll-family chains
// route the L1 data-availability fee component to, rather than
// burning it the way EIP-1559's base fee is burned on L1.
var L1FeeVault = common.HexToAddress("0x5300000000000000000000000000000000000002")

// ChainConfig returns the params.ChainConfig this driver executes
// against: every block-numbered fork through Gray Glacier (London
// included) active from genesis, since a rollup re-execution has no
// historical forks to straddle. Shanghai and Cancun are not scheduled.
func ChainConfig(chainID *big.Int) *params.ChainConfig {
	cfg := *params.AllEthashProtocolChanges
	cfg.ChainID = chainID
	cfg.Ethash = nil
	cfg.TerminalTotalDifficulty = big.NewInt(0)
	return &cfg
}

// Driver re-executes blocks against a single proof-backed StateDB for
// the duration of one prove() call.
type Driver struct {
	chainConfig *params.ChainConfig
	getHash     func(uint64) common.Hash
	l1BaseFee   *uint256.Int
}

// New builds a Driver. getHash resolves BLOCKHASH lookups against the
// batch's already-verified block hash list; l1BaseFee is the L1 gas
// price the batch's witness reports, used to size the L1 fee credited
// to L1FeeVault.
func New(chainID *big.Int, getHash func(uint64) common.Hash, l1BaseFee *uint256.Int) *Driver {
	return &Driver{
		chainConfig: ChainConfig(chainID),
		getHash:     getHash,
		l1BaseFee:   l1BaseFee,
	}
}

// ExecuteBlock re-executes every transaction in txs against db in
// order and applies the end-of-block coinbase/vault credits. It
// returns the receipts produced, mirroring go-ethereum's own
// transaction-processing loop (see create-block.go in the reference
// tree) but against our own StateDB instead of core/state.StateDB.
func (d *Driver) ExecuteBlock(db *statedb.StateDB, header *types.Header, txs types.Transactions, codes [][]byte) (types.Receipts, error) {
	adapter := newStateAdapter(db)
	for _, code := range codes {
		adapter.seedCode(code)
	}
	signer := types.MakeSigner(d.chainConfig, header.Number, header.Time)

	blockCtx := vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     d.getHash,
		Coinbase:    header.Coinbase,
		GasLimit:    header.GasLimit,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        header.Time,
		Difficulty:  big.NewInt(0),
		BaseFee:     header.BaseFee,
	}

	gasPool := new(core.GasPool).AddGas(header.GasLimit)
	receipts := make(types.Receipts, 0, len(txs))
	var gasUsed uint64

	for i, tx := range txs {
		msg, err := core.TransactionToMessage(tx, signer, header.BaseFee)
		if err != nil {
			return nil, errs.New("evmexec.ExecuteBlock", errs.EvmInternal, errors.Wrapf(err, "tx %d", i))
		}

		txCtx := core.NewEVMTxContext(msg)
		evm := vm.NewEVM(blockCtx, txCtx, adapter, d.chainConfig, vm.Config{})

		snap := adapter.Snapshot()
		result, err := core.ApplyMessage(evm, msg, gasPool)
		if adapter.err() != nil {
			return nil, errs.New("evmexec.ExecuteBlock", errs.WitnessIncomplete, errors.Wrapf(adapter.err(), "tx %d", i))
		}
		if err != nil {
			// A malformed message (bad nonce, insufficient balance for
			// gas, etc.) still consumes the gas pool slot and must not
			// abort the whole block: record it and move on.
			adapter.RevertToSnapshot(snap)
			receipts = append(receipts, &types.Receipt{
				Type:            tx.Type(),
				TxHash:          tx.Hash(),
				Status:          types.ReceiptStatusFailed,
				GasUsed:         0,
				CumulativeGasUsed: gasUsed,
			})
			continue
		}

		gasUsed += result.UsedGas
		receipt := &types.Receipt{
			Type:              tx.Type(),
			TxHash:            tx.Hash(),
			GasUsed:           result.UsedGas,
			CumulativeGasUsed: gasUsed,
			Logs:              adapter.logs,
		}
		if result.Failed() {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			receipt.Status = types.ReceiptStatusSuccessful
		}
		receipts = append(receipts, receipt)

		if err := d.creditL1Fee(adapter, tx); err != nil {
			return nil, err
		}
	}

	return receipts, nil
}

// creditL1Fee debits the sender and credits L1FeeVault with the
// transaction's L1 data-availability fee: a fixed per-byte charge on
// the RLP-encoded transaction at the batch's L1 base fee, standing in
// for Scroll's on-chain L1GasPriceOracle formula. No block reward is
// ever paid; the priority fee to coinbase is already handled by
// core.ApplyMessage crediting the effective tip.
func (d *Driver) creditL1Fee(adapter *stateAdapter, tx *types.Transaction) error {
	if d.l1BaseFee == nil || d.l1BaseFee.IsZero() {
		return nil
	}
	const l1GasPerByte = 16
	size := uint64(tx.Size())
	l1Gas := new(uint256.Int).SetUint64(size * l1GasPerByte)
	fee := new(uint256.Int).Mul(l1Gas, d.l1BaseFee)

	sender, err := types.Sender(types.LatestSignerForChainID(d.chainConfig.ChainID), tx)
	if err != nil {
		return errs.New("evmexec.creditL1Fee", errs.EvmInternal, err)
	}

	adapter.SubBalance(sender, fee.ToBig())
	adapter.AddBalance(L1FeeVault, fee.ToBig())
	if adapter.err() != nil {
		return errs.New("evmexec.creditL1Fee", errs.WitnessIncomplete, adapter.err())
	}
	return nil
}
