package evmexec

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/scroll-tech/sgx-prover/internal/statedb"
	"github.com/scroll-tech/sgx-prover/internal/zktrie"
)

// sharedEmptyProof builds an exclusion proof whose siblings are all the
// zero sentinel. At depth 0 or 1 the recomputed root is the same for
// every key, so one proof can seed several distinct accounts; from
// depth 2 on, BranchHash(0, 0) is non-zero and the key's path bits
// decide the root.
func sharedEmptyProof(depth int) zktrie.Proof {
	p := zktrie.Proof{Siblings: make([]common.Hash, depth)}
	for i := range p.Siblings {
		p.Siblings[i] = zktrie.EmptyRoot()
	}
	return p
}

func TestExecuteBlockTransferCreditsL1FeeAndTipNotBlockReward(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)
	recipient := common.HexToAddress("0xbeef")
	coinbase := common.HexToAddress("0xc0ffee")

	chainID := big.NewInt(534351)
	proof := sharedEmptyProof(0)
	root := zktrie.ProofRoot(sender.Bytes(), proof)

	db := statedb.New(root)
	seed := func(addr common.Address, balance uint64, nonce uint64) {
		require.NoError(t, db.ProveAccount(addr, statedb.Account{
			Nonce:       nonce,
			Balance:     uint256.NewInt(balance),
			StorageRoot: zktrie.EmptyRoot(),
		}, proof))
	}
	seed(sender, 100_000_000, 0)
	seed(recipient, 0, 0)
	seed(coinbase, 0, 0)
	seed(L1FeeVault, 0, 0)

	signer := types.NewLondonSigner(chainID)
	tx, err := types.SignNewTx(key, signer, &types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(1000),
		Gas:       21000,
		To:        &recipient,
		Value:     big.NewInt(1000),
	})
	require.NoError(t, err)

	header := &types.Header{
		Number:   big.NewInt(1),
		Time:     1,
		GasLimit: 30_000_000,
		BaseFee:  big.NewInt(100),
		Coinbase: coinbase,
	}

	d := New(chainID, func(uint64) common.Hash { return common.Hash{} }, uint256.NewInt(50))
	receipts, err := d.ExecuteBlock(db, header, types.Transactions{tx}, nil)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.Equal(t, types.ReceiptStatusSuccessful, receipts[0].Status)

	_, err = db.Commit()
	require.NoError(t, err)

	recipientAcc, err := db.GetAccount(recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), recipientAcc.Balance.Uint64())

	vaultAcc, err := db.GetAccount(L1FeeVault)
	require.NoError(t, err)
	require.True(t, vaultAcc.Balance.Sign() > 0, "L1 fee vault should have been credited")

	coinbaseAcc, err := db.GetAccount(coinbase)
	require.NoError(t, err)
	require.True(t, coinbaseAcc.Balance.Sign() > 0, "coinbase should receive the priority fee")
}
