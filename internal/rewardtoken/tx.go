package rewardtoken

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Fee cap is baseFee*baseFeeMul + tip, enough headroom for a couple of
// base-fee increases while the call waits for inclusion.
const baseFeeMul = 2

// Fallback tip when the node cannot suggest one (1 gwei).
var defaultTip = big.NewInt(1_000_000_000)

// Fees is a dynamic-fee quote for the next block.
type Fees struct {
	BaseFee *big.Int
	Tip     *big.Int
	FeeCap  *big.Int
	Head    uint64
}

// QuoteFees reads the latest head and the node's suggested priority fee.
func QuoteFees(ctx context.Context, b Backend) (Fees, error) {
	h, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return Fees{}, fmt.Errorf("head: %w", err)
	}
	baseFee := big.NewInt(0)
	if h.BaseFee != nil {
		baseFee = new(big.Int).Set(h.BaseFee)
	}
	tip, err := b.SuggestGasTipCap(ctx)
	if err != nil || tip == nil || tip.Sign() <= 0 {
		tip = new(big.Int).Set(defaultTip)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(baseFeeMul))
	feeCap.Add(feeCap, tip)
	var head uint64
	if h.Number != nil {
		head = h.Number.Uint64()
	}
	return Fees{BaseFee: baseFee, Tip: tip, FeeCap: feeCap, Head: head}, nil
}

// Build EIP-1559 transaction.
func buildDynamicTx(chain *big.Int, nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, tip, feeCap *big.Int, data []byte) *types.Transaction {
	df := &types.DynamicFeeTx{
		ChainID:   chain,
		Nonce:     nonce,
		Gas:       gasLimit,
		GasTipCap: new(big.Int).Set(tip),
		GasFeeCap: new(big.Int).Set(feeCap),
		To:        to,
		Value:     new(big.Int).Set(value),
		Data:      data,
	}
	return types.NewTx(df)
}

// Sign transaction with latest signer for given chain ID.
func signTx(tx *types.Transaction, chain *big.Int, prv *ecdsa.PrivateKey) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(chain)
	return types.SignTx(tx, signer, prv)
}
