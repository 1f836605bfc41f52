package rewardtoken

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ligun0805/reward-bridge/internal/metrics"
)

// DefaultGasBufferPct is added on top of the node's gas estimate.
const DefaultGasBufferPct = 20

// Writer submits state-changing token contract calls signed with the
// configured key. Submissions are serialized so that only one write per
// signing key is in flight and nonces never collide.
type Writer struct {
	cfg     ContractConfig
	backend Backend

	// GasBufferPct is the percentage added to the gas estimate.
	GasBufferPct int64
	Logf         func(format string, a ...any)

	mu sync.Mutex
}

// NewWriter returns a Writer with the default gas buffer. Writes fail with
// ErrNoSigningKey when cfg carries no key.
func NewWriter(cfg ContractConfig, backend Backend) *Writer {
	return &Writer{cfg: cfg, backend: backend, GasBufferPct: DefaultGasBufferPct}
}

func (w *Writer) logf(format string, a ...any) {
	if w.Logf != nil {
		w.Logf(format, a...)
	}
}

// Distribute transfers floor(points/1000) tokens to address from the signing
// account. It returns (nil, nil) when the points do not amount to a whole
// token; nothing is sent in that case. The returned transaction has been
// accepted by the node but is not yet confirmed.
func (w *Writer) Distribute(ctx context.Context, address string, points int64) (*types.Transaction, error) {
	if !w.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	to, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	tokens, err := TokensForPoints(points)
	if err != nil {
		return nil, err
	}
	if tokens == 0 {
		w.logf("skip %s: %d points is below one token", lower(to), points)
		return nil, nil
	}
	amount, err := ToBaseUnits(tokens)
	if err != nil {
		return nil, err
	}
	tx, err := w.submit(ctx, "transfer", to, amount)
	if err != nil {
		return nil, err
	}
	w.logf("distributed %d tokens to %s, tx: %s", tokens, lower(to), tx.Hash().Hex())
	return tx, nil
}

// Mint creates amount base units for address. Only the contract owner can
// mint; anyone else gets a *RevertError.
func (w *Writer) Mint(ctx context.Context, address string, amount *big.Int) (*types.Transaction, error) {
	if !w.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	to, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: mint amount must be positive", ErrInvalidAmount)
	}
	tx, err := w.submit(ctx, "mint", to, amount)
	if err != nil {
		return nil, err
	}
	w.logf("minted %s tokens to %s, tx: %s", FormatUnits(amount), lower(to), tx.Hash().Hex())
	return tx, nil
}

// submit packs, estimates, signs and sends one call to the token contract.
// Reverts found while estimating gas are reported as *RevertError and
// nothing is sent.
func (w *Writer) submit(ctx context.Context, method string, args ...any) (tx *types.Transaction, err error) {
	token, ok := w.cfg.ContractAddress()
	if !ok {
		return nil, ErrNotConfigured
	}
	if w.cfg.key == nil {
		return nil, ErrNoSigningKey
	}
	defer func() { metrics.Chain().ObserveWrite(method, err) }()

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}
	return w.send(ctx, method, &token, data)
}

// send signs data as a dynamic-fee transaction to `to` (nil creates a
// contract) and hands it to the node. The pending nonce is read while
// holding the writer lock.
func (w *Writer) send(ctx context.Context, label string, to *common.Address, data []byte) (*types.Transaction, error) {
	from, _ := w.cfg.Sender()

	w.mu.Lock()
	defer w.mu.Unlock()

	chainID := w.cfg.ChainID()
	if chainID == nil {
		var err error
		if chainID, err = w.backend.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
	}

	msg := ethereum.CallMsg{From: from, To: to, Value: big.NewInt(0), Data: data}
	est, err := w.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("estimate %s: %w", label, asRevert(label, err))
	}
	buffer := w.GasBufferPct
	if buffer < 0 {
		buffer = 0
	}
	gas := est + est*uint64(buffer)/100

	fees, err := QuoteFees(ctx, w.backend)
	if err != nil {
		return nil, err
	}
	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	w.logf("%s: from=%s nonce=%d gas=%d tip=%s feeCap=%s", label, lower(from), nonce, gas, fees.Tip, fees.FeeCap)

	signed, err := signTx(buildDynamicTx(chainID, nonce, to, big.NewInt(0), gas, fees.Tip, fees.FeeCap, data), chainID, w.cfg.key)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", label, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send %s: %w", label, asRevert(label, err))
	}
	return signed, nil
}
