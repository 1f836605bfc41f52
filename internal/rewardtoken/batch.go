package rewardtoken

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/reward-bridge/internal/metrics"
)

// DefaultMaxBatchSize bounds the recipients of a single batchMint call.
const DefaultMaxBatchSize = 200

// RewardRequest asks for points to be converted and paid to an address.
type RewardRequest struct {
	Address string `json:"address" yaml:"address" toml:"address"`
	Points  int64  `json:"points" yaml:"points" toml:"points"`
}

type SkipReason string

const (
	SkipInvalidAddress SkipReason = "invalid_address"
	SkipInvalidAmount  SkipReason = "invalid_amount"
	SkipZeroTokens     SkipReason = "zero_tokens"
)

// Skip records a request that was left out of the batch.
type Skip struct {
	Index   int
	Address string
	Reason  SkipReason
}

// DistributionOutcome describes a batch distribution. TxHash is nil when no
// request qualified and nothing was sent.
type DistributionOutcome struct {
	TxHash     *common.Hash
	Recipients []common.Address
	Amounts    []*big.Int
	Processed  int
	Skipped    int
	Skips      []Skip
}

// Distributor turns many reward requests into one batchMint call.
type Distributor struct {
	writer       *Writer
	MaxBatchSize int
	Logf         func(format string, a ...any)
}

func NewDistributor(w *Writer) *Distributor {
	return &Distributor{writer: w, MaxBatchSize: DefaultMaxBatchSize}
}

func (d *Distributor) logf(format string, a ...any) {
	if d.Logf != nil {
		d.Logf(format, a...)
	}
}

// Plan filters and converts requests without touching the chain. Recipients
// and Amounts are index-aligned and keep the order of reqs.
func Plan(reqs []RewardRequest) DistributionOutcome {
	var out DistributionOutcome
	skip := func(i int, r RewardRequest, reason SkipReason) {
		out.Skips = append(out.Skips, Skip{Index: i, Address: r.Address, Reason: reason})
	}
	for i, r := range reqs {
		to, err := ParseAddress(r.Address)
		if err != nil {
			skip(i, r, SkipInvalidAddress)
			continue
		}
		tokens, err := TokensForPoints(r.Points)
		if err != nil {
			skip(i, r, SkipInvalidAmount)
			continue
		}
		if tokens == 0 {
			skip(i, r, SkipZeroTokens)
			continue
		}
		amount, err := ToBaseUnits(tokens)
		if err != nil {
			skip(i, r, SkipInvalidAmount)
			continue
		}
		out.Recipients = append(out.Recipients, to)
		out.Amounts = append(out.Amounts, amount)
	}
	out.Processed = len(out.Recipients)
	out.Skipped = len(out.Skips)
	return out
}

// DistributeBatch submits one batchMint for every qualifying request. Invalid
// or zero-token requests are skipped, never fatal. With no qualifying request
// it returns an outcome with a nil TxHash and sends nothing. The chain applies
// the call atomically, so a revert means no recipient was paid.
func (d *Distributor) DistributeBatch(ctx context.Context, reqs []RewardRequest) (DistributionOutcome, error) {
	if !d.writer.cfg.Configured() {
		return DistributionOutcome{}, ErrNotConfigured
	}
	out := Plan(reqs)
	m := metrics.Chain()
	for _, s := range out.Skips {
		m.ObserveBatchEntries(string(s.Reason), 1)
		d.logf("batch: skip #%d %q: %s", s.Index, s.Address, s.Reason)
	}
	if out.Processed == 0 {
		d.logf("batch: no qualifying rewards among %d requests", len(reqs))
		return out, nil
	}
	if d.MaxBatchSize > 0 && out.Processed > d.MaxBatchSize {
		return out, fmt.Errorf("%w: %d recipients, max %d", ErrBatchTooLarge, out.Processed, d.MaxBatchSize)
	}

	tx, err := d.writer.submit(ctx, "batchMint", out.Recipients, out.Amounts)
	if err != nil {
		return out, err
	}
	h := tx.Hash()
	out.TxHash = &h
	m.ObserveBatchEntries("processed", out.Processed)
	d.logf("batch distributed tokens to %d users, tx: %s", out.Processed, h.Hex())
	return out, nil
}
