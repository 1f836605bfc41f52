package rewardtoken

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/reward-bridge/internal/metrics"
)

// Reader serves read-only token contract queries. It never retries; failures
// are returned to the caller, which owns any fallback policy.
type Reader struct {
	cfg     ContractConfig
	backend Backend
}

// NewReader returns a Reader for cfg's contract.
func NewReader(cfg ContractConfig, backend Backend) *Reader {
	return &Reader{cfg: cfg, backend: backend}
}

// Balance returns the token balance of address as an exact decimal string.
func (r *Reader) Balance(ctx context.Context, address string) (string, error) {
	v, err := r.BalanceBaseUnits(ctx, address)
	if err != nil {
		return "", err
	}
	return FormatUnits(v), nil
}

// TotalSupply returns the issued supply as an exact decimal string.
func (r *Reader) TotalSupply(ctx context.Context) (string, error) {
	v, err := r.TotalSupplyBaseUnits(ctx)
	if err != nil {
		return "", err
	}
	return FormatUnits(v), nil
}

// BalanceBaseUnits returns the raw 18-decimal balance of address.
func (r *Reader) BalanceBaseUnits(ctx context.Context, address string) (*big.Int, error) {
	token, ok := r.cfg.ContractAddress()
	if !ok {
		return nil, ErrNotConfigured
	}
	holder, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return r.callUint(ctx, token, "balanceOf", holder)
}

// TotalSupplyBaseUnits returns the raw 18-decimal total supply.
func (r *Reader) TotalSupplyBaseUnits(ctx context.Context) (*big.Int, error) {
	token, ok := r.cfg.ContractAddress()
	if !ok {
		return nil, ErrNotConfigured
	}
	return r.callUint(ctx, token, "totalSupply")
}

// TokenDetails is the token metadata printed after a deployment.
type TokenDetails struct {
	Name        string
	Symbol      string
	TotalSupply *big.Int
	MaxSupply   *big.Int
}

// Details reads name, symbol, total supply and max supply in four calls.
func (r *Reader) Details(ctx context.Context) (TokenDetails, error) {
	token, ok := r.cfg.ContractAddress()
	if !ok {
		return TokenDetails{}, ErrNotConfigured
	}
	var d TokenDetails
	var err error
	if d.Name, err = callOne[string](ctx, r.backend, token, "name"); err != nil {
		return TokenDetails{}, err
	}
	if d.Symbol, err = callOne[string](ctx, r.backend, token, "symbol"); err != nil {
		return TokenDetails{}, err
	}
	if d.TotalSupply, err = r.callUint(ctx, token, "totalSupply"); err != nil {
		return TokenDetails{}, err
	}
	if d.MaxSupply, err = r.callUint(ctx, token, "maxSupply"); err != nil {
		return TokenDetails{}, err
	}
	return d, nil
}

// callUint performs a single eth_call of a view method returning uint256.
func (r *Reader) callUint(ctx context.Context, token common.Address, method string, args ...any) (*big.Int, error) {
	return callOne[*big.Int](ctx, r.backend, token, method, args...)
}

// callOne performs a single eth_call of a view method with one return value.
func callOne[T any](ctx context.Context, b Backend, token common.Address, method string, args ...any) (v T, err error) {
	defer func() { metrics.Chain().ObserveRead(method, err) }()

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return v, fmt.Errorf("%s: pack: %w", method, err)
	}
	ret, err := b.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return v, fmt.Errorf("%s: %w", method, asRevert(method, err))
	}
	out, err := tokenABI.Unpack(method, ret)
	if err != nil {
		return v, fmt.Errorf("%s: decode: %w", method, err)
	}
	if len(out) != 1 {
		return v, fmt.Errorf("%s: unexpected %d return values", method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return v, fmt.Errorf("%s: unexpected return type %T", method, out[0])
	}
	return v, nil
}
