package rewardtoken

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// PointsPerToken is the fixed exchange rate between game points and whole tokens.
	PointsPerToken = 1000
	// Decimals of the token contract's fixed-point representation.
	Decimals = 18
)

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// TokensForPoints converts points to whole tokens, rounding down.
// Zero means there is nothing to distribute; callers must not submit anything then.
func TokensForPoints(points int64) (int64, error) {
	if points < 0 {
		return 0, fmt.Errorf("%w: negative points %d", ErrInvalidAmount, points)
	}
	return points / PointsPerToken, nil
}

// PointsFromFloat accepts a JSON-style number and returns it as integer points.
func PointsFromFloat(f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("%w: points must be finite", ErrInvalidAmount)
	case f < 0:
		return 0, fmt.Errorf("%w: negative points %v", ErrInvalidAmount, f)
	case f != math.Trunc(f):
		return 0, fmt.Errorf("%w: fractional points %v", ErrInvalidAmount, f)
	case f >= math.MaxInt64:
		return 0, fmt.Errorf("%w: points out of range", ErrInvalidAmount)
	}
	return int64(f), nil
}

// ToBaseUnits converts whole tokens into the contract's 18-decimal integer
// form. The result always fits a uint256 contract argument.
func ToBaseUnits(tokens int64) (*big.Int, error) {
	if tokens < 0 {
		return nil, fmt.Errorf("%w: negative token amount %d", ErrInvalidAmount, tokens)
	}
	v := new(big.Int).Mul(big.NewInt(tokens), unit)
	if !fitsUint256(v) {
		return nil, fmt.Errorf("%w: %d tokens overflows uint256", ErrInvalidAmount, tokens)
	}
	return v, nil
}

func fitsUint256(v *big.Int) bool {
	_, overflow := uint256.FromBig(v)
	return !overflow
}

// FromBaseUnits is the exact inverse of ToBaseUnits. Values that are not a
// whole number of tokens are rejected rather than truncated.
func FromBaseUnits(v *big.Int) (int64, error) {
	if v == nil || v.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative or missing base amount", ErrInvalidAmount)
	}
	q, r := new(big.Int).QuoRem(v, unit, new(big.Int))
	if r.Sign() != 0 {
		return 0, fmt.Errorf("%w: %s is not a whole token amount", ErrInvalidAmount, v)
	}
	if !q.IsInt64() {
		return 0, fmt.Errorf("%w: %s tokens out of range", ErrInvalidAmount, q)
	}
	return q.Int64(), nil
}

// FormatUnits renders a base-unit amount as an exact decimal token string,
// e.g. 1500000000000000000 -> "1.5".
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	abs := new(big.Int).Abs(v)
	q, r := new(big.Int).QuoRem(abs, unit, new(big.Int))
	s := q.String()
	if r.Sign() != 0 {
		frac := strings.TrimRight(fmt.Sprintf("%0*s", Decimals, r.String()), "0")
		s += "." + frac
	}
	if v.Sign() < 0 {
		s = "-" + s
	}
	return s
}

// ParseUnits parses a decimal token string into base units without any
// floating-point step. At most 18 fractional digits are accepted and the
// result must fit in a uint256.
func ParseUnits(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !digitsOnly(intPart) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}
	digits := intPart + frac + strings.Repeat("0", Decimals-len(frac))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !fitsUint256(v) {
		return nil, fmt.Errorf("%w: %q overflows uint256", ErrInvalidAmount, s)
	}
	return v, nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
