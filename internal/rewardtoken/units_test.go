package rewardtoken

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensForPoints(t *testing.T) {
	tests := []struct {
		points int64
		want   int64
	}{
		{0, 0},
		{999, 0},
		{1000, 1},
		{1999, 1},
		{2500, 2},
		{1_000_000, 1000},
	}
	for _, tt := range tests {
		got, err := TokensForPoints(tt.points)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "points=%d", tt.points)
	}

	_, err := TokensForPoints(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPointsFromFloat(t *testing.T) {
	p, err := PointsFromFloat(2500)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), p)

	for _, bad := range []float64{-1, 1.5, math.NaN(), math.Inf(1), math.MaxFloat64} {
		_, err := PointsFromFloat(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "value %v", bad)
	}
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 2, 999, 1000, 123_456_789, 1_000_000_000_000} {
		v, err := ToBaseUnits(n)
		require.NoError(t, err)
		back, err := FromBaseUnits(v)
		require.NoError(t, err)
		assert.Equal(t, n, back)
	}

	two, err := ToBaseUnits(2)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", two.String())
}

func TestToBaseUnitsFitsUint256(t *testing.T) {
	v, err := ToBaseUnits(math.MaxInt64)
	require.NoError(t, err)
	assert.True(t, fitsUint256(v))
	assert.Equal(t, "9223372036854775807", FormatUnits(v))

	_, err = ToBaseUnits(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	assert.False(t, fitsUint256(huge))
	assert.True(t, fitsUint256(new(big.Int).Sub(huge, big.NewInt(1))))
}

func TestFromBaseUnitsRejectsFractions(t *testing.T) {
	_, err := FromBaseUnits(big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FromBaseUnits(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FromBaseUnits(nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "0.000000000000000001"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"2000000000000000000", "2"},
		{"123456789012345678901234567890", "123456789012.34567890123456789"},
		{"-2500000000000000000", "-2.5"},
	}
	for _, tt := range tests {
		v, ok := new(big.Int).SetString(tt.in, 10)
		require.True(t, ok)
		assert.Equal(t, tt.want, FormatUnits(v), "in=%s", tt.in)
	}
	assert.Equal(t, "0", FormatUnits(nil))
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"1.5", "1500000000000000000"},
		{".5", "500000000000000000"},
		{"2.", "2000000000000000000"},
		{" +3 ", "3000000000000000000"},
		{"0.000000000000000001", "1"},
	}
	for _, tt := range tests {
		v, err := ParseUnits(tt.in)
		require.NoError(t, err, "in=%q", tt.in)
		assert.Equal(t, tt.want, v.String(), "in=%q", tt.in)
	}

	for _, bad := range []string{"", ".", "-1", "1e18", "abc", "1.0000000000000000001", "1.2.3"} {
		_, err := ParseUnits(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "in=%q", bad)
	}

	// 10^60 tokens is 10^78 base units, past the uint256 range.
	_, err := ParseUnits("1" + strings.Repeat("0", 60))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatParseAgree(t *testing.T) {
	for _, s := range []string{"0", "1", "1.5", "42.000000000000000001", "1000000"} {
		v, err := ParseUnits(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatUnits(v))
	}
}
