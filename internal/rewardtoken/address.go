package rewardtoken

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet addresses are "0x" followed by exactly 40 hex digits; the digits may be mixed case.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a syntactically valid wallet address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// CanonicalAddress validates s and returns its lowercase form, which is the
// only form used for chain calls and storage.
func CanonicalAddress(s string) (string, error) {
	if !IsValidAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return strings.ToLower(s), nil
}

// ParseAddress validates s and converts it to a common.Address.
func ParseAddress(s string) (common.Address, error) {
	c, err := CanonicalAddress(s)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(c), nil
}

// lower renders an address in canonical lowercase hex.
func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}
