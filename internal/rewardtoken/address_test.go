package rewardtoken

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalAddress(t *testing.T) {
	got, err := CanonicalAddress(testOwner)
	require.NoError(t, err)
	assert.Equal(t, "0xefd2e9d8e8cf622b3bbb493c97538bdfd9f00b96", got)

	addr, err := ParseAddress(testOwner)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testOwner), addr)
}

func TestInvalidAddresses(t *testing.T) {
	for _, s := range []string{
		"",
		"0x123",
		"not-an-address",
		"EFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96",
		"0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B9",
		"0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B966",
		"0xZZd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96",
		" 0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96",
	} {
		assert.False(t, IsValidAddress(s), "%q", s)
		_, err := CanonicalAddress(s)
		assert.ErrorIs(t, err, ErrInvalidAddress, "%q", s)
	}
}

func TestContractConfig(t *testing.T) {
	cfg := testConfig(t, testContract)
	assert.True(t, cfg.Configured())
	sender, ok := cfg.Sender()
	require.True(t, ok)
	assert.NotEqual(t, common.Address{}, sender)

	id := cfg.ChainID()
	id.SetInt64(1)
	assert.Equal(t, int64(8453), cfg.ChainID().Int64(), "ChainID must return a copy")

	empty, err := NewContractConfig("", "", "http://localhost:8545", nil)
	require.NoError(t, err)
	assert.False(t, empty.Configured())
	_, ok = empty.Sender()
	assert.False(t, ok)
	assert.Contains(t, empty.String(), "<unset>")

	_, err = NewContractConfig("0x123", "", "", nil)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewContractConfig(testContract, "0xnothex", "", nil)
	assert.Error(t, err)
}
