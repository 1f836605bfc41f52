package main

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/reward-bridge/internal/config"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadRewardFileYAML(t *testing.T) {
	p := writeFile(t, "rewards.yaml", `
- address: "0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96"
  points: 2500
- address: bad
  points: 5000
`)
	reqs, err := loadRewardFile(p)
	require.NoError(t, err)
	assert.Equal(t, []rewardtoken.RewardRequest{
		{Address: "0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96", Points: 2500},
		{Address: "bad", Points: 5000},
	}, reqs)
}

func TestLoadRewardFileJSONWrapped(t *testing.T) {
	p := writeFile(t, "rewards.json", `{"rewards":[{"address":"0x1111111111111111111111111111111111111111","points":1000}]}`)
	reqs, err := loadRewardFile(p)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(1000), reqs[0].Points)
}

func TestLoadRewardFileTOML(t *testing.T) {
	p := writeFile(t, "rewards.toml", `
[[rewards]]
address = "0x1111111111111111111111111111111111111111"
points = 2500

[[rewards]]
address = "0x2222222222222222222222222222222222222222"
points = 999
`)
	reqs, err := loadRewardFile(p)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, int64(2500), reqs[0].Points)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", reqs[1].Address)
}

func TestLoadRewardFileBadPointsSkipOnlyTheirEntry(t *testing.T) {
	p := writeFile(t, "rewards.json", `[
  {"address":"0x1111111111111111111111111111111111111111","points":2500.0},
  {"address":"0x2222222222222222222222222222222222222222","points":1500.5},
  {"address":"0x3333333333333333333333333333333333333333","points":"lots"},
  {"address":"0x4444444444444444444444444444444444444444","points":-3000},
  {"address":"0x5555555555555555555555555555555555555555","points":4000}
  ]`)
	reqs, err := loadRewardFile(p)
	require.NoError(t, err)
	require.Len(t, reqs, 5)
	assert.Equal(t, int64(2500), reqs[0].Points)

	out := rewardtoken.Plan(reqs)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, []rewardtoken.Skip{
		{Index: 1, Address: "0x2222222222222222222222222222222222222222", Reason: rewardtoken.SkipInvalidAmount},
		{Index: 2, Address: "0x3333333333333333333333333333333333333333", Reason: rewardtoken.SkipInvalidAmount},
		{Index: 3, Address: "0x4444444444444444444444444444444444444444", Reason: rewardtoken.SkipInvalidAmount},
	}, out.Skips)
}

func TestLoadRewardFileTOMLFloatPoints(t *testing.T) {
	p := writeFile(t, "rewards.toml", `
[[rewards]]
address = "0x1111111111111111111111111111111111111111"
points = 3000.0

[[rewards]]
address = "0x2222222222222222222222222222222222222222"
points = 0.5
`)
	reqs, err := loadRewardFile(p)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, int64(3000), reqs[0].Points)
	assert.Less(t, reqs[1].Points, int64(0))
}

func TestLoadRewardFileErrors(t *testing.T) {
	_, err := loadRewardFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p := writeFile(t, "bad.yaml", "rewards: [1, 2")
	_, err = loadRewardFile(p)
	assert.Error(t, err)
}

func TestMaskHex(t *testing.T) {
	assert.Equal(t, "***", maskHex("0x1234"))
	assert.Equal(t, "0xb71c…f291", maskHex("0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"))
}

func TestPrintConfigHidesSecrets(t *testing.T) {
	st := config.Settings{
		RPCURL:             "http://node",
		TokenPrivateKeyHex: "0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291",
		DatabaseURL:        "postgres://rewards:hunter2@db:5432/rewards",
	}
	var buf bytes.Buffer
	printConfig(&buf, st)
	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "e1177ad4e901695")
	assert.Contains(t, out, "REWARD_TOKEN_ADDRESS : <unset>")
}

func TestFormatGwei(t *testing.T) {
	assert.Equal(t, "1.50", formatGwei(big.NewInt(1_500_000_000)))
	assert.Equal(t, "0", formatGwei(nil))
}

func TestRootHasCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "distribute", "batch", "mint", "balance", "supply", "deploy", "verify", "status"} {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
