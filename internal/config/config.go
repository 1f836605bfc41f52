package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

// Settings keeps all configuration options.
type Settings struct {
	RPCURL             string
	ChainID            string // empty: ask the node
	RewardTokenAddress string
	TokenPrivateKeyHex string
	OwnerAddress       string

	MaxBatchSize int
	GasBufferPct int64

	ExplorerAPIURL     string
	ExplorerAPIKey     string
	ExplorerBrowserURL string
	ExplorerRPS        float64

	VerifyMaxAttempts  int
	VerifyBaseDelay    time.Duration
	VerifyPollInterval time.Duration
	VerifyPollAttempts int
	VerifySource       string
	VerifySourceFile   string
	VerifyCompiler     string
	VerifyCodeFormat   string

	DeployArtifact      string
	DeployConfirmations int

	DatabaseURL string
	ListenAddr  string
	HTTPRPM     int
	HTTPBurst   int

	LogLevel  string
	LogFormat string
	LogFile   string
	AppEnv    string
}

// Load reads settings from environment supporting both UPPER_CASE and lower_case keys.
// Malformed numbers and durations fall back to their defaults; Validate reports
// the values that cannot be defaulted.
func Load() Settings {
	get := func(key, def string) string {
		for _, k := range []string{strings.ToLower(key), key} {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return def
	}
	getInt := func(key string, def int) int {
		if n, err := strconv.Atoi(get(key, "")); err == nil {
			return n
		}
		return def
	}
	getInt64 := func(key string, def int64) int64 {
		if n, err := strconv.ParseInt(get(key, ""), 10, 64); err == nil {
			return n
		}
		return def
	}
	getFloat := func(key string, def float64) float64 {
		if n, err := strconv.ParseFloat(get(key, ""), 64); err == nil {
			return n
		}
		return def
	}
	getDuration := func(key string, def time.Duration) time.Duration {
		s := get(key, "")
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
		// bare numbers are milliseconds, as in the deploy scripts
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
		return def
	}

	st := Settings{}
	st.RPCURL = get("RPC_URL", "https://mainnet.base.org")
	st.ChainID = get("CHAIN_ID", "")
	st.RewardTokenAddress = get("REWARD_TOKEN_ADDRESS", "")
	st.TokenPrivateKeyHex = get("TOKEN_PRIVATE_KEY", "")
	st.OwnerAddress = get("OWNER_ADDRESS", "")

	st.MaxBatchSize = getInt("MAX_BATCH_SIZE", rewardtoken.DefaultMaxBatchSize)
	st.GasBufferPct = getInt64("GAS_BUFFER_PCT", rewardtoken.DefaultGasBufferPct)

	st.ExplorerAPIURL = get("EXPLORER_API_URL", "https://api.basescan.org/api")
	st.ExplorerAPIKey = get("EXPLORER_API_KEY", get("BASESCAN_API_KEY", ""))
	st.ExplorerBrowserURL = get("EXPLORER_BROWSER_URL", "https://basescan.org")
	st.ExplorerRPS = getFloat("EXPLORER_RPS", 5)

	st.VerifyMaxAttempts = getInt("VERIFY_MAX_ATTEMPTS", 3)
	st.VerifyBaseDelay = getDuration("VERIFY_BASE_DELAY", 5*time.Second)
	st.VerifyPollInterval = getDuration("VERIFY_POLL_INTERVAL", 5*time.Second)
	st.VerifyPollAttempts = getInt("VERIFY_POLL_ATTEMPTS", 12)
	st.VerifySource = get("VERIFY_SOURCE", "src/RewardToken.sol:RewardToken")
	st.VerifySourceFile = get("VERIFY_SOURCE_FILE", "")
	st.VerifyCompiler = get("VERIFY_COMPILER", "")
	st.VerifyCodeFormat = get("VERIFY_CODE_FORMAT", "solidity-standard-json-input")

	st.DeployArtifact = get("DEPLOY_ARTIFACT", "artifacts/src/RewardToken.sol/RewardToken.json")
	st.DeployConfirmations = getInt("DEPLOY_CONFIRMATIONS", rewardtoken.DefaultConfirmations)

	st.DatabaseURL = get("DATABASE_URL", "file:rewards.db")
	st.ListenAddr = get("LISTEN_ADDR", ":8080")
	st.HTTPRPM = getInt("HTTP_RPM", 120)
	st.HTTPBurst = getInt("HTTP_BURST", 20)

	st.LogLevel = get("LOG_LEVEL", "info")
	st.LogFormat = get("LOG_FORMAT", "json")
	st.LogFile = get("LOG_FILE", "")
	st.AppEnv = get("APP_ENV", "")
	return st
}

// ChainIDBig parses ChainID; nil means it must be asked from the node.
func (s Settings) ChainIDBig() (*big.Int, error) {
	if s.ChainID == "" {
		return nil, nil
	}
	id, ok := new(big.Int).SetString(s.ChainID, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid CHAIN_ID %q", s.ChainID)
	}
	return id, nil
}

// Contract builds the immutable contract configuration shared by the chain
// reader, writer and batch distributor.
func (s Settings) Contract() (rewardtoken.ContractConfig, error) {
	id, err := s.ChainIDBig()
	if err != nil {
		return rewardtoken.ContractConfig{}, err
	}
	return rewardtoken.NewContractConfig(s.RewardTokenAddress, s.TokenPrivateKeyHex, s.RPCURL, id)
}

// Validate reports every malformed value at once.
func (s Settings) Validate() error {
	var errs []error
	if s.RPCURL == "" {
		errs = append(errs, errors.New("RPC_URL is empty"))
	}
	if _, err := s.Contract(); err != nil {
		errs = append(errs, err)
	}
	if s.OwnerAddress != "" && !rewardtoken.IsValidAddress(s.OwnerAddress) {
		errs = append(errs, fmt.Errorf("invalid OWNER_ADDRESS %q", s.OwnerAddress))
	}
	if s.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", s.MaxBatchSize))
	}
	if s.GasBufferPct < 0 {
		errs = append(errs, fmt.Errorf("GAS_BUFFER_PCT must not be negative, got %d", s.GasBufferPct))
	}
	if s.VerifyMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("VERIFY_MAX_ATTEMPTS must be positive, got %d", s.VerifyMaxAttempts))
	}
	if s.HTTPRPM <= 0 || s.HTTPBurst <= 0 {
		errs = append(errs, errors.New("HTTP_RPM and HTTP_BURST must be positive"))
	}
	return errors.Join(errs...)
}
