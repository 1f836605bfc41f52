package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/config"
	"github.com/ligun0805/reward-bridge/internal/logging"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

// app carries what every subcommand needs after the root pre-run.
type app struct {
	st     config.Settings
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rewardbridge",
		Short:         "Convert game points into on-chain reward tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.st = config.Load()
			if err := a.st.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := logging.Setup("rewardbridge", a.st.AppEnv, a.st.LogLevel, a.st.LogFormat, a.st.LogFile)
			if err != nil {
				return err
			}
			a.logger = logger.With("command", cmd.Name())
			return nil
		},
	}
	root.AddCommand(
		newServeCmd(a),
		newDistributeCmd(a),
		newBatchCmd(a),
		newMintCmd(a),
		newBalanceCmd(a),
		newSupplyCmd(a),
		newDeployCmd(a),
		newVerifyCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) dial(ctx context.Context) (*ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, a.st.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", a.st.RPCURL, err)
	}
	return ec, nil
}

// contract builds the contract config. Writers need a signing key; when none
// is configured and stdin is a terminal, the key is prompted for.
func (a *app) contract(needKey bool) (rewardtoken.ContractConfig, error) {
	if needKey {
		if err := a.ensureKey(); err != nil {
			return rewardtoken.ContractConfig{}, err
		}
	}
	cfg, err := a.st.Contract()
	if err != nil {
		return rewardtoken.ContractConfig{}, err
	}
	if !cfg.Configured() {
		return rewardtoken.ContractConfig{}, fmt.Errorf("%w: set REWARD_TOKEN_ADDRESS", rewardtoken.ErrNotConfigured)
	}
	return cfg, nil
}

func (a *app) ensureKey() error {
	if strings.TrimSpace(a.st.TokenPrivateKeyHex) != "" {
		return nil
	}
	if !stdinIsTerminal() {
		return errors.New("TOKEN_PRIVATE_KEY is not set")
	}
	key, err := readPassword("Enter TOKEN_PRIVATE_KEY (hex, hidden): ")
	if err != nil {
		return err
	}
	a.st.TokenPrivateKeyHex = key
	return nil
}

func (a *app) writer(ctx context.Context) (*rewardtoken.Writer, *ethclient.Client, error) {
	cfg, err := a.contract(true)
	if err != nil {
		return nil, nil, err
	}
	ec, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	w := rewardtoken.NewWriter(cfg, ec)
	w.GasBufferPct = a.st.GasBufferPct
	w.Logf = logging.Logf(a.logger)
	return w, ec, nil
}

func (a *app) reader(ctx context.Context) (*rewardtoken.Reader, *ethclient.Client, error) {
	cfg, err := a.contract(false)
	if err != nil {
		return nil, nil, err
	}
	ec, err := a.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rewardtoken.NewReader(cfg, ec), ec, nil
}
