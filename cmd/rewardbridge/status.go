package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/config"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print configuration and network state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			printConfig(out, a.st)

			ec, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer ec.Close()

			chainID, err := ec.ChainID(ctx)
			if err != nil {
				return fmt.Errorf("chain id: %w", err)
			}
			fees, err := rewardtoken.QuoteFees(ctx, ec)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "[net] chain id      : %s\n", chainID)
			fmt.Fprintf(out, "[net] head block    : %d\n", fees.Head)
			fmt.Fprintf(out, "[net] baseFee (now) : %s gwei\n", formatGwei(fees.BaseFee))
			fmt.Fprintf(out, "[net] tip (suggest) : %s gwei\n", formatGwei(fees.Tip))

			cfg, err := a.st.Contract()
			if err != nil {
				return err
			}
			r := rewardtoken.NewReader(cfg, ec)
			if supply, err := r.TotalSupply(ctx); err != nil {
				fmt.Fprintln(out, "[token] total supply error:", err)
			} else {
				fmt.Fprintln(out, "[token] total supply :", supply)
			}
			if signer, ok := cfg.Sender(); ok {
				eth, err := ec.BalanceAt(ctx, signer, nil)
				if err != nil {
					fmt.Fprintln(out, "[signer] ETH balance error:", err)
				} else {
					fmt.Fprintf(out, "[signer] %s ETH balance: %s\n", signer.Hex(), rewardtoken.FormatUnits(eth))
				}
				if bal, err := r.Balance(ctx, signer.Hex()); err == nil {
					fmt.Fprintf(out, "[signer] token balance: %s\n", bal)
				}
			}
			return nil
		},
	}
}

func printConfig(out io.Writer, st config.Settings) {
	key := "<unset>"
	if st.TokenPrivateKeyHex != "" {
		key = maskHex(st.TokenPrivateKeyHex)
	}
	token := st.RewardTokenAddress
	if token == "" {
		token = "<unset>"
	}
	chain := st.ChainID
	if chain == "" {
		chain = "<from node>"
	}
	fmt.Fprintln(out, "=== CONFIG (.env) ===")
	fmt.Fprintln(out, "RPC_URL              :", st.RPCURL)
	fmt.Fprintln(out, "CHAIN_ID             :", chain)
	fmt.Fprintln(out, "REWARD_TOKEN_ADDRESS :", token)
	fmt.Fprintln(out, "TOKEN_PRIVATE_KEY    :", key)
	fmt.Fprintln(out, "MAX_BATCH_SIZE       :", st.MaxBatchSize)
	fmt.Fprintln(out, "GAS_BUFFER_PCT       :", st.GasBufferPct)
	fmt.Fprintln(out, "EXPLORER_API_URL     :", st.ExplorerAPIURL)
	fmt.Fprintln(out, "VERIFY_MAX_ATTEMPTS  :", st.VerifyMaxAttempts)
	fmt.Fprintln(out, "VERIFY_BASE_DELAY    :", st.VerifyBaseDelay)
	fmt.Fprintln(out, "DATABASE_URL         :", redactDSN(st.DatabaseURL))
	fmt.Fprintln(out, "=====================")
}
