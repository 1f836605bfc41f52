package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/logging"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

func newDistributeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <address> <points>",
		Short: "Transfer floor(points/1000) tokens to address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: points %q", rewardtoken.ErrInvalidAmount, args[1])
			}
			w, ec, err := a.writer(cmd.Context())
			if err != nil {
				return err
			}
			defer ec.Close()

			tx, err := w.Distribute(cmd.Context(), args[0], points)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if tx == nil {
				fmt.Fprintf(out, "%d points is less than one token; nothing sent\n", points)
				return nil
			}
			tokens, _ := rewardtoken.TokensForPoints(points)
			fmt.Fprintf(out, "Distributed %d tokens to %s\ntx: %s\n", tokens, args[0], tx.Hash().Hex())
			return nil
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Mint rewards for a YAML, JSON or TOML list of {address, points} in one batchMint",
		Long: "Reads {address, points} entries and mints floor(points/1000) tokens to each in one batchMint.\n" +
			"Entries with an invalid address, or points that are not a whole non-negative number, are\n" +
			"skipped and reported; the rest of the file is still processed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadRewardFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				printOutcome(cmd, rewardtoken.Plan(reqs))
				fmt.Fprintln(out, "dry run: nothing sent")
				return nil
			}
			w, ec, err := a.writer(cmd.Context())
			if err != nil {
				return err
			}
			defer ec.Close()

			d := rewardtoken.NewDistributor(w)
			d.MaxBatchSize = a.st.MaxBatchSize
			d.Logf = logging.Logf(a.logger)
			res, err := d.DistributeBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			printOutcome(cmd, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned batch without sending")
	return cmd
}

func printOutcome(cmd *cobra.Command, res rewardtoken.DistributionOutcome) {
	out := cmd.OutOrStdout()
	for i, to := range res.Recipients {
		fmt.Fprintf(out, "  %s  %s tokens\n", to.Hex(), rewardtoken.FormatUnits(res.Amounts[i]))
	}
	for _, s := range res.Skips {
		fmt.Fprintf(out, "  skip #%d %q: %s\n", s.Index, s.Address, s.Reason)
	}
	fmt.Fprintf(out, "processed=%d skipped=%d\n", res.Processed, res.Skipped)
	if res.TxHash != nil {
		fmt.Fprintf(out, "tx: %s\n", res.TxHash.Hex())
	} else if res.Processed == 0 {
		fmt.Fprintln(out, "no qualifying rewards; nothing sent")
	}
}

func newMintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <address> <tokens>",
		Short: "Mint tokens to address (contract owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := rewardtoken.ParseUnits(args[1])
			if err != nil {
				return err
			}
			w, ec, err := a.writer(cmd.Context())
			if err != nil {
				return err
			}
			defer ec.Close()

			tx, err := w.Mint(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Minted %s tokens to %s\ntx: %s\n", rewardtoken.FormatUnits(amount), args[0], tx.Hash().Hex())
			return nil
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Print the token balance of address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ec, err := a.reader(cmd.Context())
			if err != nil {
				return err
			}
			defer ec.Close()
			bal, err := r.Balance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bal)
			return nil
		},
	}
}

func newSupplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Print the token's total supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ec, err := a.reader(cmd.Context())
			if err != nil {
				return err
			}
			defer ec.Close()
			s, err := r.TotalSupply(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
}
