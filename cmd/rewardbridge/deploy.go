package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/logging"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

func newDeployCmd(a *app) *cobra.Command {
	var (
		artifact      string
		confirmations int
		skipVerify    bool
	)
	cmd := &cobra.Command{
		Use:   "deploy [owner]",
		Short: "Deploy RewardToken(owner), print its details and verify it",
		Long: "Deploys the compiled token from a Hardhat or Foundry artifact, waits for confirmations\n" +
			"and submits the source to the explorer. owner defaults to OWNER_ADDRESS.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerHex := a.st.OwnerAddress
			if len(args) > 0 {
				ownerHex = args[0]
			}
			if ownerHex == "" {
				return errors.New("owner address required: pass it or set OWNER_ADDRESS")
			}
			if artifact == "" {
				artifact = a.st.DeployArtifact
			}
			raw, err := os.ReadFile(artifact)
			if err != nil {
				return err
			}
			code, err := rewardtoken.ParseBytecode(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", artifact, err)
			}
			if err := a.ensureKey(); err != nil {
				return err
			}
			cfg, err := a.st.Contract()
			if err != nil {
				return err
			}
			deployer, _ := cfg.Sender()

			ctx := cmd.Context()
			ec, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer ec.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Deploying from address:", deployer.Hex())
			fmt.Fprintln(out, "Owner address:         ", ownerHex)
			bal, err := ec.BalanceAt(ctx, deployer, nil)
			if err != nil {
				return fmt.Errorf("deployer balance: %w", err)
			}
			fmt.Fprintf(out, "Deployer balance:       %s ETH\n", rewardtoken.FormatUnits(bal))
			if bal.Sign() == 0 {
				return errors.New("deployer has no ETH balance; fund the account first")
			}

			if !cmd.Flags().Changed("confirmations") {
				confirmations = a.st.DeployConfirmations
			}
			d := rewardtoken.NewDeployer(cfg, ec)
			d.Confirmations = uint64(max(confirmations, 1))
			d.SetGasBufferPct(a.st.GasBufferPct)
			d.Logf = logging.Logf(a.logger)
			dep, err := d.Deploy(ctx, code, ownerHex)
			if dep != nil {
				fmt.Fprintln(out, "RewardToken deployed to:", dep.Address.Hex())
				fmt.Fprintln(out, "tx:", dep.Tx.Hash().Hex())
			}
			if err != nil {
				return err
			}

			r := rewardtoken.NewReader(dep.Config, ec)
			det, err := r.Details(ctx)
			if err != nil {
				return fmt.Errorf("read deployed token: %w", err)
			}
			ownerBal, err := r.Balance(ctx, ownerHex)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nContract details:")
			fmt.Fprintln(out, "  Name:         ", det.Name)
			fmt.Fprintln(out, "  Symbol:       ", det.Symbol)
			fmt.Fprintln(out, "  Total supply: ", rewardtoken.FormatUnits(det.TotalSupply))
			fmt.Fprintln(out, "  Max supply:   ", rewardtoken.FormatUnits(det.MaxSupply))
			fmt.Fprintln(out, "  Decimals:     ", rewardtoken.Decimals)
			fmt.Fprintln(out, "  Owner balance:", ownerBal)

			if !skipVerify {
				fmt.Fprintln(out, "\nVerifying contract source...")
				// The deployment stands even when verification fails.
				if err := a.verifyContract(cmd, dep.Address, dep.Owner); err != nil {
					a.logger.Warn("verification failed", "contract", dep.Address.Hex(), "err", err)
				}
			}

			fmt.Fprintln(out, "\nSet REWARD_TOKEN_ADDRESS to use this contract:")
			fmt.Fprintf(out, "REWARD_TOKEN_ADDRESS=%s\n", dep.Address.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&artifact, "artifact", "", "compiled contract artifact (default DEPLOY_ARTIFACT)")
	cmd.Flags().IntVar(&confirmations, "confirmations", rewardtoken.DefaultConfirmations, "blocks to wait for before verifying; DEPLOY_CONFIRMATIONS when not given")
	cmd.Flags().BoolVar(&skipVerify, "no-verify", false, "skip source verification")
	return cmd
}
