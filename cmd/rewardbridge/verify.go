package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/logging"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
	"github.com/ligun0805/reward-bridge/internal/verify"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [address] [owner]",
		Short: "Verify the token contract source on the block explorer",
		Long: "Submits the contract source to the explorer and retries transient failures.\n" +
			"address defaults to REWARD_TOKEN_ADDRESS and owner (the constructor argument) to OWNER_ADDRESS.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrHex, ownerHex := a.st.RewardTokenAddress, a.st.OwnerAddress
			if len(args) > 0 {
				addrHex = args[0]
			}
			if len(args) > 1 {
				ownerHex = args[1]
			}
			addr, err := rewardtoken.ParseAddress(addrHex)
			if err != nil {
				return fmt.Errorf("contract address: %w", err)
			}
			owner, err := rewardtoken.ParseAddress(ownerHex)
			if err != nil {
				return fmt.Errorf("owner address: %w", err)
			}
			return a.verifyContract(cmd, addr, owner)
		},
	}
}

// verifyContract submits the contract source and prints every attempt. On
// failure the manual verification hints are printed as well.
func (a *app) verifyContract(cmd *cobra.Command, addr, owner common.Address) error {
	if a.st.VerifySourceFile == "" {
		return fmt.Errorf("VERIFY_SOURCE_FILE is not set")
	}
	src, err := os.ReadFile(a.st.VerifySourceFile)
	if err != nil {
		return err
	}
	chainID, err := a.st.ChainIDBig()
	if err != nil {
		return err
	}
	var chain int64
	if chainID != nil {
		chain = chainID.Int64()
	}

	explorer, err := verify.NewExplorer(verify.ExplorerConfig{
		APIURL:            a.st.ExplorerAPIURL,
		APIKey:            a.st.ExplorerAPIKey,
		BrowserURL:        a.st.ExplorerBrowserURL,
		ChainID:           chain,
		RPS:               a.st.ExplorerRPS,
		PollInterval:      a.st.VerifyPollInterval,
		PollAttempts:      a.st.VerifyPollAttempts,
		SourceCode:        string(src),
		CodeFormat:        a.st.VerifyCodeFormat,
		CompilerVersion:   a.st.VerifyCompiler,
		ConstructorInputs: rewardtoken.ConstructorArguments(),
	})
	if err != nil {
		return err
	}
	v := verify.New(explorer, verify.Config{
		MaxAttempts: a.st.VerifyMaxAttempts,
		BaseDelay:   a.st.VerifyBaseDelay,
		Logf:        logging.Logf(a.logger),
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Contract: %s\nOwner:    %s\nSource:   %s\n", addr.Hex(), owner.Hex(), a.st.VerifySource)
	res, err := v.Verify(cmd.Context(), verify.Request{
		Address:         addr,
		ConstructorArgs: []any{owner},
		Source:          a.st.VerifySource,
	})
	for _, at := range res.Attempts {
		line := fmt.Sprintf("attempt %d: %s", at.Number, at.Outcome)
		if at.Err != nil {
			line += ": " + at.Err.Error()
		}
		if at.Wait > 0 {
			line += fmt.Sprintf(" (waited %s)", at.Wait)
		}
		fmt.Fprintln(out, line)
	}
	if err != nil {
		printManualHints(out, explorer, addr, owner, a.st.VerifySource)
		return err
	}
	switch res.Outcome {
	case verify.AlreadyVerified:
		fmt.Fprintln(out, "Contract is already verified.")
	default:
		fmt.Fprintln(out, "Contract verified.")
	}
	if u := explorer.AddressURL(addr); u != "" {
		fmt.Fprintln(out, u)
	}
	return nil
}

func printManualHints(out io.Writer, e *verify.Explorer, addr, owner common.Address, source string) {
	fmt.Fprintln(out, "\nVerification did not complete. To retry or verify manually:")
	fmt.Fprintln(out, "  1. Check network connectivity and the explorer API key")
	fmt.Fprintln(out, "  2. Try again later; the explorer may be under load")
	fmt.Fprintf(out, "  3. npx hardhat verify --network base --contract %s %s %s\n", source, addr.Hex(), owner.Hex())
	if u := e.AddressURL(addr); u != "" {
		fmt.Fprintf(out, "  4. Verify on the explorer website: %s\n", u)
	}
}
