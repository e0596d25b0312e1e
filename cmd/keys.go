// file: cmd/keys.go
// version: 1.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/jdfalk/hardcover-provider/internal/config"
	"github.com/jdfalk/hardcover-provider/internal/credentials"
	"github.com/spf13/cobra"
)

var (
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Inspect and mint upstream credentials",
		Long:  "Utilities for the Hardcover credential file used by the serve command.",
	}

	keysListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored credentials with masked keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentials.NewFileStore(config.AppConfig.Credentials.File)
			return runKeysList(cmd.OutOrStdout(), store, clock.Real{}.Now())
		},
	}

	keysMintCmd = &cobra.Command{
		Use:   "mint",
		Short: "Mint new credentials and append them to the credential file",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			cfg := config.AppConfig
			minter := credentials.NewHTTPMinter(cfg.Credentials.MintURL, cfg.Hardcover.UserAgent, cfg.Credentials.MintTimeout)
			store := credentials.NewFileStore(cfg.Credentials.File)
			return runKeysMint(cmd.Context(), cmd.OutOrStdout(), cfg.Credentials, store, minter, clock.Real{}, count)
		},
	}
)

func init() {
	keysMintCmd.Flags().Int("count", 1, "Number of credentials to mint")

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysMintCmd)
}

func runKeysList(out io.Writer, store credentials.Store, now time.Time) error {
	creds, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if len(creds) == 0 {
		fmt.Fprintln(out, "No credentials stored.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCAP\tEXPIRES\tSTATUS")
	for _, c := range creds {
		status := "live"
		if c.Expired(now) {
			status = "expired"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Masked(), c.Cap, c.ExpiresAt.Format(time.RFC3339), status)
	}
	return w.Flush()
}

func runKeysMint(ctx context.Context, out io.Writer, cfg config.CredentialsConfig, store credentials.Store, minter credentials.Minter, clk clock.Clock, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool := credentials.NewPool(minter, store, credentials.Options{
		Cap:         cfg.Cap,
		Validity:    cfg.Validity,
		ResetWindow: cfg.ResetWindow,
		MintTimeout: cfg.MintTimeout,
		Clock:       clk,
	})

	// Bootstrap mints one credential itself when nothing live is stored.
	before := liveCount(store, clk.Now())
	if err := pool.Bootstrap(ctx); err != nil {
		return err
	}
	minted := 0
	if before == 0 {
		minted = pool.Len()
	}
	for minted < count {
		if _, err := pool.Mint(ctx); err != nil {
			return err
		}
		minted++
	}

	fmt.Fprintf(out, "Minted %d credential(s); %d stored in %s\n", minted, pool.Len(), cfg.File)
	return nil
}

func liveCount(store credentials.Store, now time.Time) int {
	creds, err := store.Load()
	if err != nil {
		return 0
	}
	n := 0
	for _, c := range creds {
		if !c.Expired(now) {
			n++
		}
	}
	return n
}
