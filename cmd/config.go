// file: cmd/config.go
// version: 1.0.0
// guid: 8f0b2d4e-6a8c-4e0b-9d2f-4a6c8e0b2d4f

package cmd

import (
	"fmt"

	"github.com/jdfalk/hardcover-provider/internal/config"
	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show or write the effective configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			showSecrets, _ := cmd.Flags().GetBool("show-secrets")
			data, err := config.Render(config.AppConfig, showSecrets)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a new YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ".hardcover-provider.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfigToFile(config.AppConfig, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
)

func init() {
	configShowCmd.Flags().Bool("show-secrets", false, "Print the search key and API key hashes unmasked")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
