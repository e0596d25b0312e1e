// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jdfalk/hardcover-provider/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var cacheBackend string
var cacheDir string
var keysFile string
var enableSQLite bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hardcover-provider",
	Short: "Hardcover metadata provider for audiobook servers",
	Long: `Hardcover Provider answers book search requests from audiobook servers
using the Hardcover catalogue.

Responses are cached in memory and on disk, misses are rate limited per
caller, and upstream credentials are rotated and minted on demand.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hardcover-provider.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "file", "cold cache backend: file (default), pebble or sqlite")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "file_cache", "directory holding the cold cache")
	rootCmd.PersistentFlags().StringVar(&keysFile, "keys-file", "api_keys.txt", "file holding upstream credentials")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable the SQLite3 cache backend (WARNING: cross-compilation issues, file or pebble recommended)")

	viper.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache-backend"))
	viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("credentials.file", rootCmd.PersistentFlags().Lookup("keys-file"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".hardcover-provider")
	}

	viper.SetEnvPrefix("HARDCOVER_PROVIDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()
}
