// file: cmd/cache.go
// version: 1.0.0
// guid: 4b6d8f0a-2c4e-4f6a-9b8d-0f2a4c6e8b0d

package cmd

import (
	"fmt"
	"io"

	"github.com/jdfalk/hardcover-provider/internal/cache"
	"github.com/jdfalk/hardcover-provider/internal/clock"
	"github.com/jdfalk/hardcover-provider/internal/config"
	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache",
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show entry count and size of the durable cache tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			tiered, err := openCache(config.AppConfig, clock.Real{})
			if err != nil {
				return err
			}
			defer tiered.Close()
			return runCacheStats(cmd.OutOrStdout(), tiered, config.AppConfig.Cache)
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
}

func runCacheStats(out io.Writer, tiered *cache.TieredCache, cfg config.CacheConfig) error {
	stats, err := tiered.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	fmt.Fprintf(out, "Backend:   %s (%s)\n", cfg.Backend, cfg.Dir)
	fmt.Fprintf(out, "Entries:   %d\n", stats.ColdEntries)
	fmt.Fprintf(out, "Size:      %s of %s\n", formatBytes(stats.ColdBytes), formatBytes(cfg.FileLimit))
	fmt.Fprintf(out, "Memory:    %s limit\n", formatBytes(cfg.MemoryLimit))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
