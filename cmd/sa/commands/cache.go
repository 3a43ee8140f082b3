package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/ui/style"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the shared content cache",
	}
	cmd.AddCommand(c.newCacheStatsCmd(), c.newCacheVerifyCmd(), c.newCacheGCCmd(), c.newCacheDirCmd())
	return cmd
}

func (c *CLI) newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.app.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, style.Heading("Cache"))
			_, _ = fmt.Fprintf(w, "  root:     %s\n", stats.Root)
			_, _ = fmt.Fprintf(w, "  entries:  %d\n", stats.Entries)
			_, _ = fmt.Fprintf(w, "  archives: %s\n", formatBytes(stats.ArchiveBytes))
			_, _ = fmt.Fprintf(w, "  temp:     %d\n", stats.TempFiles)
			return nil
		},
	}
}

func (c *CLI) newCacheVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash cached archives and evict corrupt entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.CacheVerify(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s Checked %d entries\n", style.Check, report.Checked)
			for _, d := range report.Corrupt {
				_, _ = fmt.Fprintf(w, "  %s corrupt %s\n", style.Cross, d)
			}
			for _, d := range report.Missing {
				_, _ = fmt.Fprintf(w, "  %s missing %s\n", style.Warning, d)
			}
			return nil
		},
	}
}

func (c *CLI) newCacheGCCmd() *cobra.Command {
	var (
		retention time.Duration
		keep      []string
	)
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove cache entries no project uses",
		Long: "Remove cache entries that are not locked by any --keep project and have not\n" +
			"been used within the retention period.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.CacheGC(cmd.Context(), app.GCOptions{Dirs: keep, Retention: retention})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %d entries and %d temp files, freed %s\n",
				style.Check, len(report.Removed), report.TempFiles, formatBytes(report.FreedBytes))
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 0, "Keep entries used within this period (default from config)")
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "Project directory whose locked artifacts are kept (repeatable)")
	return cmd
}

func (c *CLI) newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), c.app.CacheDir())
		},
	}
}
