package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/ui/style"
)

func (c *CLI) newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve pyproject.toml and write sa.lock",
		Args:  cobra.NoArgs,
	}
	lockOpts := c.lockFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		res, err := c.app.Lock(cmd.Context(), lockOpts())
		if err != nil {
			return err
		}
		printLock(cmd.OutOrStdout(), res)
		return nil
	}
	return cmd
}

func (c *CLI) newSyncCmd() *cobra.Command {
	var (
		env    string
		frozen bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Install the locked packages into the environment",
		Args:  cobra.NoArgs,
	}
	lockOpts := c.lockFlags(cmd)
	cmd.Flags().StringVar(&env, "env", "", "Environment directory (default: <project>/.venv)")
	cmd.Flags().BoolVar(&frozen, "frozen", false, "Install from sa.lock without re-resolving")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		res, err := c.app.Sync(cmd.Context(), app.SyncOptions{
			LockOptions: lockOpts(),
			Env:         env,
			Frozen:      frozen,
		})
		printSync(cmd.OutOrStdout(), res, !frozen)
		return err
	}
	return cmd
}

func (c *CLI) newAddCmd() *cobra.Command {
	var (
		env    string
		noSync bool
	)
	cmd := &cobra.Command{
		Use:   "add <requirement>...",
		Short: "Add requirements to pyproject.toml, then lock and sync",
		Args:  cobra.MinimumNArgs(1),
	}
	lockOpts := c.lockFlags(cmd)
	cmd.Flags().StringVar(&env, "env", "", "Environment directory (default: <project>/.venv)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Only update pyproject.toml and sa.lock")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		res, err := c.app.Add(cmd.Context(), app.AddOptions{
			SyncOptions:  app.SyncOptions{LockOptions: lockOpts(), Env: env},
			Requirements: args,
			NoSync:       noSync,
		})
		printSync(cmd.OutOrStdout(), res, true)
		return err
	}
	return cmd
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	var (
		env        string
		noSync     bool
		cleanCache bool
	)
	cmd := &cobra.Command{
		Use:   "remove <package>...",
		Short: "Remove packages from pyproject.toml, then lock and sync",
		Args:  cobra.MinimumNArgs(1),
	}
	lockOpts := c.lockFlags(cmd)
	cmd.Flags().StringVar(&env, "env", "", "Environment directory (default: <project>/.venv)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Only update pyproject.toml and sa.lock")
	cmd.Flags().BoolVar(&cleanCache, "clean-cache", false, "Delete cached artifacts of packages no longer locked")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		res, err := c.app.Remove(cmd.Context(), app.RemoveOptions{
			SyncOptions: app.SyncOptions{LockOptions: lockOpts(), Env: env},
			Packages:    args,
			CleanCache:  cleanCache,
			NoSync:      noSync,
		})
		printRemove(cmd.OutOrStdout(), res)
		return err
	}
	return cmd
}

func printRemove(w io.Writer, res *app.RemoveResult) {
	if res == nil {
		return
	}
	if res.Lock != nil {
		printLock(w, res.Lock)
	}
	for _, name := range res.Uninstalled {
		_, _ = fmt.Fprintf(w, "  %s %s\n", style.Minus, name)
	}
	printSync(w, res.Sync, false)
	if n := len(res.Cleaned.Removed); n > 0 {
		_, _ = fmt.Fprintf(w, "%s Removed %d cached artifacts (%s)\n", style.Check, n, formatBytes(res.Cleaned.FreedBytes))
	}
}

func printLock(w io.Writer, res *app.LockResult) {
	if res.Unchanged {
		_, _ = fmt.Fprintf(w, "%s %s is up to date (%d packages)\n", style.Check, res.Path, len(res.Document.Packages))
		return
	}
	_, _ = fmt.Fprintf(w, "%s Locked %d packages in %s\n", style.Check, len(res.Document.Packages), res.Path)
}

func printSync(w io.Writer, res *app.SyncResult, showLock bool) {
	if res == nil {
		return
	}
	if showLock && res.Lock != nil {
		printLock(w, res.Lock)
	}
	if r := res.Report; r != nil {
		_, _ = fmt.Fprintf(w, "%s Installed %d packages into %s (linked %d, copied %d, unchanged %d)\n",
			style.Check, len(r.Installed), res.Env, r.Linked, r.Copied, r.Unchanged)
		for _, name := range r.Failed {
			_, _ = fmt.Fprintf(w, "  %s %s\n", style.Cross, name)
		}
	}
	for _, name := range res.Extraneous {
		_, _ = fmt.Fprintf(w, "  %s %s is installed but not locked\n", style.Warning, name)
	}
}
