package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/ui/style"
)

func (c *CLI) newMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the package index mirrors in the global config",
	}
	cmd.AddCommand(c.newMirrorListCmd(), c.newMirrorAddCmd(), c.newMirrorRemoveCmd(), c.newMirrorTestCmd())
	return cmd
}

func (c *CLI) newMirrorListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured mirrors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mirrors, err := c.app.Mirrors()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(mirrors) == 0 {
				_, _ = fmt.Fprintln(w, "No mirrors configured")
				return nil
			}
			t := table.New().Border(lipgloss.NormalBorder()).Headers("NAME", "URL")
			for _, m := range mirrors {
				t.Row(m.Name, m.URL)
			}
			_, _ = fmt.Fprintln(w, t.Render())
			return nil
		},
	}
}

func (c *CLI) newMirrorAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a mirror",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.AddMirror(args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Added mirror %s\n", style.Plus, args[0])
			return nil
		},
	}
}

func (c *CLI) newMirrorRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a mirror",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.RemoveMirror(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Removed mirror %s\n", style.Minus, args[0])
			return nil
		},
	}
}

func (c *CLI) newMirrorTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <name>",
		Short: "Check that a mirror answers index requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := c.app.TestMirror(cmd.Context(), args[0])
			w := cmd.OutOrStdout()
			if err != nil {
				_, _ = fmt.Fprintf(w, "%s %s unreachable after %s\n", style.Cross, args[0], formatLatency(status.Latency))
				return err
			}
			_, _ = fmt.Fprintf(w, "%s %s (%s) listed %d versions of %s in %s\n",
				style.Check, status.Mirror.Name, status.Mirror.URL, status.Versions, app.ProbePackage, formatLatency(status.Latency))
			return nil
		},
	}
}
