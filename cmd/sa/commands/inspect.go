package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/ui/style"
	"go.trai.ch/zerr"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	var (
		opts   app.GraphOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "graph [package]",
		Short: "Print the locked dependency graph in DOT format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			opts.Dir = c.dir
			if len(args) == 1 {
				opts.Package = args[0]
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, createErr := os.Create(output) //nolint:gosec // path comes from the command line
				if createErr != nil {
					return domain.FilesystemError(createErr, "create", output)
				}
				defer func() { err = errors.Join(err, f.Close()) }()
				w = f
			}
			return c.app.Graph(cmd.Context(), w, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Transitive, "transitive", true, "Follow dependencies past the first level")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the graph to a file instead of stdout")
	return cmd
}

// ErrUnknownFormat is returned when list is asked for an output format it
// does not support.
var ErrUnknownFormat = zerr.New("unknown output format")

// List output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

func (c *CLI) newListCmd() *cobra.Command {
	var (
		env      string
		showTree bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the locked packages and their install state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatTable && format != formatJSON {
				return zerr.With(zerr.Wrap(ErrUnknownFormat, "list"), "format", format)
			}
			res, err := c.app.List(cmd.Context(), app.ListOptions{Dir: c.dir, Env: env})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch {
			case format == formatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case showTree:
				_, _ = fmt.Fprintln(w, renderTree(res))
			default:
				printPackages(w, res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "Environment directory (default: <project>/.venv)")
	cmd.Flags().BoolVar(&showTree, "tree", false, "Show the dependency tree from the project requirements")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func printPackages(w io.Writer, res *app.ListResult) {
	rows := make([][]string, 0, len(res.Packages))
	for _, p := range res.Packages {
		state := style.Check
		switch {
		case p.Installed == "":
			state = style.Cross
		case p.Installed != p.Version:
			state = style.Warning + " " + p.Installed
		}
		direct := ""
		if p.Direct {
			direct = style.Dot
		}
		rows = append(rows, []string{p.Name, p.Version, direct, state})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PACKAGE", "VERSION", "DIRECT", "INSTALLED").
		Rows(rows...)
	_, _ = fmt.Fprintln(w, style.Heading(fmt.Sprintf("%d packages locked in %s", len(res.Packages), res.Lock)))
	_, _ = fmt.Fprintln(w, t.Render())
}

// renderTree draws each direct requirement with its dependencies beneath it.
// A package expanded earlier is shown again without its children and marked
// with "(*)", which also stops cycles.
func renderTree(res *app.ListResult) string {
	root := tree.Root(style.Heading(res.Lock))
	expanded := make(map[string]bool)

	var add func(parent *tree.Tree, name string)
	add = func(parent *tree.Tree, name string) {
		p, ok := res.Package(name)
		if !ok {
			return
		}
		label := p.Name + " " + p.Version
		if expanded[name] {
			if len(p.Dependencies) > 0 {
				label += " (*)"
			}
			parent.Child(label)
			return
		}
		expanded[name] = true
		if len(p.Dependencies) == 0 {
			parent.Child(label)
			return
		}
		node := tree.Root(label)
		for _, dep := range p.Dependencies {
			add(node, dep)
		}
		parent.Child(node)
	}
	for _, p := range res.Packages {
		if p.Direct {
			add(root, p.Name)
		}
	}
	return root.String()
}

func (c *CLI) newAuditCmd() *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check locked packages against an advisory database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			findings, err := c.app.Audit(cmd.Context(), app.AuditOptions{Dir: c.dir, Database: db})
			w := cmd.OutOrStdout()
			switch {
			case len(findings) > 0:
				printFindings(w, findings)
			case err == nil:
				_, _ = fmt.Fprintf(w, "%s No known vulnerabilities\n", style.Check)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "Advisory database file or URL (default: <cache>/"+app.AdvisoryDBFileName+")")
	return cmd
}

func printFindings(w io.Writer, findings []domain.Finding) {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		fixed := make([]string, 0, len(f.Advisory.FixedIn))
		for _, v := range f.Advisory.FixedIn {
			fixed = append(fixed, v.String())
		}
		rows = append(rows, []string{
			f.Package.String(),
			f.Version.String(),
			f.Advisory.ID,
			f.Advisory.Severity,
			strings.Join(fixed, ", "),
			f.Advisory.Summary,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PACKAGE", "VERSION", "ID", "SEVERITY", "FIXED IN", "SUMMARY").
		Rows(rows...)
	_, _ = fmt.Fprintln(w, style.Heading(fmt.Sprintf("%s %d advisories match locked packages", style.Warning, len(findings))))
	_, _ = fmt.Fprintln(w, t.Render())
}
