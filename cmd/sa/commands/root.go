// Package commands implements the CLI commands for the sa package manager.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/sa/internal/app"
	"go.trai.ch/sa/internal/build"
	"go.trai.ch/sa/internal/core/domain"
)

// Application represents the application logic interface.
type Application interface {
	Lock(ctx context.Context, opts app.LockOptions) (*app.LockResult, error)
	Sync(ctx context.Context, opts app.SyncOptions) (*app.SyncResult, error)
	Add(ctx context.Context, opts app.AddOptions) (*app.SyncResult, error)
	Remove(ctx context.Context, opts app.RemoveOptions) (*app.RemoveResult, error)
	List(ctx context.Context, opts app.ListOptions) (*app.ListResult, error)
	Graph(ctx context.Context, w io.Writer, opts app.GraphOptions) error
	Audit(ctx context.Context, opts app.AuditOptions) ([]domain.Finding, error)
	CacheDir() string
	CacheStats(ctx context.Context) (domain.CacheStats, error)
	CacheVerify(ctx context.Context) (domain.VerifyReport, error)
	CacheGC(ctx context.Context, opts app.GCOptions) (domain.GCReport, error)
	Mirrors() ([]domain.Index, error)
	AddMirror(name, rawURL string) error
	RemoveMirror(name string) error
	TestMirror(ctx context.Context, name string) (app.MirrorStatus, error)
}

// LogConfigurer is implemented by loggers that follow the global output flags.
type LogConfigurer interface {
	SetVerbose(enable bool)
	SetJSON(enable bool)
}

// MetricsWriter dumps collected metrics in the Prometheus textfile format.
type MetricsWriter interface {
	WriteTextfile(path string) error
}

// Option configures a CLI.
type Option func(*CLI)

// WithLogger applies --verbose and --log-json to l.
func WithLogger(l LogConfigurer) Option {
	return func(c *CLI) { c.logger = l }
}

// WithMetrics makes --metrics-file write m after each command.
func WithMetrics(m MetricsWriter) Option {
	return func(c *CLI) { c.metrics = m }
}

// CLI represents the command line interface for sa.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	logger  LogConfigurer
	metrics MetricsWriter

	dir         string
	verbose     bool
	logJSON     bool
	metricsFile string
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sa",
		Short:         "A fast, reproducible Python package manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Registered before the version flag so that -v stays --verbose.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.dir, "directory", "C", ".", "Run as if sa was started in this directory")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug messages")
	flags.BoolVar(&c.logJSON, "log-json", false, "Log JSON records instead of text")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if c.logger != nil {
			c.logger.SetJSON(c.logJSON)
			c.logger.SetVerbose(c.verbose)
		}
	}

	rootCmd.AddCommand(c.newLockCmd())
	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newAddCmd())
	rootCmd.AddCommand(c.newRemoveCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newGraphCmd())
	rootCmd.AddCommand(c.newAuditCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newMirrorCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context. Metrics are written
// even when the command fails.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if c.metricsFile != "" && c.metrics != nil {
		err = errors.Join(err, c.metrics.WriteTextfile(c.metricsFile))
	}
	return err
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func (c *CLI) lockFlags(cmd *cobra.Command) func() app.LockOptions {
	var opts app.LockOptions
	cmd.Flags().StringVar(&opts.Python, "python", "", "Target interpreter version, e.g. 3.12")
	cmd.Flags().StringVar(&opts.ABI, "abi", "", "Target ABI tag, e.g. cp312 (default derived from --python)")
	cmd.Flags().StringSliceVar(&opts.Platforms, "platform", nil, "Target platform tag, most preferred first (repeatable)")
	cmd.Flags().BoolVar(&opts.PreRelease, "pre", false, "Allow pre-release versions")
	cmd.Flags().StringSliceVarP(&opts.Groups, "group", "g", nil, "Include an optional-dependency group (repeatable)")
	return func() app.LockOptions {
		opts.Dir = c.dir
		return opts
	}
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

func formatLatency(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
