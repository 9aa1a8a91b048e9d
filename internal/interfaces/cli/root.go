// Package cli implements the chequeguard command line. Every command reads
// one portfolio snapshot, either from PostgreSQL or from a JSON export given
// with --input, and prints a table or JSON.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Input        string
	AsOf         string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
// Data services are opened on first use so that commands such as version
// and migrate never touch the snapshot source.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string

	opts    *RootOptions
	cancel  context.CancelFunc
	backend *backend
}

// Services returns the tracking and reporting services, opening the
// snapshot source on first call.
func (c *CLIContext) Services(ctx context.Context) (tracking.Service, reporting.Service, error) {
	if c.backend == nil {
		b, err := openBackend(ctx, c.Config, c.opts, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		c.backend = b
	}
	return c.backend.tracking, c.backend.reporting, nil
}

// Close releases whatever the command opened.
func (c *CLIContext) Close() {
	if c.backend != nil {
		c.backend.close()
		c.backend = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.Logger.Sync()
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chequeguard",
		Short: "ChequeGuard CLI for dishonored cheque deadlines",
		Long: "ChequeGuard tracks the statutory deadlines that follow a dishonored cheque:\n" +
			"dishonor within 180 days of the cheque date, legal notice within 30 days of\n" +
			"dishonor and case filing within 60 days of the notice.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./chequeguard.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputTable, "output format (table, json)")
	pf.StringVarP(&opts.Input, "input", "i", "", "read the portfolio from a JSON export instead of PostgreSQL")
	pf.StringVar(&opts.AsOf, "as-of", "", "evaluate deadlines as of this date (YYYY-MM-DD) instead of today")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "global operation timeout")

	cmd.AddCommand(
		newAlertsCmd(),
		newStagesCmd(),
		newReportCmd(),
		newExportCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	format := strings.ToLower(opts.OutputFormat)
	if format != OutputTable && format != OutputJSON {
		return errors.InvalidParam("unsupported output format").WithDetail("value=" + opts.OutputFormat)
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "config initialization failed")
	}

	logger, err := initLogger(opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "logger initialization failed")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: format,
		opts:         opts,
	}
	if opts.Timeout > 0 {
		ctx, cliCtx.cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: flags > env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./chequeguard.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".chequeguard", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/chequeguard/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger creates a logger configured for CLI usage (output to stderr).
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Run executes args against a fresh command tree.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if cmd != nil {
		if cliCtx, cerr := GetCLIContext(cmd); cerr == nil {
			cliCtx.Close()
		}
	}
	if err != nil {
		PrintError(stderr, err)
	}
	return err
}

// Execute is the main entry point for the CLI application.
func Execute(ctx context.Context) error {
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
