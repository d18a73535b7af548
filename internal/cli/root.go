// Package cli implements the companywise command line: browsing company
// problem tables, tracking completions and streaks, exporting views and
// serving the HTTP API.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"companywise/internal/app"
	"companywise/internal/config"
	apierrors "companywise/internal/errors"
	"companywise/internal/infrastructure"
)

// Runner holds what every command needs. Zero-valued fields fall back to
// the process defaults.
type Runner struct {
	// Load returns the configuration. Defaults to config.Load.
	Load func() (*config.Config, error)
	// Logger is used instead of the global logger when set.
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer

	identity   string
	logLevel   string
	configFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand(r *Runner) *cobra.Command {
	if r.Load == nil {
		r.Load = config.Load
	}
	if r.Out == nil {
		r.Out = os.Stdout
	}
	if r.Err == nil {
		r.Err = os.Stderr
	}

	root := &cobra.Command{
		Use:   "companywise",
		Short: "Browse company-wise LeetCode problems and track your practice",
		Long: `companywise browses the company-wise LeetCode problem lists, filters
and sorts them, and keeps a per-identity record of completed problems,
practice days and the daily visit streak.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       config.AppVersion,
	}
	root.SetOut(r.Out)
	root.SetErr(r.Err)

	root.PersistentFlags().StringVarP(&r.identity, "identity", "i", "",
		"identity (email) whose progress to use; empty is anonymous")
	root.PersistentFlags().StringVarP(&r.configFile, "config", "c", "", "config file (overrides $"+config.ConfigFileEnv+")")
	root.PersistentFlags().StringVar(&r.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(r),
		newCompaniesCommand(r),
		newWindowsCommand(r),
		newProblemsCommand(r),
		newSummaryCommand(r),
		newToggleCommand(r),
		newStreakCommand(r),
		newCalendarCommand(r),
		newExportCommand(r),
		newMigrateCommand(r),
		newValidateCommand(r),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	r := &Runner{}
	root := NewRootCommand(r)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(r.Err, "Error:", err)
	}
	return exitCode(err)
}

// exitCode is 2 for configuration errors and 1 for any other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apierrors.IsType(err, apierrors.ErrTypeConfig):
		return 2
	}
	return 1
}

// Identity is the normalized --identity flag.
func (r *Runner) Identity() string {
	return strings.ToLower(strings.TrimSpace(r.identity))
}

func (r *Runner) config() (*config.Config, error) {
	if r.configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, r.configFile); err != nil {
			return nil, fmt.Errorf("set config file: %w", err)
		}
	}
	cfg, err := r.Load()
	if err != nil {
		return nil, err
	}
	if r.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(r.logLevel)
	}
	return cfg, nil
}

func (r *Runner) logger(cfg *config.Config) (*slog.Logger, error) {
	if r.Logger != nil {
		return r.Logger, nil
	}
	return infrastructure.InitializeLoggerTo(cfg.Logging, r.Err)
}

// withApp builds the application, runs fn and releases it. The HTTP server
// is never started.
func (r *Runner) withApp(ctx context.Context, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := r.config()
	if err != nil {
		return err
	}
	logger, err := r.logger(cfg)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func newServeCommand(r *Runner) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the websocket feed and the browser page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.config()
			if err != nil {
				return err
			}
			// serve logs at info unless the flag was given explicitly.
			if !cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = "info"
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			logger, err := r.logger(cfg)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides CW_SERVER_PORT)")
	return cmd
}
