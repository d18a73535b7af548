package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"companywise/internal/app"
	"companywise/internal/exporter"
	"companywise/internal/services"
	"companywise/internal/validation"
)

func newExportCommand(r *Runner) *cobra.Command {
	var (
		f      viewFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <company>",
		Short: "Export a company's filtered problems with completion flags",
		Long: `Export writes the filtered and sorted view of a company table, with a
completed column for --identity, as CSV or XLSX. Relative --out paths are
placed in the exports directory; "-" writes to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			window, state, err := f.parse()
			if err != nil {
				return err
			}
			q := services.ProblemQuery{Company: args[0], Window: window, View: state}

			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				if out == "-" {
					_, err := a.Services.Export.Write(ctx, r.Out, r.Identity(), q, exportFormat)
					return err
				}
				path, err := a.Services.Export.WriteFile(ctx, r.Identity(), q, exportFormat, out)
				if err != nil {
					return fmt.Errorf("export failed: %w", err)
				}
				fmt.Fprintf(r.Out, "Exported %s\n", path)
				return nil
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format (csv, xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: <company>-<window>.<format> in the exports directory)")
	return cmd
}

func newValidateCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check a local data directory for companies and window tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.config()
			if err != nil {
				return err
			}
			logger, err := r.logger(cfg)
			if err != nil {
				return err
			}

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				paths, err := cfg.ResolvePaths()
				if err != nil {
					return err
				}
				dir = paths.DataDir
			}

			report, err := validation.NewFileValidator(logger).ValidateDataDirectory(filepath.Clean(dir))
			if err != nil {
				return err
			}
			fmt.Fprintln(r.Out, titleStyle.Render(report.Dir))
			fmt.Fprintf(r.Out, "companies.json: %v\n", report.HasIndex)
			fmt.Fprintf(r.Out, "Companies: %d\n", report.Companies)
			fmt.Fprintf(r.Out, "Tables: %d\n", report.Tables)
			if len(report.Missing) == 0 {
				fmt.Fprintln(r.Out, goodStyle.Render("All window tables present"))
				return nil
			}
			fmt.Fprintf(r.Out, "Missing %d tables:\n", len(report.Missing))
			for _, m := range report.Missing {
				fmt.Fprintln(r.Out, mutedStyle.Render("  "+m))
			}
			return nil
		},
	}
}
