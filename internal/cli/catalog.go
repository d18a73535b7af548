package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"companywise/internal/app"
	"companywise/internal/problems"
	"companywise/internal/services"
)

func newCompaniesCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "companies [search]",
		Short: "List companies, optionally filtered by a substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			search := ""
			if len(args) == 1 {
				search = args[0]
			}
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				names, err := a.Services.Catalog.Companies(ctx, search)
				if err != nil {
					return fmt.Errorf("failed to load companies: %w", err)
				}
				for _, name := range names {
					fmt.Fprintln(r.Out, name)
				}
				fmt.Fprintln(r.Out, mutedStyle.Render(fmt.Sprintf("%d companies", len(names))))
				return nil
			})
		},
	}
}

func newWindowsCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List the time windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(mutedStyle).
				Headers("#", "ID", "LABEL", "FILE").
				StyleFunc(plainStyle)
			for _, w := range problems.Windows() {
				label := w.Label
				if w == problems.DefaultWindow {
					label += " (default)"
				}
				t.Row(strconv.Itoa(w.Ordinal), w.ID, label, w.FileName)
			}
			fmt.Fprintln(r.Out, t.String())
			return nil
		},
	}
}

// viewFlags are the view controls shared by problems, summary and export.
type viewFlags struct {
	window     string
	difficulty string
	search     string
	sort       string
	desc       bool
}

func (f *viewFlags) register(cmd *cobra.Command, withSort bool) {
	cmd.Flags().StringVarP(&f.window, "window", "w", problems.DefaultWindow.ID, "time window id, ordinal or label")
	cmd.Flags().StringVarP(&f.difficulty, "difficulty", "d", "all", "difficulty filter (all, easy, medium, hard)")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive search over title and topics")
	if withSort {
		cmd.Flags().StringVar(&f.sort, "sort", "", "sort column (difficulty, title, frequency, acceptance)")
		cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	}
}

func (f *viewFlags) parse() (problems.Window, problems.ViewState, error) {
	window, err := problems.ParseWindow(f.window)
	if err != nil {
		return problems.Window{}, problems.ViewState{}, err
	}
	state := problems.DefaultViewState()
	d, ok := problems.ParseDifficultyFilter(f.difficulty)
	if !ok {
		return problems.Window{}, problems.ViewState{}, fmt.Errorf("unknown difficulty %q", f.difficulty)
	}
	state.Difficulty = d
	state.Search = f.search

	column, err := problems.ParseColumn(f.sort)
	if err != nil {
		return problems.Window{}, problems.ViewState{}, err
	}
	if column != problems.ColumnNone {
		state.Sort = state.Sort.Toggle(column)
		if f.desc {
			state.Sort = state.Sort.Toggle(column)
		}
	}
	return window, state, nil
}

// browse drives a Browser through the same steps a user would take:
// select the company, pick the window, then apply filter, search and sort.
func (r *Runner) browse(ctx context.Context, a *app.Application, company string, f *viewFlags) (services.BrowserSnapshot, error) {
	window, state, err := f.parse()
	if err != nil {
		return services.BrowserSnapshot{}, err
	}

	b := services.NewBrowser(ctx, a.Services.Catalog, a.Services.Progress, r.Identity())
	snap, err := b.SelectCompany(ctx, company)
	if err == nil && window != problems.DefaultWindow {
		snap, err = b.SelectWindow(ctx, window)
	}
	if err != nil {
		return services.BrowserSnapshot{}, fmt.Errorf("failed to load problems: %w", err)
	}

	snap = b.SetDifficulty(ctx, state.Difficulty)
	snap = b.SetSearch(ctx, state.Search)
	if state.Sort.Column != problems.ColumnNone {
		snap = b.ToggleSort(ctx, state.Sort.Column)
		if !state.Sort.Ascending {
			snap = b.ToggleSort(ctx, state.Sort.Column)
		}
	}
	return snap, nil
}

func newProblemsCommand(r *Runner) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "problems <company>",
		Short: "Show a company's problems for a time window",
		Example: `  companywise problems Google --window three-months --difficulty hard
  companywise problems "Jane Street" --search graph --sort frequency --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				snap, err := r.browse(ctx, a, args[0], &f)
				if err != nil {
					return err
				}
				renderProblems(r.Out, snap)
				return nil
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func sortMarker(state problems.ViewState, column problems.Column, label string) string {
	if state.Sort.Column != column {
		return label
	}
	if state.Sort.Ascending {
		return label + " ▲"
	}
	return label + " ▼"
}

func renderProblems(w io.Writer, snap services.BrowserSnapshot) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s · %s", snap.Company, snap.Window.Label)))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(
			"",
			sortMarker(snap.State, problems.ColumnDifficulty, "DIFFICULTY"),
			sortMarker(snap.State, problems.ColumnTitle, "TITLE"),
			sortMarker(snap.State, problems.ColumnFrequency, "FREQUENCY"),
			sortMarker(snap.State, problems.ColumnAcceptance, "ACCEPTANCE"),
			"TOPICS",
		).
		StyleFunc(plainStyle)
	for _, row := range snap.Rows {
		t.Row(
			checkmark(row.Completed),
			difficultyLabel(row.Record.Difficulty),
			row.Record.Title,
			strconv.FormatFloat(row.Record.Frequency, 'f', 1, 64),
			rate(row.Record.AcceptanceRate),
			strings.Join(row.Record.Topics, ", "),
		)
	}
	fmt.Fprintln(w, t.String())

	fmt.Fprintf(w, "Showing %d of %d problems\n", snap.Count, snap.Total)
	fmt.Fprintf(w, "Solved %d/%d (%.0f%%) · streak %s\n",
		snap.Summary.Solved, snap.Summary.Total, snap.Summary.Percent, streakLabel(snap.Streak))
}

func plainStyle(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return cellStyle
}

func newSummaryCommand(r *Runner) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "summary <company>",
		Short: "Show solved counts by difficulty for a company's visible problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				snap, err := r.browse(ctx, a, args[0], &f)
				if err != nil {
					return err
				}
				renderSummary(r.Out, snap)
				return nil
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func renderSummary(w io.Writer, snap services.BrowserSnapshot) {
	sum := snap.Summary
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s · %s", snap.Company, snap.Window.Label)),
		fmt.Sprintf("%-7s %s %d/%d (%.0f%%)", "Total", bar(sum.Solved, sum.Total, 20), sum.Solved, sum.Total, sum.Percent),
	}
	for _, d := range []problems.Difficulty{problems.Easy, problems.Medium, problems.Hard} {
		tally := sum.ByDifficulty[d]
		label := difficultyStyles[d].Render(fmt.Sprintf("%-7s", capitalize(string(d))))
		lines = append(lines, fmt.Sprintf("%s %s %d/%d", label, bar(tally.Solved, tally.Total, 20), tally.Solved, tally.Total))
	}
	lines = append(lines, fmt.Sprintf("Streak  %s", streakLabel(snap.Streak)))
	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
}

func streakLabel(days int) string {
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return goldStyle.Render(fmt.Sprintf("%d %s", days, unit))
}
