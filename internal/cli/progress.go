package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"companywise/internal/app"
	"companywise/internal/progress"
	"companywise/internal/security"
)

func newToggleCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <title>",
		Short: "Mark a problem completed, or uncompleted if it already is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				input := security.NewInputValidator(nil)
				input.SetLogger(a.Logger)
				title := input.ValidateTitle(ctx, args[0])
				if err := title.Err(); err != nil {
					return err
				}
				res, err := a.Services.Progress.Toggle(ctx, r.Identity(), title.SanitizedValue)
				if err != nil {
					return err
				}
				if res.Completed {
					fmt.Fprintf(r.Out, "%s %s\n", checkmark(true), res.Title)
				} else {
					fmt.Fprintf(r.Out, "%s %s %s\n", checkmark(false), res.Title, mutedStyle.Render("(not completed)"))
				}
				fmt.Fprintf(r.Out, "%d completed · streak %s\n", len(res.State.CompletedTitles), streakLabel(res.State.StreakCount))
				return nil
			})
		},
	}
}

func newStreakCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Record today's visit and show the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				state, err := a.Services.Progress.Get(ctx, r.Identity())
				if err != nil {
					return err
				}
				last := "never"
				if state.LastVisitDate != nil {
					last = *state.LastVisitDate
				}
				fmt.Fprintf(r.Out, "Streak: %s\n", streakLabel(state.StreakCount))
				fmt.Fprintf(r.Out, "Completed: %d\n", len(state.CompletedTitles))
				fmt.Fprintf(r.Out, "Practice days: %d\n", len(state.PracticeDates))
				fmt.Fprintln(r.Out, mutedStyle.Render("Last visit: "+last))
				return nil
			})
		},
	}
}

func newCalendarCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [YYYY-MM]",
		Short: "Show the practice calendar for a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := ""
			if len(args) == 1 {
				month = args[0]
			}
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				cal, err := a.Services.Progress.Calendar(ctx, r.Identity(), month)
				if err != nil {
					return err
				}
				renderCalendar(r.Out, cal)
				return nil
			})
		},
	}
}

func renderCalendar(w io.Writer, cal progress.Calendar) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s %d", cal.Month, cal.Year)))

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("Su", "Mo", "Tu", "We", "Th", "Fr", "Sa").
		StyleFunc(plainStyle)

	week := make([]string, 0, 7)
	for i := 0; i < cal.Offset; i++ {
		week = append(week, "")
	}
	for _, day := range cal.Days {
		week = append(week, calendarCell(day))
		if len(week) == 7 {
			t.Row(week...)
			week = week[:0:0]
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, "")
		}
		t.Row(week...)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d practice days (* marks a practice day)\n", cal.PracticedDays)
}

func calendarCell(day progress.CalendarDay) string {
	label := strconv.Itoa(day.Day)
	if day.Practiced {
		label = goodStyle.Render(label + "*")
	}
	if day.Today {
		label = todayStyle.Render(label)
	}
	return label
}

func newMigrateCommand(r *Runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Merge anonymous progress into --identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.Identity() == "" {
				return fmt.Errorf("migrate needs --identity")
			}
			return r.withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
				res, err := a.Services.Progress.Migrate(ctx, r.Identity())
				if err != nil {
					return err
				}
				if !res.Merged {
					fmt.Fprintln(r.Out, "Nothing to migrate")
					return nil
				}
				fmt.Fprintf(r.Out, "Migrated anonymous progress into %s: %d completed, streak %s\n",
					r.Identity(), len(res.State.CompletedTitles), streakLabel(res.State.StreakCount))
				return nil
			})
		},
	}
}
