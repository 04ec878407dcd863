package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/timesheet"
	"github.com/spf13/cobra"
)

func newTimesheetCmd(cfg *Config) *cobra.Command {
	var userFlag, teamFlag, fromFlag, toFlag string

	cmd := &cobra.Command{
		Use:   "timesheet",
		Short: "Print a user's timesheet",
		Long: `Prints one row per clock session started in the range, then the floored total.

Examples:
  timekeep timesheet --user 6f1c... --from 2025-03-01 --to 2025-03-08
  timekeep timesheet --user 6f1c... --team 0b7e...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			var teamID *uuid.UUID
			if teamFlag != "" {
				id, err := uuid.Parse(teamFlag)
				if err != nil {
					return fmt.Errorf("invalid --team: %w", err)
				}
				teamID = &id
			}

			loc := cfg.policy.Location
			r, err := parseRange(fromFlag, toFlag, time.Now().In(loc))
			if err != nil {
				return err
			}

			services, err := setupServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer services.Close()

			// the operator reads the sheet as the user it belongs to
			ctx := access.WithActor(cmd.Context(), userID)
			rows, err := services.Timesheet.ComputeSessionData(ctx, userID, teamID, r)
			if err != nil {
				return err
			}
			totals, err := services.Timesheet.TotalHours(ctx, userID, teamID, r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTimesheet(rows, totals, loc))
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&teamFlag, "team", "", "limit to one team")
	cmd.Flags().StringVar(&fromFlag, "from", "", "first day, YYYY-MM-DD (default: 7 days ago)")
	cmd.Flags().StringVar(&toFlag, "to", "", "last day, YYYY-MM-DD, inclusive (default: today)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// parseRange turns inclusive local days into a [from, to) millisecond range.
func parseRange(from, to string, now time.Time) (timesheet.DateRange, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	start := today.AddDate(0, 0, -6)
	if from != "" {
		d, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return timesheet.DateRange{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = d
	}
	end := today
	if to != "" {
		d, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return timesheet.DateRange{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = d
	}
	end = end.AddDate(0, 0, 1)

	if !end.After(start) {
		return timesheet.DateRange{}, fmt.Errorf("--to is before --from")
	}
	return timesheet.DateRange{From: models.Millis(start), To: models.Millis(end)}, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	openStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#04B575"))
	totalStyle  = lipgloss.NewStyle().Bold(true)
)

func renderTimesheet(rows []timesheet.SessionRow, totals *timesheet.Totals, loc *time.Location) string {
	data := make([][]string, 0, len(rows))
	open := make(map[int]bool)
	for i, r := range rows {
		end, duration := "running", "running"
		if r.EndTime != nil {
			end = models.FromMillis(*r.EndTime, loc).Format("15:04")
		}
		if r.Duration != nil {
			duration = models.FormatDuration(*r.Duration)
		} else {
			open[i] = true
		}

		var worked []string
		for _, t := range r.TicketsWorkedOn {
			title := t.Title
			if title == "" {
				title = t.TicketID.String()[:8]
			}
			worked = append(worked, fmt.Sprintf("%s (%s)", title, models.FormatDuration(t.DurationSeconds)))
		}

		data = append(data, []string{
			r.Date,
			models.FromMillis(r.StartTime, loc).Format("15:04"),
			end,
			duration,
			strings.Join(worked, "\n"),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case open[row]:
				return openStyle
			default:
				return cellStyle
			}
		}).
		Headers("DATE", "START", "END", "DURATION", "TICKETS").
		Rows(data...)

	total := totalStyle.Render(fmt.Sprintf("Total: %d min (%.2f h)", totals.Minutes, totals.Hours))
	return lipgloss.JoinVertical(lipgloss.Left, t.Render(), total)
}
