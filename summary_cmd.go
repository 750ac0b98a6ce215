package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the day's run and issue counts for the project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			if date == "" {
				date = time.Now().UTC().Format("2006-01-02")
			} else if _, perr := time.Parse("2006-01-02", date); perr != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD, got %q", date)
			}

			s, err := a.client.Summary(cmd.Context(), projectID, date)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(s)
			}

			fmt.Printf("Date:       %s\n", s.Date)
			fmt.Printf("Runs:       %d\n", s.RunsCount)
			fmt.Printf("Issues:     %d (P0: %d, P1: %d)\n", s.IssuesCount, s.P0Count, s.P1Count)
			fmt.Printf("Avg issue:  %s\n", formatDuration(s.AvgIssueTimeMS))

			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to summarize, YYYY-MM-DD (defaults to today UTC)")

	return cmd
}
