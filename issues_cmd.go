package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziyad188/sentinel-bot-webwic/internal/sentinel"
)

func newIssuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Issue triage",
	}

	cmd.AddCommand(newIssuesListCmd(), newIssuesShowCmd(), newIssuesStatusCmd())

	return cmd
}

func newIssuesListCmd() *cobra.Command {
	var (
		severity string
		category string
		status   string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues for the project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			filter := sentinel.IssueFilter{Severity: severity, Category: category, Status: status}
			loader := a.client.IssuesLoader(projectID, filter, a.cfg.PageSize)

			issues, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(issues)
			}

			rows := make([][]string, 0, len(issues))
			for _, is := range issues {
				rows = append(rows, []string{
					is.ID,
					is.Title,
					orDash(is.Severity),
					orDash(is.Category),
					orDash(is.Status),
					orDash(is.OwnerTeam),
					formatTime(is.CreatedAt),
				})
			}

			renderTable([]string{"ID", "TITLE", "SEVERITY", "CATEGORY", "STATUS", "OWNER", "CREATED"}, rows)
			statusf("%d of %d issues\n", len(issues), loader.Total())

			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newIssuesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show one issue with its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			detail, err := a.client.Issue(cmd.Context(), projectID, args[0])
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(detail)
			}

			fmt.Printf("Title:    %s\n", detail.Title)
			fmt.Printf("Severity: %s\n", orDash(detail.Severity))
			fmt.Printf("Category: %s\n", orDash(detail.Category))
			fmt.Printf("Status:   %s\n", orDash(detail.Status))
			fmt.Printf("Owner:    %s\n", orDash(detail.OwnerName))
			fmt.Printf("Run:      %s\n", orDash(detail.RunDisplayID))

			if detail.Description != "" {
				fmt.Printf("\n%s\n", detail.Description)
			}

			for _, m := range detail.Media {
				fmt.Printf("\n[%s] %s\n", m.Type, m.URL)
			}

			return nil
		},
	}
}

func newIssuesStatusCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "resolve <issue-id>",
		Short: "Update an issue's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if status != "resolved" && status != "investigating" {
				return fmt.Errorf("status must be resolved or investigating, got %q", status)
			}

			if err := a.client.UpdateIssueStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}

			statusf("Issue %s marked %s\n", args[0], status)

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "resolved", "new status (resolved or investigating)")

	return cmd
}
