package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziyad188/sentinel-bot-webwic/internal/pager"
	"github.com/ziyad188/sentinel-bot-webwic/internal/sentinel"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Run history and execution",
	}

	cmd.AddCommand(newRunsListCmd(), newRunsCreateCmd(), newRunsWatchCmd(), newRunsIssuesCmd())

	return cmd
}

func newRunsListCmd() *cobra.Command {
	var (
		status   string
		severity string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs for the project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			loader := a.client.RunsLoader(projectID, sentinel.RunFilter{Status: status, Severity: severity}, a.cfg.PageSize)

			runs, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(runs)
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.DisplayID,
					formatTime(r.StartedAt),
					formatDuration(r.DurationMS),
					orDash(r.DeviceName),
					orDash(r.NetworkName),
					r.Status,
					orDash(r.Result),
					strconv.Itoa(len(r.Issues)),
				})
			}

			renderTable([]string{"RUN", "STARTED", "DURATION", "DEVICE", "NETWORK", "STATUS", "RESULT", "ISSUES"}, rows)
			statusf("%d of %d runs\n", len(runs), loader.Total())

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by run status")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by issue severity")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newRunsCreateCmd() *cobra.Command {
	var (
		deviceID  string
		networkID string
		locale    string
		persona   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			if deviceID == "" || networkID == "" {
				return fmt.Errorf("runs create requires --device and --network")
			}

			created, err := a.client.CreateRun(cmd.Context(), sentinel.RunCreate{
				ProjectID: projectID,
				DeviceID:  deviceID,
				NetworkID: networkID,
				Locale:    locale,
				Persona:   persona,
			})
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(created)
			}

			statusf("Run %s: %s (%s)\n", created.RunID, created.Status, created.Detail)

			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "device ID")
	cmd.Flags().StringVar(&networkID, "network", "", "network ID")
	cmd.Flags().StringVar(&locale, "locale", "en-US", "run locale")
	cmd.Flags().StringVar(&persona, "persona", "", "persona name")

	return cmd
}

func newRunsIssuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issues <run-id>",
		Short: "Show issues and media captured during a run",
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

			ri, err := a.client.RunIssues(cmd.Context(), projectID, args[0])
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(ri)
			}

			rows := make([][]string, 0, len(ri.Issues))
			for _, is := range ri.Issues {
				rows = append(rows, []string{is.Title, orDash(is.Severity), orDash(is.Category), orDash(is.Status)})
			}

			renderTable([]string{"TITLE", "SEVERITY", "CATEGORY", "STATUS"}, rows)
			statusf("%d issues, %d media items\n", len(ri.Issues), len(ri.Media))

			return nil
		},
	}
}

func newRunsWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		follow   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll in-progress runs",
		Long: "Polls the running-runs endpoint, keeping the followed run selected while\n" +
			"the list changes underneath. When the followed run finishes, the watch\n" +
			"moves to the first remaining run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			return watchRuns(cmd.Context(), a, interval, follow)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	cmd.Flags().StringVar(&follow, "follow", "", "run ID to keep selected")

	return cmd
}

func watchRuns(ctx context.Context, a *app, interval time.Duration, selected string) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var items []sentinel.RunningRun

		err := withTransportRetry(ctx, a.logger, func(ctx context.Context) error {
			var lerr error
			items, lerr = a.client.ListRunning(ctx)

			return lerr
		})
		if err != nil {
			return err
		}

		selected = pager.Reconcile(items, selected)
		printRunning(items, selected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func printRunning(items []sentinel.RunningRun, selected string) {
	if len(items) == 0 {
		statusf("No runs in progress.\n")

		return
	}

	rows := make([][]string, 0, len(items))

	for _, r := range items {
		marker := " "
		if r.ID == selected {
			marker = ">"
		}

		rows = append(rows, []string{
			marker,
			r.DisplayID,
			formatTime(r.StartedAt),
			orDash(r.DeviceName),
			orDash(r.NetworkName),
		})
	}

	renderTable([]string{"", "RUN", "STARTED", "DEVICE", "NETWORK"}, rows)
}
