package main

import (
	"github.com/spf13/cobra"
)

func newEvidenceCmd() *cobra.Command {
	var (
		mediaType string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "List captured evidence for the project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			loader := a.client.EvidenceLoader(projectID, mediaType, a.cfg.PageSize)

			items, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(items)
			}

			rows := make([][]string, 0, len(items))
			for _, e := range items {
				rows = append(rows, []string{
					e.Type,
					orDash(e.Label),
					orDash(e.IssueTitle),
					orDash(e.DeviceName),
					formatTime(e.CreatedAt),
					e.URL,
				})
			}

			renderTable([]string{"TYPE", "LABEL", "ISSUE", "DEVICE", "CREATED", "URL"}, rows)
			statusf("%d of %d evidence items\n", len(items), loader.Total())

			return nil
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "filter by media type (screenshot or video)")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}
