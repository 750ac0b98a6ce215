package main

import (
	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List issue categories and their Slack owners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			projectID, err := a.requireProject()
			if err != nil {
				return err
			}

			loader := a.client.CategoriesLoader(projectID, a.cfg.PageSize)

			categories, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(categories)
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{
					c.Category,
					orDash(c.SlackDisplayName),
					orDash(c.SlackUserID),
					formatTime(c.UpdatedAt),
				})
			}

			renderTable([]string{"CATEGORY", "OWNER", "SLACK", "UPDATED"}, rows)
			statusf("%d of %d categories\n", len(categories), loader.Total())

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}
