package main

import (
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List the reviewer directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			loader := a.client.UsersLoader(a.cfg.PageSize)

			users, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(users)
			}

			rows := make([][]string, 0, len(users))
			for _, u := range users {
				active := "-"
				if u.IsActive != nil {
					if *u.IsActive {
						active = "yes"
					} else {
						active = "no"
					}
				}

				rows = append(rows, []string{
					orDash(u.DisplayName),
					orDash(u.RealName),
					orDash(u.Email),
					u.SlackUserID,
					active,
				})
			}

			renderTable([]string{"NAME", "REAL NAME", "EMAIL", "SLACK", "ACTIVE"}, rows)
			statusf("%d of %d users\n", len(users), loader.Total())

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}
