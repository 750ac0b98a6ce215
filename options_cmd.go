package main

import (
	"github.com/spf13/cobra"
)

// The option-list commands back the run configuration pickers: each command
// owns its own loader instance, never shared with another list.

func newDevicesCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List device options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			loader := a.client.DevicesLoader(a.cfg.PageSize)

			devices, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(devices)
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{d.ID, d.Name})
			}

			renderTable([]string{"ID", "NAME"}, rows)
			statusf("%d of %d devices\n", len(devices), loader.Total())

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newNetworksCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List network options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			loader := a.client.NetworksLoader(a.cfg.PageSize)

			networks, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(networks)
			}

			rows := make([][]string, 0, len(networks))
			for _, n := range networks {
				rows = append(rows, []string{n.ID, n.Name})
			}

			renderTable([]string{"ID", "NAME"}, rows)
			statusf("%d of %d networks\n", len(networks), loader.Total())

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

func newProjectsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List project options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			loader := a.client.ProjectsLoader(a.cfg.PageSize)

			projects, err := drainLoader(cmd.Context(), a.logger, loader, all)
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(projects)
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Name, orDash(p.Environment)})
			}

			renderTable([]string{"ID", "NAME", "ENV"}, rows)
			statusf("%d of %d projects\n", len(projects), loader.Total())

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}
