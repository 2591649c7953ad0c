/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "info <id>",
		Aliases: []string{"manage"},
		Short:   "Show a container with its live usage",
		Args:    cobra.ExactArgs(1),
		RunE:    runInfo,
	}
	addClientFlags(cmd)
	cmd.Flags().Bool("no-stats", false, "Do not query the live usage")
	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	path := containerPath(args[0])
	if noStats, _ := cmd.Flags().GetBool("no-stats"); noStats {
		path = containerPath(args[0], "info")
	}

	var view types.ManageView
	if err := client.Get(cmd.Context(), path, &view); err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(view)
	}

	showContainer(view.Container)
	fmt.Printf("Your role: %s\n", view.Role)
	if view.Stats != nil {
		showStats(*view.Stats)
	}
	if view.Warning != "" {
		fmt.Println("Warning:", view.Warning)
	}
	return nil
}

func showStats(s types.Stats) {
	tools.ShowKeyValues(os.Stdout, [][]string{
		{"Runtime status", s.Status},
		{"CPU", fmt.Sprintf("%.1f%%", s.CpuPercent)},
		{"Memory", fmt.Sprintf("%d/%d MB (%.1f%%)", s.MemUsedMB, s.MemTotalMB, s.MemPercent)},
		{"Disk", fmt.Sprintf("%s/%s (%s)", s.DiskUsed, s.DiskSize, s.DiskPercent)},
	})
}

func NewWhoamiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the actor and role the server sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var resp api.WhoamiResponse
			if err := client.Get(cmd.Context(), "/v1/whoami", &resp); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(resp)
			}
			fmt.Printf("%s (%s)\n", resp.Actor, resp.Role)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user <user>",
		Short: "Show a user, its role and its containers (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var info types.UserInfo
			if err := client.Get(cmd.Context(), "/v1/users/"+url.PathEscape(args[0]), &info); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(info)
			}
			role := "user"
			switch {
			case info.IsMainAdmin:
				role = "main admin"
			case info.IsAdmin:
				role = "admin"
			}
			fmt.Printf("%s (%s)\n", info.UserId, role)
			if len(info.Containers) > 0 {
				showContainers(info.Containers)
			}
			showTotals(info.Totals)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewServerStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server-stats",
		Short: "Show fleet totals (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var stats types.ServerStats
			if err := client.Get(cmd.Context(), "/v1/server/stats", &stats); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(stats)
			}
			fmt.Printf("%d users\n", stats.Users)
			showTotals(stats.Totals)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewUptimeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uptime",
		Short: "Show host uptime and load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var host types.HostInfo
			if err := client.Get(cmd.Context(), "/v1/server/uptime", &host); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(host)
			}
			tools.ShowKeyValues(os.Stdout, [][]string{
				{"Host", host.Hostname},
				{"Up", tools.HumanDuration(host.Uptime)},
				{"Booted", host.BootTime.Format(time.RFC3339)},
				{"CPU", fmt.Sprintf("%.1f%%", host.CpuPercent)},
				{"Memory", fmt.Sprintf("%.1f%%", host.MemPercent)},
			})
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewRuntimeListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime-list",
		Short: "Show the raw runtime container list (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var out string
			if err := client.Get(cmd.Context(), "/v1/server/runtime", &out); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(out)
			}
			fmt.Print(out)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
