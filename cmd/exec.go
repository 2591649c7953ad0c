/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/lxc"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <id> -- <command...>",
		Short: "Run a shell command in a running container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			req := api.ExecRequest{Command: strings.Join(args[1:], " ")}
			var res lxc.ExecResult
			if err := client.Post(cmd.Context(), containerPath(args[0], "exec"), req, &res); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(res)
			}
			fmt.Fprint(os.Stdout, res.Stdout)
			fmt.Fprint(os.Stderr, res.Stderr)
			if res.ExitCode != 0 {
				return fmt.Errorf("command exited with code %d", res.ExitCode)
			}
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

// newTextCommand returns a command printing the raw text returned by a
// container endpoint.
func newTextCommand(use, short, action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			path := containerPath(args[0], action)
			if cmd.Flags().Lookup("lines") != nil {
				lines, _ := cmd.Flags().GetInt("lines")
				path = fmt.Sprintf("%s?lines=%d", path, lines)
			}
			var out string
			if err := client.Get(cmd.Context(), path, &out); err != nil {
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

func NewProcessesCommand() *cobra.Command {
	return newTextCommand("processes", "Show the top processes of a container", "processes")
}

func NewLogsCommand() *cobra.Command {
	cmd := newTextCommand("logs", "Show the system journal of a container", "logs")
	cmd.Flags().IntP("lines", "n", 50, "Number of journal lines")
	return cmd
}

func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show the live usage of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var stats types.Stats
			if err := client.Get(cmd.Context(), containerPath(args[0], "stats"), &stats); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(stats)
			}
			showStats(stats)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewSshCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh <id>",
		Short: "Open a temporary shared terminal session into a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var session types.Session
			err = withSpinner(cmd, "Opening session", func() error {
				return client.Post(cmd.Context(), containerPath(args[0], "ssh"), nil, &session)
			})
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(session)
			}
			fmt.Printf("Session %s ready, connect with:\n  %s\n", session.Name, session.Ssh)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewNetworkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect and limit the network of a container",
	}

	list := newTextCommand("list", "Show the network devices of a container", "network")

	limit := &cobra.Command{
		Use:   "limit <id> <rate>",
		Short: "Limit the ingress and egress rate of a container, e.g. 100Mbit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var rate string
			if err := client.Post(cmd.Context(), containerPath(args[0], "network", "limit"), api.LimitRequest{Rate: args[1]}, &rate); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(rate)
			}
			fmt.Printf("Network of %s limited to %s.\n", args[0], rate)
			return nil
		},
	}
	addClientFlags(limit)

	cmd.AddCommand(list, limit)
	return cmd
}

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <id> <pool>",
		Short: "Move a container to another storage pool (admins only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var c types.Container
			err = withSpinner(cmd, "Migrating container", func() error {
				return client.Post(cmd.Context(), containerPath(args[0], "migrate"), api.MigrateRequest{Pool: args[1]}, &c)
			})
			if err != nil {
				return err
			}
			return containerResult(cmd, fmt.Sprintf("Container moved to %s:", args[1]), c)
		},
	}
	addClientFlags(cmd)
	return cmd
}
