/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// newActionCommand returns a command posting a body-less action on a
// single container.
func newActionCommand(use, short, action, done string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var c types.Container
			if err := client.Post(cmd.Context(), containerPath(args[0], action), nil, &c); err != nil {
				return fmt.Errorf("failed to %s %s: %w", action, args[0], err)
			}
			return containerResult(cmd, done, c)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewStartCommand() *cobra.Command {
	return newActionCommand("start", "Start a stopped container", "start", "Container started:")
}

func NewStopCommand() *cobra.Command {
	return newActionCommand("stop", "Stop a running container", "stop", "Container stopped:")
}

func NewRestartCommand() *cobra.Command {
	return newActionCommand("restart", "Restart a container, lifting any suspension", "restart", "Container restarted:")
}

func NewUnsuspendCommand() *cobra.Command {
	return newActionCommand("unsuspend", "Lift the suspension of a container (admins only)", "unsuspend", "Container unsuspended:")
}

func NewCloneCommand() *cobra.Command {
	cmd := newActionCommand("clone", "Clone a container for the same owner (admins only)", "clone", "Container cloned:")
	cmd.RunE = spinnerRunE(cmd.RunE, "Cloning container")
	return cmd
}

// spinnerRunE wraps run so it happens behind a spinner.
func spinnerRunE(run func(*cobra.Command, []string) error, description string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withSpinner(cmd, description, func() error { return run(cmd, args) })
	}
}

func NewStopAllCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop-all",
		Short: "Force stop every container on the host (admins only)",
		Long: `Request a forced stop of every container. The request must be
confirmed, interactively or with --yes, before it expires.`,
		Args: cobra.NoArgs,
		RunE: runStopAll,
	}
	addClientFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Confirm without asking")
	return cmd
}

func runStopAll(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	var pending types.PendingConfirmation
	if err := client.Post(cmd.Context(), "/v1/fleet/stop", nil, &pending); err != nil {
		return err
	}

	result, err := settle(cmd, client, pending, "Force stop ALL containers on the host?")
	if err != nil || result == nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(result)
	}
	if result.Fleet != nil {
		fmt.Printf("Stopped %d containers.\n", len(result.Fleet.Stopped))
		for _, id := range result.Fleet.Stopped {
			fmt.Println("  -", id)
		}
	}
	return nil
}
