/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewSuspendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suspend <id>",
		Short: "Stop a container and block it until an admin lifts the suspension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			var c types.Container
			err = client.Post(cmd.Context(), containerPath(args[0], "suspend"), api.ReasonRequest{Reason: reason}, &c)
			if err != nil {
				return fmt.Errorf("failed to suspend %s: %w", args[0], err)
			}
			return containerResult(cmd, "Container suspended:", c)
		},
	}
	addClientFlags(cmd)
	cmd.Flags().StringP("reason", "r", "", "Reason of the suspension")
	return cmd
}

func NewSuspensionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suspensions [id]",
		Short: "Show the suspension history, newest first",
		Long: `Show the suspension history of a container, or of the whole fleet
when no container is given (admins only).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSuspensions,
	}
	addClientFlags(cmd)
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of entries")
	return cmd
}

func runSuspensions(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	path := fmt.Sprintf("/v1/suspensions?limit=%d", limit)
	if len(args) == 1 {
		path = fmt.Sprintf("%s?limit=%d", containerPath(args[0], "suspensions"), limit)
	}

	var logs []types.SuspensionLog
	if err := client.Get(cmd.Context(), path, &logs); err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(logs)
	}
	if len(logs) == 0 {
		fmt.Println("No suspensions recorded.")
		return nil
	}

	header := []string{"Time", "Container", "Owner", "Actor", "Reason"}
	data := [][]string{}
	for _, l := range logs {
		data = append(data, []string{l.Entry.Time.Format(time.RFC3339), l.ContainerId, l.OwnerId, l.Entry.Actor, l.Entry.Reason})
	}
	tools.ShowTable(header, data)
	return nil
}
