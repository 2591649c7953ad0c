/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the snapshots of a container",
	}

	create := &cobra.Command{
		Use:   "create <id> [name]",
		Short: "Take a snapshot, named after the container and the time by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var req api.SnapshotRequest
			if len(args) == 2 {
				req.Name = args[1]
			}
			var name string
			err = withSpinner(cmd, "Taking snapshot", func() error {
				return client.Post(cmd.Context(), containerPath(args[0], "snapshots"), req, &name)
			})
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(name)
			}
			fmt.Printf("Snapshot %s created.\n", name)
			return nil
		},
	}
	addClientFlags(create)

	list := &cobra.Command{
		Use:   "list <id>",
		Short: "List the snapshots of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var names []string
			if err := client.Get(cmd.Context(), containerPath(args[0], "snapshots"), &names); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(names)
			}
			if len(names) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
	addClientFlags(list)

	restore := &cobra.Command{
		Use:   "restore <id> <name>",
		Short: "Restore a snapshot, the container is left stopped",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var c types.Container
			path := containerPath(args[0], "snapshots", url.PathEscape(args[1]), "restore")
			err = withSpinner(cmd, "Restoring snapshot", func() error {
				return client.Post(cmd.Context(), path, nil, &c)
			})
			if err != nil {
				return err
			}
			return containerResult(cmd, fmt.Sprintf("Snapshot %s restored:", args[1]), c)
		},
	}
	addClientFlags(restore)

	cmd.AddCommand(create, list, restore)
	return cmd
}
