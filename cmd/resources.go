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

func newResourceCommand(use, short, action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			change := resourceChange(cmd)
			if change.IsEmpty() {
				return fmt.Errorf("at least one of --ram, --cpu or --disk is required")
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			var c types.Container
			err = withSpinner(cmd, "Applying resources", func() error {
				return client.Post(cmd.Context(), containerPath(args[0], action), change, &c)
			})
			if err != nil {
				return fmt.Errorf("failed to update resources of %s: %w", args[0], err)
			}
			return containerResult(cmd, "Resources updated:", c)
		},
	}
	addClientFlags(cmd)
	addResourceFlags(cmd, 0, 0, 0)
	return cmd
}

func NewResizeCommand() *cobra.Command {
	return newResourceCommand("resize", "Set the resources of a container (admins only)", "resize")
}

func NewAddResourcesCommand() *cobra.Command {
	return newResourceCommand("add-resources", "Add resources to a container (admins only)", "add")
}
