/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <owner>",
		Short: "Create a container for an owner",
		Long: `Create, configure and start a new container for the given owner.
The identifier is generated from the owner and its next free number.`,
		Args: cobra.ExactArgs(1),
		RunE: runCreate,
	}
	addClientFlags(cmd)
	addResourceFlags(cmd, 2, 1, 10)
	return cmd
}

func createError(iErr error) error {
	return fmt.Errorf("an error occurred while creating the container: %w", iErr)
}

func runCreate(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return createError(err)
	}

	ram, _ := cmd.Flags().GetInt("ram")
	cpu, _ := cmd.Flags().GetInt("cpu")
	disk, _ := cmd.Flags().GetInt("disk")
	req := api.CreateRequest{
		Owner:     args[0],
		Resources: types.Resources{RamGB: ram, CpuCores: cpu, DiskGB: disk},
	}

	var c types.Container
	err = withSpinner(cmd, "Creating container", func() error {
		return client.Post(cmd.Context(), "/v1/containers", req, &c)
	})
	if err != nil {
		return createError(err)
	}
	return containerResult(cmd, "Container created:", c)
}
