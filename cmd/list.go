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

func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		Long: `List the containers of the actor, or of --owner. With --shared the
containers shared with the actor are listed, with --all the whole fleet
is listed with its totals (admins only).`,
		Args: cobra.NoArgs,
		RunE: ListContainers,
	}

	addClientFlags(cmd)
	cmd.Flags().String("owner", "", "List the containers of this owner")
	cmd.Flags().Bool("shared", false, "List the containers shared with you")
	cmd.Flags().BoolP("all", "a", false, "List every container")
	cmd.MarkFlagsMutuallyExclusive("owner", "shared", "all")

	return cmd
}

func listError(iErr error) (err error) {
	err = fmt.Errorf("an error occurred while listing containers: %w", iErr)
	return
}

func ListContainers(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return listError(err)
	}

	all, _ := cmd.Flags().GetBool("all")
	shared, _ := cmd.Flags().GetBool("shared")
	owner, _ := cmd.Flags().GetString("owner")

	if all {
		var resp api.ListAllResponse
		if err := client.Get(cmd.Context(), "/v1/containers/all", &resp); err != nil {
			return listError(err)
		}
		if wantJSON(cmd) {
			return printJSON(resp)
		}
		showContainers(resp.Containers)
		showTotals(resp.Totals)
		return nil
	}

	path := "/v1/containers"
	switch {
	case shared:
		path = "/v1/containers/shared"
	case owner != "":
		path += "?owner=" + url.QueryEscape(owner)
	}

	var list []types.OwnedContainer
	if err := client.Get(cmd.Context(), path, &list); err != nil {
		return listError(err)
	}
	if wantJSON(cmd) {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No containers found.")
		return nil
	}
	showContainers(list)
	return nil
}
