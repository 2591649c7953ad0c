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

func NewShareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share [id] <grantee>",
		Short: "Grant another user delegated access to a container",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grantee := args[len(args)-1]
			path, _, err := targetPath(cmd, args[:len(args)-1])
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var c types.Container
			if err := client.Post(cmd.Context(), path+"/shares", api.GranteeRequest{Grantee: grantee}, &c); err != nil {
				return fmt.Errorf("failed to share: %w", err)
			}
			return containerResult(cmd, fmt.Sprintf("Container shared with %s:", grantee), c)
		},
	}
	addClientFlags(cmd)
	addTargetFlags(cmd)
	return cmd
}

func NewRevokeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke [id] <grantee>",
		Short: "Revoke the delegated access of a user",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grantee := args[len(args)-1]
			path, _, err := targetPath(cmd, args[:len(args)-1])
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var c types.Container
			if err := client.Delete(cmd.Context(), path+"/shares/"+url.PathEscape(grantee), &c); err != nil {
				return fmt.Errorf("failed to revoke: %w", err)
			}
			return containerResult(cmd, fmt.Sprintf("Access of %s revoked:", grantee), c)
		},
	}
	addClientFlags(cmd)
	addTargetFlags(cmd)
	return cmd
}
