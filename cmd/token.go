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
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <actor>",
		Short: "Sign an API token for an actor",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	cmd.Flags().Duration("ttl", 0, "Token lifetime, 0 means it never expires")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	options, _, err := vpsctl.GetVpsctlOptions()
	if err != nil {
		return err
	}
	if options.JwtSecret == "" {
		return fmt.Errorf("jwt_secret is not configured")
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := api.MintToken([]byte(options.JwtSecret), args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
