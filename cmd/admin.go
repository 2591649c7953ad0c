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
)

func NewAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admins (main admin only)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var admins []string
			if err := client.Get(cmd.Context(), "/v1/admins", &admins); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(admins)
			}
			if len(admins) == 0 {
				fmt.Println("No admins besides the main admin.")
				return nil
			}
			for _, a := range admins {
				fmt.Println(a)
			}
			return nil
		},
	}
	addClientFlags(list)

	add := &cobra.Command{
		Use:   "add <user>",
		Short: "Make a user admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Post(cmd.Context(), "/v1/admins", api.UserRequest{User: args[0]}, nil); err != nil {
				return err
			}
			fmt.Printf("%s is now an admin.\n", args[0])
			return nil
		},
	}
	addClientFlags(add)

	remove := &cobra.Command{
		Use:   "remove <user>",
		Short: "Remove a user from the admins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), "/v1/admins/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Printf("%s is no longer an admin.\n", args[0])
			return nil
		},
	}
	addClientFlags(remove)

	cmd.AddCommand(list, add, remove)
	return cmd
}
