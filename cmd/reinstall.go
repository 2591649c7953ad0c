/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewReinstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinstall <id>",
		Short: "Wipe and recreate a container with the same resources",
		Long: `Request a reinstall of a container. Every data in the container is
lost. The request must be confirmed, interactively or with --yes,
before it expires.`,
		Args: cobra.ExactArgs(1),
		RunE: runReinstall,
	}
	addClientFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "Confirm without asking")
	return cmd
}

func runReinstall(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	var pending types.PendingConfirmation
	if err := client.Post(cmd.Context(), containerPath(args[0], "reinstall"), nil, &pending); err != nil {
		return err
	}

	result, err := settle(cmd, client, pending, fmt.Sprintf("Reinstall %s? All its data will be lost.", args[0]))
	if err != nil || result == nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(result)
	}
	if result.Container != nil {
		fmt.Println("Container reinstalled:")
		showContainer(*result.Container)
	}
	return nil
}

// settle confirms or cancels a pending confirmation. It returns nil when
// the request was cancelled.
func settle(cmd *cobra.Command, client *api.Client, pending types.PendingConfirmation, question string) (*types.ConfirmResult, error) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && wantJSON(cmd) {
		// no prompt in JSON mode, hand the pending request back
		return nil, printJSON(pending)
	}
	if !yes {
		fmt.Printf("Confirmation %s expires at %s.\n", pending.Id, pending.ExpiresAt.Local().Format(time.Kitchen))
		if !tools.ConfirmOperation(question) {
			if err := client.Delete(cmd.Context(), confirmationPath(pending.Id), nil); err != nil {
				return nil, err
			}
			fmt.Println("Operation cancelled.")
			return nil, nil
		}
	}

	var result types.ConfirmResult
	err := withSpinner(cmd, "Working", func() error {
		return client.Post(cmd.Context(), confirmationPath(pending.Id), nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func confirmationPath(id string) string {
	return "/v1/confirmations/" + url.PathEscape(id)
}

func NewConfirmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <confirmation-id>",
		Short: "Confirm a pending destructive request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var result types.ConfirmResult
			err = withSpinner(cmd, "Working", func() error {
				return client.Post(cmd.Context(), confirmationPath(args[0]), nil, &result)
			})
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(result)
			}
			fmt.Printf("%s done.\n", result.Action)
			if result.Container != nil {
				showContainer(*result.Container)
			}
			if result.Fleet != nil {
				fmt.Printf("Stopped %d containers.\n", len(result.Fleet.Stopped))
			}
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func NewCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <confirmation-id>",
		Short: "Cancel a pending destructive request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			var pending types.PendingConfirmation
			if err := client.Delete(cmd.Context(), confirmationPath(args[0]), &pending); err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(pending)
			}
			fmt.Printf("Cancelled %s of %s.\n", pending.Action, pending.Target)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
