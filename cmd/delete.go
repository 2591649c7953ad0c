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

	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// addTargetFlags registers --owner and --number, the alternative to a
// container id for the commands addressing a container by position.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Owner of the container, with --number")
	cmd.Flags().Int("number", 0, "1-based position of the container among the owner's ones")
	cmd.MarkFlagsRequiredTogether("owner", "number")
}

// targetPath returns the API path of the container addressed by args or
// by the --owner and --number flags.
func targetPath(cmd *cobra.Command, args []string) (string, string, error) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner != "" {
		if len(args) > 0 {
			return "", "", fmt.Errorf("pass either an id or --owner and --number")
		}
		number, _ := cmd.Flags().GetInt("number")
		return ownerPath(owner, number), fmt.Sprintf("%s #%d", owner, number), nil
	}
	if len(args) != 1 {
		return "", "", fmt.Errorf("a container id is required")
	}
	return containerPath(args[0]), args[0], nil
}

func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a container",
		Long: `Delete a container, by id or by --owner and --number. Suspended
containers can not be deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDelete,
	}
	addClientFlags(cmd)
	addTargetFlags(cmd)
	cmd.Flags().StringP("reason", "r", "", "Reason sent to the owner")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func deleteError(iErr error) error {
	return fmt.Errorf("an error occurred while deleting the container: %w", iErr)
}

func runDelete(cmd *cobra.Command, args []string) error {
	path, label, err := targetPath(cmd, args)
	if err != nil {
		return deleteError(err)
	}
	client, err := newClient(cmd)
	if err != nil {
		return deleteError(err)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !wantJSON(cmd) && !tools.ConfirmOperation(fmt.Sprintf("Delete %s?", label)) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	if reason, _ := cmd.Flags().GetString("reason"); reason != "" {
		path += "?reason=" + url.QueryEscape(reason)
	}
	var c types.Container
	err = withSpinner(cmd, "Deleting container", func() error {
		return client.Delete(cmd.Context(), path, &c)
	})
	if err != nil {
		return deleteError(err)
	}
	if wantJSON(cmd) {
		return printJSON(c)
	}
	fmt.Printf("Container %s deleted.\n", c.Id)
	return nil
}
