/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the registry with the runtime and optionally repair it (admins only)",
		RunE:  runAudit,
	}
	addClientFlags(cmd)
	cmd.Flags().Bool("repair", false, "Attempt to repair inconsistencies found in the registry")
	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	repair, _ := cmd.Flags().GetBool("repair")

	client, err := newClient(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize client for audit: %w", err)
	}

	var issues []types.AuditIssue
	if err := client.Post(cmd.Context(), fmt.Sprintf("/v1/audit?repair=%t", repair), nil, &issues); err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(issues)
	}
	if len(issues) == 0 {
		fmt.Println("Audit completed: no problems found.")
		return nil
	}

	header := []string{"Container", "Problem", "Repaired"}
	data := [][]string{}
	for _, i := range issues {
		data = append(data, []string{i.ContainerId, i.Problem, fmt.Sprint(i.Repaired)})
	}
	tools.ShowTable(header, data)
	if !repair {
		fmt.Println("Run with --repair to fix them.")
	}
	return nil
}
