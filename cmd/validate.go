/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

// NewValidateCommand creates the `validate` command for verifying an
// options file against the JSON Schema.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [options-file]",
		Short: "Validate a vpsctl.json options file",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	return cmd
}

// runValidate checks the provided file against the schema, then the
// decoded options against the server requirements.
func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	problems, err := vpsctl.ValidateOptionsFile(path)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		logger.Println("Options validation errors:")
		for _, p := range problems {
			logger.Printf(" - %s", p)
		}
		return fmt.Errorf("validation failed with %d errors", len(problems))
	}

	options, err := vpsctl.ReadOptions(path, vpsctl.DefaultOptions("/var/lib/vpsctl"))
	if err != nil {
		return err
	}
	if err := vpsctl.ValidateOptions(options); err != nil {
		return err
	}

	logger.Println("Options are valid.")
	return nil
}
