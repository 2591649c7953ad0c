/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

// NewGenSchemaCommand creates the `gen-schema` command for generating the
// JSON Schema of the options file.
func NewGenSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "gen-schema",
		Short:  "Generate JSON Schema for the options file (hidden)",
		Hidden: true,
		RunE:   runGenSchema,
	}
	cmd.Flags().StringP("output", "o", "vpsctl.schema.json", "Where to write the schema")
	return cmd
}

func runGenSchema(cmd *cobra.Command, args []string) error {
	out, err := json.MarshalIndent(vpsctl.OptionsSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaPath, _ := cmd.Flags().GetString("output")
	if err := os.WriteFile(schemaPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", schemaPath, err)
	}

	logger.Println("Schema generated at", schemaPath)
	return nil
}
