/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mirkobrombin/go-struct-flags/v1/binder"
	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the options file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective options",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	show.Flags().BoolP("json", "j", false, "Print output in JSON format")

	set := &cobra.Command{
		Use:   "set -k key -v value",
		Short: "Set a single option",
		Long: `Set a single option in the options file in use, or in the user options
file when none exists. Use the camel case names (e.g. cpuThreshold,
storagePool, hostMonitor). For profiles, separate items with ':'.
Running servers pick the change up on restart.`,
		Args: cobra.NoArgs,
		RunE: runConfigSet,
	}
	set.Flags().StringP("key", "k", "", "Option key (required)")
	set.Flags().StringP("value", "v", "", "Option value (required)")
	_ = set.MarkFlagRequired("key")
	_ = set.MarkFlagRequired("value")

	cmd.AddCommand(show, set)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	options, path, err := vpsctl.GetVpsctlOptions()
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		options.JwtSecret = ""
		options.RedisPassword = ""
		return printJSON(options)
	}

	if path == "" {
		path = "(defaults)"
	}
	fmt.Println("Options from", path)
	tools.PrintStructKeyVal(os.Stdout, options, "JwtSecret", "RedisPassword", "AmqpUrl")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")
	value, _ := cmd.Flags().GetString("value")

	options, path, err := vpsctl.GetVpsctlOptions()
	if err != nil {
		return err
	}
	if path == "" {
		paths, err := vpsctl.OptionsPaths()
		if err != nil {
			return err
		}
		path = paths[0]
	}

	b, err := binder.NewBinder(&options, os.TempDir(), true)
	if err != nil {
		return err
	}

	argsList := []string{value}
	if key == "profiles" {
		argsList = strings.Split(value, ":")
	}
	if err := b.Run(key, argsList); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := vpsctl.ValidateOptions(options); err != nil {
		return err
	}

	if err := vpsctl.SaveOptions(path, options); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Clean(path), err)
	}
	fmt.Printf("Option %s=%s saved to %s\n", key, value, path)
	return nil
}
