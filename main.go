/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/cmd"
	"github.com/mirkobrombin/vpsctl/pkg/logger"
)

var version = "0.1.0"

func main() {
	// a missing .env is fine, the environment and the options file are enough
	_ = godotenv.Load()
	logger.Configure(os.Getenv("VPSCTL_LOG_LEVEL"), os.Getenv("VPSCTL_LOG_FORMAT"))

	rootCmd := &cobra.Command{
		Use:           "vpsctl",
		Short:         "control plane for LXC based virtual servers",
		Long:          `vpsctl creates, owns, shares and polices LXC containers on a single host`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cmd.NewServeCommand())
	rootCmd.AddCommand(cmd.NewTokenCommand())
	rootCmd.AddCommand(cmd.NewWhoamiCommand())

	rootCmd.AddCommand(cmd.NewCreateCommand())
	rootCmd.AddCommand(cmd.NewListCommand())
	rootCmd.AddCommand(cmd.NewInfoCommand())
	rootCmd.AddCommand(cmd.NewDeleteCommand())
	rootCmd.AddCommand(cmd.NewStartCommand())
	rootCmd.AddCommand(cmd.NewStopCommand())
	rootCmd.AddCommand(cmd.NewRestartCommand())
	rootCmd.AddCommand(cmd.NewSuspendCommand())
	rootCmd.AddCommand(cmd.NewUnsuspendCommand())
	rootCmd.AddCommand(cmd.NewReinstallCommand())
	rootCmd.AddCommand(cmd.NewConfirmCommand())
	rootCmd.AddCommand(cmd.NewCancelCommand())
	rootCmd.AddCommand(cmd.NewResizeCommand())
	rootCmd.AddCommand(cmd.NewAddResourcesCommand())
	rootCmd.AddCommand(cmd.NewShareCommand())
	rootCmd.AddCommand(cmd.NewRevokeCommand())
	rootCmd.AddCommand(cmd.NewCloneCommand())
	rootCmd.AddCommand(cmd.NewMigrateCommand())
	rootCmd.AddCommand(cmd.NewSnapshotCommand())
	rootCmd.AddCommand(cmd.NewExecCommand())
	rootCmd.AddCommand(cmd.NewNetworkCommand())
	rootCmd.AddCommand(cmd.NewProcessesCommand())
	rootCmd.AddCommand(cmd.NewLogsCommand())
	rootCmd.AddCommand(cmd.NewStatsCommand())
	rootCmd.AddCommand(cmd.NewSshCommand())
	rootCmd.AddCommand(cmd.NewSuspensionsCommand())

	rootCmd.AddCommand(cmd.NewStopAllCommand())
	rootCmd.AddCommand(cmd.NewMonitorCommand())
	rootCmd.AddCommand(cmd.NewAdminCommand())
	rootCmd.AddCommand(cmd.NewUserCommand())
	rootCmd.AddCommand(cmd.NewServerStatsCommand())
	rootCmd.AddCommand(cmd.NewUptimeCommand())
	rootCmd.AddCommand(cmd.NewRuntimeListCommand())
	rootCmd.AddCommand(cmd.NewAuditCommand())

	rootCmd.AddCommand(cmd.NewConfigCommand())
	rootCmd.AddCommand(cmd.NewValidateCommand())
	rootCmd.AddCommand(cmd.NewGenSchemaCommand())

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
