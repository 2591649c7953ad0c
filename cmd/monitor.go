/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func NewMonitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "monitor [status|enable|disable]",
		Short:     "Show or toggle the background monitors (admins only)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"status", "enable", "disable"},
		RunE:      runMonitor,
	}
	addClientFlags(cmd)
	cmd.Flags().StringP("monitor", "m", "all", "Monitor to act on: host, workload or all")
	return cmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	action := "status"
	if len(args) == 1 {
		action = args[0]
	}
	monitor, _ := cmd.Flags().GetString("monitor")

	var status types.MonitorStatus
	if action == "status" {
		err = client.Get(cmd.Context(), "/v1/monitor", &status)
	} else {
		err = client.Post(cmd.Context(), "/v1/monitor", api.MonitorRequest{Monitor: monitor, Action: action}, &status)
	}
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(status)
	}

	onOff := func(b bool) string {
		if b {
			return "enabled"
		}
		return "disabled"
	}
	rows := [][]string{
		{"Host monitor", fmt.Sprintf("%s, every %s, CPU threshold %d%%", onOff(status.HostEnabled), status.HostInterval, status.CpuThreshold)},
		{"Workload monitor", fmt.Sprintf("%s, every %s, CPU %d%% / RAM %d%%", onOff(status.WorkloadEnabled), status.WorkloadInterval, status.CpuThreshold, status.RamThreshold)},
	}
	if !status.LastHostSample.IsZero() {
		rows = append(rows, []string{"Last host sample", fmt.Sprintf("%.1f%% at %s", status.LastHostCpu, status.LastHostSample.Local().Format(time.RFC3339))})
	}
	if !status.LastSweep.IsZero() {
		rows = append(rows, []string{"Last sweep", status.LastSweep.Local().Format(time.RFC3339)})
	}
	tools.ShowKeyValues(os.Stdout, rows)
	return nil
}
