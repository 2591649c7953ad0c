/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package lxc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// MemUsage is the memory usage of a container in MB.
type MemUsage struct {
	UsedMB  int
	TotalMB int
}

// Percent returns the used memory as a percentage of the total.
func (m MemUsage) Percent() float64 {
	if m.TotalMB <= 0 {
		return 0
	}
	return float64(m.UsedMB) / float64(m.TotalMB) * 100
}

// DiskUsage is the usage of the root filesystem as reported by df -h.
type DiskUsage struct {
	Used    string
	Size    string
	Percent string
}

// execOutput runs argv in the container and fails on a non-zero exit code.
func (c *Client) execOutput(ctx context.Context, id string, argv ...string) (string, error) {
	res, err := c.Exec(ctx, id, argv...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &CommandError{
			Args:     c.argv(append([]string{"exec", id, "--"}, argv...)),
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		}
	}
	return res.Stdout, nil
}

// CpuPercent samples the CPU usage inside a container.
func (c *Client) CpuPercent(ctx context.Context, id string) (float64, error) {
	out, err := c.execOutput(ctx, id, "top", "-bn1")
	if err != nil {
		return 0, err
	}
	return ParseTopCpu(out)
}

// MemUsage samples the memory usage inside a container.
func (c *Client) MemUsage(ctx context.Context, id string) (MemUsage, error) {
	out, err := c.execOutput(ctx, id, "free", "-m")
	if err != nil {
		return MemUsage{}, err
	}
	return ParseFree(out)
}

// DiskUsage samples the root filesystem usage inside a container.
func (c *Client) DiskUsage(ctx context.Context, id string) (DiskUsage, error) {
	out, err := c.execOutput(ctx, id, "df", "-h", "/")
	if err != nil {
		return DiskUsage{}, err
	}
	return ParseDf(out)
}

// Stats collects a full usage sample of a container. Failures of single
// probes are tolerated and leave their fields zeroed, only a failure to get
// the status is returned.
func (c *Client) Stats(ctx context.Context, id string) (types.Stats, error) {
	status, err := c.Info(ctx, id)
	if err != nil {
		return types.Stats{}, err
	}
	stats := types.Stats{Status: status}
	if status != "RUNNING" {
		return stats, nil
	}

	if cpu, err := c.CpuPercent(ctx, id); err == nil {
		stats.CpuPercent = cpu
	}
	if mem, err := c.MemUsage(ctx, id); err == nil {
		stats.MemUsedMB = mem.UsedMB
		stats.MemTotalMB = mem.TotalMB
		stats.MemPercent = mem.Percent()
	}
	if disk, err := c.DiskUsage(ctx, id); err == nil {
		stats.DiskUsed = disk.Used
		stats.DiskSize = disk.Size
		stats.DiskPercent = disk.Percent
	}
	return stats, nil
}

// ParseTopCpu returns 100 minus the idle percentage of the "%Cpu(s):" line
// of top batch output.
func ParseTopCpu(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		_, rest, ok := strings.Cut(line, "%Cpu(s):")
		if !ok {
			continue
		}
		for _, field := range strings.Split(rest, ",") {
			value, ok := strings.CutSuffix(strings.TrimSpace(field), " id")
			if !ok {
				continue
			}
			idle, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid idle value %q: %w", value, err)
			}
			return 100 - idle, nil
		}
		return 0, fmt.Errorf("no idle value in %q", strings.TrimSpace(line))
	}
	return 0, fmt.Errorf("no cpu summary in top output")
}

// ParseFree parses the "Mem:" line of free -m output.
func ParseFree(out string) (MemUsage, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Mem:" {
			continue
		}
		total, err := strconv.Atoi(fields[1])
		if err != nil {
			return MemUsage{}, fmt.Errorf("invalid total memory %q: %w", fields[1], err)
		}
		used, err := strconv.Atoi(fields[2])
		if err != nil {
			return MemUsage{}, fmt.Errorf("invalid used memory %q: %w", fields[2], err)
		}
		return MemUsage{UsedMB: used, TotalMB: total}, nil
	}
	return MemUsage{}, fmt.Errorf("no memory line in free output")
}

// ParseDf parses the line of df -h output for the "/" mount point.
func ParseDf(out string) (DiskUsage, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || fields[5] != "/" {
			continue
		}
		return DiskUsage{Size: fields[1], Used: fields[2], Percent: fields[4]}, nil
	}
	return DiskUsage{}, fmt.Errorf("no root filesystem in df output")
}
