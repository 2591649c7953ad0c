/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// HostProbe samples the host.
type HostProbe interface {
	CpuPercent(ctx context.Context) (float64, error)
	Info(ctx context.Context) (types.HostInfo, error)
}

// SystemProbe samples the local machine.
type SystemProbe struct {
	// Window is the CPU sampling window.
	Window time.Duration
}

func (p SystemProbe) CpuPercent(ctx context.Context) (float64, error) {
	window := p.Window
	if window <= 0 {
		window = time.Second
	}
	values, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errors.New("no cpu sample")
	}
	return values[0], nil
}

func (p SystemProbe) Info(ctx context.Context) (types.HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return types.HostInfo{}, err
	}
	out := types.HostInfo{
		Hostname: info.Hostname,
		Uptime:   time.Duration(info.Uptime) * time.Second,
		BootTime: time.Unix(int64(info.BootTime), 0).UTC(),
	}
	if v, err := p.CpuPercent(ctx); err == nil {
		out.CpuPercent = v
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemPercent = vm.UsedPercent
	}
	return out, nil
}
