/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/lxc/lxctest"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func TestHostMonitorStopsFleetOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, "u1", res(1, 1, 1))
	b := h.create(t, "u2", res(1, 1, 1))
	idle := h.create(t, "u2", res(1, 1, 1))
	_, err := h.v.Stop(ctx, "u2", idle.Id)
	require.NoError(t, err)
	before, _ := h.v.Registry.FindById(idle.Id)

	h.fake.Reset()
	h.probe.set(95, nil)
	stopped, err := h.v.Host.Sweep(ctx)
	require.NoError(t, err)
	assert.True(t, stopped)

	assert.Equal(t, 1, h.fake.Count("stop --all --force"))
	assert.Equal(t, []string{"stop --all --force"}, h.fake.Calls())
	for _, id := range []string{a.Id, b.Id} {
		rec, _ := h.v.Registry.FindById(id)
		assert.Equal(t, types.StatusStopped, rec.Status, id)
	}
	after, _ := h.v.Registry.FindById(idle.Id)
	assert.Equal(t, before, after)

	require.Len(t, h.notifier.ofType(types.EventFleetStop), 1)
	cpu, at := h.v.Host.Last()
	assert.Equal(t, 95.0, cpu)
	assert.Equal(t, h.clock.Now(), at)
}

func TestHostMonitorBelowThreshold(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	h.probe.set(90, nil)

	stopped, err := h.v.Host.Sweep(context.Background())
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Zero(t, h.fake.Count("stop --all --force"))
	rec, _ := h.v.Registry.FindById(c.Id)
	assert.Equal(t, types.StatusRunning, rec.Status)
}

func TestHostMonitorProbeError(t *testing.T) {
	h := newHarness(t)
	h.probe.set(0, errors.New("no proc"))

	_, err := h.v.Host.Sweep(context.Background())
	assert.Error(t, err)
	assert.Zero(t, h.fake.Count("stop --all --force"))
}

func TestHostMonitorRun(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	h.probe.set(99, nil)
	h.v.Host.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.v.Host.Run(ctx) }()

	require.Eventually(t, func() bool {
		rec, _ := h.v.Registry.FindById(c.Id)
		return rec.Status == types.StatusStopped
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestDisabledMonitorDoesNotSample(t *testing.T) {
	o := testOptions(t)
	o.HostMonitor = false
	h := newHarnessWithOptions(t, o)
	c := h.create(t, "u1", res(1, 1, 1))
	h.probe.set(99, nil)
	h.v.Host.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, h.v.Host.Run(ctx))

	rec, _ := h.v.Registry.FindById(c.Id)
	assert.Equal(t, types.StatusRunning, rec.Status)
	assert.Zero(t, h.fake.Count("stop --all --force"))
}

func TestBreachReason(t *testing.T) {
	assert.Empty(t, BreachReason(50, 50, 90, 90))
	assert.Empty(t, BreachReason(90, 90, 90, 90))

	cpu := BreachReason(95, 50, 90, 90)
	assert.Equal(t, "High CPU usage: 95.0% (threshold 90%)", cpu)

	both := BreachReason(95, 96.5, 90, 90)
	assert.Equal(t, "High CPU usage: 95.0% (threshold 90%); High RAM usage: 96.5% (threshold 90%)", both)
}

func TestWorkloadMonitorSuspendsBreaching(t *testing.T) {
	h := newHarness(t)
	hot := h.create(t, "u1", res(1, 1, 1))
	calm := h.create(t, "u2", res(1, 1, 1))
	sample(h.fake, hot.Id, 95, 50)
	sample(h.fake, calm.Id, 50, 50)

	suspended := h.v.Workload.Sweep(context.Background())
	assert.Equal(t, []string{hot.Id}, suspended)

	rec, _ := h.v.Registry.FindById(hot.Id)
	assert.Equal(t, types.StatusSuspended, rec.Status)
	require.NotNil(t, rec.Suspension)
	assert.Equal(t, AutoActor, rec.Suspension.Actor)
	assert.Contains(t, rec.Suspension.Reason, "CPU")
	assert.NotContains(t, rec.Suspension.Reason, "RAM")

	rec, _ = h.v.Registry.FindById(calm.Id)
	assert.Equal(t, types.StatusRunning, rec.Status)
	assert.Nil(t, rec.Suspension)
	assert.Zero(t, h.fake.Count("stop "+calm.Id))

	events := h.notifier.ofType(types.EventSuspended)
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].Recipient)
	assert.Equal(t, h.clock.Now(), h.v.Workload.LastSweep())
}

func TestWorkloadMonitorRamBreach(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	sample(h.fake, c.Id, 10, 95)

	assert.Equal(t, []string{c.Id}, h.v.Workload.Sweep(context.Background()))
	rec, _ := h.v.Registry.FindById(c.Id)
	assert.Contains(t, rec.Suspension.Reason, "RAM")
	assert.NotContains(t, rec.Suspension.Reason, "CPU")
}

func TestWorkloadMonitorSkipsNotRunning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	suspended := h.create(t, "u1", res(1, 1, 1))
	stopped := h.create(t, "u1", res(1, 1, 1))
	_, err := h.v.Suspend(ctx, mainAdmin, suspended.Id, "abuse")
	require.NoError(t, err)
	_, err = h.v.Stop(ctx, "u1", stopped.Id)
	require.NoError(t, err)
	sample(h.fake, suspended.Id, 99, 99)
	sample(h.fake, stopped.Id, 99, 99)

	h.fake.Reset()
	assert.Empty(t, h.v.Workload.Sweep(ctx))
	assert.Zero(t, h.fake.CountPrefix("exec "+suspended.Id))
	assert.Zero(t, h.fake.CountPrefix("exec "+stopped.Id))

	rec, _ := h.v.Registry.FindById(suspended.Id)
	assert.Len(t, rec.SuspensionHistory, 1)
}

func TestWorkloadMonitorContinuesAfterSampleError(t *testing.T) {
	h := newHarness(t)
	broken := h.create(t, "u1", res(1, 1, 1))
	hot := h.create(t, "u2", res(1, 1, 1))
	h.fake.On("exec "+broken.Id+" -- top -bn1", lxctest.Response{Exit: 1, Stderr: "no top"})
	sample(h.fake, hot.Id, 99, 10)

	assert.Equal(t, []string{hot.Id}, h.v.Workload.Sweep(context.Background()))
	rec, _ := h.v.Registry.FindById(broken.Id)
	assert.Equal(t, types.StatusRunning, rec.Status)
}

func TestMonitorPanicBecomesError(t *testing.T) {
	h := newHarness(t)
	err := h.v.Host.safe(func() error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMonitorControl(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.v.MonitorControl(ctx, "u1", "host", "disable")
	assert.True(t, errors.Is(err, ErrDenied))

	status, err := h.v.MonitorControl(ctx, mainAdmin, "host", "disable")
	require.NoError(t, err)
	assert.False(t, status.HostEnabled)
	assert.True(t, status.WorkloadEnabled)

	status, err = h.v.MonitorControl(ctx, mainAdmin, "all", "disable")
	require.NoError(t, err)
	assert.False(t, status.WorkloadEnabled)

	status, err = h.v.MonitorControl(ctx, mainAdmin, "workload", "enable")
	require.NoError(t, err)
	assert.True(t, status.WorkloadEnabled)
	assert.Equal(t, 90, status.CpuThreshold)

	_, err = h.v.MonitorControl(ctx, mainAdmin, "disk", "status")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = h.v.MonitorControl(ctx, mainAdmin, "host", "reboot")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestStopAllNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	_, err := h.v.RequestStopAll(ctx, "u1")
	assert.True(t, errors.Is(err, ErrDenied))

	p, err := h.v.RequestStopAll(ctx, mainAdmin)
	require.NoError(t, err)
	assert.Zero(t, h.fake.Count("stop --all --force"))

	out, err := h.v.Confirm(ctx, mainAdmin, p.Id)
	require.NoError(t, err)
	require.NotNil(t, out.Fleet)
	assert.Equal(t, []string{c.Id}, out.Fleet.Stopped)
	assert.Equal(t, 1, h.fake.Count("stop --all --force"))
}
