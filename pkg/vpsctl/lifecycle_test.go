/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/lxc"
	"github.com/mirkobrombin/vpsctl/pkg/lxc/lxctest"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func TestCreateAddAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.create(t, "u1", res(2, 1, 10))
	assert.Equal(t, "vps-u1-1", c.Id)
	assert.Equal(t, types.StatusRunning, c.Status)
	assert.Equal(t, "2GB RAM / 1 CPU / 10GB Disk", c.Config())
	assert.Equal(t, 1, h.fake.Count("config set vps-u1-1 limits.memory 2048MB"))
	assert.Equal(t, 1, h.fake.Count("config set vps-u1-1 limits.cpu 1"))
	assert.Equal(t, 1, h.fake.Count("config device set vps-u1-1 root size 10GB"))
	assert.Len(t, h.notifier.ofType(types.EventCreated), 1)
	assert.Len(t, h.notifier.ofType(types.EventRoleGrant), 1)

	h.fake.Reset()
	c, err := h.v.AddResources(ctx, mainAdmin, c.Id, types.ResourceChange{RamGB: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Resources.RamGB)
	assert.Equal(t, "3GB RAM / 1 CPU / 10GB Disk", c.Config())
	assert.Equal(t, types.StatusRunning, c.Status)
	assert.Equal(t, []string{
		"stop vps-u1-1",
		"config set vps-u1-1 limits.memory 3072MB",
		"start vps-u1-1",
	}, h.fake.Calls())

	_, err = h.v.Delete(ctx, mainAdmin, c.Id, "")
	require.NoError(t, err)
	_, ok := h.v.Registry.FindById(c.Id)
	assert.False(t, ok)
	require.Len(t, h.notifier.ofType(types.EventRoleRevoke), 1)
	assert.Equal(t, "u1", h.notifier.ofType(types.EventRoleRevoke)[0].Recipient)
}

func TestSecondContainerKeepsRole(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "u1", res(1, 1, 1))
	h.create(t, "u1", res(1, 1, 1))
	assert.Len(t, h.notifier.ofType(types.EventRoleGrant), 1)

	_, err := h.v.Delete(context.Background(), mainAdmin, a.Id, "")
	require.NoError(t, err)
	assert.Empty(t, h.notifier.ofType(types.EventRoleRevoke))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.v.Create(ctx, "u1", "u1", res(1, 1, 1))
	assert.True(t, errors.Is(err, ErrDenied))

	_, err = h.v.Create(ctx, mainAdmin, "u1", res(0, 1, 1))
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = h.v.Create(ctx, mainAdmin, "", res(1, 1, 1))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Empty(t, h.fake.Calls())
}

func TestCreateRejectsOwnerUnfitForName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, owner := range []string{"U1", "u.1", "u 1", "u_1", "u1/../x", strings.Repeat("a", 33)} {
		_, err := h.v.Create(ctx, mainAdmin, owner, res(1, 1, 1))
		assert.True(t, errors.Is(err, ErrValidation), owner)
	}
	assert.Empty(t, h.fake.Calls())
	assert.Empty(t, h.v.Registry.nextSeq)

	c := h.create(t, "u1", res(1, 1, 1))
	assert.Equal(t, "vps-u1-1", c.Id)
	c = h.create(t, "123456789012345678", res(1, 1, 1))
	assert.Equal(t, "vps-123456789012345678-1", c.Id)
}

func TestCreateConfigFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	h.fake.OnPrefix("config set vps-u1-1 limits.memory", lxctest.Response{Exit: 1, Stderr: "invalid value"})

	_, err := h.v.Create(context.Background(), mainAdmin, "u1", res(2, 1, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
	assert.Equal(t, 1, h.fake.Count("delete vps-u1-1 --force"))
	assert.Empty(t, h.v.Registry.Get("u1"))

	c := h.create(t, "u1", res(2, 1, 10))
	assert.Equal(t, "vps-u1-2", c.Id)
}

func TestCreateStartFailureKeepsStoppedRecord(t *testing.T) {
	h := newHarness(t)
	h.fake.On("start vps-u1-1", lxctest.Response{Exit: 1})

	c, err := h.v.Create(context.Background(), mainAdmin, "u1", res(2, 1, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
	assert.Equal(t, types.StatusStopped, c.Status)

	rec, ok := h.v.Registry.FindById("vps-u1-1")
	require.True(t, ok)
	assert.Equal(t, types.StatusStopped, rec.Status)
	assert.Equal(t, res(2, 1, 10), rec.Resources)
}

func TestStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	_, err := h.v.Start(ctx, "u1", c.Id)
	assert.True(t, errors.Is(err, ErrAlreadyInState))

	c, err = h.v.Stop(ctx, "u1", c.Id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusStopped, c.Status)

	_, err = h.v.Stop(ctx, "u1", c.Id)
	assert.True(t, errors.Is(err, ErrAlreadyInState))

	_, err = h.v.Start(ctx, "u3", c.Id)
	assert.True(t, errors.Is(err, ErrDenied))

	_, err = h.v.Start(ctx, "u1", "vps-u1-9")
	assert.True(t, errors.Is(err, ErrNotFound))

	c, err = h.v.Start(ctx, "u1", c.Id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, c.Status)
}

func TestStopFailureOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		info     lxctest.Response
		wantErr  bool
		expected types.Status
	}{
		{"still running", lxctest.Response{Stdout: "Name: x\nStatus: RUNNING\n"}, true, types.StatusRunning},
		{"stopped anyway", lxctest.Response{Stdout: "Name: x\nStatus: STOPPED\n"}, false, types.StatusStopped},
		{"unknown", lxctest.Response{Exit: 1}, true, types.StatusStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			c := h.create(t, "u1", res(1, 1, 1))
			h.fake.On("stop "+c.Id, lxctest.Response{Exit: 1, Stderr: "failed"})
			h.fake.On("info "+c.Id, tt.info)

			_, err := h.v.Stop(context.Background(), "u1", c.Id)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrGateway))
			} else {
				assert.NoError(t, err)
			}
			rec, _ := h.v.Registry.FindById(c.Id)
			assert.Equal(t, tt.expected, rec.Status)
		})
	}
}

func TestGatewayTimeoutIsDistinct(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	h.v.Gateway.Timeout = 10 * time.Millisecond
	h.fake.On("restart "+c.Id, lxctest.Response{Delay: time.Second})

	_, err := h.v.Restart(context.Background(), mainAdmin, c.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))
	assert.True(t, errors.Is(err, lxc.ErrTimeout))
}

func TestSuspendAndUnsuspend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	_, err := h.v.Suspend(ctx, "u1", c.Id, "")
	assert.True(t, errors.Is(err, ErrDenied))

	c, err = h.v.Suspend(ctx, mainAdmin, c.Id, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuspended, c.Status)
	require.NotNil(t, c.Suspension)
	assert.Equal(t, "Admin action", c.Suspension.Reason)
	assert.Equal(t, mainAdmin, c.Suspension.Actor)
	require.Len(t, c.SuspensionHistory, 1)
	require.Len(t, h.notifier.ofType(types.EventSuspended), 1)
	assert.Equal(t, "u1", h.notifier.ofType(types.EventSuspended)[0].Recipient)

	_, err = h.v.Start(ctx, "u1", c.Id)
	assert.True(t, errors.Is(err, ErrDenied))
	_, err = h.v.Suspend(ctx, mainAdmin, c.Id, "again")
	assert.True(t, errors.Is(err, ErrAlreadyInState))
	_, err = h.v.Delete(ctx, mainAdmin, c.Id, "")
	assert.True(t, errors.Is(err, ErrAlreadyInState))

	c, err = h.v.Unsuspend(ctx, mainAdmin, c.Id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, c.Status)
	assert.Nil(t, c.Suspension)
	assert.Len(t, c.SuspensionHistory, 1)
	assert.Len(t, h.notifier.ofType(types.EventUnsuspended), 1)
}

func TestUnsuspendRunningDoesNotStart(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	h.fake.Reset()

	_, err := h.v.Unsuspend(context.Background(), mainAdmin, c.Id)
	assert.True(t, errors.Is(err, ErrAlreadyInState))
	assert.Zero(t, h.fake.Count("start "+c.Id))
}

func TestAdminStartLiftsSuspension(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))
	_, err := h.v.Suspend(ctx, mainAdmin, c.Id, "abuse")
	require.NoError(t, err)

	c, err = h.v.Start(ctx, mainAdmin, c.Id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, c.Status)
	assert.Nil(t, c.Suspension)
}

func TestRestartClearsSuspension(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))
	_, err := h.v.Suspend(ctx, mainAdmin, c.Id, "abuse")
	require.NoError(t, err)

	c, err = h.v.Restart(ctx, mainAdmin, c.Id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, c.Status)
	assert.Nil(t, c.Suspension)
	assert.Equal(t, 2, h.fake.Count("start "+c.Id))
}

func TestConcurrentStopAndAutoSuspend(t *testing.T) {
	for i := 0; i < 10; i++ {
		h := newHarness(t)
		c := h.create(t, "u1", res(1, 1, 1))
		h.fake.On("stop "+c.Id, lxctest.Response{Delay: 5 * time.Millisecond})

		var wg sync.WaitGroup
		var stopErr, suspendErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, stopErr = h.v.Stop(context.Background(), mainAdmin, c.Id)
		}()
		go func() {
			defer wg.Done()
			_, suspendErr = h.v.AutoSuspend(context.Background(), c.Id, "High CPU usage")
		}()
		wg.Wait()

		assert.Equal(t, 1, h.fake.Count("stop "+c.Id))
		rec, _ := h.v.Registry.FindById(c.Id)
		if stopErr == nil {
			assert.True(t, errors.Is(suspendErr, ErrAlreadyInState))
			assert.Equal(t, types.StatusStopped, rec.Status)
			assert.Nil(t, rec.Suspension)
		} else {
			assert.True(t, errors.Is(stopErr, ErrAlreadyInState))
			assert.NoError(t, suspendErr)
			assert.Equal(t, types.StatusSuspended, rec.Status)
			assert.NotNil(t, rec.Suspension)
		}
	}
}

func TestReinstallConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(2, 1, 10))
	_, err := h.v.Share(ctx, "u1", c.Id, "u2")
	require.NoError(t, err)

	_, err = h.v.RequestReinstall(ctx, "u2", c.Id)
	assert.True(t, errors.Is(err, ErrDenied))

	p, err := h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	assert.Equal(t, "reinstall", p.Action)
	assert.Equal(t, c.Id, p.Target)
	assert.Zero(t, h.fake.Count("delete "+c.Id+" --force"))

	_, err = h.v.Confirm(ctx, "u2", p.Id)
	assert.True(t, errors.Is(err, ErrNotFound))

	h.clock.Advance(10 * time.Second)
	h.fake.Reset()
	out, err := h.v.Confirm(ctx, "u1", p.Id)
	require.NoError(t, err)
	require.NotNil(t, out.Container)
	assert.Equal(t, types.StatusRunning, out.Container.Status)
	assert.Equal(t, c.CreatedAt.Add(10*time.Second), out.Container.CreatedAt)
	assert.Equal(t, res(2, 1, 10), out.Container.Resources)
	assert.Equal(t, "delete "+c.Id+" --force", h.fake.Calls()[0])
	assert.Equal(t, 1, h.fake.CountPrefix("init ubuntu:22.04 "+c.Id))
	assert.Len(t, h.notifier.ofType(types.EventReinstalled), 1)

	_, err = h.v.Confirm(ctx, "u1", p.Id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReinstallFailureLeavesStopped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))
	h.fake.OnPrefix("init ", lxctest.Response{Exit: 1, Stderr: "image not found"})

	p, err := h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	out, err := h.v.Confirm(ctx, "u1", p.Id)
	assert.True(t, errors.Is(err, ErrGateway))
	require.NotNil(t, out.Container)
	assert.Equal(t, types.StatusStopped, out.Container.Status)
}

func TestConfirmationCancelAndExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	p, err := h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	cancelled, err := h.v.Cancel(ctx, "u1", p.Id)
	require.NoError(t, err)
	assert.Equal(t, p.Id, cancelled.Id)
	_, err = h.v.Confirm(ctx, "u1", p.Id)
	assert.True(t, errors.Is(err, ErrNotFound))

	p, err = h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	h.clock.Advance(h.options.ConfirmationWindowDuration() + time.Second)
	_, err = h.v.Confirm(ctx, "u1", p.Id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, h.fake.Count("delete "+c.Id+" --force"))
}

func TestRepeatedRequestReplacesPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	first, err := h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	second, err := h.v.RequestReinstall(ctx, "u1", c.Id)
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	_, err = h.v.Cancel(ctx, "u1", first.Id)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = h.v.Cancel(ctx, "u1", second.Id)
	assert.NoError(t, err)
}

func TestResizePartialFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(2, 1, 10))
	h.fake.On("config set "+c.Id+" limits.cpu 4", lxctest.Response{Exit: 1, Stderr: "too many"})

	out, err := h.v.Resize(ctx, mainAdmin, c.Id, types.ResourceChange{RamGB: intp(4), CpuCores: intp(4)})
	assert.True(t, errors.Is(err, ErrGateway))
	assert.Equal(t, res(4, 1, 10), out.Resources)
	assert.Equal(t, types.StatusStopped, out.Status)

	rec, _ := h.v.Registry.FindById(c.Id)
	assert.Equal(t, out, rec)
}

func TestResizeRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(2, 1, 10))

	_, err := h.v.Resize(ctx, "u1", c.Id, types.ResourceChange{RamGB: intp(4)})
	assert.True(t, errors.Is(err, ErrDenied))
	_, err = h.v.Resize(ctx, mainAdmin, c.Id, types.ResourceChange{})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = h.v.Resize(ctx, mainAdmin, c.Id, types.ResourceChange{DiskGB: intp(-1)})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = h.v.Resize(ctx, mainAdmin, c.Id, types.ResourceChange{RamGB: intp(2)})
	assert.True(t, errors.Is(err, ErrAlreadyInState))

	_, err = h.v.Stop(ctx, "u1", c.Id)
	require.NoError(t, err)
	h.fake.Reset()
	out, err := h.v.Resize(ctx, mainAdmin, c.Id, types.ResourceChange{DiskGB: intp(20)})
	require.NoError(t, err)
	assert.Equal(t, types.StatusStopped, out.Status)
	assert.Equal(t, []string{"config device set " + c.Id + " root size 20GB"}, h.fake.Calls())
}

func TestSsh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.v.Sessions.Settle = 0
	c := h.create(t, "u1", res(1, 1, 1))
	h.fake.OnPrefix("exec "+c.Id+" -- tmate -S", lxctest.Response{Stdout: "ssh abc@nyc1.tmate.io\n"})

	s, err := h.v.Ssh(ctx, "u1", c.Id)
	require.NoError(t, err)
	assert.Equal(t, "ssh abc@nyc1.tmate.io", s.Ssh)
	require.Len(t, h.notifier.ofType(types.EventSession), 1)

	_, err = h.v.Stop(ctx, "u1", c.Id)
	require.NoError(t, err)
	_, err = h.v.Ssh(ctx, "u1", c.Id)
	assert.True(t, errors.Is(err, ErrAlreadyInState))
}
