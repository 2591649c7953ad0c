/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/lxc"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Share grants grantee delegated access to a container.
func (v *Vpsctl) Share(ctx context.Context, actor, id, grantee string) (types.Container, error) {
	const op = "share"
	if _, _, err := v.authorized(op, actor, ActionShare, id); err != nil {
		return types.Container{}, v.fail(op, err)
	}
	c, err := v.Registry.ShareId(id, grantee)
	if err != nil {
		return c, v.fail(op, err)
	}
	v.notify(ctx, types.Event{
		Type:        types.EventShared,
		Recipient:   grantee,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("You have been granted access to container %s.", id),
	})
	return c, nil
}

// ShareAt is Share for the owner's container at the 1-based position number.
func (v *Vpsctl) ShareAt(ctx context.Context, actor, owner string, number int, grantee string) (types.Container, error) {
	c, err := v.Registry.At(owner, number)
	if err != nil {
		return c, v.fail("share", err)
	}
	return v.Share(ctx, actor, c.Id, grantee)
}

// Revoke removes the delegated access of grantee to a container.
func (v *Vpsctl) Revoke(ctx context.Context, actor, id, grantee string) (types.Container, error) {
	const op = "revoke"
	if _, _, err := v.authorized(op, actor, ActionRevoke, id); err != nil {
		return types.Container{}, v.fail(op, err)
	}
	c, err := v.Registry.RevokeId(id, grantee)
	if err != nil {
		return c, v.fail(op, err)
	}
	v.notify(ctx, types.Event{
		Type:        types.EventRevoked,
		Recipient:   grantee,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your access to container %s has been revoked.", id),
	})
	return c, nil
}

// RevokeAt is Revoke for the owner's container at the 1-based position
// number.
func (v *Vpsctl) RevokeAt(ctx context.Context, actor, owner string, number int, grantee string) (types.Container, error) {
	c, err := v.Registry.At(owner, number)
	if err != nil {
		return c, v.fail("revoke", err)
	}
	return v.Revoke(ctx, actor, c.Id, grantee)
}

// Clone copies a container into a new one for the same owner and starts
// it. The clone has its own shares and history.
func (v *Vpsctl) Clone(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "clone"
	src, _, err := v.authorized(op, actor, ActionClone, id)
	if err != nil {
		return src, v.fail(op, err)
	}

	newId, seq, err := v.Registry.NextId(src.OwnerId, v.Options.NamePrefix)
	if err != nil {
		return types.Container{}, v.fail(op, err)
	}
	unlock := v.Registry.Lock(newId)
	defer unlock()

	if err := v.Gateway.Copy(ctx, id, newId, ""); err != nil {
		return types.Container{}, v.fail(op, gatewayErr(op, err))
	}

	c := types.Container{
		Id:                newId,
		OwnerId:           src.OwnerId,
		Seq:               seq,
		Resources:         src.Resources,
		Status:            types.StatusStopped,
		CreatedAt:         v.now(),
		SharedWith:        []string{},
		SuspensionHistory: []types.SuspensionEntry{},
	}
	if err := v.Registry.Insert(c); err != nil {
		return c, v.fail(op, err)
	}
	if err := v.Gateway.Start(ctx, newId); err != nil {
		v.refreshGauges()
		return c, v.fail(op, gatewayErr(op, err))
	}
	c, err = v.commitStatus(op, newId, types.StatusRunning)
	if err != nil {
		return c, v.fail(op, err)
	}

	v.Log.WithFields(logrus.Fields{"container": newId, "source": id, "actor": actor}).Info("container cloned")
	v.notify(ctx, types.Event{
		Type:        types.EventCreated,
		Recipient:   c.OwnerId,
		ContainerId: newId,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been cloned into %s.", id, newId),
	})
	return c, nil
}

// Migrate moves a container to another storage pool by copying it under a
// temporary name, deleting the original and renaming the copy back.
func (v *Vpsctl) Migrate(ctx context.Context, actor, id, pool string) (types.Container, error) {
	const op = "migrate"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionMigrate, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if pool == "" {
		return c, v.fail(op, invalid(op, "a target storage pool is required"))
	}

	wasRunning := c.IsRunning()
	if wasRunning {
		outcome, stopErr := v.stopChecked(ctx, id)
		if outcome != stopDone {
			if outcome == stopUnknown {
				if _, cerr := v.commitStatus(op, id, types.StatusStopped); cerr != nil {
					return c, v.fail(op, cerr)
				}
			}
			return c, v.fail(op, gatewayErr(op, stopErr))
		}
	}

	// from here on the workload is halted, the record follows
	halted := func(cause error) (types.Container, error) {
		if wasRunning {
			if _, cerr := v.commitStatus(op, id, types.StatusStopped); cerr != nil {
				return c, v.fail(op, cerr)
			}
			c, _ = v.lookup(op, id)
		}
		return c, v.fail(op, gatewayErr(op, cause))
	}

	temp := id + "-migrate"
	if err := v.Gateway.Copy(ctx, id, temp, pool); err != nil {
		return halted(err)
	}
	if err := v.Gateway.Delete(ctx, id, true); err != nil {
		if delErr := v.Gateway.Delete(ctx, temp, true); delErr != nil {
			v.Log.WithError(delErr).WithField("container", temp).Error("failed to remove migration copy")
		}
		return halted(err)
	}
	if err := v.Gateway.Rename(ctx, temp, id); err != nil {
		return halted(fmt.Errorf("container left as %s: %w", temp, err))
	}
	if wasRunning {
		if err := v.Gateway.Start(ctx, id); err != nil {
			return halted(err)
		}
	}

	v.Log.WithFields(logrus.Fields{"container": id, "pool": pool, "actor": actor}).Info("container migrated")
	c, _ = v.lookup(op, id)
	return c, nil
}

// DefaultSnapshotName returns the snapshot name used when none is given.
func (v *Vpsctl) DefaultSnapshotName(id string) string {
	return fmt.Sprintf("%s-backup-%s", id, v.now().Format("20060102-150405"))
}

// SnapshotCreate takes a snapshot of a container.
func (v *Vpsctl) SnapshotCreate(ctx context.Context, actor, id, name string) (string, error) {
	const op = "snapshot"
	if _, _, err := v.authorized(op, actor, ActionSnapshot, id); err != nil {
		return "", v.fail(op, err)
	}
	if name == "" {
		name = v.DefaultSnapshotName(id)
	}
	if err := v.Gateway.Snapshot(ctx, id, name); err != nil {
		return "", v.fail(op, gatewayErr(op, err))
	}
	v.Log.WithFields(logrus.Fields{"container": id, "snapshot": name, "actor": actor}).Info("snapshot created")
	return name, nil
}

// SnapshotRestore restores a container from a snapshot. The record status
// follows what the runtime reports afterwards, a suspension is kept.
func (v *Vpsctl) SnapshotRestore(ctx context.Context, actor, id, name string) (types.Container, error) {
	const op = "restore"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionSnapshot, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if name == "" {
		return c, v.fail(op, invalid(op, "a snapshot name is required"))
	}
	if err := v.Gateway.Restore(ctx, id, name); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}

	status, err := v.Gateway.Info(ctx, id)
	if err != nil || c.IsSuspended() {
		return c, nil
	}
	next := types.StatusStopped
	if status == "RUNNING" {
		next = types.StatusRunning
	}
	if next == c.Status {
		return c, nil
	}
	return v.commitOrFail(op, id, next)
}

// SnapshotList lists the snapshots of a container.
func (v *Vpsctl) SnapshotList(ctx context.Context, actor, id string) ([]string, error) {
	const op = "snapshots"
	if _, _, err := v.authorized(op, actor, ActionSnapshot, id); err != nil {
		return nil, v.fail(op, err)
	}
	names, err := v.Gateway.Snapshots(ctx, id)
	if err != nil {
		return nil, v.fail(op, gatewayErr(op, err))
	}
	return names, nil
}

// Exec runs a shell command inside a container.
func (v *Vpsctl) Exec(ctx context.Context, actor, id, command string) (lxc.ExecResult, error) {
	const op = "exec"
	if _, _, err := v.authorized(op, actor, ActionExec, id); err != nil {
		return lxc.ExecResult{}, v.fail(op, err)
	}
	if strings.TrimSpace(command) == "" {
		return lxc.ExecResult{}, v.fail(op, invalid(op, "a command is required"))
	}
	res, err := v.Gateway.Exec(ctx, id, "bash", "-c", command)
	if err != nil {
		return res, v.fail(op, gatewayErr(op, err))
	}
	v.Log.WithFields(logrus.Fields{"container": id, "actor": actor, "exit": res.ExitCode}).Info("command executed")
	return res, nil
}

// inspect runs a read-only command inside a container and returns its
// output.
func (v *Vpsctl) inspect(ctx context.Context, op, actor, id string, argv ...string) (string, error) {
	if _, _, err := v.authorized(op, actor, ActionInspect, id); err != nil {
		return "", v.fail(op, err)
	}
	res, err := v.Gateway.Exec(ctx, id, argv...)
	if err != nil {
		return "", v.fail(op, gatewayErr(op, err))
	}
	if res.ExitCode != 0 {
		return res.Stdout, v.fail(op, gatewayErr(op, &lxc.CommandError{
			Args:     append([]string{"exec", id, "--"}, argv...),
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		}))
	}
	return res.Stdout, nil
}

// NetworkList returns the network interfaces of a container.
func (v *Vpsctl) NetworkList(ctx context.Context, actor, id string) (string, error) {
	return v.inspect(ctx, "network", actor, id, "ip", "addr")
}

// NetworkLimit sets the bandwidth limit of the container's eth0 in both
// directions, e.g. "10Mbit".
func (v *Vpsctl) NetworkLimit(ctx context.Context, actor, id, rate string) error {
	const op = "network"
	if _, _, err := v.authorized(op, actor, ActionNetwork, id); err != nil {
		return v.fail(op, err)
	}
	if rate == "" {
		return v.fail(op, invalid(op, "a rate is required"))
	}
	for _, key := range []string{"limits.egress", "limits.ingress"} {
		if err := v.Gateway.DeviceSet(ctx, id, "eth0", key, rate); err != nil {
			return v.fail(op, gatewayErr(op, err))
		}
	}
	return nil
}

// Processes returns the process list of a container.
func (v *Vpsctl) Processes(ctx context.Context, actor, id string) (string, error) {
	return v.inspect(ctx, "processes", actor, id, "ps", "aux")
}

// Logs returns the last lines of the container journal, 50 when lines is
// not positive.
func (v *Vpsctl) Logs(ctx context.Context, actor, id string, lines int) (string, error) {
	if lines <= 0 {
		lines = 50
	}
	return v.inspect(ctx, "logs", actor, id, "journalctl", "-n", strconv.Itoa(lines), "--no-pager")
}

// Stats samples the live usage of a container.
func (v *Vpsctl) Stats(ctx context.Context, actor, id string) (types.Stats, error) {
	const op = "stats"
	if _, _, err := v.authorized(op, actor, ActionStats, id); err != nil {
		return types.Stats{}, v.fail(op, err)
	}
	stats, err := v.Gateway.Stats(ctx, id)
	if err != nil {
		return stats, v.fail(op, gatewayErr(op, err))
	}
	return stats, nil
}

// Ssh opens a shared terminal session in a running container.
func (v *Vpsctl) Ssh(ctx context.Context, actor, id string) (types.Session, error) {
	const op = "ssh"
	c, _, err := v.authorized(op, actor, ActionSsh, id)
	if err != nil {
		return types.Session{}, v.fail(op, err)
	}
	if !c.IsRunning() {
		return types.Session{}, v.fail(op, alreadyIn(op, "%s is not running", id))
	}

	session, err := v.Sessions.Spawn(ctx, id)
	if err != nil {
		return session, v.fail(op, gatewayErr(op, err))
	}
	v.notify(ctx, types.Event{
		Type:        types.EventSession,
		Recipient:   actor,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("SSH session for %s: %s", id, session.Ssh),
		Data:        map[string]string{"ssh": session.Ssh},
	})
	return session, nil
}

// RequestStopAll registers a pending fleet stop, to be executed by Confirm.
func (v *Vpsctl) RequestStopAll(ctx context.Context, actor string) (types.PendingConfirmation, error) {
	const op = "stop-all"
	if err := v.requireAdmin(op, actor, ActionStopAll); err != nil {
		return types.PendingConfirmation{}, v.fail(op, err)
	}
	return v.requestConfirmation(ctx, actor, string(ActionStopAll), "*")
}

// StopAll force-stops the whole fleet with one runtime command and marks
// every running record stopped.
func (v *Vpsctl) StopAll(ctx context.Context, actor string) (types.FleetStop, error) {
	const op = "stop-all"
	if err := v.requireAdmin(op, actor, ActionStopAll); err != nil {
		return types.FleetStop{}, v.fail(op, err)
	}
	fleet, err := v.stopFleet(ctx, op)
	if err != nil {
		return fleet, v.fail(op, err)
	}
	v.notify(ctx, types.Event{
		Type:    types.EventFleetStop,
		Actor:   actor,
		Message: fmt.Sprintf("%d containers stopped by %s.", len(fleet.Stopped), actor),
	})
	return fleet, nil
}

func (v *Vpsctl) stopFleet(ctx context.Context, op string) (types.FleetStop, error) {
	out, err := v.Gateway.StopAll(ctx)
	if err != nil {
		return types.FleetStop{}, gatewayErr(op, err)
	}

	fleet := types.FleetStop{Stopped: []string{}, Output: strings.TrimSpace(out)}
	for _, c := range v.Registry.All() {
		if !c.IsRunning() {
			continue
		}
		if err := v.markStopped(op, c.Id); err != nil {
			return fleet, err
		}
		fleet.Stopped = append(fleet.Stopped, c.Id)
	}
	return fleet, nil
}

// markStopped sets a record stopped if it is still running once its lock
// is held.
func (v *Vpsctl) markStopped(op, id string) error {
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, ok := v.Registry.FindById(id)
	if !ok || !c.IsRunning() {
		return nil
	}
	_, err := v.commitStatus(op, id, types.StatusStopped)
	return err
}

// MonitorControl enables, disables or reports the background monitors.
// monitor is "host", "workload" or "all", action is "enable", "disable" or
// "status".
func (v *Vpsctl) MonitorControl(ctx context.Context, actor, monitor, action string) (types.MonitorStatus, error) {
	const op = "monitor"
	if err := v.requireAdmin(op, actor, ActionMonitor); err != nil {
		return types.MonitorStatus{}, v.fail(op, err)
	}

	var targets []interface{ SetEnabled(bool) }
	switch monitor {
	case "host":
		targets = append(targets, v.Host)
	case "workload":
		targets = append(targets, v.Workload)
	case "all", "":
		targets = append(targets, v.Host, v.Workload)
	default:
		return types.MonitorStatus{}, v.fail(op, invalid(op, "unknown monitor %q", monitor))
	}

	switch action {
	case "enable", "disable":
		for _, t := range targets {
			t.SetEnabled(action == "enable")
		}
		v.Log.WithFields(logrus.Fields{"monitor": monitor, "actor": actor}).Infof("monitor %sd", action)
	case "status", "":
	default:
		return types.MonitorStatus{}, v.fail(op, invalid(op, "unknown action %q", action))
	}
	return v.MonitorStatus(), nil
}

// MonitorStatus reports the state of both monitors.
func (v *Vpsctl) MonitorStatus() types.MonitorStatus {
	lastCpu, lastSample := v.Host.Last()
	return types.MonitorStatus{
		HostEnabled:      v.Host.Enabled(),
		WorkloadEnabled:  v.Workload.Enabled(),
		CpuThreshold:     v.Options.CpuThreshold,
		RamThreshold:     v.Options.RamThreshold,
		HostInterval:     v.Host.Interval,
		WorkloadInterval: v.Workload.Interval,
		LastHostCpu:      lastCpu,
		LastHostSample:   lastSample,
		LastSweep:        v.Workload.LastSweep(),
	}
}
