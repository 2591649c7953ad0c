/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// stopOutcome is what is known about a container after a stop attempt.
type stopOutcome int

const (
	stopDone    stopOutcome = iota // the workload is halted
	stopFailed                     // the workload is still running
	stopUnknown                    // the runtime could not tell
)

// stopChecked stops a container and, when the stop fails, asks the runtime
// what happened to it.
func (v *Vpsctl) stopChecked(ctx context.Context, id string) (stopOutcome, error) {
	err := v.Gateway.Stop(ctx, id, false)
	if err == nil {
		return stopDone, nil
	}

	status, probeErr := v.Gateway.Info(ctx, id)
	log := v.Log.WithError(err).WithField("container", id)
	switch {
	case probeErr == nil && status == "STOPPED":
		log.Warn("stop reported a failure but the container is stopped")
		return stopDone, nil
	case probeErr == nil && status == "RUNNING":
		return stopFailed, err
	}
	log.WithField("probe", probeErr).Warn("stop outcome unknown, assuming stopped")
	return stopUnknown, err
}

// Start starts a stopped container. An admin starting a suspended container
// lifts the suspension.
func (v *Vpsctl) Start(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "start"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionStart, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if c.IsRunning() {
		return c, v.fail(op, alreadyIn(op, "%s is already running", id))
	}
	if c.IsSuspended() {
		return v.unsuspendLocked(ctx, actor, c)
	}

	if err := v.Gateway.Start(ctx, id); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}
	c, err = v.commitStatus(op, id, types.StatusRunning)
	if err != nil {
		return c, v.fail(op, err)
	}
	v.Log.WithFields(logrus.Fields{"container": id, "actor": actor}).Info("container started")
	return c, nil
}

// Stop stops a running container. When the stop fails and the runtime can
// not tell the container state, the record is set to stopped anyway and the
// failure is still returned.
func (v *Vpsctl) Stop(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "stop"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionStop, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if !c.IsRunning() {
		return c, v.fail(op, alreadyIn(op, "%s is not running", id))
	}

	outcome, stopErr := v.stopChecked(ctx, id)
	if outcome == stopFailed {
		return c, v.fail(op, gatewayErr(op, stopErr))
	}
	c, err = v.commitStatus(op, id, types.StatusStopped)
	if err != nil {
		return c, v.fail(op, err)
	}
	if outcome == stopUnknown {
		return c, v.fail(op, gatewayErr(op, stopErr))
	}
	v.Log.WithFields(logrus.Fields{"container": id, "actor": actor}).Info("container stopped")
	return c, nil
}

// Suspend stops a running container and blocks it until an admin lifts
// the suspension.
func (v *Vpsctl) Suspend(ctx context.Context, actor, id, reason string) (types.Container, error) {
	const op = "suspend"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionSuspend, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if reason == "" {
		reason = "Admin action"
	}
	return v.suspendLocked(ctx, op, c, reason, actor)
}

// AutoSuspend is Suspend on behalf of the workload monitor. Containers that
// are no longer running when the lock is acquired are left alone.
func (v *Vpsctl) AutoSuspend(ctx context.Context, id, reason string) (types.Container, error) {
	const op = "auto-suspend"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, err := v.lookup(op, id)
	if err != nil {
		return c, err
	}
	c, err = v.suspendLocked(ctx, op, c, reason, AutoActor)
	if err == nil {
		autoSuspensionsTotal.Inc()
	}
	return c, err
}

func (v *Vpsctl) suspendLocked(ctx context.Context, op string, c types.Container, reason, actor string) (types.Container, error) {
	if !c.IsRunning() {
		return c, v.fail(op, alreadyIn(op, "%s is not running", c.Id))
	}

	outcome, stopErr := v.stopChecked(ctx, c.Id)
	switch outcome {
	case stopFailed:
		return c, v.fail(op, gatewayErr(op, stopErr))
	case stopUnknown:
		c, err := v.commitStatus(op, c.Id, types.StatusStopped)
		if err != nil {
			return c, v.fail(op, err)
		}
		return c, v.fail(op, gatewayErr(op, stopErr))
	}

	at := v.now()
	c, err := v.Registry.Mutate(c.Id, func(r *types.Container) error {
		r.Status = types.StatusSuspended
		r.Suspension = &types.Suspension{Reason: reason, Actor: actor, At: at}
		r.SuspensionHistory = append(r.SuspensionHistory, types.SuspensionEntry{
			Time:   at,
			Reason: reason,
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return c, v.fail(op, err)
	}
	transitionsTotal.WithLabelValues(op + ":" + string(types.StatusSuspended)).Inc()
	v.refreshGauges()

	v.Log.WithFields(logrus.Fields{"container": c.Id, "owner": c.OwnerId, "actor": actor}).
		Warnf("container suspended: %s", reason)
	v.notify(ctx, types.Event{
		Type:        types.EventSuspended,
		Recipient:   c.OwnerId,
		ContainerId: c.Id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been suspended. Reason: %s. Contact an admin to unsuspend it.", c.Id, reason),
		Data:        map[string]string{"reason": reason},
	})
	return c, nil
}

// Unsuspend lifts a suspension and starts the container again.
func (v *Vpsctl) Unsuspend(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "unsuspend"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionUnsuspend, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	return v.unsuspendLocked(ctx, actor, c)
}

func (v *Vpsctl) unsuspendLocked(ctx context.Context, actor string, c types.Container) (types.Container, error) {
	const op = "unsuspend"
	if !c.IsSuspended() {
		return c, v.fail(op, alreadyIn(op, "%s is not suspended", c.Id))
	}

	if err := v.Gateway.Start(ctx, c.Id); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}
	c, err := v.commitStatus(op, c.Id, types.StatusRunning)
	if err != nil {
		return c, v.fail(op, err)
	}

	v.Log.WithFields(logrus.Fields{"container": c.Id, "actor": actor}).Info("container unsuspended")
	v.notify(ctx, types.Event{
		Type:        types.EventUnsuspended,
		Recipient:   c.OwnerId,
		ContainerId: c.Id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been unsuspended and started.", c.Id),
	})
	return c, nil
}

// Restart restarts a container through the runtime. The container ends up
// running, so any suspension is lifted.
func (v *Vpsctl) Restart(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "restart"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionRestart, id)
	if err != nil {
		return c, v.fail(op, err)
	}

	if c.IsRunning() {
		err = v.Gateway.Restart(ctx, id)
	} else {
		err = v.Gateway.Start(ctx, id)
	}
	if err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}
	return v.commitOrFail(op, id, types.StatusRunning)
}

func (v *Vpsctl) commitOrFail(op, id string, status types.Status) (types.Container, error) {
	c, err := v.commitStatus(op, id, status)
	if err != nil {
		return c, v.fail(op, err)
	}
	return c, nil
}

// Delete destroys a container and removes its record. When it was the last
// container of its owner the ownership role is revoked.
func (v *Vpsctl) Delete(ctx context.Context, actor, id, reason string) (types.Container, error) {
	const op = "delete"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionDelete, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if c.IsSuspended() {
		return c, v.fail(op, alreadyIn(op, "%s is suspended, unsuspend it before deleting", id))
	}
	if reason == "" {
		reason = "No reason"
	}

	if err := v.Gateway.Delete(ctx, id, true); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}
	remaining, err := v.Registry.Delete(id)
	if err != nil {
		return c, v.fail(op, err)
	}
	transitionsTotal.WithLabelValues(op + ":removed").Inc()
	v.refreshGauges()

	v.Log.WithFields(logrus.Fields{"container": id, "owner": c.OwnerId, "actor": actor}).
		Infof("container deleted: %s", reason)
	v.notify(ctx, types.Event{
		Type:        types.EventDeleted,
		Recipient:   c.OwnerId,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been deleted. Reason: %s", id, reason),
		Data:        map[string]string{"reason": reason},
	})
	if remaining == 0 {
		v.notify(ctx, types.Event{
			Type:      types.EventRoleRevoke,
			Recipient: c.OwnerId,
			Actor:     actor,
			Message:   "You no longer own any container.",
		})
	}
	return c, nil
}

// DeleteAt deletes the owner's container at the 1-based position number.
func (v *Vpsctl) DeleteAt(ctx context.Context, actor, owner string, number int, reason string) (types.Container, error) {
	c, err := v.Registry.At(owner, number)
	if err != nil {
		return c, v.fail("delete", err)
	}
	return v.Delete(ctx, actor, c.Id, reason)
}

// applyResources sets the limits of r that differ from cur, one at a time,
// and returns what was applied before a failure.
func (v *Vpsctl) applyResources(ctx context.Context, id string, cur, r types.Resources) (types.Resources, error) {
	applied := cur
	if r.RamGB != cur.RamGB {
		if err := v.Gateway.ConfigSet(ctx, id, "limits.memory", r.MemoryLimit()); err != nil {
			return applied, err
		}
		applied.RamGB = r.RamGB
	}
	if r.CpuCores != cur.CpuCores {
		if err := v.Gateway.ConfigSet(ctx, id, "limits.cpu", fmt.Sprint(r.CpuCores)); err != nil {
			return applied, err
		}
		applied.CpuCores = r.CpuCores
	}
	if r.DiskGB != cur.DiskGB {
		if err := v.Gateway.DeviceSet(ctx, id, "root", "size", r.DiskSize()); err != nil {
			return applied, err
		}
		applied.DiskGB = r.DiskGB
	}
	return applied, nil
}

// Create creates, configures and starts a new container for owner.
func (v *Vpsctl) Create(ctx context.Context, actor, owner string, r types.Resources) (types.Container, error) {
	const op = "create"
	if err := v.requireAdmin(op, actor, ActionCreate); err != nil {
		return types.Container{}, v.fail(op, err)
	}
	if owner == "" {
		return types.Container{}, v.fail(op, invalid(op, "an owner is required"))
	}
	if err := validate.Var(owner, ownerNameRules); err != nil {
		return types.Container{}, v.fail(op, &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf("owner %q cannot be part of a container name", owner), Err: err})
	}
	if err := validate.Struct(r); err != nil {
		return types.Container{}, v.fail(op, &Error{Kind: KindValidation, Op: op, Msg: "resources must be positive", Err: err})
	}

	id, seq, err := v.Registry.NextId(owner, v.Options.NamePrefix)
	if err != nil {
		return types.Container{}, v.fail(op, err)
	}
	unlock := v.Registry.Lock(id)
	defer unlock()

	log := v.Log.WithFields(logrus.Fields{"container": id, "owner": owner, "actor": actor})
	if err := v.Gateway.Init(ctx, v.Options.Image, id, v.Options.StoragePool, v.Options.Profiles...); err != nil {
		return types.Container{}, v.fail(op, gatewayErr(op, err))
	}

	// the runtime defaults are unknown, so every limit is set
	if _, err := v.applyResources(ctx, id, types.Resources{}, r); err != nil {
		if delErr := v.Gateway.Delete(ctx, id, true); delErr != nil {
			log.WithError(delErr).Error("failed to clean up partially configured container")
		}
		return types.Container{}, v.fail(op, gatewayErr(op, err))
	}

	c := types.Container{
		Id:                id,
		OwnerId:           owner,
		Seq:               seq,
		Resources:         r,
		Status:            types.StatusStopped,
		CreatedAt:         v.now(),
		SharedWith:        []string{},
		SuspensionHistory: []types.SuspensionEntry{},
	}
	if err := v.Registry.Insert(c); err != nil {
		return c, v.fail(op, err)
	}
	v.refreshGauges()

	if err := v.Gateway.Start(ctx, id); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}
	c, err = v.commitStatus(op, id, types.StatusRunning)
	if err != nil {
		return c, v.fail(op, err)
	}

	log.WithField("resources", r.String()).Info("container created")
	v.notify(ctx, types.Event{
		Type:        types.EventCreated,
		Recipient:   owner,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been created: %s", id, c.Config()),
	})
	if len(v.Registry.Get(owner)) == 1 {
		v.notify(ctx, types.Event{
			Type:      types.EventRoleGrant,
			Recipient: owner,
			Actor:     actor,
			Message:   "You now own a container.",
		})
	}
	return c, nil
}

// RequestReinstall registers a pending reinstall of the container, to be
// executed by Confirm.
func (v *Vpsctl) RequestReinstall(ctx context.Context, actor, id string) (types.PendingConfirmation, error) {
	const op = "reinstall"
	if _, _, err := v.authorized(op, actor, ActionReinstall, id); err != nil {
		return types.PendingConfirmation{}, v.fail(op, err)
	}
	return v.requestConfirmation(ctx, actor, string(ActionReinstall), id)
}

// reinstall destroys the workload and recreates it with the same resources.
// A failure after the destroy step leaves the record stopped.
func (v *Vpsctl) reinstall(ctx context.Context, actor, id string) (types.Container, error) {
	const op = "reinstall"
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionReinstall, id)
	if err != nil {
		return c, v.fail(op, err)
	}

	if err := v.Gateway.Delete(ctx, id, true); err != nil {
		return c, v.fail(op, gatewayErr(op, err))
	}

	recreate := func() error {
		if err := v.Gateway.Init(ctx, v.Options.Image, id, v.Options.StoragePool, v.Options.Profiles...); err != nil {
			return err
		}
		if _, err := v.applyResources(ctx, id, types.Resources{}, c.Resources); err != nil {
			return err
		}
		return v.Gateway.Start(ctx, id)
	}
	if err := recreate(); err != nil {
		if _, cerr := v.commitStatus(op, id, types.StatusStopped); cerr != nil {
			return c, v.fail(op, cerr)
		}
		c, _ = v.lookup(op, id)
		return c, v.fail(op, gatewayErr(op, err))
	}

	createdAt := v.now()
	c, err = v.Registry.Mutate(id, func(r *types.Container) error {
		r.Status = types.StatusRunning
		r.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return c, v.fail(op, err)
	}
	transitionsTotal.WithLabelValues(op + ":" + string(types.StatusRunning)).Inc()
	v.refreshGauges()

	v.Log.WithFields(logrus.Fields{"container": id, "actor": actor}).Info("container reinstalled")
	v.notify(ctx, types.Event{
		Type:        types.EventReinstalled,
		Recipient:   c.OwnerId,
		ContainerId: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Your container %s has been reinstalled.", id),
	})
	return c, nil
}
