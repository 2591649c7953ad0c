/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"sort"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func numbered(list []types.Container) []types.OwnedContainer {
	out := make([]types.OwnedContainer, 0, len(list))
	for i, c := range list {
		out = append(out, types.OwnedContainer{Number: i + 1, Container: c})
	}
	return out
}

// List returns the containers of owner. Only the owner and admins may list
// them.
func (v *Vpsctl) List(ctx context.Context, actor, owner string) ([]types.OwnedContainer, error) {
	const op = "list"
	if owner == "" {
		owner = actor
	}
	if owner != actor {
		if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
			return nil, v.fail(op, err)
		}
	}
	return numbered(v.Registry.Get(owner)), nil
}

// ListShared returns the containers shared with actor, numbered in their
// owner's list.
func (v *Vpsctl) ListShared(ctx context.Context, actor string) []types.OwnedContainer {
	shared := v.Registry.SharedWith(actor)
	out := make([]types.OwnedContainer, 0, len(shared))
	for _, c := range shared {
		out = append(out, types.OwnedContainer{Number: v.Registry.Number(c.Id), Container: c})
	}
	return out
}

// ListAll returns every container, grouped by owner.
func (v *Vpsctl) ListAll(ctx context.Context, actor string) ([]types.OwnedContainer, types.Totals, error) {
	const op = "list-all"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return nil, types.Totals{}, v.fail(op, err)
	}
	var totals types.Totals
	out := []types.OwnedContainer{}
	for _, owner := range v.Registry.Owners() {
		for _, oc := range numbered(v.Registry.Get(owner)) {
			totals.Add(oc.Container)
			out = append(out, oc)
		}
	}
	return out, totals, nil
}

// Manage returns the management view of a container with its live stats.
// Failing to sample the stats is not an error.
func (v *Vpsctl) Manage(ctx context.Context, actor, id string) (types.ManageView, error) {
	const op = "manage"
	c, role, err := v.authorized(op, actor, ActionView, id)
	if err != nil {
		return types.ManageView{}, v.fail(op, err)
	}

	view := types.ManageView{Container: c, Role: string(role)}
	stats, err := v.Gateway.Stats(ctx, id)
	if err != nil {
		view.Warning = "live stats unavailable: " + err.Error()
	} else {
		view.Stats = &stats
	}
	if c.IsSuspended() {
		view.Warning = "this container is suspended, contact an admin"
	}
	return view, nil
}

// ContainerInfo returns the record of a container without sampling it.
func (v *Vpsctl) ContainerInfo(ctx context.Context, actor, id string) (types.ManageView, error) {
	const op = "info"
	c, role, err := v.authorized(op, actor, ActionView, id)
	if err != nil {
		return types.ManageView{}, v.fail(op, err)
	}
	return types.ManageView{Container: c, Role: string(role)}, nil
}

// UserInfo returns the admin view of user.
func (v *Vpsctl) UserInfo(ctx context.Context, actor, user string) (types.UserInfo, error) {
	const op = "user"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return types.UserInfo{}, v.fail(op, err)
	}
	info := types.UserInfo{
		UserId:      user,
		IsMainAdmin: user == v.Options.MainAdminId,
		IsAdmin:     user == v.Options.MainAdminId || v.Registry.IsAdmin(user),
		Containers:  numbered(v.Registry.Get(user)),
	}
	for _, oc := range info.Containers {
		info.Totals.Add(oc.Container)
	}
	return info, nil
}

// ServerStats summarizes the fleet.
func (v *Vpsctl) ServerStats(ctx context.Context, actor string) (types.ServerStats, error) {
	const op = "server-stats"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return types.ServerStats{}, v.fail(op, err)
	}
	stats := types.ServerStats{Users: len(v.Registry.Owners())}
	for _, c := range v.Registry.All() {
		stats.Totals.Add(c)
	}
	return stats, nil
}

// SuspensionLogs returns suspension history entries newest first, of one
// container when id is set or of the whole fleet otherwise. limit bounds
// the entries when positive.
func (v *Vpsctl) SuspensionLogs(ctx context.Context, actor, id string, limit int) ([]types.SuspensionLog, error) {
	const op = "suspensions"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return nil, v.fail(op, err)
	}

	var containers []types.Container
	if id != "" {
		c, err := v.lookup(op, id)
		if err != nil {
			return nil, v.fail(op, err)
		}
		containers = []types.Container{c}
	} else {
		containers = v.Registry.All()
	}

	logs := []types.SuspensionLog{}
	for _, c := range containers {
		for _, e := range c.History(0) {
			logs = append(logs, types.SuspensionLog{ContainerId: c.Id, OwnerId: c.OwnerId, Entry: e})
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Entry.Time.After(logs[j].Entry.Time)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// Uptime describes the host.
func (v *Vpsctl) Uptime(ctx context.Context) (types.HostInfo, error) {
	info, err := v.Probe.Info(ctx)
	if err != nil {
		return info, v.fail("uptime", &Error{Kind: KindInternal, Op: "uptime", Err: err})
	}
	return info, nil
}

// RuntimeList returns the runtime listing, as printed by the runtime
// client.
func (v *Vpsctl) RuntimeList(ctx context.Context, actor string) (string, error) {
	const op = "runtime-list"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return "", v.fail(op, err)
	}
	out, err := v.Gateway.List(ctx)
	if err != nil {
		return "", v.fail(op, gatewayErr(op, err))
	}
	return out, nil
}
