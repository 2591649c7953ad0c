/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mirkobrombin/vpsctl/pkg/lxc"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Audit checks the registry against the runtime. If repair is true, records
// whose container is gone are removed and statuses are aligned with the
// runtime, a suspended container found running is stopped again. Runtime
// containers unknown to the registry are only reported.
func (v *Vpsctl) Audit(ctx context.Context, actor string, repair bool) ([]types.AuditIssue, error) {
	const op = "audit"
	if err := v.requireAdmin(op, actor, ActionFleet); err != nil {
		return nil, v.fail(op, err)
	}

	states, err := v.Gateway.States(ctx)
	if err != nil {
		return nil, v.fail(op, gatewayErr(op, err))
	}

	issues := []types.AuditIssue{}
	log := v.Log.WithField("op", op)
	known := make(map[string]bool)

	for _, c := range v.Registry.All() {
		known[c.Id] = true
		state, exists := states[c.Id]

		var issue *types.AuditIssue
		switch {
		case !exists:
			issue = &types.AuditIssue{ContainerId: c.Id, Problem: "container missing from runtime"}
			if repair {
				issue.Repaired = v.auditRemove(ctx, actor, c.Id)
			}
		case c.IsSuspended() && state == "RUNNING":
			issue = &types.AuditIssue{ContainerId: c.Id, Problem: "suspended container is running"}
			if repair {
				issue.Repaired = v.Gateway.Stop(ctx, c.Id, true) == nil
			}
		case c.IsRunning() && state != "RUNNING":
			issue = &types.AuditIssue{ContainerId: c.Id, Problem: fmt.Sprintf("record running, runtime %s", strings.ToLower(state))}
			if repair {
				issue.Repaired = v.auditAlign(c.Id, types.StatusRunning, types.StatusStopped)
			}
		case c.Status == types.StatusStopped && state == "RUNNING":
			issue = &types.AuditIssue{ContainerId: c.Id, Problem: "record stopped, runtime running"}
			if repair {
				issue.Repaired = v.auditAlign(c.Id, types.StatusStopped, types.StatusRunning)
			}
		}
		if issue != nil {
			log.WithField("container", c.Id).WithField("repaired", issue.Repaired).Warn(issue.Problem)
			issues = append(issues, *issue)
		}
	}

	prefix := v.Options.NamePrefix + "-"
	var orphans []string
	for name := range states {
		if !known[name] && strings.HasPrefix(name, prefix) {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		log.WithField("container", name).Warn("runtime container not in registry")
		issues = append(issues, types.AuditIssue{ContainerId: name, Problem: "runtime container not in registry"})
	}
	return issues, nil
}

// auditRemove drops the record of a container missing from the runtime. The
// runtime is asked again under the record lock, since the listing may predate
// an operation that recreated the container.
func (v *Vpsctl) auditRemove(ctx context.Context, actor, id string) bool {
	unlock := v.Registry.Lock(id)
	defer unlock()
	c, ok := v.Registry.FindById(id)
	if !ok {
		return false
	}
	log := v.Log.WithField("container", id)

	_, err := v.Gateway.Info(ctx, id)
	if err == nil {
		log.Info("container is back in the runtime, record kept")
		return false
	}
	var cmdErr *lxc.CommandError
	if !errors.As(err, &cmdErr) || !cmdErr.Exited() {
		log.WithError(err).Warn("could not confirm the container is gone, record kept")
		return false
	}

	remaining, err := v.Registry.Delete(id)
	if err != nil {
		log.WithError(err).Error("failed to remove record")
		return false
	}
	transitionsTotal.WithLabelValues("audit:removed").Inc()
	v.refreshGauges()
	if remaining == 0 {
		v.notify(ctx, types.Event{
			Type:      types.EventRoleRevoke,
			Recipient: c.OwnerId,
			Actor:     actor,
			Message:   "You no longer own any container.",
		})
	}
	return true
}

// auditAlign moves a record from one status to another if it did not change
// in the meantime.
func (v *Vpsctl) auditAlign(id string, from, to types.Status) bool {
	unlock := v.Registry.Lock(id)
	defer unlock()
	c, ok := v.Registry.FindById(id)
	if !ok || c.Status != from {
		return false
	}
	_, err := v.commitStatus("audit", id, to)
	return err == nil
}
