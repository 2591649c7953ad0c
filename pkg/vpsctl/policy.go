/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"fmt"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Action is something an actor may ask to do.
type Action string

const (
	ActionView      Action = "view"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionSsh       Action = "ssh"
	ActionStats     Action = "stats"
	ActionReinstall Action = "reinstall"
	ActionShare     Action = "share"
	ActionRevoke    Action = "revoke"

	ActionCreate      Action = "create"
	ActionDelete      Action = "delete"
	ActionResize      Action = "resize"
	ActionSuspend     Action = "suspend"
	ActionUnsuspend   Action = "unsuspend"
	ActionRestart     Action = "restart"
	ActionSnapshot    Action = "snapshot"
	ActionExec        Action = "exec"
	ActionClone       Action = "clone"
	ActionMigrate     Action = "migrate"
	ActionNetwork     Action = "network"
	ActionInspect     Action = "inspect"
	ActionStopAll     Action = "stop-all"
	ActionMonitor     Action = "monitor"
	ActionFleet       Action = "fleet"
	ActionAdminManage Action = "admin-manage"
)

// Role is the relation between an actor and a container that granted an
// authorization.
type Role string

const (
	RoleMainAdmin Role = "main-admin"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
	RoleShared    Role = "shared"
	RoleNone      Role = "none"
)

var (
	ownerActions = map[Action]bool{
		ActionView: true, ActionStart: true, ActionStop: true, ActionSsh: true,
		ActionStats: true, ActionReinstall: true, ActionShare: true, ActionRevoke: true,
	}
	sharedActions = map[Action]bool{
		ActionView: true, ActionStart: true, ActionStop: true, ActionSsh: true, ActionStats: true,
	}
	mainAdminActions = map[Action]bool{
		ActionAdminManage: true,
	}
	// actions a suspension blocks for non-admins
	suspendBlocked = map[Action]bool{
		ActionStart: true, ActionStop: true, ActionReinstall: true, ActionSsh: true,
	}
)

// Decision is the outcome of an authorization check. A denial is a normal
// result, not an error.
type Decision struct {
	Allowed bool
	Role    Role
	Reason  string
}

// Policy decides who may do what. It holds no state of its own.
type Policy struct {
	MainAdmin string
	IsAdmin   func(actor string) bool
}

// RoleOf returns the strongest role of actor, for target when set.
func (p Policy) RoleOf(actor string, target *types.Container) Role {
	switch {
	case actor != "" && actor == p.MainAdmin:
		return RoleMainAdmin
	case p.IsAdmin != nil && p.IsAdmin(actor):
		return RoleAdmin
	case target != nil && target.OwnerId == actor:
		return RoleOwner
	case target != nil && target.IsSharedWith(actor):
		return RoleShared
	}
	return RoleNone
}

// Authorize decides whether actor may perform action on target. target is
// nil for actions not bound to a container.
func (p Policy) Authorize(actor string, action Action, target *types.Container) Decision {
	role := p.RoleOf(actor, target)
	switch role {
	case RoleMainAdmin:
		return Decision{Allowed: true, Role: role}
	case RoleAdmin:
		if mainAdminActions[action] {
			return Decision{Role: role, Reason: "only the main admin can manage admins"}
		}
		return Decision{Allowed: true, Role: role}
	case RoleOwner:
		if !ownerActions[action] {
			return Decision{Role: role, Reason: fmt.Sprintf("%s requires admin privileges", action)}
		}
	case RoleShared:
		if !sharedActions[action] {
			return Decision{Role: role, Reason: fmt.Sprintf("shared access does not allow %s", action)}
		}
	default:
		if target == nil {
			return Decision{Role: role, Reason: fmt.Sprintf("%s requires admin privileges", action)}
		}
		return Decision{Role: role, Reason: fmt.Sprintf("you do not have access to %s", target.Id)}
	}

	if target.IsSuspended() && suspendBlocked[action] {
		return Decision{Role: role, Reason: fmt.Sprintf("%s is suspended, contact an admin", target.Id)}
	}
	return Decision{Allowed: true, Role: role}
}

// check turns a denial into an error.
func (p Policy) check(op, actor string, action Action, target *types.Container) (Role, error) {
	d := p.Authorize(actor, action, target)
	if !d.Allowed {
		authorizationDenials.WithLabelValues(string(action)).Inc()
		return d.Role, denied(op, d.Reason)
	}
	return d.Role, nil
}
