/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func testPolicy() Policy {
	return Policy{
		MainAdmin: "main",
		IsAdmin:   func(actor string) bool { return actor == "admin" },
	}
}

func TestPolicyRoles(t *testing.T) {
	p := testPolicy()
	c := &types.Container{Id: "vps-u1-1", OwnerId: "u1", SharedWith: []string{"u2"}}

	assert.Equal(t, RoleMainAdmin, p.RoleOf("main", c))
	assert.Equal(t, RoleAdmin, p.RoleOf("admin", c))
	assert.Equal(t, RoleOwner, p.RoleOf("u1", c))
	assert.Equal(t, RoleShared, p.RoleOf("u2", c))
	assert.Equal(t, RoleNone, p.RoleOf("u3", c))
	assert.Equal(t, RoleNone, p.RoleOf("u1", nil))
	assert.Equal(t, RoleNone, Policy{}.RoleOf("", c))
}

func TestPolicyMatrix(t *testing.T) {
	p := testPolicy()
	running := &types.Container{Id: "vps-u1-1", OwnerId: "u1", Status: types.StatusRunning, SharedWith: []string{"u2"}}
	suspended := &types.Container{Id: "vps-u1-2", OwnerId: "u1", Status: types.StatusSuspended, SharedWith: []string{"u2"}}

	tests := []struct {
		name    string
		actor   string
		action  Action
		target  *types.Container
		allowed bool
	}{
		{"owner starts", "u1", ActionStart, running, true},
		{"owner reinstalls", "u1", ActionReinstall, running, true},
		{"owner shares", "u1", ActionShare, running, true},
		{"owner can not resize", "u1", ActionResize, running, false},
		{"owner can not delete", "u1", ActionDelete, running, false},
		{"owner can not unsuspend", "u1", ActionUnsuspend, suspended, false},
		{"owner views suspended", "u1", ActionView, suspended, true},
		{"owner can not start suspended", "u1", ActionStart, suspended, false},
		{"owner can not ssh suspended", "u1", ActionSsh, suspended, false},
		{"owner can not reinstall suspended", "u1", ActionReinstall, suspended, false},
		{"shared views", "u2", ActionView, running, true},
		{"shared stops", "u2", ActionStop, running, true},
		{"shared ssh", "u2", ActionSsh, running, true},
		{"shared can not reinstall", "u2", ActionReinstall, running, false},
		{"shared can not reinstall suspended", "u2", ActionReinstall, suspended, false},
		{"shared can not share", "u2", ActionShare, running, false},
		{"shared can not revoke", "u2", ActionRevoke, running, false},
		{"stranger can not view", "u3", ActionView, running, false},
		{"admin deletes", "admin", ActionDelete, running, true},
		{"admin starts suspended", "admin", ActionStart, suspended, true},
		{"admin stops fleet", "admin", ActionStopAll, nil, true},
		{"admin can not manage admins", "admin", ActionAdminManage, nil, false},
		{"main manages admins", "main", ActionAdminManage, nil, true},
		{"user can not create", "u1", ActionCreate, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Authorize(tt.actor, tt.action, tt.target)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestPolicySuspendedReason(t *testing.T) {
	c := &types.Container{Id: "vps-u1-2", OwnerId: "u1", Status: types.StatusSuspended}
	d := testPolicy().Authorize("u1", ActionStart, c)
	assert.False(t, d.Allowed)
	assert.Equal(t, RoleOwner, d.Role)
	assert.Contains(t, d.Reason, "suspended")
}
