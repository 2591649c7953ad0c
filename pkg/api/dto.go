/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package api

import "github.com/mirkobrombin/vpsctl/pkg/types"

type CreateRequest struct {
	Owner     string          `json:"owner" binding:"required"`
	Resources types.Resources `json:"resources"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type GranteeRequest struct {
	Grantee string `json:"grantee" binding:"required"`
}

type MigrateRequest struct {
	Pool string `json:"pool" binding:"required"`
}

type SnapshotRequest struct {
	Name string `json:"name"`
}

type ExecRequest struct {
	Command string `json:"command" binding:"required"`
}

type LimitRequest struct {
	Rate string `json:"rate" binding:"required"`
}

type MonitorRequest struct {
	Monitor string `json:"monitor"`
	Action  string `json:"action" binding:"required"`
}

type UserRequest struct {
	User string `json:"user" binding:"required"`
}

// ListAllResponse is the fleet listing with its totals.
type ListAllResponse struct {
	Containers []types.OwnedContainer `json:"containers"`
	Totals     types.Totals           `json:"totals"`
}

// WhoamiResponse describes the authenticated actor.
type WhoamiResponse struct {
	Actor string `json:"actor"`
	Role  string `json:"role"`
}
