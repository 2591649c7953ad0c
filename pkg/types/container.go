/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package types

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle status of a container as tracked by the registry.
type Status string

const (
	StatusRunning   Status = "running"
	StatusStopped   Status = "stopped"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusSuspended:
		return true
	}
	return false
}

// Suspension describes why and by whom a container is currently suspended.
// It is only set when the container status is StatusSuspended.
type Suspension struct {
	Reason string    `json:"reason"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// SuspensionEntry is a single entry of the suspension history of a container.
// Entries are never modified once appended.
type SuspensionEntry struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
	Actor  string    `json:"actor"`
}

// Container is the struct that represents a container in the registry and
// in the store.
type Container struct {
	// Id is the runtime identifier of the container, it is expected to be
	// unique across all the containers in the registry, regardless of the
	// owner.
	Id string `json:"id"`

	// OwnerId is the actor who owns the container. It is set at creation
	// and never changes.
	OwnerId string `json:"owner_id"`

	// Seq is the per-owner sequence number the container was created with,
	// it defines the order of the containers of an owner.
	Seq int `json:"seq"`

	// Resources are the resources allocated to the container.
	Resources Resources `json:"resources"`

	// Status is the current lifecycle status.
	Status Status `json:"status"`

	// Suspension holds the details of the current suspension, nil unless
	// Status is StatusSuspended.
	Suspension *Suspension `json:"suspension,omitempty"`

	// CreatedAt is the time the container was created, reset on reinstall.
	CreatedAt time.Time `json:"created_at"`

	// SharedWith is the list of actors granted delegated access. The owner
	// never appears in it.
	SharedWith []string `json:"shared_with"`

	// SuspensionHistory is the append-only log of suspensions, oldest first.
	SuspensionHistory []SuspensionEntry `json:"suspension_history"`
}

// IsSuspended reports whether the container is blocked by a suspension.
func (c Container) IsSuspended() bool {
	return c.Status == StatusSuspended
}

// IsRunning reports whether the container is running and not suspended.
func (c Container) IsRunning() bool {
	return c.Status == StatusRunning
}

// Config returns the human readable configuration string of the container.
func (c Container) Config() string {
	return c.Resources.String()
}

// IsSharedWith reports whether the given actor is a grantee of the container.
func (c Container) IsSharedWith(actor string) bool {
	return slices.Contains(c.SharedWith, actor)
}

// StatusText returns the status as shown to users.
func (c Container) StatusText() string {
	if !c.Status.Valid() {
		return "UNKNOWN"
	}
	return strings.ToUpper(string(c.Status))
}

// Copy returns a deep copy of the container, so that callers can never
// mutate a record held by the registry.
func (c Container) Copy() Container {
	out := c
	out.SharedWith = append(make([]string, 0, len(c.SharedWith)), c.SharedWith...)
	out.SuspensionHistory = append(make([]SuspensionEntry, 0, len(c.SuspensionHistory)), c.SuspensionHistory...)
	if c.Suspension != nil {
		s := *c.Suspension
		out.Suspension = &s
	}
	return out
}

// History returns the suspension history newest first, limited to n entries
// when n is greater than zero.
func (c Container) History(n int) []SuspensionEntry {
	out := make([]SuspensionEntry, 0, len(c.SuspensionHistory))
	for i := len(c.SuspensionHistory) - 1; i >= 0; i-- {
		out = append(out, c.SuspensionHistory[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
