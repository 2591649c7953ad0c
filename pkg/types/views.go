/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package types

import "time"

// OwnedContainer is a container together with its 1-based position in the
// owner's list, the number users refer to it with.
type OwnedContainer struct {
	Number    int       `json:"number"`
	Container Container `json:"container"`
}

// Stats is a live usage sample of a container.
type Stats struct {
	Status      string  `json:"status"`
	CpuPercent  float64 `json:"cpu_percent"`
	MemUsedMB   int     `json:"mem_used_mb"`
	MemTotalMB  int     `json:"mem_total_mb"`
	MemPercent  float64 `json:"mem_percent"`
	DiskUsed    string  `json:"disk_used"`
	DiskSize    string  `json:"disk_size"`
	DiskPercent string  `json:"disk_percent"`
}

// ManageView is what an actor sees when managing a single container.
type ManageView struct {
	Container Container `json:"container"`
	Role      string    `json:"role"`
	Stats     *Stats    `json:"stats,omitempty"`
	Warning   string    `json:"warning,omitempty"`
}

// Totals sums the resources and statuses of a set of containers.
type Totals struct {
	Containers int `json:"containers"`
	Running    int `json:"running"`
	Stopped    int `json:"stopped"`
	Suspended  int `json:"suspended"`
	RamGB      int `json:"ram_gb"`
	CpuCores   int `json:"cpu_cores"`
	DiskGB     int `json:"disk_gb"`
}

// Add accounts c into the totals.
func (t *Totals) Add(c Container) {
	t.Containers++
	switch c.Status {
	case StatusRunning:
		t.Running++
	case StatusStopped:
		t.Stopped++
	case StatusSuspended:
		t.Suspended++
	}
	t.RamGB += c.Resources.RamGB
	t.CpuCores += c.Resources.CpuCores
	t.DiskGB += c.Resources.DiskGB
}

// ServerStats is the fleet-wide summary.
type ServerStats struct {
	Users  int    `json:"users"`
	Totals Totals `json:"totals"`
}

// UserInfo is the admin view of an actor.
type UserInfo struct {
	UserId      string           `json:"user_id"`
	IsAdmin     bool             `json:"is_admin"`
	IsMainAdmin bool             `json:"is_main_admin"`
	Containers  []OwnedContainer `json:"containers"`
	Totals      Totals           `json:"totals"`
}

// SuspensionLog is a suspension history entry with the container it
// belongs to.
type SuspensionLog struct {
	ContainerId string          `json:"container_id"`
	OwnerId     string          `json:"owner_id"`
	Entry       SuspensionEntry `json:"entry"`
}

// MonitorStatus reports the state of the background monitors.
type MonitorStatus struct {
	HostEnabled      bool          `json:"host_enabled"`
	WorkloadEnabled  bool          `json:"workload_enabled"`
	CpuThreshold     int           `json:"cpu_threshold"`
	RamThreshold     int           `json:"ram_threshold"`
	HostInterval     time.Duration `json:"host_interval"`
	WorkloadInterval time.Duration `json:"workload_interval"`
	LastHostCpu      float64       `json:"last_host_cpu"`
	LastHostSample   time.Time     `json:"last_host_sample"`
	LastSweep        time.Time     `json:"last_sweep"`
}

// PendingConfirmation is a destructive action waiting for the initiating
// actor to confirm it.
type PendingConfirmation struct {
	Id        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Key returns the (actor, action, target) key of the confirmation.
func (p PendingConfirmation) Key() string {
	return p.Actor + "|" + p.Action + "|" + p.Target
}

// FleetStop is the outcome of a fleet-wide stop.
type FleetStop struct {
	Stopped []string `json:"stopped"`
	Output  string   `json:"output,omitempty"`
}

// Session is a remote shell session spawned inside a container.
type Session struct {
	Name string `json:"name"`
	Ssh  string `json:"ssh"`
}

// AuditIssue is an inconsistency between the registry and the runtime.
type AuditIssue struct {
	ContainerId string `json:"container_id"`
	Problem     string `json:"problem"`
	Repaired    bool   `json:"repaired"`
}

// HostInfo describes the machine the fleet runs on.
type HostInfo struct {
	Hostname   string        `json:"hostname"`
	Uptime     time.Duration `json:"uptime"`
	BootTime   time.Time     `json:"boot_time"`
	CpuPercent float64       `json:"cpu_percent"`
	MemPercent float64       `json:"mem_percent"`
}

// ConfirmResult is the outcome of a confirmed action.
type ConfirmResult struct {
	Action    string     `json:"action"`
	Container *Container `json:"container,omitempty"`
	Fleet     *FleetStop `json:"fleet,omitempty"`
}
