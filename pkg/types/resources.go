/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package types

import "fmt"

// Resources is the resource allocation of a container.
type Resources struct {
	// RamGB is the memory limit in GB.
	RamGB int `json:"ram_gb" validate:"gt=0"`

	// CpuCores is the number of CPU cores.
	CpuCores int `json:"cpu_cores" validate:"gt=0"`

	// DiskGB is the root disk size in GB.
	DiskGB int `json:"disk_gb" validate:"gt=0"`
}

// String returns the configuration string shown to users, e.g.
// "2GB RAM / 1 CPU / 10GB Disk".
func (r Resources) String() string {
	return fmt.Sprintf("%dGB RAM / %d CPU / %dGB Disk", r.RamGB, r.CpuCores, r.DiskGB)
}

// MemoryLimit returns the value for the runtime limits.memory key.
func (r Resources) MemoryLimit() string {
	return fmt.Sprintf("%dMB", r.RamGB*1024)
}

// DiskSize returns the value for the runtime root device size key.
func (r Resources) DiskSize() string {
	return fmt.Sprintf("%dGB", r.DiskGB)
}

// ResourceChange is a partial resource update, nil fields are left
// untouched. It is used both for absolute resizes and for additions.
type ResourceChange struct {
	RamGB    *int `json:"ram_gb,omitempty" validate:"omitempty,gt=0"`
	CpuCores *int `json:"cpu_cores,omitempty" validate:"omitempty,gt=0"`
	DiskGB   *int `json:"disk_gb,omitempty" validate:"omitempty,gt=0"`
}

// IsEmpty reports whether the change does not touch any resource.
func (c ResourceChange) IsEmpty() bool {
	return c.RamGB == nil && c.CpuCores == nil && c.DiskGB == nil
}

// Apply returns the resources obtained by applying the change to r. When add
// is true the change values are added to the current ones, otherwise they
// replace them.
func (c ResourceChange) Apply(r Resources, add bool) Resources {
	pick := func(cur int, v *int) int {
		if v == nil {
			return cur
		}
		if add {
			return cur + *v
		}
		return *v
	}
	return Resources{
		RamGB:    pick(r.RamGB, c.RamGB),
		CpuCores: pick(r.CpuCores, c.CpuCores),
		DiskGB:   pick(r.DiskGB, c.DiskGB),
	}
}
