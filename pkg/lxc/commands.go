/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package lxc

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Init creates a container from image without starting it. Profiles are
// applied in order, the default profile is used when none is given.
func (c *Client) Init(ctx context.Context, image, id, pool string, profiles ...string) error {
	args := []string{"init", image, id}
	if pool != "" {
		args = append(args, "--storage", pool)
	}
	for _, p := range profiles {
		args = append(args, "--profile", p)
	}
	_, err := c.RunLong(ctx, args...)
	return err
}

// ConfigSet sets a container configuration key.
func (c *Client) ConfigSet(ctx context.Context, id, key, value string) error {
	_, err := c.Run(ctx, "config", "set", id, key, value)
	return err
}

// DeviceSet sets a key of a container device.
func (c *Client) DeviceSet(ctx context.Context, id, device, key, value string) error {
	_, err := c.Run(ctx, "config", "device", "set", id, device, key, value)
	return err
}

// Start starts a container.
func (c *Client) Start(ctx context.Context, id string) error {
	_, err := c.Run(ctx, "start", id)
	return err
}

// Stop stops a container.
func (c *Client) Stop(ctx context.Context, id string, force bool) error {
	args := []string{"stop", id}
	if force {
		args = append(args, "--force")
	}
	_, err := c.Run(ctx, args...)
	return err
}

// StopAll force-stops every container known to the runtime with a single
// command.
func (c *Client) StopAll(ctx context.Context) (string, error) {
	return c.Run(ctx, "stop", "--all", "--force")
}

// Delete removes a container.
func (c *Client) Delete(ctx context.Context, id string, force bool) error {
	args := []string{"delete", id}
	if force {
		args = append(args, "--force")
	}
	_, err := c.Run(ctx, args...)
	return err
}

// Restart restarts a container.
func (c *Client) Restart(ctx context.Context, id string) error {
	_, err := c.Run(ctx, "restart", id)
	return err
}

// Snapshot takes a snapshot of a container.
func (c *Client) Snapshot(ctx context.Context, id, name string) error {
	_, err := c.RunLong(ctx, "snapshot", id, name)
	return err
}

// Restore restores a container from one of its snapshots.
func (c *Client) Restore(ctx context.Context, id, name string) error {
	_, err := c.RunLong(ctx, "restore", id, name)
	return err
}

// Snapshots returns the names of the snapshots of a container, sorted.
func (c *Client) Snapshots(ctx context.Context, id string) ([]string, error) {
	out, err := c.Run(ctx, "query", "/1.0/instances/"+id+"/snapshots")
	if err != nil {
		return nil, err
	}
	return parseSnapshots(out)
}

// parseSnapshots parses the list of snapshot URLs returned by the runtime
// API, e.g. ["/1.0/instances/vps-1-1/snapshots/snap0"].
func parseSnapshots(out string) ([]string, error) {
	var urls []string
	if err := json.Unmarshal([]byte(out), &urls); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot list: %w", err)
	}
	names := make([]string, 0, len(urls))
	for _, u := range urls {
		names = append(names, path.Base(u))
	}
	sort.Strings(names)
	return names, nil
}

// Copy copies a container to newId, in pool when set.
func (c *Client) Copy(ctx context.Context, id, newId, pool string) error {
	args := []string{"copy", id, newId}
	if pool != "" {
		args = append(args, "--storage", pool)
	}
	_, err := c.RunLong(ctx, args...)
	return err
}

// Rename renames a stopped container.
func (c *Client) Rename(ctx context.Context, oldId, newId string) error {
	_, err := c.Run(ctx, "rename", oldId, newId)
	return err
}

// Exec runs argv inside a container. Only a failure to run the command is
// returned as an error, its exit code is part of the result.
func (c *Client) Exec(ctx context.Context, id string, argv ...string) (ExecResult, error) {
	return c.runWithTimeout(ctx, c.Timeout, append([]string{"exec", id, "--"}, argv...)...)
}

// ExecLong is Exec with the install timeout.
func (c *Client) ExecLong(ctx context.Context, id string, argv ...string) (ExecResult, error) {
	return c.runWithTimeout(ctx, c.InstallTimeout, append([]string{"exec", id, "--"}, argv...)...)
}

// List returns the runtime listing as printed by the client.
func (c *Client) List(ctx context.Context) (string, error) {
	return c.Run(ctx, "list")
}

// Info returns the runtime status of a container, e.g. "RUNNING".
func (c *Client) Info(ctx context.Context, id string) (string, error) {
	out, err := c.Run(ctx, "info", id)
	if err != nil {
		return "", err
	}
	return parseInfoStatus(out), nil
}

func parseInfoStatus(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if status, ok := strings.CutPrefix(strings.TrimSpace(line), "Status:"); ok {
			return strings.ToUpper(strings.TrimSpace(status))
		}
	}
	return "UNKNOWN"
}

// States returns the runtime status of every container, keyed by name.
func (c *Client) States(ctx context.Context) (map[string]string, error) {
	out, err := c.Run(ctx, "list", "--format", "csv", "-c", "ns")
	if err != nil {
		return nil, err
	}
	return parseStates(out), nil
}

func parseStates(out string) map[string]string {
	states := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		name, status, ok := strings.Cut(strings.TrimSpace(line), ",")
		if !ok || name == "" {
			continue
		}
		states[name] = strings.ToUpper(strings.TrimSpace(status))
	}
	return states
}
