/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/lxc/lxctest"
	"github.com/mirkobrombin/vpsctl/pkg/types"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

const testSecret = "cli-secret"

// startServer serves a Vpsctl backed by a fake runtime and points the
// options file of the commands at it.
func startServer(t *testing.T) *vpsctl.Vpsctl {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	o := vpsctl.DefaultOptions(dir)
	o.MainAdminId = "main"
	o.JwtSecret = testSecret

	v, err := vpsctl.NewVpsctlWithOptions(o,
		vpsctl.WithLogger(logger.Discard()),
		vpsctl.WithRunner(lxctest.New().Run),
		vpsctl.WithNotifier(vpsctl.LogNotifier{Log: logger.Discard()}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })

	srv := httptest.NewServer(api.NewServer(v, []byte(testSecret)).Router())
	t.Cleanup(srv.Close)

	o.Listen = srv.URL
	optsPath := filepath.Join(dir, "vpsctl.json")
	require.NoError(t, vpsctl.SaveOptions(optsPath, o))
	t.Setenv("VPSCTL_OPTS_FILE", optsPath)
	t.Setenv("VPSCTL_TOKEN", "")
	return v
}

func execute(c *cobra.Command, args ...string) error {
	if args == nil {
		args = []string{}
	}
	c.SetArgs(args)
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	return c.ExecuteContext(context.Background())
}

func status(t *testing.T, v *vpsctl.Vpsctl, id string) types.Status {
	t.Helper()
	c, ok := v.Registry.FindById(id)
	require.True(t, ok, "container %s not found", id)
	return c.Status
}

func TestCommandsDriveTheServer(t *testing.T) {
	v := startServer(t)

	require.NoError(t, execute(NewCreateCommand(), "u1", "--ram", "2", "--cpu", "1", "--disk", "10", "--json"))
	assert.Equal(t, types.StatusRunning, status(t, v, "vps-u1-1"))

	require.NoError(t, execute(NewStopCommand(), "vps-u1-1", "--as", "u1", "--json"))
	assert.Equal(t, types.StatusStopped, status(t, v, "vps-u1-1"))

	require.NoError(t, execute(NewSuspendCommand(), "vps-u1-1", "--reason", "abuse", "--json"))
	assert.Equal(t, types.StatusSuspended, status(t, v, "vps-u1-1"))

	err := execute(NewStartCommand(), "vps-u1-1", "--as", "u1", "--json")
	assert.ErrorIs(t, err, vpsctl.ErrDenied)

	err = execute(NewDeleteCommand(), "--owner", "u1", "--number", "1", "--yes", "--json")
	assert.ErrorIs(t, err, vpsctl.ErrAlreadyInState)

	require.NoError(t, execute(NewUnsuspendCommand(), "vps-u1-1", "--json"))
	require.NoError(t, execute(NewDeleteCommand(), "--owner", "u1", "--number", "1", "--yes", "--json"))
	_, ok := v.Registry.FindById("vps-u1-1")
	assert.False(t, ok)
}

func TestCommandsReportValidationErrors(t *testing.T) {
	startServer(t)

	err := execute(NewCreateCommand(), "u1", "--ram", "0", "--json")
	assert.ErrorIs(t, err, vpsctl.ErrValidation)

	err = execute(NewResizeCommand(), "vps-u1-1", "--json")
	assert.ErrorContains(t, err, "at least one of")
}

func TestShareAndRevokeByPosition(t *testing.T) {
	v := startServer(t)
	require.NoError(t, execute(NewCreateCommand(), "u1", "--json"))

	require.NoError(t, execute(NewShareCommand(), "--owner", "u1", "--number", "1", "u2", "--json"))
	c, _ := v.Registry.FindById("vps-u1-1")
	assert.Equal(t, []string{"u2"}, c.SharedWith)

	require.NoError(t, execute(NewRevokeCommand(), "vps-u1-1", "u2", "--json"))
	c, _ = v.Registry.FindById("vps-u1-1")
	assert.Empty(t, c.SharedWith)
}

func TestReinstallWithYes(t *testing.T) {
	v := startServer(t)
	require.NoError(t, execute(NewCreateCommand(), "u1", "--json"))

	require.NoError(t, execute(NewReinstallCommand(), "vps-u1-1", "--yes", "--json"))
	assert.Equal(t, types.StatusRunning, status(t, v, "vps-u1-1"))
}

func TestClientNeedsAnActor(t *testing.T) {
	dir := t.TempDir()
	o := vpsctl.DefaultOptions(dir)
	optsPath := filepath.Join(dir, "vpsctl.json")
	require.NoError(t, vpsctl.SaveOptions(optsPath, o))
	t.Setenv("VPSCTL_OPTS_FILE", optsPath)
	t.Setenv("VPSCTL_TOKEN", "")
	t.Setenv("MAIN_ADMIN_ID", "")

	err := execute(NewListCommand())
	assert.ErrorContains(t, err, "no actor")
}

func TestTargetPath(t *testing.T) {
	c := NewDeleteCommand()
	require.NoError(t, c.ParseFlags([]string{"--owner", "u 1", "--number", "2"}))

	path, label, err := targetPath(c, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1/owners/u%201/containers/2", path)
	assert.Equal(t, "u 1 #2", label)

	_, _, err = targetPath(c, []string{"vps-u1-1"})
	assert.Error(t, err)

	path, label, err = targetPath(NewDeleteCommand(), []string{"vps-u1-1"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/containers/vps-u1-1", path)
	assert.Equal(t, "vps-u1-1", label)
}

func TestResourceChangeOnlyKeepsGivenFlags(t *testing.T) {
	c := NewResizeCommand()
	require.NoError(t, c.ParseFlags([]string{"--ram", "4"}))

	change := resourceChange(c)
	require.NotNil(t, change.RamGB)
	assert.Equal(t, 4, *change.RamGB)
	assert.Nil(t, change.CpuCores)
	assert.Nil(t, change.DiskGB)
}

func TestContainerPath(t *testing.T) {
	assert.Equal(t, "/v1/containers/vps-u1-1/snapshots/snap%201/restore",
		containerPath("vps-u1-1", "snapshots", "snap%201", "restore"))
}
