/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOptions(t *testing.T) {
	o := DefaultOptions(t.TempDir())
	err := ValidateOptions(o)
	assert.True(t, errors.Is(err, ErrValidation))

	o.MainAdminId = "main"
	assert.NoError(t, ValidateOptions(o))

	o.CpuThreshold = 0
	assert.True(t, errors.Is(ValidateOptions(o), ErrValidation))
	o.CpuThreshold = 101
	assert.True(t, errors.Is(ValidateOptions(o), ErrValidation))
}

func TestOptionDurations(t *testing.T) {
	o := DefaultOptions(t.TempDir())
	assert.Equal(t, 10*time.Minute, o.CheckIntervalDuration())
	assert.Equal(t, 2*time.Minute, o.CommandTimeoutDuration())
	assert.Equal(t, time.Minute, o.ConfirmationWindowDuration())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MAIN_ADMIN_ID", "42")
	t.Setenv("CPU_THRESHOLD", " 75 ")
	t.Setenv("DEFAULT_STORAGE_POOL", "fast")

	o := DefaultOptions(t.TempDir())
	require.NoError(t, ApplyEnv(&o))
	assert.Equal(t, "42", o.MainAdminId)
	assert.Equal(t, 75, o.CpuThreshold)
	assert.Equal(t, "fast", o.StoragePool)
	assert.Equal(t, 90, o.RamThreshold)

	t.Setenv("RAM_THRESHOLD", "lots")
	assert.Error(t, ApplyEnv(&o))
}

func TestSaveAndReadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "vpsctl.json")
	o := DefaultOptions("/var/lib/vpsctl")
	o.MainAdminId = "main"
	o.Profiles = []string{"default", "limits"}
	require.NoError(t, SaveOptions(path, o))

	read, err := ReadOptions(path, DefaultOptions("/elsewhere"))
	require.NoError(t, err)
	assert.Equal(t, o, read)
}

func TestReadOptionsKeepsBaseForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpsctl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"main_admin_id": "main", "ram_threshold": 80}`), 0644))

	o, err := ReadOptions(path, DefaultOptions("/var/lib/vpsctl"))
	require.NoError(t, err)
	assert.Equal(t, "main", o.MainAdminId)
	assert.Equal(t, 80, o.RamThreshold)
	assert.Equal(t, 90, o.CpuThreshold)
	assert.Equal(t, "ubuntu:22.04", o.Image)
}

func TestGetOptionsFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpsctl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"main_admin_id": "main"}`), 0644))
	t.Setenv("VPSCTL_OPTS_FILE", path)
	t.Setenv("MAIN_ADMIN_ID", "")

	o, found, err := GetVpsctlOptions()
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.Equal(t, "main", o.MainAdminId)
}

func TestValidateOptionsFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	o := DefaultOptions("/var/lib/vpsctl")
	o.MainAdminId = "main"
	require.NoError(t, SaveOptions(good, o))
	problems, err := ValidateOptionsFile(good)
	require.NoError(t, err)
	assert.Empty(t, problems)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"cpu_threshold": 150, "log_format": "xml"}`), 0644))
	problems, err = ValidateOptionsFile(bad)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(problems), 3)
}
