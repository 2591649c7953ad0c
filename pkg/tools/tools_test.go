/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package tools

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "cpu-threshold", CamelToSnake("CpuThreshold"))
	assert.Equal(t, "listen", CamelToSnake("Listen"))
}

func TestPrintStructKeyVal(t *testing.T) {
	type sample struct {
		Listen    string
		Profiles  []string
		Enabled   bool
		Interval  int
		JwtSecret string
	}

	var buf bytes.Buffer
	PrintStructKeyVal(&buf, sample{
		Listen:    "127.0.0.1:8642",
		Profiles:  []string{"default", "net"},
		Enabled:   true,
		Interval:  600,
		JwtSecret: "hunter2",
	}, "JwtSecret")

	out := buf.String()
	assert.Contains(t, out, "  - listen: 127.0.0.1:8642\n")
	assert.Contains(t, out, "  - profiles:\n    - default\n    - net\n")
	assert.Contains(t, out, "  - enabled: true\n")
	assert.Contains(t, out, "  - interval: 600\n")
	assert.Contains(t, out, "  - jwt-secret: ***\n")
	assert.NotContains(t, out, "hunter2")
}

func TestConfirmFrom(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, ConfirmFrom(strings.NewReader("y\n"), &out, "Stop everything?"))
	assert.True(t, ConfirmFrom(strings.NewReader("YES\n"), &out, "Stop everything?"))
	assert.False(t, ConfirmFrom(strings.NewReader("\n"), &out, "Stop everything?"))
	assert.False(t, ConfirmFrom(strings.NewReader(""), &out, "Stop everything?"))
	assert.Contains(t, out.String(), "Stop everything? [y/N]: ")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, []string{"Id", "Status"}, [][]string{{"vps-u1-1", "RUNNING"}})
	assert.Contains(t, buf.String(), "vps-u1-1")
	assert.Contains(t, buf.String(), "RUNNING")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "3d 4h", HumanDuration(76*time.Hour))
	assert.Equal(t, "2h 5m", HumanDuration(125*time.Minute))
	assert.Equal(t, "0m", HumanDuration(10*time.Second))
}

func TestSpinnerReturnsError(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	assert.ErrorIs(t, Spinner(&buf, "working", func() error { return boom }), boom)
	assert.NoError(t, Spinner(&buf, "working", func() error { return nil }))
}

func TestSpinnerStopsBeforeReturning(t *testing.T) {
	var buf bytes.Buffer
	err := Spinner(&buf, "installing", func() error {
		time.Sleep(350 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "installing")

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, out, buf.String())
}
