/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func TestMemoryConfirmations(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryConfirmations(clock.Now)
	ctx := context.Background()

	p := types.PendingConfirmation{Id: "a", Actor: "u1", Action: "reinstall", Target: "vps-u1-1", ExpiresAt: clock.Now().Add(time.Minute)}
	require.NoError(t, m.Put(ctx, p))
	assert.Equal(t, 1, m.Len())

	_, err := m.Take(ctx, "u2", "a")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, m.Len())

	got, err := m.Take(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Zero(t, m.Len())

	require.NoError(t, m.Put(ctx, p))
	clock.Advance(time.Minute + time.Second)
	assert.Zero(t, m.Len())
	_, err = m.Take(ctx, "u1", "a")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConfirmationKey(t *testing.T) {
	p := types.PendingConfirmation{Actor: "u1", Action: "stop-all", Target: "*"}
	assert.Equal(t, "u1|stop-all|*", p.Key())
}
