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

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func newRedisConfirmations(t *testing.T) (*RedisConfirmations, *miniredis.Miniredis, *testClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisConfirmations(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	r.now = clock.Now
	return r, mr, clock
}

func pending(clock *testClock, id, actor string) types.PendingConfirmation {
	return types.PendingConfirmation{
		Id:        id,
		Actor:     actor,
		Action:    "reinstall",
		Target:    "vps-u1-1",
		ExpiresAt: clock.Now().Add(time.Minute),
	}
}

func TestRedisConfirmationsTakeOnce(t *testing.T) {
	r, mr, clock := newRedisConfirmations(t)
	ctx := context.Background()
	p := pending(clock, "a", "u1")
	require.NoError(t, r.Put(ctx, p))

	_, err := r.Take(ctx, "u2", "a")
	assert.True(t, errors.Is(err, ErrNotFound))

	got, err := r.Take(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, p.Id, got.Id)
	assert.Equal(t, p.Key(), got.Key())
	assert.True(t, p.ExpiresAt.Equal(got.ExpiresAt))
	assert.False(t, mr.Exists(confirmKeyPrefix+"key:"+p.Key()))

	_, err = r.Take(ctx, "u1", "a")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRedisConfirmationsReplaceSameKey(t *testing.T) {
	r, mr, clock := newRedisConfirmations(t)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, pending(clock, "a", "u1")))
	require.NoError(t, r.Put(ctx, pending(clock, "b", "u1")))

	_, err := r.Take(ctx, "u1", "a")
	assert.True(t, errors.Is(err, ErrNotFound))

	ref, err := mr.Get(confirmKeyPrefix + "key:u1|reinstall|vps-u1-1")
	require.NoError(t, err)
	assert.Equal(t, "b", ref)

	got, err := r.Take(ctx, "u1", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Id)
}

func TestRedisConfirmationsExpire(t *testing.T) {
	r, mr, clock := newRedisConfirmations(t)
	ctx := context.Background()
	require.NoError(t, r.Put(ctx, pending(clock, "a", "u1")))

	mr.FastForward(time.Minute + time.Second)
	_, err := r.Take(ctx, "u1", "a")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, mr.Exists(confirmKeyPrefix+"key:u1|reinstall|vps-u1-1"))

	expired := pending(clock, "b", "u1")
	expired.ExpiresAt = clock.Now().Add(-time.Second)
	require.NoError(t, r.Put(ctx, expired))
	assert.False(t, mr.Exists(confirmKeyPrefix+"b"))
}

func TestRedisConfirmationsTakeKeepsNewerIndex(t *testing.T) {
	r, mr, clock := newRedisConfirmations(t)
	ctx := context.Background()
	p := pending(clock, "a", "u1")
	require.NoError(t, r.Put(ctx, p))

	// a newer request for the same key lands while "a" is being taken
	keyRef := confirmKeyPrefix + "key:" + p.Key()
	require.NoError(t, mr.Set(keyRef, "b"))

	_, err := r.Take(ctx, "u1", "a")
	require.NoError(t, err)
	ref, err := mr.Get(keyRef)
	require.NoError(t, err)
	assert.Equal(t, "b", ref)
}
