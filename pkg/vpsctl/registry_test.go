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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

func TestCreateYieldsUniqueIds(t *testing.T) {
	h := newHarness(t)

	seen := map[string]bool{}
	for _, owner := range []string{"u1", "u2", "u1", "u3", "u2", "u1"} {
		c := h.create(t, owner, res(2, 1, 10))
		assert.False(t, seen[c.Id], "duplicate id %s", c.Id)
		seen[c.Id] = true
		assert.Equal(t, owner, c.OwnerId)
	}
	assert.True(t, seen["vps-u1-1"])
	assert.True(t, seen["vps-u1-3"])
	assert.True(t, seen["vps-u2-2"])
	assert.Len(t, h.v.Registry.Get("u1"), 3)
}

func TestNextIdSkipsTakenIds(t *testing.T) {
	h := newHarness(t)
	c := types.Container{
		Id: "vps-u1-1", OwnerId: "u9", Seq: 1, Resources: res(1, 1, 1),
		Status: types.StatusStopped, SharedWith: []string{}, SuspensionHistory: []types.SuspensionEntry{},
	}
	require.NoError(t, h.v.Registry.Insert(c))

	id, seq, err := h.v.Registry.NextId("u1", "vps")
	require.NoError(t, err)
	assert.Equal(t, "vps-u1-2", id)
	assert.Equal(t, 2, seq)
}

func TestSequenceSurvivesDeletion(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	_, err := h.v.Delete(context.Background(), mainAdmin, c.Id, "")
	require.NoError(t, err)

	v := h.reload(t)
	id, _, err := v.Registry.NextId("u1", "vps")
	require.NoError(t, err)
	assert.Equal(t, "vps-u1-2", id)
}

func TestRegistryReloadMatchesMemory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, "u1", res(2, 1, 10))
	h.create(t, "u2", res(1, 1, 5))
	_, err := h.v.Share(ctx, "u1", a.Id, "u2")
	require.NoError(t, err)
	sample(h.fake, a.Id, 95, 10)
	_, err = h.v.AutoSuspend(ctx, a.Id, "High CPU usage")
	require.NoError(t, err)
	require.NoError(t, h.v.Registry.AddAdmin("helper"))

	v := h.reload(t)
	assert.Equal(t, h.v.Registry.All(), v.Registry.All())
	assert.Equal(t, []string{"helper"}, v.Registry.Admins())
}

func TestShareRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.create(t, "u1", res(1, 1, 1))

	_, err := h.v.ShareAt(ctx, "u1", "u1", 1, "u1")
	assert.Equal(t, KindValidation, kindOf(err))

	shared, err := h.v.ShareAt(ctx, "u1", "u1", 1, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, shared.SharedWith)
	require.Len(t, h.notifier.ofType(types.EventShared), 1)
	assert.Equal(t, "u2", h.notifier.ofType(types.EventShared)[0].Recipient)

	_, err = h.v.Share(ctx, "u1", c.Id, "u2")
	assert.True(t, errors.Is(err, ErrAlreadyInState))

	_, err = h.v.Share(ctx, "u2", c.Id, "u3")
	assert.True(t, errors.Is(err, ErrDenied))

	_, err = h.v.ShareAt(ctx, "u1", "u1", 2, "u3")
	assert.True(t, errors.Is(err, ErrNotFound))

	revoked, err := h.v.RevokeAt(ctx, "u1", "u1", 1, "u2")
	require.NoError(t, err)
	assert.Empty(t, revoked.SharedWith)

	_, err = h.v.Revoke(ctx, "u1", c.Id, "u2")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPersistenceFailureLeavesMemoryUntouched(t *testing.T) {
	h := newHarness(t)
	c := h.create(t, "u1", res(1, 1, 1))
	require.NoError(t, h.v.Store.Close())

	_, err := h.v.Stop(context.Background(), "u1", c.Id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	current, ok := h.v.Registry.FindById(c.Id)
	require.True(t, ok)
	assert.Equal(t, types.StatusRunning, current.Status)
}

func TestAdmins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.v.AdminAdd(ctx, mainAdmin, "a1"))
	assert.True(t, errors.Is(h.v.AdminAdd(ctx, mainAdmin, "a1"), ErrAlreadyInState))
	assert.True(t, errors.Is(h.v.AdminAdd(ctx, "a1", "a2"), ErrDenied))
	assert.True(t, errors.Is(h.v.AdminRemove(ctx, mainAdmin, mainAdmin), ErrValidation))
	assert.True(t, errors.Is(h.v.AdminRemove(ctx, mainAdmin, "nobody"), ErrNotFound))

	list, err := h.v.AdminList(ctx, mainAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{mainAdmin, "a1"}, list)

	require.NoError(t, h.v.AdminRemove(ctx, mainAdmin, "a1"))
	assert.False(t, h.v.Registry.IsAdmin("a1"))
}
