/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Confirmations holds destructive actions waiting to be confirmed by the
// actor who asked for them. Expired entries behave as if they never
// existed.
type Confirmations interface {
	// Put stores p, replacing any pending entry with the same
	// (actor, action, target) key.
	Put(ctx context.Context, p types.PendingConfirmation) error

	// Take removes and returns the entry with the given id, which must
	// belong to actor.
	Take(ctx context.Context, actor, id string) (types.PendingConfirmation, error)
}

// MemoryConfirmations keeps pending confirmations in the process memory.
type MemoryConfirmations struct {
	mu    sync.Mutex
	byId  map[string]types.PendingConfirmation
	byKey map[string]string
	now   func() time.Time
}

// NewMemoryConfirmations creates an empty store using now as clock.
func NewMemoryConfirmations(now func() time.Time) *MemoryConfirmations {
	if now == nil {
		now = time.Now
	}
	return &MemoryConfirmations{
		byId:  make(map[string]types.PendingConfirmation),
		byKey: make(map[string]string),
		now:   now,
	}
}

func (m *MemoryConfirmations) Put(ctx context.Context, p types.PendingConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expire()
	if old, ok := m.byKey[p.Key()]; ok {
		delete(m.byId, old)
	}
	m.byId[p.Id] = p
	m.byKey[p.Key()] = p.Id
	return nil
}

func (m *MemoryConfirmations) Take(ctx context.Context, actor, id string) (types.PendingConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expire()
	p, ok := m.byId[id]
	if !ok || p.Actor != actor {
		return types.PendingConfirmation{}, notFound("confirm", "no pending confirmation %s", id)
	}
	delete(m.byId, id)
	delete(m.byKey, p.Key())
	return p, nil
}

// Len returns the number of live entries.
func (m *MemoryConfirmations) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	return len(m.byId)
}

func (m *MemoryConfirmations) expire() {
	now := m.now()
	for id, p := range m.byId {
		if !now.Before(p.ExpiresAt) {
			delete(m.byId, id)
			if m.byKey[p.Key()] == id {
				delete(m.byKey, p.Key())
			}
		}
	}
}

func (v *Vpsctl) requestConfirmation(ctx context.Context, actor, action, target string) (types.PendingConfirmation, error) {
	p := types.PendingConfirmation{
		Id:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		ExpiresAt: v.now().Add(v.Options.ConfirmationWindowDuration()),
	}
	if err := v.Confirmations.Put(ctx, p); err != nil {
		return p, v.fail(action, &Error{Kind: KindInternal, Op: action, Msg: "failed to store confirmation", Err: err})
	}
	v.Log.WithField("actor", actor).WithField("target", target).Infof("%s awaiting confirmation", action)
	return p, nil
}

// Confirm executes the pending action with the given id.
func (v *Vpsctl) Confirm(ctx context.Context, actor, id string) (types.ConfirmResult, error) {
	p, err := v.Confirmations.Take(ctx, actor, id)
	if err != nil {
		return types.ConfirmResult{}, v.fail("confirm", err)
	}

	res := types.ConfirmResult{Action: p.Action}
	switch Action(p.Action) {
	case ActionReinstall:
		c, err := v.reinstall(ctx, actor, p.Target)
		res.Container = &c
		return res, err
	case ActionStopAll:
		fleet, err := v.StopAll(ctx, actor)
		res.Fleet = &fleet
		return res, err
	}
	return res, v.fail("confirm", invalid("confirm", "unknown action %s", p.Action))
}

// Cancel drops the pending action with the given id.
func (v *Vpsctl) Cancel(ctx context.Context, actor, id string) (types.PendingConfirmation, error) {
	p, err := v.Confirmations.Take(ctx, actor, id)
	if err != nil {
		return p, v.fail("cancel", err)
	}
	v.Log.WithField("actor", actor).WithField("target", p.Target).Infof("%s cancelled", p.Action)
	return p, nil
}
