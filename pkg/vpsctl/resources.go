/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Resize sets the given resources of a container to absolute values.
func (v *Vpsctl) Resize(ctx context.Context, actor, id string, change types.ResourceChange) (types.Container, error) {
	return v.changeResources(ctx, "resize", actor, id, change, false)
}

// AddResources adds the given amounts to the resources of a container.
func (v *Vpsctl) AddResources(ctx context.Context, actor, id string, change types.ResourceChange) (types.Container, error) {
	return v.changeResources(ctx, "add-resources", actor, id, change, true)
}

// changeResources stops a running container, applies the limits one at a
// time and starts it again. On failure the record keeps the limits that
// were actually applied and is left stopped.
func (v *Vpsctl) changeResources(ctx context.Context, op, actor, id string, change types.ResourceChange, add bool) (types.Container, error) {
	unlock := v.Registry.Lock(id)
	defer unlock()

	c, _, err := v.authorized(op, actor, ActionResize, id)
	if err != nil {
		return c, v.fail(op, err)
	}
	if change.IsEmpty() {
		return c, v.fail(op, invalid(op, "no resource to change"))
	}
	if err := validate.Struct(change); err != nil {
		return c, v.fail(op, &Error{Kind: KindValidation, Op: op, Msg: "resources must be positive", Err: err})
	}

	target := change.Apply(c.Resources, add)
	if target == c.Resources {
		return c, v.fail(op, alreadyIn(op, "%s already has %s", id, c.Config()))
	}

	wasRunning := c.IsRunning()
	if wasRunning {
		outcome, stopErr := v.stopChecked(ctx, id)
		switch outcome {
		case stopFailed:
			return c, v.fail(op, gatewayErr(op, stopErr))
		case stopUnknown:
			c, err := v.commitStatus(op, id, types.StatusStopped)
			if err != nil {
				return c, v.fail(op, err)
			}
			return c, v.fail(op, gatewayErr(op, stopErr))
		}
	}

	commit := func(r types.Resources, status types.Status) (types.Container, error) {
		return v.Registry.Mutate(id, func(rec *types.Container) error {
			rec.Resources = r
			rec.Status = status
			return nil
		})
	}
	halted := c.Status
	if wasRunning {
		halted = types.StatusStopped
	}

	applied, applyErr := v.applyResources(ctx, id, c.Resources, target)
	if applyErr != nil {
		c, err := commit(applied, halted)
		if err != nil {
			return c, v.fail(op, err)
		}
		return c, v.fail(op, gatewayErr(op, applyErr))
	}

	if wasRunning {
		if err := v.Gateway.Start(ctx, id); err != nil {
			c, cerr := commit(applied, types.StatusStopped)
			if cerr != nil {
				return c, v.fail(op, cerr)
			}
			return c, v.fail(op, gatewayErr(op, err))
		}
	}

	c, err = commit(applied, c.Status)
	if err != nil {
		return c, v.fail(op, err)
	}
	v.refreshGauges()
	v.Log.WithFields(logrus.Fields{"container": id, "actor": actor, "resources": c.Config()}).Info("resources changed")
	return c, nil
}
