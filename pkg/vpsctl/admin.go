/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"fmt"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// AdminAdd grants admin privileges to user.
func (v *Vpsctl) AdminAdd(ctx context.Context, actor, user string) error {
	const op = "admin add"
	if err := v.requireAdmin(op, actor, ActionAdminManage); err != nil {
		return v.fail(op, err)
	}
	if user == "" {
		return v.fail(op, invalid(op, "a user is required"))
	}
	if user == v.Options.MainAdminId {
		return v.fail(op, alreadyIn(op, "%s is the main admin", user))
	}
	if err := v.Registry.AddAdmin(user); err != nil {
		return v.fail(op, err)
	}
	v.notify(ctx, types.Event{
		Type:      types.EventAdminAdded,
		Recipient: user,
		Actor:     actor,
		Message:   "You have been granted admin privileges.",
	})
	return nil
}

// AdminRemove revokes the admin privileges of user. The main admin can
// never be removed.
func (v *Vpsctl) AdminRemove(ctx context.Context, actor, user string) error {
	const op = "admin remove"
	if err := v.requireAdmin(op, actor, ActionAdminManage); err != nil {
		return v.fail(op, err)
	}
	if user == v.Options.MainAdminId {
		return v.fail(op, invalid(op, "the main admin can not be removed"))
	}
	if err := v.Registry.RemoveAdmin(user); err != nil {
		return v.fail(op, err)
	}
	v.notify(ctx, types.Event{
		Type:      types.EventAdminGone,
		Recipient: user,
		Actor:     actor,
		Message:   fmt.Sprintf("Your admin privileges have been revoked by %s.", actor),
	})
	return nil
}

// AdminList returns the main admin followed by the stored admins.
func (v *Vpsctl) AdminList(ctx context.Context, actor string) ([]string, error) {
	const op = "admin list"
	if err := v.requireAdmin(op, actor, ActionAdminManage); err != nil {
		return nil, v.fail(op, err)
	}
	return append([]string{v.Options.MainAdminId}, v.Registry.Admins()...), nil
}
