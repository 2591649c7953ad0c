/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Notifier delivers events to the chat platform.
type Notifier interface {
	Notify(ctx context.Context, ev types.Event) error
}

// LogNotifier writes events to the log, used when no broker is configured.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) Notify(ctx context.Context, ev types.Event) error {
	n.Log.WithFields(logrus.Fields{
		"event":     ev.Type,
		"recipient": ev.Recipient,
		"container": ev.ContainerId,
	}).Info(ev.Message)
	return nil
}

// MultiNotifier fans an event out to every notifier, returning the joined
// failures.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev types.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
