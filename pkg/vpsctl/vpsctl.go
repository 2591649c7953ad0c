/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/lxc"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// AutoActor is the actor recorded for actions taken by the monitors.
const AutoActor = "vpsctl-auto"

// Vpsctl is the application state shared by the command handlers and the
// monitors. It is built from the store at startup and flushed by Close.
type Vpsctl struct {
	Options types.VpsctlOptions
	Ctx     context.Context
	Log     logrus.FieldLogger

	Store         *Store
	Registry      *Registry
	Policy        Policy
	Gateway       *lxc.Client
	Sessions      *lxc.TmateSpawner
	Notifier      Notifier
	Confirmations Confirmations
	Probe         HostProbe

	Host     *HostMonitor
	Workload *WorkloadMonitor

	now     func() time.Time
	closers []func() error
}

// Option customizes a Vpsctl built by NewVpsctlWithOptions.
type Option func(*Vpsctl)

// WithRunner runs runtime commands through run.
func WithRunner(run lxc.Runner) Option {
	return func(v *Vpsctl) {
		v.Gateway = lxc.NewClient(v.Options.LxcBinPath, run, v.Log.WithField("component", "lxc"))
	}
}

// WithNotifier replaces the notification sink.
func WithNotifier(n Notifier) Option {
	return func(v *Vpsctl) { v.Notifier = n }
}

// WithConfirmations replaces the pending confirmation store.
func WithConfirmations(c Confirmations) Option {
	return func(v *Vpsctl) { v.Confirmations = c }
}

// WithProbe replaces the host probe.
func WithProbe(p HostProbe) Option {
	return func(v *Vpsctl) { v.Probe = p }
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(v *Vpsctl) { v.now = now }
}

// WithLogger replaces the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Vpsctl) { v.Log = log }
}

// NewVpsctl creates a new Vpsctl instance from the options found on the
// system.
func NewVpsctl() (*Vpsctl, error) {
	options, _, err := GetVpsctlOptions()
	if err != nil {
		return nil, err
	}
	return NewVpsctlWithOptions(options)
}

// NewVpsctlWithOptions creates a new Vpsctl instance. The broker and Redis
// backends are connected when configured and not replaced by an Option.
func NewVpsctlWithOptions(options types.VpsctlOptions, opts ...Option) (*Vpsctl, error) {
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	v := &Vpsctl{
		Options: options,
		Ctx:     context.Background(),
		Log:     logger.WithComponent("vpsctl"),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.Gateway == nil {
		v.Gateway = lxc.NewClient(options.LxcBinPath, nil, v.Log.WithField("component", "lxc"))
	}
	v.Gateway.Timeout = options.CommandTimeoutDuration()
	v.Gateway.InstallTimeout = options.InstallTimeoutDuration()
	v.Sessions = lxc.NewTmateSpawner(v.Gateway)

	if v.Probe == nil {
		v.Probe = SystemProbe{}
	}

	if v.Notifier == nil {
		var notifier Notifier = LogNotifier{Log: v.Log.WithField("component", "notify")}
		if options.AmqpUrl != "" {
			amqpNotifier, err := NewAmqpNotifier(options.AmqpUrl, options.AmqpExchange)
			if err != nil {
				return nil, err
			}
			v.closers = append(v.closers, amqpNotifier.Close)
			notifier = MultiNotifier{notifier, amqpNotifier}
		}
		v.Notifier = notifier
	}

	if v.Confirmations == nil {
		if options.RedisAddr != "" {
			redisConfirmations, err := NewRedisConfirmations(v.Ctx, options.RedisAddr, options.RedisPassword, options.RedisDb)
			if err != nil {
				v.close()
				return nil, err
			}
			v.closers = append(v.closers, redisConfirmations.Close)
			v.Confirmations = redisConfirmations
		} else {
			v.Confirmations = NewMemoryConfirmations(v.now)
		}
	}

	store, err := NewStore(options.StorePath)
	if err != nil {
		v.close()
		return nil, persistErr("open store", err)
	}
	v.Store = store
	v.closers = append(v.closers, store.Close)

	v.Registry, err = LoadRegistry(store)
	if err != nil {
		v.close()
		return nil, err
	}
	v.Policy = Policy{MainAdmin: options.MainAdminId, IsAdmin: v.Registry.IsAdmin}

	v.Host = newHostMonitor(v)
	v.Workload = newWorkloadMonitor(v)
	v.refreshGauges()

	v.Log.WithFields(logrus.Fields{
		"containers": len(v.Registry.All()),
		"store":      options.StorePath,
	}).Info("state loaded")
	return v, nil
}

// Close flushes the registry to the store and releases every backend.
func (v *Vpsctl) Close() error {
	var errs []error
	if v.Registry != nil {
		if err := v.Registry.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := v.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (v *Vpsctl) close() error {
	var errs []error
	for i := len(v.closers) - 1; i >= 0; i-- {
		if err := v.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	v.closers = nil
	return errors.Join(errs...)
}

// Now returns the current time of the instance clock.
func (v *Vpsctl) Now() time.Time {
	return v.now()
}

// notify hands an event to the sink. Failures are only logged.
func (v *Vpsctl) notify(ctx context.Context, ev types.Event) {
	ev.Id = uuid.NewString()
	ev.Time = v.now()
	if err := v.Notifier.Notify(ctx, ev); err != nil {
		v.Log.WithError(err).WithFields(logrus.Fields{
			"event":     ev.Type,
			"recipient": ev.Recipient,
		}).Error("failed to deliver notification")
	}
}

// fail records a failed operation and returns err unchanged.
func (v *Vpsctl) fail(op string, err error) error {
	kind := KindOf(err)
	operationErrors.WithLabelValues(op, string(kind)).Inc()
	entry := v.Log.WithError(err).WithField("op", op)
	switch {
	case kind == KindPersistence:
		entry.Error("state could not be persisted")
	case kind.Negative():
		entry.Debug("operation refused")
	default:
		entry.Warn("operation failed")
	}
	return err
}

func (v *Vpsctl) refreshGauges() {
	var t types.Totals
	for _, c := range v.Registry.All() {
		t.Add(c)
	}
	containersGauge.WithLabelValues(string(types.StatusRunning)).Set(float64(t.Running))
	containersGauge.WithLabelValues(string(types.StatusStopped)).Set(float64(t.Stopped))
	containersGauge.WithLabelValues(string(types.StatusSuspended)).Set(float64(t.Suspended))
}

// lookup returns the record with the given id.
func (v *Vpsctl) lookup(op, id string) (types.Container, error) {
	c, ok := v.Registry.FindById(id)
	if !ok {
		return types.Container{}, notFound(op, "container %s not found", id)
	}
	return c, nil
}

// authorized looks up a record and checks actor may perform action on it.
func (v *Vpsctl) authorized(op, actor string, action Action, id string) (types.Container, Role, error) {
	c, err := v.lookup(op, id)
	if err != nil {
		return types.Container{}, RoleNone, err
	}
	role, err := v.Policy.check(op, actor, action, &c)
	if err != nil {
		return types.Container{}, role, err
	}
	return c, role, nil
}

// requireAdmin checks actor may perform an action not bound to a container.
func (v *Vpsctl) requireAdmin(op, actor string, action Action) error {
	_, err := v.Policy.check(op, actor, action, nil)
	return err
}

// commitStatus sets the status of a record, recording the transition.
func (v *Vpsctl) commitStatus(op, id string, status types.Status) (types.Container, error) {
	c, err := v.Registry.Mutate(id, func(c *types.Container) error {
		c.Status = status
		return nil
	})
	if err != nil {
		return c, err
	}
	transitionsTotal.WithLabelValues(fmt.Sprintf("%s:%s", op, status)).Inc()
	v.refreshGauges()
	return c, nil
}
