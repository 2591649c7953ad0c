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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

const (
	HostInterval   = 60 * time.Second
	MonitorBackoff = 60 * time.Second
)

// monitorBase holds what both monitors share: the enabled flag and the
// panic-safe scheduling loop.
type monitorBase struct {
	name    string
	enabled atomic.Bool
	log     logrus.FieldLogger
}

// SetEnabled turns the monitor on or off, a disabled monitor keeps ticking
// but does not sample.
func (m *monitorBase) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// Enabled reports whether the monitor samples on its ticks.
func (m *monitorBase) Enabled() bool {
	return m.enabled.Load()
}

// safe runs fn turning a panic into an error.
func (m *monitorBase) safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s monitor panic: %v", m.name, r)
		}
	}()
	return fn()
}

// loop calls sweep until ctx is done, waiting interval between sweeps or
// backoff after a failed one. It never returns early on errors.
func (m *monitorBase) loop(ctx context.Context, interval, backoff time.Duration, sweep func(context.Context) error) {
	for {
		wait := interval
		if m.Enabled() {
			if err := m.safe(func() error { return sweep(ctx) }); err != nil {
				monitorErrors.WithLabelValues(m.name).Inc()
				m.log.WithError(err).Errorf("%s monitor sweep failed, retrying in %s", m.name, backoff)
				wait = backoff
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// HostMonitor samples the host CPU and force-stops the whole fleet when it
// goes above the threshold.
type HostMonitor struct {
	monitorBase
	v *Vpsctl

	Interval time.Duration

	mu      sync.Mutex
	lastCpu float64
	lastAt  time.Time
}

func newHostMonitor(v *Vpsctl) *HostMonitor {
	m := &HostMonitor{
		monitorBase: monitorBase{name: "host", log: v.Log.WithField("component", "host-monitor")},
		v:           v,
		Interval:    HostInterval,
	}
	m.SetEnabled(v.Options.HostMonitor)
	return m
}

// Last returns the last CPU sample and when it was taken.
func (m *HostMonitor) Last() (float64, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCpu, m.lastAt
}

// Sweep samples the host once and reports whether the fleet was stopped.
func (m *HostMonitor) Sweep(ctx context.Context) (bool, error) {
	cpu, err := m.v.Probe.CpuPercent(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to sample host cpu: %w", err)
	}

	m.mu.Lock()
	m.lastCpu, m.lastAt = cpu, m.v.now()
	m.mu.Unlock()
	hostCpuPercent.Set(cpu)

	threshold := float64(m.v.Options.CpuThreshold)
	log := m.log.WithField("cpu", cpu)
	if cpu <= threshold {
		log.Debug("host cpu sampled")
		return false, nil
	}

	log.Warnf("host cpu above %d%%, stopping every container", m.v.Options.CpuThreshold)
	fleet, err := m.v.stopFleet(ctx, "host-monitor")
	if err != nil {
		return false, err
	}
	fleetStopsTotal.Inc()
	m.v.notify(ctx, types.Event{
		Type:    types.EventFleetStop,
		Actor:   AutoActor,
		Message: fmt.Sprintf("Host CPU at %.1f%% (threshold %d%%): %d containers stopped.", cpu, m.v.Options.CpuThreshold, len(fleet.Stopped)),
		Data:    map[string]string{"cpu": fmt.Sprintf("%.1f", cpu)},
	})
	return true, nil
}

// Run sweeps every Interval until ctx is done.
func (m *HostMonitor) Run(ctx context.Context) error {
	m.log.WithField("interval", m.Interval).Info("host monitor started")
	m.loop(ctx, m.Interval, m.Interval, func(ctx context.Context) error {
		_, err := m.Sweep(ctx)
		return err
	})
	return nil
}

// WorkloadMonitor samples every running container and suspends those above
// the CPU or RAM threshold.
type WorkloadMonitor struct {
	monitorBase
	v *Vpsctl

	Interval time.Duration
	Backoff  time.Duration

	lastSweep atomic.Int64
}

func newWorkloadMonitor(v *Vpsctl) *WorkloadMonitor {
	m := &WorkloadMonitor{
		monitorBase: monitorBase{name: "workload", log: v.Log.WithField("component", "workload-monitor")},
		v:           v,
		Interval:    v.Options.CheckIntervalDuration(),
		Backoff:     MonitorBackoff,
	}
	m.SetEnabled(v.Options.WorkloadMonitor)
	return m
}

// LastSweep returns when the last sweep completed.
func (m *WorkloadMonitor) LastSweep() time.Time {
	n := m.lastSweep.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// BreachReason describes which of the samples exceed their threshold, it is
// empty when none does.
func BreachReason(cpu, ram float64, cpuThreshold, ramThreshold int) string {
	var parts []string
	if cpu > float64(cpuThreshold) {
		parts = append(parts, fmt.Sprintf("High CPU usage: %.1f%% (threshold %d%%)", cpu, cpuThreshold))
	}
	if ram > float64(ramThreshold) {
		parts = append(parts, fmt.Sprintf("High RAM usage: %.1f%% (threshold %d%%)", ram, ramThreshold))
	}
	return strings.Join(parts, "; ")
}

// Evaluate samples a container and returns the breach reason, if any.
func (m *WorkloadMonitor) Evaluate(ctx context.Context, id string) (string, error) {
	cpu, err := m.v.Gateway.CpuPercent(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to sample cpu: %w", err)
	}
	mem, err := m.v.Gateway.MemUsage(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to sample memory: %w", err)
	}
	ram := mem.Percent()
	m.log.WithFields(logrus.Fields{"container": id, "cpu": cpu, "ram": ram}).Debug("container sampled")
	return BreachReason(cpu, ram, m.v.Options.CpuThreshold, m.v.Options.RamThreshold), nil
}

// Sweep evaluates every running container once, one after the other. A
// failure on one container is logged and does not stop the sweep. It
// returns the suspended containers.
func (m *WorkloadMonitor) Sweep(ctx context.Context) []string {
	started := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(started).Seconds())
		m.lastSweep.Store(m.v.now().UnixNano())
	}()

	suspended := []string{}
	for _, c := range m.v.Registry.All() {
		if !c.IsRunning() {
			continue
		}
		log := m.log.WithFields(logrus.Fields{"container": c.Id, "owner": c.OwnerId})

		reason, err := m.Evaluate(ctx, c.Id)
		if err != nil {
			monitorErrors.WithLabelValues(m.name).Inc()
			log.WithError(err).Warn("skipping container")
			continue
		}
		if reason == "" {
			continue
		}

		log.Warnf("suspending container: %s", reason)
		if _, err := m.v.AutoSuspend(ctx, c.Id, reason); err != nil {
			if errors.Is(err, ErrAlreadyInState) {
				log.Info("container changed state before it could be suspended")
				continue
			}
			monitorErrors.WithLabelValues(m.name).Inc()
			log.WithError(err).Error("failed to suspend container")
			continue
		}
		suspended = append(suspended, c.Id)
	}
	return suspended
}

// Run sweeps every Interval until ctx is done, backing off after a sweep
// that failed as a whole.
func (m *WorkloadMonitor) Run(ctx context.Context) error {
	m.log.WithField("interval", m.Interval).Info("workload monitor started")
	m.loop(ctx, m.Interval, m.Backoff, func(ctx context.Context) error {
		m.Sweep(ctx)
		return nil
	})
	return nil
}
