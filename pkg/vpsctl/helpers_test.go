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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/lxc/lxctest"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

const mainAdmin = "main"

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev types.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) ofType(t types.EventType) []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []types.Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeProbe struct {
	mu  sync.Mutex
	cpu float64
	err error
}

func (p *fakeProbe) set(cpu float64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cpu, p.err = cpu, err
}

func (p *fakeProbe) CpuPercent(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cpu, p.err
}

func (p *fakeProbe) Info(ctx context.Context) (types.HostInfo, error) {
	cpu, err := p.CpuPercent(ctx)
	return types.HostInfo{Hostname: "host", Uptime: time.Hour, CpuPercent: cpu}, err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	v        *Vpsctl
	fake     *lxctest.Fake
	notifier *recordingNotifier
	probe    *fakeProbe
	clock    *testClock
	options  types.VpsctlOptions
}

func testOptions(t *testing.T) types.VpsctlOptions {
	o := DefaultOptions(t.TempDir())
	o.MainAdminId = mainAdmin
	return o
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithOptions(t, testOptions(t))
}

func newHarnessWithOptions(t *testing.T, o types.VpsctlOptions) *harness {
	t.Helper()
	h := &harness{
		fake:     lxctest.New(),
		notifier: &recordingNotifier{},
		probe:    &fakeProbe{},
		clock:    &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		options:  o,
	}
	mem := NewMemoryConfirmations(h.clock.Now)
	v, err := NewVpsctlWithOptions(o,
		WithLogger(logger.Discard()),
		WithRunner(h.fake.Run),
		WithNotifier(h.notifier),
		WithConfirmations(mem),
		WithProbe(h.probe),
		WithClock(h.clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { v.close() })
	h.v = v
	return h
}

// reload opens a second instance on the same store.
func (h *harness) reload(t *testing.T) *Vpsctl {
	t.Helper()
	v, err := NewVpsctlWithOptions(h.options,
		WithLogger(logger.Discard()),
		WithRunner(lxctest.New().Run),
		WithNotifier(&recordingNotifier{}),
		WithProbe(&fakeProbe{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { v.close() })
	return v
}

func (h *harness) create(t *testing.T, owner string, r types.Resources) types.Container {
	t.Helper()
	c, err := h.v.Create(context.Background(), mainAdmin, owner, r)
	require.NoError(t, err)
	return c
}

func res(ram, cpu, disk int) types.Resources {
	return types.Resources{RamGB: ram, CpuCores: cpu, DiskGB: disk}
}

func intp(n int) *int { return &n }

// sample scripts the usage the workload monitor reads for a container.
func sample(f *lxctest.Fake, id string, cpu, ram float64) {
	f.On("exec "+id+" -- top -bn1", lxctest.Response{
		Stdout: fmt.Sprintf("top - 12:00:00\n%%Cpu(s): %.1f us,  0.0 sy,  0.0 ni, %.1f id,  0.0 wa\n", cpu, 100-cpu),
	})
	f.On("exec "+id+" -- free -m", lxctest.Response{
		Stdout: fmt.Sprintf("              total        used        free\nMem:           1000         %d         %d\n", int(ram*10), 1000-int(ram*10)),
	})
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOf(err)
}
