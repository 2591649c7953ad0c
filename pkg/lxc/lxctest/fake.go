/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */

// Package lxctest provides a scripted lxc.Runner for tests.
package lxctest

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Response is what the fake answers to a command.
type Response struct {
	Stdout string
	Stderr string
	Exit   int
	Err    error

	// Delay is waited before answering, honouring the context.
	Delay time.Duration
}

type rule struct {
	prefix string
	exact  bool
	resp   Response
}

// Fake records every command and answers with the first matching rule,
// later rules taking precedence. Unmatched commands succeed with no output.
type Fake struct {
	mu    sync.Mutex
	rules []rule
	calls []string

	// Hook, when set, is called with the command line before answering.
	Hook func(cmdline string)
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{}
}

// On scripts the answer for an exact command line, e.g. "start vps-1-1".
func (f *Fake) On(cmdline string, r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: cmdline, exact: true, resp: r})
	return f
}

// OnPrefix scripts the answer for every command line starting with prefix.
func (f *Fake) OnPrefix(prefix string, r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, resp: r})
	return f
}

// Run implements lxc.Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmdline := strings.Join(args, " ")

	f.mu.Lock()
	f.calls = append(f.calls, cmdline)
	resp := Response{}
	for i := len(f.rules) - 1; i >= 0; i-- {
		r := f.rules[i]
		if (r.exact && r.prefix == cmdline) || (!r.exact && strings.HasPrefix(cmdline, r.prefix)) {
			resp = r.resp
			break
		}
	}
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(cmdline)
	}

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, -1, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if resp.Err != nil {
		return nil, []byte(resp.Stderr), -1, resp.Err
	}
	return []byte(resp.Stdout), []byte(resp.Stderr), resp.Exit, nil
}

// Calls returns every command line run so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times cmdline was run.
func (f *Fake) Count(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmdline {
			n++
		}
	}
	return n
}

// CountPrefix returns how many command lines started with prefix.
func (f *Fake) CountPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls, keeping the rules.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
