/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package lxc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// TmateSpawner opens shared terminal sessions inside containers.
type TmateSpawner struct {
	client *Client

	// Settle is how long to wait for a new session to register with the
	// tmate servers before asking for its address.
	Settle time.Duration
}

// NewTmateSpawner creates a new TmateSpawner running through client.
func NewTmateSpawner(client *Client) *TmateSpawner {
	return &TmateSpawner{client: client, Settle: 3 * time.Second}
}

// Spawn starts a detached tmate session in the container, installing tmate
// first if it is missing, and returns the SSH connection string.
func (t *TmateSpawner) Spawn(ctx context.Context, id string) (types.Session, error) {
	if err := t.ensureTmate(ctx, id); err != nil {
		return types.Session{}, err
	}

	name := "vpsctl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	sock := "/tmp/" + name + ".sock"

	if _, err := t.client.execOutput(ctx, id, "tmate", "-S", sock, "new-session", "-d"); err != nil {
		return types.Session{}, fmt.Errorf("failed to start tmate session: %w", err)
	}

	select {
	case <-ctx.Done():
		return types.Session{}, ctx.Err()
	case <-time.After(t.Settle):
	}

	out, err := t.client.execOutput(ctx, id, "tmate", "-S", sock, "display", "-p", "#{tmate_ssh}")
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to read tmate address: %w", err)
	}
	ssh := strings.TrimSpace(out)
	if ssh == "" {
		return types.Session{}, errors.New("tmate did not report an ssh address")
	}
	return types.Session{Name: name, Ssh: ssh}, nil
}

func (t *TmateSpawner) ensureTmate(ctx context.Context, id string) error {
	res, err := t.client.Exec(ctx, id, "which", "tmate")
	if err != nil {
		return err
	}
	if res.ExitCode == 0 {
		return nil
	}

	t.client.log.WithField("container", id).Info("installing tmate")
	for _, argv := range [][]string{
		{"apt-get", "update", "-y"},
		{"apt-get", "install", "-y", "tmate"},
	} {
		res, err := t.client.ExecLong(ctx, id, argv...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return &CommandError{
				Args:     t.client.argv(append([]string{"exec", id, "--"}, argv...)),
				Stderr:   res.Stderr,
				ExitCode: res.ExitCode,
			}
		}
	}
	return nil
}
