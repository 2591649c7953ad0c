/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/logger"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the command API and the monitors",
		Long: `Load the registry, then serve the command API and run the host and
workload monitors until interrupted. The registry is flushed on exit.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "Override the configured listen address")
	return cmd
}

func serveError(iErr error) error {
	return fmt.Errorf("an error occurred while serving: %w", iErr)
}

func runServe(cmd *cobra.Command, args []string) error {
	options, path, err := vpsctl.GetVpsctlOptions()
	if err != nil {
		return serveError(err)
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		options.Listen = listen
	}
	if options.JwtSecret == "" {
		return serveError(fmt.Errorf("jwt_secret is not configured"))
	}
	logger.Configure(options.LogLevel, options.LogFormat)
	if options.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.WithComponent("serve")
	if path != "" {
		log.WithField("path", path).Info("options loaded")
	}

	v, err := vpsctl.NewVpsctlWithOptions(options)
	if err != nil {
		return serveError(err)
	}
	defer func() {
		if err := v.Close(); err != nil {
			log.WithError(err).Error("failed to flush state")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	v.Ctx = ctx

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.NewServer(v, []byte(options.JwtSecret)).Run(gctx, options.Listen)
	})
	g.Go(func() error { return v.Host.Run(gctx) })
	g.Go(func() error { return v.Workload.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return serveError(err)
	}
	log.Info("shutting down")
	return nil
}
