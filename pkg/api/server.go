/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */

// Package api exposes the vpsctl operations over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

// Server serves the API of a Vpsctl instance.
type Server struct {
	v      *vpsctl.Vpsctl
	secret []byte
	log    logrus.FieldLogger
}

// NewServer creates a new Server authenticating requests with secret.
func NewServer(v *vpsctl.Vpsctl, secret []byte) *Server {
	return &Server{v: v, secret: secret, log: v.Log.WithField("component", "api")}
}

// requestLogger logs every request once it is served.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		entry := s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"actor":    actorOf(c),
			"duration": time.Since(started).Round(time.Millisecond),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { respond(c, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(AuthMiddleware(s.secret))
	{
		v1.GET("/whoami", s.whoami)

		containers := v1.Group("/containers")
		{
			containers.GET("", s.listContainers)
			containers.POST("", s.createContainer)
			containers.GET("/shared", s.listShared)
			containers.GET("/all", s.listAll)

			containers.GET("/:id", s.manage)
			containers.GET("/:id/info", s.containerInfo)
			containers.DELETE("/:id", s.deleteContainer)
			containers.POST("/:id/start", s.start)
			containers.POST("/:id/stop", s.stop)
			containers.POST("/:id/restart", s.restart)
			containers.POST("/:id/suspend", s.suspend)
			containers.POST("/:id/unsuspend", s.unsuspend)
			containers.POST("/:id/reinstall", s.reinstall)
			containers.POST("/:id/resize", s.resize)
			containers.POST("/:id/add", s.addResources)
			containers.POST("/:id/shares", s.share)
			containers.DELETE("/:id/shares/:grantee", s.revoke)
			containers.POST("/:id/clone", s.clone)
			containers.POST("/:id/migrate", s.migrate)
			containers.GET("/:id/snapshots", s.snapshotList)
			containers.POST("/:id/snapshots", s.snapshotCreate)
			containers.POST("/:id/snapshots/:name/restore", s.snapshotRestore)
			containers.POST("/:id/exec", s.exec)
			containers.GET("/:id/network", s.networkList)
			containers.POST("/:id/network/limit", s.networkLimit)
			containers.GET("/:id/processes", s.processes)
			containers.GET("/:id/logs", s.logs)
			containers.GET("/:id/stats", s.stats)
			containers.POST("/:id/ssh", s.ssh)
			containers.GET("/:id/suspensions", s.containerSuspensions)
		}

		owners := v1.Group("/owners/:owner/containers/:number")
		{
			owners.DELETE("", s.deleteAt)
			owners.POST("/shares", s.shareAt)
			owners.DELETE("/shares/:grantee", s.revokeAt)
		}

		v1.POST("/confirmations/:cid", s.confirm)
		v1.DELETE("/confirmations/:cid", s.cancel)

		v1.POST("/fleet/stop", s.stopAll)
		v1.GET("/suspensions", s.suspensions)
		v1.POST("/audit", s.audit)

		v1.GET("/monitor", s.monitorStatus)
		v1.POST("/monitor", s.monitorControl)

		v1.GET("/admins", s.adminList)
		v1.POST("/admins", s.adminAdd)
		v1.DELETE("/admins/:user", s.adminRemove)

		v1.GET("/users/:user", s.userInfo)
		v1.GET("/server/stats", s.serverStats)
		v1.GET("/server/uptime", s.uptime)
		v1.GET("/server/runtime", s.runtimeList)
	}
	return r
}

// Run serves the API on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("api stopped")
	return nil
}
