/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// opContext is the context operations run with. It keeps the request
// values but not its cancellation: a runtime command once issued runs to
// completion or to its own timeout, even if the client goes away.
func opContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

type containerOp func(c *gin.Context, actor, id string) (any, error)

// byId adapts an operation on the container of the :id parameter.
func (s *Server) byId(op containerOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := op(c, actorOf(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, out)
	}
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, fmt.Errorf("invalid request payload: %w", err))
		return false
	}
	return true
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func (s *Server) whoami(c *gin.Context) {
	actor := actorOf(c)
	respond(c, WhoamiResponse{Actor: actor, Role: string(s.v.Policy.RoleOf(actor, nil))})
}

func (s *Server) listContainers(c *gin.Context) {
	list, err := s.v.List(opContext(c), actorOf(c), c.Query("owner"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, list)
}

func (s *Server) listShared(c *gin.Context) {
	respond(c, s.v.ListShared(opContext(c), actorOf(c)))
}

func (s *Server) listAll(c *gin.Context) {
	list, totals, err := s.v.ListAll(opContext(c), actorOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, ListAllResponse{Containers: list, Totals: totals})
}

func (s *Server) createContainer(c *gin.Context) {
	var req CreateRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.v.Create(opContext(c), actorOf(c), req.Owner, req.Resources)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) manage(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Manage(opContext(c), actor, id)
	})(c)
}

func (s *Server) containerInfo(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.ContainerInfo(opContext(c), actor, id)
	})(c)
}

func (s *Server) deleteContainer(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Delete(opContext(c), actor, id, c.Query("reason"))
	})(c)
}

func (s *Server) start(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Start(opContext(c), actor, id)
	})(c)
}

func (s *Server) stop(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Stop(opContext(c), actor, id)
	})(c)
}

func (s *Server) restart(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Restart(opContext(c), actor, id)
	})(c)
}

func (s *Server) suspend(c *gin.Context) {
	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Suspend(opContext(c), actor, id, req.Reason)
	})(c)
}

func (s *Server) unsuspend(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Unsuspend(opContext(c), actor, id)
	})(c)
}

func (s *Server) reinstall(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.RequestReinstall(opContext(c), actor, id)
	})(c)
}

func (s *Server) resize(c *gin.Context) {
	var req types.ResourceChange
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Resize(opContext(c), actor, id, req)
	})(c)
}

func (s *Server) addResources(c *gin.Context) {
	var req types.ResourceChange
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.AddResources(opContext(c), actor, id, req)
	})(c)
}

func (s *Server) share(c *gin.Context) {
	var req GranteeRequest
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Share(opContext(c), actor, id, req.Grantee)
	})(c)
}

func (s *Server) revoke(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Revoke(opContext(c), actor, id, c.Param("grantee"))
	})(c)
}

// number parses the :number parameter of the owner routes.
func number(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid container number %q", c.Param("number")))
		return 0, false
	}
	return n, true
}

func (s *Server) deleteAt(c *gin.Context) {
	n, ok := number(c)
	if !ok {
		return
	}
	out, err := s.v.DeleteAt(opContext(c), actorOf(c), c.Param("owner"), n, c.Query("reason"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) shareAt(c *gin.Context) {
	n, ok := number(c)
	if !ok {
		return
	}
	var req GranteeRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.v.ShareAt(opContext(c), actorOf(c), c.Param("owner"), n, req.Grantee)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) revokeAt(c *gin.Context) {
	n, ok := number(c)
	if !ok {
		return
	}
	out, err := s.v.RevokeAt(opContext(c), actorOf(c), c.Param("owner"), n, c.Param("grantee"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) clone(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Clone(opContext(c), actor, id)
	})(c)
}

func (s *Server) migrate(c *gin.Context) {
	var req MigrateRequest
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Migrate(opContext(c), actor, id, req.Pool)
	})(c)
}

func (s *Server) snapshotList(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.SnapshotList(opContext(c), actor, id)
	})(c)
}

func (s *Server) snapshotCreate(c *gin.Context) {
	var req SnapshotRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.SnapshotCreate(opContext(c), actor, id, req.Name)
	})(c)
}

func (s *Server) snapshotRestore(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.SnapshotRestore(opContext(c), actor, id, c.Param("name"))
	})(c)
}

func (s *Server) exec(c *gin.Context) {
	var req ExecRequest
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Exec(opContext(c), actor, id, req.Command)
	})(c)
}

func (s *Server) networkList(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.NetworkList(opContext(c), actor, id)
	})(c)
}

func (s *Server) networkLimit(c *gin.Context) {
	var req LimitRequest
	if !bind(c, &req) {
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return req.Rate, s.v.NetworkLimit(opContext(c), actor, id, req.Rate)
	})(c)
}

func (s *Server) processes(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Processes(opContext(c), actor, id)
	})(c)
}

func (s *Server) logs(c *gin.Context) {
	lines, err := intQuery(c, "lines")
	if err != nil {
		badRequest(c, err)
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Logs(opContext(c), actor, id, lines)
	})(c)
}

func (s *Server) stats(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Stats(opContext(c), actor, id)
	})(c)
}

func (s *Server) ssh(c *gin.Context) {
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.Ssh(opContext(c), actor, id)
	})(c)
}

func (s *Server) containerSuspensions(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	s.byId(func(c *gin.Context, actor, id string) (any, error) {
		return s.v.SuspensionLogs(opContext(c), actor, id, limit)
	})(c)
}

func (s *Server) suspensions(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	logs, err := s.v.SuspensionLogs(opContext(c), actorOf(c), "", limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, logs)
}

func (s *Server) confirm(c *gin.Context) {
	out, err := s.v.Confirm(opContext(c), actorOf(c), c.Param("cid"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) cancel(c *gin.Context) {
	out, err := s.v.Cancel(opContext(c), actorOf(c), c.Param("cid"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) stopAll(c *gin.Context) {
	out, err := s.v.RequestStopAll(opContext(c), actorOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) audit(c *gin.Context) {
	repair, _ := strconv.ParseBool(c.Query("repair"))
	issues, err := s.v.Audit(opContext(c), actorOf(c), repair)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, issues)
}

func (s *Server) monitorStatus(c *gin.Context) {
	out, err := s.v.MonitorControl(opContext(c), actorOf(c), "all", "status")
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) monitorControl(c *gin.Context) {
	var req MonitorRequest
	if !bind(c, &req) {
		return
	}
	out, err := s.v.MonitorControl(opContext(c), actorOf(c), req.Monitor, req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) adminList(c *gin.Context) {
	out, err := s.v.AdminList(opContext(c), actorOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) adminAdd(c *gin.Context) {
	var req UserRequest
	if !bind(c, &req) {
		return
	}
	if err := s.v.AdminAdd(opContext(c), actorOf(c), req.User); err != nil {
		fail(c, err)
		return
	}
	respond(c, req.User)
}

func (s *Server) adminRemove(c *gin.Context) {
	user := c.Param("user")
	if err := s.v.AdminRemove(opContext(c), actorOf(c), user); err != nil {
		fail(c, err)
		return
	}
	respond(c, user)
}

func (s *Server) userInfo(c *gin.Context) {
	out, err := s.v.UserInfo(opContext(c), actorOf(c), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) serverStats(c *gin.Context) {
	out, err := s.v.ServerStats(opContext(c), actorOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) uptime(c *gin.Context) {
	out, err := s.v.Uptime(opContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}

func (s *Server) runtimeList(c *gin.Context) {
	out, err := s.v.RuntimeList(opContext(c), actorOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, out)
}
