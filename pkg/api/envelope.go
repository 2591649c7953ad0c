/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

// Envelope is the body of every API response.
type Envelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind vpsctl.ErrorKind) int {
	switch kind {
	case vpsctl.KindDenied:
		return http.StatusForbidden
	case vpsctl.KindValidation:
		return http.StatusBadRequest
	case vpsctl.KindNotFound:
		return http.StatusNotFound
	case vpsctl.KindAlreadyInState:
		return http.StatusConflict
	case vpsctl.KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

func fail(c *gin.Context, err error) {
	kind := vpsctl.KindOf(err)
	abort(c, StatusOf(kind), string(kind), err.Error())
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, Envelope{Error: &ErrorBody{Kind: kind, Message: message}})
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, string(vpsctl.KindValidation), err.Error())
}
