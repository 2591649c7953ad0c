/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"errors"
	"fmt"

	"github.com/mirkobrombin/vpsctl/pkg/lxc"
)

// ErrorKind classifies the failures of an operation.
type ErrorKind string

const (
	KindInternal       ErrorKind = "internal"
	KindDenied         ErrorKind = "authorization_denied"
	KindValidation     ErrorKind = "validation_error"
	KindNotFound       ErrorKind = "not_found"
	KindGateway        ErrorKind = "gateway_error"
	KindPersistence    ErrorKind = "persistence_error"
	KindAlreadyInState ErrorKind = "already_in_state"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrDenied         = &Error{Kind: KindDenied}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrGateway        = &Error{Kind: KindGateway}
	ErrPersistence    = &Error{Kind: KindPersistence}
	ErrAlreadyInState = &Error{Kind: KindAlreadyInState}
)

// Error is the error returned by the operations of Vpsctl.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Negative reports whether the kind is an expected negative outcome rather
// than a system failure.
func (k ErrorKind) Negative() bool {
	switch k {
	case KindDenied, KindValidation, KindNotFound, KindAlreadyInState:
		return true
	}
	return false
}

// KindOf returns the kind of err. Runtime command failures are gateway
// errors, anything unknown is internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var cmdErr *lxc.CommandError
	if errors.As(err, &cmdErr) {
		return KindGateway
	}
	return KindInternal
}

func denied(op, reason string) error {
	return &Error{Kind: KindDenied, Op: op, Msg: reason}
}

func invalid(op, format string, a ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, a...)}
}

func notFound(op, format string, a ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, a...)}
}

func alreadyIn(op, format string, a ...any) error {
	return &Error{Kind: KindAlreadyInState, Op: op, Msg: fmt.Sprintf(format, a...)}
}

func gatewayErr(op string, err error) error {
	return &Error{Kind: KindGateway, Op: op, Err: err}
}

func persistErr(op string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindPersistence {
		return err
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
