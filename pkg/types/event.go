/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package types

import "time"

// EventType identifies what happened in an Event.
type EventType string

const (
	EventCreated     EventType = "container.created"
	EventDeleted     EventType = "container.deleted"
	EventSuspended   EventType = "container.suspended"
	EventUnsuspended EventType = "container.unsuspended"
	EventReinstalled EventType = "container.reinstalled"
	EventShared      EventType = "container.shared"
	EventRevoked     EventType = "container.revoked"
	EventSession     EventType = "container.session"
	EventFleetStop   EventType = "fleet.stopped"
	EventRoleGrant   EventType = "role.grant"
	EventRoleRevoke  EventType = "role.revoke"
	EventAdminAdded  EventType = "admin.added"
	EventAdminGone   EventType = "admin.removed"
)

// Event is a notification handed to the notification sink, which delivers
// it to Recipient through the chat platform.
type Event struct {
	Id          string            `json:"id"`
	Type        EventType         `json:"type"`
	Recipient   string            `json:"recipient,omitempty"`
	ContainerId string            `json:"container_id,omitempty"`
	Actor       string            `json:"actor,omitempty"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
	Time        time.Time         `json:"time"`
}
