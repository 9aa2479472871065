// Package audit records security-relevant events. Delivery is best effort:
// a failing sink is logged and never fails the operation that emitted the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names an audited operation.
type Action string

const (
	ActionUserRegistered    Action = "USER_REGISTERED"
	ActionUserLogin         Action = "USER_LOGIN"
	ActionUserLogout        Action = "USER_LOGOUT"
	ActionPasswordChanged   Action = "PASSWORD_CHANGED"
	ActionWorkspaceCreated  Action = "WORKSPACE_CREATED"
	ActionWorkspaceDeleted  Action = "WORKSPACE_DELETED"
	ActionMemberInvited     Action = "MEMBER_INVITED"
	ActionMemberJoined      Action = "MEMBER_JOINED"
	ActionMemberRoleChanged Action = "MEMBER_ROLE_CHANGED"
	ActionMemberRemoved     Action = "MEMBER_REMOVED"
	ActionModelEnabled      Action = "MODEL_ENABLED"
	ActionModelDisabled     Action = "MODEL_DISABLED"
)

// Event is a single audit record.
type Event struct {
	TenantID     uuid.UUID      `json:"tenantId"`
	UserID       *uuid.UUID     `json:"userId,omitempty"`
	Action       Action         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	OccurredAt   time.Time      `json:"occurredAt"`
}

// Recorder accepts events. Implementations must not block the caller on
// slow sinks and must not return delivery errors.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Sink delivers an event to one destination.
type Sink interface {
	Write(ctx context.Context, e Event) error
	Name() string
}
