package domain

import (
	"encoding/json"
	"time"
)

const CurrentEventSchemaVersion = 1

const (
	ActionSessionCreated   = "session.created"
	ActionSessionValidated = "session.validated"
	ActionSessionReset     = "session.reset"
	ActionSessionDeleted   = "session.deleted"

	EventEntityValidated = "entity.validated"
)

// SessionEvent records one transition of a session.
type SessionEvent struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	TenantID   string    `json:"tenant_id"`
	SessionID  string    `json:"session_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ErrorCount int       `json:"error_count"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
}

// GenerationEvent hands a validated view-model to the generation
// orchestration collaborator.
type GenerationEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SchemaVersion  int       `json:"schema_version"`
	TenantID       string    `json:"tenant_id"`
	SessionID      string    `json:"session_id"`
	SessionVersion int64     `json:"session_version"`
	Actor          string    `json:"actor"`
	OccurredAt     time.Time `json:"occurred_at"`
	ViewModel      ViewModel `json:"view_model"`
}

type OutboxEvent struct {
	ID            int64
	EventID       string
	TenantID      string
	Topic         string
	PayloadJSON   json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

type EventFilter struct {
	TenantID  string
	SessionID string
	Action    string
	AfterID   int64
	Limit     int
}

// Outbox delivery states.
const (
	OutboxPending    = "pending"
	OutboxDispatched = "dispatched"
	OutboxDead       = "dead"
)

// GenerationTopic is the outbox topic of generation events of a tenant.
func GenerationTopic(tenantID, eventType string) string {
	return "entitygen." + tenantID + "." + eventType
}
