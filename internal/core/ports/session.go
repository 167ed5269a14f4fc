package ports

import (
	"context"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

// SessionChange is one persisted transition of a session. Outbox is
// written in the same transaction when set.
type SessionChange struct {
	Session domain.Session
	Event   domain.SessionEvent
	Outbox  *domain.GenerationEvent
}

type SessionRepository interface {
	Create(ctx context.Context, change SessionChange) (domain.Session, error)
	Get(ctx context.Context, tenantID, id string) (domain.Session, error)
	// Save fails with domain.ErrConflict unless the stored version equals
	// expectedVersion.
	Save(ctx context.Context, change SessionChange, expectedVersion int64) (domain.Session, error)
	Delete(ctx context.Context, tenantID, id string, event domain.SessionEvent) (bool, error)
}

type SessionEventRepository interface {
	List(ctx context.Context, filter domain.EventFilter) ([]domain.SessionEvent, error)
}

type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt string, errMsg string) error
	MarkDead(ctx context.Context, id int64, attempts int, errMsg string) error
}
