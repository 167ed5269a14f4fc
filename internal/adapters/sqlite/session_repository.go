package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/entitygen/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

type sessionModel struct {
	TenantID         string    `gorm:"column:tenant_id;primaryKey"`
	ID               string    `gorm:"column:id;primaryKey"`
	Status           string    `gorm:"column:status;not null"`
	Version          int64     `gorm:"column:version;not null"`
	InitialInputJSON string    `gorm:"column:initial_input_json;not null"`
	StateJSON        string    `gorm:"column:state_json;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

type sessionEventModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID    string    `gorm:"column:event_id;not null"`
	TenantID   string    `gorm:"column:tenant_id;not null"`
	SessionID  string    `gorm:"column:session_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Actor      string    `gorm:"column:actor;not null"`
	FromStatus string    `gorm:"column:from_status;not null"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	ErrorCount int       `gorm:"column:error_count;not null"`
	Version    int64     `gorm:"column:version;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
}

func (sessionEventModel) TableName() string {
	return "session_events"
}

type outboxEventModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID       string     `gorm:"column:event_id;not null"`
	TenantID      string     `gorm:"column:tenant_id;not null"`
	Topic         string     `gorm:"column:topic;not null"`
	PayloadJSON   string     `gorm:"column:payload_json;not null"`
	Status        string     `gorm:"column:status;not null"`
	Attempts      int        `gorm:"column:attempts;not null"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null"`
	LastError     string     `gorm:"column:last_error;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	DispatchedAt  *time.Time `gorm:"column:dispatched_at"`
}

func (outboxEventModel) TableName() string {
	return "outbox_events"
}

// SessionRepository stores sessions together with their history rows and
// queued generation events.
type SessionRepository struct {
	db *gormsqlite.DB
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *gormsqlite.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, change ports.SessionChange) (domain.Session, error) {
	if err := change.Session.Validate(); err != nil {
		return domain.Session{}, err
	}
	model, err := toSessionModel(change.Session)
	if err != nil {
		return domain.Session{}, err
	}

	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return insertEventAndOutbox(tx.DB, change)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return change.Session, nil
}

func (r *SessionRepository) Get(ctx context.Context, tenantID, id string) (domain.Session, error) {
	var model sessionModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return fromSessionModel(model)
}

func (r *SessionRepository) Save(ctx context.Context, change ports.SessionChange, expectedVersion int64) (domain.Session, error) {
	model, err := toSessionModel(change.Session)
	if err != nil {
		return domain.Session{}, err
	}

	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&sessionModel{}).
			Where("tenant_id = ? AND id = ? AND version = ?", model.TenantID, model.ID, expectedVersion).
			Updates(map[string]any{
				"status":     model.Status,
				"version":    model.Version,
				"state_json": model.StateJSON,
				"updated_at": model.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&sessionModel{}).Where("tenant_id = ? AND id = ?", model.TenantID, model.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check session: %w", err)
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		return insertEventAndOutbox(tx.DB, change)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return change.Session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tenantID, id string, event domain.SessionEvent) (bool, error) {
	deleted := false
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&sessionModel{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return insertEventAndOutbox(tx.DB, ports.SessionChange{Event: event})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func insertEventAndOutbox(tx *gorm.DB, change ports.SessionChange) error {
	e := change.Event
	event := sessionEventModel{
		EventID:    e.EventID,
		TenantID:   e.TenantID,
		SessionID:  e.SessionID,
		Action:     e.Action,
		Actor:      e.Actor,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ErrorCount: e.ErrorCount,
		Version:    e.Version,
		OccurredAt: e.OccurredAt.UTC(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}

	if change.Outbox == nil {
		return nil
	}
	g := change.Outbox
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	outbox := outboxEventModel{
		EventID:       g.EventID,
		TenantID:      g.TenantID,
		Topic:         domain.GenerationTopic(g.TenantID, g.EventType),
		PayloadJSON:   string(payload),
		Status:        domain.OutboxPending,
		NextAttemptAt: g.OccurredAt.UTC(),
		CreatedAt:     g.OccurredAt.UTC(),
	}
	if err := tx.Create(&outbox).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func toSessionModel(s domain.Session) (sessionModel, error) {
	initial := s.InitialInput
	if initial == nil {
		initial = map[string]any{}
	}
	initialJSON, err := json.Marshal(initial)
	if err != nil {
		return sessionModel{}, fmt.Errorf("marshal initial input: %w", err)
	}
	stateJSON, err := json.Marshal(s.State)
	if err != nil {
		return sessionModel{}, fmt.Errorf("marshal session state: %w", err)
	}
	return sessionModel{
		TenantID:         s.TenantID,
		ID:               s.ID,
		Status:           s.Status,
		Version:          s.Version,
		InitialInputJSON: string(initialJSON),
		StateJSON:        string(stateJSON),
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}, nil
}

func fromSessionModel(m sessionModel) (domain.Session, error) {
	var initial map[string]any
	if err := json.Unmarshal([]byte(m.InitialInputJSON), &initial); err != nil {
		return domain.Session{}, fmt.Errorf("decode initial input: %w", err)
	}
	var state domain.SessionState
	if err := json.Unmarshal([]byte(m.StateJSON), &state); err != nil {
		return domain.Session{}, fmt.Errorf("decode session state: %w", err)
	}
	return domain.Session{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Status:       m.Status,
		Version:      m.Version,
		InitialInput: initial,
		State:        state,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}
