package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/entitygen/internal/core/appctx"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

// SessionService persists entity contexts between validation attempts.
type SessionService struct {
	repo      ports.SessionRepository
	events    ports.SessionEventRepository
	validator *SchemaValidator
	now       func() time.Time
}

func NewSessionService(repo ports.SessionRepository, events ports.SessionEventRepository, validator *SchemaValidator) *SessionService {
	return &SessionService{
		repo:      repo,
		events:    events,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SessionService) Create(ctx context.Context, tenantID string, input map[string]any, actor string) (domain.Session, error) {
	if err := domain.ValidateKey(tenantID); err != nil {
		return domain.Session{}, err
	}

	c := s.newContext(input)
	now := s.now()
	session := domain.Session{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Status:       c.Status().String(),
		Version:      1,
		InitialInput: c.Input(),
		State:        toSessionState(c.ToState()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	event := s.event(session, domain.ActionSessionCreated, actor, "", session.Status, 0)
	return s.repo.Create(ctx, ports.SessionChange{Session: session, Event: event})
}

func (s *SessionService) Get(ctx context.Context, tenantID, id string) (domain.Session, error) {
	if err := validateSessionKeys(tenantID, id); err != nil {
		return domain.Session{}, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Validate runs one validation attempt of input against the stored session.
// On success the derived view-model is queued for delivery in the same
// write.
func (s *SessionService) Validate(ctx context.Context, tenantID, id string, input any, actor string) (domain.Session, error) {
	session, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return domain.Session{}, err
	}

	c := appctx.FromState(fromSessionState(session.State), s.contextOptions()...)
	ValidateEntity(ctx, s.validator, c, input)

	next := s.advance(session, c)
	change := ports.SessionChange{
		Session: next,
		Event:   s.event(next, domain.ActionSessionValidated, actor, session.Status, next.Status, c.Errors().Len()),
	}
	if c.Success() && c.Resource() != nil {
		change.Outbox = &domain.GenerationEvent{
			EventID:        uuid.NewString(),
			EventType:      domain.EventEntityValidated,
			SchemaVersion:  domain.CurrentEventSchemaVersion,
			TenantID:       tenantID,
			SessionID:      id,
			SessionVersion: next.Version,
			Actor:          actor,
			OccurredAt:     next.UpdatedAt,
			ViewModel:      *c.Resource(),
		}
	}
	return s.repo.Save(ctx, change, session.Version)
}

// Reset restores the session to the state it was created with.
func (s *SessionService) Reset(ctx context.Context, tenantID, id string, actor string) (domain.Session, error) {
	session, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return domain.Session{}, err
	}

	c := s.newContext(session.InitialInput)
	c.Merge(appctx.PartialFromState(fromSessionState(session.State))).Reset()

	next := s.advance(session, c)
	change := ports.SessionChange{
		Session: next,
		Event:   s.event(next, domain.ActionSessionReset, actor, session.Status, next.Status, 0),
	}
	return s.repo.Save(ctx, change, session.Version)
}

func (s *SessionService) Delete(ctx context.Context, tenantID, id string, actor string) (bool, error) {
	if err := validateSessionKeys(tenantID, id); err != nil {
		return false, err
	}
	event := s.event(domain.Session{ID: id, TenantID: tenantID}, domain.ActionSessionDeleted, actor, "", "", 0)
	return s.repo.Delete(ctx, tenantID, id, event)
}

func (s *SessionService) History(ctx context.Context, filter domain.EventFilter) ([]domain.SessionEvent, error) {
	if err := domain.ValidateKey(filter.TenantID); err != nil {
		return nil, err
	}
	if filter.SessionID != "" {
		if err := domain.ValidateKey(filter.SessionID); err != nil {
			return nil, domain.ErrInvalidSession
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.events.List(ctx, filter)
}

func (s *SessionService) newContext(input map[string]any) *EntityContext {
	return NewEntityContext(input, s.contextOptions()...)
}

func (s *SessionService) contextOptions() []appctx.Option {
	return []appctx.Option{appctx.WithRegistry(s.validator.Registry())}
}

func (s *SessionService) advance(session domain.Session, c *EntityContext) domain.Session {
	next := session
	next.State = toSessionState(c.ToState())
	next.Status = c.Status().String()
	next.Version = session.Version + 1
	next.UpdatedAt = s.now()
	return next
}

func (s *SessionService) event(session domain.Session, action, actor, from, to string, errorCount int) domain.SessionEvent {
	if actor == "" {
		actor = "system"
	}
	occurred := session.UpdatedAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	return domain.SessionEvent{
		EventID:    uuid.NewString(),
		TenantID:   session.TenantID,
		SessionID:  session.ID,
		Action:     action,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   to,
		ErrorCount: errorCount,
		Version:    session.Version,
		OccurredAt: occurred,
	}
}

func validateSessionKeys(tenantID, id string) error {
	if err := domain.ValidateKey(tenantID); err != nil {
		return err
	}
	if err := domain.ValidateKey(id); err != nil {
		return domain.ErrInvalidSession
	}
	return nil
}

func toSessionState(s EntityState) domain.SessionState {
	return domain.SessionState{
		Input:    s.Input,
		Params:   s.Params,
		Data:     s.Data,
		Resource: s.Resource,
		Errors:   s.Errors,
		Messages: s.Messages,
	}
}

func fromSessionState(s domain.SessionState) EntityState {
	return EntityState{
		Input:    s.Input,
		Params:   s.Params,
		Data:     s.Data,
		Resource: s.Resource,
		Errors:   s.Errors,
		Messages: s.Messages,
	}
}
