package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/atvirokodosprendimai/entitygen/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
	"github.com/atvirokodosprendimai/entitygen/migrations"
)

func openTestDB(t *testing.T) (*gormsqlite.DB, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "sessions.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	wdb, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(ctx, wdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, wdb
}

func testChange(id, eventID string, version int64, at time.Time) ports.SessionChange {
	session := domain.Session{
		ID:           id,
		TenantID:     "t1",
		Status:       "initial",
		Version:      version,
		InitialInput: map[string]any{"entityName": "User"},
		State: domain.SessionState{
			Input:  map[string]any{"entityName": "User"},
			Params: map[string]any{},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	return ports.SessionChange{
		Session: session,
		Event: domain.SessionEvent{
			EventID:    eventID,
			TenantID:   "t1",
			SessionID:  id,
			Action:     domain.ActionSessionCreated,
			Actor:      "tester",
			ToStatus:   "initial",
			Version:    version,
			OccurredAt: at,
		},
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewSessionRepository(db)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	change := testChange("s1", "e1", 1, at)
	change.Session.State.Errors = domain.NewErrors("tableName", "is required", "base", "broken")
	change.Session.State.Messages = []string{"tableName: is required", "base: broken"}

	if _, err := repo.Create(ctx, change); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "t1", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 1 || got.Status != "initial" {
		t.Fatalf("unexpected session header: %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Fatalf("created_at: got %s want %s", got.CreatedAt, at)
	}
	if diff := cmp.Diff(map[string]any{"entityName": "User"}, got.InitialInput); diff != "" {
		t.Fatalf("initial input mismatch (-want +got):\n%s", diff)
	}
	if !got.State.Errors.Equal(change.Session.State.Errors) {
		t.Fatalf("errors lost their order: %v", got.State.Errors)
	}
	if diff := cmp.Diff(change.Session.State.Messages, got.State.Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	if _, err := repo.Get(ctx, "t2", "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
}

func TestSessionRepositorySaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewSessionRepository(db)

	at := time.Now().UTC()
	if _, err := repo.Create(ctx, testChange("s1", "e1", 1, at)); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := testChange("s1", "e2", 2, at)
	next.Session.Status = "success"
	if _, err := repo.Save(ctx, next, 1); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale := testChange("s1", "e3", 2, at)
	if _, err := repo.Save(ctx, stale, 1); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	missing := testChange("nope", "e4", 2, at)
	if _, err := repo.Save(ctx, missing, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, err := repo.Get(ctx, "t1", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 2 || got.Status != "success" {
		t.Fatalf("stale save overwrote session: %+v", got)
	}
}

func TestSessionRepositoryWritesOutboxWithSave(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewSessionRepository(db)
	outbox := NewOutboxRepository(db)

	at := time.Now().UTC().Add(-time.Second)
	if _, err := repo.Create(ctx, testChange("s1", "e1", 1, at)); err != nil {
		t.Fatalf("create: %v", err)
	}

	next := testChange("s1", "e2", 2, at)
	next.Outbox = &domain.GenerationEvent{
		EventID:        "g1",
		EventType:      domain.EventEntityValidated,
		SchemaVersion:  domain.CurrentEventSchemaVersion,
		TenantID:       "t1",
		SessionID:      "s1",
		SessionVersion: 2,
		OccurredAt:     at,
		ViewModel:      domain.ViewModel{EntityName: "User", TableName: "users"},
	}
	if _, err := repo.Save(ctx, next, 1); err != nil {
		t.Fatalf("save: %v", err)
	}

	pending, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}
	row := pending[0]
	if row.EventID != "g1" || row.Topic != "entitygen.t1.entity.validated" {
		t.Fatalf("unexpected outbox row: %+v", row)
	}
	if !strings.Contains(string(row.PayloadJSON), `"entityName":"User"`) {
		t.Fatalf("payload does not carry the view-model: %s", row.PayloadJSON)
	}
}

func TestSessionRepositoryOutboxFailureRollsBackSave(t *testing.T) {
	ctx := context.Background()
	db, wdb := openTestDB(t)
	repo := NewSessionRepository(db)

	at := time.Now().UTC()
	if _, err := repo.Create(ctx, testChange("s1", "e1", 1, at)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := wdb.ExecContext(ctx, `
		CREATE TRIGGER trg_fail_outbox_insert
		BEFORE INSERT ON outbox_events
		BEGIN
			SELECT RAISE(ABORT, 'forced outbox failure');
		END;
	`); err != nil {
		t.Fatalf("create failure trigger: %v", err)
	}

	next := testChange("s1", "e2", 2, at)
	next.Session.Status = "success"
	next.Outbox = &domain.GenerationEvent{EventID: "g1", EventType: domain.EventEntityValidated, TenantID: "t1", SessionID: "s1", OccurredAt: at}

	_, err := repo.Save(ctx, next, 1)
	if err == nil {
		t.Fatalf("expected save error")
	}
	if !strings.Contains(err.Error(), "forced outbox failure") {
		t.Fatalf("expected forced outbox failure, got: %v", err)
	}

	got, err := repo.Get(ctx, "t1", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 1 || got.Status != "initial" {
		t.Fatalf("session changed despite rollback: %+v", got)
	}

	var events int
	if err := wdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_events WHERE session_id = 's1'`).Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected only the create event, got %d", events)
	}
}

func TestSessionRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewSessionRepository(db)
	history := NewSessionEventRepository(db)

	at := time.Now().UTC()
	if _, err := repo.Create(ctx, testChange("s1", "e1", 1, at)); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := repo.Delete(ctx, "t1", "s1", domain.SessionEvent{
		EventID: "e2", TenantID: "t1", SessionID: "s1", Action: domain.ActionSessionDeleted, Actor: "tester", OccurredAt: at,
	})
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}

	deleted, err = repo.Delete(ctx, "t1", "s1", domain.SessionEvent{EventID: "e3", TenantID: "t1", SessionID: "s1", OccurredAt: at})
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}

	if _, err := repo.Get(ctx, "t1", "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	events, err := history.List(ctx, domain.EventFilter{TenantID: "t1", SessionID: "s1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	want := []string{domain.ActionSessionDeleted, domain.ActionSessionCreated}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}
