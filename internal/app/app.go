package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/adapters/events"
	"github.com/atvirokodosprendimai/entitygen/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/entitygen/internal/adapters/jsonschema"
	sqliteadapter "github.com/atvirokodosprendimai/entitygen/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/entitygen/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
	"github.com/atvirokodosprendimai/entitygen/internal/core/failure"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
	"github.com/atvirokodosprendimai/entitygen/internal/core/usecase"
	"github.com/atvirokodosprendimai/entitygen/migrations"
)

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewSchemaValidator builds the entity schema validator shared by the
// server and the CLI.
func NewSchemaValidator(cfg Config) (*usecase.SchemaValidator, error) {
	structural, err := jsonschema.NewEntityValidator()
	if err != nil {
		return nil, fmt.Errorf("entity schema: %w", err)
	}

	chain := errmap.NewChain()
	if cfg.EnumMessages {
		chain = errmap.WithCustom(errmap.EnumMapper{})
	}

	failures := failure.NewConfig()
	failures.Update(failure.ConfigUpdate{
		AllowRaiseOnFailure: &cfg.RaiseOnFailure,
		OnRaisedError: func(_ context.Context, subject any, err error) error {
			log.Printf("structural validation failed subject=%T error=%v", subject, err)
			return nil
		},
	})

	return usecase.NewSchemaValidator(structural,
		usecase.WithChain(chain),
		usecase.WithRegistry(errmap.DefaultRegistry(chain)),
		usecase.WithFailureConfig(failures),
	), nil
}

func newPublisher(cfg Config) ports.EventPublisher {
	if cfg.WebhookURL == "" {
		return events.NewLogPublisher()
	}
	return events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout)
}

// openDB opens the database at cfg.DBPath and applies pending migrations.
func openDB(ctx context.Context, cfg Config) (*gormsqlite.DB, error) {
	db, err := gormsqlite.Open(cfg.DBPath,
		gormsqlite.WithQueryLog(cfg.DBLogQueries),
		gormsqlite.WithSlowThreshold(cfg.DBSlowQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenAuthService opens the database for API key management. The returned
// closer releases the database.
func OpenAuthService(ctx context.Context, cfg Config) (*usecase.AuthService, io.Closer, error) {
	if cfg.DBPath == "" {
		return nil, nil, fmt.Errorf("database path must not be empty")
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewAuthService(sqliteadapter.NewAPIKeyRepository(db)), db, nil
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	validator, err := NewSchemaValidator(cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	sessionRepo := sqliteadapter.NewSessionRepository(db)
	eventRepo := sqliteadapter.NewSessionEventRepository(db)
	apiKeyRepo := sqliteadapter.NewAPIKeyRepository(db)
	outboxRepo := sqliteadapter.NewOutboxRepository(db)

	authService := usecase.NewAuthService(apiKeyRepo)
	sessionService := usecase.NewSessionService(sessionRepo, eventRepo, validator)
	dispatcher := usecase.NewOutboxDispatcher(outboxRepo, newPublisher(cfg), cfg.OutboxInterval, cfg.OutboxBatchSize)

	if cfg.BootstrapAPIKey != "" {
		tenant := cfg.BootstrapTenant
		if tenant == "" {
			tenant = "default"
		}
		name := cfg.BootstrapKeyName
		if name == "" {
			name = "bootstrap"
		}

		bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := authService.Register(bootstrapCtx, cfg.BootstrapAPIKey, tenant, name)
		bootstrapCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	dispatcher.Start(context.Background())

	handler := httpapi.NewHandler(validator, sessionService, authService)
	handler.SetHealthCheck(db.Ping)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcher, db}}, nil
}
