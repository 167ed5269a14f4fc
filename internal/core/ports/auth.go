package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

type APIKeyRepository interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, error)
	Upsert(ctx context.Context, key domain.APIKey) error
	// Revoke deactivates the key. Unknown hashes return domain.ErrNotFound.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
	TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error
	ListByTenant(ctx context.Context, tenantID string) ([]domain.APIKey, error)
}
