package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type apiKeyModel struct {
	TokenHash  string     `gorm:"column:token_hash;primaryKey"`
	TenantID   string     `gorm:"column:tenant_id;not null"`
	Name       string     `gorm:"column:name;not null"`
	Active     bool       `gorm:"column:active;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
}

func (apiKeyModel) TableName() string {
	return "api_keys"
}

func (m apiKeyModel) toDomain() domain.APIKey {
	return domain.APIKey{
		TokenHash:  m.TokenHash,
		TenantID:   m.TenantID,
		Name:       m.Name,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
		LastUsedAt: m.LastUsedAt,
		RevokedAt:  m.RevokedAt,
	}
}

// APIKeyRepository stores tenant API keys by token hash.
type APIKeyRepository struct {
	db *gormsqlite.DB
}

func NewAPIKeyRepository(db *gormsqlite.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) FindByTokenHash(ctx context.Context, tokenHash string) (domain.APIKey, error) {
	var model apiKeyModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("token_hash = ?", tokenHash).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.APIKey{}, domain.ErrNotFound
		}
		return domain.APIKey{}, fmt.Errorf("find api key: %w", err)
	}
	return model.toDomain(), nil
}

func (r *APIKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.APIKey, error) {
	var models []apiKeyModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ?", tenantID).Order("created_at ASC, name ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	out := make([]domain.APIKey, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// Upsert registers a key. Registering an existing hash again re-activates it
// and moves it to the given tenant and name.
func (r *APIKeyRepository) Upsert(ctx context.Context, key domain.APIKey) error {
	model := apiKeyModel{
		TokenHash: key.TokenHash,
		TenantID:  key.TenantID,
		Name:      key.Name,
		Active:    key.Active,
		CreatedAt: key.CreatedAt,
		RevokedAt: key.RevokedAt,
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "name", "active", "revoked_at"}),
		}).Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("upsert api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	return r.update(ctx, "revoke api key", tokenHash, map[string]any{
		"active":     false,
		"revoked_at": at.UTC(),
	})
}

func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, tokenHash string, at time.Time) error {
	return r.update(ctx, "touch api key", tokenHash, map[string]any{
		"last_used_at": at.UTC(),
	})
}

func (r *APIKeyRepository) update(ctx context.Context, op, tokenHash string, values map[string]any) error {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&apiKeyModel{}).Where("token_hash = ?", tokenHash).Updates(values)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
