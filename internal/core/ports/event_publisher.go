package ports

import (
	"context"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event domain.GenerationEvent) error
}
