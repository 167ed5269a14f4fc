package events

import (
	"context"
	"log"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

// LogPublisher writes generation events to the process log. It is the
// publisher used when no webhook is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event domain.GenerationEvent) error {
	log.Printf("generation publish topic=%s event_id=%s tenant=%s session=%s version=%d entity=%s table=%s fields=%d",
		topic, event.EventID, event.TenantID, event.SessionID, event.SessionVersion,
		event.ViewModel.EntityName, event.ViewModel.TableName, len(event.ViewModel.Fields))
	return nil
}
