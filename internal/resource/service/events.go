// Package service implements the resource manager core: catalog, credential,
// booking, cost and quota operations over a pluggable document store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/logger"
	"github.com/missionctl/missionctl/internal/events/bus"
	"github.com/missionctl/missionctl/internal/resource/store"
)

// publishEvent publishes an entity change event on
// "resource.events.<kind>.<action>". Publish failures are logged, never
// surfaced: the mutation already succeeded and the dashboard will catch up on
// its next full read.
func publishEvent(ctx context.Context, eventBus bus.EventBus, log *logger.Logger, kind store.Kind, action string, payload interface{}) {
	if eventBus == nil {
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", bus.SubjectPrefix, kind, action)
	event := &bus.Event{
		ID:        uuid.New().String(),
		Type:      fmt.Sprintf("%s.%s", kind, action),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := eventBus.Publish(ctx, subject, event); err != nil {
		log.Warn("Failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
