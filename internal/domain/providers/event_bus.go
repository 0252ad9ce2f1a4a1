package providers

import (
	"context"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to
// domain events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.CareEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.CareEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// Event channels
const (
	// EventChannelCarePlans carries care-plan generation events
	EventChannelCarePlans = "careplan:updates"

	// EventChannelSurgeries carries surgery plan sync events
	EventChannelSurgeries = "surgery:updates"
)
