package broker

import (
	"context"
	"fmt"

	"giftcard-service/internal/models"
)

// EventPublisher publishes card lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCardIngested publishes a CardIngested event
func (ep *EventPublisher) PublishCardIngested(ctx context.Context, event *models.CardIngestedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("card-%d", event.CardID), event)
}

// PublishCardAllocated publishes a CardAllocated event
func (ep *EventPublisher) PublishCardAllocated(ctx context.Context, event *models.CardAllocatedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("card-%d", event.CardID), event)
}

// PublishCardRedeemed publishes a CardRedeemed event
func (ep *EventPublisher) PublishCardRedeemed(ctx context.Context, event *models.CardRedeemedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("card-%d", event.CardID), event)
}

// PublishCardsReclaimed publishes a CardsReclaimed event
func (ep *EventPublisher) PublishCardsReclaimed(ctx context.Context, event *models.CardsReclaimedEvent) error {
	return ep.producer.PublishEvent(ctx, "reaper", event)
}
