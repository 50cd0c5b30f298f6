package service

import (
	"context"
	"fmt"
	"time"

	"giftcard-service/internal/broker"
	"giftcard-service/internal/models"
	"giftcard-service/internal/registry"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Allocator hands out unused cards. Every successful call reserves exactly
// one card: no two concurrent calls can ever return the same card id.
type Allocator struct {
	store          *store.Store
	registry       *registry.Client
	eventPublisher *broker.EventPublisher
	reservationTTL time.Duration
	logger         *zap.Logger
}

// NewAllocator creates a new allocator
func NewAllocator(
	store *store.Store,
	registry *registry.Client,
	eventPublisher *broker.EventPublisher,
	reservationTTL time.Duration,
) *Allocator {
	return &Allocator{
		store:          store,
		registry:       registry,
		eventPublisher: eventPublisher,
		reservationTTL: reservationTTL,
		logger:         util.GetLogger(),
	}
}

// Allocate picks the oldest unused card of the given type, reserves it and
// returns it. Returns ErrNoCardAvailable when the pool is empty for that
// type and ErrRegistryUnavailable when the reservation cannot be tracked.
func (a *Allocator) Allocate(ctx context.Context, cardType string) (*models.Card, error) {
	ctx, span := util.StartSpan(ctx, "Allocator.Allocate")
	defer span.End()

	start := time.Now()
	defer func() {
		util.AllocateLatency.Observe(time.Since(start).Seconds())
	}()

	tx, err := a.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin allocation transaction: %w", err)
	}
	defer tx.Rollback()

	card, err := a.store.SelectOldestUnusedForUpdate(ctx, tx, cardType)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate card: %w", err)
	}
	if card == nil {
		util.AllocationsFailedTotal.WithLabelValues("pool_empty").Inc()
		return nil, ErrNoCardAvailable
	}

	// Defensive check before committing: if some other path already wrote
	// a reservation entry for this card, do not hand it out twice. A
	// registry read failure fails the allocation closed.
	held, err := a.registry.Exists(ctx, card.ID)
	if err != nil {
		util.AllocationsFailedTotal.WithLabelValues("registry_unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if held {
		a.logger.Warn("Unused card already has a reservation entry, refusing to allocate",
			zap.Int64("card_id", card.ID),
			zap.String("card_type", cardType))
		util.AllocationsFailedTotal.WithLabelValues("registry_anomaly").Inc()
		return nil, ErrNoCardAvailable
	}

	if err := a.store.MarkReservedTx(ctx, tx, card.ID); err != nil {
		return nil, fmt.Errorf("failed to reserve card %d: %w", card.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	if err := a.registry.Put(ctx, card.ID, time.Now(), a.reservationTTL); err != nil {
		// The status is already committed; put the card back so it is not
		// stuck RESERVED without a TTL guard. If the compensation fails
		// too, the reaper's stale-reserved pass reclaims it after the TTL.
		a.logger.Error("Registry write failed after reservation, compensating",
			zap.Int64("card_id", card.ID),
			zap.Error(err))
		if resetErr := a.store.ResetToUnused(ctx, card.ID); resetErr != nil {
			a.logger.Error("Failed to compensate reservation",
				zap.Int64("card_id", card.ID),
				zap.Error(resetErr))
		}
		util.AllocationsFailedTotal.WithLabelValues("registry_unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	card.Status = models.StatusReserved

	util.CardsAllocatedTotal.WithLabelValues(card.CardType).Inc()
	a.logger.Info("Card allocated",
		zap.Int64("card_id", card.ID),
		zap.String("card_type", card.CardType))

	event := &models.CardAllocatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCardAllocated,
			Timestamp: time.Now(),
		},
		CardID:   card.ID,
		CardType: card.CardType,
		Amount:   card.Amount,
	}
	if err := a.eventPublisher.PublishCardAllocated(ctx, event); err != nil {
		a.logger.Error("Failed to publish CardAllocated event", zap.Error(err))
	}

	return card, nil
}
