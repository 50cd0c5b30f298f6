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

// RedemptionOutcome is the terminal result a caller reports for a
// reserved card.
type RedemptionOutcome struct {
	// Status must be USED or ERROR
	Status string
	// UsageType records how the card was consumed
	UsageType string
}

// Validate checks the outcome targets a terminal status
func (o RedemptionOutcome) Validate() error {
	if !models.IsTerminalStatus(o.Status) {
		return fmt.Errorf("outcome status must be %s or %s, got %q",
			models.StatusUsed, models.StatusError, o.Status)
	}
	if o.UsageType == "" {
		return fmt.Errorf("outcome usage type is required")
	}
	return nil
}

// RedemptionReporter accepts final outcomes for reserved cards
type RedemptionReporter struct {
	store          *store.Store
	registry       *registry.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewRedemptionReporter creates a new redemption reporter
func NewRedemptionReporter(
	store *store.Store,
	registry *registry.Client,
	eventPublisher *broker.EventPublisher,
) *RedemptionReporter {
	return &RedemptionReporter{
		store:          store,
		registry:       registry,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// Confirm transitions a reserved card to the reported terminal state.
// Returns ErrCardNotFound for unknown codes and ErrCardNotReserved when
// the card is not currently reserved, so a caller can tell "too late"
// from "never happened".
func (r *RedemptionReporter) Confirm(ctx context.Context, code string, outcome RedemptionOutcome) (*models.Card, error) {
	ctx, span := util.StartSpan(ctx, "RedemptionReporter.Confirm")
	defer span.End()

	if err := outcome.Validate(); err != nil {
		return nil, err
	}

	card, err := r.store.GetCardByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up card: %w", err)
	}
	if card == nil {
		util.ConfirmationsRejectedTotal.WithLabelValues("not_found").Inc()
		return nil, ErrCardNotFound
	}
	if card.Status != models.StatusReserved {
		util.ConfirmationsRejectedTotal.WithLabelValues("not_reserved").Inc()
		return nil, fmt.Errorf("%w: status is %s", ErrCardNotReserved, card.Status)
	}

	// Conditional on RESERVED so a racing reaper sweep and this
	// confirmation settle on exactly one final state.
	ok, err := r.store.FinalizeCard(ctx, code, outcome.Status, outcome.UsageType)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize card: %w", err)
	}
	if !ok {
		util.ConfirmationsRejectedTotal.WithLabelValues("not_reserved").Inc()
		return nil, fmt.Errorf("%w: reservation no longer held", ErrCardNotReserved)
	}

	card.Status = outcome.Status
	card.UsageType = outcome.UsageType

	// Best effort: a leaked key expires on its own, and the reaper only
	// resets cards that are still RESERVED.
	if err := r.registry.Delete(ctx, card.ID); err != nil {
		r.logger.Warn("Failed to delete reservation entry after confirmation",
			zap.Int64("card_id", card.ID),
			zap.Error(err))
	}

	util.CardsRedeemedTotal.WithLabelValues(outcome.Status).Inc()
	r.logger.Info("Card redemption confirmed",
		zap.Int64("card_id", card.ID),
		zap.String("status", outcome.Status),
		zap.String("usage_type", outcome.UsageType))

	event := &models.CardRedeemedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCardRedeemed,
			Timestamp: time.Now(),
		},
		CardID:    card.ID,
		CardType:  card.CardType,
		Status:    outcome.Status,
		UsageType: outcome.UsageType,
	}
	if err := r.eventPublisher.PublishCardRedeemed(ctx, event); err != nil {
		r.logger.Error("Failed to publish CardRedeemed event", zap.Error(err))
	}

	return card, nil
}
