package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"giftcard-service/internal/broker"
	"giftcard-service/internal/models"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CardService covers ingestion and operator-facing administration of the
// pool: list/filter, edit, delete, export. It never touches reservations.
type CardService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCardService creates a new card service
func NewCardService(store *store.Store, eventPublisher *broker.EventPublisher) *CardService {
	return &CardService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// IngestCard inserts a newly discovered card into the pool. Duplicate
// codes are rejected with store.ErrDuplicateCode.
func (s *CardService) IngestCard(ctx context.Context, card *models.Card) error {
	if card.Code == "" {
		return fmt.Errorf("card code is required")
	}

	cardType, err := models.ParseCardType(card.CardType)
	if err != nil {
		return err
	}
	card.CardType = cardType
	card.Status = models.StatusUnused
	card.UsageType = models.UsageTypeUnset

	if err := s.store.InsertCard(ctx, card); err != nil {
		return err
	}

	util.CardsIngestedTotal.WithLabelValues(card.CardType).Inc()
	s.logger.Info("Card ingested",
		zap.Int64("card_id", card.ID),
		zap.String("card_type", card.CardType))

	event := &models.CardIngestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCardIngested,
			Timestamp: time.Now(),
		},
		CardID:   card.ID,
		CardType: card.CardType,
		Amount:   card.Amount,
	}
	if err := s.eventPublisher.PublishCardIngested(ctx, event); err != nil {
		s.logger.Error("Failed to publish CardIngested event", zap.Error(err))
	}

	return nil
}

// ListResult bundles a page of cards with pool totals for the same filter
type ListResult struct {
	Cards       []models.Card `json:"cards"`
	Total       int64         `json:"total"`
	TotalAmount int64         `json:"total_amount"`
}

// ListCards retrieves cards matching the filter along with the count and
// amount sum over the whole filtered set
func (s *CardService) ListCards(ctx context.Context, f models.CardFilter) (*ListResult, error) {
	cards, err := s.store.ListCards(ctx, f)
	if err != nil {
		return nil, err
	}

	countFilter := f
	countFilter.Limit = 0
	countFilter.Offset = 0

	total, err := s.store.CountCards(ctx, countFilter)
	if err != nil {
		return nil, err
	}

	totalAmount, err := s.store.SumCardAmount(ctx, countFilter)
	if err != nil {
		return nil, err
	}

	return &ListResult{Cards: cards, Total: total, TotalAmount: totalAmount}, nil
}

// GetCard retrieves a card by ID
func (s *CardService) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	card, err := s.store.GetCardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	return card, nil
}

// UpdateCard applies a manual edit to a card
func (s *CardService) UpdateCard(ctx context.Context, card *models.Card) error {
	existing, err := s.store.GetCardByID(ctx, card.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCardNotFound
	}

	if card.Status != "" {
		status, err := models.ParseStatus(card.Status)
		if err != nil {
			return err
		}
		card.Status = status
	} else {
		card.Status = existing.Status
	}

	if card.UsageType != "" {
		usageType, err := models.ParseUsageType(card.UsageType)
		if err != nil {
			return err
		}
		card.UsageType = usageType
	} else {
		card.UsageType = existing.UsageType
	}

	if card.CardType != "" {
		cardType, err := models.ParseCardType(card.CardType)
		if err != nil {
			return err
		}
		card.CardType = cardType
	} else {
		card.CardType = existing.CardType
	}

	// Blank fields in a manual edit keep their current values
	if card.Sender == "" {
		card.Sender = existing.Sender
	}
	if card.Subject == "" {
		card.Subject = existing.Subject
	}
	if card.DtStr == "" {
		card.DtStr = existing.DtStr
	}
	if card.OrderNumber == "" {
		card.OrderNumber = existing.OrderNumber
	}
	if card.ExtraNumber == "" {
		card.ExtraNumber = existing.ExtraNumber
	}
	if card.Amount == 0 {
		card.Amount = existing.Amount
	}

	return s.store.UpdateCard(ctx, card)
}

// DeleteCards removes cards by ID
func (s *CardService) DeleteCards(ctx context.Context, ids []int64) (int64, error) {
	n, err := s.store.DeleteCards(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Cards deleted", zap.Int64("count", n), zap.Int64s("ids", ids))
	return n, nil
}

// ExportCards streams the filtered card set as CSV
func (s *CardService) ExportCards(ctx context.Context, f models.CardFilter, w io.Writer) error {
	f.Limit = 0
	f.Offset = 0

	cards, err := s.store.ListCards(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "sender", "subject", "card_type", "dt_str", "code",
		"order_number", "amount", "extra_number", "usage_type", "status", "create_time"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range cards {
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.Sender,
			c.Subject,
			c.CardType,
			c.DtStr,
			c.Code,
			c.OrderNumber,
			strconv.FormatInt(c.Amount, 10),
			c.ExtraNumber,
			c.UsageType,
			c.Status,
			c.CreateTime.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
