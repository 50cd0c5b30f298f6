package worker

import (
	"context"
	"encoding/json"
	"errors"

	"giftcard-service/internal/broker"
	"giftcard-service/internal/models"
	"giftcard-service/internal/service"
	"giftcard-service/internal/store"
	"giftcard-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// IngestWorker consumes card payloads published by the mail-ingestion
// pipeline and inserts them into the pool. Duplicate codes are skipped,
// which makes redelivery of the same message harmless.
type IngestWorker struct {
	consumer    *broker.Consumer
	cardService *service.CardService
	logger      *zap.Logger
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(consumer *broker.Consumer, cardService *service.CardService) *IngestWorker {
	return &IngestWorker{
		consumer:    consumer,
		cardService: cardService,
		logger:      util.GetLogger(),
	}
}

// Start starts consuming ingest messages
func (w *IngestWorker) Start(ctx context.Context) error {
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *IngestWorker) Stop() error {
	return w.consumer.Close()
}

func (w *IngestWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var payload models.IngestCardMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		w.logger.Error("Failed to unmarshal ingest message", zap.Error(err))
		return err
	}

	card := &models.Card{
		Sender:      payload.Sender,
		Subject:     payload.Subject,
		CardType:    payload.CardType,
		DtStr:       payload.DtStr,
		Code:        payload.Code,
		OrderNumber: payload.OrderNumber,
		Amount:      payload.Amount,
		ExtraNumber: payload.ExtraNumber,
	}

	err := w.cardService.IngestCard(ctx, card)
	if errors.Is(err, store.ErrDuplicateCode) {
		w.logger.Info("Skipping duplicate card code from ingest topic",
			zap.String("order_number", payload.OrderNumber))
		return nil
	}
	return err
}
