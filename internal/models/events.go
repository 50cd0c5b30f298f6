package models

import "time"

// Event types
const (
	EventTypeCardIngested   = "CARD_INGESTED"
	EventTypeCardAllocated  = "CARD_ALLOCATED"
	EventTypeCardRedeemed   = "CARD_REDEEMED"
	EventTypeCardsReclaimed = "CARDS_RECLAIMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CardIngestedEvent published when a new card enters the pool
type CardIngestedEvent struct {
	BaseEvent
	CardID   int64  `json:"card_id"`
	CardType string `json:"card_type"`
	Amount   int64  `json:"amount"`
}

// CardAllocatedEvent published when a card is handed out and reserved
type CardAllocatedEvent struct {
	BaseEvent
	CardID   int64  `json:"card_id"`
	CardType string `json:"card_type"`
	Amount   int64  `json:"amount"`
}

// CardRedeemedEvent published when a reserved card reaches a terminal state
type CardRedeemedEvent struct {
	BaseEvent
	CardID    int64  `json:"card_id"`
	CardType  string `json:"card_type"`
	Status    string `json:"status"`
	UsageType string `json:"usage_type"`
}

// CardsReclaimedEvent published when a reaper sweep returns cards to the pool
type CardsReclaimedEvent struct {
	BaseEvent
	CardIDs     []int64 `json:"card_ids"`
	KeysCleared int     `json:"keys_cleared"`
}

// IngestCardMessage is the payload the mail-ingestion pipeline publishes
// on the ingest topic. Field names mirror the HTTP ingestion request.
type IngestCardMessage struct {
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	CardType    string `json:"gift_type"`
	DtStr       string `json:"dt_str"`
	Code        string `json:"code"`
	OrderNumber string `json:"order_number"`
	Amount      int64  `json:"amount"`
	ExtraNumber string `json:"extra_number"`
}
