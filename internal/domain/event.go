package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransferStatus marks how far a settled event's wallet transfers have
// progressed. An event left in pending is picked up by reconciliation.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
)

// Event is one inbound webhook delivery, the unit of idempotency and audit.
// Created once per delivery; never mutated apart from its transfer status.
type Event struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	MessageID      string          `json:"message_id"`
	ProductID      int64           `json:"product_id"`
	RequestTime    time.Time       `json:"request_time"`
	RawPayload     json.RawMessage `json:"raw_payload"`
	TransferStatus TransferStatus  `json:"transfer_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EventType enumerates all domain event types.
type EventType string

const (
	EventLinesSettled     EventType = "wallet.lines.settled"
	EventTransferPosted   EventType = "wallet.transfer.posted"
	EventBalanceRefreshed EventType = "wallet.balance.refreshed"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateWallet AggregateType = "wallet"
	AggregateWager  AggregateType = "wager"
	AggregateEvent  AggregateType = "event"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
