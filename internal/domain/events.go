package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewLinesSettledEvent announces that all lines of a webhook event were
// persisted. Emitted in the same transaction as the settlement writes.
func NewLinesSettledEvent(event *Event, lineCount int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"event_id":   event.ID,
		"message_id": event.MessageID,
		"user_id":    event.UserID,
		"line_count": lineCount,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateEvent,
		AggregateID:   event.MessageID,
		EventType:     EventLinesSettled,
		PartitionKey:  strconv.FormatInt(event.UserID, 10),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewBalanceRefreshedEvent announces that a holder's cached balance was
// recomputed from the audit trail. Emitted when settlement clears its
// pending marker.
func NewBalanceRefreshedEvent(holderID, balance int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"holder_id": holderID,
		"balance":   balance,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   strconv.FormatInt(holderID, 10),
		EventType:     EventBalanceRefreshed,
		PartitionKey:  strconv.FormatInt(holderID, 10),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTransferPostedEvent announces a completed wallet transfer.
func NewTransferPostedEvent(fromHolder, toHolder, amount int64, kind TransferKind, meta TransferMeta) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"from_holder": fromHolder,
		"to_holder":   toHolder,
		"amount":      amount,
		"kind":        string(kind),
		"meta":        meta,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   strconv.FormatInt(toHolder, 10),
		EventType:     EventTransferPosted,
		PartitionKey:  strconv.FormatInt(toHolder, 10),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
