package domain

import "time"

// WagerStatus tracks a wager across its lifecycle.
type WagerStatus string

const (
	WagerOpen   WagerStatus = "open"
	WagerWin    WagerStatus = "win"
	WagerLose   WagerStatus = "lose"
	WagerRefund WagerStatus = "refund"
)

// Wager is one logical bet, unique per provider wager id.
type Wager struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	SeamlessWagerID string      `json:"seamless_wager_id"`
	Status          WagerStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// StatusForAmount derives a wager's status from the transaction amount sign:
// a positive amount is a payout to the player (win), everything else is a lose.
func StatusForAmount(transactionAmount int64) WagerStatus {
	if transactionAmount > 0 {
		return WagerWin
	}
	return WagerLose
}
