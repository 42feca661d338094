package domain

import "time"

// TransactionLine is one immutable, append-only ledger entry describing money
// movement for a wager. Never updated or deleted after insert.
type TransactionLine struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"user_id"`
	WagerID               int64     `json:"wager_id"`
	GameTypeID            int64     `json:"game_type_id"`
	ProductID             int64     `json:"product_id"`
	SeamlessTransactionID string    `json:"seamless_transaction_id"`
	Rate                  int       `json:"rate"`
	TransactionAmount     int64     `json:"transaction_amount"`
	BetAmount             int64     `json:"bet_amount"`
	ValidBetAmount        int64     `json:"valid_bet_amount"`
	Status                int       `json:"status"`
	SeamlessEventID       int64     `json:"seamless_event_id"`
	CreatedAt             time.Time `json:"created_at"`
}

// LineItem is one inbound betting transaction as reported by the provider,
// already parsed by the webhook layer. Amounts are in cents; TransactionAmount
// is signed (positive = payout to player, negative = stake from player).
type LineItem struct {
	Status            int    `json:"Status"`
	ProductCode       string `json:"ProductID"`
	GameTypeCode      string `json:"GameType"`
	TransactionID     string `json:"TransactionID"`
	WagerID           string `json:"WagerID"`
	BetAmount         int64  `json:"BetAmount"`
	TransactionAmount int64  `json:"TransactionAmount"`
	PayoutAmount      int64  `json:"PayoutAmount"`
	ValidBetAmount    int64  `json:"ValidBetAmount"`
}

// Validate checks the fields settlement cannot proceed without.
func (l LineItem) Validate() error {
	if l.TransactionID == "" {
		return ErrValidation("missing TransactionID")
	}
	if l.WagerID == "" {
		return ErrValidation("missing WagerID")
	}
	if l.GameTypeCode == "" {
		return ErrValidation("missing GameType")
	}
	if l.ProductCode == "" {
		return ErrValidation("missing ProductID")
	}
	return nil
}
