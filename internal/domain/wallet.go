package domain

import "time"

// Wallet holds one balance per holder (a player or the house account).
// Balances are cents. Mutated only through the ledger engine under a row lock.
type Wallet struct {
	HolderID int64 `json:"holder_id"`
	Balance  int64 `json:"balance"`
	// OpeningBalance is the balance the wallet was seeded with, before any
	// audited transfer. Balance can always be recomputed as OpeningBalance
	// plus the net of the wallet's audit entries.
	OpeningBalance int64     `json:"opening_balance"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TransferKind names the business reason for a wallet transfer, carried on
// the audit trail.
type TransferKind string

const (
	KindStake  TransferKind = "stake"
	KindPayout TransferKind = "payout"
	KindRefund TransferKind = "refund"
)

// TransferMeta links a wallet transfer back to the settlement facts that
// caused it.
type TransferMeta struct {
	WagerID       string `json:"wager_id"`
	EventID       string `json:"event_id"`
	TransactionID string `json:"seamless_transaction_id"`
}
