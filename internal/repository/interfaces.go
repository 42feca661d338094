package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mmslot/seamless-wallet/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// WalletRepository provides access to wallets.
type WalletRepository interface {
	// FindByHolder returns a wallet by holder id, or nil if none exists.
	FindByHolder(ctx context.Context, db DBTX, holderID int64) (*domain.Wallet, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns
	// the wallet, or nil if none exists. Must run inside a transaction.
	LockForUpdate(ctx context.Context, db DBTX, holderID int64) (*domain.Wallet, error)

	// Create inserts a new wallet row.
	Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error

	// ApplyDelta adds delta to the balance using server-side arithmetic and
	// returns the updated wallet.
	ApplyDelta(ctx context.Context, db DBTX, holderID int64, delta int64) (*domain.Wallet, error)

	// SetBalance overwrites the cached balance (used by balance refresh).
	SetBalance(ctx context.Context, db DBTX, holderID int64, balance int64) error
}

// WagerRepository provides access to wagers.
type WagerRepository interface {
	// LockBySeamlessID acquires a row-level lock on the wager with the given
	// provider wager id and returns it, or nil if none exists.
	LockBySeamlessID(ctx context.Context, db DBTX, seamlessWagerID string) (*domain.Wager, error)

	// Create inserts a new wager and fills in its generated id.
	Create(ctx context.Context, db DBTX, wager *domain.Wager) error

	// UpdateStatus overwrites a wager's status.
	UpdateStatus(ctx context.Context, db DBTX, id int64, status domain.WagerStatus) error

	// FindBySeamlessID returns the wager for a provider wager id, or nil.
	FindBySeamlessID(ctx context.Context, db DBTX, seamlessWagerID string) (*domain.Wager, error)
}

// TransactionRepository provides access to seamless_transactions.
type TransactionRepository interface {
	// BulkInsert appends a chunk of ledger lines in a single statement.
	// A duplicate provider transaction id fails the whole statement with
	// DUPLICATE_TRANSACTION.
	BulkInsert(ctx context.Context, db DBTX, lines []domain.TransactionLine) ([]domain.TransactionLine, error)

	// FindBySeamlessID returns the line for a provider transaction id, or nil.
	FindBySeamlessID(ctx context.Context, db DBTX, seamlessTransactionID string) (*domain.TransactionLine, error)

	// ListByEvent returns all lines settled under a webhook event.
	ListByEvent(ctx context.Context, db DBTX, seamlessEventID int64) ([]domain.TransactionLine, error)
}

// EventRepository provides access to seamless_events.
type EventRepository interface {
	// Insert records a webhook delivery and fills in its generated id.
	// A duplicate message id fails with DUPLICATE_EVENT.
	Insert(ctx context.Context, db DBTX, event *domain.Event) error

	// SetTransferStatus moves the event's transfer marker.
	SetTransferStatus(ctx context.Context, db DBTX, id int64, status domain.TransferStatus) error

	// FindByMessageID returns the event for a provider message id, or nil.
	FindByMessageID(ctx context.Context, db DBTX, messageID string) (*domain.Event, error)

	// ListPendingTransfers returns events whose wallet transfers never
	// completed, oldest first, for reconciliation.
	ListPendingTransfers(ctx context.Context, db DBTX, limit int) ([]domain.Event, error)
}

// ReferenceRepository reads the externally seeded lookup tables.
type ReferenceRepository interface {
	// GameTypeByCode returns the game type for a provider code, or nil.
	GameTypeByCode(ctx context.Context, db DBTX, code string) (*domain.GameType, error)

	// ProductByCode returns the product for a provider code, or nil.
	ProductByCode(ctx context.Context, db DBTX, code string) (*domain.Product, error)

	// Rate returns the payout rate linking a game type and product.
	// found=false means no mapping row exists; a nil rate on a found mapping
	// means the stored rate is absent and the caller falls back to 1.
	Rate(ctx context.Context, db DBTX, gameTypeID, productID int64) (rate *int, found bool, err error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// settlement writes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]OutboxRow, error)

	// MarkPublished stamps events as published.
	MarkPublished(ctx context.Context, db DBTX, seqIDs []int64) error
}

// OutboxRow is an outbox draft plus its table sequence id.
type OutboxRow struct {
	SeqID int64
	domain.OutboxDraft
}

// AuditRepository provides access to wallet_audits, the trail written by the
// wallet-service collaborator.
type AuditRepository interface {
	// Insert appends one audit entry for a completed transfer. Amount is the
	// absolute transferred value; debit/credit name the two holders.
	Insert(ctx context.Context, db DBTX, entry AuditEntry) error

	// NetByHolder returns credits minus debits across all audit entries for
	// the holder.
	NetByHolder(ctx context.Context, db DBTX, holderID int64) (int64, error)
}

// AuditEntry is one row of the wallet audit trail.
type AuditEntry struct {
	DebitHolder  int64
	CreditHolder int64
	Amount       int64 // absolute value
	Rate         int
	Kind         domain.TransferKind
	Meta         domain.TransferMeta
}
