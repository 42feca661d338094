package ledger

import (
	"context"
	"fmt"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/repository"
)

// Engine moves funds between two wallets under row-level locks.
//
// The transfer amount is signed and is applied as: credit toHolder by amount,
// debit fromHolder by amount. Settlement callers pass the house wallet as
// fromHolder and the player wallet as toHolder, so a positive amount is a
// payout to the player and a negative amount is a stake flowing to the house.
type Engine struct {
	wallets   repository.WalletRepository
	outbox    repository.OutboxRepository
	walletSvc WalletService
}

// NewEngine creates a transfer engine with the given repositories and the
// wallet-service audit collaborator.
func NewEngine(wallets repository.WalletRepository, outbox repository.OutboxRepository, walletSvc WalletService) *Engine {
	return &Engine{wallets: wallets, outbox: outbox, walletSvc: walletSvc}
}

// Transfer runs inside the caller's transaction (the caller wraps it in the
// deadlock-retry executor). Both wallet rows are locked in ascending holder-id
// order so two opposing transfers between the same pair can never deadlock on
// lock order alone. Funds are conserved: the pair's balance sum is identical
// before and after.
func (e *Engine) Transfer(ctx context.Context, db repository.DBTX, fromHolder, toHolder int64, kind domain.TransferKind, amount int64, rate int, meta domain.TransferMeta) error {
	if fromHolder == toHolder {
		return fmt.Errorf("transfer to self (holder %d)", fromHolder)
	}

	// Deterministic lock order across all concurrent transfers.
	first, second := fromHolder, toHolder
	if second < first {
		first, second = second, first
	}
	for _, holderID := range []int64{first, second} {
		wallet, err := e.wallets.LockForUpdate(ctx, db, holderID)
		if err != nil {
			return fmt.Errorf("lock wallet %d: %w", holderID, err)
		}
		if wallet == nil {
			return domain.ErrWalletNotFound(holderID)
		}
	}

	if _, err := e.wallets.ApplyDelta(ctx, db, fromHolder, -amount); err != nil {
		return fmt.Errorf("debit wallet %d: %w", fromHolder, err)
	}
	if _, err := e.wallets.ApplyDelta(ctx, db, toHolder, amount); err != nil {
		return fmt.Errorf("credit wallet %d: %w", toHolder, err)
	}

	// The audit collaborator takes the absolute amount; the sign only picks
	// which side is debited.
	abs := amount
	debit, credit := fromHolder, toHolder
	if amount < 0 {
		abs = -amount
		debit, credit = toHolder, fromHolder
	}
	if err := e.walletSvc.Transfer(ctx, db, debit, credit, abs, rate, kind, meta); err != nil {
		return fmt.Errorf("audit transfer: %w", err)
	}

	if err := e.outbox.Insert(ctx, db, domain.NewTransferPostedEvent(fromHolder, toHolder, amount, kind, meta)); err != nil {
		return fmt.Errorf("outbox transfer event: %w", err)
	}
	return nil
}
