package ledger

import (
	"context"
	"fmt"

	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/repository"
)

// WalletService is the audit-trail collaborator consumed by the transfer
// engine. It records each transfer with the absolute amount and can
// recompute a holder's cached balance from the trail.
type WalletService interface {
	// Transfer appends one audit entry: amount (absolute) moved from
	// debitHolder to creditHolder, with the business kind and the settlement
	// references that caused it.
	Transfer(ctx context.Context, db repository.DBTX, debitHolder, creditHolder int64, amount int64, rate int, kind domain.TransferKind, meta domain.TransferMeta) error

	// RefreshBalance recomputes the holder's cached balance as the opening
	// balance plus the net of all audit entries, writes it back, and returns
	// it.
	RefreshBalance(ctx context.Context, db repository.DBTX, holderID int64) (int64, error)
}

// PgWalletService is the repository-backed WalletService.
type PgWalletService struct {
	wallets repository.WalletRepository
	audits  repository.AuditRepository
}

// NewPgWalletService creates a WalletService over the given repositories.
func NewPgWalletService(wallets repository.WalletRepository, audits repository.AuditRepository) *PgWalletService {
	return &PgWalletService{wallets: wallets, audits: audits}
}

func (s *PgWalletService) Transfer(ctx context.Context, db repository.DBTX, debitHolder, creditHolder int64, amount int64, rate int, kind domain.TransferKind, meta domain.TransferMeta) error {
	if amount < 0 {
		return fmt.Errorf("audit amount must be absolute, got %d", amount)
	}
	return s.audits.Insert(ctx, db, repository.AuditEntry{
		DebitHolder:  debitHolder,
		CreditHolder: creditHolder,
		Amount:       amount,
		Rate:         rate,
		Kind:         kind,
		Meta:         meta,
	})
}

func (s *PgWalletService) RefreshBalance(ctx context.Context, db repository.DBTX, holderID int64) (int64, error) {
	wallet, err := s.wallets.FindByHolder(ctx, db, holderID)
	if err != nil {
		return 0, err
	}
	if wallet == nil {
		return 0, domain.ErrWalletNotFound(holderID)
	}

	net, err := s.audits.NetByHolder(ctx, db, holderID)
	if err != nil {
		return 0, err
	}

	balance := wallet.OpeningBalance + net
	if err := s.wallets.SetBalance(ctx, db, holderID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}
