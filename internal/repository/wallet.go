package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/infra"
)

type walletRepo struct{}

// NewWalletRepository returns a pgx-backed WalletRepository.
func NewWalletRepository() WalletRepository {
	return &walletRepo{}
}

func (r *walletRepo) FindByHolder(ctx context.Context, db DBTX, holderID int64) (*domain.Wallet, error) {
	row := db.QueryRow(ctx, `
		SELECT holder_id, balance, opening_balance, currency, created_at, updated_at
		FROM wallets WHERE holder_id = $1`, holderID)
	return scanWallet(row)
}

func (r *walletRepo) LockForUpdate(ctx context.Context, db DBTX, holderID int64) (*domain.Wallet, error) {
	row := db.QueryRow(ctx, `
		SELECT holder_id, balance, opening_balance, currency, created_at, updated_at
		FROM wallets WHERE holder_id = $1 FOR UPDATE`, holderID)
	return scanWallet(row)
}

func (r *walletRepo) Create(ctx context.Context, db DBTX, wallet *domain.Wallet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wallets (holder_id, balance, opening_balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		wallet.HolderID,
		infra.Int64ToNumeric(wallet.Balance),
		infra.Int64ToNumeric(wallet.OpeningBalance),
		wallet.Currency,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// ApplyDelta uses server-side arithmetic so the balance math cannot race with
// other writers between read and write.
func (r *walletRepo) ApplyDelta(ctx context.Context, db DBTX, holderID int64, delta int64) (*domain.Wallet, error) {
	row := db.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE holder_id = $2
		RETURNING holder_id, balance, opening_balance, currency, created_at, updated_at`,
		infra.Int64ToNumeric(delta), holderID)
	return scanWallet(row)
}

func (r *walletRepo) SetBalance(ctx context.Context, db DBTX, holderID int64, balance int64) error {
	tag, err := db.Exec(ctx, `
		UPDATE wallets SET balance = $1, updated_at = now()
		WHERE holder_id = $2`,
		infra.Int64ToNumeric(balance), holderID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWalletNotFound(holderID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var balNum, openNum pgtype.Numeric
	err := row.Scan(&w.HolderID, &balNum, &openNum, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	w.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	w.OpeningBalance, err = infra.NumericToInt64(openNum)
	if err != nil {
		return nil, fmt.Errorf("convert opening_balance: %w", err)
	}
	return &w, nil
}
