package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmslot/seamless-wallet/internal/domain"
)

type wagerRepo struct{}

// NewWagerRepository returns a pgx-backed WagerRepository.
func NewWagerRepository() WagerRepository {
	return &wagerRepo{}
}

func (r *wagerRepo) LockBySeamlessID(ctx context.Context, db DBTX, seamlessWagerID string) (*domain.Wager, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, seamless_wager_id, status, created_at, updated_at
		FROM wagers WHERE seamless_wager_id = $1 FOR UPDATE`, seamlessWagerID)
	return scanWager(row)
}

func (r *wagerRepo) FindBySeamlessID(ctx context.Context, db DBTX, seamlessWagerID string) (*domain.Wager, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, seamless_wager_id, status, created_at, updated_at
		FROM wagers WHERE seamless_wager_id = $1`, seamlessWagerID)
	return scanWager(row)
}

func (r *wagerRepo) Create(ctx context.Context, db DBTX, wager *domain.Wager) error {
	row := db.QueryRow(ctx, `
		INSERT INTO wagers (user_id, seamless_wager_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at, updated_at`,
		wager.UserID, wager.SeamlessWagerID, string(wager.Status))
	if err := row.Scan(&wager.ID, &wager.CreatedAt, &wager.UpdatedAt); err != nil {
		return fmt.Errorf("insert wager: %w", err)
	}
	return nil
}

func (r *wagerRepo) UpdateStatus(ctx context.Context, db DBTX, id int64, status domain.WagerStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE wagers SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update wager status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wager %d not found", id)
	}
	return nil
}

func scanWager(row pgx.Row) (*domain.Wager, error) {
	var w domain.Wager
	var status string
	err := row.Scan(&w.ID, &w.UserID, &w.SeamlessWagerID, &status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wager: %w", err)
	}
	w.Status = domain.WagerStatus(status)
	return &w, nil
}
