package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmslot/seamless-wallet/internal/domain"
)

type referenceRepo struct{}

// NewReferenceRepository returns a pgx-backed ReferenceRepository over the
// seeded lookup tables.
func NewReferenceRepository() ReferenceRepository {
	return &referenceRepo{}
}

func (r *referenceRepo) GameTypeByCode(ctx context.Context, db DBTX, code string) (*domain.GameType, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, code, "order", status
		FROM game_types WHERE code = $1`, code)

	var gt domain.GameType
	err := row.Scan(&gt.ID, &gt.Name, &gt.Code, &gt.Order, &gt.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game type: %w", err)
	}
	return &gt, nil
}

func (r *referenceRepo) ProductByCode(ctx context.Context, db DBTX, code string) (*domain.Product, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, code, status
		FROM products WHERE code = $1`, code)

	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

func (r *referenceRepo) Rate(ctx context.Context, db DBTX, gameTypeID, productID int64) (*int, bool, error) {
	row := db.QueryRow(ctx, `
		SELECT rate FROM game_type_products
		WHERE game_type_id = $1 AND product_id = $2`, gameTypeID, productID)

	var rate *int
	err := row.Scan(&rate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scan rate: %w", err)
	}
	return rate, true, nil
}
