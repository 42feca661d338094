package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mmslot/seamless-wallet/internal/infra"
)

type auditRepo struct{}

// NewAuditRepository returns a pgx-backed AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepo{}
}

func (r *auditRepo) Insert(ctx context.Context, db DBTX, entry AuditEntry) error {
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO wallet_audits
		  (debit_holder, credit_holder, amount, rate, kind, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		entry.DebitHolder, entry.CreditHolder,
		infra.Int64ToNumeric(entry.Amount),
		entry.Rate, string(entry.Kind), meta)
	if err != nil {
		return fmt.Errorf("insert wallet audit: %w", err)
	}
	return nil
}

// NetByHolder recomputes a holder's position from the audit trail: total
// credited minus total debited.
func (r *auditRepo) NetByHolder(ctx context.Context, db DBTX, holderID int64) (int64, error) {
	row := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN credit_holder = $1 THEN amount ELSE -amount END), 0)
		FROM wallet_audits
		WHERE credit_holder = $1 OR debit_holder = $1`, holderID)

	var net pgtype.Numeric
	if err := row.Scan(&net); err != nil {
		return 0, fmt.Errorf("scan audit net: %w", err)
	}
	return infra.NumericToInt64(net)
}
