package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mmslot/seamless-wallet/internal/domain"
	"github.com/mmslot/seamless-wallet/internal/infra"
)

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

const transactionColumns = `id, user_id, wager_id, game_type_id, product_id,
	seamless_transaction_id, rate, transaction_amount, bet_amount,
	valid_bet_amount, status, seamless_event_id, created_at`

// BulkInsert appends one chunk of lines with a single multi-row INSERT.
// Chunking is the caller's job; keeping statements small caps how long the
// insert holds its locks.
func (r *transactionRepo) BulkInsert(ctx context.Context, db DBTX, lines []domain.TransactionLine) ([]domain.TransactionLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	const cols = 11
	values := make([]string, 0, len(lines))
	args := make([]interface{}, 0, len(lines)*cols)
	for i, l := range lines {
		base := i * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			l.UserID, l.WagerID, l.GameTypeID, l.ProductID,
			l.SeamlessTransactionID, l.Rate,
			infra.Int64ToNumeric(l.TransactionAmount),
			infra.Int64ToNumeric(l.BetAmount),
			infra.Int64ToNumeric(l.ValidBetAmount),
			l.Status, l.SeamlessEventID,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO seamless_transactions
		  (user_id, wager_id, game_type_id, product_id, seamless_transaction_id,
		   rate, transaction_amount, bet_amount, valid_bet_amount, status,
		   seamless_event_id)
		VALUES %s
		RETURNING %s`, strings.Join(values, ", "), transactionColumns)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		if uniqueViolation(err, "") {
			return nil, domain.ErrDuplicateTransaction(duplicateKeyValue(err))
		}
		return nil, fmt.Errorf("bulk insert transactions: %w", err)
	}
	defer rows.Close()

	inserted, err := collectTransactionLines(rows)
	if err != nil {
		if uniqueViolation(err, "") {
			return nil, domain.ErrDuplicateTransaction(duplicateKeyValue(err))
		}
		return nil, err
	}
	return inserted, nil
}

func (r *transactionRepo) FindBySeamlessID(ctx context.Context, db DBTX, seamlessTransactionID string) (*domain.TransactionLine, error) {
	row := db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM seamless_transactions
		WHERE seamless_transaction_id = $1`, transactionColumns), seamlessTransactionID)
	return scanTransactionLine(row)
}

func (r *transactionRepo) ListByEvent(ctx context.Context, db DBTX, seamlessEventID int64) ([]domain.TransactionLine, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM seamless_transactions
		WHERE seamless_event_id = $1
		ORDER BY id ASC`, transactionColumns), seamlessEventID)
	if err != nil {
		return nil, fmt.Errorf("query event transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactionLines(rows)
}

func scanTransactionLine(row pgx.Row) (*domain.TransactionLine, error) {
	var l domain.TransactionLine
	var amountNum, betNum, validNum pgtype.Numeric
	err := row.Scan(
		&l.ID, &l.UserID, &l.WagerID, &l.GameTypeID, &l.ProductID,
		&l.SeamlessTransactionID, &l.Rate, &amountNum, &betNum, &validNum,
		&l.Status, &l.SeamlessEventID, &l.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if err := convertLineAmounts(&l, amountNum, betNum, validNum); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectTransactionLines(rows pgx.Rows) ([]domain.TransactionLine, error) {
	var lines []domain.TransactionLine
	for rows.Next() {
		var l domain.TransactionLine
		var amountNum, betNum, validNum pgtype.Numeric
		err := rows.Scan(
			&l.ID, &l.UserID, &l.WagerID, &l.GameTypeID, &l.ProductID,
			&l.SeamlessTransactionID, &l.Rate, &amountNum, &betNum, &validNum,
			&l.Status, &l.SeamlessEventID, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if err := convertLineAmounts(&l, amountNum, betNum, validNum); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func convertLineAmounts(l *domain.TransactionLine, amountNum, betNum, validNum pgtype.Numeric) error {
	var err error
	l.TransactionAmount, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return fmt.Errorf("convert transaction_amount: %w", err)
	}
	l.BetAmount, err = infra.NumericToInt64(betNum)
	if err != nil {
		return fmt.Errorf("convert bet_amount: %w", err)
	}
	l.ValidBetAmount, err = infra.NumericToInt64(validNum)
	if err != nil {
		return fmt.Errorf("convert valid_bet_amount: %w", err)
	}
	return nil
}
