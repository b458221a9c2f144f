package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// pgErrUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgErrUniqueViolation = "23505"

// RecordRepository implements usecase.RecordStore. The unique index on
// idempotency_key is the global idempotency constraint: a true race on the
// same key is resolved by the database, and the loser is reported as a
// duplicate transfer.
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Save writes a transfer record outside any transaction.
func (r *RecordRepository) Save(ctx context.Context, record *domain.TransferRecord) error {
	return insertRecord(ctx, r.pool, record)
}

// SaveTx writes a transfer record inside tx.
func (r *RecordRepository) SaveTx(ctx context.Context, tx usecase.Transaction, record *domain.TransferRecord) error {
	return insertRecord(ctx, tx.(*Tx).PgxTx(), record)
}

func insertRecord(ctx context.Context, q execer, record *domain.TransferRecord) error {
	query := `
		INSERT INTO transfer_records (
			id, from_account_id, to_account_id, amount,
			status, failure_reason, idempotency_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var failureReason *string
	if record.FailureReason != "" {
		failureReason = &record.FailureReason
	}

	_, err := q.Exec(ctx, query,
		record.ID,
		record.FromAccountID,
		record.ToAccountID,
		decimalToNumeric(record.Amount),
		string(record.Status),
		failureReason,
		record.IdempotencyKey,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: key %q", domain.ErrDuplicateTransfer, record.IdempotencyKey)
		}

		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return nil
}

// FindByIdempotencyKey retrieves the record written for key.
func (r *RecordRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.TransferRecord, error) {
	query := selectRecord + ` WHERE idempotency_key = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: key %q", domain.ErrRecordNotFound, key)
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return record, nil
}

// GetByID retrieves a transfer record by ID.
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.TransferRecord, error) {
	query := selectRecord + ` WHERE id = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %s", domain.ErrRecordNotFound, id)
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return record, nil
}

// ListByAccount lists records where the account is source or destination,
// newest first.
func (r *RecordRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.TransferRecord, error) {
	query := selectRecord + `
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var records []*domain.TransferRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return records, nil
}

const selectRecord = `
	SELECT id, from_account_id, to_account_id, amount,
	       status, failure_reason, idempotency_key, created_at
	FROM transfer_records
`

func scanRecord(row pgx.Row) (*domain.TransferRecord, error) {
	var (
		record        domain.TransferRecord
		amount        pgtype.Numeric
		status        string
		failureReason *string
		createdAt     time.Time
	)

	err := row.Scan(
		&record.ID,
		&record.FromAccountID,
		&record.ToAccountID,
		&amount,
		&status,
		&failureReason,
		&record.IdempotencyKey,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.Amount = numericToDecimal(amount)
	record.Status = domain.RecordStatus(status)
	record.CreatedAt = createdAt

	if failureReason != nil {
		record.FailureReason = *failureReason
	}

	return &record, nil
}
