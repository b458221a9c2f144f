package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// AccountRepository implements usecase.AccountStore.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create persists a new account and assigns its ID.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (holder_name, balance, status, version, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		account.HolderName,
		decimalToNumeric(account.Balance),
		string(account.Status),
		account.Version,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return nil
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT id, holder_name, balance, status, version, updated_at
		FROM accounts
		WHERE id = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}

		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return account, nil
}

// ConditionalSave writes the account's balance inside tx, keyed on the
// version the account was read at. Accounts are never deleted in the
// transfer path, so zero affected rows means a version conflict.
func (r *AccountRepository) ConditionalSave(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE accounts
		SET balance = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`

	ct, err := pgxTx.Exec(ctx, query,
		account.ID,
		decimalToNumeric(account.Balance),
		account.UpdatedAt,
		account.Version,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %d", domain.ErrConcurrentModification, account.ID)
	}

	return nil
}

// List lists accounts ordered by ID.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	query := `
		SELECT id, holder_name, balance, status, version, updated_at
		FROM accounts
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}

		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	return accounts, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		balance   pgtype.Numeric
		status    string
		updatedAt time.Time
	)

	err := row.Scan(&account.ID, &account.HolderName, &balance, &status, &account.Version, &updatedAt)
	if err != nil {
		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.Status = domain.AccountStatus(status)
	account.UpdatedAt = updatedAt

	return &account, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}
