package usecase

import (
	"context"
	"time"

	"github.com/iho/gotransfer/internal/domain"
)

// AccountStore defines data access for accounts.
type AccountStore interface {
	// Create persists a new account and assigns its ID.
	Create(ctx context.Context, account *domain.Account) error
	// Get retrieves an account by ID. Returns domain.ErrAccountNotFound
	// when no account exists.
	Get(ctx context.Context, id int64) (*domain.Account, error)
	// ConditionalSave writes the account's balance inside tx, keyed on the
	// version the account was read at. The store increments the version on
	// success and returns domain.ErrConcurrentModification when the stored
	// version no longer matches.
	ConditionalSave(ctx context.Context, tx Transaction, account *domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// RecordStore defines data access for transfer records. The idempotency key
// is unique across all records; both Save variants return
// domain.ErrDuplicateTransfer when a record with the same key already exists.
type RecordStore interface {
	Save(ctx context.Context, record *domain.TransferRecord) error
	SaveTx(ctx context.Context, tx Transaction, record *domain.TransferRecord) error
	// FindByIdempotencyKey returns domain.ErrRecordNotFound when absent.
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.TransferRecord, error)
	GetByID(ctx context.Context, id string) (*domain.TransferRecord, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.TransferRecord, error)
}

// Transaction represents a store transaction. Writes buffered under it
// commit or roll back together.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique record IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations. Used for account read caching only;
// never part of the correctness path.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
