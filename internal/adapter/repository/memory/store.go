// Package memory provides a mutex-guarded in-process ledger store with the
// same conditional-write and unique-key semantics as the postgres store. It
// backs tests and the server's dev mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// Store implements usecase.AccountStore, usecase.RecordStore and
// usecase.TransactionManager over in-process maps.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*domain.Account
	records  map[string]*domain.TransferRecord
	byKey    map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*domain.Account),
		records:  make(map[string]*domain.TransferRecord),
		byKey:    make(map[string]string),
	}
}

// Create persists a new account and assigns the next ID.
func (s *Store) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	account.ID = s.nextID
	s.accounts[account.ID] = account.Clone()

	return nil
}

// Get retrieves a copy of an account by ID.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}

	return account.Clone(), nil
}

// ConditionalSave buffers the account write in tx. The version check and
// the version bump happen atomically at commit.
func (s *Store) ConditionalSave(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return fmt.Errorf("%w: transaction does not belong to this store", domain.ErrStorage)
	}

	t.accounts = append(t.accounts, account.Clone())

	return nil
}

// List lists accounts ordered by ID.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	accounts := make([]*domain.Account, 0, limit)
	for i, id := range ids {
		if i < offset {
			continue
		}

		if len(accounts) == limit {
			break
		}

		accounts = append(accounts, s.accounts[id].Clone())
	}

	return accounts, nil
}

// Save writes a transfer record outside any transaction.
func (s *Store) Save(ctx context.Context, record *domain.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(record)
}

// SaveTx buffers a transfer record write in tx.
func (s *Store) SaveTx(ctx context.Context, tx usecase.Transaction, record *domain.TransferRecord) error {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return fmt.Errorf("%w: transaction does not belong to this store", domain.ErrStorage)
	}

	t.records = append(t.records, cloneRecord(record))

	return nil
}

// FindByIdempotencyKey retrieves the record written for key.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*domain.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", domain.ErrRecordNotFound, key)
	}

	return cloneRecord(s.records[id]), nil
}

// GetByID retrieves a transfer record by ID.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", domain.ErrRecordNotFound, id)
	}

	return cloneRecord(record), nil
}

// ListByAccount lists records where the account is source or destination,
// newest first.
func (s *Store) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.TransferRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.TransferRecord
	for _, record := range s.records {
		if record.FromAccountID == accountID || record.ToAccountID == accountID {
			matched = append(matched, record)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}

		return matched[i].ID > matched[j].ID
	})

	records := make([]*domain.TransferRecord, 0, limit)
	for i, record := range matched {
		if i < offset {
			continue
		}

		if len(records) == limit {
			break
		}

		records = append(records, cloneRecord(record))
	}

	return records, nil
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &Tx{store: s}, nil
}

// Tx buffers writes and applies them atomically under the store lock on
// Commit, so a debit never persists without its paired credit.
type Tx struct {
	store    *Store
	accounts []*domain.Account
	records  []*domain.TransferRecord
	done     bool
}

// Commit verifies every buffered version and unique key, then applies all
// writes. Any mismatch applies nothing.
func (t *Tx) Commit(ctx context.Context) error {
	s := t.store

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.done {
		return fmt.Errorf("%w: transaction already closed", domain.ErrStorage)
	}
	t.done = true

	for _, account := range t.accounts {
		stored, ok := s.accounts[account.ID]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, account.ID)
		}

		if stored.Version != account.Version {
			return fmt.Errorf("%w: account %d", domain.ErrConcurrentModification, account.ID)
		}
	}

	for _, record := range t.records {
		if _, exists := s.byKey[record.IdempotencyKey]; exists {
			return fmt.Errorf("%w: key %q", domain.ErrDuplicateTransfer, record.IdempotencyKey)
		}
	}

	for _, account := range t.accounts {
		applied := account.Clone()
		applied.Version++
		s.accounts[applied.ID] = applied
	}

	for _, record := range t.records {
		if err := s.saveLocked(record); err != nil {
			return err
		}
	}

	return nil
}

// Rollback discards buffered writes. After Commit it is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	t.done = true
	t.accounts = nil
	t.records = nil

	return nil
}

func (s *Store) saveLocked(record *domain.TransferRecord) error {
	if _, exists := s.byKey[record.IdempotencyKey]; exists {
		return fmt.Errorf("%w: key %q", domain.ErrDuplicateTransfer, record.IdempotencyKey)
	}

	s.records[record.ID] = cloneRecord(record)
	s.byKey[record.IdempotencyKey] = record.ID

	return nil
}

func cloneRecord(r *domain.TransferRecord) *domain.TransferRecord {
	cp := *r
	return &cp
}
