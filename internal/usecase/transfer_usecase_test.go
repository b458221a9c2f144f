package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/adapter/repository/memory"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/idgen"
	"github.com/iho/gotransfer/internal/usecase"
)

func newAccount(t *testing.T, store *memory.Store, balance string, status domain.AccountStatus) *domain.Account {
	t.Helper()

	account := &domain.Account{
		HolderName: "Test Holder",
		Balance:    decimal.RequireFromString(balance),
		Status:     status,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := store.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	return account
}

func newTransferUseCase(store *memory.Store) *usecase.TransferUseCase {
	return usecase.NewTransferUseCase(store, store, store, idgen.NewULIDGenerator(), nil, zerolog.Nop())
}

func mustBalance(t *testing.T, store *memory.Store, id int64) decimal.Decimal {
	t.Helper()

	account, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get account %d: %v", id, err)
	}

	return account.Balance
}

func TestTransfer_Success(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	receipt, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("300.00"),
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receipt.Status != domain.RecordSuccess {
		t.Errorf("expected status %s, got %s", domain.RecordSuccess, receipt.Status)
	}
	if receipt.DebitedFrom != from.ID || receipt.CreditedTo != to.ID {
		t.Errorf("receipt references wrong accounts: %+v", receipt)
	}
	if receipt.TransactionID == "" {
		t.Error("expected a transaction ID")
	}

	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("700.00")) {
		t.Errorf("expected source balance 700.00, got %s", got)
	}
	if got := mustBalance(t, store, to.ID); !got.Equal(decimal.RequireFromString("800.00")) {
		t.Errorf("expected destination balance 800.00, got %s", got)
	}

	fromStored, _ := store.Get(ctx, from.ID)
	if fromStored.Version != 1 {
		t.Errorf("expected source version 1, got %d", fromStored.Version)
	}

	record, err := uc.GetRecordByKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("expected record for key, got error: %v", err)
	}
	if record.Status != domain.RecordSuccess {
		t.Errorf("expected SUCCESS record, got %s", record.Status)
	}
	if record.ID != receipt.TransactionID {
		t.Errorf("record ID %s does not match receipt %s", record.ID, receipt.TransactionID)
	}

	byID, err := uc.GetRecord(ctx, receipt.TransactionID)
	if err != nil {
		t.Fatalf("expected record by ID, got error: %v", err)
	}
	if !byID.Amount.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("expected record amount 300.00, got %s", byID.Amount)
	}
}

func TestTransfer_MissingIdempotencyKey(t *testing.T) {
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.RequireFromString("10.00"),
	})
	if !errors.Is(err, domain.ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
}

func TestTransfer_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	input := usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("300.00"),
		IdempotencyKey: "key-1",
	}

	if _, err := uc.Transfer(ctx, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same key again, even with a different amount.
	input.Amount = decimal.RequireFromString("50.00")
	_, err := uc.Transfer(ctx, input)
	if !errors.Is(err, domain.ErrDuplicateTransfer) {
		t.Fatalf("expected ErrDuplicateTransfer, got %v", err)
	}

	// The repeated request must not move money or write another record.
	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("700.00")) {
		t.Errorf("expected source balance 700.00, got %s", got)
	}

	records, err := store.ListByAccount(ctx, from.ID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestTransfer_DuplicateCheckedBeforeValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	if _, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: "key-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A retried key wins over validation: the same key with an invalid
	// payload still reports duplicate.
	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    from.ID,
		Amount:         decimal.RequireFromString("-5.00"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrDuplicateTransfer) {
		t.Errorf("expected ErrDuplicateTransfer, got %v", err)
	}
}

func TestTransfer_ValidationFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	tests := []struct {
		name    string
		fromID  int64
		toID    int64
		amount  string
		wantErr error
	}{
		{"same account", from.ID, from.ID, "10.00", domain.ErrSameAccount},
		{"zero amount", from.ID, to.ID, "0", domain.ErrInvalidAmount},
		{"negative amount", from.ID, to.ID, "-25.00", domain.ErrInvalidAmount},
		{"amount too large", from.ID, to.ID, "1000000000001", domain.ErrAmountTooLarge},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "validation-key-" + string(rune('a'+i))

			_, err := uc.Transfer(ctx, usecase.TransferInput{
				FromAccountID:  tt.fromID,
				ToAccountID:    tt.toID,
				Amount:         decimal.RequireFromString(tt.amount),
				IdempotencyKey: key,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			record, err := store.FindByIdempotencyKey(ctx, key)
			if err != nil {
				t.Fatalf("expected FAILED record for key %s: %v", key, err)
			}
			if record.Status != domain.RecordFailed {
				t.Errorf("expected FAILED record, got %s", record.Status)
			}
			if record.FailureReason == "" {
				t.Error("expected a failure reason")
			}
		})
	}

	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("expected source balance unchanged at 1000.00, got %s", got)
	}
	if got := mustBalance(t, store, to.ID); !got.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("expected destination balance unchanged at 500.00, got %s", got)
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "100.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("100.01"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Neither side moves when the debit is rejected.
	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("expected source balance 100.00, got %s", got)
	}
	if got := mustBalance(t, store, to.ID); !got.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("expected destination balance 500.00, got %s", got)
	}

	record, err := store.FindByIdempotencyKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("expected FAILED record: %v", err)
	}
	if record.Status != domain.RecordFailed {
		t.Errorf("expected FAILED record, got %s", record.Status)
	}
}

func TestTransfer_ExactBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "100.00", domain.StatusActive)
	to := newAccount(t, store, "0.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	// Draining the account to exactly zero is allowed.
	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("100.00"),
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mustBalance(t, store, from.ID); !got.IsZero() {
		t.Errorf("expected source balance 0, got %s", got)
	}
}

func TestTransfer_InactiveAccounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	active := newAccount(t, store, "1000.00", domain.StatusActive)
	locked := newAccount(t, store, "1000.00", domain.StatusLocked)
	closed := newAccount(t, store, "1000.00", domain.StatusClosed)
	uc := newTransferUseCase(store)

	tests := []struct {
		name   string
		fromID int64
		toID   int64
	}{
		{"locked source", locked.ID, active.ID},
		{"closed source", closed.ID, active.ID},
		{"locked destination", active.ID, locked.ID},
		{"closed destination", active.ID, closed.ID},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Transfer(ctx, usecase.TransferInput{
				FromAccountID:  tt.fromID,
				ToAccountID:    tt.toID,
				Amount:         decimal.RequireFromString("10.00"),
				IdempotencyKey: "inactive-key-" + string(rune('a'+i)),
			})
			if !errors.Is(err, domain.ErrAccountNotActive) {
				t.Fatalf("expected ErrAccountNotActive, got %v", err)
			}
		})
	}

	for _, id := range []int64{active.ID, locked.ID, closed.ID} {
		if got := mustBalance(t, store, id); !got.Equal(decimal.RequireFromString("1000.00")) {
			t.Errorf("expected account %d balance unchanged at 1000.00, got %s", id, got)
		}
	}
}

func TestTransfer_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	uc := newTransferUseCase(store)

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    9999,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	record, err := store.FindByIdempotencyKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("expected FAILED record: %v", err)
	}
	if record.Status != domain.RecordFailed {
		t.Errorf("expected FAILED record, got %s", record.Status)
	}
}

// flakyAccountStore injects version conflicts into the first n conditional
// saves, then behaves normally.
type flakyAccountStore struct {
	usecase.AccountStore

	mu        sync.Mutex
	conflicts int
}

func (s *flakyAccountStore) ConditionalSave(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	s.mu.Lock()
	inject := s.conflicts > 0
	if inject {
		s.conflicts--
	}
	s.mu.Unlock()

	if inject {
		return domain.ErrConcurrentModification
	}

	return s.AccountStore.ConditionalSave(ctx, tx, account)
}

func TestTransfer_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)

	flaky := &flakyAccountStore{AccountStore: store, conflicts: 2}
	uc := usecase.NewTransferUseCase(store, flaky, store, idgen.NewULIDGenerator(), nil, zerolog.Nop())

	receipt, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("300.00"),
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if receipt.Status != domain.RecordSuccess {
		t.Errorf("expected SUCCESS, got %s", receipt.Status)
	}

	// The transfer applied exactly once despite the retries.
	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("700.00")) {
		t.Errorf("expected source balance 700.00, got %s", got)
	}
	if got := mustBalance(t, store, to.ID); !got.Equal(decimal.RequireFromString("800.00")) {
		t.Errorf("expected destination balance 800.00, got %s", got)
	}
}

func TestTransfer_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)

	flaky := &flakyAccountStore{AccountStore: store, conflicts: 1000}
	uc := usecase.NewTransferUseCase(store, flaky, store, idgen.NewULIDGenerator(), nil, zerolog.Nop())
	uc.SetMaxConflictRetries(2)

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("300.00"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	if got := mustBalance(t, store, from.ID); !got.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("expected source balance unchanged, got %s", got)
	}

	record, err := store.FindByIdempotencyKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("expected FAILED record: %v", err)
	}
	if record.Status != domain.RecordFailed {
		t.Errorf("expected FAILED record, got %s", record.Status)
	}
}

// failingRecordStore delegates reads to the underlying store but rejects
// every write.
type failingRecordStore struct {
	usecase.RecordStore
}

func (s *failingRecordStore) Save(ctx context.Context, record *domain.TransferRecord) error {
	return errors.New("disk full")
}

func (s *failingRecordStore) SaveTx(ctx context.Context, tx usecase.Transaction, record *domain.TransferRecord) error {
	return errors.New("disk full")
}

func TestTransfer_FailureRecordErrorDoesNotMaskCause(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "100.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)

	failing := &failingRecordStore{RecordStore: store}
	uc := usecase.NewTransferUseCase(store, store, failing, idgen.NewULIDGenerator(), nil, zerolog.Nop())

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("500.00"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("expected original ErrInsufficientBalance, got %v", err)
	}
}

// erroringAccountStore simulates a backend outage on reads.
type erroringAccountStore struct {
	usecase.AccountStore
}

func (s *erroringAccountStore) Get(ctx context.Context, id int64) (*domain.Account, error) {
	return nil, errors.New("connection refused")
}

func TestTransfer_StorageErrorsClassified(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	from := newAccount(t, store, "1000.00", domain.StatusActive)
	to := newAccount(t, store, "500.00", domain.StatusActive)

	broken := &erroringAccountStore{AccountStore: store}
	uc := usecase.NewTransferUseCase(store, broken, store, idgen.NewULIDGenerator(), nil, zerolog.Nop())

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: "key-1",
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestTransfer_ConcurrentDrain(t *testing.T) {
	const workers = 20

	ctx := context.Background()
	store := memory.NewStore()
	amount := decimal.RequireFromString("10.00")
	from := newAccount(t, store, "200.00", domain.StatusActive)
	to := newAccount(t, store, "0.00", domain.StatusActive)

	uc := newTransferUseCase(store)
	uc.SetMaxConflictRetries(200)

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := uc.Transfer(ctx, usecase.TransferInput{
				FromAccountID:  from.ID,
				ToAccountID:    to.ID,
				Amount:         amount,
				IdempotencyKey: "drain-key-" + string(rune('a'+n)),
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent transfer failed: %v", err)
		}
	}

	// Every transfer applied exactly once and money is conserved.
	if got := mustBalance(t, store, from.ID); !got.IsZero() {
		t.Errorf("expected source drained to 0, got %s", got)
	}
	if got := mustBalance(t, store, to.ID); !got.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("expected destination balance 200.00, got %s", got)
	}

	records, err := store.ListByAccount(ctx, from.ID, workers+10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != workers {
		t.Errorf("expected %d records, got %d", workers, len(records))
	}
	for _, record := range records {
		if record.Status != domain.RecordSuccess {
			t.Errorf("expected all records SUCCESS, got %s for %s", record.Status, record.ID)
		}
	}
}
