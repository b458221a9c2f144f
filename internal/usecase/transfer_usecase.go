package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
)

// TransferUseCase executes transfers between two accounts. It is a
// synchronous unit of work per call and safe for any number of concurrent
// callers; balance safety comes from the store's conditional writes, not
// from locking here.
type TransferUseCase struct {
	txManager  TransactionManager
	accounts   AccountStore
	records    RecordStore
	idGen      IDGenerator
	cache      Cache
	logger     zerolog.Logger
	maxRetries uint64
}

// NewTransferUseCase creates a new TransferUseCase. cache may be nil.
func NewTransferUseCase(
	txManager TransactionManager,
	accounts AccountStore,
	records RecordStore,
	idGen IDGenerator,
	cache Cache,
	logger zerolog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:  txManager,
		accounts:   accounts,
		records:    records,
		idGen:      idGen,
		cache:      cache,
		logger:     logger,
		maxRetries: DefaultMaxConflictRetries,
	}
}

// SetMaxConflictRetries overrides the bounded retry count for version
// conflicts.
func (uc *TransferUseCase) SetMaxConflictRetries(n uint64) {
	uc.maxRetries = n
}

// TransferInput represents one transfer request.
type TransferInput struct {
	FromAccountID  int64
	ToAccountID    int64
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferReceipt is returned on success.
type TransferReceipt struct {
	TransactionID string
	Status        domain.RecordStatus
	DebitedFrom   int64
	CreditedTo    int64
	Amount        decimal.Decimal
}

// Transfer moves input.Amount from the source to the destination account,
// applying the request at most once per idempotency key. Every attempt
// leaves a transfer record: SUCCESS on commit, FAILED with the failure
// reason otherwise. A repeated key is a client error, not a silent replay;
// the original record stays retrievable through GetRecordByKey.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferReceipt, error) {
	if input.IdempotencyKey == "" {
		return nil, domain.ErrMissingKey
	}

	// Duplicate detection runs before validation: a retried key is
	// reported as duplicate even when the payload is otherwise invalid.
	if _, err := uc.records.FindByIdempotencyKey(ctx, input.IdempotencyKey); err == nil {
		return nil, fmt.Errorf("%w: key %q", domain.ErrDuplicateTransfer, input.IdempotencyKey)
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, classifyStorage(err)
	}

	receipt, err := uc.executeWithRetry(ctx, input)
	if err != nil {
		// Losing the unique-key race means another attempt with the same
		// key committed first; the existing record stands.
		if errors.Is(err, domain.ErrDuplicateTransfer) {
			return nil, err
		}

		uc.recordFailure(ctx, input, err)

		return nil, err
	}

	uc.logger.Info().
		Str("transaction_id", receipt.TransactionID).
		Int64("from_account_id", input.FromAccountID).
		Int64("to_account_id", input.ToAccountID).
		Str("amount", input.Amount.String()).
		Msg("transfer completed")

	return receipt, nil
}

// executeWithRetry re-runs the whole attempt (re-fetch, re-validate,
// re-apply) on version conflicts, bounded by maxRetries. Any other failure
// is terminal for this call.
func (uc *TransferUseCase) executeWithRetry(ctx context.Context, input TransferInput) (*TransferReceipt, error) {
	var receipt *TransferReceipt

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = conflictRetryInitialInterval
	b.MaxInterval = conflictRetryMaxInterval

	operation := func() error {
		r, err := uc.attempt(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				return err
			}

			return backoff.Permanent(err)
		}

		receipt = r

		return nil
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(b, ctx), uc.maxRetries))
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

func (uc *TransferUseCase) attempt(ctx context.Context, input TransferInput) (*TransferReceipt, error) {
	// Balances and validation are recomputed on every attempt; nothing is
	// carried across a conflict retry.
	if err := domain.ValidateTransfer(input.FromAccountID, input.ToAccountID, input.Amount); err != nil {
		return nil, err
	}

	from, err := uc.accounts.Get(ctx, input.FromAccountID)
	if err != nil {
		return nil, classifyStorage(err)
	}

	to, err := uc.accounts.Get(ctx, input.ToAccountID)
	if err != nil {
		return nil, classifyStorage(err)
	}

	// Debit before credit: the destination is never touched when the
	// debit fails.
	if err := from.Debit(input.Amount); err != nil {
		return nil, err
	}

	if err := to.Credit(input.Amount); err != nil {
		return nil, err
	}

	record := &domain.TransferRecord{
		ID:             uc.idGen.Generate(),
		FromAccountID:  input.FromAccountID,
		ToAccountID:    input.ToAccountID,
		Amount:         input.Amount,
		Status:         domain.RecordSuccess,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, classifyStorage(err)
	}
	defer tx.Rollback(ctx)

	if err := uc.accounts.ConditionalSave(ctx, tx, from); err != nil {
		return nil, classifyStorage(err)
	}

	if err := uc.accounts.ConditionalSave(ctx, tx, to); err != nil {
		return nil, classifyStorage(err)
	}

	if err := uc.records.SaveTx(ctx, tx, record); err != nil {
		return nil, classifyStorage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyStorage(err)
	}

	uc.invalidateAccounts(ctx, from.ID, to.ID)

	return &TransferReceipt{
		TransactionID: record.ID,
		Status:        domain.RecordSuccess,
		DebitedFrom:   from.ID,
		CreditedTo:    to.ID,
		Amount:        input.Amount,
	}, nil
}

// recordFailure writes the FAILED audit record. A failure here must not
// mask the original transfer error, so it is only logged.
func (uc *TransferUseCase) recordFailure(ctx context.Context, input TransferInput, cause error) {
	record := &domain.TransferRecord{
		ID:             uc.idGen.Generate(),
		FromAccountID:  input.FromAccountID,
		ToAccountID:    input.ToAccountID,
		Amount:         input.Amount,
		Status:         domain.RecordFailed,
		FailureReason:  cause.Error(),
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	if err := uc.records.Save(ctx, record); err != nil {
		uc.logger.Error().Err(err).
			Str("idempotency_key", input.IdempotencyKey).
			Str("transfer_error", cause.Error()).
			Msg("failed to write failure record")
	}
}

// GetRecord retrieves a transfer record by ID.
func (uc *TransferUseCase) GetRecord(ctx context.Context, id string) (*domain.TransferRecord, error) {
	return uc.records.GetByID(ctx, id)
}

// GetRecordByKey retrieves the transfer record written for an idempotency
// key, letting a caller that hit ErrDuplicateTransfer inspect the original
// outcome.
func (uc *TransferUseCase) GetRecordByKey(ctx context.Context, key string) (*domain.TransferRecord, error) {
	return uc.records.FindByIdempotencyKey(ctx, key)
}

func (uc *TransferUseCase) invalidateAccounts(ctx context.Context, ids ...int64) {
	if uc.cache == nil {
		return
	}

	for _, id := range ids {
		if err := uc.cache.Delete(ctx, accountCacheKey(id)); err != nil {
			uc.logger.Warn().Err(err).Int64("account_id", id).Msg("failed to invalidate account cache")
		}
	}
}

func accountCacheKey(id int64) string {
	return fmt.Sprintf("account:%d", id)
}

// classifyStorage keeps known domain errors as-is and wraps anything else
// as a storage failure so no driver error leaks across the core boundary.
func classifyStorage(err error) error {
	for _, known := range []error{
		domain.ErrAccountNotFound,
		domain.ErrAccountNotActive,
		domain.ErrInsufficientBalance,
		domain.ErrSameAccount,
		domain.ErrInvalidAmount,
		domain.ErrAmountTooLarge,
		domain.ErrDuplicateTransfer,
		domain.ErrRecordNotFound,
		domain.ErrConcurrentModification,
		domain.ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrStorage, err)
}
