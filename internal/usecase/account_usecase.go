package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
)

// AccountUseCase handles account provisioning and read-side queries.
type AccountUseCase struct {
	accounts AccountStore
	records  RecordStore
	cache    Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase. cache may be nil.
func NewAccountUseCase(accounts AccountStore, records RecordStore, cache Cache, logger zerolog.Logger) *AccountUseCase {
	return &AccountUseCase{
		accounts: accounts,
		records:  records,
		cache:    cache,
		cacheTTL: DefaultAccountCacheTTL,
		logger:   logger,
	}
}

// CreateAccountInput represents input for provisioning an account.
type CreateAccountInput struct {
	HolderName     string
	InitialBalance decimal.Decimal
	Status         domain.AccountStatus
}

// CreateAccount provisions a new account at version 0.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateHolderName(input.HolderName); err != nil {
		return nil, err
	}

	if input.InitialBalance.IsNegative() {
		return nil, domain.ErrNegativeBalance
	}

	status := input.Status
	if status == "" {
		status = domain.StatusActive
	}

	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, input.Status)
	}

	account := &domain.Account{
		HolderName: input.HolderName,
		Balance:    input.InitialBalance,
		Status:     status,
		Version:    0,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := uc.accounts.Create(ctx, account); err != nil {
		return nil, classifyStorage(err)
	}

	return account, nil
}

// GetAccount retrieves an account by ID, reading through the cache when one
// is configured. Cache errors fall back to the store.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, accountCacheKey(id)); err == nil {
			var account domain.Account
			if err := json.Unmarshal(data, &account); err == nil {
				return &account, nil
			}
		}
	}

	account, err := uc.accounts.Get(ctx, id)
	if err != nil {
		return nil, classifyStorage(err)
	}

	uc.cacheAccount(ctx, account)

	return account, nil
}

// GetBalance retrieves an account's balance.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	account, err := uc.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Balance, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	if input.Limit > 100 {
		input.Limit = 100
	}

	accounts, err := uc.accounts.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, classifyStorage(err)
	}

	return accounts, nil
}

// GetHistoryInput represents input for listing an account's transfers.
type GetHistoryInput struct {
	AccountID int64
	Limit     int
	Offset    int
}

// GetHistory lists transfer records where the account is either side.
func (uc *AccountUseCase) GetHistory(ctx context.Context, input GetHistoryInput) ([]*domain.TransferRecord, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	if input.Limit > 100 {
		input.Limit = 100
	}

	// Verify the account exists so a bogus id is a 404, not an empty list.
	if _, err := uc.accounts.Get(ctx, input.AccountID); err != nil {
		return nil, classifyStorage(err)
	}

	records, err := uc.records.ListByAccount(ctx, input.AccountID, input.Limit, input.Offset)
	if err != nil {
		return nil, classifyStorage(err)
	}

	return records, nil
}

func (uc *AccountUseCase) cacheAccount(ctx context.Context, account *domain.Account) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(account)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, accountCacheKey(account.ID), data, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Int64("account_id", account.ID).Msg("failed to cache account")
	}
}
