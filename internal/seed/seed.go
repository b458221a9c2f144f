// Package seed provisions demo accounts for local development.
package seed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

type seedAccount struct {
	holderName string
	balance    string
	status     domain.AccountStatus
}

var demoAccounts = []seedAccount{
	{"John Doe", "10000.00", domain.StatusActive},
	{"Jane Smith", "5000.00", domain.StatusActive},
	{"Bob Wilson", "15000.00", domain.StatusActive},
	{"Alice Brown", "2000.00", domain.StatusLocked},
	{"Charlie Davis", "0.00", domain.StatusClosed},
}

// Load provisions the demo accounts. It is a no-op when the store already
// holds any account, so restarting the server never duplicates data.
func Load(ctx context.Context, accounts usecase.AccountStore, logger zerolog.Logger) error {
	existing, err := accounts.List(ctx, 1, 0)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		logger.Info().Msg("seed: accounts already present, skipping")
		return nil
	}

	for _, s := range demoAccounts {
		account := &domain.Account{
			HolderName: s.holderName,
			Balance:    decimal.RequireFromString(s.balance),
			Status:     s.status,
			Version:    0,
			UpdatedAt:  time.Now().UTC(),
		}

		if err := accounts.Create(ctx, account); err != nil {
			return err
		}

		logger.Info().
			Int64("account_id", account.ID).
			Str("holder", account.HolderName).
			Str("balance", account.Balance.String()).
			Str("status", string(account.Status)).
			Msg("seed: account created")
	}

	return nil
}
