package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// TransferRequest represents a request to execute a transfer.
type TransferRequest struct {
	FromAccountID  int64           `json:"fromAccountId"`
	ToAccountID    int64           `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() usecase.TransferInput {
	return usecase.TransferInput{
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         r.Amount,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// CreateAccountRequest represents a request to provision an account.
type CreateAccountRequest struct {
	HolderName     string          `json:"holderName"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Status         string          `json:"status,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		HolderName:     r.HolderName,
		InitialBalance: r.InitialBalance,
		Status:         domain.AccountStatus(r.Status),
	}
}
