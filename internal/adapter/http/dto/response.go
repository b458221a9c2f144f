package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// TransferResponse represents a successful transfer in API responses.
type TransferResponse struct {
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	DebitedFrom   int64           `json:"debitedFrom"`
	CreditedTo    int64           `json:"creditedTo"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferFromReceipt converts a receipt to a response.
func TransferFromReceipt(r *usecase.TransferReceipt) *TransferResponse {
	return &TransferResponse{
		TransactionID: r.TransactionID,
		Status:        string(r.Status),
		DebitedFrom:   r.DebitedFrom,
		CreditedTo:    r.CreditedTo,
		Amount:        r.Amount,
	}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          int64           `json:"id"`
	HolderName  string          `json:"holderName"`
	Balance     decimal.Decimal `json:"balance"`
	Status      string          `json:"status"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		HolderName:  a.HolderName,
		Balance:     a.Balance,
		Status:      string(a.Status),
		LastUpdated: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	out := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = AccountFromDomain(a)
	}

	return out
}

// BalanceResponse represents an account balance.
type BalanceResponse struct {
	AccountID int64           `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

// RecordResponse represents a transfer record in API responses.
type RecordResponse struct {
	ID             string          `json:"id"`
	FromAccountID  int64           `json:"fromAccountId"`
	ToAccountID    int64           `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	FailureReason  string          `json:"failureReason,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey"`
	CreatedOn      time.Time       `json:"createdOn"`
}

// RecordFromDomain converts a domain record to a response.
func RecordFromDomain(r *domain.TransferRecord) *RecordResponse {
	return &RecordResponse{
		ID:             r.ID,
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         r.Amount,
		Status:         string(r.Status),
		FailureReason:  r.FailureReason,
		IdempotencyKey: r.IdempotencyKey,
		CreatedOn:      r.CreatedAt,
	}
}

// RecordsFromDomain converts domain records to responses.
func RecordsFromDomain(records []*domain.TransferRecord) []*RecordResponse {
	out := make([]*RecordResponse, len(records))
	for i, r := range records {
		out[i] = RecordFromDomain(r)
	}

	return out
}

// ErrorResponse is the error body for all endpoints: a stable
// machine-readable code plus a human message.
type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}
