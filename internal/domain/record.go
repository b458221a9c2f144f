package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStatus is the outcome of a transfer attempt.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "SUCCESS"
	RecordFailed  RecordStatus = "FAILED"
)

// TransferRecord is the audit entry for one transfer attempt. Exactly one
// record exists per idempotency key, enforced by the store; a record is
// never modified after it is written.
type TransferRecord struct {
	ID             string
	FromAccountID  int64
	ToAccountID    int64
	Amount         decimal.Decimal
	Status         RecordStatus
	FailureReason  string
	IdempotencyKey string
	CreatedAt      time.Time
}
