package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive AccountStatus = "ACTIVE"
	StatusLocked AccountStatus = "LOCKED"
	StatusClosed AccountStatus = "CLOSED"
)

// ValidStatus reports whether s is a known account status.
func ValidStatus(s AccountStatus) bool {
	switch s {
	case StatusActive, StatusLocked, StatusClosed:
		return true
	}
	return false
}

// Account holds a balance for one holder. The balance is only mutated
// through Debit and Credit, and only while the account is ACTIVE.
// Version is the optimistic-concurrency stamp: the store increments it on
// every conditional save and rejects writes against a stale version.
type Account struct {
	ID         int64
	HolderName string
	Balance    decimal.Decimal
	Status     AccountStatus
	Version    int64
	UpdatedAt  time.Time
}

// IsActive reports whether the account accepts debits and credits.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Debit subtracts amount from the balance. It fails if the account is not
// ACTIVE or the balance would go negative. Persistence is the caller's job.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: cannot debit account %d, status is %s", ErrAccountNotActive, a.ID, a.Status)
	}

	if a.Balance.LessThan(amount) {
		return fmt.Errorf("%w: available %s, required %s", ErrInsufficientBalance, a.Balance, amount)
	}

	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now().UTC()

	return nil
}

// Credit adds amount to the balance. It fails if the account is not ACTIVE.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !a.IsActive() {
		return fmt.Errorf("%w: cannot credit account %d, status is %s", ErrAccountNotActive, a.ID, a.Status)
	}

	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now().UTC()

	return nil
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
