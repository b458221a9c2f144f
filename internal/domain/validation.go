package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MaxHolderNameLength = 255

	// MaxTransferAmount caps a single transfer (decimal string).
	MaxTransferAmount = "1000000000000"
)

// ValidateTransfer checks the transfer request invariants: distinct
// accounts and a strictly positive amount within bounds.
func ValidateTransfer(fromID, toID int64, amount decimal.Decimal) error {
	if fromID == toID {
		return fmt.Errorf("%w: account %d", ErrSameAccount, fromID)
	}

	return ValidateAmount(amount)
}

// ValidateAmount checks that amount is positive and within bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}

// ValidateHolderName checks the account holder name.
func ValidateHolderName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidHolderName)
	}

	if len(name) > MaxHolderNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidHolderName, MaxHolderNameLength)
	}

	return nil
}
