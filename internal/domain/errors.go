package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotActive    = errors.New("account not active")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidHolderName   = errors.New("invalid holder name")
	ErrNegativeBalance     = errors.New("initial balance cannot be negative")
	ErrInvalidStatus       = errors.New("invalid account status")

	// Transfer errors
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum allowed")
	ErrDuplicateTransfer = errors.New("duplicate transfer")
	ErrRecordNotFound    = errors.New("transfer record not found")
	ErrMissingKey        = errors.New("idempotency key is required")

	// Store errors
	ErrConcurrentModification = errors.New("account modified concurrently")
	ErrStorage                = errors.New("storage failure")
)
