package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateTransfer(t *testing.T) {
	tests := []struct {
		name    string
		fromID  int64
		toID    int64
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:   "valid transfer",
			fromID: 1,
			toID:   2,
			amount: decimal.RequireFromString("300.00"),
		},
		{
			name:    "same account",
			fromID:  1,
			toID:    1,
			amount:  decimal.RequireFromString("10.00"),
			wantErr: ErrSameAccount,
		},
		{
			name:    "zero amount",
			fromID:  1,
			toID:    2,
			amount:  decimal.Zero,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			fromID:  1,
			toID:    2,
			amount:  decimal.RequireFromString("-5.00"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "amount over maximum",
			fromID:  1,
			toID:    2,
			amount:  decimal.RequireFromString("1000000000001"),
			wantErr: ErrAmountTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransfer(tt.fromID, tt.toID, tt.amount)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateHolderName(t *testing.T) {
	if err := ValidateHolderName("John Doe"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ValidateHolderName("   "); !errors.Is(err, ErrInvalidHolderName) {
		t.Errorf("expected ErrInvalidHolderName, got %v", err)
	}

	long := strings.Repeat("x", MaxHolderNameLength+1)
	if err := ValidateHolderName(long); !errors.Is(err, ErrInvalidHolderName) {
		t.Errorf("expected ErrInvalidHolderName, got %v", err)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []AccountStatus{StatusActive, StatusLocked, StatusClosed} {
		if !ValidStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}

	if ValidStatus("SUSPENDED") {
		t.Error("expected SUSPENDED to be invalid")
	}
}
