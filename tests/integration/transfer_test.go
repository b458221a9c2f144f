package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	adaptershttp "github.com/iho/gotransfer/internal/adapter/http"
	"github.com/iho/gotransfer/internal/adapter/http/handler"
	postgresRepo "github.com/iho/gotransfer/internal/adapter/repository/postgres"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/idgen"
	"github.com/iho/gotransfer/internal/usecase"
	"github.com/iho/gotransfer/tests/testutil"
)

func newStack(testDB *testutil.TestDB) (*usecase.TransferUseCase, http.Handler) {
	pool := testDB.Pool
	log := zerolog.Nop()

	accountRepo := postgresRepo.NewAccountRepository(pool)
	recordRepo := postgresRepo.NewRecordRepository(pool)
	txManager := postgresRepo.NewTxManager(pool)
	idGen := idgen.NewULIDGenerator()

	accountUC := usecase.NewAccountUseCase(accountRepo, recordRepo, nil, log)
	transferUC := usecase.NewTransferUseCase(txManager, accountRepo, recordRepo, idGen, nil, log)

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		TransferHandler: handler.NewTransferHandler(transferUC, nil),
		HealthHandler:   handler.NewHealthHandler(pool),
		Logger:          log,
	})

	return transferUC, router
}

func TestTransferIntegration(t *testing.T) {
	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()

	transferUC, router := newStack(testDB)

	t.Run("transfer between accounts over HTTP", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		source := testDB.CreateTestAccount(ctx, "source", "1000.00", domain.StatusActive)
		dest := testDB.CreateTestAccount(ctx, "dest", "0.00", domain.StatusActive)

		body, _ := json.Marshal(map[string]any{
			"fromAccountId":  source.ID,
			"toAccountId":    dest.ID,
			"amount":         "100.50",
			"idempotencyKey": testutil.GenerateKey(),
		})

		r := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		sourceAfter, err := testDB.Accounts.Get(ctx, source.ID)
		if err != nil {
			t.Fatalf("failed to fetch source: %v", err)
		}
		if !sourceAfter.Balance.Equal(decimal.RequireFromString("899.50")) {
			t.Errorf("expected source balance 899.50, got %s", sourceAfter.Balance)
		}
		if sourceAfter.Version != 1 {
			t.Errorf("expected source version 1, got %d", sourceAfter.Version)
		}

		destAfter, err := testDB.Accounts.Get(ctx, dest.ID)
		if err != nil {
			t.Fatalf("failed to fetch dest: %v", err)
		}
		if !destAfter.Balance.Equal(decimal.RequireFromString("100.50")) {
			t.Errorf("expected dest balance 100.50, got %s", destAfter.Balance)
		}
	})

	t.Run("duplicate idempotency key is rejected", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		source := testDB.CreateTestAccount(ctx, "source", "1000.00", domain.StatusActive)
		dest := testDB.CreateTestAccount(ctx, "dest", "0.00", domain.StatusActive)
		key := testutil.GenerateKey()

		input := usecase.TransferInput{
			FromAccountID:  source.ID,
			ToAccountID:    dest.ID,
			Amount:         decimal.RequireFromString("50.00"),
			IdempotencyKey: key,
		}

		if _, err := transferUC.Transfer(ctx, input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := transferUC.Transfer(ctx, input); !errors.Is(err, domain.ErrDuplicateTransfer) {
			t.Fatalf("expected ErrDuplicateTransfer, got %v", err)
		}

		sourceAfter, _ := testDB.Accounts.Get(ctx, source.ID)
		if !sourceAfter.Balance.Equal(decimal.RequireFromString("950.00")) {
			t.Errorf("expected source balance 950.00 after one transfer, got %s", sourceAfter.Balance)
		}
	})

	t.Run("failed transfer leaves audit record", func(t *testing.T) {
		testDB.TruncateAll(ctx)

		source := testDB.CreateTestAccount(ctx, "source", "10.00", domain.StatusActive)
		dest := testDB.CreateTestAccount(ctx, "dest", "0.00", domain.StatusActive)
		key := testutil.GenerateKey()

		_, err := transferUC.Transfer(ctx, usecase.TransferInput{
			FromAccountID:  source.ID,
			ToAccountID:    dest.ID,
			Amount:         decimal.RequireFromString("100.00"),
			IdempotencyKey: key,
		})
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}

		record, err := transferUC.GetRecordByKey(ctx, key)
		if err != nil {
			t.Fatalf("expected FAILED record: %v", err)
		}
		if record.Status != domain.RecordFailed {
			t.Errorf("expected FAILED record, got %s", record.Status)
		}
		if record.FailureReason == "" {
			t.Error("expected a failure reason")
		}
	})
}
