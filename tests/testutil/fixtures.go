// Package testutil provides fixtures for postgres-backed integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	postgresRepo "github.com/iho/gotransfer/internal/adapter/repository/postgres"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/postgres"
)

// TestDB provides an isolated test database connection.
type TestDB struct {
	Pool     *pgxpool.Pool
	Accounts *postgresRepo.AccountRepository
	t        *testing.T
}

// NewTestDB connects to the database named by DATABASE_URL and runs
// migrations. Tests are skipped when DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	migrationsPath := "migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		// Relative to tests/integration.
		migrationsPath = "../../migrations"
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	return &TestDB{
		Pool:     pool,
		Accounts: postgresRepo.NewAccountRepository(pool),
		t:        t,
	}
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE transfer_records CASCADE;
		TRUNCATE TABLE accounts RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateTestAccount creates an account with the given balance and status.
func (db *TestDB) CreateTestAccount(ctx context.Context, holder, balance string, status domain.AccountStatus) *domain.Account {
	db.t.Helper()

	account := &domain.Account{
		HolderName: holder,
		Balance:    decimal.RequireFromString(balance),
		Status:     status,
		Version:    0,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := db.Accounts.Create(ctx, account); err != nil {
		db.t.Fatalf("failed to create test account: %v", err)
	}

	return account
}

// GenerateKey generates a unique idempotency key.
func GenerateKey() string {
	return ulid.Make().String()
}
