// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-casino/cmd/httpserver"
	"github.com/go-petr/pet-casino/internal/accountrepo"
	"github.com/go-petr/pet-casino/internal/balancerepo"
	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/middleware"
	"github.com/go-petr/pet-casino/pkg/configpkg"
	"github.com/go-petr/pet-casino/pkg/dbpkg"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/go-petr/pet-casino/pkg/randompkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LoadConfig loads the test configuration from the repository configs directory.
func LoadConfig(t *testing.T) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	return config
}

// SetupServer returns test server that cleans up database after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	config := LoadConfig(t)
	config.StorageBackend = configpkg.StoragePostgres

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables 
	WHERE table_schema='public';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}

// SeedAccount creates an active account with zero balance.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface) domain.Account {
	t.Helper()

	username := randompkg.Username()

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(), idpkg.New(idpkg.AccountPrefix), username)
	if err != nil {
		t.Fatalf("accountRepo.Create(ctx, id, %v) returned error: %v", username, err)
	}

	return account
}

// SeedDeposit deposits amount into the account and returns the result.
func SeedDeposit(t *testing.T, db *sql.DB, accountID int64, amount string) domain.BalanceTxResult {
	t.Helper()

	arg := domain.ApplyDeltaParams{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
		Type:      domain.EntryDeposit,
	}

	res, err := balancerepo.NewRepoPGS(db).ApplyDelta(context.Background(), arg)
	if err != nil {
		t.Fatalf("balanceRepo.ApplyDelta(ctx, %+v) returned error: %v", arg, err)
	}

	return res
}
