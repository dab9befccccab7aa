// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/dbpkg"
	"github.com/go-petr/pet-casino/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const columns = `id, external_id, username, balance, blocked_balance, status, entry_seq, created_at, updated_at`

func scan(row dbpkg.RowScanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.Username,
		&a.Balance,
		&a.BlockedBalance,
		&a.Status,
		&a.EntrySeq,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (external_id, username)
VALUES
    ($1, $2)
RETURNING ` + columns

// Create creates the account with zero balance and then returns it.
func (r *RepoPGS) Create(ctx context.Context, externalID, username string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, createQuery, externalID, username))
	if err != nil {
		l.Error().Err(err).Send()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "accounts_username_key" {
			return domain.Account{}, domain.ErrUsernameAlreadyExists
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + columns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE
`

// GetForUpdate returns the account with the given id and locks its row until the
// surrounding transaction ends. Concurrent mutations of the same account queue here.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Int64("account_id", id).Send()
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateBalancesQuery = `
UPDATE accounts
SET balance = $2, blocked_balance = $3, entry_seq = $4, updated_at = now()
WHERE id = $1
RETURNING ` + columns

// UpdateBalances persists the balances and the entry sequence of the account.
//
// The table constraints reject a negative balance and a blocked balance outside
// [0, balance]; those violations are reported as business errors.
func (r *RepoPGS) UpdateBalances(ctx context.Context, arg domain.UpdateBalancesParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, updateBalancesQuery, arg.ID, arg.Balance, arg.BlockedBalance, arg.EntrySeq)

	a, err := scan(row)
	if err != nil {
		l.Error().Err(err).Send()

		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "accounts_balance_check":
				return domain.Account{}, domain.ErrInsufficientFunds
			case "accounts_blocked_balance_check":
				return domain.Account{}, domain.ErrInsufficientAvailableFunds
			}
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateStatusQuery = `
UPDATE accounts
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + columns

// UpdateStatus changes the account status.
func (r *RepoPGS) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, updateStatusQuery, id, status))
	if err != nil {
		l.Error().Err(err).Send()

		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}
