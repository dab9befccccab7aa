// Package entryrepo manages repository layer of ledger entries.
//
// The ledger is append-only: there is no update or delete statement in this package.
package entryrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/dbpkg"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const columns = `id, external_id, account_id, seq, type, amount, balance_before, balance_after,
    metadata, COALESCE(idempotency_key, ''), created_at`

func scan(row dbpkg.RowScanner) (domain.Entry, error) {
	var e domain.Entry

	err := row.Scan(
		&e.ID,
		&e.ExternalID,
		&e.AccountID,
		&e.Seq,
		&e.Type,
		&e.Amount,
		&e.BalanceBefore,
		&e.BalanceAfter,
		&e.Metadata,
		&e.IdempotencyKey,
		&e.CreatedAt,
	)

	return e, err
}

func nullType(t *domain.EntryType) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(*t), Valid: true}
}

const createQuery = `
INSERT INTO
    entries (external_id, account_id, seq, type, amount, balance_before, balance_after, metadata, idempotency_key)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + columns

// Create appends the entry to the ledger and then returns it.
//
// The caller must hold the account lock, e.Seq has to be the next account sequence number.
func (r *RepoPGS) Create(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	if err := e.Validate(); err != nil {
		l.Info().Err(err).Msgf("Create(ctx, %+v)", e)
		return domain.Entry{}, err
	}

	if e.ExternalID == "" {
		e.ExternalID = idpkg.New(idpkg.EntryPrefix)
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		e.ExternalID,
		e.AccountID,
		e.Seq,
		e.Type,
		e.Amount,
		e.BalanceBefore,
		e.BalanceAfter,
		e.Metadata,
		dbpkg.NullString(e.IdempotencyKey),
	)

	created, err := scan(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", e)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "entries_account_id_fkey":
				return domain.Entry{}, domain.ErrAccountNotFound
			case "entries_balance_chain_check", "entries_account_id_seq_key":
				return domain.Entry{}, domain.ErrInvalidEntry
			case "entries_type_check":
				return domain.Entry{}, domain.ErrInvalidEntryType
			case "entries_account_id_idempotency_key_key":
				return domain.Entry{}, domain.ErrIdempotencyConflict
			}
		}

		return domain.Entry{}, errorspkg.ErrInternal
	}

	return created, nil
}

const getByIdempotencyKeyQuery = `
SELECT ` + columns + `
FROM entries
WHERE account_id = $1 AND idempotency_key = $2
`

// GetByIdempotencyKey returns the entry recorded for the account under key.
func (r *RepoPGS) GetByIdempotencyKey(ctx context.Context, accountID int64, key string) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	e, err := scan(r.db.QueryRowContext(ctx, getByIdempotencyKeyQuery, accountID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Entry{}, domain.ErrEntryNotFound
		}

		l.Error().Err(err).Send()

		return domain.Entry{}, errorspkg.ErrInternal
	}

	return e, nil
}

const listQuery = `
SELECT ` + columns + `
FROM entries
WHERE account_id = $1 AND ($2::text IS NULL OR type = $2)
ORDER BY seq DESC
LIMIT $3 OFFSET $4
`

// List returns a page of the account entries, newest first.
func (r *RepoPGS) List(ctx context.Context, accountID int64, arg domain.ListEntriesParams) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, nullType(arg.Type), arg.Limit, arg.Offset())
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Entry{}

	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const countQuery = `
SELECT COUNT(*)
FROM entries
WHERE account_id = $1 AND ($2::text IS NULL OR type = $2)
`

// Count returns the number of account entries, optionally of a single type.
func (r *RepoPGS) Count(ctx context.Context, accountID int64, typ *domain.EntryType) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countQuery, accountID, nullType(typ)).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

const sumQuery = `
SELECT COALESCE(SUM(amount), 0)
FROM entries
WHERE account_id = $1
`

// Sum returns the total of the account entry amounts, zero for an empty ledger.
func (r *RepoPGS) Sum(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, sumQuery, accountID).Scan(&sum); err != nil {
		l.Error().Err(err).Send()
		return decimal.Zero, errorspkg.ErrInternal
	}

	return sum, nil
}

const reconciliationQuery = `
SELECT a.balance, COALESCE((SELECT SUM(e.amount) FROM entries e WHERE e.account_id = a.id), 0)
FROM accounts a
WHERE a.id = $1
`

// Reconciliation reads the account balance and its ledger sum in one statement,
// so both values come from the same snapshot.
func (r *RepoPGS) Reconciliation(ctx context.Context, accountID int64) (domain.Reconciliation, error) {
	l := zerolog.Ctx(ctx)

	rec := domain.Reconciliation{AccountID: accountID}

	err := r.db.QueryRowContext(ctx, reconciliationQuery, accountID).Scan(&rec.Balance, &rec.LedgerSum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reconciliation{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Reconciliation{}, errorspkg.ErrInternal
	}

	return rec, nil
}

const reportQuery = `
SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
FROM entries
WHERE created_at BETWEEN $1 AND $2 AND ($3::text IS NULL OR type = $3)
GROUP BY type
`

// Report aggregates entries created within [start, end] by type.
func (r *RepoPGS) Report(ctx context.Context, start, end time.Time, typ *domain.EntryType) (domain.Report, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, reportQuery, start, end, nullType(typ))
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	report := domain.Report{}

	for rows.Next() {
		var (
			t     domain.EntryType
			total domain.TypeTotal
		)

		if err := rows.Scan(&t, &total.TotalAmount, &total.Count); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		report[t] = total
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return report, nil
}
