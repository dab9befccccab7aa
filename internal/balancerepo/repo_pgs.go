// Package balancerepo manages the transactional balance mutations.
//
// Every mutation locks the account row with SELECT ... FOR UPDATE, applies the
// domain rules to the locked snapshot and persists the account together with its
// ledger entry in a single database transaction.
package balancerepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-casino/internal/accountrepo"
	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/entryrepo"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates balance repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns balance RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{conn: db}
}

type txRepos struct {
	accounts *accountrepo.RepoPGS
	entries  *entryrepo.RepoPGS
}

// execTx runs fn within a database transaction and commits it when fn succeeds.
func (r *RepoPGS) execTx(ctx context.Context, fn func(repos txRepos) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	repos := txRepos{
		accounts: accountrepo.NewRepoPGS(tx),
		entries:  entryrepo.NewRepoPGS(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		// The commit may have reached the server, the outcome is unknown.
		l.Error().Err(err).Msg("commit failed")
		return errorspkg.ErrInternal
	}

	return nil
}

// GetAccount returns a snapshot of the account without locking it.
func (r *RepoPGS) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	return accountrepo.NewRepoPGS(r.conn).Get(ctx, id)
}

// ApplyDelta adds arg.Amount to the account balance and appends the matching ledger entry.
//
// When arg.IdempotencyKey was already used for the account the recorded entry is returned
// with Replayed set and nothing is applied.
func (r *RepoPGS) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.BalanceTxResult, error) {
	var result domain.BalanceTxResult

	err := r.execTx(ctx, func(repos txRepos) error {
		account, err := repos.accounts.GetForUpdate(ctx, arg.AccountID)
		if err != nil {
			return err
		}

		if arg.IdempotencyKey != "" {
			prev, err := repos.entries.GetByIdempotencyKey(ctx, arg.AccountID, arg.IdempotencyKey)
			switch {
			case err == nil:
				if !prev.Matches(arg) {
					return domain.ErrIdempotencyConflict
				}

				result = domain.BalanceTxResult{Account: account, Entry: prev, Replayed: true}

				return nil
			case !errors.Is(err, domain.ErrEntryNotFound):
				return err
			}
		}

		planned, err := domain.PlanDelta(account, arg)
		if err != nil {
			return err
		}

		entry, err := repos.entries.Create(ctx, planned)
		if err != nil {
			return err
		}

		account, err = repos.accounts.UpdateBalances(ctx, domain.UpdateBalancesParams{
			ID:             account.ID,
			Balance:        entry.BalanceAfter,
			BlockedBalance: account.BlockedBalance,
			EntrySeq:       entry.Seq,
		})
		if err != nil {
			return err
		}

		result = domain.BalanceTxResult{Account: account, Entry: entry}

		return nil
	})
	if err != nil {
		return domain.BalanceTxResult{}, err
	}

	return result, nil
}

// BlockFunds moves amount from the available to the blocked balance.
func (r *RepoPGS) BlockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error) {
	return r.updateBlocked(ctx, id, func(account domain.Account) (decimal.Decimal, error) {
		return domain.PlanBlock(account, amount)
	})
}

// UnblockFunds releases up to amount of the blocked balance.
func (r *RepoPGS) UnblockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error) {
	return r.updateBlocked(ctx, id, func(account domain.Account) (decimal.Decimal, error) {
		return domain.PlanUnblock(account, amount), nil
	})
}

func (r *RepoPGS) updateBlocked(ctx context.Context, id int64, plan func(domain.Account) (decimal.Decimal, error)) (domain.Account, error) {
	var result domain.Account

	err := r.execTx(ctx, func(repos txRepos) error {
		account, err := repos.accounts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		blocked, err := plan(account)
		if err != nil {
			return err
		}

		result, err = repos.accounts.UpdateBalances(ctx, domain.UpdateBalancesParams{
			ID:             account.ID,
			Balance:        account.Balance,
			BlockedBalance: blocked,
			EntrySeq:       account.EntrySeq,
		})

		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	return result, nil
}
