// Package ledgerservice manages the read side of the transaction ledger.
package ledgerservice

import (
	"context"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	List(ctx context.Context, accountID int64, arg domain.ListEntriesParams) ([]domain.Entry, error)
	Count(ctx context.Context, accountID int64, typ *domain.EntryType) (int64, error)
	Sum(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Reconciliation(ctx context.Context, accountID int64) (domain.Reconciliation, error)
	Report(ctx context.Context, start, end time.Time, typ *domain.EntryType) (domain.Report, error)
}

// AccountRepo provides account lookups needed by ledger service layer.
type AccountRepo interface {
	Get(ctx context.Context, id int64) (domain.Account, error)
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo     Repo
	accounts AccountRepo
}

// New returns ledger service struct.
func New(repo Repo, accounts AccountRepo) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// List returns one page of the account ledger, newest first.
func (s *Service) List(ctx context.Context, accountID int64, arg domain.ListEntriesParams) (domain.EntryPage, error) {
	l := zerolog.Ctx(ctx)

	if arg.Type != nil && !arg.Type.Valid() {
		l.Info().Str("type", string(*arg.Type)).Msg("unknown entry type")
		return domain.EntryPage{}, domain.ErrInvalidEntryType
	}

	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return domain.EntryPage{}, err
	}

	arg = arg.Normalize()

	total, err := s.repo.Count(ctx, accountID, arg.Type)
	if err != nil {
		return domain.EntryPage{}, err
	}

	entries, err := s.repo.List(ctx, accountID, arg)
	if err != nil {
		return domain.EntryPage{}, err
	}

	return domain.NewEntryPage(entries, arg, total), nil
}

// Sum returns the total of the account entry amounts.
func (s *Service) Sum(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	return s.repo.Sum(ctx, accountID)
}

// Report aggregates the entries created within [start, end] by type.
func (s *Service) Report(ctx context.Context, start, end time.Time, typ *domain.EntryType) (domain.Report, error) {
	l := zerolog.Ctx(ctx)

	if end.Before(start) {
		l.Info().Time("start", start).Time("end", end).Err(domain.ErrInvalidTimeRange).Send()
		return nil, domain.ErrInvalidTimeRange
	}

	if typ != nil && !typ.Valid() {
		return nil, domain.ErrInvalidEntryType
	}

	return s.repo.Report(ctx, start, end, typ)
}

// Reconcile compares the account balance with the sum of its ledger.
// Both values come from one snapshot of the account.
//
// A mismatch is returned together with ErrReconciliationMismatch.
func (s *Service) Reconcile(ctx context.Context, accountID int64) (domain.Reconciliation, error) {
	l := zerolog.Ctx(ctx)

	rec, err := s.repo.Reconciliation(ctx, accountID)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	rec.Consistent = rec.Balance.Equal(rec.LedgerSum)

	if !rec.Consistent {
		l.Error().
			Int64("account_id", accountID).
			Str("balance", rec.Balance.String()).
			Str("ledger_sum", rec.LedgerSum.String()).
			Err(domain.ErrReconciliationMismatch).
			Send()

		return rec, domain.ErrReconciliationMismatch
	}

	return rec, nil
}
