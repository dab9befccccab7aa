package entryrepo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/integrationtest/helpers"
	"github.com/go-petr/pet-casino/pkg/errorspkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*RepoPGS, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() returned error: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return NewRepoPGS(db), mock
}

func TestCreate(t *testing.T) {
	t.Parallel()

	testEntry := helpers.RandomEntry(7, 3, domain.EntryBet, "100", "-25.5")
	testEntry.IdempotencyKey = "round-42"

	expectInsert := func(mock sqlmock.Sqlmock) *sqlmock.ExpectedQuery {
		return mock.ExpectQuery(regexp.QuoteMeta(createQuery)).WithArgs(
			testEntry.ExternalID,
			testEntry.AccountID,
			testEntry.Seq,
			string(testEntry.Type),
			testEntry.Amount,
			testEntry.BalanceBefore,
			testEntry.BalanceAfter,
			testEntry.Metadata,
			testEntry.IdempotencyKey,
		)
	}

	testCases := []struct {
		name    string
		entry   func() domain.Entry
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:  "OK",
			entry: func() domain.Entry { return testEntry },
			setup: func(mock sqlmock.Sqlmock) {
				expectInsert(mock).WillReturnRows(helpers.EntryRows(testEntry))
			},
		},
		{
			name: "BrokenBalanceChain",
			entry: func() domain.Entry {
				e := testEntry
				e.BalanceAfter = decimal.RequireFromString("75")
				return e
			},
			setup:   func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name: "ZeroAmount",
			entry: func() domain.Entry {
				e := testEntry
				e.Amount = decimal.Zero
				e.BalanceAfter = e.BalanceBefore
				return e
			},
			setup:   func(mock sqlmock.Sqlmock) {},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name:  "AccountNotFound",
			entry: func() domain.Entry { return testEntry },
			setup: func(mock sqlmock.Sqlmock) {
				expectInsert(mock).WillReturnError(&pq.Error{Constraint: "entries_account_id_fkey"})
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:  "DuplicateIdempotencyKey",
			entry: func() domain.Entry { return testEntry },
			setup: func(mock sqlmock.Sqlmock) {
				expectInsert(mock).WillReturnError(&pq.Error{Constraint: "entries_account_id_idempotency_key_key"})
			},
			wantErr: domain.ErrIdempotencyConflict,
		},
		{
			name:  "DuplicateSeq",
			entry: func() domain.Entry { return testEntry },
			setup: func(mock sqlmock.Sqlmock) {
				expectInsert(mock).WillReturnError(&pq.Error{Constraint: "entries_account_id_seq_key"})
			},
			wantErr: domain.ErrInvalidEntry,
		},
		{
			name:  "ConnectionError",
			entry: func() domain.Entry { return testEntry },
			setup: func(mock sqlmock.Sqlmock) {
				expectInsert(mock).WillReturnError(sql.ErrConnDone)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMock(t)
			tc.setup(mock)

			arg := tc.entry()

			got, err := repo.Create(context.Background(), arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Create(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
			}

			if tc.wantErr == nil {
				if diff := cmp.Diff(testEntry, got, helpers.EquateDecimal); diff != "" {
					t.Errorf("repo.Create(ctx, %+v) returned unexpected difference (-want +got):\n%s", arg, diff)
				}
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateAssignsExternalID(t *testing.T) {
	t.Parallel()

	repo, mock := newMock(t)

	e := helpers.RandomEntry(1, 1, domain.EntryDeposit, "0", "10")
	e.ExternalID = ""

	mock.ExpectQuery(regexp.QuoteMeta(createQuery)).
		WithArgs(sqlmock.AnyArg(), e.AccountID, e.Seq, string(e.Type), e.Amount,
			e.BalanceBefore, e.BalanceAfter, e.Metadata, nil).
		WillReturnRows(helpers.EntryRows(e))

	_, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIdempotencyKey(t *testing.T) {
	t.Parallel()

	repo, mock := newMock(t)

	want := helpers.RandomEntry(3, 1, domain.EntryWin, "0", "12.34567891")
	want.IdempotencyKey = "key-1"

	mock.ExpectQuery(regexp.QuoteMeta(getByIdempotencyKeyQuery)).
		WithArgs(want.AccountID, want.IdempotencyKey).
		WillReturnRows(helpers.EntryRows(want))

	got, err := repo.GetByIdempotencyKey(context.Background(), want.AccountID, want.IdempotencyKey)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, helpers.EquateDecimal); diff != "" {
		t.Errorf("repo.GetByIdempotencyKey returned unexpected difference (-want +got):\n%s", diff)
	}

	mock.ExpectQuery(regexp.QuoteMeta(getByIdempotencyKeyQuery)).
		WithArgs(want.AccountID, "missing").
		WillReturnRows(helpers.EntryRows())

	_, err = repo.GetByIdempotencyKey(context.Background(), want.AccountID, "missing")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	t.Parallel()

	const accountID = 5

	var entries []domain.Entry

	balance := decimal.Zero
	for seq := int64(1); seq <= 25; seq++ {
		e := helpers.RandomEntry(accountID, seq, domain.EntryDeposit, balance.String(), "1")
		balance = e.BalanceAfter
		entries = append([]domain.Entry{e}, entries...)
	}

	bet := domain.EntryBet

	testCases := []struct {
		name     string
		arg      domain.ListEntriesParams
		wantType interface{}
		want     []domain.Entry
	}{
		{
			name:     "FirstPage",
			arg:      domain.ListEntriesParams{Page: 1, Limit: 10},
			wantType: nil,
			want:     entries[:10],
		},
		{
			name:     "LastPage",
			arg:      domain.ListEntriesParams{Page: 3, Limit: 10},
			wantType: nil,
			want:     entries[20:],
		},
		{
			name:     "FilteredByType",
			arg:      domain.ListEntriesParams{Type: &bet, Page: 1, Limit: 10},
			wantType: "bet",
			want:     []domain.Entry{},
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMock(t)

			mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
				WithArgs(int64(accountID), tc.wantType, tc.arg.Limit, tc.arg.Offset()).
				WillReturnRows(helpers.EntryRows(tc.want...))

			got, err := repo.List(context.Background(), accountID, tc.arg)
			require.NoError(t, err)

			if diff := cmp.Diff(tc.want, got, helpers.EquateDecimal, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("repo.List(ctx, %v, %+v) returned unexpected difference (-want +got):\n%s",
					accountID, tc.arg, diff)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListQueryError(t *testing.T) {
	t.Parallel()

	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WillReturnError(sql.ErrConnDone)

	_, err := repo.List(context.Background(), 1, domain.ListEntriesParams{Page: 1, Limit: 10})
	require.ErrorIs(t, err, errorspkg.ErrInternal)
}

func TestCountAndSum(t *testing.T) {
	t.Parallel()

	repo, mock := newMock(t)

	win := domain.EntryWin

	mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WithArgs(int64(9), "win").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := repo.Count(context.Background(), 9, &win)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	mock.ExpectQuery(regexp.QuoteMeta(sumQuery)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("40.00000001"))

	sum, err := repo.Sum(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, sum.Equal(decimal.RequireFromString("40.00000001")), "sum = %v", sum)

	mock.ExpectQuery(regexp.QuoteMeta(sumQuery)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("0"))

	sum, err = repo.Sum(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, sum.IsZero())

	mock.ExpectQuery(regexp.QuoteMeta(sumQuery)).
		WithArgs(int64(11)).
		WillReturnError(sql.ErrConnDone)

	_, err = repo.Sum(context.Background(), 11)
	require.ErrorIs(t, err, errorspkg.ErrInternal)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		buildStubs  func(mock sqlmock.Sqlmock)
		wantBalance string
		wantSum     string
		wantErr     error
	}{
		{
			name: "OK",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(reconciliationQuery)).
					WithArgs(int64(9)).
					WillReturnRows(sqlmock.NewRows([]string{"balance", "sum"}).AddRow("40.50000000", "40.5"))
			},
			wantBalance: "40.5",
			wantSum:     "40.5",
		},
		{
			name: "AccountNotFound",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(reconciliationQuery)).
					WithArgs(int64(9)).
					WillReturnRows(sqlmock.NewRows([]string{"balance", "sum"}))
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ConnectionError",
			buildStubs: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(reconciliationQuery)).
					WithArgs(int64(9)).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo, mock := newMock(t)
			tc.buildStubs(mock)

			got, err := repo.Reconciliation(context.Background(), 9)
			require.ErrorIs(t, err, tc.wantErr)
			require.NoError(t, mock.ExpectationsWereMet())

			if tc.wantErr != nil {
				return
			}

			require.Equal(t, int64(9), got.AccountID)
			require.True(t, got.Balance.Equal(decimal.RequireFromString(tc.wantBalance)), "balance = %v", got.Balance)
			require.True(t, got.LedgerSum.Equal(decimal.RequireFromString(tc.wantSum)), "sum = %v", got.LedgerSum)
		})
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	repo, mock := newMock(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(reportQuery)).
		WithArgs(start, end, nil).
		WillReturnRows(sqlmock.NewRows([]string{"type", "sum", "count"}).
			AddRow("deposit", "300", int64(3)).
			AddRow("bet", "-50.5", int64(2)))

	got, err := repo.Report(context.Background(), start, end, nil)
	require.NoError(t, err)

	want := domain.Report{
		domain.EntryDeposit: {TotalAmount: decimal.RequireFromString("300"), Count: 3},
		domain.EntryBet:     {TotalAmount: decimal.RequireFromString("-50.5"), Count: 2},
	}

	if diff := cmp.Diff(want, got, helpers.EquateDecimal); diff != "" {
		t.Errorf("repo.Report returned unexpected difference (-want +got):\n%s", diff)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}
