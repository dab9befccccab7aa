// Package memrepo is an in-memory storage backend for accounts and their ledgers.
//
// Each account is guarded by its own lock, so mutations of one account serialize
// while different accounts proceed in parallel. State is lost on restart.
package memrepo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type accountState struct {
	mu      sync.RWMutex
	account domain.Account
	entries []domain.Entry // ordered by seq
	byKey   map[string]int // idempotency key to entries index
}

// Store keeps accounts and ledger entries in memory.
type Store struct {
	mu        sync.RWMutex // guards accounts and usernames, never held during a mutation
	accounts  map[int64]*accountState
	usernames map[string]int64

	lastAccountID atomic.Int64
	lastEntryID   atomic.Int64

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts:  make(map[int64]*accountState),
		usernames: make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) state(id int64) (*accountState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return st, nil
}

// Create creates the account with zero balance and then returns it.
func (s *Store) Create(ctx context.Context, externalID, username string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[username]; ok {
		zerolog.Ctx(ctx).Info().Str("username", username).Msg("username already exists")
		return domain.Account{}, domain.ErrUsernameAlreadyExists
	}

	now := s.now()

	a := domain.Account{
		ID:             s.lastAccountID.Add(1),
		ExternalID:     externalID,
		Username:       username,
		Balance:        decimal.Zero,
		BlockedBalance: decimal.Zero,
		Status:         domain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.accounts[a.ID] = &accountState{account: a, byKey: make(map[string]int)}
	s.usernames[username] = a.ID

	return a, nil
}

// Get returns the account with the given id.
func (s *Store) Get(ctx context.Context, id int64) (domain.Account, error) {
	st, err := s.state(id)
	if err != nil {
		return domain.Account{}, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.account, nil
}

// GetAccount returns a snapshot of the account.
func (s *Store) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	return s.Get(ctx, id)
}

// UpdateStatus changes the account status.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error) {
	st, err := s.state(id)
	if err != nil {
		return domain.Account{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.account.Status = status
	st.account.UpdatedAt = s.now()

	return st.account, nil
}

// ApplyDelta adds arg.Amount to the account balance and appends the matching ledger entry.
func (s *Store) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.BalanceTxResult, error) {
	st, err := s.state(arg.AccountID)
	if err != nil {
		return domain.BalanceTxResult{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if arg.IdempotencyKey != "" {
		if i, ok := st.byKey[arg.IdempotencyKey]; ok {
			prev := st.entries[i]
			if !prev.Matches(arg) {
				return domain.BalanceTxResult{}, domain.ErrIdempotencyConflict
			}

			return domain.BalanceTxResult{Account: st.account, Entry: cloneEntry(prev), Replayed: true}, nil
		}
	}

	entry, err := domain.PlanDelta(st.account, arg)
	if err != nil {
		return domain.BalanceTxResult{}, err
	}

	now := s.now()

	entry.ID = s.lastEntryID.Add(1)
	entry.ExternalID = idpkg.New(idpkg.EntryPrefix)
	entry.Metadata = copyMetadata(entry.Metadata)
	entry.CreatedAt = now

	st.entries = append(st.entries, entry)
	if entry.IdempotencyKey != "" {
		st.byKey[entry.IdempotencyKey] = len(st.entries) - 1
	}

	st.account.Balance = entry.BalanceAfter
	st.account.EntrySeq = entry.Seq
	st.account.UpdatedAt = now

	return domain.BalanceTxResult{Account: st.account, Entry: cloneEntry(entry)}, nil
}

// BlockFunds moves amount from the available to the blocked balance.
func (s *Store) BlockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error) {
	return s.updateBlocked(id, func(a domain.Account) (decimal.Decimal, error) {
		return domain.PlanBlock(a, amount)
	})
}

// UnblockFunds releases up to amount of the blocked balance.
func (s *Store) UnblockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error) {
	return s.updateBlocked(id, func(a domain.Account) (decimal.Decimal, error) {
		return domain.PlanUnblock(a, amount), nil
	})
}

func (s *Store) updateBlocked(id int64, plan func(domain.Account) (decimal.Decimal, error)) (domain.Account, error) {
	st, err := s.state(id)
	if err != nil {
		return domain.Account{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	blocked, err := plan(st.account)
	if err != nil {
		return domain.Account{}, err
	}

	st.account.BlockedBalance = blocked
	st.account.UpdatedAt = s.now()

	return st.account, nil
}

func matchType(e domain.Entry, typ *domain.EntryType) bool {
	return typ == nil || e.Type == *typ
}

// List returns a page of the account entries, newest first.
func (s *Store) List(ctx context.Context, accountID int64, arg domain.ListEntriesParams) ([]domain.Entry, error) {
	st, err := s.state(accountID)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	offset := arg.Offset()
	items := []domain.Entry{}

	for i := len(st.entries) - 1; i >= 0 && len(items) < int(arg.Limit); i-- {
		if !matchType(st.entries[i], arg.Type) {
			continue
		}

		if offset > 0 {
			offset--
			continue
		}

		items = append(items, cloneEntry(st.entries[i]))
	}

	return items, nil
}

// Count returns the number of account entries, optionally of a single type.
func (s *Store) Count(ctx context.Context, accountID int64, typ *domain.EntryType) (int64, error) {
	st, err := s.state(accountID)
	if err != nil {
		return 0, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	var n int64

	for _, e := range st.entries {
		if matchType(e, typ) {
			n++
		}
	}

	return n, nil
}

// Sum returns the total of the account entry amounts.
func (s *Store) Sum(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	st, err := s.state(accountID)
	if err != nil {
		return decimal.Zero, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range st.entries {
		sum = sum.Add(e.Amount)
	}

	return sum, nil
}

// Reconciliation reads the account balance and its ledger sum under the account lock.
func (s *Store) Reconciliation(ctx context.Context, accountID int64) (domain.Reconciliation, error) {
	st, err := s.state(accountID)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	rec := domain.Reconciliation{AccountID: accountID, Balance: st.account.Balance, LedgerSum: decimal.Zero}
	for _, e := range st.entries {
		rec.LedgerSum = rec.LedgerSum.Add(e.Amount)
	}

	return rec, nil
}

// Report aggregates entries created within [start, end] by type.
func (s *Store) Report(ctx context.Context, start, end time.Time, typ *domain.EntryType) (domain.Report, error) {
	s.mu.RLock()
	states := make([]*accountState, 0, len(s.accounts))
	for _, st := range s.accounts {
		states = append(states, st)
	}
	s.mu.RUnlock()

	report := domain.Report{}

	for _, st := range states {
		st.mu.RLock()
		for _, e := range st.entries {
			if !matchType(e, typ) || e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
				continue
			}

			total := report[e.Type]
			total.TotalAmount = total.TotalAmount.Add(e.Amount)
			total.Count++
			report[e.Type] = total
		}
		st.mu.RUnlock()
	}

	return report, nil
}

// cloneEntry detaches e from the stored ledger so callers cannot mutate it.
func cloneEntry(e domain.Entry) domain.Entry {
	e.Metadata = copyMetadata(e.Metadata)
	return e
}

func copyMetadata(m domain.Metadata) domain.Metadata {
	out := make(domain.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
