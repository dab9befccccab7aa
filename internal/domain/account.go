package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the soft lifecycle state of an account.
type AccountStatus string

// Account statuses. Only active accounts may change their balance.
const (
	StatusActive  AccountStatus = "active"
	StatusBlocked AccountStatus = "blocked"
	StatusFrozen  AccountStatus = "frozen"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusFrozen:
		return true
	}

	return false
}

// Account holds user balance data.
//
// Balance is a materialized cache of the account ledger: it always equals the sum
// of the account entry amounts. BlockedBalance is reserved but not yet debited.
type Account struct {
	ID             int64           `json:"id"`
	ExternalID     string          `json:"external_id"`
	Username       string          `json:"username"`
	Balance        decimal.Decimal `json:"balance"`
	BlockedBalance decimal.Decimal `json:"blocked_balance"`
	Status         AccountStatus   `json:"status"`
	EntrySeq       int64           `json:"entry_seq"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Available returns the funds free to withdraw or wager.
func (a Account) Available() decimal.Decimal {
	return a.Balance.Sub(a.BlockedBalance)
}

// BalanceView is the presentation of an account balance.
type BalanceView struct {
	AccountID        int64           `json:"account_id"`
	Balance          decimal.Decimal `json:"balance"`
	BlockedBalance   decimal.Decimal `json:"blocked_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Status           AccountStatus   `json:"status"`
}

// View returns the balance presentation of the account.
func (a Account) View() BalanceView {
	return BalanceView{
		AccountID:        a.ID,
		Balance:          a.Balance,
		BlockedBalance:   a.BlockedBalance,
		AvailableBalance: a.Available(),
		Status:           a.Status,
	}
}

// UpdateBalancesParams is the input data to persist a balance change.
type UpdateBalancesParams struct {
	ID             int64
	Balance        decimal.Decimal
	BlockedBalance decimal.Decimal
	EntrySeq       int64
}
