// Package helpers provides shared test helpers.
package helpers

import (
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/go-petr/pet-casino/pkg/randompkg"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// EquateDecimal compares decimals by value, so 1.5 equals 1.50000000.
var EquateDecimal = cmp.Comparer(func(x, y decimal.Decimal) bool {
	return x.Equal(y)
})

// RandomAccount returns a random active account with the given balances.
func RandomAccount(balance, blocked string) domain.Account {
	return domain.Account{
		ID:             randompkg.IntBetween(1, 100),
		ExternalID:     idpkg.New(idpkg.AccountPrefix),
		Username:       randompkg.Username(),
		Balance:        decimal.RequireFromString(balance),
		BlockedBalance: decimal.RequireFromString(blocked),
		Status:         domain.StatusActive,
		CreatedAt:      time.Now().Truncate(time.Second).UTC(),
		UpdatedAt:      time.Now().Truncate(time.Second).UTC(),
	}
}

// RandomEntry returns a valid entry of the given type moving the balance from before by amount.
func RandomEntry(accountID, seq int64, typ domain.EntryType, before, amount string) domain.Entry {
	b := decimal.RequireFromString(before)
	a := decimal.RequireFromString(amount)

	return domain.Entry{
		ID:            randompkg.IntBetween(1, 1000),
		ExternalID:    idpkg.New(idpkg.EntryPrefix),
		AccountID:     accountID,
		Seq:           seq,
		Type:          typ,
		Amount:        a,
		BalanceBefore: b,
		BalanceAfter:  b.Add(a),
		Metadata:      domain.Metadata{"source": randompkg.String(6)},
		CreatedAt:     time.Now().Truncate(time.Second).UTC(),
	}
}
