package domain

import "github.com/shopspring/decimal"

// PlanDelta computes the ledger entry that moves the locked account by arg.Amount.
//
// It must be called while the account is locked, the returned entry carries the
// next sequence number and the before/after snapshots.
func PlanDelta(acc Account, arg ApplyDeltaParams) (Entry, error) {
	if acc.Status != StatusActive {
		return Entry{}, ErrAccountInactive
	}

	newBalance := acc.Balance.Add(arg.Amount)

	if newBalance.IsNegative() {
		return Entry{}, ErrInsufficientFunds
	}

	if newBalance.LessThan(acc.BlockedBalance) {
		return Entry{}, ErrInsufficientAvailableFunds
	}

	e := Entry{
		AccountID:      acc.ID,
		Seq:            acc.EntrySeq + 1,
		Type:           arg.Type,
		Amount:         arg.Amount,
		BalanceBefore:  acc.Balance,
		BalanceAfter:   newBalance,
		Metadata:       arg.Metadata,
		IdempotencyKey: arg.IdempotencyKey,
	}

	return e, e.Validate()
}

// PlanBlock returns the blocked balance after reserving amount.
func PlanBlock(acc Account, amount decimal.Decimal) (decimal.Decimal, error) {
	if acc.Status != StatusActive {
		return decimal.Zero, ErrAccountInactive
	}

	if acc.Available().LessThan(amount) {
		return decimal.Zero, ErrInsufficientAvailableFunds
	}

	return acc.BlockedBalance.Add(amount), nil
}

// PlanUnblock returns the blocked balance after releasing amount, clamped at zero.
// Releasing more than is blocked is allowed.
func PlanUnblock(acc Account, amount decimal.Decimal) decimal.Decimal {
	blocked := acc.BlockedBalance.Sub(amount)
	if blocked.IsNegative() {
		return decimal.Zero
	}

	return blocked
}
