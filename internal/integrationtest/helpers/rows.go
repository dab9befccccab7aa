package helpers

import (
	"encoding/json"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-petr/pet-casino/internal/domain"
)

// AccountRows returns sqlmock rows shaped like an accounts query result.
func AccountRows(accounts ...domain.Account) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "external_id", "username", "balance", "blocked_balance",
		"status", "entry_seq", "created_at", "updated_at",
	})

	for _, a := range accounts {
		rows.AddRow(
			a.ID,
			a.ExternalID,
			a.Username,
			a.Balance.String(),
			a.BlockedBalance.String(),
			string(a.Status),
			a.EntrySeq,
			a.CreatedAt,
			a.UpdatedAt,
		)
	}

	return rows
}

// EntryRows returns sqlmock rows shaped like an entries query result.
func EntryRows(entries ...domain.Entry) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "external_id", "account_id", "seq", "type", "amount", "balance_before",
		"balance_after", "metadata", "idempotency_key", "created_at",
	})

	for _, e := range entries {
		metadata, _ := json.Marshal(e.Metadata)

		rows.AddRow(
			e.ID,
			e.ExternalID,
			e.AccountID,
			e.Seq,
			string(e.Type),
			e.Amount.String(),
			e.BalanceBefore.String(),
			e.BalanceAfter.String(),
			metadata,
			e.IdempotencyKey,
			e.CreatedAt,
		)
	}

	return rows
}
