package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the kind of a balance movement.
type EntryType string

// Ledger entry types.
const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdraw   EntryType = "withdraw"
	EntryBet        EntryType = "bet"
	EntryWin        EntryType = "win"
	EntryBonus      EntryType = "bonus"
	EntryReferral   EntryType = "referral"
	EntryAdjustment EntryType = "adjustment"
)

// EntryTypes lists every supported entry type.
var EntryTypes = []EntryType{
	EntryDeposit,
	EntryWithdraw,
	EntryBet,
	EntryWin,
	EntryBonus,
	EntryReferral,
	EntryAdjustment,
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	for _, et := range EntryTypes {
		if et == t {
			return true
		}
	}

	return false
}

// Metadata bounds.
const (
	MaxMetadataKeys     = 16
	MaxMetadataKeyLen   = 64
	MaxMetadataValueLen = 256
	MaxIdempotencyKey   = 128
)

// Metadata is an opaque, size bounded key-value bag attached to a ledger entry.
// It is stored and returned as is and never inspected by the ledger.
type Metadata map[string]string

// Validate checks the metadata bounds.
func (m Metadata) Validate() error {
	if len(m) > MaxMetadataKeys {
		return ErrMetadataTooLarge
	}

	for k, v := range m {
		if len(k) == 0 || len(k) > MaxMetadataKeyLen || len(v) > MaxMetadataValueLen {
			return ErrMetadataTooLarge
		}
	}

	return nil
}

// Value implements driver.Valuer, metadata is stored as a JSON object.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var data []byte

	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", src)
	}

	out := Metadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}

	*m = out

	return nil
}

// Entry holds balance change data for an account. Entries are immutable.
type Entry struct {
	ID             int64           `json:"id"`
	ExternalID     string          `json:"external_id"`
	AccountID      int64           `json:"account_id"`
	Seq            int64           `json:"seq"`
	Type           EntryType       `json:"type"`
	Amount         decimal.Decimal `json:"amount"` // can be negative or positive
	BalanceBefore  decimal.Decimal `json:"balance_before"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Metadata       Metadata        `json:"metadata"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks that the entry is consistent on its own.
func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return ErrInvalidEntryType
	}

	if e.Amount.IsZero() {
		return ErrInvalidEntry
	}

	if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount)) {
		return ErrInvalidEntry
	}

	return e.Metadata.Validate()
}

// Matches reports whether the entry was produced by a request with the same parameters.
func (e Entry) Matches(arg ApplyDeltaParams) bool {
	return e.AccountID == arg.AccountID && e.Type == arg.Type && e.Amount.Equal(arg.Amount)
}

// ApplyDeltaParams is the input data for a balance mutation.
type ApplyDeltaParams struct {
	AccountID      int64           `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Type           EntryType       `json:"type"`
	Metadata       Metadata        `json:"metadata"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// MoveFundsParams is the input data of a deposit, withdrawal or adjustment.
// The entry type and the sign of the delta follow from the operation.
type MoveFundsParams struct {
	AccountID      int64           `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Metadata       Metadata        `json:"metadata"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// BalanceTxResult is the result of a balance mutation.
//
// Replayed is set when the idempotency key matched an earlier mutation and nothing was applied.
type BalanceTxResult struct {
	Account  Account `json:"account"`
	Entry    Entry   `json:"entry"`
	Replayed bool    `json:"replayed"`
}

// Pagination limits of the ledger history.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListEntriesParams is the input data to page through an account ledger.
type ListEntriesParams struct {
	Type  *EntryType
	Page  int32
	Limit int32
}

// Normalize applies the defaults and the limit cap.
func (p ListEntriesParams) Normalize() ListEntriesParams {
	if p.Page < 1 {
		p.Page = 1
	}

	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}

	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}

	return p
}

// Offset returns the number of entries to skip.
// It is computed in int64 so that large pages do not wrap around.
func (p ListEntriesParams) Offset() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// EntryPage is one page of an account ledger, newest first.
type EntryPage struct {
	Entries []Entry `json:"entries"`
	Page    int32   `json:"page"`
	Limit   int32   `json:"limit"`
	Total   int64   `json:"total"`
	Pages   int64   `json:"pages"`
}

// NewEntryPage builds a page and computes the page count.
func NewEntryPage(entries []Entry, p ListEntriesParams, total int64) EntryPage {
	limit := int64(p.Limit)

	return EntryPage{
		Entries: entries,
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Pages:   (total + limit - 1) / limit,
	}
}

// TypeTotal aggregates the entries of a single type.
type TypeTotal struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int64           `json:"count"`
}

// Report aggregates ledger entries by type.
type Report map[EntryType]TypeTotal

// Reconciliation compares the account balance with the sum of its ledger.
type Reconciliation struct {
	AccountID  int64           `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Consistent bool            `json:"consistent"`
}
