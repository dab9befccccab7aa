// Package eventpub publishes committed ledger entries to NATS.
//
// Events are published after the storage transaction commits. Publication is
// best effort: a failure never rolls back or fails the balance mutation.
package eventpub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

// Conn is the part of *nats.Conn used by Publisher.
type Conn interface {
	Publish(subject string, data []byte) error
}

// EntryEvent is the message published for every appended ledger entry.
type EntryEvent struct {
	EntryID       string           `json:"entry_id"`
	AccountID     int64            `json:"account_id"`
	Seq           int64            `json:"seq"`
	Type          domain.EntryType `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	BalanceBefore decimal.Decimal  `json:"balance_before"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	Metadata      domain.Metadata  `json:"metadata,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewEntryEvent builds the event of e.
func NewEntryEvent(e domain.Entry) EntryEvent {
	return EntryEvent{
		EntryID:       e.ExternalID,
		AccountID:     e.AccountID,
		Seq:           e.Seq,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Metadata:      e.Metadata,
		CreatedAt:     e.CreatedAt,
	}
}

// Publisher publishes entry events under a subject prefix.
type Publisher struct {
	conn   Conn
	prefix string
}

// New returns Publisher that sends to <prefix>.entries.<type>.
func New(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("pet-casino"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
}

// Subject returns the subject of entries of type t.
func (p *Publisher) Subject(t domain.EntryType) string {
	return fmt.Sprintf("%s.entries.%s", p.prefix, t)
}

// Publish sends the event of e.
func (p *Publisher) Publish(ctx context.Context, e domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewEntryEvent(e))
	if err != nil {
		return fmt.Errorf("marshal entry event: %w", err)
	}

	if err := p.conn.Publish(p.Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish entry %s: %w", e.ExternalID, err)
	}

	return nil
}
