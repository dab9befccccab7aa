// Package balanceservice manages business logic layer of balances.
//
// It validates requests and delegates the locked read-check-write to the storage
// backend. Idempotency cache lookups and event publication happen outside the
// storage transaction.
package balanceservice

import (
	"context"
	"time"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/metrics"
	"github.com/go-petr/pet-casino/pkg/moneypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by balance service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package balanceservice
type Repo interface {
	GetAccount(ctx context.Context, id int64) (domain.Account, error)
	ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.BalanceTxResult, error)
	BlockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error)
	UnblockFunds(ctx context.Context, id int64, amount decimal.Decimal) (domain.Account, error)
}

// Cache keeps results of idempotent mutations.
type Cache interface {
	Get(ctx context.Context, accountID int64, idempotencyKey string) (domain.BalanceTxResult, bool)
	Set(ctx context.Context, accountID int64, idempotencyKey string, res domain.BalanceTxResult)
}

// Publisher announces committed ledger entries.
type Publisher interface {
	Publish(ctx context.Context, e domain.Entry) error
}

// Operation names used in metrics.
const (
	OpApplyDelta   = "apply_delta"
	OpBlockFunds   = "block_funds"
	OpUnblockFunds = "unblock_funds"
)

// Service facilitates balance service layer logic.
type Service struct {
	repo      Repo
	cache     Cache
	publisher Publisher
	metrics   *metrics.Metrics
}

// Option configures optional collaborators of Service.
type Option func(*Service)

// WithCache sets the idempotency result cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublisher sets the ledger event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns balance service struct to manage balance bussines logic.
func New(repo Repo, opts ...Option) *Service {
	s := &Service{repo: repo}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func logFailure(l *zerolog.Logger, err error, msg string) {
	if domain.IsBusinessError(err) {
		l.Info().Err(err).Msg(msg)
		return
	}

	l.Error().Err(err).Msg(msg)
}

func validAmount(amount decimal.Decimal) error {
	if amount.IsZero() || !moneypkg.HasValidScale(amount) {
		return domain.ErrInvalidAmount
	}

	return nil
}

func validPositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}

	return validAmount(amount)
}

func validDelta(arg domain.ApplyDeltaParams) error {
	if err := validAmount(arg.Amount); err != nil {
		return err
	}

	if !arg.Type.Valid() {
		return domain.ErrInvalidEntryType
	}

	if err := arg.Metadata.Validate(); err != nil {
		return err
	}

	if len(arg.IdempotencyKey) > domain.MaxIdempotencyKey {
		return domain.ErrInvalidIdempotencyKey
	}

	return nil
}

// ApplyDelta atomically adds arg.Amount to the account balance and appends a ledger entry.
func (s *Service) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (res domain.BalanceTxResult, err error) {
	l := zerolog.Ctx(ctx)

	defer func(start time.Time) { s.metrics.Observe(OpApplyDelta, start, err) }(time.Now())

	if err := validDelta(arg); err != nil {
		l.Info().Err(err).Msgf("ApplyDelta(ctx, %+v)", arg)
		return domain.BalanceTxResult{}, err
	}

	if arg.IdempotencyKey != "" && s.cache != nil {
		if cached, ok := s.cache.Get(ctx, arg.AccountID, arg.IdempotencyKey); ok && cached.Entry.Matches(arg) {
			// The cached account is a snapshot from the first call, replays report the current one.
			if account, err := s.repo.GetAccount(ctx, arg.AccountID); err == nil {
				cached.Account = account
				cached.Replayed = true
				s.metrics.Replayed()

				return cached, nil
			}
		}
	}

	res, err = s.repo.ApplyDelta(ctx, arg)
	if err != nil {
		logFailure(l, err, "apply delta")
		return domain.BalanceTxResult{}, err
	}

	if res.Replayed {
		s.metrics.Replayed()
		l.Info().Str("idempotency_key", arg.IdempotencyKey).Str("entry_id", res.Entry.ExternalID).Msg("replayed")
	} else {
		l.Info().
			Int64("account_id", res.Account.ID).
			Str("entry_id", res.Entry.ExternalID).
			Str("type", string(res.Entry.Type)).
			Str("amount", res.Entry.Amount.String()).
			Msg("entry appended")

		s.publish(ctx, res.Entry)
	}

	if arg.IdempotencyKey != "" && s.cache != nil {
		s.cache.Set(ctx, arg.AccountID, arg.IdempotencyKey, res)
	}

	return res, nil
}

func (s *Service) publish(ctx context.Context, e domain.Entry) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.PublishFailed()
		zerolog.Ctx(ctx).Warn().Err(err).Str("entry_id", e.ExternalID).Msg("publish entry")
	}
}

// Deposit credits a positive amount to the account.
func (s *Service) Deposit(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error) {
	return s.move(ctx, arg, domain.EntryDeposit, false)
}

// Withdraw debits a positive amount from the account available balance.
func (s *Service) Withdraw(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error) {
	return s.move(ctx, arg, domain.EntryWithdraw, true)
}

// Adjust applies an operator correction, the amount may be negative.
func (s *Service) Adjust(ctx context.Context, arg domain.MoveFundsParams) (domain.BalanceTxResult, error) {
	return s.ApplyDelta(ctx, domain.ApplyDeltaParams{
		AccountID:      arg.AccountID,
		Amount:         arg.Amount,
		Type:           domain.EntryAdjustment,
		Metadata:       arg.Metadata,
		IdempotencyKey: arg.IdempotencyKey,
	})
}

func (s *Service) move(ctx context.Context, arg domain.MoveFundsParams, t domain.EntryType, debit bool) (domain.BalanceTxResult, error) {
	if err := validPositive(arg.Amount); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msgf("%s(ctx, %+v)", t, arg)
		return domain.BalanceTxResult{}, err
	}

	amount := arg.Amount
	if debit {
		amount = amount.Neg()
	}

	return s.ApplyDelta(ctx, domain.ApplyDeltaParams{
		AccountID:      arg.AccountID,
		Amount:         amount,
		Type:           t,
		Metadata:       arg.Metadata,
		IdempotencyKey: arg.IdempotencyKey,
	})
}

// BlockFunds reserves amount of the account available balance.
func (s *Service) BlockFunds(ctx context.Context, id int64, amount decimal.Decimal) (account domain.Account, err error) {
	l := zerolog.Ctx(ctx)

	defer func(start time.Time) { s.metrics.Observe(OpBlockFunds, start, err) }(time.Now())

	if err := validPositive(amount); err != nil {
		l.Info().Err(err).Msgf("BlockFunds(ctx, %v, %v)", id, amount)
		return domain.Account{}, err
	}

	account, err = s.repo.BlockFunds(ctx, id, amount)
	if err != nil {
		logFailure(l, err, "block funds")
		return domain.Account{}, err
	}

	return account, nil
}

// UnblockFunds releases up to amount of the account blocked balance.
func (s *Service) UnblockFunds(ctx context.Context, id int64, amount decimal.Decimal) (account domain.Account, err error) {
	l := zerolog.Ctx(ctx)

	defer func(start time.Time) { s.metrics.Observe(OpUnblockFunds, start, err) }(time.Now())

	if err := validPositive(amount); err != nil {
		l.Info().Err(err).Msgf("UnblockFunds(ctx, %v, %v)", id, amount)
		return domain.Account{}, err
	}

	account, err = s.repo.UnblockFunds(ctx, id, amount)
	if err != nil {
		logFailure(l, err, "unblock funds")
		return domain.Account{}, err
	}

	return account, nil
}

// GetBalance returns a snapshot of the account balances.
func (s *Service) GetBalance(ctx context.Context, id int64) (domain.BalanceView, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return domain.BalanceView{}, err
	}

	return account.View(), nil
}

// GetAvailable returns balance minus blocked balance. The value may be stale by the
// time the caller acts on it.
func (s *Service) GetAvailable(ctx context.Context, id int64) (decimal.Decimal, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Available(), nil
}
