// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"strings"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
type Repo interface {
	Create(ctx context.Context, externalID, username string) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create creates an active account with zero balance for the username.
func (s *Service) Create(ctx context.Context, username string) (domain.Account, error) {
	return s.repo.Create(ctx, idpkg.New(idpkg.AccountPrefix), strings.TrimSpace(username))
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus moves the account to status. Only active accounts may change their balance.
func (s *Service) SetStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !status.Valid() {
		l.Info().Str("status", string(status)).Err(domain.ErrInvalidStatus).Send()
		return domain.Account{}, domain.ErrInvalidStatus
	}

	account, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Account{}, err
	}

	l.Info().Int64("account_id", id).Str("status", string(status)).Msg("account status changed")

	return account, nil
}
