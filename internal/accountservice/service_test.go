package accountservice

import (
	"context"
	"strings"
	"testing"

	"github.com/go-petr/pet-casino/internal/domain"
	"github.com/go-petr/pet-casino/internal/memrepo"
	"github.com/go-petr/pet-casino/pkg/idpkg"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	service := New(memrepo.New())

	account, err := service.Create(context.Background(), "  alice ")
	require.NoError(t, err)
	require.Equal(t, "alice", account.Username)
	require.True(t, strings.HasPrefix(account.ExternalID, idpkg.AccountPrefix))
	require.True(t, account.Balance.IsZero())
	require.True(t, account.BlockedBalance.IsZero())
	require.Equal(t, domain.StatusActive, account.Status)

	_, err = service.Create(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrUsernameAlreadyExists)

	got, err := service.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, account, got)
}

func TestSetStatus(t *testing.T) {
	service := New(memrepo.New())

	account, err := service.Create(context.Background(), "bob")
	require.NoError(t, err)

	testCases := []struct {
		name    string
		id      int64
		status  domain.AccountStatus
		wantErr error
	}{
		{name: "Freeze", id: account.ID, status: domain.StatusFrozen},
		{name: "Block", id: account.ID, status: domain.StatusBlocked},
		{name: "Activate", id: account.ID, status: domain.StatusActive},
		{name: "UnknownStatus", id: account.ID, status: "closed", wantErr: domain.ErrInvalidStatus},
		{name: "UnknownAccount", id: 404, status: domain.StatusFrozen, wantErr: domain.ErrAccountNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.SetStatus(context.Background(), tc.id, tc.status)
			require.ErrorIs(t, err, tc.wantErr)

			if tc.wantErr == nil {
				require.Equal(t, tc.status, got.Status)
			}
		})
	}
}
