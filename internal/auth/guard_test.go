package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
)

type fakeAccounts struct {
	accounts map[string]*model.Account
	err      error
}

func (f *fakeAccounts) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return a, nil
}

const testSecret = "guard-test-secret-0123456789"

func newTestGuard(t *testing.T, accounts ...*model.Account) (*Guard, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager([]byte(testSecret), time.Hour)
	store := &fakeAccounts{accounts: map[string]*model.Account{}}
	for _, a := range accounts {
		store.accounts[a.ID] = a
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGuard(tokens, store, logger), tokens
}

func TestGuard_Authenticate_Success(t *testing.T) {
	t.Parallel()

	acc := &model.Account{ID: "acc-1", Name: "Mona", Role: model.RoleUser, Active: true}
	guard, tokens := newTestGuard(t, acc)

	token, err := tokens.Issue(acc.ID)
	require.NoError(t, err)

	p, err := guard.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &model.Principal{ID: "acc-1", Role: model.RoleUser, Name: "Mona"}, p)
}

func TestGuard_Authenticate_Failures(t *testing.T) {
	t.Parallel()

	active := &model.Account{ID: "acc-1", Name: "Mona", Role: model.RoleUser, Active: true}
	disabled := &model.Account{ID: "acc-2", Name: "Omar", Role: model.RoleAdmin, Active: false}
	guard, tokens := newTestGuard(t, active, disabled)

	validDisabled, err := tokens.Issue(disabled.ID)
	require.NoError(t, err)
	orphan, err := tokens.Issue("acc-deleted")
	require.NoError(t, err)

	forged, err := NewTokenManager([]byte("some-other-secret-000000"), time.Hour).Issue(active.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty token", "", ErrUnauthenticated},
		{"whitespace token", "   ", ErrUnauthenticated},
		{"bad signature", forged, ErrInvalidToken},
		{"malformed", "not.a.jwt", ErrInvalidToken},
		{"deleted account", orphan, ErrPrincipalNotFound},
		{"disabled account", validDisabled, ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := guard.Authenticate(context.Background(), tt.token)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, p)
			assert.True(t, IsAuthenticationError(err))
		})
	}
}

func TestGuard_Authenticate_BadSignatureIsNotUnauthenticated(t *testing.T) {
	t.Parallel()

	acc := &model.Account{ID: "acc-1", Role: model.RoleUser, Active: true}
	guard, _ := newTestGuard(t, acc)

	forged, err := NewTokenManager([]byte("attacker-secret-000000000"), time.Hour).Issue(acc.ID)
	require.NoError(t, err)

	_, err = guard.Authenticate(context.Background(), forged)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestGuard_Authenticate_LookupError(t *testing.T) {
	t.Parallel()

	tokens := NewTokenManager([]byte(testSecret), time.Hour)
	dbErr := errors.New("connection refused")
	guard := NewGuard(tokens, &fakeAccounts{err: dbErr}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	token, err := tokens.Issue("acc-1")
	require.NoError(t, err)

	_, err = guard.Authenticate(context.Background(), token)
	require.ErrorIs(t, err, dbErr)
	assert.False(t, IsAuthenticationError(err))
}

func TestNewGuard_NilLogger(t *testing.T) {
	t.Parallel()

	acc := &model.Account{ID: "acc-1", Name: "Mona", Role: model.RoleUser, Active: false}
	tokens := NewTokenManager([]byte(testSecret), time.Hour)
	guard := NewGuard(tokens, &fakeAccounts{accounts: map[string]*model.Account{acc.ID: acc}}, nil)

	token, err := tokens.Issue(acc.ID)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, err = guard.Authenticate(context.Background(), token)
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"  Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer   ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}

	for _, tt := range tests {
		got, err := ExtractBearer(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnauthenticated, "header %q", tt.header)
			continue
		}
		assert.NoError(t, err, "header %q", tt.header)
		assert.Equal(t, tt.want, got)
	}
}

func TestAuthorizeRole(t *testing.T) {
	t.Parallel()

	admin := &model.Principal{ID: "a", Role: model.RoleAdmin}
	user := &model.Principal{ID: "u", Role: model.RoleUser}
	adminOnly := model.NewRoleSet(model.RoleAdmin)
	everyone := model.NewRoleSet(model.RoleUser, model.RoleAdmin)

	assert.NoError(t, AuthorizeRole(admin, adminOnly))
	assert.ErrorIs(t, AuthorizeRole(user, adminOnly), ErrForbidden)
	assert.NoError(t, AuthorizeRole(user, everyone))
	assert.ErrorIs(t, AuthorizeRole(user, model.NewRoleSet()), ErrForbidden)
	assert.ErrorIs(t, AuthorizeRole(nil, everyone), ErrUnauthenticated)
}

func TestAuthorizeOwnerOrAdmin(t *testing.T) {
	t.Parallel()

	owner := &model.Principal{ID: "owner", Role: model.RoleUser}
	other := &model.Principal{ID: "other", Role: model.RoleUser}
	admin := &model.Principal{ID: "root", Role: model.RoleAdmin}

	tests := []struct {
		name    string
		p       *model.Principal
		ownerID string
		wantErr error
	}{
		{"owner", owner, "owner", nil},
		{"other user", other, "owner", ErrForbidden},
		{"admin on foreign project", admin, "owner", nil},
		{"empty owner id", other, "", ErrForbidden},
		{"nil principal", nil, "owner", ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := AuthorizeOwnerOrAdmin(tt.p, tt.ownerID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))
	assert.Equal(t, "", AccountIDFromContext(ctx))
	assert.Panics(t, func() { MustPrincipalFromContext(ctx) })

	p := &model.Principal{ID: "acc-1", Role: model.RoleUser}
	ctx = ContextWithPrincipal(ctx, p)
	assert.Same(t, p, PrincipalFromContext(ctx))
	assert.Equal(t, "acc-1", AccountIDFromContext(ctx))
}
