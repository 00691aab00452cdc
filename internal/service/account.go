package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hhaamed74/promanager-api/internal/activity"
	"github.com/hhaamed74/promanager-api/internal/activitylog"
	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
	"github.com/hhaamed74/promanager-api/internal/storage"
)

const (
	maxNameLength     = 50
	minPasswordLength = 6
)

// AccountDeps wires an AccountService.
type AccountDeps struct {
	Accounts       AccountStore
	Projects       ProjectStore
	Cache          AccountCache
	Tokens         TokenIssuer
	Uploader       storage.Uploader
	MaxUploadBytes int64
	Activity       ActivityPublisher
	Metrics        metrics.Recorder
	Logger         *slog.Logger
}

// AccountService handles registration, login, profiles and account administration.
type AccountService struct {
	accounts AccountStore
	projects ProjectStore
	cache    AccountCache
	tokens   TokenIssuer
	images   imageStore
	activity ActivityPublisher
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(deps AccountDeps) *AccountService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Activity == nil {
		deps.Activity = activitylog.Discard{}
	}
	return &AccountService{
		accounts: deps.Accounts,
		projects: deps.Projects,
		cache:    deps.Cache,
		tokens:   deps.Tokens,
		images:   imageStore{uploader: deps.Uploader, maxBytes: deps.MaxUploadBytes},
		activity: deps.Activity,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With("component", "service.account"),
	}
}

// RegisterInput defines input for registering an account.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// Register creates a user account and issues a token for it.
// The role is always user; admins are promoted out of band.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &model.Account{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Avatar:       model.DefaultAvatarURL,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.metrics.IncAccountRegistered()
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityAccountRegistered, account.ID, account.ID, activity.AccountEvent(account).Text,
	))

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}

// Login verifies credentials and issues a token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		// Burn the same argon2 cost as a real check.
		_, _ = auth.VerifyPassword(password, dummyHash())
		s.metrics.IncLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !account.Active {
		s.metrics.IncLogin("disabled")
		return nil, auth.ErrAccountDisabled
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLogin("success")
	return &AuthResult{Account: account, Token: token}, nil
}

// GetAccountByID reads an account through the snapshot cache.
// Missing accounts are reported as repository.ErrAccountNotFound.
func (s *AccountService) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if cached, err := s.cache.GetAccount(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	// The lease is taken before the read so an invalidation that lands
	// between the read and the fill wins.
	lease, err := s.cache.LeaseAccount(ctx, id)
	if err != nil {
		s.logger.DebugContext(ctx, "failed to lease account cache", "account_id", id, "error", err)
	}

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if lease != "" {
		if _, err := s.cache.SetAccount(ctx, account, lease); err != nil {
			s.logger.DebugContext(ctx, "failed to cache account", "account_id", id, "error", err)
		}
	}
	return account, nil
}

// UpdateProfileInput defines input for updating the caller's profile.
// Empty fields keep their current value.
type UpdateProfileInput struct {
	Name   string
	Email  string
	Avatar *FileUpload
}

// UpdateProfile updates the name, email and avatar of an account.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*model.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		if err := validateName(name); err != nil {
			return nil, err
		}
		account.Name = name
	}
	if strings.TrimSpace(input.Email) != "" {
		email, err := normalizeEmail(input.Email)
		if err != nil {
			return nil, err
		}
		account.Email = email
	}
	if input.Avatar != nil {
		ref, err := s.images.store(ctx, input.Avatar)
		if err != nil {
			return nil, err
		}
		account.Avatar = ref
	}

	if err := s.accounts.UpdateAccountProfile(ctx, account); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityAccountUpdated, id, id, "Profile updated: "+account.Name,
	))
	return account, nil
}

// ListAccounts returns every account, newest first.
func (s *AccountService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return s.accounts.ListAccounts(ctx)
}

// ToggleActive flips the active flag of an account and returns the result.
func (s *AccountService) ToggleActive(ctx context.Context, actor *model.Principal, id string) (*model.Account, error) {
	if actor != nil && actor.ID == id {
		return nil, ErrCannotModifySelf
	}

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Active = !account.Active
	if err := s.accounts.SetAccountActive(ctx, id, account.Active); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	state := "disabled"
	if account.Active {
		state = "enabled"
	}
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityAccountStatusChanged, principalID(actor), id, fmt.Sprintf("Account %s %s", account.Name, state),
	))
	return account, nil
}

// DeleteAccount removes an account. Its projects remain and show an unknown owner.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *model.Principal, id string) error {
	if actor != nil && actor.ID == id {
		return ErrCannotModifySelf
	}

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.activity.PublishAsync(activitylog.NewEvent(
		model.ActivityAccountDeleted, principalID(actor), id, "Account deleted: "+account.Name,
	))
	return nil
}

// DashboardStats returns account and project totals.
func (s *AccountService) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Users, err = s.accounts.CountAccounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Projects, err = s.projects.CountProjects(gctx, repository.ProjectCountFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.Completed, err = s.projects.CountProjects(gctx, repository.ProjectCountFilter{Status: model.StatusCompleted})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}

func (s *AccountService) invalidate(ctx context.Context, id string) {
	if err := s.cache.DeleteAccount(ctx, id); err != nil {
		// The snapshot TTL bounds staleness.
		s.logger.WarnContext(ctx, "failed to invalidate account cache", "account_id", id, "error", err)
	}
}

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := model.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func principalID(p *model.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue string
)

// dummyHash is a valid argon2id hash of a random-looking password, used to
// equalize login timing for unknown emails.
func dummyHash() string {
	dummyHashOnce.Do(func() {
		dummyHashValue, _ = auth.HashPassword("promanager-timing-equalizer")
	})
	return dummyHashValue
}
