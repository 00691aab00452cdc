package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/handler/dto"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/service"
)

// AccountService is the account behaviour the HTTP layer needs.
// *service.AccountService implements it.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	UpdateProfile(ctx context.Context, id string, input service.UpdateProfileInput) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	ToggleActive(ctx context.Context, actor *model.Principal, id string) (*model.Account, error)
	DeleteAccount(ctx context.Context, actor *model.Principal, id string) error
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With("component", "handler.auth"),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "account_registered", slog.String("account_id", result.Account.ID))

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Success: true,
		Token:   result.Token,
		User:    dto.ToAccountResponse(result.Account),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Success: true,
		Token:   result.Token,
		User:    dto.ToAccountResponse(result.Account),
	})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccountByID(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileResponse{Success: true, User: dto.ToAccountResponse(account)})
}

// UpdateProfile handles PUT /api/auth/profile.
// Accepts JSON, or a multipart form with an optional "avatar" file.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	input, err := profileInput(r)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	id := auth.AccountIDFromContext(r.Context())
	account, err := h.accounts.UpdateProfile(r.Context(), id, input)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "profile_updated",
		slog.String("account_id", id),
		slog.Bool("avatar_changed", input.Avatar != nil),
	)

	writeJSON(w, http.StatusOK, dto.ProfileResponse{Success: true, User: dto.ToAccountResponse(account)})
}

func profileInput(r *http.Request) (service.UpdateProfileInput, error) {
	if !isMultipart(r) {
		var req dto.UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			return service.UpdateProfileInput{}, err
		}
		return service.UpdateProfileInput{Name: req.Name, Email: req.Email}, nil
	}

	if err := parseMultipart(r); err != nil {
		return service.UpdateProfileInput{}, err
	}
	avatar, err := formFile(r, "avatar")
	if err != nil {
		return service.UpdateProfileInput{}, err
	}
	return service.UpdateProfileInput{
		Name:   r.FormValue("name"),
		Email:  r.FormValue("email"),
		Avatar: avatar,
	}, nil
}
