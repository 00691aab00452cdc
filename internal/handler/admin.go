package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/handler/dto"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/model"
)

// Query limits for the admin activity endpoints.
const (
	maxFeedLimit           = 50
	defaultActivityLogSize = 50
	maxActivityLogSize     = 200
)

// ActivityFeed derives the recent-activity feed. *activity.Feed implements it.
type ActivityFeed interface {
	RecentActivity(ctx context.Context, limitPerSource, limitTotal int) ([]model.ActivityEvent, error)
}

// ActivityLogReader lists persisted activity log entries, newest first.
type ActivityLogReader interface {
	ListActivityLog(ctx context.Context, limit int) ([]*model.ActivityLogEntry, error)
}

// AdminHandler provides admin-only account management and dashboard endpoints.
type AdminHandler struct {
	accounts    AccountService
	feed        ActivityFeed
	activityLog ActivityLogReader
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts AccountService, feed ActivityFeed, activityLog ActivityLogReader, recorder metrics.Recorder, logger *slog.Logger) *AdminHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AdminHandler{
		accounts:    accounts,
		feed:        feed,
		activityLog: activityLog,
		metrics:     recorder,
		logger:      logger.With("component", "handler.admin"),
	}
}

// ListUsers handles GET /api/auth/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAccountListResponse(accounts))
}

// ToggleUser handles PUT /api/auth/users/{id}/toggle.
func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := auth.PrincipalFromContext(r.Context())

	account, err := h.accounts.ToggleActive(r.Context(), actor, id)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "account_toggled",
		slog.String("account_id", id),
		slog.Bool("active", account.Active),
		slog.String("actor_id", actor.ID),
	)

	message := "Account disabled"
	if account.Active {
		message = "Account enabled"
	}
	writeJSON(w, http.StatusOK, dto.ToggleResponse{Success: true, Status: account.Active, Message: message})
}

// DeleteUser handles DELETE /api/auth/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := auth.PrincipalFromContext(r.Context())

	if err := h.accounts.DeleteAccount(r.Context(), actor, id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "account_deleted",
		slog.String("account_id", id),
		slog.String("actor_id", actor.ID),
	)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Account deleted"})
}

// Stats handles GET /api/auth/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.DashboardStats(r.Context())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatsResponse{Success: true, Stats: *stats})
}

// Activities handles GET /api/auth/activities?limit={n}&per_source={n}.
func (h *AdminHandler) Activities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := queryInt(query.Get("limit"), 0, maxFeedLimit)
	perSource := queryInt(query.Get("per_source"), 0, maxFeedLimit)

	start := time.Now()
	events, err := h.feed.RecentActivity(r.Context(), perSource, limit)
	h.metrics.ObserveFeedDuration(time.Since(start))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToActivityListResponse(events))
}

// ActivityLog handles GET /api/auth/activity-log?limit={n}.
func (h *AdminHandler) ActivityLog(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), defaultActivityLogSize, maxActivityLogSize)

	entries, err := h.activityLog.ListActivityLog(r.Context(), limit)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToActivityLogListResponse(entries))
}

// queryInt parses a positive integer query value, falling back to def when
// absent or invalid and clamping to upper.
func queryInt(raw string, def, upper int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
