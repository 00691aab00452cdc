package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/cache"
	"github.com/hhaamed74/promanager-api/internal/config"
	"github.com/hhaamed74/promanager-api/internal/handler"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/middleware"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/service"
)

// tokenGuard maps fixed tokens to principals.
type tokenGuard map[string]*model.Principal

func (g tokenGuard) Authenticate(_ context.Context, token string) (*model.Principal, error) {
	p, ok := g[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return p, nil
}

type allowAll struct{}

func (allowAll) CheckRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: true, Remaining: 10, ResetAt: time.Now().Add(time.Minute)}, nil
}

// stubAccounts and stubProjects return canned data; routing is what is under test.
type stubAccounts struct{}

func (stubAccounts) Register(context.Context, service.RegisterInput) (*service.AuthResult, error) {
	return &service.AuthResult{Account: &model.Account{ID: "new", Role: model.RoleUser, Active: true}, Token: "t"}, nil
}

func (stubAccounts) Login(context.Context, string, string) (*service.AuthResult, error) {
	return nil, service.ErrInvalidCredentials
}

func (stubAccounts) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	return &model.Account{ID: id, Role: model.RoleUser, Active: true}, nil
}

func (stubAccounts) UpdateProfile(_ context.Context, id string, _ service.UpdateProfileInput) (*model.Account, error) {
	return &model.Account{ID: id, Role: model.RoleUser, Active: true}, nil
}

func (stubAccounts) ListAccounts(context.Context) ([]*model.Account, error) { return nil, nil }

func (stubAccounts) ToggleActive(_ context.Context, _ *model.Principal, id string) (*model.Account, error) {
	return &model.Account{ID: id, Active: false}, nil
}

func (stubAccounts) DeleteAccount(context.Context, *model.Principal, string) error { return nil }

func (stubAccounts) DashboardStats(context.Context) (*model.DashboardStats, error) {
	return &model.DashboardStats{}, nil
}

type stubProjects struct{}

func (stubProjects) Create(_ context.Context, owner *model.Principal, _ service.CreateProjectInput) (*model.Project, error) {
	return &model.Project{ID: "p-1", OwnerID: owner.ID}, nil
}

func (stubProjects) List(context.Context) ([]*model.ProjectWithOwner, error) { return nil, nil }

func (stubProjects) ListMine(context.Context, string) ([]*model.Project, error) { return nil, nil }

func (stubProjects) Get(_ context.Context, id string) (*model.Project, error) {
	if id != "p-1" {
		return nil, service.ErrProjectNotFound
	}
	return &model.Project{ID: id}, nil
}

func (stubProjects) Update(_ context.Context, _ *model.Principal, id string, _ service.UpdateProjectInput) (*model.Project, error) {
	return &model.Project{ID: id}, nil
}

func (stubProjects) Delete(context.Context, *model.Principal, string) error { return nil }

func (stubProjects) StatsForOwner(context.Context, string) (*model.ProjectCounts, error) {
	return &model.ProjectCounts{}, nil
}

type stubFeed struct{}

func (stubFeed) RecentActivity(context.Context, int, int) ([]model.ActivityEvent, error) {
	return nil, nil
}

type stubLog struct{}

func (stubLog) ListActivityLog(context.Context, int) ([]*model.ActivityLogEntry, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, authRPM int, uploadDir string, opts ...func(*config.Config)) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		AppEnv:              "development",
		MaxRequestBodySize:  1 << 20,
		RateLimitAPIEnabled: true,
		RateLimitAPIRPM:     120,
		RateLimitAPIBurst:   20,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	recorder := metrics.NewInMemory()

	return setupRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		index:    handler.New(),
		health:   handler.NewHealthHandler(),
		metrics:  handler.NewMetricsHandler(recorder),
		auth:     handler.NewAuthHandler(stubAccounts{}, logger),
		admin:    handler.NewAdminHandler(stubAccounts{}, stubFeed{}, stubLog{}, recorder, logger),
		projects: handler.NewProjectHandler(stubProjects{}, logger),
		guard: tokenGuard{
			"user-token":  {ID: "u-1", Role: model.RoleUser},
			"admin-token": {ID: "a-1", Role: model.RoleAdmin},
		},
		buckets:         allowAll{},
		recorder:        recorder,
		ipLimiter:       middleware.NewIPRateLimiter(authRPM, logger),
		uploadDir:       uploadDir,
		authMinDuration: time.Millisecond,
	})
}

func do(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Access(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 0, "")

	tests := []struct {
		method, path, token, body string
		want                      int
	}{
		{http.MethodGet, "/", "", "", http.StatusOK},
		{http.MethodGet, "/healthz", "", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", "", http.StatusOK},

		{http.MethodPost, "/api/auth/register", "", `{"name":"a"}`, http.StatusCreated},
		{http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c"}`, http.StatusUnauthorized},

		{http.MethodGet, "/api/auth/profile", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/auth/profile", "bogus", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/auth/profile", "user-token", "", http.StatusOK},
		{http.MethodPut, "/api/auth/profile", "user-token", `{"name":"b"}`, http.StatusOK},

		{http.MethodGet, "/api/auth/users", "user-token", "", http.StatusForbidden},
		{http.MethodGet, "/api/auth/users", "admin-token", "", http.StatusOK},
		{http.MethodPut, "/api/auth/users/u-1/toggle", "user-token", "", http.StatusForbidden},
		{http.MethodPut, "/api/auth/users/u-1/toggle", "admin-token", "", http.StatusOK},
		{http.MethodDelete, "/api/auth/users/u-1", "admin-token", "", http.StatusOK},
		{http.MethodGet, "/api/auth/stats", "user-token", "", http.StatusForbidden},
		{http.MethodGet, "/api/auth/stats", "admin-token", "", http.StatusOK},
		{http.MethodGet, "/api/auth/activities", "user-token", "", http.StatusForbidden},
		{http.MethodGet, "/api/auth/activities?limit=5", "admin-token", "", http.StatusOK},
		{http.MethodGet, "/api/auth/activity-log", "admin-token", "", http.StatusOK},

		{http.MethodGet, "/api/projects", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/projects", "user-token", "", http.StatusOK},
		{http.MethodPost, "/api/projects", "user-token", `{"title":"x","deadline":"2026-12-01"}`, http.StatusCreated},
		{http.MethodGet, "/api/projects/my-projects", "user-token", "", http.StatusOK},
		{http.MethodGet, "/api/projects/stats/count", "user-token", "", http.StatusOK},
		{http.MethodGet, "/api/projects/p-1", "user-token", "", http.StatusOK},
		{http.MethodGet, "/api/projects/p-2", "user-token", "", http.StatusNotFound},
		{http.MethodPut, "/api/projects/p-1", "user-token", `{"title":"y"}`, http.StatusOK},
		{http.MethodDelete, "/api/projects/p-1", "user-token", "", http.StatusOK},

		{http.MethodGet, "/api/nope", "", "", http.StatusNotFound},
		{http.MethodPatch, "/api/projects/p-1", "user-token", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" "+tt.token, func(t *testing.T) {
			t.Parallel()
			rec := do(router, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	t.Parallel()

	rec := do(newTestRouter(t, 0, ""), http.MethodGet, "/healthz", "", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_LoginIsThrottledPerIP(t *testing.T) {
	t.Parallel()

	// rpm 2 gives a burst of 1
	router := newTestRouter(t, 2, "")

	first := do(router, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c"}`)
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	second := do(router, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// other routes are not IP limited
	health := do(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestRouter_LoginThrottleIgnoresSpoofedForwardedFor(t *testing.T) {
	t.Parallel()

	login := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.c"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	router := newTestRouter(t, 2, "")
	assert.Equal(t, http.StatusUnauthorized, login(router, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, login(router, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, login(router, "203.0.113.3"))

	// Behind a trusted proxy the forwarded address is the client.
	proxied := newTestRouter(t, 2, "", func(c *config.Config) { c.TrustProxyHeaders = true })
	assert.Equal(t, http.StatusUnauthorized, login(proxied, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, login(proxied, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, login(proxied, "203.0.113.2"))
}

func TestRouter_ServesLocalUploads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "promanager_uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "promanager_uploads", "a.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644))

	router := newTestRouter(t, 0, dir)
	rec := do(router, http.MethodGet, "/uploads/promanager_uploads/a.png", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "cross-origin", rec.Header().Get("Cross-Origin-Resource-Policy"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "public")

	for _, listing := range []string{"/uploads/", "/uploads/promanager_uploads/"} {
		rec = do(router, http.MethodGet, listing, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "GET %s", listing)
		assert.NotContains(t, rec.Body.String(), "a.png")
	}

	withoutDir := newTestRouter(t, 0, "")
	rec = do(withoutDir, http.MethodGet, "/uploads/promanager_uploads/a.png", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
