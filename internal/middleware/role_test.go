package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/model"
)

func TestRequireRole(t *testing.T) {
	testCases := []struct {
		name       string
		principal  *model.Principal
		roles      []model.Role
		wantStatus int
		wantCode   string
	}{
		{
			name:       "user allowed on user route",
			principal:  &model.Principal{ID: "u1", Role: model.RoleUser},
			roles:      []model.Role{model.RoleUser, model.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin allowed on admin route",
			principal:  &model.Principal{ID: "a1", Role: model.RoleAdmin},
			roles:      []model.Role{model.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "user rejected on admin route",
			principal:  &model.Principal{ID: "u1", Role: model.RoleUser},
			roles:      []model.Role{model.RoleAdmin},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "no principal",
			roles:      []model.Role{model.RoleUser},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := RequireRole(tc.roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.principal != nil {
				req = req.WithContext(auth.ContextWithPrincipal(req.Context(), tc.principal))
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tc.wantCode+`"`) {
				t.Errorf("body = %s, want code %s", rec.Body.String(), tc.wantCode)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/stats", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &model.Principal{ID: "a", Role: model.RoleAdmin}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
