package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/model"
)

const (
	// minAuthDuration is the minimum time a rejected request spends in auth.
	minAuthDuration = 200 * time.Millisecond
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (*model.Principal, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Guard   Authenticator
	Metrics metrics.Recorder
	// MinDuration overrides minAuthDuration when positive.
	// Only rejections are padded; accepted requests go straight to the handler.
	MinDuration time.Duration
}

// Authenticate returns a middleware that authenticates requests with a
// bearer token and injects the principal into the request context.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	minDuration := cfg.MinDuration
	if minDuration <= 0 {
		minDuration = minAuthDuration
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			var principal *model.Principal
			if err == nil {
				principal, err = cfg.Guard.Authenticate(r.Context(), token)
			}

			if err != nil {
				// Every rejection takes the same time, whichever check failed.
				if elapsed := time.Since(startTime); elapsed < minDuration {
					time.Sleep(minDuration - elapsed)
				}

				if !auth.IsAuthenticationError(err) {
					cfg.Logger.Error("principal lookup failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
					return
				}

				reason := authFailureReason(err)
				recorder.IncAuthFailure(reason)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", authFailureMessage(err))
				return
			}

			setLogPrincipal(r.Context(), principal.ID)
			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authFailureReason is the metric label for an authentication error.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "account_disabled"
	default:
		return "unauthenticated"
	}
}

// authFailureMessage keeps token failures indistinguishable from each other.
func authFailureMessage(err error) string {
	if errors.Is(err, auth.ErrAccountDisabled) {
		return "Account is disabled"
	}
	return "Invalid or missing token"
}
