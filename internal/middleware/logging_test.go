package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hhaamed74/promanager-api/internal/model"
)

// serveLogged runs one request through Logger and returns the decoded access
// log line together with its raw text.
func serveLogged(t *testing.T, h http.Handler, req *http.Request) (map[string]any, string) {
	t.Helper()

	var buf bytes.Buffer
	Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode access log %q: %v", buf.String(), err)
	}
	return entry, buf.String()
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) })
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/projects?owner=me", nil)
	req.Header.Set("User-Agent", "TestBrowser/2.0")
	req = req.WithContext(context.WithValue(req.Context(), requestIDKey, "req-9"))

	entry, _ := serveLogged(t, statusHandler(http.StatusCreated), req)

	want := map[string]any{
		"msg":         "http request",
		"method":      "POST",
		"path":        "/api/projects",
		"status_code": float64(201),
		"user_agent":  "TestBrowser/2.0",
		"request_id":  "req-9",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("trace_id should be absent without an active span")
	}
}

func TestLogger_Level(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNoContent, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusForbidden, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			entry, _ := serveLogged(t, statusHandler(tt.status), httptest.NewRequest(http.MethodGet, "/health", nil))
			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
		})
	}
}

func TestLogger_TraceID(t *testing.T) {
	t.Parallel()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))

	entry, _ := serveLogged(t, statusHandler(http.StatusOK), req)
	if entry["trace_id"] != traceID.String() {
		t.Errorf("trace_id = %v, want %s", entry["trace_id"], traceID)
	}
}

func TestLogger_PrincipalWithoutCredentials(t *testing.T) {
	t.Parallel()

	guard := fakeAuthenticator{principals: map[string]*model.Principal{
		"super_secret_token_12345": {ID: "acc-42", Role: model.RoleUser},
	}}
	h := Authenticate(AuthConfig{Logger: discardLogger(), Guard: guard, MinDuration: time.Millisecond})(okHandler())

	tests := []struct {
		name          string
		token         string
		wantPrincipal any
	}{
		{"authenticated", "super_secret_token_12345", "acc-42"},
		{"rejected", "wrong_token", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			entry, raw := serveLogged(t, h, req)
			if entry["principal_id"] != tt.wantPrincipal {
				t.Errorf("principal_id = %v, want %v", entry["principal_id"], tt.wantPrincipal)
			}
			if strings.Contains(raw, tt.token) || strings.Contains(raw, "Bearer") {
				t.Errorf("access log leaked credentials: %s", raw)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write func(w *responseWriter)
		want  int
	}{
		{"implicit ok on write", func(w *responseWriter) { _, _ = w.Write([]byte("x")) }, http.StatusOK},
		{"explicit status", func(w *responseWriter) { w.WriteHeader(http.StatusNoContent) }, http.StatusNoContent},
		{"first status wins", func(w *responseWriter) {
			w.WriteHeader(http.StatusCreated)
			w.WriteHeader(http.StatusInternalServerError)
		}, http.StatusCreated},
		{"write after status", func(w *responseWriter) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("x"))
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			rw := wrapResponseWriter(rec)
			tt.write(rw)
			if rw.status != tt.want || rec.Code != tt.want {
				t.Errorf("captured %d, sent %d, want %d", rw.status, rec.Code, tt.want)
			}
		})
	}
}
