package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hhaamed74/promanager-api/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncAccountRegistered()
	recorder.IncLogin("success")
	recorder.IncLogin("success")
	recorder.IncLogin("invalid_credentials")
	recorder.IncAuthFailure("invalid_token")
	recorder.IncProjectCreated()
	recorder.ObserveFeedDuration(1500 * time.Millisecond)
	recorder.SetActivityQueueDepth(4)

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, "promanager_accounts_registered_total 1\n")
	assert.Contains(t, body, `promanager_logins_total{result="success"} 2`)
	assert.Contains(t, body, `promanager_auth_failures_total{reason="invalid_token"} 1`)
	assert.Contains(t, body, "promanager_projects_created_total 1\n")
	assert.Contains(t, body, "promanager_activity_feed_duration_seconds_count 1\n")
	assert.Contains(t, body, "promanager_activity_queue_depth 4\n")

	// labelled series come out sorted
	assert.Less(t,
		strings.Index(body, `result="invalid_credentials"`),
		strings.Index(body, `result="success"`),
	)
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
