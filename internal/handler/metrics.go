package handler

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"

	"github.com/hhaamed74/promanager-api/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "promanager_accounts_registered_total %d\n", snap.AccountsRegistered)
	writeLabelled(w, "promanager_logins_total", "result", snap.Logins)
	writeLabelled(w, "promanager_auth_failures_total", "reason", snap.AuthFailures)

	writeMetric(w, "promanager_projects_created_total %d\n", snap.ProjectsCreated)
	writeMetric(w, "promanager_projects_updated_total %d\n", snap.ProjectsUpdated)
	writeMetric(w, "promanager_projects_deleted_total %d\n", snap.ProjectsDeleted)

	writeSeconds(w, "promanager_activity_feed_duration_seconds", snap.FeedDurationNs)

	writeLabelled(w, "promanager_activity_events_published_total", "status", snap.ActivityPublished)
	writeLabelled(w, "promanager_activity_events_processed_total", "status", snap.ActivityProcessed)
	writeMetric(w, "promanager_activity_queue_depth %d\n", snap.ActivityQueueDepth)
	writeMetric(w, "promanager_activity_batch_size_count %d\n", snap.ActivityBatchSize.Count)
	writeMetric(w, "promanager_activity_batch_size_sum %d\n", snap.ActivityBatchSize.Total)
	writeSeconds(w, "promanager_activity_batch_duration_seconds", snap.ActivityBatchNs)
	writeSeconds(w, "promanager_activity_ingest_lag_seconds", snap.ActivityIngestLagNs)
}

func writeMetric(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// writeLabelled renders one series per label value in a stable order.
func writeLabelled(w io.Writer, name, label string, values map[string]uint64) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, key, values[key])
	}
}

// writeSeconds renders a nanosecond summary as *_count and *_sum in seconds.
func writeSeconds(w io.Writer, name string, s metrics.Summary) {
	writeMetric(w, "%s_count %d\n", name, s.Count)
	writeMetric(w, "%s_sum %.6f\n", name, float64(s.Total)/1e9)
}
