// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account and authentication metrics
	IncAccountRegistered()
	IncLogin(result string)       // result: "success", "invalid_credentials", "disabled"
	IncAuthFailure(reason string) // reason: "unauthenticated", "invalid_token", "principal_not_found", "account_disabled", "forbidden"

	// Project management metrics
	IncProjectCreated()
	IncProjectUpdated()
	IncProjectDeleted()

	// Activity feed metrics
	ObserveFeedDuration(duration time.Duration)

	// Activity log pipeline metrics
	IncActivityEventPublished(status string) // status: "success" or "dropped"
	IncActivityEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveActivityBatchSize(size int)
	ObserveActivityBatchDuration(duration time.Duration)
	SetActivityQueueDepth(depth int64)
	ObserveActivityIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
