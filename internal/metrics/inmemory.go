package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Summary is a count and running total, rendered as *_count and *_sum.
type Summary struct {
	Count uint64
	Total int64
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AccountsRegistered uint64
	Logins             map[string]uint64
	AuthFailures       map[string]uint64

	ProjectsCreated uint64
	ProjectsUpdated uint64
	ProjectsDeleted uint64

	FeedDurationNs Summary

	ActivityPublished   map[string]uint64
	ActivityProcessed   map[string]uint64
	ActivityBatchSize   Summary
	ActivityBatchNs     Summary
	ActivityIngestLagNs Summary
	ActivityQueueDepth  int64
}

// InMemoryRecorder stores metrics in memory and backs the /metrics endpoint.
type InMemoryRecorder struct {
	accountsRegistered atomic.Uint64
	projectsCreated    atomic.Uint64
	projectsUpdated    atomic.Uint64
	projectsDeleted    atomic.Uint64
	queueDepth         atomic.Int64

	mu                sync.Mutex
	logins            map[string]uint64
	authFailures      map[string]uint64
	activityPublished map[string]uint64
	activityProcessed map[string]uint64
	feedDuration      Summary
	batchSize         Summary
	batchDuration     Summary
	ingestLag         Summary
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:            make(map[string]uint64),
		authFailures:      make(map[string]uint64),
		activityPublished: make(map[string]uint64),
		activityProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		AccountsRegistered:  m.accountsRegistered.Load(),
		Logins:              maps.Clone(m.logins),
		AuthFailures:        maps.Clone(m.authFailures),
		ProjectsCreated:     m.projectsCreated.Load(),
		ProjectsUpdated:     m.projectsUpdated.Load(),
		ProjectsDeleted:     m.projectsDeleted.Load(),
		FeedDurationNs:      m.feedDuration,
		ActivityPublished:   maps.Clone(m.activityPublished),
		ActivityProcessed:   maps.Clone(m.activityProcessed),
		ActivityBatchSize:   m.batchSize,
		ActivityBatchNs:     m.batchDuration,
		ActivityIngestLagNs: m.ingestLag,
		ActivityQueueDepth:  m.queueDepth.Load(),
	}
}

func (m *InMemoryRecorder) IncAccountRegistered() { m.accountsRegistered.Add(1) }
func (m *InMemoryRecorder) IncProjectCreated()    { m.projectsCreated.Add(1) }
func (m *InMemoryRecorder) IncProjectUpdated()    { m.projectsUpdated.Add(1) }
func (m *InMemoryRecorder) IncProjectDeleted()    { m.projectsDeleted.Add(1) }

// IncLogin counts a login attempt by result.
func (m *InMemoryRecorder) IncLogin(result string) { m.inc(m.logins, result) }

// IncAuthFailure counts a rejected request by reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) { m.inc(m.authFailures, reason) }

// IncActivityEventPublished counts stream publishes by status.
func (m *InMemoryRecorder) IncActivityEventPublished(status string) {
	m.inc(m.activityPublished, status)
}

// IncActivityEventProcessed counts worker outcomes by status.
func (m *InMemoryRecorder) IncActivityEventProcessed(status string) {
	m.inc(m.activityProcessed, status)
}

// ObserveFeedDuration records one activity feed request.
func (m *InMemoryRecorder) ObserveFeedDuration(d time.Duration) {
	m.observe(&m.feedDuration, d.Nanoseconds())
}

// ObserveActivityBatchSize records the size of a persisted batch.
func (m *InMemoryRecorder) ObserveActivityBatchSize(size int) {
	m.observe(&m.batchSize, int64(size))
}

// ObserveActivityBatchDuration records how long a batch took to persist.
func (m *InMemoryRecorder) ObserveActivityBatchDuration(d time.Duration) {
	m.observe(&m.batchDuration, d.Nanoseconds())
}

// ObserveActivityIngestLag records publish-to-persist latency of one event.
func (m *InMemoryRecorder) ObserveActivityIngestLag(lag time.Duration) {
	m.observe(&m.ingestLag, lag.Nanoseconds())
}

// SetActivityQueueDepth sets the pending plus lag count of the stream.
func (m *InMemoryRecorder) SetActivityQueueDepth(depth int64) {
	m.queueDepth.Store(depth)
}

func (m *InMemoryRecorder) inc(counter map[string]uint64, label string) {
	m.mu.Lock()
	counter[label]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) observe(s *Summary, v int64) {
	m.mu.Lock()
	s.Count++
	s.Total += v
	m.mu.Unlock()
}
