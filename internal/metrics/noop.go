package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncAccountRegistered()                      {}
func (n *NoopRecorder) IncLogin(string)                            {}
func (n *NoopRecorder) IncAuthFailure(string)                      {}
func (n *NoopRecorder) IncProjectCreated()                         {}
func (n *NoopRecorder) IncProjectUpdated()                         {}
func (n *NoopRecorder) IncProjectDeleted()                         {}
func (n *NoopRecorder) ObserveFeedDuration(time.Duration)          {}
func (n *NoopRecorder) IncActivityEventPublished(string)           {}
func (n *NoopRecorder) IncActivityEventProcessed(string)           {}
func (n *NoopRecorder) ObserveActivityBatchSize(int)               {}
func (n *NoopRecorder) ObserveActivityBatchDuration(time.Duration) {}
func (n *NoopRecorder) SetActivityQueueDepth(int64)                {}
func (n *NoopRecorder) ObserveActivityIngestLag(time.Duration)     {}
