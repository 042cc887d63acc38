package correlation

import "time"

// MetricsRecorder receives finder and policy measurements.
// This avoids import cycles with the metrics package.
type MetricsRecorder interface {
	RecordFinderRequest(source string)
	RecordCacheOp(op, result string)
	RecordThresholdAttempt(threshold int, accepted bool)
	RecordCompute(latency time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordFinderRequest(string)         {}
func (noopRecorder) RecordCacheOp(string, string)       {}
func (noopRecorder) RecordThresholdAttempt(int, bool)   {}
func (noopRecorder) RecordCompute(time.Duration, error) {}
