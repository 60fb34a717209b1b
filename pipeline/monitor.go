package pipeline

// Monitor provides hooks to observe pipeline runs.
// Implementations must be safe for concurrent use.
type Monitor interface {
	Start(runID, query string)
	StageFinished(runID string, stage StageStats)
	Finish(runID string, result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = noopMonitor{}

func (noopMonitor) Start(_, _ string)                    {}
func (noopMonitor) StageFinished(_ string, _ StageStats) {}
func (noopMonitor) Finish(_ string, _ *Result)           {}
