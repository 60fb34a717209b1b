package pipeline

import "time"

// Stage names, in execution order.
const (
	StageRetrieve     = "retrieve"
	StageRerank       = "rerank"
	StageSmartFilter  = "smart_filter"
	StageGenerate     = "generate"
	StageSourceFilter = "source_filter"
	StageValidate     = "validate"
)

// StageStats records one stage of a run.
type StageStats struct {
	Name     string        `json:"name"`
	Input    int           `json:"input"`
	Output   int           `json:"output"`
	Duration time.Duration `json:"duration"`
	Skipped  bool          `json:"skipped,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// Reduction is the number of candidates the stage removed.
func (s StageStats) Reduction() int {
	return s.Input - s.Output
}

// StageFailure names a stage that failed and was bypassed.
type StageFailure struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Stats holds the per-stage records of a run in execution order.
type Stats struct {
	Stages []StageStats `json:"stages"`
}

// Stage returns the record for name.
func (s Stats) Stage(name string) (StageStats, bool) {
	for _, st := range s.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return StageStats{}, false
}

func (s Stats) output(name string, fallback int) int {
	if st, ok := s.Stage(name); ok {
		return st.Output
	}
	return fallback
}

func (s Stats) reduction(name string) int {
	if st, ok := s.Stage(name); ok {
		return st.Reduction()
	}
	return 0
}

// Map renders the optimisation statistics keyed as the CLI and API report them.
func (s Stats) Map() map[string]any {
	initial := s.output(StageRetrieve, 0)
	reranked := s.output(StageRerank, initial)
	filtered := s.output(StageSmartFilter, reranked)
	final := s.output(StageValidate, s.output(StageSourceFilter, filtered))

	stages := make([]map[string]any, len(s.Stages))
	for i, st := range s.Stages {
		m := map[string]any{
			"name":        st.Name,
			"input":       st.Input,
			"output":      st.Output,
			"reduction":   st.Reduction(),
			"duration_ms": float64(st.Duration.Microseconds()) / 1000,
			"degraded":    st.Degraded,
		}
		if st.Skipped {
			m["skipped"] = true
		}
		if st.Reason != "" {
			m["reason"] = st.Reason
		}
		stages[i] = m
	}

	return map[string]any{
		"initial_count":              initial,
		"reranked_count":             reranked,
		"filtered_count":             filtered,
		"final_count":                final,
		"reranking_reduction":        s.reduction(StageRerank),
		"filtering_reduction":        s.reduction(StageSmartFilter),
		"source_filtering_reduction": s.reduction(StageSourceFilter),
		"validation_reduction":       s.reduction(StageValidate),
		"total_reduction":            initial - final,
		"stages":                     stages,
	}
}
