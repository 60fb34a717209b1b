package core

// StageResult is the outcome of one optimization stage. A degraded result
// carries the stage's unmodified input and the reason the stage failed.
type StageResult struct {
	Candidates []*Candidate
	Degraded   bool
	Reason     error
}

// Ok wraps the output of a stage that completed normally.
func Ok(candidates []*Candidate) StageResult {
	return StageResult{Candidates: candidates}
}

// Degraded wraps the passthrough input of a stage that failed.
func Degraded(original []*Candidate, reason error) StageResult {
	return StageResult{Candidates: original, Degraded: true, Reason: reason}
}
