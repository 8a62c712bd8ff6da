package service

import (
	"encoding/json"
	"time"
)

// JobSummary describes the outcome of a whole wrapper run. We publish
// this to NSQ when a job finishes so downstream services don't have to
// poll Redis.
type JobSummary struct {
	JobID      string        `json:"job_id"`
	Container  string        `json:"container"`
	SnapshotID string        `json:"snapshot_id,omitempty"`
	AnalysisID string        `json:"analysis_id,omitempty"`
	Succeeded  bool          `json:"succeeded"`
	ExitCode   int           `json:"exit_code"`
	Message    string        `json:"message,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
	Steps      []*WorkResult `json:"steps"`
}

func (summary *JobSummary) ToJSON() ([]byte, error) {
	return json.Marshal(summary)
}
