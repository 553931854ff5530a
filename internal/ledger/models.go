package ledger

import "time"

// Transfer statuses.
const (
	StatusPlanned = "planned"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one recorded materialize invocation.
type Run struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Subject     string    `json:"subject"`
	Session     string    `json:"session"`
	Method      string    `json:"method"`
	DryRun      bool      `json:"dry_run"`
	SourceDir   string    `json:"source_dir"`
	DestRoot    string    `json:"dest_root"`
	MappingPath string    `json:"mapping_path,omitempty"`
	Transfers   int       `json:"transfers"`
	Failures    int       `json:"failures"`
	Warnings    int       `json:"warnings"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TransferRecord is the stored outcome of a single transfer or failed entry.
type TransferRecord struct {
	Seq         int    `json:"seq"`
	SeriesID    string `json:"series_id"`
	Kind        string `json:"kind"`
	Method      string `json:"method"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}
