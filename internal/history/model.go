package history

import "time"

// Record is one finished conversion, success or failure. Records are
// observability data: writes are best-effort and never block or fail a
// conversion response.
type Record struct {
	JobID        string    `db:"job_id"`
	SourceName   string    `db:"source_name"`
	SourceFormat string    `db:"source_format"`
	TargetFormat string    `db:"target_format"`
	Category     string    `db:"category"`
	Status       string    `db:"status"`
	FailureKind  string    `db:"failure_kind"`
	Detail       string    `db:"detail"`
	DurationMs   int64     `db:"duration_ms"`
	CreatedAt    time.Time `db:"created_at"`
}
