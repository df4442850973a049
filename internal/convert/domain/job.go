package domain

// Category determines which backend adapter handles a conversion job.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
)

// Job status constants, recorded in the conversion history
const (
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
)

// Job is one conversion request. It is created after classification and
// support-matrix validation pass, owned by the orchestrator for its
// lifetime, and torn down (with all scratch paths) when the response has
// been sent or the job is abandoned on error.
type Job struct {
	ID                string
	OriginalFileName  string
	DeclaredExtension string
	TargetFormat      string
	Category          Category

	// SourcePath is where the uploaded input must be written,
	// OutputDir where the adapter must place the artifact. Both live
	// under the job's scratch directory ScratchDir.
	SourcePath string
	OutputDir  string
	ScratchDir string
}

// Result is a successfully located artifact. It is transient: consumed
// once by the response writer, then the referenced file is deleted.
type Result struct {
	OutputPath     string
	OutputFileName string

	// Placeholder is true when the artifact is a degradation-mode note
	// rather than a real converted file.
	Placeholder bool
}
