// Package orchestrator drives a conversion job from request receipt to a
// located artifact, and owns the scratch lifecycle on every exit path.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cuongbtq/convert-be/internal/convert/backend"
	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
	"github.com/cuongbtq/convert-be/internal/convert/formats"
	"github.com/cuongbtq/convert-be/internal/convert/scratch"
)

// state labels the phases a job moves through. Terminal states are
// delivered and failed; failed is reachable from any state after
// classified.
type state string

const (
	stateReceived        state = "received"
	stateClassified      state = "classified"
	stateDispatched      state = "dispatched"
	stateBackendRunning  state = "backend_running"
	stateArtifactLocated state = "artifact_located"
	stateFailed          state = "failed"
)

// Prober supplies a fresh capability set per job. Satisfied by
// *capability.Prober.
type Prober interface {
	Probe(ctx context.Context) capability.Set
}

// Orchestrator wires the prober, classifier, adapters and scratch manager
// into the conversion state machine. Capabilities are probed fresh per job
// and injected into validation; there is no ambient capability global.
type Orchestrator struct {
	prober   Prober
	scratch  *scratch.Manager
	adapters map[domain.Category]backend.Adapter

	// placeholderEnabled turns transient media/document backend failures
	// into a plain-text note artifact instead of an error. Off by
	// default: masking a failed conversion as a successful download
	// surprises callers, so the mode is strictly opt-in.
	placeholderEnabled bool

	logger *slog.Logger
}

// New creates an orchestrator. The adapters map must hold exactly one
// adapter per category.
func New(
	prober Prober,
	scratchMgr *scratch.Manager,
	adapters map[domain.Category]backend.Adapter,
	placeholderEnabled bool,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		prober:             prober,
		scratch:            scratchMgr,
		adapters:           adapters,
		placeholderEnabled: placeholderEnabled,
		logger:             logger,
	}
}

// Begin classifies and validates a request, then allocates scratch space
// for it. Rejections (unsupported pair, absent backend) happen before any
// allocation, so a refused request leaves nothing to clean up.
func (o *Orchestrator) Begin(ctx context.Context, originalFileName, targetFormat string) (*domain.Job, error) {
	o.logState(stateReceived, "", originalFileName, targetFormat)

	caps := o.prober.Probe(ctx)
	category, err := formats.Validate(originalFileName, targetFormat, caps)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:                uuid.New().String(),
		OriginalFileName:  filepath.Base(originalFileName),
		DeclaredExtension: formats.Extension(originalFileName),
		TargetFormat:      strings.ToLower(strings.TrimPrefix(targetFormat, ".")),
		Category:          category,
	}
	o.logState(stateClassified, job.ID, job.OriginalFileName, job.TargetFormat)

	dirs, err := o.scratch.Allocate(job.ID)
	if err != nil {
		return nil, domain.WrapConversionError(domain.FailureInternal, "", err)
	}

	job.ScratchDir = dirs.Root
	job.SourcePath = filepath.Join(dirs.Input, job.OriginalFileName)
	job.OutputDir = dirs.Output
	return job, nil
}

// Convert dispatches the job to its category's adapter and locates the
// produced artifact. The scratch space is NOT released here; callers
// stream the artifact first and then call Finish. On failure the caller
// must call Finish before responding, so no failed job leaks scratch.
func (o *Orchestrator) Convert(ctx context.Context, job *domain.Job) (*domain.Result, error) {
	adapter, ok := o.adapters[job.Category]
	if !ok {
		return nil, o.fail(job, domain.NewConversionError(
			domain.FailureInternal, "",
			fmt.Sprintf("no adapter registered for category %s", job.Category),
		))
	}
	o.logState(stateDispatched, job.ID, job.OriginalFileName, job.TargetFormat)

	o.logState(stateBackendRunning, job.ID, job.OriginalFileName, job.TargetFormat)
	outputPath, err := adapter.Convert(ctx, job.SourcePath, job.OutputDir, job.TargetFormat)
	if err != nil {
		if res, ok := o.degrade(job, err); ok {
			return res, nil
		}
		return nil, o.fail(job, err)
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return nil, o.fail(job, domain.NewConversionError(
			domain.FailureBackendError,
			adapter.Name(),
			"located artifact is missing or empty",
		))
	}
	o.logState(stateArtifactLocated, job.ID, job.OriginalFileName, job.TargetFormat)

	base := strings.TrimSuffix(job.OriginalFileName, filepath.Ext(job.OriginalFileName))
	return &domain.Result{
		OutputPath:     outputPath,
		OutputFileName: base + "." + job.TargetFormat,
	}, nil
}

// Finish releases the job's scratch resources. It is the single cleanup
// choke point: idempotent, safe to defer alongside explicit error-path
// calls, and it must run only after the artifact bytes are handed off.
func (o *Orchestrator) Finish(job *domain.Job) {
	if job == nil {
		return
	}
	o.scratch.Release(job.ID)
}

// degrade applies the opt-in placeholder policy: for media and document
// categories, a transient backend failure is replaced by a plain-text note
// artifact. Matrix-level rejections never reach this point.
func (o *Orchestrator) degrade(job *domain.Job, cause error) (*domain.Result, bool) {
	if !o.placeholderEnabled {
		return nil, false
	}
	if job.Category == domain.CategoryImage {
		return nil, false
	}

	kind := domain.KindOf(cause)
	if kind != domain.FailureBackendError && kind != domain.FailureBackendTimeout && kind != domain.FailureOutputNotFound {
		return nil, false
	}

	base := strings.TrimSuffix(job.OriginalFileName, filepath.Ext(job.OriginalFileName))
	notePath := filepath.Join(job.OutputDir, base+".txt")
	note := fmt.Sprintf(
		"Conversion of %q to .%s failed: %s\nThis placeholder was produced because degraded mode is enabled.\n",
		job.OriginalFileName, job.TargetFormat, domain.DetailOf(cause),
	)
	if err := os.WriteFile(notePath, []byte(note), 0o644); err != nil {
		o.logger.Error("Failed to write placeholder note",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	o.logger.Warn("Backend failure degraded to placeholder artifact",
		slog.String("job_id", job.ID),
		slog.String("category", string(job.Category)),
		slog.String("cause", cause.Error()),
	)
	return &domain.Result{
		OutputPath:     notePath,
		OutputFileName: base + ".txt",
		Placeholder:    true,
	}, true
}

// fail logs the terminal failure and releases scratch immediately, so
// every failed job's scratch input and output are gone before the caller
// writes a response.
func (o *Orchestrator) fail(job *domain.Job, err error) error {
	o.logger.Error("Conversion failed",
		slog.String("job_id", job.ID),
		slog.String("state", string(stateFailed)),
		slog.String("category", string(job.Category)),
		slog.String("kind", string(domain.KindOf(err))),
		slog.String("error", err.Error()),
	)
	o.scratch.Release(job.ID)
	return err
}

func (o *Orchestrator) logState(s state, jobID, fileName, targetFormat string) {
	o.logger.Debug("Job state transition",
		slog.String("state", string(s)),
		slog.String("job_id", jobID),
		slog.String("file", fileName),
		slog.String("target_format", targetFormat),
	)
}
