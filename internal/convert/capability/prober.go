// Package capability detects which external conversion backends are
// installed and invokable in the current environment.
package capability

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

const (
	binFFmpeg      = "ffmpeg"
	binSoffice     = "soffice"
	binLibreOffice = "libreoffice"

	probeTimeout = 5 * time.Second
)

// Set reports per-backend availability. Image is always true because the
// image backend is a linked library, not an external process.
type Set struct {
	Image    bool `json:"image"`
	Media    bool `json:"media"`
	Document bool `json:"document"`
}

// Executor abstracts command execution so tests can fake tool presence.
type Executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Prober determines backend availability by invoking each candidate
// executable with a version flag. A spawn failure or non-zero exit means
// "unavailable". Results are never cached: the environment can change
// between container restarts, so callers re-probe per request.
type Prober struct {
	exec   Executor
	logger *slog.Logger
}

// NewProber creates a prober using the real os/exec executor.
func NewProber(logger *slog.Logger) *Prober {
	return newProber(osExecutor{}, logger)
}

func newProber(e Executor, logger *slog.Logger) *Prober {
	return &Prober{exec: e, logger: logger}
}

// Probe returns the current capability set.
func (p *Prober) Probe(ctx context.Context) Set {
	return Set{
		Image:    true,
		Media:    p.probeBinary(ctx, binFFmpeg, "-version"),
		Document: p.probeDocument(ctx),
	}
}

// DocumentBinary returns the document backend binary that responded to a
// version probe. The primary name is tried first, then the alias; both are
// attempted before reporting unavailability.
func (p *Prober) DocumentBinary(ctx context.Context) (string, bool) {
	for _, bin := range []string{binSoffice, binLibreOffice} {
		if p.probeBinary(ctx, bin, "--version") {
			return bin, true
		}
	}
	return "", false
}

// MediaBinary returns the media backend binary name.
func (p *Prober) MediaBinary() string {
	return binFFmpeg
}

func (p *Prober) probeDocument(ctx context.Context) bool {
	_, ok := p.DocumentBinary(ctx)
	return ok
}

func (p *Prober) probeBinary(ctx context.Context, name string, versionArg string) bool {
	if _, err := p.exec.LookPath(name); err != nil {
		p.logger.Debug("Backend binary not on PATH",
			slog.String("binary", name),
		)
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.exec.RunSilent(probeCtx, name, versionArg); err != nil {
		p.logger.Debug("Backend binary failed version probe",
			slog.String("binary", name),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
