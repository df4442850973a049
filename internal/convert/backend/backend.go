// Package backend wraps the external conversion tools behind one uniform
// adapter contract.
package backend

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

// Adapter converts the file at inputPath into targetFormat, writing the
// artifact into outputDir and returning its path. Failures are reported as
// *domain.ConversionError: non-zero exit and empty artifacts as
// BACKEND_ERROR, context expiry as BACKEND_TIMEOUT, and a failed artifact
// discovery as OUTPUT_NOT_FOUND.
type Adapter interface {
	Name() string
	Convert(ctx context.Context, inputPath, outputDir, targetFormat string) (string, error)
}

// Runner abstracts process spawning for the exec-backed adapters so tests
// can fake the external tool. Run returns the combined stdout+stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the production runner. CommandContext kills the child
// process when the context is canceled or times out, so a client
// disconnect never leaves an orphan.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NewRunner returns the os/exec backed runner.
func NewRunner() Runner {
	return execRunner{}
}

// translateRunError maps a runner failure to the error taxonomy. The
// context is consulted first: a killed-by-deadline process surfaces as a
// plain exec error, and only ctx distinguishes timeout from crash.
func translateRunError(ctx context.Context, backend string, err error, output []byte) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewConversionError(
			domain.FailureBackendTimeout,
			backend,
			backend+" exceeded its time budget",
		)
	}
	if ctx.Err() != nil {
		return domain.WrapConversionError(domain.FailureBackendError, backend, ctx.Err())
	}
	return &domain.ConversionError{
		Kind:    domain.FailureBackendError,
		Backend: backend,
		Detail:  diagnosticTail(output, err),
		Err:     err,
	}
}

// diagnosticTail keeps the last portion of the tool's output, which is
// where ffmpeg and soffice put the actual failure reason.
func diagnosticTail(output []byte, err error) string {
	const maxTail = 512

	text := strings.TrimSpace(string(output))
	if len(text) > maxTail {
		text = "..." + text[len(text)-maxTail:]
	}
	if text == "" && err != nil {
		return err.Error()
	}
	return text
}
