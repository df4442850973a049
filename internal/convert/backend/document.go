package backend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuongbtq/convert-be/internal/convert/domain"
)

const documentBackendName = "document"

// DefaultDocumentTimeout bounds one office conversion. Runaway soffice
// processes are killed at expiry and reported as BACKEND_TIMEOUT.
const DefaultDocumentTimeout = 30 * time.Second

// binaryResolver reports the office binary to use right now, typically
// capability.Prober.DocumentBinary. Resolution happens per conversion
// because availability can change between container restarts.
type binaryResolver func(ctx context.Context) (string, bool)

// DocumentAdapter converts office documents by spawning soffice (or the
// libreoffice alias) in headless mode with an isolated user profile, so
// concurrent jobs cannot corrupt each other's profile locks.
type DocumentAdapter struct {
	runner  Runner
	resolve binaryResolver
	timeout time.Duration
	logger  *slog.Logger
}

// NewDocumentAdapter creates the office-backed document adapter.
func NewDocumentAdapter(runner Runner, resolve func(ctx context.Context) (string, bool), timeout time.Duration, logger *slog.Logger) *DocumentAdapter {
	if timeout <= 0 {
		timeout = DefaultDocumentTimeout
	}
	return &DocumentAdapter{
		runner:  runner,
		resolve: resolve,
		timeout: timeout,
		logger:  logger,
	}
}

func (a *DocumentAdapter) Name() string { return documentBackendName }

// Convert runs one headless office conversion. The tool names its output
// after its own base-name convention rather than the caller's wish, so the
// produced file is discovered with a documented two-step contract: the
// exact {base}.{target} path first, then the first directory entry whose
// name starts with {base}. When both steps fail the adapter reports
// OUTPUT_NOT_FOUND, distinct from other backend errors. The isolated
// profile directory is removed whatever the outcome.
func (a *DocumentAdapter) Convert(ctx context.Context, inputPath, outputDir, targetFormat string) (string, error) {
	binary, ok := a.resolve(ctx)
	if !ok {
		return "", domain.NewConversionError(
			domain.FailureBackendUnavailable,
			documentBackendName,
			"no office conversion binary is installed",
		)
	}

	profileDir := filepath.Join(outputDir, "office-profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", domain.WrapConversionError(domain.FailureBackendError, binary, err)
	}
	defer func() {
		if err := os.RemoveAll(profileDir); err != nil {
			a.logger.Error("Failed to remove office profile dir",
				slog.String("dir", profileDir),
				slog.String("error", err.Error()),
			)
		}
	}()

	target := strings.ToLower(targetFormat)
	args := []string{
		"-env:UserInstallation=file://" + profileDir,
		"--headless",
		"--norestore",
		"--convert-to", target,
		"--outdir", outputDir,
		inputPath,
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.logger.Info("Spawning document backend",
		slog.String("binary", binary),
		slog.String("target_format", target),
		slog.String("input", filepath.Base(inputPath)),
	)

	output, err := a.runner.Run(runCtx, binary, args...)
	if err != nil {
		return "", translateRunError(runCtx, binary, err, output)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath, err := a.discoverArtifact(outputDir, base, target)
	if err != nil {
		a.logger.Error("Document artifact discovery failed",
			slog.String("base", base),
			slog.String("target_format", target),
			slog.String("tool_output", diagnosticTail(output, nil)),
		)
		return "", err
	}

	return outputPath, nil
}

// discoverArtifact applies the two-step discovery contract.
func (a *DocumentAdapter) discoverArtifact(outputDir, base, target string) (string, error) {
	expected := filepath.Join(outputDir, base+"."+target)
	if info, err := os.Stat(expected); err == nil && info.Size() > 0 {
		return expected, nil
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", domain.WrapConversionError(domain.FailureOutputNotFound, documentBackendName, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), base) {
			return filepath.Join(outputDir, entry.Name()), nil
		}
	}

	return "", domain.NewConversionError(
		domain.FailureOutputNotFound,
		documentBackendName,
		"no artifact matching "+base+".* in output directory",
	)
}
