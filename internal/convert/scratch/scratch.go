// Package scratch manages per-job temporary directories. Every job gets a
// collision-free directory named by its unique token; release is the single
// deletion path and is safe to call more than once.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Dirs holds the scratch locations allocated for one job.
type Dirs struct {
	Root   string // <scratch>/<token>
	Input  string // <scratch>/<token>/in
	Output string // <scratch>/<token>/out
}

// Manager allocates and releases job-scoped scratch directories under a
// single root. Concurrent jobs never collide because every path is
// namespaced by the job token; no locking is needed beyond the registry.
type Manager struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]string // token -> job root dir
}

// NewManager creates the scratch root if needed and returns a manager.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root %s: %w", root, err)
	}
	return &Manager{
		root:   root,
		logger: logger,
		jobs:   make(map[string]string),
	}, nil
}

// Allocate creates the scratch directories for the given job token.
func (m *Manager) Allocate(token string) (Dirs, error) {
	jobRoot := filepath.Join(m.root, token)
	d := Dirs{
		Root:   jobRoot,
		Input:  filepath.Join(jobRoot, "in"),
		Output: filepath.Join(jobRoot, "out"),
	}

	for _, dir := range []string{d.Input, d.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(jobRoot)
			return Dirs{}, fmt.Errorf("failed to create scratch dir %s: %w", dir, err)
		}
	}

	m.mu.Lock()
	m.jobs[token] = jobRoot
	m.mu.Unlock()

	m.logger.Debug("Scratch allocated",
		slog.String("token", token),
		slog.String("dir", jobRoot),
	)
	return d, nil
}

// Release removes everything allocated for the token. Calling it again for
// the same token is a no-op. Deletion failures are logged, not escalated:
// they cannot affect the already-returned response.
func (m *Manager) Release(token string) {
	m.mu.Lock()
	jobRoot, ok := m.jobs[token]
	if ok {
		delete(m.jobs, token)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	if err := os.RemoveAll(jobRoot); err != nil {
		m.logger.Error("Failed to remove scratch dir",
			slog.String("token", token),
			slog.String("dir", jobRoot),
			slog.String("error", err.Error()),
		)
		return
	}

	m.logger.Debug("Scratch released",
		slog.String("token", token),
	)
}

// Active returns the number of jobs currently holding scratch space.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Sweep removes job directories older than retention that no live job
// owns. It exists to recover space after a crash; in normal operation
// Release has already deleted everything.
func (m *Manager) Sweep(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch root: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	cleaned := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		m.mu.Lock()
		_, live := m.jobs[entry.Name()]
		m.mu.Unlock()
		if live {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			m.logger.Error("Failed to sweep stale scratch dir",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		m.logger.Info("Swept stale scratch directories",
			slog.Int("count", cleaned),
		)
	}
	return cleaned, nil
}
