// Package workspace answers which directories count as project roots and
// whether paths exist on disk. It backs the exporter's path capabilities.
package workspace

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"nbook/internal/logging"
)

// Service exposes the configured workspace roots. Roots are normalized to
// absolute paths at construction; entries that cannot be made absolute
// are dropped.
type Service struct {
	roots []string
	log   *zap.Logger
}

// New builds a Service from the configured roots. When none are
// configured the current working directory becomes the sole root, so a
// bare invocation still produces portable exports.
func New(roots []string) *Service {
	log := logging.Get(logging.CategoryExport)

	if len(roots) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			roots = []string{cwd}
		}
	}

	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			log.Warn("dropping workspace root", zap.String("root", r), zap.Error(err))
			continue
		}
		abs = append(abs, a)
	}
	return &Service{roots: abs, log: log}
}

// Roots returns the absolute workspace root directories.
func (s *Service) Roots() []string {
	return s.roots
}

// HasRoots reports whether any workspace root is known.
func (s *Service) HasRoots() bool {
	return len(s.roots) > 0
}

// FileExists reports whether path names an existing file or directory.
// The context lets callers bound the check; os.Stat itself does not
// block on anything cancellable, so only an already-expired context is
// honored here.
func (s *Service) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
