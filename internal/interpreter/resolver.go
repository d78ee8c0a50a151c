// Package interpreter resolves the major version of the usable Python
// interpreter. The exporter falls back to this when a session carries no
// diagnostic cell with a recorded version.
package interpreter

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"nbook/internal/logging"
)

// Resolver locates an interpreter binary and asks it for its version.
type Resolver struct {
	// Path is an explicit binary; takes precedence over Candidates.
	Path string
	// Candidates are PATH names tried in order.
	Candidates []string

	log *zap.Logger
}

// New builds a resolver. Empty candidates default to python3 then python.
func New(path string, candidates []string) *Resolver {
	if len(candidates) == 0 {
		candidates = []string{"python3", "python"}
	}
	return &Resolver{
		Path:       path,
		Candidates: candidates,
		log:        logging.Get(logging.CategoryInterp),
	}
}

// ResolveMajorVersion runs the interpreter with --version and parses the
// leading integer of its dotted version. ok is false when no interpreter
// is installed; a found interpreter that fails to run or emits an
// unparsable banner is an error.
func (r *Resolver) ResolveMajorVersion(ctx context.Context) (major int, ok bool, err error) {
	bin := r.Path
	if bin == "" {
		for _, c := range r.Candidates {
			if p, lookErr := exec.LookPath(c); lookErr == nil {
				bin = p
				break
			}
		}
	}
	if bin == "" {
		r.log.Debug("no interpreter found on PATH")
		return 0, false, nil
	}

	out, err := exec.CommandContext(ctx, bin, "--version").CombinedOutput()
	if err != nil {
		return 0, false, fmt.Errorf("failed to run %s --version: %w", bin, err)
	}

	major, err = MajorFromVersion(versionFromBanner(string(out)))
	if err != nil {
		return 0, false, fmt.Errorf("unparsable version from %s: %w", bin, err)
	}
	r.log.Debug("resolved interpreter", zap.String("bin", bin), zap.Int("major", major))
	return major, true, nil
}

// versionFromBanner extracts the dotted version from output in the shape
// "Python 3.11.4".
func versionFromBanner(banner string) string {
	fields := strings.Fields(strings.TrimSpace(banner))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// MajorFromVersion parses the leading integer component of a dotted
// version string, e.g. 3 from "3.9.1".
func MajorFromVersion(version string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return major, nil
}
