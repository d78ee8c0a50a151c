// Package export turns an ordered sequence of session cells into a
// portable notebook document. It owns cell pruning, marker stripping,
// interpreter version derivation, and the synthetic directory-change cell
// that keeps relative data paths working when the exported document is
// re-run from its own directory.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nbook/internal/cells"
	"nbook/internal/interpreter"
	"nbook/internal/logging"
)

// DefaultMajorVersion is used when neither a diagnostic cell nor the
// interpreter resolver can supply a version.
const DefaultMajorVersion = 3

// WorkspaceService reports the project roots relative paths are computed
// against.
type WorkspaceService interface {
	Roots() []string
	HasRoots() bool
}

// FileChecker answers filesystem existence questions.
type FileChecker interface {
	FileExists(ctx context.Context, path string) (bool, error)
}

// VersionResolver supplies the usable interpreter's major version. ok is
// false when no interpreter is available.
type VersionResolver interface {
	ResolveMajorVersion(ctx context.Context) (major int, ok bool, err error)
}

// MarkerMatcher recognizes cell boundary marker lines.
type MarkerMatcher interface {
	IsCellMarker(line string) bool
}

// Localizer resolves a message key to display text.
type Localizer func(key string) string

// ChangeDirCommentKey is the message key for the comment heading the
// synthetic directory-change cell.
const ChangeDirCommentKey = "export.changeDirComment"

// Exporter assembles notebook documents. All collaborators are injected;
// the exporter itself holds no mutable state, so a single instance may
// serve many Export calls.
type Exporter struct {
	workspace WorkspaceService
	files     FileChecker
	resolver  VersionResolver
	matcher   MarkerMatcher
	localize  Localizer

	// InjectChangeDir disables the synthetic cell entirely when false.
	InjectChangeDir bool

	log *zap.Logger
}

// New wires an exporter from its collaborators.
func New(ws WorkspaceService, files FileChecker, resolver VersionResolver, matcher MarkerMatcher, localize Localizer) *Exporter {
	return &Exporter{
		workspace:       ws,
		files:           files,
		resolver:        resolver,
		matcher:         matcher,
		localize:        localize,
		InjectChangeDir: true,
		log:             logging.Get(logging.CategoryExport),
	}
}

// Export builds a document from the session's cells. targetPath is where
// the caller intends to save the document; when empty, no directory-change
// cell is considered. Missing workspace or version information degrades to
// documented fallbacks; only collaborator failures surface as errors.
func (e *Exporter) Export(ctx context.Context, cs []*cells.Cell, targetPath string) (*Document, error) {
	var (
		relPath string
		major   int
	)

	// The directory scan and the version derivation consult independent
	// collaborators, so they run concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		relPath, err = e.changeDirPath(gctx, cs, targetPath)
		return err
	})
	g.Go(func() error {
		var err error
		major, err = e.deriveMajorVersion(gctx, cs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &Document{
		Metadata:      NewMetadata(major),
		NBFormatField: NBFormat,
		NBFormatMin:   NBFormatMinor,
		Cells:         make([]DocumentCell, 0, len(cs)+1),
	}

	if relPath != "" {
		doc.Cells = append(doc.Cells, e.changeDirCell(relPath))
	}
	for _, c := range cs {
		if c.Type == cells.SysInfo {
			continue
		}
		doc.Cells = append(doc.Cells, e.exportCell(c))
	}

	e.log.Debug("exported session",
		zap.Int("cells", len(doc.Cells)),
		zap.Int("major", major),
		zap.Bool("chdir", relPath != ""))
	return doc, nil
}

// changeDirPath finds the relative path from the export target's directory
// to the workspace root the session ran under. Empty means no
// directory-change cell is needed.
func (e *Exporter) changeDirPath(ctx context.Context, cs []*cells.Cell, targetPath string) (string, error) {
	if !e.InjectChangeDir || targetPath == "" || !e.workspace.HasRoots() {
		return "", nil
	}

	root, err := e.firstWorkspaceRoot(ctx, cs)
	if err != nil || root == "" {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Dir(targetPath), root)
	if err != nil {
		// No genuine relative form exists (different volume or share).
		return "", nil
	}
	if rel == "" || rel == "." || filepath.IsAbs(rel) {
		return "", nil
	}
	return rel, nil
}

// firstWorkspaceRoot scans cells in order for the first one whose origin
// file is an absolute, existing path under a workspace root, and returns
// that root.
func (e *Exporter) firstWorkspaceRoot(ctx context.Context, cs []*cells.Cell) (string, error) {
	for _, c := range cs {
		if c.File == "" || !filepath.IsAbs(c.File) {
			continue
		}
		exists, err := e.files.FileExists(ctx, c.File)
		if err != nil {
			return "", err
		}
		if !exists {
			continue
		}
		for _, root := range e.workspace.Roots() {
			if hasPrefixFold(c.File, root) {
				return root, nil
			}
		}
	}
	return "", nil
}

// deriveMajorVersion takes the version recorded by the first diagnostic
// cell; otherwise, or when that string does not parse, it asks the
// resolver, and finally defaults.
func (e *Exporter) deriveMajorVersion(ctx context.Context, cs []*cells.Cell) (int, error) {
	for _, c := range cs {
		if c.Type != cells.SysInfo {
			continue
		}
		if major, err := interpreter.MajorFromVersion(c.Version); err == nil {
			return major, nil
		}
		e.log.Warn("unparsable version on diagnostic cell",
			zap.String("version", c.Version))
		break
	}

	major, ok, err := e.resolver.ResolveMajorVersion(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultMajorVersion, nil
	}
	return major, nil
}

// changeDirCell builds the synthetic cell that restores the session's
// working directory when the notebook is re-run.
func (e *Exporter) changeDirCell(relPath string) DocumentCell {
	src := fmt.Sprintf("%s\nimport os\ntry:\n\tos.chdir(os.path.join(os.getcwd(), %q))\n\tprint(os.getcwd())\nexcept:\n\tpass\n",
		e.localize(ChangeDirCommentKey), filepath.ToSlash(relPath))

	c := cells.NewCode(src, "", 0)
	c.State = cells.StateFinished
	return DocumentCell{
		CellType: string(cells.Code),
		Source:   []string(c.Source),
	}
}

// exportCell converts a session cell into its document record, stripping
// one leading boundary-marker line when present. The input cell is left
// untouched.
func (e *Exporter) exportCell(c *cells.Cell) DocumentCell {
	src := c.Source
	if len(src) > 0 && e.matcher.IsCellMarker(src.FirstLine()) {
		src = src.DropFirstLine()
	}

	cellType := string(c.Type)
	outputs := c.Outputs
	if c.Type == cells.Markdown {
		outputs = nil
	}
	return DocumentCell{
		CellType: cellType,
		Source:   []string(src),
		Outputs:  outputs,
	}
}

// hasPrefixFold reports whether path starts with root, ignoring case.
func hasPrefixFold(path, root string) bool {
	if len(path) < len(root) {
		return false
	}
	return strings.EqualFold(path[:len(root)], root)
}
