package export

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbook/internal/cells"
	"nbook/internal/marker"
)

type fakeWorkspace struct {
	roots []string
}

func (f fakeWorkspace) Roots() []string { return f.roots }
func (f fakeWorkspace) HasRoots() bool  { return len(f.roots) > 0 }

type fakeFiles struct {
	existing map[string]bool
	err      error
}

func (f fakeFiles) FileExists(_ context.Context, path string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[path], nil
}

type fakeResolver struct {
	major int
	ok    bool
	err   error
}

func (f fakeResolver) ResolveMajorVersion(context.Context) (int, bool, error) {
	return f.major, f.ok, f.err
}

const testComment = "# restore working directory"

func testLocalizer(string) string { return testComment }

func newTestExporter(ws WorkspaceService, files FileChecker, resolver VersionResolver) *Exporter {
	return New(ws, files, resolver, marker.New(), testLocalizer)
}

func plainExporter() *Exporter {
	return newTestExporter(fakeWorkspace{}, fakeFiles{}, fakeResolver{})
}

func TestExport_ExcludesSysInfoCells(t *testing.T) {
	cs := []*cells.Cell{
		cells.NewSysInfo("Python 3.11.4", "3.11.4"),
		cells.NewCode("x = 1\n", "", 0),
		cells.NewSysInfo("Python 3.11.4", "3.11.4"),
		cells.NewMarkdown("# notes"),
		cells.NewSysInfo("Python 3.11.4", "3.11.4"),
	}

	doc, err := plainExporter().Export(context.Background(), cs, "")
	require.NoError(t, err)

	require.Len(t, doc.Cells, 2)
	assert.Equal(t, "code", doc.Cells[0].CellType)
	assert.Equal(t, "markdown", doc.Cells[1].CellType)
}

func TestExport_StripsOneLeadingMarker(t *testing.T) {
	t.Run("marker removed", func(t *testing.T) {
		cs := []*cells.Cell{cells.NewCode("# %%\nx = 1\n", "", 0)}
		doc, err := plainExporter().Export(context.Background(), cs, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"x = 1\n"}, doc.Cells[0].Source)
	})

	t.Run("only the first line, only once", func(t *testing.T) {
		cs := []*cells.Cell{cells.NewCode("# %%\n# %%\nx = 1\n", "", 0)}
		doc, err := plainExporter().Export(context.Background(), cs, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"# %%\n", "x = 1\n"}, doc.Cells[0].Source)
	})

	t.Run("no marker is a no-op", func(t *testing.T) {
		cs := []*cells.Cell{cells.NewCode("x = 1\ny = 2\n", "", 0)}
		doc, err := plainExporter().Export(context.Background(), cs, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"x = 1\n", "y = 2\n"}, doc.Cells[0].Source)
	})

	t.Run("input cells stay untouched", func(t *testing.T) {
		cell := cells.NewCode("# %%\nx = 1\n", "", 0)
		_, err := plainExporter().Export(context.Background(), []*cells.Cell{cell}, "")
		require.NoError(t, err)
		assert.Equal(t, "# %%\nx = 1\n", cell.Source.String())
	})
}

func TestExport_VersionDerivation(t *testing.T) {
	code := func() *cells.Cell { return cells.NewCode("pass\n", "", 0) }

	t.Run("sysinfo cell wins", func(t *testing.T) {
		e := newTestExporter(fakeWorkspace{}, fakeFiles{}, fakeResolver{major: 9, ok: true})
		cs := []*cells.Cell{code(), cells.NewSysInfo("Python 2.7.18", "2.7.18")}
		doc, err := e.Export(context.Background(), cs, "")
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Metadata.LanguageInfo.CodemirrorMode.Version)
		assert.Equal(t, "ipython2", doc.Metadata.LanguageInfo.PygmentsLexer)
	})

	t.Run("resolver when no sysinfo", func(t *testing.T) {
		e := newTestExporter(fakeWorkspace{}, fakeFiles{}, fakeResolver{major: 4, ok: true})
		doc, err := e.Export(context.Background(), []*cells.Cell{code()}, "")
		require.NoError(t, err)
		assert.Equal(t, 4, doc.Metadata.LanguageInfo.CodemirrorMode.Version)
	})

	t.Run("resolver when sysinfo version is malformed", func(t *testing.T) {
		e := newTestExporter(fakeWorkspace{}, fakeFiles{}, fakeResolver{major: 4, ok: true})
		cs := []*cells.Cell{cells.NewSysInfo("custom build", "dev")}
		doc, err := e.Export(context.Background(), cs, "")
		require.NoError(t, err)
		assert.Equal(t, 4, doc.Metadata.LanguageInfo.CodemirrorMode.Version)
	})

	t.Run("default when nothing is known", func(t *testing.T) {
		doc, err := plainExporter().Export(context.Background(), []*cells.Cell{code()}, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultMajorVersion, doc.Metadata.LanguageInfo.CodemirrorMode.Version)
		assert.Equal(t, "ipython3", doc.Metadata.LanguageInfo.PygmentsLexer)
	})

	t.Run("resolver failure propagates", func(t *testing.T) {
		boom := errors.New("interpreter exploded")
		e := newTestExporter(fakeWorkspace{}, fakeFiles{}, fakeResolver{err: boom})
		_, err := e.Export(context.Background(), []*cells.Cell{code()}, "")
		assert.ErrorIs(t, err, boom)
	})
}

func TestExport_DirectoryChangeInjection(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "proj")
	script := filepath.Join(root, "sub", "script.py")
	target := filepath.Join(string(filepath.Separator), "work", "out", "nb.ipynb")

	newEnv := func() *Exporter {
		return newTestExporter(
			fakeWorkspace{roots: []string{root}},
			fakeFiles{existing: map[string]bool{script: true}},
			fakeResolver{},
		)
	}
	sessionCells := func() []*cells.Cell {
		return []*cells.Cell{cells.NewCode("x = 1\n", script, 1)}
	}

	t.Run("synthetic cell is first and carries the relative path", func(t *testing.T) {
		doc, err := newEnv().Export(context.Background(), sessionCells(), target)
		require.NoError(t, err)

		require.Len(t, doc.Cells, 2)
		first := doc.Cells[0]
		assert.Equal(t, "code", first.CellType)
		src := strings.Join(first.Source, "")
		assert.Contains(t, src, testComment)
		rel, relErr := filepath.Rel(filepath.Dir(target), root)
		require.NoError(t, relErr)
		assert.Contains(t, src, filepath.ToSlash(rel))
		assert.Contains(t, src, "os.chdir")
	})

	t.Run("no target path means no injection", func(t *testing.T) {
		doc, err := newEnv().Export(context.Background(), sessionCells(), "")
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("no workspace roots means no injection", func(t *testing.T) {
		e := newTestExporter(fakeWorkspace{}, fakeFiles{existing: map[string]bool{script: true}}, fakeResolver{})
		doc, err := e.Export(context.Background(), sessionCells(), target)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("missing origin file means no injection", func(t *testing.T) {
		e := newTestExporter(fakeWorkspace{roots: []string{root}}, fakeFiles{}, fakeResolver{})
		doc, err := e.Export(context.Background(), sessionCells(), target)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("origin outside every root means no injection", func(t *testing.T) {
		other := filepath.Join(string(filepath.Separator), "elsewhere", "script.py")
		e := newTestExporter(
			fakeWorkspace{roots: []string{root}},
			fakeFiles{existing: map[string]bool{other: true}},
			fakeResolver{},
		)
		doc, err := e.Export(context.Background(), []*cells.Cell{cells.NewCode("x\n", other, 1)}, target)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("target inside the root needs no change", func(t *testing.T) {
		inside := filepath.Join(root, "nb.ipynb")
		doc, err := newEnv().Export(context.Background(), sessionCells(), inside)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("root prefix match ignores case", func(t *testing.T) {
		upper := filepath.Join(string(filepath.Separator), "Work", "Proj", "sub", "script.py")
		e := newTestExporter(
			fakeWorkspace{roots: []string{root}},
			fakeFiles{existing: map[string]bool{upper: true}},
			fakeResolver{},
		)
		doc, err := e.Export(context.Background(), []*cells.Cell{cells.NewCode("x\n", upper, 1)}, target)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 2)
	})

	t.Run("injection disabled by config", func(t *testing.T) {
		e := newEnv()
		e.InjectChangeDir = false
		doc, err := e.Export(context.Background(), sessionCells(), target)
		require.NoError(t, err)
		assert.Len(t, doc.Cells, 1)
	})

	t.Run("filesystem error propagates", func(t *testing.T) {
		boom := errors.New("disk on fire")
		e := newTestExporter(fakeWorkspace{roots: []string{root}}, fakeFiles{err: boom}, fakeResolver{})
		_, err := e.Export(context.Background(), sessionCells(), target)
		assert.ErrorIs(t, err, boom)
	})
}

func TestExport_EmptySequence(t *testing.T) {
	doc, err := plainExporter().Export(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Empty(t, doc.Cells)
	assert.Equal(t, NBFormat, doc.NBFormatField)
	assert.Equal(t, NBFormatMinor, doc.NBFormatMin)
	assert.Equal(t, DefaultMajorVersion, doc.Metadata.LanguageInfo.CodemirrorMode.Version)
}

func TestExport_Deterministic(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "proj")
	script := filepath.Join(root, "script.py")
	target := filepath.Join(string(filepath.Separator), "work", "out", "nb.ipynb")

	e := newTestExporter(
		fakeWorkspace{roots: []string{root}},
		fakeFiles{existing: map[string]bool{script: true}},
		fakeResolver{major: 3, ok: true},
	)
	cs := []*cells.Cell{
		cells.NewSysInfo("Python 3.11.4", "3.11.4"),
		cells.NewCode("# %%\nx = 1\n", script, 1),
		cells.NewMarkdown("## heading"),
	}

	first, err := e.Export(context.Background(), cs, target)
	require.NoError(t, err)
	second, err := e.Export(context.Background(), cs, target)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("export not deterministic (-first +second):\n%s", diff)
	}
}

func TestExport_OutputsCopiedThrough(t *testing.T) {
	cell := cells.NewCode("print('hi')\n", "", 0)
	cell.Outputs = []cells.Output{{OutputType: "stream", Name: "stdout", Text: []string{"hi\n"}}}

	doc, err := plainExporter().Export(context.Background(), []*cells.Cell{cell}, "")
	require.NoError(t, err)

	require.Len(t, doc.Cells, 1)
	assert.Equal(t, cell.Outputs, doc.Cells[0].Outputs)
}
