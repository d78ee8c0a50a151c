package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nbook/internal/cells"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_CellRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession("sess-1"))

	code := cells.NewCode("# %%\nx = 1\n", "/work/proj/script.py", 12)
	code.State = cells.StateFinished
	code.Outputs = []cells.Output{{OutputType: "stream", Name: "stdout", Text: []string{"1\n"}}}
	md := cells.NewMarkdown("## heading")
	info := cells.NewSysInfo("Python 3.11.4", "3.11.4")

	require.NoError(t, s.AppendCell("sess-1", 0, info))
	require.NoError(t, s.AppendCell("sess-1", 1, code))
	require.NoError(t, s.AppendCell("sess-1", 2, md))

	loaded, err := s.Cells("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	assert.Equal(t, cells.SysInfo, loaded[0].Type)
	assert.Equal(t, "3.11.4", loaded[0].Version)

	assert.Equal(t, code.ID, loaded[1].ID)
	assert.Equal(t, "# %%\nx = 1\n", loaded[1].Source.String())
	assert.Equal(t, "/work/proj/script.py", loaded[1].File)
	assert.Equal(t, 12, loaded[1].Line)
	assert.Equal(t, cells.StateFinished, loaded[1].State)
	assert.Equal(t, code.Outputs, loaded[1].Outputs)

	assert.Equal(t, cells.Markdown, loaded[2].Type)
}

func TestStore_AppendCellOverwritesPosition(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession("sess-1"))

	cell := cells.NewCode("x = 1\n", "", 0)
	require.NoError(t, s.AppendCell("sess-1", 0, cell))

	cell.State = cells.StateError
	require.NoError(t, s.AppendCell("sess-1", 0, cell))

	loaded, err := s.Cells("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, cells.StateError, loaded[0].State)
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession("sess-1"))

	for _, entry := range []string{"x = 1", "print(x)", "x += 1"} {
		require.NoError(t, s.AppendHistory("sess-1", entry))
	}
	require.NoError(t, s.AppendHistory("other", "irrelevant"))

	entries, err := s.History("sess-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 1", "print(x)", "x += 1"}, entries)
}

func TestStore_HistoryLimitKeepsNewest(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession("sess-1"))

	for _, entry := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.AppendHistory("sess-1", entry))
	}

	entries, err := s.History("sess-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, entries)
}

func TestStore_LatestSessionID(t *testing.T) {
	s := openTestStore(t)

	id, err := s.LatestSessionID()
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.CreateSession("first"))
	require.NoError(t, s.CreateSession("second"))

	id, err = s.LatestSessionID()
	require.NoError(t, err)
	assert.Equal(t, "second", id)

	// Re-creating an existing session does not bump it.
	require.NoError(t, s.CreateSession("first"))
	id, err = s.LatestSessionID()
	require.NoError(t, err)
	assert.Equal(t, "second", id)
}

func TestStore_EmptySession(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateSession("empty"))

	loaded, err := s.Cells("empty")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	entries, err := s.History("empty", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
