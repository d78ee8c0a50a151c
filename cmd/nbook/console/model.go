// Package console implements the interactive nbook session as a bubbletea
// program. The console records cells and their output; it does not own an
// interpreter. Execution is delegated to a pluggable Runner so the TUI can
// be driven in tests without spawning processes.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nbook/internal/cells"
	"nbook/internal/history"
	"nbook/internal/locale"
	"nbook/internal/logging"
	"nbook/internal/store"
	"nbook/internal/term"
)

// Runner executes one code cell and returns its raw output. The returned
// text may contain carriage-return overwrites; the console collapses them
// before recording.
type Runner func(code string) (string, error)

// EchoRunner is the default runner: it records the code as its own
// output. Useful for drafting notebooks without an attached interpreter.
func EchoRunner(code string) (string, error) {
	return code, nil
}

// Config wires the console's collaborators.
type Config struct {
	SessionID string
	Store     *store.Store // optional; nil disables persistence
	Runner    Runner       // nil means EchoRunner
	Locale    string
	// HistoryLimit caps input recall. Zero means history.DefaultLimit.
	HistoryLimit int
	// SeedHistory replays previously stored input into the recall stack.
	SeedHistory []string
}

// Model is the bubbletea model for the console.
type Model struct {
	sessionID string
	store     *store.Store
	runner    Runner
	localize  func(string) string

	nav   *history.Navigator
	cells []*cells.Cell

	textarea   textarea.Model
	viewport   viewport.Model
	transcript []string

	width   int
	height  int
	ready   bool
	errText string

	log *zap.Logger
}

// New builds a console model.
func New(cfg Config) Model {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Runner == nil {
		cfg.Runner = EchoRunner
	}

	ta := textarea.New()
	ta.Placeholder = ">>>"
	ta.Prompt = ""
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	nav := history.New(cfg.HistoryLimit)
	for _, entry := range cfg.SeedHistory {
		nav.Add(entry)
	}

	localize := locale.Func(cfg.Locale)

	return Model{
		sessionID:  cfg.SessionID,
		store:      cfg.Store,
		runner:     cfg.Runner,
		localize:   localize,
		nav:        nav,
		textarea:   ta,
		transcript: []string{localize(locale.MsgConsoleWelcome)},
		log:        logging.Get(logging.CategoryConsole),
	}
}

// SessionID returns the id cells and history are recorded under.
func (m Model) SessionID() string {
	return m.sessionID
}

// Cells returns the cells recorded so far, in submission order.
func (m Model) Cells() []*cells.Cell {
	return m.cells
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - m.textarea.Height() - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(msg.Width)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyUp:
			// Recall older input when the cursor sits on the top line.
			if m.textarea.Line() == 0 {
				m.textarea.SetValue(m.nav.CompleteUp(m.textarea.Value()))
				m.textarea.CursorEnd()
				return m, nil
			}

		case tea.KeyDown:
			if m.textarea.Line() == m.textarea.LineCount()-1 {
				m.textarea.SetValue(m.nav.CompleteDown(m.textarea.Value()))
				m.textarea.CursorEnd()
				return m, nil
			}

		case tea.KeyEnter:
			return m.handleSubmit()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleSubmit records the typed input as a cell and runs it.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	value := m.textarea.Value()
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return m, nil
	}

	m.textarea.Reset()
	m.errText = ""
	m.nav.Add(value)
	if m.store != nil {
		if err := m.store.AppendHistory(m.sessionID, value); err != nil {
			m.log.Warn("history not persisted", zap.Error(err))
		}
	}

	switch {
	case trimmed == "/quit" || trimmed == "/exit":
		m.transcript = append(m.transcript, m.localize(locale.MsgConsoleGoodbye))
		return m, tea.Quit

	case strings.HasPrefix(trimmed, "/md "):
		cell := cells.NewMarkdown(strings.TrimPrefix(trimmed, "/md "))
		cell.State = cells.StateFinished
		m.appendCell(cell)
		m.transcript = append(m.transcript, renderMarkdown(cell.Source.String(), m.width))

	default:
		cell := cells.NewCode(value, "", 0)
		m.appendCell(cell)
		m.transcript = append(m.transcript, promptStyle.Render(">>> ")+value)
		m.runCell(cell)
	}

	m.refreshViewport()
	return m, nil
}

// runCell executes a code cell and records its collapsed output.
func (m *Model) runCell(cell *cells.Cell) {
	cell.State = cells.StateRunning
	raw, err := m.runner(cell.Source.String())
	if err != nil {
		cell.State = cells.StateError
		m.errText = err.Error()
		m.log.Warn("cell failed", zap.String("cell", cell.ID), zap.Error(err))
	} else {
		cell.State = cells.StateFinished
	}

	display := term.Collapse(raw)
	if display != "" {
		cell.Outputs = append(cell.Outputs, cells.Output{
			OutputType: "stream",
			Name:       "stdout",
			Text:       []string(cells.SourceFromString(display)),
		})
		m.transcript = append(m.transcript, outputStyle.Render(display))
	}
	m.persist(cell)
}

func (m *Model) appendCell(cell *cells.Cell) {
	m.cells = append(m.cells, cell)
	m.persist(cell)
}

func (m *Model) persist(cell *cells.Cell) {
	if m.store == nil {
		return
	}
	position := -1
	for i, c := range m.cells {
		if c.ID == cell.ID {
			position = i
			break
		}
	}
	if position < 0 {
		return
	}
	if err := m.store.AppendCell(m.sessionID, position, cell); err != nil {
		m.log.Warn("cell not persisted", zap.String("cell", cell.ID), zap.Error(err))
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

var _ tea.Model = Model{}

// errorLine formats the pending error banner, if any.
func (m Model) errorLine() string {
	if m.errText == "" {
		return ""
	}
	return errorStyle.Render(fmt.Sprintf("error: %s", m.errText))
}
