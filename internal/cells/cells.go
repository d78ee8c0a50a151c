// Package cells defines the notebook cell model shared by the console,
// the exporter, and the session store. A cell is one unit of submitted
// work; once appended to a session only its State and Outputs change.
package cells

import (
	"strings"

	"github.com/google/uuid"
)

// CellType is the closed set of cell kinds.
type CellType string

const (
	// Code is an executable source cell.
	Code CellType = "code"
	// Markdown is a prose cell.
	Markdown CellType = "markdown"
	// SysInfo is a synthetic diagnostic cell produced at session start.
	// It carries the interpreter banner and version and is never exported.
	SysInfo CellType = "sysinfo"
)

// State tracks where a cell is in its execution lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateError    State = "error"
)

// Source is the canonical cell source representation: an ordered slice of
// lines, each line keeping its trailing newline. The last line may lack a
// terminator. This is the single internal form; string input is converted
// at the boundary by SourceFromString.
type Source []string

// SourceFromString splits a source string into lines, each retaining its
// trailing newline. An empty string yields an empty Source.
func SourceFromString(s string) Source {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	// SplitAfter leaves a trailing empty fragment when s ends with \n.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return Source(lines)
}

// String reassembles the source into a single string.
func (s Source) String() string {
	return strings.Join(s, "")
}

// FirstLine returns the first line with its terminator stripped, or ""
// for an empty source.
func (s Source) FirstLine() string {
	if len(s) == 0 {
		return ""
	}
	return strings.TrimRight(s[0], "\r\n")
}

// DropFirstLine returns the source without its first line.
func (s Source) DropFirstLine() Source {
	if len(s) == 0 {
		return s
	}
	return s[1:]
}

// Output is one execution output record. The exporter treats outputs as
// opaque and copies them through in order.
type Output struct {
	OutputType string         `json:"output_type"`
	Name       string         `json:"name,omitempty"`
	Text       []string       `json:"text,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Cell is one unit of executed or pending work in a session.
type Cell struct {
	// ID is assigned at creation and never changes. Unique per session.
	ID string

	Type   CellType
	Source Source

	// File and Line record where the source came from. Zero for cells
	// typed directly into the console and for synthetic cells.
	File string
	Line int

	State   State
	Outputs []Output

	// Version is the interpreter version string captured at session
	// start. Only meaningful on SysInfo cells.
	Version string
}

// NewCode creates a pending code cell with a fresh id.
func NewCode(source string, file string, line int) *Cell {
	return &Cell{
		ID:     uuid.NewString(),
		Type:   Code,
		Source: SourceFromString(source),
		File:   file,
		Line:   line,
		State:  StatePending,
	}
}

// NewMarkdown creates a pending markdown cell with a fresh id.
func NewMarkdown(source string) *Cell {
	return &Cell{
		ID:     uuid.NewString(),
		Type:   Markdown,
		Source: SourceFromString(source),
		State:  StatePending,
	}
}

// NewSysInfo creates a finished diagnostic cell carrying the interpreter
// banner and its dotted version string.
func NewSysInfo(banner, version string) *Cell {
	return &Cell{
		ID:      uuid.NewString(),
		Type:    SysInfo,
		Source:  SourceFromString(banner),
		State:   StateFinished,
		Version: version,
	}
}
