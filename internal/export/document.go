package export

import (
	"encoding/json"
	"fmt"

	"nbook/internal/cells"
)

// Notebook format constants stamped into every exported document.
const (
	NBFormat      = 4
	NBFormatMinor = 2
	OrigNBFormat  = 2
)

// Document is the exported notebook artifact. It is built fresh on every
// Export call and never mutated afterwards; writing it anywhere is the
// caller's job.
type Document struct {
	Cells         []DocumentCell `json:"cells"`
	Metadata      Metadata       `json:"metadata"`
	NBFormatField int            `json:"nbformat"`
	NBFormatMin   int            `json:"nbformat_minor"`
}

// DocumentCell is one exported cell record.
type DocumentCell struct {
	CellType string
	Source   []string
	Outputs  []cells.Output

	// ExecutionCount is only meaningful for code cells; nil renders as
	// null.
	ExecutionCount *int
}

// MarshalJSON renders the nbformat shape: markdown cells carry no outputs
// or execution count, code cells always carry both keys.
func (c DocumentCell) MarshalJSON() ([]byte, error) {
	src := c.Source
	if src == nil {
		src = []string{}
	}
	if c.CellType == string(cells.Markdown) {
		return json.Marshal(struct {
			CellType string         `json:"cell_type"`
			Metadata map[string]any `json:"metadata"`
			Source   []string       `json:"source"`
		}{c.CellType, map[string]any{}, src})
	}
	outs := c.Outputs
	if outs == nil {
		outs = []cells.Output{}
	}
	return json.Marshal(struct {
		CellType       string         `json:"cell_type"`
		ExecutionCount *int           `json:"execution_count"`
		Metadata       map[string]any `json:"metadata"`
		Outputs        []cells.Output `json:"outputs"`
		Source         []string       `json:"source"`
	}{c.CellType, c.ExecutionCount, map[string]any{}, outs, src})
}

// Metadata is the document-level metadata block.
type Metadata struct {
	LanguageInfo LanguageInfo `json:"language_info"`
	OrigNBFormat int          `json:"orig_nbformat"`
}

// LanguageInfo describes the session language for highlighters and
// converters. The lexer and codemirror mode embed the derived major
// version.
type LanguageInfo struct {
	CodemirrorMode    CodemirrorMode `json:"codemirror_mode"`
	FileExtension     string         `json:"file_extension"`
	MimeType          string         `json:"mimetype"`
	Name              string         `json:"name"`
	NBConvertExporter string         `json:"nbconvert_exporter"`
	PygmentsLexer     string         `json:"pygments_lexer"`
	Version           string         `json:"version"`
}

// CodemirrorMode tags the editing mode with the interpreter major version.
type CodemirrorMode struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// NewMetadata stamps the derived interpreter major version into the
// metadata block.
func NewMetadata(major int) Metadata {
	return Metadata{
		LanguageInfo: LanguageInfo{
			CodemirrorMode: CodemirrorMode{
				Name:    "ipython",
				Version: major,
			},
			FileExtension:     ".py",
			MimeType:          "text/x-python",
			Name:              "python",
			NBConvertExporter: "python",
			PygmentsLexer:     fmt.Sprintf("ipython%d", major),
			Version:           fmt.Sprintf("%d", major),
		},
		OrigNBFormat: OrigNBFormat,
	}
}

// Bytes renders the document as indented nbformat JSON.
func (d *Document) Bytes() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode notebook: %w", err)
	}
	return data, nil
}
