// Package marker detects cell boundary markers in source text. Scripts
// edited alongside a console session delimit cells with special comment
// lines ("# %%" and friends); the exporter strips a leading marker so the
// exported notebook does not repeat it inside the cell body.
package marker

import "strings"

// DefaultPrefixes are the marker spellings recognized out of the box.
var DefaultPrefixes = []string{"# %%", "#%%", "# <codecell>", "# In["}

// Matcher recognizes cell boundary marker lines.
type Matcher struct {
	prefixes []string
}

// New creates a matcher for the given marker prefixes, falling back to
// DefaultPrefixes when none are given.
func New(prefixes ...string) *Matcher {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return &Matcher{prefixes: prefixes}
}

// IsCellMarker reports whether line, ignoring leading whitespace, starts
// with one of the configured marker prefixes.
func (m *Matcher) IsCellMarker(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, p := range m.prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
