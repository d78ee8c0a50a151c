// Package term collapses raw execution output into the text a terminal
// would actually display. Interpreters emit progress indicators by
// rewriting the current line with bare carriage returns; stored verbatim,
// that output would replay every intermediate frame.
package term

import "strings"

// Collapse resolves carriage-return overwrites in raw, keeping only the
// final visible state of each line. CRLF sequences are ordinary line
// endings and are normalized to a single newline; within a line, a bare
// \r returns the cursor to the start, so only the text after the last \r
// survives. Real newlines are preserved as line boundaries.
func Collapse(raw string) string {
	if !strings.ContainsRune(raw, '\r') {
		return raw
	}

	normalized := collapseCRLF(raw)

	segments := strings.Split(normalized, "\n")
	for i, seg := range segments {
		if idx := strings.LastIndexByte(seg, '\r'); idx >= 0 {
			segments[i] = seg[idx+1:]
		}
	}
	return strings.Join(segments, "\n")
}

// collapseCRLF rewrites every run of carriage returns directly followed
// by a newline into a single newline.
func collapseCRLF(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			pending++
		case '\n':
			// The \r run was a line ending, drop it.
			pending = 0
			b.WriteByte('\n')
		default:
			for ; pending > 0; pending-- {
				b.WriteByte('\r')
			}
			b.WriteByte(s[i])
		}
	}
	for ; pending > 0; pending-- {
		b.WriteByte('\r')
	}
	return b.String()
}
