// Package history implements shell-style recall over previously submitted
// console input. Navigation has three zones: at-end (composing new input),
// mid-history, and saturated at the oldest entry. Every operation is total.
package history

// DefaultLimit caps the number of retained entries when no explicit limit
// is configured.
const DefaultLimit = 1000

// Navigator is a bounded recall stack over submitted input lines. Entries
// are stored newest-first. The zero value is not ready; use New. A
// Navigator belongs to a single console session and is not safe for
// concurrent use.
type Navigator struct {
	stack []string
	limit int

	// up is the index that the next CompleteUp will return; nil means
	// the cursor sits at the end with no navigation in progress.
	up   *int
	down *int
}

// New creates an empty navigator retaining at most limit entries. A
// non-positive limit falls back to DefaultLimit.
func New(limit int) *Navigator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Navigator{limit: limit}
}

// Len reports how many entries are retained.
func (n *Navigator) Len() int {
	return len(n.stack)
}

// Entries returns the retained entries oldest-first.
func (n *Navigator) Entries() []string {
	out := make([]string, len(n.stack))
	for i, e := range n.stack {
		out[len(n.stack)-1-i] = e
	}
	return out
}

// Add records a submitted entry and resets the cursor to the end, so the
// next CompleteUp starts fresh from the most recent entry. A consecutive
// duplicate of the newest entry is not stored twice. The oldest entry is
// dropped once the limit is reached.
func (n *Navigator) Add(entry string) {
	if len(n.stack) == 0 || n.stack[0] != entry {
		n.stack = append([]string{entry}, n.stack...)
		if len(n.stack) > n.limit {
			n.stack = n.stack[:n.limit]
		}
	}
	n.reset()
}

// CompleteUp moves one step toward older entries and returns the entry now
// selected. At the end of the stack the first probe returns the newest
// entry, skipping it when it equals current. Once the oldest entry has
// been returned, further calls return current unchanged.
func (n *Navigator) CompleteUp(current string) string {
	if len(n.stack) == 0 {
		return current
	}
	if n.up == nil {
		n.adjustCursors(current)
	}
	pos := *n.up
	if pos >= len(n.stack) {
		return current
	}
	result := n.stack[pos]
	n.down = intp(pos - 1)
	n.up = intp(pos + 1)
	return result
}

// CompleteDown moves one step toward newer entries. Without prior upward
// navigation it returns current unchanged. Stepping past the newest entry
// returns the empty string and leaves the cursor at the end, so a
// following CompleteUp starts again from the newest entry.
func (n *Navigator) CompleteDown(current string) string {
	if len(n.stack) == 0 || n.down == nil {
		return current
	}
	pos := *n.down
	if pos < 0 {
		n.reset()
		return ""
	}
	result := n.stack[pos]
	n.up = intp(pos + 1)
	n.down = intp(pos - 1)
	return result
}

// adjustCursors starts a fresh upward walk. When the newest entry matches
// what the user currently has typed, recalling it would be a no-op, so the
// walk starts one entry older.
func (n *Navigator) adjustCursors(current string) {
	start := 0
	for start < len(n.stack) && n.stack[start] == current {
		start++
	}
	n.up = intp(start)
	n.down = nil
}

func (n *Navigator) reset() {
	n.up = nil
	n.down = nil
}

func intp(v int) *int { return &v }
