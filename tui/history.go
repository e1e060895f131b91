// Package tui provides a Bubble Tea terminal UI over an osricore session.
package tui

// History keeps the most recent input lines for Up/Down recall.
type History struct {
	entries []string
	limit   int
	cursor  int // -1 while not navigating
}

// NewHistory creates a history holding at most limit lines.
func NewHistory(limit int) *History {
	return &History{entries: make([]string, 0, limit), limit: limit, cursor: -1}
}

// Push records a line. Repeating the latest line is a no-op.
func (h *History) Push(line string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	if len(h.entries) == h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.limit-1]
	}
	h.entries = append(h.entries, line)
}

// Prev steps back to an older line, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor < 0:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps forward to a newer line. Stepping past the newest ends
// navigation and reports false.
func (h *History) Next() (string, bool) {
	if h.cursor < 0 {
		return "", false
	}
	if h.cursor++; h.cursor < len(h.entries) {
		return h.entries[h.cursor], true
	}
	h.cursor = -1
	return "", false
}

// ResetCursor ends navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}
