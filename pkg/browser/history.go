package browser

const (
	// MaxHistory bounds the navigation history; the oldest entry is evicted first.
	MaxHistory = 50

	recentHistory = 10
	previewRunes  = 500
)

type history struct {
	entries []HistoryEntry
}

func (h *history) push(e HistoryEntry) {
	if len(h.entries) == MaxHistory {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:MaxHistory-1]
	}
	h.entries = append(h.entries, e)
}

func (h *history) len() int { return len(h.entries) }

func (h *history) last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// recent returns up to n entries, most recent first.
func (h *history) recent(n int) []HistoryEntry {
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(h.entries) - 1; i >= len(h.entries)-n; i-- {
		out = append(out, h.entries[i])
	}
	return out
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes])
}
