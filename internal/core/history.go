package core

import "sync"

const defaultHistorySize = 50

// importHistory keeps the most recent import results in memory. It is reset
// on restart; the leads themselves are the durable record.
type importHistory struct {
	mu      sync.Mutex
	entries []ImportResult
	next    int
	full    bool
}

func newImportHistory(size int) *importHistory {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &importHistory{entries: make([]ImportResult, size)}
}

func (h *importHistory) add(r ImportResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = r
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// list returns the recorded imports, newest first.
func (h *importHistory) list() []ImportResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}

	out := make([]ImportResult, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}
