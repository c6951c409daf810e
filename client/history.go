package client

import "sync"

// History is a bounded log of finalized commands, newest last.
// When the bound is exceeded the oldest entries are discarded.
type History struct {
	mu    sync.RWMutex
	limit int
	items []*Command
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 256
	}
	return &History{limit: limit}
}

func (h *History) Record(cmd *Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, cmd)
	if len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
}

// Recent returns up to n most recent entries, oldest first.
func (h *History) Recent(n int) []*Command {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	out := make([]*Command, n)
	copy(out, h.items[len(h.items)-n:])
	return out
}

// ByPiece returns all entries for one piece, oldest first.
func (h *History) ByPiece(pieceID string) []*Command {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Command
	for _, cmd := range h.items {
		if cmd.data.PieceID == pieceID {
			out = append(out, cmd)
		}
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
