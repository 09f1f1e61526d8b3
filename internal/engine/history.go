package engine

import "github.com/pagemark/pagemark/backend-go/internal/document"

// History is the linear undo stack: full deep snapshots of the document plus
// a cursor. Snapshots are deep copies in both directions, so the stack never
// aliases the live document. Deltas would be cheaper but full copies make
// exact-state restoration trivially correct.
type History struct {
	stack  []*document.Document
	cursor int
}

// NewHistory returns an empty history. The cursor is -1 until the first
// commit.
func NewHistory() *History {
	return &History{cursor: -1}
}

// Commit records a snapshot of doc. Entries past the cursor are discarded
// first, so committing after an undo makes redo unavailable.
func (h *History) Commit(doc *document.Document) {
	h.stack = append(h.stack[:h.cursor+1], doc.Clone())
	h.cursor = len(h.stack) - 1
}

// Undo steps the cursor back and returns a copy of that snapshot. Returns
// false when there is nothing to undo.
func (h *History) Undo() (*document.Document, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.stack[h.cursor].Clone(), true
}

// Redo steps the cursor forward and returns a copy of that snapshot. Returns
// false when already at the tail.
func (h *History) Redo() (*document.Document, bool) {
	if h.cursor >= len(h.stack)-1 {
		return nil, false
	}
	h.cursor++
	return h.stack[h.cursor].Clone(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.stack)-1 }

// Len returns the number of recorded snapshots.
func (h *History) Len() int { return len(h.stack) }

// Cursor returns the current cursor index, -1 when empty.
func (h *History) Cursor() int { return h.cursor }
