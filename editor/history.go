package editor

import "bytes"

// historyCap bounds the undo stack. Oldest entries are evicted once the
// stack is full; eviction never touches the redo stack.
const historyCap = 50

// History is the linear undo/redo stack of serialized scene snapshots.
// Snapshots are opaque blobs; byte equality is state equality because the
// scene codec is deterministic. Not safe for concurrent use; the owning
// session serializes access.
type History struct {
	entries    [][]byte
	redo       [][]byte
	limit      int
	suppressed bool
}

func NewHistory() *History {
	return &History{limit: historyCap}
}

// Capture appends a snapshot and reports whether it actually did. Nothing
// happens while restore-suppression is asserted, so replaying a snapshot
// into the canvas cannot re-pollute the stack. A snapshot byte-equal to the
// current top is dropped (selection churn serializes to the same state).
// The redo stack is cleared only by a fresh append; deduped captures and
// cap eviction leave it alone.
func (h *History) Capture(snap []byte) bool {
	if h.suppressed {
		return false
	}
	if n := len(h.entries); n > 0 && bytes.Equal(h.entries[n-1], snap) {
		return false
	}
	h.entries = append(h.entries, snap)
	if over := len(h.entries) - h.limit; over > 0 {
		trimmed := make([][]byte, h.limit)
		copy(trimmed, h.entries[over:])
		h.entries = trimmed
	}
	h.redo = nil
	return true
}

// Undo pops the current top onto the redo stack and returns the snapshot
// that is now topmost, which the caller must load under restore
// suppression. With fewer than two entries there is nothing to return to
// and Undo returns nil.
func (h *History) Undo() []byte {
	n := len(h.entries)
	if n < 2 {
		return nil
	}
	top := h.entries[n-1]
	h.entries = h.entries[:n-1]
	h.redo = append(h.redo, top)
	return h.entries[n-2]
}

// Redo moves the most recently undone snapshot back onto the stack and
// returns it, or nil when nothing has been undone.
func (h *History) Redo() []byte {
	n := len(h.redo)
	if n == 0 {
		return nil
	}
	next := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.entries = append(h.entries, next)
	return next
}

// Reset discards everything and seeds the stack with snap alone. Used when
// a saved artwork is loaded or the canvas is cleared.
func (h *History) Reset(snap []byte) {
	h.entries = [][]byte{snap}
	h.redo = nil
}

// BeginRestore asserts capture suppression. It stays asserted until
// EndRestore, which the session calls only from the renderer's load
// completion callback.
func (h *History) BeginRestore() { h.suppressed = true }

func (h *History) EndRestore() { h.suppressed = false }

func (h *History) Suppressed() bool { return h.suppressed }

func (h *History) Len() int { return len(h.entries) }

func (h *History) CanUndo() bool { return len(h.entries) >= 2 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }
