package engine

import (
	"github.com/pagemark/pagemark/backend-go/internal/document"
)

// Engine owns the editable document state for one editor session: the live
// document, the current page, the single-element selection, the undo history
// and the viewport. All methods are called from a single goroutine (the UI
// event loop, or the owning session's read pump); the engine does no locking
// of its own.
type Engine struct {
	doc       *document.Document
	pageIndex int
	selection string
	history   *History
	viewport  Viewport

	// gesture coalescing: while a drag is in progress, updates mutate the
	// live model without committing; exactly one commit happens on EndGesture
	gesture bool
	dirty   bool

	// asset ids whose owning element or page was removed. The engine has no
	// access to storage (it also runs under wasm); the host drains these and
	// releases the underlying buffers.
	released []string
}

// New creates an engine with no document loaded.
func New() *Engine {
	return &Engine{
		history:  NewHistory(),
		viewport: NewViewport(),
	}
}

// SetDocument installs a freshly imported or loaded document, resets the
// history and records the initial snapshot so the first edit can be undone
// back to the imported state.
func (e *Engine) SetDocument(doc *document.Document) {
	e.doc = doc
	e.pageIndex = 0
	e.selection = ""
	e.gesture = false
	e.dirty = false
	e.history = NewHistory()
	e.history.Commit(doc)
}

// LoadDocument parses a serialized snapshot and installs it.
func (e *Engine) LoadDocument(data []byte) error {
	doc, err := document.Unmarshal(data)
	if err != nil {
		return err
	}
	e.SetDocument(doc)
	return nil
}

// Serialize returns the current document in the persisted snapshot format.
func (e *Engine) Serialize() ([]byte, error) {
	if e.doc == nil {
		return nil, ErrNoDocument
	}
	return document.Marshal(e.doc)
}

// Document returns the live document. Callers must not mutate it.
func (e *Engine) Document() *document.Document {
	return e.doc
}

// CurrentPage returns the page being edited, or nil if no document is loaded.
func (e *Engine) CurrentPage() *document.Page {
	if e.doc == nil || e.pageIndex < 0 || e.pageIndex >= len(e.doc.Pages) {
		return nil
	}
	return e.doc.Pages[e.pageIndex]
}

// CurrentPageNumber returns the 1-based number of the current page, 0 if no
// document is loaded.
func (e *Engine) CurrentPageNumber() int {
	if p := e.CurrentPage(); p != nil {
		return p.Number
	}
	return 0
}

// SetPage switches the current page to the given 1-based number. Switching
// pages clears the selection.
func (e *Engine) SetPage(n int) bool {
	if e.doc == nil || n < 1 || n > len(e.doc.Pages) {
		return false
	}
	if e.pageIndex != n-1 {
		e.pageIndex = n - 1
		e.selection = ""
	}
	return true
}

// Selection returns the selected element id, or "".
func (e *Engine) Selection() string {
	return e.selection
}

// Select sets the selection to an existing, unlocked element on the current
// page. Returns false (and leaves the selection unchanged) otherwise.
func (e *Engine) Select(id string) bool {
	page := e.CurrentPage()
	if page == nil {
		return false
	}
	el := page.FindElement(id)
	if el == nil || el.Locked {
		return false
	}
	e.selection = id
	return true
}

// ClearSelection drops the selection.
func (e *Engine) ClearSelection() {
	e.selection = ""
}

// SetZoom clamps and applies a new zoom factor. The document is untouched.
func (e *Engine) SetZoom(z float64) {
	e.viewport.Zoom = ClampZoom(z)
}

// SetViewportOrigin moves the screen position of the page's top-left corner.
func (e *Engine) SetViewportOrigin(x, y float64) {
	e.viewport.OriginX = x
	e.viewport.OriginY = y
}

// Viewport returns the current viewport mapping.
func (e *Engine) Viewport() Viewport {
	return e.viewport
}

// PointerDown resolves a pointer-down in screen coordinates: hit test the
// current page and update the selection. Returns the selected element id, ""
// when the point hit nothing (which clears the selection).
func (e *Engine) PointerDown(screenX, screenY float64) string {
	page := e.CurrentPage()
	if page == nil {
		return ""
	}
	dx, dy := e.viewport.ToDocument(screenX, screenY)
	hit := HitTest(page, dx, dy)
	e.selection = hit
	return hit
}

// Undo restores the previous snapshot. Returns false when there is nothing
// to undo.
func (e *Engine) Undo() bool {
	doc, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(doc)
	return true
}

// Redo restores the next snapshot. Returns false when already at the tail.
func (e *Engine) Redo() bool {
	doc, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(doc)
	return true
}

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// restore swaps in a snapshot copy and re-validates cursor-dependent state:
// the page index is clamped and the selection is kept only if it still names
// an existing, unlocked element on the current page.
func (e *Engine) restore(doc *document.Document) {
	e.doc = doc
	if e.pageIndex >= len(doc.Pages) {
		e.pageIndex = len(doc.Pages) - 1
	}
	if e.pageIndex < 0 {
		e.pageIndex = 0
	}
	if e.selection != "" {
		page := e.CurrentPage()
		if page == nil {
			e.selection = ""
		} else if el := page.FindElement(e.selection); el == nil || el.Locked {
			e.selection = ""
		}
	}
}

// commit records one history entry for a completed user-visible edit. During
// a drag gesture the commit is deferred until EndGesture so continuous
// pointer motion never floods the history.
func (e *Engine) commit() {
	if e.gesture {
		e.dirty = true
		return
	}
	e.history.Commit(e.doc)
}

// BeginGesture marks the start of a continuous interaction (move/resize
// drag). Updates between BeginGesture and EndGesture mutate the live model
// without committing history.
func (e *Engine) BeginGesture() {
	e.gesture = true
	e.dirty = false
}

// EndGesture completes a continuous interaction, committing exactly one
// history entry if anything changed.
func (e *Engine) EndGesture() {
	if !e.gesture {
		return
	}
	e.gesture = false
	if e.dirty {
		e.dirty = false
		e.history.Commit(e.doc)
	}
}

// DrainReleasedAssets returns asset ids whose owners were removed since the
// last drain and clears the list. The host releases the underlying buffers.
func (e *Engine) DrainReleasedAssets() []string {
	out := e.released
	e.released = nil
	return out
}
