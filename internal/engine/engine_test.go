package engine

import (
	"testing"

	"github.com/pagemark/pagemark/backend-go/internal/document"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	e.SetDocument(&document.Document{
		ID:   "doc_e",
		Name: "Engine Test",
		Pages: []*document.Page{
			{ID: "page_1", Number: 1, Width: document.A4Width, Height: document.A4Height, Elements: []*document.Element{}},
			{ID: "page_2", Number: 2, Width: document.A4Width, Height: document.A4Height, Elements: []*document.Element{}},
		},
	})
	return e
}

func TestSetDocumentResetsState(t *testing.T) {
	e := newTestEngine(t)
	e.CreateElement(document.ElementText, 10, 10)
	if !e.CanUndo() {
		t.Fatal("expected undo after an edit")
	}

	e.SetDocument(&document.Document{
		ID: "doc_other",
		Pages: []*document.Page{
			{ID: "page_x", Number: 1, Width: 100, Height: 100, Elements: []*document.Element{}},
		},
	})

	if e.CanUndo() || e.CanRedo() {
		t.Fatal("history survived SetDocument")
	}
	if e.Selection() != "" {
		t.Fatal("selection survived SetDocument")
	}
	if e.CurrentPageNumber() != 1 {
		t.Fatalf("current page = %d, want 1", e.CurrentPageNumber())
	}
}

func TestUndoRestoresImportedState(t *testing.T) {
	e := newTestEngine(t)

	el := e.CreateElement(document.ElementRectangle, 10, 10)
	if el == nil {
		t.Fatal("create failed")
	}
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if len(e.CurrentPage().Elements) != 0 {
		t.Fatal("undo did not remove the created element")
	}
	if e.Undo() {
		t.Fatal("undo past the imported state succeeded")
	}

	if !e.Redo() {
		t.Fatal("redo failed")
	}
	if len(e.CurrentPage().Elements) != 1 {
		t.Fatal("redo did not restore the element")
	}
}

func TestUndoClampsPageIndex(t *testing.T) {
	e := newTestEngine(t)

	e.AddPage() // page 3, becomes current
	if e.CurrentPageNumber() != 3 {
		t.Fatalf("current page after add = %d, want 3", e.CurrentPageNumber())
	}

	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if e.CurrentPageNumber() != 2 {
		t.Fatalf("current page after undo = %d, want 2 (clamped)", e.CurrentPageNumber())
	}
}

func TestUndoDropsStaleSelection(t *testing.T) {
	e := newTestEngine(t)

	el := e.CreateElement(document.ElementCircle, 30, 30)
	if e.Selection() != el.ID {
		t.Fatalf("selection = %q, want %q", e.Selection(), el.ID)
	}

	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if e.Selection() != "" {
		t.Fatalf("selection survived undo of creation: %q", e.Selection())
	}
}

func TestSelect(t *testing.T) {
	e := newTestEngine(t)
	el := e.CreateElement(document.ElementText, 10, 10)

	e.ClearSelection()
	if !e.Select(el.ID) {
		t.Fatal("select existing element failed")
	}
	if e.Select("el_missing") {
		t.Fatal("select unknown id succeeded")
	}
	if e.Selection() != el.ID {
		t.Fatal("failed select changed the selection")
	}

	locked := true
	e.UpdateElement(el.ID, ElementPatch{Locked: &locked})
	e.ClearSelection()
	if e.Select(el.ID) {
		t.Fatal("select locked element succeeded")
	}
}

func TestSetPageClearsSelection(t *testing.T) {
	e := newTestEngine(t)
	e.CreateElement(document.ElementText, 10, 10)

	if !e.SetPage(2) {
		t.Fatal("SetPage(2) failed")
	}
	if e.Selection() != "" {
		t.Fatal("selection survived page switch")
	}
	if e.SetPage(0) || e.SetPage(5) {
		t.Fatal("SetPage accepted an out-of-range number")
	}
}

func TestPointerDownSelectsThroughViewport(t *testing.T) {
	e := newTestEngine(t)
	el := e.CreateElement(document.ElementRectangle, 20, 20) // 120x80 default

	e.SetZoom(2.0)
	e.SetViewportOrigin(100, 100)

	// screen (140,140) -> document (20,20), the element's top-left corner
	if got := e.PointerDown(140, 140); got != el.ID {
		t.Fatalf("PointerDown = %q, want %q", got, el.ID)
	}

	// a miss clears the selection
	if got := e.PointerDown(0, 0); got != "" {
		t.Fatalf("PointerDown miss = %q, want empty", got)
	}
	if e.Selection() != "" {
		t.Fatal("selection survived a pointer miss")
	}
}

func TestSetZoomClamps(t *testing.T) {
	e := newTestEngine(t)

	e.SetZoom(99)
	if e.Viewport().Zoom != MaxZoom {
		t.Fatalf("zoom = %v, want %v", e.Viewport().Zoom, MaxZoom)
	}
	e.SetZoom(0.01)
	if e.Viewport().Zoom != MinZoom {
		t.Fatalf("zoom = %v, want %v", e.Viewport().Zoom, MinZoom)
	}
}

func TestGestureCoalescesCommits(t *testing.T) {
	e := newTestEngine(t)
	el := e.CreateElement(document.ElementRectangle, 10, 10)

	e.BeginGesture()
	for i := 1; i <= 10; i++ {
		x := float64(10 + i)
		e.UpdateElement(el.ID, ElementPatch{X: &x})
	}
	e.EndGesture()

	if e.CurrentPage().FindElement(el.ID).X != 20 {
		t.Fatalf("final X = %v, want 20", e.CurrentPage().FindElement(el.ID).X)
	}

	// one undo steps over the whole drag
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if got := e.CurrentPage().FindElement(el.ID).X; got != 10 {
		t.Fatalf("X after undo = %v, want 10", got)
	}
}

func TestEmptyGestureCommitsNothing(t *testing.T) {
	e := newTestEngine(t)
	e.CreateElement(document.ElementText, 10, 10)

	e.BeginGesture()
	e.EndGesture()

	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if e.CanUndo() {
		t.Fatal("empty gesture added a history entry")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	e.CreateElement(document.ElementText, 10, 10)

	data, err := e.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	e2 := New()
	if err := e2.LoadDocument(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(e2.CurrentPage().Elements) != 1 {
		t.Fatal("element lost in serialize round trip")
	}

	if _, err := New().Serialize(); err != ErrNoDocument {
		t.Fatalf("serialize without document = %v, want ErrNoDocument", err)
	}
}

func TestRenderFrame(t *testing.T) {
	e := newTestEngine(t)
	el := e.CreateElement(document.ElementText, 10, 10)
	hidden := e.CreateElement(document.ElementRectangle, 50, 50)
	vis := false
	e.UpdateElement(hidden.ID, ElementPatch{Visible: &vis})
	e.Select(el.ID)

	frame := e.Render()
	if frame.Page != 1 || frame.PageCount != 2 {
		t.Fatalf("frame page info = %d/%d", frame.Page, frame.PageCount)
	}
	if frame.Selection != el.ID {
		t.Fatalf("frame selection = %q", frame.Selection)
	}
	if !frame.CanUndo {
		t.Fatal("frame reports no undo after edits")
	}

	if len(frame.Commands) != 1 {
		t.Fatalf("command count = %d, want 1 (hidden element skipped)", len(frame.Commands))
	}
	cmd := frame.Commands[0]
	if cmd.Op != "text" || cmd.ElementID != el.ID || !cmd.Selected {
		t.Fatalf("command = %+v", cmd)
	}
}
