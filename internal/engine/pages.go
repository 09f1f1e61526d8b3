package engine

import (
	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/typeid"
)

// AddPage appends a blank page sized like the last page (A4 when the
// document is empty), renumbers and commits. The new page becomes current.
func (e *Engine) AddPage() *document.Page {
	if e.doc == nil {
		return nil
	}

	w, h := document.A4Width, document.A4Height
	if n := len(e.doc.Pages); n > 0 {
		last := e.doc.Pages[n-1]
		w, h = last.Width, last.Height
	}

	page := &document.Page{
		ID:       typeid.NewPageID(),
		Width:    w,
		Height:   h,
		Elements: []*document.Element{},
	}
	e.doc.Pages = append(e.doc.Pages, page)
	e.doc.Renumber()

	e.pageIndex = len(e.doc.Pages) - 1
	e.selection = ""
	e.commit()
	return page
}

// DeletePage removes the page with the given 1-based number and renumbers
// the rest. The last remaining page cannot be deleted. Rasters owned by the
// removed page and its image elements are queued for release.
func (e *Engine) DeletePage(n int) bool {
	if e.doc == nil || n < 1 || n > len(e.doc.Pages) || len(e.doc.Pages) == 1 {
		return false
	}

	page := e.doc.Pages[n-1]
	if page.Background != "" {
		e.released = append(e.released, page.Background)
	}
	for _, el := range page.Elements {
		if el.Type == document.ElementImage && el.Image != nil && el.Image.AssetID != "" {
			e.released = append(e.released, el.Image.AssetID)
		}
	}

	e.doc.Pages = append(e.doc.Pages[:n-1], e.doc.Pages[n:]...)
	e.doc.Renumber()

	if e.pageIndex >= len(e.doc.Pages) {
		e.pageIndex = len(e.doc.Pages) - 1
	}
	e.selection = ""
	e.commit()
	return true
}

// DuplicatePage inserts a deep copy of the page with the given 1-based
// number directly after it. The copy gets fresh page and element ids (element
// ids are unique per page, but fresh ids keep asset ownership bookkeeping
// unambiguous) and shares the source's background raster reference.
func (e *Engine) DuplicatePage(n int) *document.Page {
	if e.doc == nil || n < 1 || n > len(e.doc.Pages) {
		return nil
	}

	dup := e.doc.Pages[n-1].Clone()
	dup.ID = typeid.NewPageID()
	for _, el := range dup.Elements {
		el.ID = typeid.NewElementID()
	}

	e.doc.Pages = append(e.doc.Pages[:n], append([]*document.Page{dup}, e.doc.Pages[n:]...)...)
	e.doc.Renumber()

	e.pageIndex = n // the copy
	e.selection = ""
	e.commit()
	return dup
}
