package engine

import (
	"testing"

	"github.com/pagemark/pagemark/backend-go/internal/document"
)

func TestAddPage(t *testing.T) {
	e := newTestEngine(t)

	page := e.AddPage()
	if page == nil {
		t.Fatal("add page failed")
	}
	if page.Number != 3 {
		t.Fatalf("new page number = %d, want 3", page.Number)
	}
	if page.Width != document.A4Width || page.Height != document.A4Height {
		t.Fatalf("new page size = %vx%v", page.Width, page.Height)
	}
	if e.CurrentPageNumber() != 3 {
		t.Fatalf("current page = %d, want 3", e.CurrentPageNumber())
	}
}

func TestAddPageMatchesLastPageSize(t *testing.T) {
	e := New()
	e.SetDocument(&document.Document{
		ID: "doc_landscape",
		Pages: []*document.Page{
			{ID: "page_1", Number: 1, Width: 842, Height: 595, Elements: []*document.Element{}},
		},
	})

	page := e.AddPage()
	if page.Width != 842 || page.Height != 595 {
		t.Fatalf("new page size = %vx%v, want 842x595", page.Width, page.Height)
	}
}

func TestDeletePageRenumbers(t *testing.T) {
	e := newTestEngine(t)
	e.AddPage() // 3 pages

	if !e.DeletePage(2) {
		t.Fatal("delete page 2 failed")
	}

	doc := e.Document()
	if len(doc.Pages) != 2 {
		t.Fatalf("page count = %d, want 2", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if p.Number != i+1 {
			t.Fatalf("page %d numbered %d after delete", i, p.Number)
		}
	}
}

func TestDeleteLastPageRefused(t *testing.T) {
	e := New()
	e.SetDocument(&document.Document{
		ID: "doc_single",
		Pages: []*document.Page{
			{ID: "page_only", Number: 1, Width: 100, Height: 100, Elements: []*document.Element{}},
		},
	})

	if e.DeletePage(1) {
		t.Fatal("deleting the only page succeeded")
	}
	if len(e.Document().Pages) != 1 {
		t.Fatal("page was removed")
	}
}

func TestDeletePageClampsCurrent(t *testing.T) {
	e := newTestEngine(t)
	e.SetPage(2)

	if !e.DeletePage(2) {
		t.Fatal("delete failed")
	}
	if e.CurrentPageNumber() != 1 {
		t.Fatalf("current page = %d, want 1", e.CurrentPageNumber())
	}
}

func TestDeletePageReleasesAssets(t *testing.T) {
	e := newTestEngine(t)
	e.Document().Pages[1].Background = "asset_bg"
	e.Document().Pages[1].Elements = append(e.Document().Pages[1].Elements, &document.Element{
		ID: "el_img", Type: document.ElementImage, Width: 10, Height: 10, Visible: true,
		Image: &document.ImageProps{AssetID: "asset_img"},
	})

	if !e.DeletePage(2) {
		t.Fatal("delete failed")
	}

	ids := e.DrainReleasedAssets()
	if len(ids) != 2 {
		t.Fatalf("released = %v, want background and image assets", ids)
	}
}

func TestDuplicatePage(t *testing.T) {
	e := newTestEngine(t)
	el := e.CreateElement(document.ElementText, 10, 10)
	e.Document().Pages[0].Background = "asset_bg"

	dup := e.DuplicatePage(1)
	if dup == nil {
		t.Fatal("duplicate page failed")
	}

	doc := e.Document()
	if len(doc.Pages) != 3 {
		t.Fatalf("page count = %d, want 3", len(doc.Pages))
	}
	// inserted directly after the source
	if doc.Pages[1] != dup {
		t.Fatal("copy not inserted after the source page")
	}
	if dup.Number != 2 || doc.Pages[2].Number != 3 {
		t.Fatalf("numbering after duplicate: %d, %d", dup.Number, doc.Pages[2].Number)
	}

	if dup.ID == doc.Pages[0].ID {
		t.Fatal("copy shares the source page id")
	}
	if len(dup.Elements) != 1 || dup.Elements[0].ID == el.ID {
		t.Fatal("copy elements should be cloned with fresh ids")
	}
	if dup.Background != "asset_bg" {
		t.Fatal("copy lost the background reference")
	}

	if e.CurrentPageNumber() != 2 {
		t.Fatalf("current page = %d, want the copy", e.CurrentPageNumber())
	}
}
