package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
)

// fakeDecoder serves canned page layouts without shelling out to a renderer.
type fakeDecoder struct {
	openErr   error
	pages     []PageInfo
	failPage  int // 1-based page whose render fails, 0 for none
	renderErr error
}

type fakeSource struct {
	d *fakeDecoder
}

func (d *fakeDecoder) Open(ctx context.Context, src []byte) (SourceDocument, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &fakeSource{d: d}, nil
}

func (s *fakeSource) Pages() []PageInfo { return s.d.pages }

func (s *fakeSource) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	if s.d.failPage == page {
		if s.d.renderErr != nil {
			return nil, s.d.renderErr
		}
		return nil, errors.New("render failed")
	}
	return []byte(fmt.Sprintf("raster-page-%d", page)), nil
}

func (s *fakeSource) Close() error { return nil }

func newTestImporter(t *testing.T, d *fakeDecoder) (*Importer, *asset.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := asset.NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New(d, store, 2.0), store, dir
}

func TestImportBuildsDocument(t *testing.T) {
	d := &fakeDecoder{pages: []PageInfo{
		{Width: 595, Height: 842},
		{Width: 842, Height: 595},
	}}
	imp, store, _ := newTestImporter(t, d)

	doc, err := imp.Import(context.Background(), []byte("%PDF"), "report")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if doc.Name != "report" || len(doc.Pages) != 2 {
		t.Fatalf("document = %+v", doc)
	}
	for i, p := range doc.Pages {
		if p.Number != i+1 {
			t.Fatalf("page %d numbered %d", i, p.Number)
		}
		if p.Background == "" {
			t.Fatalf("page %d has no background raster", i+1)
		}
		if len(p.Elements) != 0 {
			t.Fatalf("page %d has %d elements, want empty overlay", i+1, len(p.Elements))
		}
		if data, _, err := store.Open(p.Background); err != nil || len(data) == 0 {
			t.Fatalf("page %d raster not stored: %v", i+1, err)
		}
	}
	if doc.Pages[1].Width != 842 || doc.Pages[1].Height != 595 {
		t.Fatalf("mixed page sizes lost: %+v", doc.Pages[1])
	}
}

func TestImportFailsAtomically(t *testing.T) {
	d := &fakeDecoder{
		pages:    []PageInfo{{Width: 595, Height: 842}, {Width: 595, Height: 842}, {Width: 595, Height: 842}},
		failPage: 3,
	}
	imp, _, dir := newTestImporter(t, d)

	_, err := imp.Import(context.Background(), []byte("%PDF"), "broken")
	if err == nil {
		t.Fatal("import succeeded despite a failing page")
	}

	// rasters stored for pages 1 and 2 must be rolled back
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("read dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("%d orphaned rasters after failed import", len(entries))
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		decoder *fakeDecoder
		wantErr error
	}{
		{"encrypted", &fakeDecoder{openErr: ErrEncrypted}, ErrEncrypted},
		{"corrupt", &fakeDecoder{openErr: ErrCorrupt}, ErrCorrupt},
		{"no pages", &fakeDecoder{pages: nil}, ErrNoPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, _, _ := newTestImporter(t, tt.decoder)
			_, err := imp.Import(context.Background(), []byte("%PDF"), "x")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("import error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
