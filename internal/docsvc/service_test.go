package docsvc

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/db"
	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/export"
	"github.com/pagemark/pagemark/backend-go/internal/importer"
)

type fakeStore struct {
	docs         map[string]db.Document
	snaps        map[string][]db.Snapshot
	failSnapshot bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]db.Document),
		snaps: make(map[string][]db.Snapshot),
	}
}

func (f *fakeStore) CreateDocument(ctx context.Context, p db.CreateDocumentParams) (db.Document, error) {
	d := db.Document{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID, PageCount: p.PageCount, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.docs[p.ID] = d
	return d, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id string) (db.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return db.Document{}, pgx.ErrNoRows
	}
	return d, nil
}

func (f *fakeStore) ListDocumentsForUser(ctx context.Context, ownerID string) ([]db.Document, error) {
	var out []db.Document
	for _, d := range f.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, id string) error {
	delete(f.docs, id)
	delete(f.snaps, id)
	return nil
}

func (f *fakeStore) TouchDocument(ctx context.Context, id string) error { return nil }

func (f *fakeStore) CreateSnapshot(ctx context.Context, p db.CreateSnapshotParams) (db.Snapshot, error) {
	if f.failSnapshot {
		return db.Snapshot{}, errors.New("insert failed")
	}
	s := db.Snapshot{ID: p.ID, DocumentID: p.DocumentID, Version: p.Version, Model: p.Model, CreatedAt: time.Now()}
	f.snaps[p.DocumentID] = append(f.snaps[p.DocumentID], s)
	return s, nil
}

func (f *fakeStore) GetLatestSnapshot(ctx context.Context, documentID string) (db.Snapshot, error) {
	snaps := f.snaps[documentID]
	if len(snaps) == 0 {
		return db.Snapshot{}, pgx.ErrNoRows
	}
	return snaps[len(snaps)-1], nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context, documentID string) ([]db.Snapshot, error) {
	return f.snaps[documentID], nil
}

type stubDecoder struct{ pages int }

func (d stubDecoder) Open(ctx context.Context, src []byte) (importer.SourceDocument, error) {
	return &stubSource{pages: d.pages}, nil
}

type stubSource struct{ pages int }

func (s *stubSource) Pages() []importer.PageInfo {
	infos := make([]importer.PageInfo, s.pages)
	for i := range infos {
		infos[i] = importer.PageInfo{Width: 612, Height: 792}
	}
	return infos
}

func (s *stubSource) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	return []byte("raster"), nil
}

func (s *stubSource) Close() error { return nil }

func newTestService(t *testing.T, fs *fakeStore) (*Service, *asset.Store) {
	t.Helper()
	assets, err := asset.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	imp := importer.New(stubDecoder{pages: 2}, assets, 2.0)
	return NewService(fs, imp, export.NewFlattener(assets), assets), assets
}

func assetFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read asset dir: %v", err)
	}
	return len(entries)
}

func TestCreatePersistsDocumentWithInitialSnapshot(t *testing.T) {
	fs := newFakeStore()
	svc, assets := newTestService(t, fs)

	doc, err := svc.Create(context.Background(), "Report", "user_1", []byte("%PDF"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.PageCount != 2 || doc.OwnerID != "user_1" {
		t.Fatalf("document = %+v", doc)
	}

	snaps := fs.snaps[doc.ID]
	if len(snaps) != 1 || snaps[0].Version != 1 {
		t.Fatalf("snapshots = %+v, want one version 1", snaps)
	}

	model, err := document.Unmarshal(snaps[0].Model)
	if err != nil {
		t.Fatalf("unmarshal model: %v", err)
	}
	if len(model.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(model.Pages))
	}
	for _, p := range model.Pages {
		if _, _, err := assets.Open(p.Background); err != nil {
			t.Fatalf("background %q not stored: %v", p.Background, err)
		}
	}
}

func TestCreateRollsBackWhenSnapshotFails(t *testing.T) {
	fs := newFakeStore()
	fs.failSnapshot = true
	svc, assets := newTestService(t, fs)

	if _, err := svc.Create(context.Background(), "Report", "user_1", []byte("%PDF")); err == nil {
		t.Fatal("create succeeded despite snapshot failure")
	}
	if len(fs.docs) != 0 {
		t.Fatalf("document row survived the failed import: %+v", fs.docs)
	}
	if n := assetFileCount(t, assets.Dir()); n != 0 {
		t.Fatalf("raster files left behind: %d", n)
	}
}

func TestSaveSnapshotRetainsNamedRasters(t *testing.T) {
	fs := newFakeStore()
	svc, assets := newTestService(t, fs)

	id, err := assets.Put([]byte("raster"), "png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	doc := document.New("doc_1", "Doc")
	doc.Pages = append(doc.Pages, &document.Page{
		ID: "page_1", Number: 1, Width: 612, Height: 792, Background: id, Elements: []*document.Element{},
	})
	model, err := document.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := svc.SaveSnapshot(context.Background(), "doc_1", model); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	// the caller's reference and the snapshot's must be distinct
	if err := assets.Release(id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, _, err := assets.Open(id); err != nil {
		t.Fatalf("raster gone while a snapshot names it: %v", err)
	}
	if err := assets.Release(id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, _, err := assets.Open(id); !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("open after last release = %v, want not found", err)
	}
}

func TestDeleteReleasesEveryVersion(t *testing.T) {
	fs := newFakeStore()
	svc, assets := newTestService(t, fs)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "Report", "user_1", []byte("%PDF"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// an editor session saves a second version still naming the rasters
	if err := svc.SaveSnapshot(ctx, doc.ID, fs.snaps[doc.ID][0].Model); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if len(fs.snaps[doc.ID]) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(fs.snaps[doc.ID]))
	}

	if err := svc.Delete(ctx, doc.ID, "user_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := assetFileCount(t, assets.Dir()); n != 0 {
		t.Fatalf("raster files survived delete: %d", n)
	}
}

func TestOwnershipChecks(t *testing.T) {
	fs := newFakeStore()
	svc, _ := newTestService(t, fs)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "Report", "user_1", []byte("%PDF"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, doc.ID, "user_2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete by non-owner = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(ctx, "doc_missing", "user_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get unknown document = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetLatestSnapshot(ctx, doc.ID, "user_1"); err != nil {
		t.Fatalf("get snapshot by owner: %v", err)
	}
}
