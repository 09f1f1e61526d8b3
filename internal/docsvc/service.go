package docsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/db"
	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/export"
	"github.com/pagemark/pagemark/backend-go/internal/importer"
	"github.com/pagemark/pagemark/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("forbidden")
)

// store is the slice of the data layer the service uses. *db.Queries
// implements it.
type store interface {
	CreateDocument(ctx context.Context, p db.CreateDocumentParams) (db.Document, error)
	GetDocument(ctx context.Context, id string) (db.Document, error)
	ListDocumentsForUser(ctx context.Context, ownerID string) ([]db.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	TouchDocument(ctx context.Context, id string) error
	CreateSnapshot(ctx context.Context, p db.CreateSnapshotParams) (db.Snapshot, error)
	GetLatestSnapshot(ctx context.Context, documentID string) (db.Snapshot, error)
	ListSnapshots(ctx context.Context, documentID string) ([]db.Snapshot, error)
}

// Service owns document lifecycle: import-at-creation, snapshot persistence
// for editor sessions, flattening for download, and asset release on delete.
type Service struct {
	queries   store
	importer  *importer.Importer
	flattener *export.Flattener
	assets    *asset.Store
}

func NewService(queries store, imp *importer.Importer, flattener *export.Flattener, assets *asset.Store) *Service {
	return &Service{queries: queries, importer: imp, flattener: flattener, assets: assets}
}

type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	PageCount int    `json:"pageCount"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Create imports source PDF bytes into a fresh editable document and
// persists it with its initial snapshot. Import failures are load errors:
// nothing is persisted and no document exists afterwards.
func (s *Service) Create(ctx context.Context, name, ownerID string, source []byte) (*Document, error) {
	doc, err := s.importer.Import(ctx, source, name)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	model, err := document.Marshal(doc)
	if err != nil {
		s.releaseAssets(doc.AssetIDs())
		return nil, err
	}

	dbDoc, err := s.queries.CreateDocument(ctx, db.CreateDocumentParams{
		ID:        doc.ID,
		Name:      name,
		OwnerID:   ownerID,
		PageCount: int32(len(doc.Pages)),
	})
	if err != nil {
		s.releaseAssets(doc.AssetIDs())
		return nil, fmt.Errorf("create document: %w", err)
	}

	// the references taken when the importer stored the page rasters are
	// carried by the initial snapshot; later versions take their own in
	// SaveSnapshot
	_, err = s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:         typeid.NewSnapshotID(),
		DocumentID: doc.ID,
		Version:    1,
		Model:      model,
	})
	if err != nil {
		// roll the row back so a document that can never open does not list
		if derr := s.queries.DeleteDocument(ctx, doc.ID); derr != nil {
			slog.Warn("roll back document", "document", doc.ID, "error", derr)
		}
		s.releaseAssets(doc.AssetIDs())
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbDocumentToDocument(dbDoc), nil
}

func (s *Service) Get(ctx context.Context, documentID, userID string) (*Document, error) {
	dbDoc, err := s.getOwned(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	return dbDocumentToDocument(*dbDoc), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Document, error) {
	dbDocs, err := s.queries.ListDocumentsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]Document, len(dbDocs))
	for i, d := range dbDocs {
		docs[i] = *dbDocumentToDocument(d)
	}
	return docs, nil
}

// Delete removes the document and its snapshots. Every persisted version
// holds a reference to the rasters it names; they are released version by
// version, so a raster file disappears only with its last referencing
// snapshot.
func (s *Service) Delete(ctx context.Context, documentID, userID string) error {
	if _, err := s.getOwned(ctx, documentID, userID); err != nil {
		return err
	}

	snaps, err := s.queries.ListSnapshots(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if err := s.queries.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	for _, snap := range snaps {
		if doc, err := document.Unmarshal(snap.Model); err == nil {
			s.releaseAssets(doc.AssetIDs())
		}
	}
	return nil
}

// GetLatestSnapshot returns the latest serialized model for the editor.
func (s *Service) GetLatestSnapshot(ctx context.Context, documentID, userID string) ([]byte, error) {
	if _, err := s.getOwned(ctx, documentID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Model, nil
}

// SaveSnapshot persists a new model version for an editor session.
func (s *Service) SaveSnapshot(ctx context.Context, documentID string, model []byte) error {
	version := int32(1)
	if snap, err := s.queries.GetLatestSnapshot(ctx, documentID); err == nil {
		version = snap.Version + 1
	}

	_, err := s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:         typeid.NewSnapshotID(),
		DocumentID: documentID,
		Version:    version,
		Model:      model,
	})
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	// the new version keeps its own reference to every raster it names;
	// Delete walks the versions and releases them
	if doc, err := document.Unmarshal(model); err == nil {
		for _, id := range doc.AssetIDs() {
			s.assets.Retain(id)
		}
	} else {
		slog.Warn("parse saved model", "document", documentID, "error", err)
	}

	if err := s.queries.TouchDocument(ctx, documentID); err != nil {
		slog.Warn("touch document", "document", documentID, "error", err)
	}
	return nil
}

// Export flattens the latest snapshot into PDF bytes plus a warning per
// skipped element.
func (s *Service) Export(ctx context.Context, documentID, userID string) ([]byte, []export.Warning, error) {
	model, err := s.GetLatestSnapshot(ctx, documentID, userID)
	if err != nil {
		return nil, nil, err
	}

	doc, err := document.Unmarshal(model)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}

	return s.flattener.Flatten(ctx, doc)
}

func (s *Service) getOwned(ctx context.Context, documentID, userID string) (*db.Document, error) {
	dbDoc, err := s.queries.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	if dbDoc.OwnerID != userID {
		return nil, ErrForbidden
	}
	return &dbDoc, nil
}

func (s *Service) releaseAssets(ids []string) {
	for _, id := range ids {
		if err := s.assets.Release(id); err != nil {
			slog.Warn("release asset", "asset", id, "error", err)
		}
	}
}

func dbDocumentToDocument(d db.Document) *Document {
	return &Document{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		PageCount: int(d.PageCount),
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
