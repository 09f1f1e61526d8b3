package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/typeid"
)

// Load errors. All of them are fatal to opening the editor: a half-loaded
// document has no safe partial state, so import never masks a per-page
// failure.
var (
	ErrCorrupt   = errors.New("source document is corrupt")
	ErrEncrypted = errors.New("source document is encrypted")
	ErrNoPages   = errors.New("source document has no pages")
)

// PageInfo describes one source page in document units (points).
type PageInfo struct {
	Width  float64
	Height float64
}

// SourceDocument is an opened source ready for probing and rasterization.
type SourceDocument interface {
	// Pages returns per-page dimensions in points, in page order.
	Pages() []PageInfo
	// RenderPage rasterizes the 1-based page to PNG bytes at the given
	// oversampling scale (1.0 = 72 dpi).
	RenderPage(ctx context.Context, page int, scale float64) ([]byte, error)
	Close() error
}

// SourceDecoder opens raw source-document bytes. Implementations report
// ErrCorrupt or ErrEncrypted for unusable sources.
type SourceDecoder interface {
	Open(ctx context.Context, src []byte) (SourceDocument, error)
}

// Importer converts source-document bytes into an initial editable document:
// one rasterized background per page, empty overlay.
type Importer struct {
	decoder SourceDecoder
	assets  *asset.Store
	scale   float64
}

// New creates an importer rasterizing at the given oversampling scale
// (rendered at scale×72 dpi for on-screen fidelity under zoom).
func New(decoder SourceDecoder, assets *asset.Store, scale float64) *Importer {
	if scale <= 0 {
		scale = 2.0
	}
	return &Importer{decoder: decoder, assets: assets, scale: scale}
}

// Import builds the initial document model from raw source bytes. The whole
// import fails if the source cannot be opened, has no pages, or any single
// page fails to render; backgrounds stored before the failure are released.
func (imp *Importer) Import(ctx context.Context, src []byte, name string) (*document.Document, error) {
	sd, err := imp.decoder.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer sd.Close()

	infos := sd.Pages()
	if len(infos) == 0 {
		return nil, ErrNoPages
	}

	doc := document.New(typeid.NewDocumentID(), name)
	var stored []string

	for i, info := range infos {
		raster, err := sd.RenderPage(ctx, i+1, imp.scale)
		if err != nil {
			imp.releaseAll(stored)
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		assetID, err := imp.assets.Put(raster, "png")
		if err != nil {
			imp.releaseAll(stored)
			return nil, fmt.Errorf("store page %d raster: %w", i+1, err)
		}
		stored = append(stored, assetID)

		doc.Pages = append(doc.Pages, &document.Page{
			ID:         typeid.NewPageID(),
			Number:     i + 1,
			Width:      info.Width,
			Height:     info.Height,
			Background: assetID,
			Elements:   []*document.Element{},
		})
	}

	slog.Info("import complete", "document", doc.ID, "pages", len(doc.Pages), "scale", imp.scale)
	return doc, nil
}

func (imp *Importer) releaseAll(ids []string) {
	for _, id := range ids {
		if err := imp.assets.Release(id); err != nil {
			slog.Warn("release imported raster", "asset", id, "error", err)
		}
	}
}
