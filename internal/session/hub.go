package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/engine"
)

// ErrDocumentOpen is returned when a document already has a live session.
// Each document has a single writer; a second tab has to wait.
var ErrDocumentOpen = errors.New("document is open in another session")

const saveTimeout = 10 * time.Second

// SnapshotSaver persists a session's serialized model as a new document
// version. *docsvc.Service implements it.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, documentID string, model []byte) error
}

// Hub tracks the live editor session per document and runs the close path:
// persist a final snapshot, then drop the raster references the session held.
type Hub struct {
	service SnapshotSaver
	assets  *asset.Store

	mu         sync.Mutex
	sessions   map[string]*Session // documentID -> session
	unregister chan *Session
}

func NewHub(service SnapshotSaver, assets *asset.Store) *Hub {
	return &Hub{
		service:    service,
		assets:     assets,
		sessions:   make(map[string]*Session),
		unregister: make(chan *Session),
	}
}

func (h *Hub) Run() {
	for sess := range h.unregister {
		h.closeSession(sess)
	}
}

// Register claims the document for a new session and takes a live reference
// to every raster the loaded document names, so none of them can disappear
// under the editor. Fails when another session already holds the document.
func (h *Hub) Register(sess *Session) error {
	h.mu.Lock()
	if _, open := h.sessions[sess.DocumentID]; open {
		h.mu.Unlock()
		return ErrDocumentOpen
	}
	h.sessions[sess.DocumentID] = sess
	h.mu.Unlock()

	if doc := sess.engine.Document(); doc != nil {
		for _, id := range doc.AssetIDs() {
			h.assets.Retain(id)
		}
	}
	return nil
}

func (h *Hub) closeSession(sess *Session) {
	h.mu.Lock()
	if h.sessions[sess.DocumentID] == sess {
		delete(h.sessions, sess.DocumentID)
	}
	h.mu.Unlock()
	close(sess.send)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := h.save(ctx, sess); err != nil {
		slog.Error("final save failed", "document", sess.DocumentID, "error", err)
	}
	h.releaseSessionRefs(sess.engine)

	slog.Info("session closed", "document", sess.DocumentID, "user", sess.UserID)
}

func (h *Hub) save(ctx context.Context, sess *Session) error {
	model, err := sess.engine.Serialize()
	if err != nil {
		return err
	}
	return h.service.SaveSnapshot(ctx, sess.DocumentID, model)
}

// releaseSessionRefs drops the references the session held: one per raster
// the final document still names (the snapshot saved on close holds its own)
// and one per raster whose owner was removed during the session and not
// brought back by undo. Rasters a persisted version still names survive; a
// raster nothing names anymore is deleted here.
func (h *Hub) releaseSessionRefs(eng *engine.Engine) {
	kept := make(map[string]bool)
	if doc := eng.Document(); doc != nil {
		for _, id := range doc.AssetIDs() {
			kept[id] = true
		}
	}

	// the drain queues one entry per removal, the session held one
	// reference per distinct id
	dropped := make(map[string]bool)
	for _, id := range eng.DrainReleasedAssets() {
		if !kept[id] {
			dropped[id] = true
		}
	}

	for id := range kept {
		h.release(id)
	}
	for id := range dropped {
		h.release(id)
	}
}

func (h *Hub) release(id string) {
	if err := h.assets.Release(id); err != nil {
		slog.Warn("release asset", "asset", id, "error", err)
	}
}
