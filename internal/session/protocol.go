package session

import (
	"encoding/json"

	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/engine"
)

// Message is the wire envelope in both directions. Payload shape depends on
// Type; unknown payload fields are ignored.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Commands the editor shell sends.
const (
	TypePointerDown      = "pointer.down"
	TypeSelect           = "selection.set"
	TypeClearSelection   = "selection.clear"
	TypeCreateElement    = "element.create"
	TypeUpdateElement    = "element.update"
	TypeDuplicateElement = "element.duplicate"
	TypeDeleteElement    = "element.delete"
	TypeBeginGesture     = "gesture.begin"
	TypeEndGesture       = "gesture.end"
	TypeUndo             = "history.undo"
	TypeRedo             = "history.redo"
	TypeSetPage          = "page.set"
	TypeAddPage          = "page.add"
	TypeDeletePage       = "page.delete"
	TypeDuplicatePage    = "page.duplicate"
	TypeSetZoom          = "view.zoom"
	TypeSetOrigin        = "view.origin"
	TypeSave             = "doc.save"
)

// Responses the server sends.
const (
	TypeFrame = "frame"
	TypeSaved = "doc.saved"
	TypeError = "error"
)

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SelectPayload struct {
	ElementID string `json:"elementId"`
}

type CreateElementPayload struct {
	ElementType document.ElementType `json:"elementType"`
	X           float64              `json:"x"`
	Y           float64              `json:"y"`
}

type UpdateElementPayload struct {
	ElementID string              `json:"elementId"`
	Patch     engine.ElementPatch `json:"patch"`
}

type ElementRefPayload struct {
	ElementID string `json:"elementId"`
}

type PagePayload struct {
	Number int `json:"number"`
}

type ZoomPayload struct {
	Zoom float64 `json:"zoom"`
}

type OriginPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SavedPayload struct {
	OK bool `json:"ok"`
}
