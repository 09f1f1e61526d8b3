package engine

import (
	"errors"

	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/typeid"
)

var ErrNoDocument = errors.New("no document loaded")

// Duplicated elements are offset by a fixed delta so the copy is visibly
// distinct from the original.
const duplicateOffset = 20.0

// ElementPatch is a partial update: only non-nil fields are applied. Variant
// sub-patches that do not match the element's type are ignored.
type ElementPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	ZIndex   *int     `json:"zIndex,omitempty"`
	Locked   *bool    `json:"locked,omitempty"`
	Visible  *bool    `json:"visible,omitempty"`

	Text  *TextPatch  `json:"text,omitempty"`
	Image *ImagePatch `json:"image,omitempty"`
	Shape *ShapePatch `json:"shape,omitempty"`
}

type TextPatch struct {
	Content       *string             `json:"content,omitempty"`
	FontSize      *float64            `json:"fontSize,omitempty"`
	FontFamily    *string             `json:"fontFamily,omitempty"`
	Color         *string             `json:"color,omitempty"`
	Bold          *bool               `json:"bold,omitempty"`
	Italic        *bool               `json:"italic,omitempty"`
	Underline     *bool               `json:"underline,omitempty"`
	Strikethrough *bool               `json:"strikethrough,omitempty"`
	Align         *document.Alignment `json:"align,omitempty"`
}

type ImagePatch struct {
	AssetID *string `json:"assetId,omitempty"`
}

type ShapePatch struct {
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
}

// CreateElement places a new element of the given variant at a document-space
// position on the current page. The element gets a fresh id, default size and
// styling for its variant, and a z-index equal to the current element count
// so it paints above everything already on the page. The new element becomes
// the selection and the creation is committed to history.
func (e *Engine) CreateElement(t document.ElementType, x, y float64) *document.Element {
	page := e.CurrentPage()
	if page == nil {
		return nil
	}

	el := newDefaultElement(t)
	if el == nil {
		return nil
	}
	el.X = x
	el.Y = y
	el.ZIndex = len(page.Elements)

	page.Elements = append(page.Elements, el)
	e.selection = el.ID
	e.commit()
	return el
}

// newDefaultElement builds an element with per-variant default size and
// styling. The switch is exhaustive over the element variants.
func newDefaultElement(t document.ElementType) *document.Element {
	el := &document.Element{
		ID:      typeid.NewElementID(),
		Type:    t,
		Visible: true,
	}

	switch t {
	case document.ElementText:
		el.Width, el.Height = 200, 24
		el.Text = &document.TextProps{
			Content:    "Text",
			FontSize:   16,
			FontFamily: "Helvetica",
			Color:      "#000000",
			Align:      document.AlignLeft,
		}
	case document.ElementImage:
		el.Width, el.Height = 200, 150
		el.Image = &document.ImageProps{}
	case document.ElementRectangle:
		el.Width, el.Height = 120, 80
		el.Shape = &document.ShapeProps{Fill: "#d9d9d9", Stroke: "#333333", StrokeWidth: 1}
	case document.ElementCircle:
		el.Width, el.Height = 100, 100
		el.Shape = &document.ShapeProps{Fill: "#d9d9d9", Stroke: "#333333", StrokeWidth: 1}
	case document.ElementLine:
		// for lines the height is the stroke thickness, not a bounding extent
		el.Width, el.Height = 160, 2
		el.Shape = &document.ShapeProps{Fill: "none", Stroke: "#333333", StrokeWidth: 2}
	default:
		return nil
	}
	return el
}

// UpdateElement merges the supplied attributes into the element with the
// given id on the current page. An unknown id is a no-op returning false:
// the UI may legitimately race an update against a delete. Locked elements
// reject all updates except unlocking.
func (e *Engine) UpdateElement(id string, patch ElementPatch) bool {
	page := e.CurrentPage()
	if page == nil {
		return false
	}
	el := page.FindElement(id)
	if el == nil {
		return false
	}
	if el.Locked && (patch.Locked == nil || *patch.Locked) {
		return false
	}

	applyPatch(el, patch, &e.released)
	if el.Locked && e.selection == el.ID {
		// the selection may only name an unlocked element
		e.selection = ""
	}
	e.commit()
	return true
}

func applyPatch(el *document.Element, patch ElementPatch, released *[]string) {
	if patch.X != nil {
		el.X = *patch.X
	}
	if patch.Y != nil {
		el.Y = *patch.Y
	}
	if patch.Width != nil {
		el.Width = *patch.Width
	}
	if patch.Height != nil {
		el.Height = *patch.Height
	}
	if patch.Rotation != nil {
		el.Rotation = *patch.Rotation
	}
	if patch.ZIndex != nil {
		el.ZIndex = *patch.ZIndex
	}
	if patch.Locked != nil {
		el.Locked = *patch.Locked
	}
	if patch.Visible != nil {
		el.Visible = *patch.Visible
	}

	if patch.Text != nil && el.Type == document.ElementText && el.Text != nil {
		applyTextPatch(el.Text, patch.Text)
	}
	if patch.Image != nil && el.Type == document.ElementImage && el.Image != nil {
		if patch.Image.AssetID != nil && *patch.Image.AssetID != el.Image.AssetID {
			if el.Image.AssetID != "" {
				*released = append(*released, el.Image.AssetID)
			}
			el.Image.AssetID = *patch.Image.AssetID
		}
	}
	if patch.Shape != nil && el.Shape != nil {
		switch el.Type {
		case document.ElementRectangle, document.ElementCircle, document.ElementLine:
			applyShapePatch(el.Shape, patch.Shape)
		}
	}
}

func applyTextPatch(t *document.TextProps, p *TextPatch) {
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.FontSize != nil {
		t.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		t.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.Bold != nil {
		t.Bold = *p.Bold
	}
	if p.Italic != nil {
		t.Italic = *p.Italic
	}
	if p.Underline != nil {
		t.Underline = *p.Underline
	}
	if p.Strikethrough != nil {
		t.Strikethrough = *p.Strikethrough
	}
	if p.Align != nil {
		t.Align = *p.Align
	}
}

func applyShapePatch(s *document.ShapeProps, p *ShapePatch) {
	if p.Fill != nil {
		s.Fill = *p.Fill
	}
	if p.Stroke != nil {
		s.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = *p.StrokeWidth
	}
}

// DuplicateElement clones the element with the given id: all attributes are
// copied, the copy gets a fresh id, its position is offset by a fixed delta,
// and its z-index is the pre-duplication element count so it paints on top.
// The copy becomes the selection.
func (e *Engine) DuplicateElement(id string) *document.Element {
	page := e.CurrentPage()
	if page == nil {
		return nil
	}
	src := page.FindElement(id)
	if src == nil {
		return nil
	}

	dup := src.Clone()
	dup.ID = typeid.NewElementID()
	dup.X += duplicateOffset
	dup.Y += duplicateOffset
	dup.ZIndex = len(page.Elements)

	page.Elements = append(page.Elements, dup)
	e.selection = dup.ID
	e.commit()
	return dup
}

// DeleteElement removes the element with the given id from the current page.
// Unknown ids are a no-op. Deleting the selected element clears the
// selection; an image element's raster buffer is queued for release.
func (e *Engine) DeleteElement(id string) bool {
	page := e.CurrentPage()
	if page == nil {
		return false
	}
	el := page.FindElement(id)
	if el == nil {
		return false
	}

	if el.Type == document.ElementImage && el.Image != nil && el.Image.AssetID != "" {
		e.released = append(e.released, el.Image.AssetID)
	}
	page.RemoveElement(id)
	if e.selection == id {
		e.selection = ""
	}
	e.commit()
	return true
}
