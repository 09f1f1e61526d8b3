package document

import "sort"

// ElementType discriminates the closed set of placeable element variants.
// Paint and property handling switch over this exhaustively; adding a variant
// means updating every switch, which is the point.
type ElementType string

const (
	ElementText      ElementType = "text"
	ElementImage     ElementType = "image"
	ElementRectangle ElementType = "rectangle"
	ElementCircle    ElementType = "circle"
	ElementLine      ElementType = "line"
)

// Alignment is the horizontal alignment of text within its box.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TextProps are the attributes specific to text elements.
type TextProps struct {
	Content       string    `json:"content"`
	FontSize      float64   `json:"fontSize"`
	FontFamily    string    `json:"fontFamily"`
	Color         string    `json:"color"`
	Bold          bool      `json:"bold"`
	Italic        bool      `json:"italic"`
	Underline     bool      `json:"underline"`
	Strikethrough bool      `json:"strikethrough"`
	Align         Alignment `json:"align"`
}

// ImageProps are the attributes specific to image elements. The asset ID
// references raster bytes owned by this element; it is released when the
// element is deleted or the document is discarded.
type ImageProps struct {
	AssetID string `json:"assetId"`
}

// ShapeProps are the attributes shared by the shape variants. Fill may be
// "none" for stroke-only shapes. For line elements the element height is the
// stroke thickness rather than a bounding extent.
type ShapeProps struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Element is one placeable unit on a page. Exactly one of the variant
// pointers matching Type is set.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`
	ZIndex   int         `json:"zIndex"`
	Locked   bool        `json:"locked"`
	Visible  bool        `json:"visible"`

	Text  *TextProps  `json:"text,omitempty"`
	Image *ImageProps `json:"image,omitempty"`
	Shape *ShapeProps `json:"shape,omitempty"`
}

// Page is one sheet with fixed dimensions in points, an optional raster
// background from import, and the overlay elements placed on it. Elements is
// kept in creation order; paint order is governed by ZIndex.
type Page struct {
	ID         string     `json:"id"`
	Number     int        `json:"number"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background string     `json:"background,omitempty"` // asset id of the page raster
	Elements   []*Element `json:"elements"`
}

// Document is the full editable composition: an ordered list of pages.
type Document struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Pages []*Page `json:"pages"`
}

// New creates an empty document with no pages.
func New(id, name string) *Document {
	return &Document{
		ID:    id,
		Name:  name,
		Pages: []*Page{},
	}
}

// Clone returns a deep copy. History snapshots rely on the copy sharing no
// mutable state with the original.
func (d *Document) Clone() *Document {
	out := &Document{
		ID:    d.ID,
		Name:  d.Name,
		Pages: make([]*Page, len(d.Pages)),
	}
	for i, p := range d.Pages {
		out.Pages[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy of the page and its elements.
func (p *Page) Clone() *Page {
	out := &Page{
		ID:         p.ID,
		Number:     p.Number,
		Width:      p.Width,
		Height:     p.Height,
		Background: p.Background,
		Elements:   make([]*Element, len(p.Elements)),
	}
	for i, e := range p.Elements {
		out.Elements[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	out := *e
	if e.Text != nil {
		t := *e.Text
		out.Text = &t
	}
	if e.Image != nil {
		img := *e.Image
		out.Image = &img
	}
	if e.Shape != nil {
		s := *e.Shape
		out.Shape = &s
	}
	return &out
}

// Renumber rewrites page numbers to match sequence position, 1-based. Called
// after every page insert, remove or duplicate.
func (d *Document) Renumber() {
	for i, p := range d.Pages {
		p.Number = i + 1
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// PageByNumber returns the page with the given 1-based number, or nil.
func (d *Document) PageByNumber(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return d.Pages[n-1]
}

// FindElement returns the element with the given id, or nil. Unknown ids are
// a legitimate case: the UI may race an update against a delete.
func (p *Page) FindElement(id string) *Element {
	for _, e := range p.Elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// RemoveElement removes the element with the given id and reports whether it
// was present.
func (p *Page) RemoveElement(id string) bool {
	for i, e := range p.Elements {
		if e.ID == id {
			p.Elements = append(p.Elements[:i], p.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// PaintOrder returns the page's elements sorted by ascending ZIndex. The sort
// is stable over the creation-ordered slice, so equal z-indexes paint in
// creation order.
func (p *Page) PaintOrder() []*Element {
	out := make([]*Element, len(p.Elements))
	copy(out, p.Elements)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// AssetIDs returns every asset id referenced by the document: page
// backgrounds and image element data. Used to release owned raster buffers
// when the document is discarded.
func (d *Document) AssetIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range d.Pages {
		add(p.Background)
		for _, e := range p.Elements {
			if e.Type == ElementImage && e.Image != nil {
				add(e.Image.AssetID)
			}
		}
	}
	return ids
}
