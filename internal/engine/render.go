package engine

import (
	"encoding/json"

	"github.com/pagemark/pagemark/backend-go/internal/document"
)

// DrawCommand is a single paint instruction for the host shell to execute on
// its canvas. Commands arrive in painter's order: background first, then
// elements by ascending z-index.
type DrawCommand struct {
	Op        string  `json:"op"` // "background", "text", "image", "rect", "circle", "line"
	ElementID string  `json:"elementId,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation,omitempty"`
	Selected  bool    `json:"selected,omitempty"`

	// background / image
	AssetID string `json:"assetId,omitempty"`

	// text
	Content       string  `json:"content,omitempty"`
	FontSize      float64 `json:"fontSize,omitempty"`
	FontFamily    string  `json:"fontFamily,omitempty"`
	Color         string  `json:"color,omitempty"`
	Bold          bool    `json:"bold,omitempty"`
	Italic        bool    `json:"italic,omitempty"`
	Underline     bool    `json:"underline,omitempty"`
	Strikethrough bool    `json:"strikethrough,omitempty"`
	Align         string  `json:"align,omitempty"`

	// shapes
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Frame is one render response for the host shell.
type Frame struct {
	Page       int           `json:"page"`
	PageCount  int           `json:"pageCount"`
	PageWidth  float64       `json:"pageWidth"`
	PageHeight float64       `json:"pageHeight"`
	Zoom       float64       `json:"zoom"`
	Selection  string        `json:"selection,omitempty"`
	CanUndo    bool          `json:"canUndo"`
	CanRedo    bool          `json:"canRedo"`
	Commands   []DrawCommand `json:"commands"`
}

// Render compiles the current page into a frame for the host shell.
func (e *Engine) Render() Frame {
	page := e.CurrentPage()
	if page == nil {
		return Frame{}
	}

	return Frame{
		Page:       page.Number,
		PageCount:  len(e.doc.Pages),
		PageWidth:  page.Width,
		PageHeight: page.Height,
		Zoom:       e.viewport.Zoom,
		Selection:  e.selection,
		CanUndo:    e.history.CanUndo(),
		CanRedo:    e.history.CanRedo(),
		Commands:   CompilePage(page, e.selection),
	}
}

// RenderJSON returns the frame serialized for the wasm boundary.
func (e *Engine) RenderJSON() string {
	data, err := json.Marshal(e.Render())
	if err != nil {
		return "{}"
	}
	return string(data)
}

// CompilePage generates the draw command buffer for one page: the background
// raster first (filling the page), then the visible elements in paint order.
// Hidden elements are skipped entirely.
func CompilePage(page *document.Page, selection string) []DrawCommand {
	var commands []DrawCommand

	if page.Background != "" {
		commands = append(commands, DrawCommand{
			Op:      "background",
			AssetID: page.Background,
			Width:   page.Width,
			Height:  page.Height,
		})
	}

	for _, el := range page.PaintOrder() {
		if !el.Visible {
			continue
		}
		commands = append(commands, compileElement(el, el.ID == selection))
	}
	return commands
}

func compileElement(el *document.Element, selected bool) DrawCommand {
	cmd := DrawCommand{
		ElementID: el.ID,
		X:         el.X,
		Y:         el.Y,
		Width:     el.Width,
		Height:    el.Height,
		Rotation:  el.Rotation,
		Selected:  selected,
	}

	switch el.Type {
	case document.ElementText:
		cmd.Op = "text"
		if t := el.Text; t != nil {
			cmd.Content = t.Content
			cmd.FontSize = t.FontSize
			cmd.FontFamily = t.FontFamily
			cmd.Color = t.Color
			cmd.Bold = t.Bold
			cmd.Italic = t.Italic
			cmd.Underline = t.Underline
			cmd.Strikethrough = t.Strikethrough
			cmd.Align = string(t.Align)
		}
	case document.ElementImage:
		cmd.Op = "image"
		if el.Image != nil {
			cmd.AssetID = el.Image.AssetID
		}
	case document.ElementRectangle:
		cmd.Op = "rect"
		fillShape(&cmd, el.Shape)
	case document.ElementCircle:
		cmd.Op = "circle"
		fillShape(&cmd, el.Shape)
	case document.ElementLine:
		cmd.Op = "line"
		fillShape(&cmd, el.Shape)
	}
	return cmd
}

func fillShape(cmd *DrawCommand, s *document.ShapeProps) {
	if s == nil {
		return
	}
	cmd.Fill = s.Fill
	cmd.Stroke = s.Stroke
	cmd.StrokeWidth = s.StrokeWidth
}
