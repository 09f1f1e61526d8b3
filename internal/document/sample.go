package document

// A4 page size in points.
const (
	A4Width  = 595.0
	A4Height = 842.0
)

// NewSampleDocument builds the in-memory demo document used by the wasm
// playground when no PDF has been imported.
func NewSampleDocument(id string) *Document {
	d := New(id, "Sample")
	d.Pages = []*Page{
		{
			ID:     "page_sample_1",
			Number: 1,
			Width:  A4Width,
			Height: A4Height,
			Elements: []*Element{
				{
					ID:      "el_sample_title",
					Type:    ElementText,
					X:       60,
					Y:       80,
					Width:   300,
					Height:  32,
					ZIndex:  0,
					Visible: true,
					Text: &TextProps{
						Content:    "Double-click to edit",
						FontSize:   24,
						FontFamily: "Helvetica",
						Color:      "#1a1a2e",
						Align:      AlignLeft,
					},
				},
				{
					ID:      "el_sample_box",
					Type:    ElementRectangle,
					X:       60,
					Y:       140,
					Width:   180,
					Height:  90,
					ZIndex:  1,
					Visible: true,
					Shape: &ShapeProps{
						Fill:        "none",
						Stroke:      "#e94560",
						StrokeWidth: 2,
					},
				},
			},
		},
	}
	return d
}
