package engine

// Zoom limits for the editor viewport.
const (
	MinZoom = 0.25
	MaxZoom = 3.0
)

// Viewport maps between screen space and document space. The origin is the
// screen position of the current page's top-left corner. Pure value type;
// changing zoom never touches the document.
type Viewport struct {
	Zoom    float64
	OriginX float64
	OriginY float64
}

// NewViewport returns a viewport at 1:1 zoom with the page at the screen
// origin.
func NewViewport() Viewport {
	return Viewport{Zoom: 1.0}
}

// ClampZoom limits a requested zoom factor to the supported range.
func ClampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// ToDocument converts a screen point to document space.
func (v Viewport) ToDocument(sx, sy float64) (float64, float64) {
	return (sx - v.OriginX) / v.Zoom, (sy - v.OriginY) / v.Zoom
}

// ToScreen converts a document point to screen space.
func (v Viewport) ToScreen(dx, dy float64) (float64, float64) {
	return dx*v.Zoom + v.OriginX, dy*v.Zoom + v.OriginY
}
