package engine

import (
	"sort"

	"github.com/pagemark/pagemark/backend-go/internal/document"
)

// HitTest resolves a document-space point to the top-most eligible element
// on the page: elements are scanned in descending z-index order (ties broken
// by creation order, later wins) and the first visible, unlocked element
// whose axis-aligned bounding box contains the point is returned. Rotation
// is ignored: rotated elements hit-test by their unrotated box. Returns ""
// when nothing is hit.
func HitTest(page *document.Page, x, y float64) string {
	if page == nil {
		return ""
	}

	// descending z; stable over creation order so the later-created of two
	// equal z-indexes (which paints on top) is tested first
	order := make([]*document.Element, len(page.Elements))
	copy(order, page.Elements)
	sort.SliceStable(order, func(i, j int) bool { return order[i].ZIndex > order[j].ZIndex })

	for i := 0; i < len(order); {
		// find the run of equal z-index
		j := i + 1
		for j < len(order) && order[j].ZIndex == order[i].ZIndex {
			j++
		}
		// within the tie, later creation paints on top, so test in reverse
		for k := j - 1; k >= i; k-- {
			el := order[k]
			if !el.Visible || el.Locked {
				continue
			}
			if contains(el, x, y) {
				return el.ID
			}
		}
		i = j
	}
	return ""
}

func contains(el *document.Element, x, y float64) bool {
	return x >= el.X && x <= el.X+el.Width && y >= el.Y && y <= el.Y+el.Height
}
