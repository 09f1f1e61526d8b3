package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/pagemark/pagemark/backend-go/internal/asset"
	"github.com/pagemark/pagemark/backend-go/internal/document"
)

// Warning reports one element that could not be embedded and was skipped.
// The export still succeeds; skipped elements are surfaced as a count.
type Warning struct {
	Page      int    `json:"page"`
	ElementID string `json:"elementId,omitempty"`
	Reason    string `json:"reason"`
}

// Flattener renders the editable model into final PDF bytes: per page, the
// background raster first, then the visible overlay elements in ascending
// z-index order. Element y-coordinates are converted from the model's
// top-left origin to PDF's bottom-left origin.
type Flattener struct {
	assets *asset.Store
}

func NewFlattener(assets *asset.Store) *Flattener {
	return &Flattener{assets: assets}
}

// fontRegistry assigns resource names (/F1, /F2, ...) to the core fonts a
// document actually uses.
type fontRegistry struct {
	table *objectTable
	refs  map[string]int // base font -> object ref
	names map[string]string
	order []string
}

func newFontRegistry(t *objectTable) *fontRegistry {
	return &fontRegistry{table: t, refs: make(map[string]int), names: make(map[string]string)}
}

func (fr *fontRegistry) name(baseFont string) string {
	if n, ok := fr.names[baseFont]; ok {
		return n
	}
	ref := fr.table.add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s >>", baseFont))
	n := fmt.Sprintf("F%d", len(fr.order)+1)
	fr.refs[baseFont] = ref
	fr.names[baseFont] = n
	fr.order = append(fr.order, baseFont)
	return n
}

func (fr *fontRegistry) resourceDict() string {
	if len(fr.order) == 0 {
		return ""
	}
	var b bytes.Buffer
	b.WriteString("/Font << ")
	for _, base := range fr.order {
		fmt.Fprintf(&b, "/%s %d 0 R ", fr.names[base], fr.refs[base])
	}
	b.WriteString(">> ")
	return b.String()
}

// Flatten produces the output PDF for the whole document. Per-element embed
// failures are collected as warnings; a failure to assemble the container is
// fatal and yields no output.
func (f *Flattener) Flatten(ctx context.Context, doc *document.Document) ([]byte, []Warning, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, nil, fmt.Errorf("nothing to export: document has no pages")
	}

	t := &objectTable{}
	catalogRef := t.reserve()
	pagesRef := t.reserve()
	fonts := newFontRegistry(t)

	var warnings []Warning
	pageRefs := make([]int, 0, len(doc.Pages))

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ref, w := f.flattenPage(t, fonts, pagesRef, page)
		warnings = append(warnings, w...)
		pageRefs = append(pageRefs, ref)
	}

	var kids bytes.Buffer
	for _, r := range pageRefs {
		fmt.Fprintf(&kids, "%d 0 R ", r)
	}
	t.set(pagesRef, fmt.Sprintf("<< /Type /Pages /Count %d /Kids [ %s] >>", len(pageRefs), kids.String()))
	t.set(catalogRef, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesRef))

	out := t.assemble(catalogRef)
	if len(warnings) > 0 {
		slog.Warn("export finished with skipped elements", "document", doc.ID, "skipped", len(warnings))
	}
	return out, warnings, nil
}

// flattenPage emits one page object plus its content stream and image
// XObjects. Failures to embed a background or element raster are recorded as
// warnings and painting continues.
func (f *Flattener) flattenPage(t *objectTable, fonts *fontRegistry, pagesRef int, page *document.Page) (int, []Warning) {
	var content bytes.Buffer
	var warnings []Warning
	xobjects := make(map[string]int) // resource name -> object ref

	if page.Background != "" {
		if ref, err := f.embedAsset(t, page.Background); err != nil {
			warnings = append(warnings, Warning{Page: page.Number, Reason: "background: " + err.Error()})
		} else {
			xobjects["Bg"] = ref
			fmt.Fprintf(&content, "q %s 0 0 %s 0 0 cm /Bg Do Q\n", num(page.Width), num(page.Height))
		}
	}

	imgIndex := 0
	for _, el := range page.PaintOrder() {
		if !el.Visible {
			continue
		}

		switch el.Type {
		case document.ElementText:
			paintText(&content, fonts, page, el)
		case document.ElementImage:
			if el.Image == nil || el.Image.AssetID == "" {
				warnings = append(warnings, Warning{Page: page.Number, ElementID: el.ID, Reason: "image element has no asset"})
				continue
			}
			ref, err := f.embedAsset(t, el.Image.AssetID)
			if err != nil {
				warnings = append(warnings, Warning{Page: page.Number, ElementID: el.ID, Reason: err.Error()})
				continue
			}
			imgIndex++
			name := fmt.Sprintf("Im%d", imgIndex)
			xobjects[name] = ref
			paintImage(&content, page, el, name)
		case document.ElementRectangle:
			paintRect(&content, page, el)
		case document.ElementCircle:
			paintCircle(&content, page, el)
		case document.ElementLine:
			paintLine(&content, page, el)
		}
	}

	contentRef := t.addStream("", content.Bytes())

	var res bytes.Buffer
	res.WriteString("<< ")
	res.WriteString(fonts.resourceDict())
	if len(xobjects) > 0 {
		res.WriteString("/XObject << ")
		for name, ref := range xobjects {
			fmt.Fprintf(&res, "/%s %d 0 R ", name, ref)
		}
		res.WriteString(">> ")
	}
	res.WriteString(">>")

	pageRef := t.add(fmt.Sprintf(
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources %s /Contents %d 0 R >>",
		pagesRef, num(page.Width), num(page.Height), res.String(), contentRef))
	return pageRef, warnings
}

func (f *Flattener) embedAsset(t *objectTable, assetID string) (int, error) {
	data, ext, err := f.assets.Open(assetID)
	if err != nil {
		return 0, err
	}
	return embedImage(t, data, ext)
}

// --- paint helpers ---

// pdfY converts a model-space top edge to the PDF bottom-left origin:
// the box bottom lands at pageHeight - y - height.
func pdfY(page *document.Page, el *document.Element) float64 {
	return page.Height - el.Y - el.Height
}

// pushRotation emits a rotation transform about the element's center when
// the element is rotated, and reports whether a matching Q is needed.
// Model rotation is clockwise in a y-down space, which is a negative angle
// in PDF's y-up space.
func pushRotation(w *bytes.Buffer, page *document.Page, el *document.Element) bool {
	if el.Rotation == 0 {
		return false
	}
	phi := -el.Rotation * math.Pi / 180
	cos, sin := math.Cos(phi), math.Sin(phi)
	cx := el.X + el.Width/2
	cy := page.Height - el.Y - el.Height/2
	tx := cx - cos*cx + sin*cy
	ty := cy - sin*cx - cos*cy
	fmt.Fprintf(w, "q %s %s %s %s %s %s cm\n", num(cos), num(sin), num(-sin), num(cos), num(tx), num(ty))
	return true
}

func popRotation(w *bytes.Buffer, pushed bool) {
	if pushed {
		w.WriteString("Q\n")
	}
}

func paintText(w *bytes.Buffer, fonts *fontRegistry, page *document.Page, el *document.Element) {
	t := el.Text
	if t == nil || t.Content == "" {
		return
	}

	fontName := fonts.name(baseFontName(t.FontFamily, t.Bold, t.Italic))
	r, g, b, ok := parseColor(t.Color)
	if !ok {
		r, g, b = 0, 0, 0
	}

	width := textWidth(t.Content, t.FontFamily, t.FontSize)
	tx := el.X
	switch t.Align {
	case document.AlignCenter:
		tx = el.X + (el.Width-width)/2
	case document.AlignRight:
		tx = el.X + el.Width - width
	}
	ty := pdfY(page, el)

	pushed := pushRotation(w, page, el)
	fmt.Fprintf(w, "BT /%s %s Tf %s %s %s rg %s %s Td (%s) Tj ET\n",
		fontName, num(t.FontSize), num(r), num(g), num(b), num(tx), num(ty), escapeString(t.Content))

	if t.Underline || t.Strikethrough {
		fmt.Fprintf(w, "%s %s %s RG %s w\n", num(r), num(g), num(b), num(math.Max(t.FontSize*0.06, 0.5)))
		if t.Underline {
			y := ty - t.FontSize*0.12
			fmt.Fprintf(w, "%s %s m %s %s l S\n", num(tx), num(y), num(tx+width), num(y))
		}
		if t.Strikethrough {
			y := ty + t.FontSize*0.28
			fmt.Fprintf(w, "%s %s m %s %s l S\n", num(tx), num(y), num(tx+width), num(y))
		}
	}
	popRotation(w, pushed)
}

func paintImage(w *bytes.Buffer, page *document.Page, el *document.Element, name string) {
	pushed := pushRotation(w, page, el)
	fmt.Fprintf(w, "q %s 0 0 %s %s %s cm /%s Do Q\n",
		num(el.Width), num(el.Height), num(el.X), num(pdfY(page, el)), name)
	popRotation(w, pushed)
}

func paintRect(w *bytes.Buffer, page *document.Page, el *document.Element) {
	s := el.Shape
	if s == nil {
		return
	}
	pushed := pushRotation(w, page, el)
	op := shapeStyle(w, s)
	if op != "" {
		fmt.Fprintf(w, "%s %s %s %s re %s\n",
			num(el.X), num(pdfY(page, el)), num(el.Width), num(el.Height), op)
	}
	popRotation(w, pushed)
}

// kappa approximates a quarter circle with a cubic Bézier.
const kappa = 0.5523

func paintCircle(w *bytes.Buffer, page *document.Page, el *document.Element) {
	s := el.Shape
	if s == nil {
		return
	}
	pushed := pushRotation(w, page, el)
	op := shapeStyle(w, s)
	if op != "" {
		cx := el.X + el.Width/2
		cy := page.Height - el.Y - el.Height/2
		rx, ry := el.Width/2, el.Height/2
		ox, oy := rx*kappa, ry*kappa

		fmt.Fprintf(w, "%s %s m\n", num(cx+rx), num(cy))
		fmt.Fprintf(w, "%s %s %s %s %s %s c\n", num(cx+rx), num(cy+oy), num(cx+ox), num(cy+ry), num(cx), num(cy+ry))
		fmt.Fprintf(w, "%s %s %s %s %s %s c\n", num(cx-ox), num(cy+ry), num(cx-rx), num(cy+oy), num(cx-rx), num(cy))
		fmt.Fprintf(w, "%s %s %s %s %s %s c\n", num(cx-rx), num(cy-oy), num(cx-ox), num(cy-ry), num(cx), num(cy-ry))
		fmt.Fprintf(w, "%s %s %s %s %s %s c\n", num(cx+ox), num(cy-ry), num(cx+rx), num(cy-oy), num(cx+rx), num(cy))
		fmt.Fprintf(w, "%s\n", op)
	}
	popRotation(w, pushed)
}

// paintLine strokes a horizontal line across the element box. The element
// height is the stroke thickness, not a bounding extent.
func paintLine(w *bytes.Buffer, page *document.Page, el *document.Element) {
	s := el.Shape
	if s == nil {
		return
	}
	r, g, b, ok := parseColor(s.Stroke)
	if !ok {
		return
	}

	thickness := el.Height
	if thickness <= 0 {
		thickness = 1
	}
	y := page.Height - el.Y - el.Height/2

	pushed := pushRotation(w, page, el)
	fmt.Fprintf(w, "%s %s %s RG %s w %s %s m %s %s l S\n",
		num(r), num(g), num(b), num(thickness),
		num(el.X), num(y), num(el.X+el.Width), num(y))
	popRotation(w, pushed)
}

// shapeStyle emits fill/stroke color and width operators and returns the
// paint operator matching what is set: "f", "S", "B" or "" when the shape
// has neither fill nor stroke.
func shapeStyle(w *bytes.Buffer, s *document.ShapeProps) string {
	fr, fg, fb, hasFill := parseColor(s.Fill)
	sr, sg, sb, hasStroke := parseColor(s.Stroke)

	if hasFill {
		fmt.Fprintf(w, "%s %s %s rg\n", num(fr), num(fg), num(fb))
	}
	if hasStroke {
		width := s.StrokeWidth
		if width <= 0 {
			width = 1
		}
		fmt.Fprintf(w, "%s %s %s RG %s w\n", num(sr), num(sg), num(sb), num(width))
	}

	switch {
	case hasFill && hasStroke:
		return "B"
	case hasFill:
		return "f"
	case hasStroke:
		return "S"
	default:
		return ""
	}
}

// parseColor parses "#rrggbb" into unit-range components. "", "none" and
// malformed values report ok=false.
func parseColor(s string) (r, g, b float64, ok bool) {
	if len(s) != 7 || s[0] != '#' || s == "" {
		return 0, 0, 0, false
	}
	ri, err1 := strconv.ParseUint(s[1:3], 16, 8)
	gi, err2 := strconv.ParseUint(s[3:5], 16, 8)
	bi, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return float64(ri) / 255, float64(gi) / 255, float64(bi) / 255, true
}

// num formats a coordinate or factor with enough precision for points.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = trimZeros(s)
	return s
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
