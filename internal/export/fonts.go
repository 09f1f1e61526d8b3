package export

import "strings"

// The flattener embeds only the standard 14 core fonts, so text needs no
// font file embedding. Families map onto the Helvetica, Times and Courier
// cores; anything unrecognized falls back to Helvetica.

func baseFontName(family string, bold, italic bool) string {
	switch normalizeFamily(family) {
	case "times":
		switch {
		case bold && italic:
			return "Times-BoldItalic"
		case bold:
			return "Times-Bold"
		case italic:
			return "Times-Italic"
		default:
			return "Times-Roman"
		}
	case "courier":
		switch {
		case bold && italic:
			return "Courier-BoldOblique"
		case bold:
			return "Courier-Bold"
		case italic:
			return "Courier-Oblique"
		default:
			return "Courier"
		}
	default:
		switch {
		case bold && italic:
			return "Helvetica-BoldOblique"
		case bold:
			return "Helvetica-Bold"
		case italic:
			return "Helvetica-Oblique"
		default:
			return "Helvetica"
		}
	}
}

func normalizeFamily(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return "times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "courier"
	default:
		return "helvetica"
	}
}

// helveticaWidths holds glyph widths (per mille of font size) for ASCII
// 32..126 from the Helvetica AFM. Alignment offsets are computed from these;
// Times text measured with them lands within a couple of percent, which is
// fine for box-relative placement.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

const courierWidth = 600

// textWidth estimates the rendered width of s at the given size for the
// given family. Non-ASCII runes use the average lowercase width.
func textWidth(s, family string, size float64) float64 {
	fixed := normalizeFamily(family) == "courier"
	total := 0
	for _, r := range s {
		switch {
		case fixed:
			total += courierWidth
		case r >= 32 && r <= 126:
			total += helveticaWidths[r-32]
		default:
			total += 556
		}
	}
	return float64(total) / 1000 * size
}
