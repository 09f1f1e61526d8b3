package export

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/color"
	"image/jpeg"
	"image/png"
)

// embedImage adds the raster as an image XObject and returns its object
// number. JPEG bytes pass through with DCTDecode; PNG is decoded and
// re-encoded as Flate RGB with a grayscale SMask when the image carries
// alpha. Unsupported encodings are an embed error: the caller skips the
// element and keeps exporting.
func embedImage(t *objectTable, data []byte, ext string) (int, error) {
	switch ext {
	case "jpg", "jpeg":
		return embedJPEG(t, data)
	case "png":
		return embedPNG(t, data)
	default:
		return 0, fmt.Errorf("unsupported image encoding %q", ext)
	}
}

func embedJPEG(t *objectTable, data []byte) (int, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode jpeg: %w", err)
	}

	colorSpace := "/DeviceRGB"
	if cfg.ColorModel == color.GrayModel {
		colorSpace = "/DeviceGray"
	}

	dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent 8 /Filter /DCTDecode",
		cfg.Width, cfg.Height, colorSpace)
	return t.addStream(dict, data), nil
}

func embedPNG(t *objectTable, data []byte) (int, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode png: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				rgb = append(rgb, 0, 0, 0)
			} else {
				// un-premultiply back to straight alpha
				rgb = append(rgb,
					byte((r*0xffff/a)>>8),
					byte((g*0xffff/a)>>8),
					byte((bl*0xffff/a)>>8))
			}
			a8 := byte(a >> 8)
			alpha = append(alpha, a8)
			if a8 != 0xff {
				opaque = false
			}
		}
	}

	smaskPart := ""
	if !opaque {
		smaskDict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode", w, h)
		smaskRef := t.addStream(smaskDict, deflate(alpha))
		smaskPart = fmt.Sprintf(" /SMask %d 0 R", smaskRef)
	}

	dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode%s",
		w, h, smaskPart)
	return t.addStream(dict, deflate(rgb)), nil
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
