package mjpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// RGBA expands the RGB24 raster into an *image.RGBA with opaque alpha.
func (m Image) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, j := 0, 0; i+2 < len(m.Data) && j+3 < len(out.Pix); i, j = i+3, j+4 {
		out.Pix[j], out.Pix[j+1], out.Pix[j+2], out.Pix[j+3] = m.Data[i], m.Data[i+1], m.Data[i+2], 0xff
	}
	return out
}

// Encode compresses an RGB24 raster back to JPEG at the given quality (1..100).
func Encode(m Image, quality int) ([]byte, error) {
	if m.Width <= 0 || m.Height <= 0 || len(m.Data) < m.Width*m.Height*3 {
		return nil, fmt.Errorf("mjpeg: encode: bad raster %dx%d with %d bytes", m.Width, m.Height, len(m.Data))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, m.RGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("mjpeg: encode: %w", err)
	}
	return buf.Bytes(), nil
}
