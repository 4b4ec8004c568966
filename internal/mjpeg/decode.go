package mjpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// Image is a decoded raster in interleaved RGB24, row-major.
type Image struct {
	Width  int
	Height int
	// Data holds Width*Height*3 bytes (RGBRGB...)
	Data []byte
}

// Decode decodes one complete JPEG image into RGB24.
//
// A corrupt or truncated image returns an error; callers in the acquisition
// path drop the frame and keep going.
func Decode(data []byte) (Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("mjpeg: decode: %w", err)
	}
	return ToRGB(img), nil
}

// ToRGB converts any image.Image into RGB24.
func ToRGB(img image.Image) Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := Image{Width: w, Height: h, Data: make([]byte, w*h*3)}

	switch src := img.(type) {
	case *image.YCbCr:
		// Baseline camera JPEGs land here; avoid the interface call per pixel.
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				yi := src.YOffset(x, y)
				ci := src.COffset(x, y)
				r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				out.Data[i], out.Data[i+1], out.Data[i+2] = r, g, bl
				i += 3
			}
		}
	case *image.Gray:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[(y-b.Min.Y)*src.Stride:]
			for x := 0; x < w; x++ {
				v := row[x]
				out.Data[i], out.Data[i+1], out.Data[i+2] = v, v, v
				i += 3
			}
		}
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				out.Data[i], out.Data[i+1], out.Data[i+2] = byte(r>>8), byte(g>>8), byte(bl>>8)
				i += 3
			}
		}
	}

	return out
}
