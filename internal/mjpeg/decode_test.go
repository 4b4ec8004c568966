package mjpeg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSolid(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestDecode_SolidColor(t *testing.T) {
	data := encodeSolid(t, 16, 8, color.RGBA{R: 200, G: 40, B: 90, A: 255})

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Width)
	assert.Equal(t, 8, img.Height)
	require.Len(t, img.Data, 16*8*3)

	// JPEG is lossy; allow a small tolerance.
	near := func(got, want byte) bool {
		d := int(got) - int(want)
		return d > -8 && d < 8
	}
	assert.True(t, near(img.Data[0], 200), "R=%d", img.Data[0])
	assert.True(t, near(img.Data[1], 40), "G=%d", img.Data[1])
	assert.True(t, near(img.Data[2], 90), "B=%d", img.Data[2])
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0xD8, 0x00, 0x01, 0xFF, 0xD9})
	assert.Error(t, err)
}

func TestDecode_ExtractedFromStream(t *testing.T) {
	jpg := encodeSolid(t, 8, 8, color.RGBA{R: 10, G: 250, B: 10, A: 255})

	var acc Accumulator
	acc.Write(multipartStream(jpg))
	frame, ok := acc.Next()
	require.True(t, ok)
	require.Equal(t, jpg, frame)

	img, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Width)
}

func TestToRGB_Gray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.Pix[0], g.Pix[1] = 7, 9

	img := ToRGB(g)
	assert.Equal(t, []byte{7, 7, 7, 9, 9, 9}, img.Data)
}
