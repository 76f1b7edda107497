package libvips

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"testing"

	"github.com/cshum/vipsgen/vips"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NFT-com/image-resizer/internal/entities"
	webp_converter "github.com/NFT-com/image-resizer/internal/webp-converter"
)

func TestMain(m *testing.M) {
	Startup(1)
	code := m.Run()
	Shutdown()
	os.Exit(code)
}

func animatedGIF(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{Config: image.Config{Width: w, Height: h, ColorModel: color.Palette(palette.Plan9)}}
	for i := 0; i < frames; i++ {
		p := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		for x := 0; x < w; x++ {
			p.SetColorIndex(x, i, uint8(10*i+1))
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 20)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func loaded(t *testing.T, data []byte) *vips.Image {
	t.Helper()
	img, err := vips.NewImageFromBuffer(data, loadOptions(true))
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img
}

func TestEngineStill(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 900))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	e := New(webp_converter.Options{Width: 600, Quality: 80})
	out, err := e.ToWebP(context.Background(), webp_converter.Input{Data: buf.Bytes(), Type: entities.TypePNG})
	require.NoError(t, err)

	img := loaded(t, out)
	assert.Equal(t, 600, img.Width())
	assert.Equal(t, 450, img.Height())
}

func TestEngineAnimated(t *testing.T) {
	tests := []struct {
		name                string
		w, h, frames, width int
		wantPageHeight      int
	}{
		{name: "even ratio", w: 100, h: 40, frames: 3, width: 50, wantPageHeight: 20},
		{name: "uneven ratio", w: 1000, h: 7, frames: 3, width: 600, wantPageHeight: 4},
		{name: "rounding up", w: 500, h: 333, frames: 2, width: 600, wantPageHeight: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(webp_converter.Options{Width: tt.width, Quality: 80})
			out, err := e.ToWebP(context.Background(), webp_converter.Input{
				Data:     animatedGIF(t, tt.w, tt.h, tt.frames),
				Type:     entities.TypeGIF,
				Animated: true,
			})
			require.NoError(t, err)

			img := loaded(t, out)
			assert.Equal(t, tt.width, img.Width())
			assert.Equal(t, tt.frames, img.Pages())
			assert.Equal(t, tt.wantPageHeight, img.PageHeight())
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20"><rect width="40" height="20" fill="red"/></svg>`)

	img, err := SVGRenderer{}.Render(svg)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
}
