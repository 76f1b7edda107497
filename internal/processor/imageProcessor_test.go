package processor

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestWidthResizer(t *testing.T) {
	r := &WidthResizer{Width: 600}

	out := r.Modify(solid(1200, 800, color.White))
	assert.Equal(t, 600, out.Bounds().Dx())
	assert.Equal(t, 400, out.Bounds().Dy())

	// narrower sources are enlarged
	out = r.Modify(solid(300, 100, color.White))
	assert.Equal(t, 600, out.Bounds().Dx())
	assert.Equal(t, 200, out.Bounds().Dy())
}

func TestWidthResizerDeterministic(t *testing.T) {
	r := &WidthResizer{Width: 250}
	src := solid(999, 333, color.Black)

	a := r.Modify(src)
	b := r.Modify(src)
	assert.Equal(t, a.Bounds(), b.Bounds())
}

func TestTargetHeight(t *testing.T) {
	assert.Equal(t, 400, TargetHeight(1200, 800, 600))
	assert.Equal(t, 1, TargetHeight(5000, 1, 600))
	assert.Equal(t, 0, TargetHeight(0, 10, 600))
}

func TestBoundsFitter(t *testing.T) {
	f := &BoundsFitter{Width: 100, Height: 100}
	out := f.Modify(solid(200, 50, color.White))
	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())
}

func TestCompositeFrames(t *testing.T) {
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), palette.Plan9)
	patch := image.NewPaletted(image.Rect(1, 1, 2, 2), palette.Plan9)
	patch.SetColorIndex(1, 1, 1)

	g := &gif.GIF{
		Image:    []*image.Paletted{full, patch},
		Delay:    []int{10, 10},
		Disposal: []byte{gif.DisposalNone, gif.DisposalNone},
		Config:   image.Config{Width: 4, Height: 4},
	}

	frames := CompositeFrames(g)
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.Equal(t, image.Rect(0, 0, 4, 4), f.Bounds())
	}
}
