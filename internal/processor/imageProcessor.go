package processor

import (
	"image"
	"image/draw"
	"image/gif"
	"math"

	"github.com/disintegration/imaging"
)

// ImageModifier defines an image modifier
type ImageModifier interface {
	Modify(img image.Image) image.Image
}

// WidthResizer scales an image to an exact width, keeping the aspect ratio.
// Smaller images are enlarged.
type WidthResizer struct {
	Width int
}

// Modify to implement ImageModifier interface
func (r *WidthResizer) Modify(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || r.Width <= 0 {
		return img
	}
	if b.Dx() == r.Width {
		return img
	}

	return imaging.Resize(img, r.Width, TargetHeight(b.Dx(), b.Dy(), r.Width), imaging.Lanczos)
}

// BoundsFitter places an image on a canvas of fixed bounds, scaling it down
// to fit when needed. Used to give every frame of an animation the same size.
type BoundsFitter struct {
	Width  int
	Height int
}

func (f *BoundsFitter) Modify(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == f.Width && b.Dy() == f.Height {
		return img
	}

	fitted := imaging.Fit(img, f.Width, f.Height, imaging.Lanczos)
	return imaging.PasteCenter(imaging.New(f.Width, f.Height, image.Transparent), fitted)
}

// TargetHeight returns the height that keeps the aspect ratio of a w×h image
// resized to width. It never returns less than one pixel.
func TargetHeight(w, h, width int) int {
	if w <= 0 {
		return 0
	}
	th := int(math.Round(float64(h) * float64(width) / float64(w)))
	if th < 1 {
		th = 1
	}
	return th
}

// Apply runs the modifiers over img in order.
func Apply(img image.Image, modifiers ...ImageModifier) image.Image {
	for _, modifier := range modifiers {
		img = modifier.Modify(img)
	}
	return img
}

// CompositeFrames renders every frame of a decoded GIF onto the logical
// screen, honouring frame disposal, so each returned image is a full frame.
func CompositeFrames(g *gif.GIF) []image.Image {
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		for _, p := range g.Image {
			b := p.Bounds()
			w = max(w, b.Max.X)
			h = max(h, b.Max.Y)
		}
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	frames := make([]image.Image, 0, len(g.Image))

	for i, p := range g.Image {
		var previous *image.NRGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = imaging.Clone(canvas)
		}

		draw.Draw(canvas, p.Bounds(), p, p.Bounds().Min, draw.Over)
		frames = append(frames, imaging.Clone(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, p.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			draw.Draw(canvas, canvas.Bounds(), previous, image.Point{}, draw.Src)
		}
	}

	return frames
}
