package svg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"time"

	"github.com/NFT-com/image-resizer/internal/processor"
)

// Renderer rasterizes one static SVG document.
type Renderer interface {
	Render(svg []byte) (image.Image, error)
}

// Rasterizer turns an SVG with SMIL animation, including animation inside
// base64-embedded SVG documents, into an animated GIF by rendering snapshots
// of the timeline.
type Rasterizer struct {
	renderer  Renderer
	frameRate int
	maxFrames int
}

func NewRasterizer(renderer Renderer, frameRate, maxFrames int) *Rasterizer {
	return &Rasterizer{
		renderer:  renderer,
		frameRate: max(frameRate, 1),
		maxFrames: max(maxFrames, 1),
	}
}

var gifPalette = append(color.Palette{color.Transparent}, palette.Plan9[:255]...)

func (r *Rasterizer) Rasterize(ctx context.Context, data []byte) ([]byte, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	total := timeline(doc)
	if total <= 0 {
		total = defaultDuration
	}
	n := int(math.Ceil(total.Seconds() * float64(r.frameRate)))
	n = max(1, min(n, r.maxFrames))
	step := total / time.Duration(n)

	frames := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap := doc.Clone()
		snapshot(snap, step*time.Duration(i))

		img, err := r.renderer.Render(snap.Bytes())
		if err != nil {
			return nil, fmt.Errorf("svg: render frame %d: %w", i, err)
		}
		frames = append(frames, img)
	}

	return encodeGIF(frames, step)
}

// timeline is the longest first cycle of any animation in doc or in the
// documents embedded in it.
func timeline(doc *Node) time.Duration {
	var total time.Duration
	for _, a := range collect(doc) {
		total = max(total, a.end())
	}
	eachEmbedded(doc, func(_ *Node, inner *Node) {
		total = max(total, timeline(inner))
	})
	return total
}

// snapshot freezes doc at t: animated attributes take their value at t, the
// <animate> elements are dropped, and embedded documents are rewritten the
// same way.
func snapshot(doc *Node, t time.Duration) {
	for _, a := range collect(doc) {
		if v, ok := a.valueAt(t); ok {
			a.target.Set(a.attr, v)
		}
	}
	doc.RemoveChildren(isAnimate)

	eachEmbedded(doc, func(el *Node, inner *Node) {
		snapshot(inner, t)
		el.Set("href", encodeEmbedded(inner.Bytes()))
	})
}

// eachEmbedded calls fn for every element of doc carrying a readable
// base64-embedded SVG. Unreadable payloads are left untouched.
func eachEmbedded(doc *Node, fn func(el *Node, inner *Node)) {
	doc.Walk(func(n *Node) bool {
		if n.Kind != ElementNode || !isEmbedded(n) {
			return true
		}
		href, _ := n.Get("href")
		payload, err := decodeEmbedded(href)
		if err != nil {
			return true
		}
		inner, err := Parse(payload)
		if err != nil {
			return true
		}
		fn(n, inner)
		return true
	})
}

func encodeGIF(frames []image.Image, step time.Duration) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("svg: no frames rendered")
	}

	first := frames[0].Bounds()
	if first.Empty() {
		return nil, errors.New("svg: rendered frame is empty")
	}
	rect := image.Rect(0, 0, first.Dx(), first.Dy())
	fit := &processor.BoundsFitter{Width: rect.Dx(), Height: rect.Dy()}
	delay := min(max(1, int(math.Round(step.Seconds()*100))), math.MaxUint16)

	g := &gif.GIF{LoopCount: 0}
	for _, f := range frames {
		f = fit.Modify(f)
		p := image.NewPaletted(rect, gifPalette)
		draw.FloydSteinberg.Draw(p, rect, f, f.Bounds().Min)

		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("svg: encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
