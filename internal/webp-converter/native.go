package webp_converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"

	"github.com/NFT-com/image-resizer/internal/processor"
)

// Native is a pure-Go decode path with a libwebp encoder. It does not
// rasterize SVG and writes only the first frame of an animation, since the
// encoder has no animation muxer; use the libvips engine for full fidelity.
type Native struct {
	opts Options
}

func NewNative(opts Options) *Native {
	return &Native{opts: opts}
}

func (n *Native) ToWebP(ctx context.Context, in Input) ([]byte, error) {
	img, err := n.decode(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img = processor.Apply(img, &processor.WidthResizer{Width: n.opts.Width})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(n.opts.Quality)}); err != nil {
		return nil, fmt.Errorf("error encoding to webp: %w", err)
	}

	return buf.Bytes(), nil
}

func (n *Native) decode(in Input) (image.Image, error) {
	mime := mimetype.Detect(in.Data)
	r := bytes.NewReader(in.Data)

	switch {
	case mime.Is("image/gif"):
		if !in.Animated {
			return gif.Decode(r)
		}
		g, err := gif.DecodeAll(r)
		if err != nil {
			return nil, fmt.Errorf("error decoding gif: %w", err)
		}
		frames := processor.CompositeFrames(g)
		if len(frames) == 0 {
			return nil, fmt.Errorf("error decoding gif: no frames")
		}
		return frames[0], nil
	case mime.Is("image/png"):
		return decodeWith(png.Decode, r, "png")
	case mime.Is("image/jpeg"):
		return decodeWith(jpeg.Decode, r, "jpeg")
	case mime.Is("image/webp"):
		return decodeWith(webp.Decode, r, "webp")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, mime.String())
	}
}

func decodeWith(decode func(io.Reader) (image.Image, error), r io.Reader, name string) (image.Image, error) {
	img, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", name, err)
	}
	return img, nil
}
