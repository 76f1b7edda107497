package libvips

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/cshum/vipsgen/vips"
)

// SVGRenderer rasterizes a single SVG document through librsvg.
type SVGRenderer struct{}

func (SVGRenderer) Render(svg []byte) (image.Image, error) {
	img, err := vips.NewImageFromBuffer(svg, loadOptions(false))
	if err != nil {
		return nil, fmt.Errorf("error loading svg: %w", err)
	}
	defer img.Close()

	buf, err := img.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	if err != nil {
		return nil, fmt.Errorf("error rendering svg: %w", err)
	}

	out, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("error decoding rendered svg: %w", err)
	}
	return out, nil
}
