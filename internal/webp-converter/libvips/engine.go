// Package libvips is the default transcode engine, backed by libvips through
// vipsgen. It is the only engine that writes animated WebP and renders SVG.
package libvips

import (
	"context"
	"fmt"
	"sync"

	"github.com/cshum/vipsgen/vips"

	"github.com/NFT-com/image-resizer/internal/processor"
	webp_converter "github.com/NFT-com/image-resizer/internal/webp-converter"
)

var startOnce sync.Once

// Startup initialises libvips once per process.
func Startup(concurrency int) {
	startOnce.Do(func() {
		vips.Startup(&vips.Config{
			ConcurrencyLevel: concurrency,
			MaxCacheMem:      100 * 1024 * 1024,
			MaxCacheSize:     500,
		})
	})
}

func Shutdown() {
	vips.Shutdown()
}

type Engine struct {
	opts webp_converter.Options
}

func New(opts webp_converter.Options) *Engine {
	return &Engine{opts: opts}
}

func loadOptions(animated bool) *vips.LoadOptions {
	opts := vips.DefaultLoadOptions()
	if animated {
		opts.N = -1
	}
	// no pixel-count ceiling: large but legitimate sources must load
	opts.Unlimited = true
	opts.FailOnError = true
	opts.Access = vips.AccessRandom
	return opts
}

func (e *Engine) ToWebP(ctx context.Context, in webp_converter.Input) ([]byte, error) {
	img, err := vips.NewImageFromBuffer(in.Data, loadOptions(in.Animated))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	defer img.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	animated := in.Animated && img.Pages() > 1
	if animated {
		err = e.resizeAnimated(img)
	} else {
		err = e.resizeStill(img)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := vips.DefaultWebpsaveBufferOptions()
	opts.Q = e.opts.Quality
	opts.Effort = 4
	if animated {
		// delay/loop must survive or the animation is lost
		opts.Keep = vips.KeepAll
		opts.PageHeight = img.PageHeight()
		opts.Mixed = true
	} else {
		opts.Keep = vips.KeepNone
	}

	out, err := img.WebpsaveBuffer(opts)
	if err != nil {
		return nil, fmt.Errorf("error encoding to webp: %w", err)
	}
	return out, nil
}

func (e *Engine) resizeStill(img *vips.Image) error {
	if img.Width() == e.opts.Width {
		return nil
	}
	scale := float64(e.opts.Width) / float64(img.Width())
	if err := img.Resize(scale, vips.DefaultResizeOptions()); err != nil {
		return fmt.Errorf("error resizing image: %w", err)
	}
	return nil
}

func (e *Engine) resizeAnimated(img *vips.Image) error {
	pages := img.Pages()
	delay, err := img.GetArrayInt("delay")
	if err != nil {
		delay = make([]int, pages)
		for i := range delay {
			delay[i] = 100
		}
	}
	loop, err := img.GetInt("loop")
	if err != nil {
		loop = 0
	}

	frameHeight := processor.TargetHeight(img.Width(), img.PageHeight(), e.opts.Width)
	scale := float64(e.opts.Width) / float64(img.Width())
	opts := vips.DefaultResizeOptions()
	// the vertical factor is taken on the whole strip so every page lands on
	// a whole number of rows
	opts.Vscale = float64(pages*frameHeight) / float64(img.Height())
	if err := img.Resize(scale, opts); err != nil {
		return fmt.Errorf("error resizing animation: %w", err)
	}

	pageHeight := img.Height() / pages
	if expected := pages * pageHeight; img.Height() != expected {
		if err := img.ExtractArea(0, 0, img.Width(), expected); err != nil {
			return fmt.Errorf("error cropping animation strip: %w", err)
		}
	}
	if err := img.SetPageHeight(pageHeight); err != nil {
		return fmt.Errorf("error setting page height: %w", err)
	}
	if len(delay) > 0 {
		if err := img.SetArrayInt("delay", delay); err != nil {
			return fmt.Errorf("error restoring frame delays: %w", err)
		}
	}
	img.SetInt("loop", loop)
	return nil
}
