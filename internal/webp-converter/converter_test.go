package webp_converter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NFT-com/image-resizer/internal/entities"
)

type convFunc func(ctx context.Context, in Input) ([]byte, error)

func (f convFunc) ToWebP(ctx context.Context, in Input) ([]byte, error) { return f(ctx, in) }

func TestBoundedTimeout(t *testing.T) {
	slow := convFunc(func(ctx context.Context, _ Input) ([]byte, error) {
		time.Sleep(500 * time.Millisecond)
		return []byte("late"), nil
	})
	b := NewBounded(slow, 50*time.Millisecond, 1, zaptest.NewLogger(t))
	defer b.Close()

	start := time.Now()
	_, err := b.ToWebP(context.Background(), Input{Type: entities.TypePNG})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestBoundedQueueWaitNotCharged(t *testing.T) {
	job := convFunc(func(ctx context.Context, _ Input) ([]byte, error) {
		time.Sleep(80 * time.Millisecond)
		return []byte("ok"), ctx.Err()
	})
	b := NewBounded(job, 120*time.Millisecond, 1, zaptest.NewLogger(t))
	defer b.Close()

	errs := make([]error, 3)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = b.ToWebP(context.Background(), Input{Type: entities.TypePNG})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestBoundedRunDeadlineStartsWithJob(t *testing.T) {
	b := NewBounded(convFunc(nil), time.Second, 1, zaptest.NewLogger(t))
	defer b.Close()

	out, err := b.Run(context.Background(), func(ctx context.Context) ([]byte, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
		return []byte("frames"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("frames"), out)

	_, err = b.Run(context.Background(), func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBoundedCallerCanceled(t *testing.T) {
	b := NewBounded(convFunc(nil), time.Second, 1, zaptest.NewLogger(t))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Run(ctx, func(ctx context.Context) ([]byte, error) {
		return []byte("never"), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoundedPassThrough(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	conv := convFunc(func(ctx context.Context, in Input) ([]byte, error) {
		calls++
		if in.Animated {
			return nil, boom
		}
		return []byte("ok"), nil
	})
	b := NewBounded(conv, time.Second, 2, zaptest.NewLogger(t))
	defer b.Close()

	out, err := b.ToWebP(context.Background(), Input{Type: entities.TypePNG})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), out)

	_, err = b.ToWebP(context.Background(), Input{Type: entities.TypeGIF, Animated: true})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{Config: image.Config{Width: w, Height: h, ColorModel: color.Palette(palette.Plan9)}}
	for i := 0; i < frames; i++ {
		p := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		for x := 0; x < w; x++ {
			p.SetColorIndex(x, i%h, uint8(i+1))
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func webpWidth(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestNativeStatic(t *testing.T) {
	n := NewNative(Options{Width: 600, Quality: 80})

	out, err := n.ToWebP(context.Background(), Input{Data: pngBytes(t, 1200, 800), Type: entities.TypePNG})
	require.NoError(t, err)

	w, h := webpWidth(t, out)
	assert.Equal(t, 600, w)
	assert.Equal(t, 400, h)
}

func TestNativeResizeIsStable(t *testing.T) {
	n := NewNative(Options{Width: 320, Quality: 80})
	src := pngBytes(t, 1000, 750)

	first, err := n.ToWebP(context.Background(), Input{Data: src, Type: entities.TypePNG})
	require.NoError(t, err)
	second, err := n.ToWebP(context.Background(), Input{Data: src, Type: entities.TypePNG})
	require.NoError(t, err)

	w1, _ := webpWidth(t, first)
	w2, _ := webpWidth(t, second)
	assert.Equal(t, 320, w1)
	assert.Equal(t, w1, w2)
}

func TestNativeAnimatedGIF(t *testing.T) {
	n := NewNative(Options{Width: 60, Quality: 80})

	out, err := n.ToWebP(context.Background(), Input{Data: gifBytes(t, 120, 40, 3), Type: entities.TypeGIF, Animated: true})
	require.NoError(t, err)

	w, h := webpWidth(t, out)
	assert.Equal(t, 60, w)
	assert.Equal(t, 20, h)
}

func TestNativeRejectsSVG(t *testing.T) {
	n := NewNative(Options{Width: 600, Quality: 80})
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)

	_, err := n.ToWebP(context.Background(), Input{Data: svg, Type: entities.TypeSVG})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestNativeCorruptInput(t *testing.T) {
	n := NewNative(Options{Width: 600, Quality: 80})
	data := pngBytes(t, 20, 20)

	_, err := n.ToWebP(context.Background(), Input{Data: data[:40], Type: entities.TypePNG})
	assert.Error(t, err)
}
