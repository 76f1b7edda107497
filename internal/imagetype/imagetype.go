package imagetype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NFT-com/image-resizer/internal/entities"
)

var (
	ErrUndetermined = errors.New("could not determine the image type")
	ErrUnsupported  = errors.New("unsupported image type")
)

var supported = map[string]entities.ImageType{
	"jpg":  entities.TypeJPG,
	"jpeg": entities.TypeJPEG,
	"gif":  entities.TypeGIF,
	"png":  entities.TypePNG,
	"webp": entities.TypeWEBP,
	"svg":  entities.TypeSVG,
}

// Classify infers the image type from the suffix after the last dot of key.
func Classify(key string) (entities.ImageType, error) {
	i := strings.LastIndexByte(key, '.')
	if i < 0 {
		return "", ErrUndetermined
	}

	ext := strings.ToLower(key[i+1:])
	t, ok := supported[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return t, nil
}

// IsAnimatedByType reports whether the type is always decoded as an animation.
func IsAnimatedByType(t entities.ImageType) bool {
	return t == entities.TypeGIF
}
