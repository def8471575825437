// Package preprocess turns image files into the normalized tensors the
// crack classifier was trained on.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/crack-api/internal/model"
)

// DecodeError reports an image that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Preparer produces one tensor from the image at path.
type Preparer interface {
	Prepare(path string) (model.ImageTensor, error)
}

// DefaultMaxPixels bounds the declared size of an image before decoding.
const DefaultMaxPixels = 50_000_000

// Resizer decodes with the standard library codecs and scales with nfnt/resize.
type Resizer struct {
	Size      int
	Filter    resize.InterpolationFunction
	MaxPixels int
}

// NewResizer returns a Resizer for the model input size. Nearest
// neighbour matches the interpolation used when the model was trained.
func NewResizer() *Resizer {
	return &Resizer{Size: model.ImageSize, Filter: resize.NearestNeighbor, MaxPixels: DefaultMaxPixels}
}

// ParseFilter maps a config name to an interpolation function.
func ParseFilter(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "", "nearest":
		return resize.NearestNeighbor, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "lanczos3":
		return resize.Lanczos3, nil
	default:
		return resize.NearestNeighbor, fmt.Errorf("unknown resize filter %q", name)
	}
}

func (p *Resizer) Prepare(path string) (tensor model.ImageTensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DecodeError{Path: path, Err: fmt.Errorf("decode %s: %v", path, r)}
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return tensor, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return tensor, &DecodeError{Path: path, Err: fmt.Errorf("cannot identify image file %s: %w", path, err)}
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.MaxPixels) {
		return tensor, &DecodeError{Path: path, Err: fmt.Errorf("image %s is too large (%dx%d)", path, cfg.Width, cfg.Height)}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return tensor, &DecodeError{Path: path, Err: err}
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return tensor, &DecodeError{Path: path, Err: fmt.Errorf("cannot identify image file %s: %w", path, err)}
	}

	return p.tensorFrom(img), nil
}

func (p *Resizer) tensorFrom(img image.Image) model.ImageTensor {
	size := p.Size
	resized := resize.Resize(uint(size), uint(size), img, p.Filter)
	bounds := resized.Bounds()

	data := make([]float32, size*size*model.ImageChannels)
	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+size; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+size; x++ {
			// alpha is dropped without premultiplication
			c := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			data[i] = float32(c.R) / 255.0
			data[i+1] = float32(c.G) / 255.0
			data[i+2] = float32(c.B) / 255.0
			i += model.ImageChannels
		}
	}

	return model.ImageTensor{
		Height:   size,
		Width:    size,
		Channels: model.ImageChannels,
		Data:     data,
	}
}

var _ Preparer = (*Resizer)(nil)
