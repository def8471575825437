//go:build gocv
// +build gocv

package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/Brownie44l1/crack-api/internal/model"
)

// GoCVEnabled reports whether the OpenCV preparer is compiled in.
const GoCVEnabled = true

// GoCVPreparer decodes and resizes with OpenCV.
type GoCVPreparer struct {
	Size int
}

func NewGoCVPreparer() *GoCVPreparer {
	return &GoCVPreparer{Size: model.ImageSize}
}

func (p *GoCVPreparer) Prepare(path string) (model.ImageTensor, error) {
	var tensor model.ImageTensor

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return tensor, &DecodeError{Path: path, Err: fmt.Errorf("cannot identify image file %s", path)}
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(p.Size, p.Size), 0, 0, gocv.InterpolationNearestNeighbor)

	// OpenCV decodes to BGR.
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(resized, &rgb, gocv.ColorBGRToRGB)

	raw := rgb.ToBytes()
	if len(raw) != p.Size*p.Size*model.ImageChannels {
		return tensor, &DecodeError{Path: path, Err: errors.New("unexpected pixel buffer size")}
	}

	data := make([]float32, len(raw))
	for i, v := range raw {
		data[i] = float32(v) / 255.0
	}

	return model.ImageTensor{
		Height:   p.Size,
		Width:    p.Size,
		Channels: model.ImageChannels,
		Data:     data,
	}, nil
}

var _ Preparer = (*GoCVPreparer)(nil)
