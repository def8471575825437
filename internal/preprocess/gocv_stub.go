//go:build !gocv
// +build !gocv

package preprocess

import (
	"errors"

	"github.com/Brownie44l1/crack-api/internal/model"
)

// GoCVEnabled reports whether the OpenCV preparer is compiled in.
const GoCVEnabled = false

// GoCVPreparer is unavailable without the gocv build tag.
type GoCVPreparer struct {
	Size int
}

func NewGoCVPreparer() *GoCVPreparer {
	return &GoCVPreparer{Size: model.ImageSize}
}

// Prepare always fails when built without gocv.
func (p *GoCVPreparer) Prepare(path string) (model.ImageTensor, error) {
	return model.ImageTensor{}, &DecodeError{Path: path, Err: errors.New("gocv build tag is not enabled")}
}

var _ Preparer = (*GoCVPreparer)(nil)
