package model

import "fmt"

// Input geometry the crack classifier was trained on.
const (
	ImageSize     = 120
	ImageChannels = 3
)

// Tensor layouts accepted by the ONNX artifact.
const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

// Metadata describes the exported artifact. It is read from a JSON file
// next to the model; every field has a default matching a Keras export.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	Layout      string  `json:"layout"`
	ImageSize   int     `json:"image_size"`
}

// DefaultMetadata returns the metadata used when no sidecar file exists.
func DefaultMetadata() Metadata {
	return Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, ImageSize, ImageSize, ImageChannels},
		OutputShape: []int64{1, 1},
		Layout:      LayoutNHWC,
		ImageSize:   ImageSize,
	}
}

// ImageTensor is one preprocessed image, stored height-major (HWC) with
// every value in [0,1]. The batch dimension of 1 is implicit.
type ImageTensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// Validate rejects any tensor that is not a 120x120x3 image.
func (t ImageTensor) Validate() error {
	if t.Height != ImageSize || t.Width != ImageSize || t.Channels != ImageChannels {
		return fmt.Errorf("unexpected tensor shape %dx%dx%d, want %dx%dx%d",
			t.Height, t.Width, t.Channels, ImageSize, ImageSize, ImageChannels)
	}
	if len(t.Data) != t.Height*t.Width*t.Channels {
		return fmt.Errorf("tensor holds %d values, want %d", len(t.Data), t.Height*t.Width*t.Channels)
	}
	return nil
}

// CHW returns the tensor data in channel-major order.
func (t ImageTensor) CHW() []float32 {
	plane := t.Height * t.Width
	out := make([]float32, len(t.Data))
	for i := 0; i < plane; i++ {
		for c := 0; c < t.Channels; c++ {
			out[c*plane+i] = t.Data[i*t.Channels+c]
		}
	}
	return out
}

// Confidence is the probability, in [0,1], that the image shows a crack.
type Confidence float64
