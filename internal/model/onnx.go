package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier is a loaded binary crack classifier.
type Classifier interface {
	// Predict returns the raw sigmoid output for one image.
	Predict(t ImageTensor) (float32, error)
	Close()
}

// ONNXClassifier runs an exported crack model through onnxruntime.
// Input and output tensors are allocated once and reused, so Predict
// calls are serialized.
type ONNXClassifier struct {
	mu           sync.Mutex
	closed       bool
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

var envOnce sync.Once
var envErr error

var destroyEnvironment = ort.DestroyEnvironment

// LoadONNX returns a Loader that opens ONNX artifacts. libPath points at
// the onnxruntime shared library and may be empty to use the default.
func LoadONNX(libPath string) Loader {
	return func(modelPath string) (Classifier, error) {
		return NewONNXClassifier(modelPath, libPath)
	}
}

// NewONNXClassifier opens the model at modelPath. Metadata is read from
// modelPath with a .json extension when that file exists.
func NewONNXClassifier(modelPath, libPath string) (*ONNXClassifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	metadata, err := readMetadata(metadataPath(modelPath))
	if err != nil {
		return nil, err
	}

	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", envErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Predict copies the tensor into the session input and runs one forward pass.
func (c *ONNXClassifier) Predict(t ImageTensor) (float32, error) {
	data := t.Data
	if c.Metadata.Layout == LayoutNCHW {
		data = t.CHW()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	input := c.inputTensor.GetData()
	if len(input) != len(data) {
		return 0, fmt.Errorf("model expects %d input values, got %d", len(input), len(data))
	}
	copy(input, data)

	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}

	output := c.outputTensor.GetData()
	if len(output) == 0 {
		return 0, errors.New("model produced no output")
	}
	return output[0], nil
}

// Close releases the session and tears down the onnxruntime environment.
// Only one classifier exists per process, so it owns the environment.
func (c *ONNXClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	destroyEnvironment()
}

func metadataPath(modelPath string) string {
	if i := strings.LastIndex(modelPath, "."); i > strings.LastIndexAny(modelPath, `/\`) {
		return modelPath[:i] + ".json"
	}
	return modelPath + ".json"
}

func readMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(raw, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata.Layout != LayoutNHWC && metadata.Layout != LayoutNCHW {
		return metadata, fmt.Errorf("unsupported tensor layout %q", metadata.Layout)
	}
	if metadata.ImageSize != ImageSize {
		return metadata, fmt.Errorf("model expects %dx%d images, preprocessing produces %dx%d",
			metadata.ImageSize, metadata.ImageSize, ImageSize, ImageSize)
	}
	n := int64(1)
	for _, d := range metadata.InputShape {
		n *= d
	}
	if n != ImageSize*ImageSize*ImageChannels {
		return metadata, fmt.Errorf("input shape %v does not hold one %dx%dx%d image",
			metadata.InputShape, ImageSize, ImageSize, ImageChannels)
	}
	return metadata, nil
}
