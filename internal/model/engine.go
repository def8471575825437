package model

import (
	"fmt"
	"math"
)

// InferenceError wraps a fault raised while running the classifier.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return e.Err.Error() }

func (e *InferenceError) Unwrap() error { return e.Err }

// Run feeds one tensor through c and returns the crack confidence.
// Output outside [0,1] is clamped; NaN is an error.
func Run(c Classifier, t ImageTensor) (conf Confidence, err error) {
	if err := t.Validate(); err != nil {
		return 0, &InferenceError{Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Err: fmt.Errorf("classifier panicked: %v", r)}
		}
	}()

	raw, err := c.Predict(t)
	if err != nil {
		return 0, &InferenceError{Err: err}
	}

	v := float64(raw)
	if math.IsNaN(v) {
		return 0, &InferenceError{Err: fmt.Errorf("classifier returned NaN")}
	}
	return Confidence(math.Min(1, math.Max(0, v))), nil
}
