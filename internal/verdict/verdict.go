// Package verdict maps a crack confidence onto the result returned to
// callers.
package verdict

import (
	"fmt"

	"github.com/Brownie44l1/crack-api/internal/model"
)

// Severity tiers reported for detected cracks.
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

const (
	CrackThreshold  = 0.5
	MediumThreshold = 0.6
	HighThreshold   = 0.8
)

const (
	CrackType       = "Structural Crack"
	Remedy          = "Clean the area and apply a suitable filler or sealant. Monitor for further widening."
	EducationalInfo = "Cracks can occur due to thermal expansion, shrinkage, or structural settlement. Understanding the pattern helps in diagnosing the cause."
	NoCrackMessage  = "No significant structural cracks detected in this image."
)

// Verdict is the outcome of analyzing one image. HasCrack is always
// encoded; the remaining fields appear according to the outcome.
type Verdict struct {
	HasCrack        bool   `json:"has_crack"`
	Confidence      string `json:"confidence,omitempty"`
	CrackType       string `json:"crack_type,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Remedy          string `json:"remedy,omitempty"`
	EducationalInfo string `json:"educational_info,omitempty"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Classify turns a confidence score into a verdict.
func Classify(c model.Confidence) Verdict {
	if c <= CrackThreshold {
		return Verdict{
			HasCrack:   false,
			Confidence: percent(1 - c),
			Message:    NoCrackMessage,
		}
	}

	return Verdict{
		HasCrack:        true,
		Confidence:      percent(c),
		CrackType:       CrackType,
		Severity:        severity(c),
		Remedy:          Remedy,
		EducationalInfo: EducationalInfo,
	}
}

// Failure builds the verdict returned when an image could not be analyzed.
func Failure(msg string) Verdict {
	return Verdict{HasCrack: false, Error: msg}
}

// Failed reports whether v carries an error.
func (v Verdict) Failed() bool {
	return v.Error != ""
}

func severity(c model.Confidence) string {
	switch {
	case c > HighThreshold:
		return SeverityHigh
	case c > MediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func percent(c model.Confidence) string {
	return fmt.Sprintf("%.2f%%", float64(c)*100)
}
