package verdict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/crack-api/internal/model"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		conf     model.Confidence
		hasCrack bool
		severity string
	}{
		{0, false, ""},
		{0.5, false, ""},
		{0.50001, true, SeverityLow},
		{0.6, true, SeverityLow},
		{0.60001, true, SeverityMedium},
		{0.8, true, SeverityMedium},
		{0.80001, true, SeverityHigh},
		{1, true, SeverityHigh},
	}

	for _, tt := range tests {
		v := Classify(tt.conf)
		require.Equal(t, tt.hasCrack, v.HasCrack, "confidence %v", tt.conf)
		require.Equal(t, tt.severity, v.Severity, "confidence %v", tt.conf)
		require.False(t, v.Failed())
	}
}

func TestClassify_SweepUnitInterval(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		c := model.Confidence(float64(i) / 1000)
		v := Classify(c)
		require.Equal(t, c > 0.5, v.HasCrack)
		if v.HasCrack {
			require.Contains(t, []string{SeverityLow, SeverityMedium, SeverityHigh}, v.Severity)
			require.Equal(t, CrackType, v.CrackType)
		} else {
			require.Empty(t, v.Severity)
			require.Equal(t, NoCrackMessage, v.Message)
		}
	}
}

func TestClassify_ConfidenceString(t *testing.T) {
	require.Equal(t, "93.00%", Classify(0.93).Confidence)
	require.Equal(t, "80.00%", Classify(0.2).Confidence)
	require.Equal(t, "50.00%", Classify(0.5).Confidence)
	require.Equal(t, "100.00%", Classify(1).Confidence)
	require.Equal(t, "100.00%", Classify(0).Confidence)
}

func TestClassify_CrackFields(t *testing.T) {
	v := Classify(0.93)
	require.Equal(t, Verdict{
		HasCrack:        true,
		Confidence:      "93.00%",
		CrackType:       "Structural Crack",
		Severity:        SeverityHigh,
		Remedy:          Remedy,
		EducationalInfo: EducationalInfo,
	}, v)
}

func TestVerdict_JSONShapes(t *testing.T) {
	shape := func(v Verdict) map[string]any {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		return m
	}

	crack := shape(Classify(0.7))
	require.ElementsMatch(t,
		[]string{"has_crack", "confidence", "crack_type", "severity", "remedy", "educational_info"},
		keys(crack))
	require.Equal(t, true, crack["has_crack"])

	clean := shape(Classify(0.1))
	require.ElementsMatch(t, []string{"has_crack", "confidence", "message"}, keys(clean))
	require.Equal(t, false, clean["has_crack"])

	failed := shape(Failure("boom"))
	require.ElementsMatch(t, []string{"has_crack", "error"}, keys(failed))
	require.Equal(t, false, failed["has_crack"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
