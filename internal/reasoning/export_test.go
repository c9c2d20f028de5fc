package reasoning

import (
	"encoding/json"
	"strings"
	"testing"

	"noesis/internal/types"
)

func exportFixture() *types.ReasoningChain {
	return &types.ReasoningChain{
		ID:            "fixture",
		Query:         "why is <the sky> blue?",
		ReasoningType: types.ReasoningCausal,
		Steps: []*types.ReasoningStep{
			{StepNumber: 1, Description: "Identify the cause", Reasoning: "Sunlight scatters in the atmosphere.", Confidence: 0.8},
			{StepNumber: 2, Description: "Determine the conclusion", Reasoning: "Shorter wavelengths scatter more.", Confidence: 0.75, Dependencies: []int{1}, Evidence: []string{"Rayleigh scattering"}},
		},
		Conclusion:            "Blue light scatters most, so the sky appears blue.",
		Confidence:            0.8,
		ReasoningQualityScore: 0.7,
		VerificationResult:    true,
	}
}

func TestFormatText(t *testing.T) {
	out := FormatText(exportFixture())
	for _, want := range []string{"Step 1:", "Step 2:", "depends on: [1]", "Conclusion: Blue light"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	out, err := FormatJSON(exportFixture())
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded types.ReasoningChain
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "why is <the sky> blue?" || len(decoded.Steps) != 2 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}

func TestFormatMarkdown(t *testing.T) {
	out := FormatMarkdown(exportFixture())
	for _, want := range []string{"## Step 1:", "## Conclusion", "- Rayleigh scattering"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestFormatHTMLEscapes(t *testing.T) {
	out := FormatHTML(exportFixture())
	if strings.Contains(out, "<the sky>") {
		t.Error("query text must be HTML-escaped")
	}
	if !strings.Contains(out, "&lt;the sky&gt;") {
		t.Errorf("escaped query missing:\n%s", out)
	}
}
