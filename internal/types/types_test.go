package types

import (
	"math"
	"testing"
)

func TestNewReasoningStepValidation(t *testing.T) {
	if _, err := NewReasoningStep(0, "bad number", nil); err == nil {
		t.Error("expected error for step number 0")
	}
	if _, err := NewReasoningStep(2, "forward dep", []int{2}); err == nil {
		t.Error("expected error for dependency on self")
	}
	if _, err := NewReasoningStep(2, "forward dep", []int{3}); err == nil {
		t.Error("expected error for dependency on later step")
	}
	if _, err := NewReasoningStep(3, "negative dep", []int{0}); err == nil {
		t.Error("expected error for dependency below 1")
	}

	step, err := NewReasoningStep(3, "valid", []int{1, 2})
	if err != nil {
		t.Fatalf("valid step rejected: %v", err)
	}
	if step.StepNumber != 3 || step.Description != "valid" {
		t.Errorf("step fields not preserved: %+v", step)
	}
}

func TestPairKeyIsUnordered(t *testing.T) {
	ab := Relationship{Topic1: "alpha", Topic2: "beta", Type: RelCausal}
	ba := Relationship{Topic1: "beta", Topic2: "alpha", Type: RelCausal}
	if ab.PairKey() != ba.PairKey() {
		t.Errorf("A->B and B->A should share a key: %q vs %q", ab.PairKey(), ba.PairKey())
	}

	other := Relationship{Topic1: "alpha", Topic2: "beta", Type: RelTemporal}
	if ab.PairKey() == other.PairKey() {
		t.Error("different relationship types must not collide")
	}
}

func TestMeanConfidence(t *testing.T) {
	empty := &ReasoningChain{}
	if got := empty.MeanConfidence(); got != 0 {
		t.Errorf("empty chain mean = %v, want 0", got)
	}

	chain := &ReasoningChain{Steps: []*ReasoningStep{
		{Confidence: 0.6},
		{Confidence: 0.8},
	}}
	if got := chain.MeanConfidence(); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("mean = %v, want 0.7", got)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.3, 1},
	}
	for _, c := range cases {
		if got := Clamp01(c.in); got != c.want {
			t.Errorf("Clamp01(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
