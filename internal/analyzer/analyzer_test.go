package analyzer

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"noesis/internal/types"
)

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

func TestAnalyzeCausalCrossDomainQuery(t *testing.T) {
	a := New()
	analysis := a.Analyze("How does climate change affect economic policy?", "")

	if analysis.ReasoningType != types.ReasoningCausal {
		t.Errorf("reasoning type = %s, want causal", analysis.ReasoningType)
	}
	if !containsString(analysis.Domains, "environment") || !containsString(analysis.Domains, "economics") {
		t.Errorf("domains = %v, want environment and economics", analysis.Domains)
	}
	if !containsString(analysis.Topics, "climate change") || !containsString(analysis.Topics, "economic policy") {
		t.Errorf("topics = %v, want both compound terms", analysis.Topics)
	}
	if !analysis.RequiresMultiTopic {
		t.Error("cross-domain causal query should require multi-topic retrieval")
	}

	// 7 words, one question mark, no conjunctions: 0.3 + 0.35 + 0.2.
	if math.Abs(analysis.Complexity-0.85) > 1e-9 {
		t.Errorf("complexity = %v, want 0.85", analysis.Complexity)
	}
	if analysis.ComplexityLevel != 4 {
		t.Errorf("complexity level = %d, want 4", analysis.ComplexityLevel)
	}
}

func TestAnalyzeArithmeticQuery(t *testing.T) {
	a := New()
	analysis := a.Analyze("What is 5 + 3?", "")

	if analysis.ReasoningType != types.ReasoningMathematical {
		t.Errorf("reasoning type = %s, want mathematical", analysis.ReasoningType)
	}
	if diff := cmp.Diff([]float64{5, 3}, analysis.Numbers); diff != "" {
		t.Errorf("numbers mismatch (-want +got):\n%s", diff)
	}
	if analysis.Operator != "+" {
		t.Errorf("operator = %q, want +", analysis.Operator)
	}
	if analysis.Intent != types.IntentDefinition {
		t.Errorf("intent = %s, want definition for a 'what is' query", analysis.Intent)
	}
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	a := New()
	analysis := a.Analyze("   ", "")

	if analysis.ReasoningType != types.ReasoningGeneral {
		t.Errorf("reasoning type = %s, want general", analysis.ReasoningType)
	}
	if analysis.Complexity != 0 {
		t.Errorf("complexity = %v, want 0", analysis.Complexity)
	}
	if len(analysis.Topics) != 0 || len(analysis.Entities) != 0 {
		t.Errorf("empty query should extract nothing, got topics=%v entities=%v",
			analysis.Topics, analysis.Entities)
	}
}

func TestClassifierPriorityOrder(t *testing.T) {
	// The query carries causal, abductive, and inductive cues; causal is
	// checked first and must win.
	got := classifyReasoningType("why does smoking cause cancer, and what explains the trend?")
	if got != types.ReasoningCausal {
		t.Errorf("classified as %s, want causal to win over later rules", got)
	}
}

func TestClassifyReasoningTypes(t *testing.T) {
	cases := []struct {
		query string
		want  types.ReasoningType
	}{
		{"compare solar power versus wind power", types.ReasoningComparative},
		{"when did the roman empire fall?", types.ReasoningTemporal},
		{"where is the mariana trench?", types.ReasoningSpatial},
		{"if all humans are mortal, what follows? it follows that...", types.ReasoningDeductive},
		{"what trend do these measurements show?", types.ReasoningInductive},
		{"what is the best explanation for the missing mass?", types.ReasoningAbductive},
		{"the atom is like a solar system, what is the analogy?", types.ReasoningAnalogical},
		{"is this a valid argument or a contradiction?", types.ReasoningLogical},
		{"analyze the factors behind urban growth", types.ReasoningAnalytical},
		{"tell me about the weather", types.ReasoningGeneral},
	}
	for _, c := range cases {
		if got := classifyReasoningType(c.query); got != c.want {
			t.Errorf("classifyReasoningType(%q) = %s, want %s", c.query, got, c.want)
		}
	}
}

func TestDecompose(t *testing.T) {
	parts := Decompose("What is inflation? How does it affect savings?")
	if len(parts) != 2 {
		t.Fatalf("decomposed into %d parts, want 2: %v", len(parts), parts)
	}
	if parts[0] != "What is inflation?" {
		t.Errorf("first part = %q", parts[0])
	}

	parts = Decompose("Explain photosynthesis, and describe cellular respiration")
	if len(parts) != 2 {
		t.Fatalf("conjunction split produced %d parts, want 2: %v", len(parts), parts)
	}

	if parts := Decompose("What is entropy?"); parts != nil {
		t.Errorf("simple query should not decompose, got %v", parts)
	}
}

func TestDecomposeDropsShortFragments(t *testing.T) {
	// The trailing fragments are under the 10-character floor, so the rule
	// cannot produce two usable sub-queries and the query stays whole.
	if parts := Decompose("What is the role of mitochondria in cells?? ok?"); parts != nil {
		t.Errorf("short fragments should not count as a decomposition: %v", parts)
	}
}

func TestExtractTopicsAndEntities(t *testing.T) {
	topics, entities := extractTopicsAndEntities("Did Einstein develop quantum mechanics?")
	if !containsString(topics, "quantum mechanics") {
		t.Errorf("topics = %v, want the compound term kept whole", topics)
	}
	if containsString(topics, "quantum") || containsString(topics, "mechanics") {
		t.Errorf("component words of a compound must be consumed: %v", topics)
	}
	if !containsString(entities, "Einstein") {
		t.Errorf("entities = %v, want Einstein (capitalized, not sentence start)", entities)
	}
}

func TestDomainOf(t *testing.T) {
	if got := DomainOf("carbon emissions and climate warming"); got != "environment" {
		t.Errorf("DomainOf = %q, want environment", got)
	}
	if got := DomainOf("xyzzy"); got != "" {
		t.Errorf("DomainOf on unmatched text = %q, want empty", got)
	}
}

func TestExtractArithmetic(t *testing.T) {
	numbers, op := extractArithmetic("What is 12.5 / 2.5?")
	if diff := cmp.Diff([]float64{12.5, 2.5}, numbers); diff != "" {
		t.Errorf("numbers mismatch (-want +got):\n%s", diff)
	}
	if op != "/" {
		t.Errorf("operator = %q, want /", op)
	}

	_, op = extractArithmetic("what is 4 plus 9")
	if op != "+" {
		t.Errorf("worded operator = %q, want +", op)
	}
}
