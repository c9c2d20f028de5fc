// Step decomposition templates, one per reasoning type. Each template is a
// fixed sequence of 3-6 steps with preset descriptions, base confidences,
// and dependencies on earlier steps. CAUSAL branches on query phrasing: a
// bi-topic causal query ("how does X affect Y") gets the six-step
// multi-topic template, everything else the four-step single-topic one.
package reasoning

import (
	"regexp"

	"noesis/internal/types"
)

// stepTemplate is one preset step in a decomposition template.
type stepTemplate struct {
	Description    string
	BaseConfidence float64
	Dependencies   []int // 1-based step numbers, all earlier
}

var biTopicCausalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)how (?:does|do|did|will|can) .+ (?:affect|impact|influence|change) .+`),
	regexp.MustCompile(`(?i)why (?:does|do|did) .+ (?:cause|lead to|result in) .+`),
	regexp.MustCompile(`(?i)what (?:is|are) the (?:effect|effects|impact|consequences?) of .+ on .+`),
	regexp.MustCompile(`(?i)(?:does|do) .+ (?:cause|drive|trigger) .+`),
}

// isBiTopicCausal reports whether the query names both a cause and an effect.
func isBiTopicCausal(query string) bool {
	for _, p := range biTopicCausalPatterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}

var causalMultiTopicTemplate = []stepTemplate{
	{"Identify the causal factor and the affected domain in the query", 0.85, nil},
	{"Gather knowledge about the causal factor", 0.8, []int{1}},
	{"Gather knowledge about the affected domain", 0.8, []int{1}},
	{"Analyze the causal mechanisms linking the two topics", 0.75, []int{2, 3}},
	{"Evaluate the strength and direction of each causal link", 0.7, []int{4}},
	{"Determine the overall causal conclusion", 0.75, []int{5}},
}

var causalSingleTopicTemplate = []stepTemplate{
	{"Identify the cause and effect named in the query", 0.85, nil},
	{"Gather evidence for the causal mechanism", 0.8, []int{1}},
	{"Evaluate alternative explanations", 0.7, []int{2}},
	{"Determine the causal conclusion", 0.75, []int{3}},
}

var templatesByType = map[types.ReasoningType][]stepTemplate{
	types.ReasoningMathematical: {
		{"Identify the quantities and the operation in the query", 0.9, nil},
		{"Apply the arithmetic operation to the extracted quantities", 0.85, []int{1}},
		{"Evaluate the computation for consistency", 0.8, []int{2}},
		{"Determine the numeric result", 0.9, []int{3}},
	},
	types.ReasoningComparative: {
		{"Identify the items being compared", 0.85, nil},
		{"Gather attributes of each item", 0.8, []int{1}},
		{"Analyze similarities and differences", 0.75, []int{2}},
		{"Determine the comparative conclusion", 0.75, []int{3}},
	},
	types.ReasoningTemporal: {
		{"Identify the events and time references in the query", 0.85, nil},
		{"Gather knowledge about each event's timing", 0.75, []int{1}},
		{"Analyze the chronological ordering", 0.75, []int{2}},
		{"Determine the temporal conclusion", 0.75, []int{3}},
	},
	types.ReasoningSpatial: {
		{"Identify the locations or spatial entities in the query", 0.85, nil},
		{"Analyze the spatial relationships between them", 0.75, []int{1}},
		{"Determine the spatial conclusion", 0.75, []int{2}},
	},
	types.ReasoningDeductive: {
		{"Identify the premises stated or implied by the query", 0.85, nil},
		{"Apply logical rules to the premises", 0.8, []int{1}},
		{"Evaluate intermediate implications", 0.75, []int{2}},
		{"Determine what necessarily follows", 0.8, []int{3}},
	},
	types.ReasoningInductive: {
		{"Identify the observations relevant to the query", 0.8, nil},
		{"Analyze the observations for recurring patterns", 0.75, []int{1}},
		{"Apply the pattern as a general rule", 0.65, []int{2}},
		{"Determine the probable generalization", 0.7, []int{3}},
	},
	types.ReasoningAbductive: {
		{"Identify the observation needing explanation", 0.8, nil},
		{"Gather candidate explanations", 0.7, []int{1}},
		{"Evaluate the plausibility of each candidate", 0.65, []int{2}},
		{"Determine the best available explanation", 0.7, []int{3}},
	},
	types.ReasoningAnalogical: {
		{"Identify the source and target of the analogy", 0.8, nil},
		{"Analyze the correspondences between source and target", 0.7, []int{1}},
		{"Apply inferences carried over from the source", 0.65, []int{2}},
		{"Determine the analogical conclusion", 0.7, []int{3}},
	},
	types.ReasoningLogical: {
		{"Identify the propositions and connectives in the query", 0.85, nil},
		{"Apply the relevant logical forms", 0.8, []int{1}},
		{"Evaluate validity and consistency", 0.75, []int{2}},
		{"Determine the logical conclusion", 0.8, []int{3}},
	},
	types.ReasoningAnalytical: {
		{"Identify the components of the problem", 0.85, nil},
		{"Analyze each component against available knowledge", 0.75, []int{1}},
		{"Evaluate how the components interact", 0.7, []int{2}},
		{"Analyze the combined findings", 0.7, []int{3}},
		{"Determine the analytical conclusion", 0.75, []int{4}},
	},
	types.ReasoningGeneral: {
		{"Identify what the query is asking", 0.8, nil},
		{"Evaluate the relevant knowledge", 0.7, []int{1}},
		{"Determine the conclusion", 0.7, []int{2}},
	},
}

// templateFor selects the step template for a reasoning type and query.
func templateFor(rtype types.ReasoningType, query string) []stepTemplate {
	if rtype == types.ReasoningCausal {
		if isBiTopicCausal(query) {
			return causalMultiTopicTemplate
		}
		return causalSingleTopicTemplate
	}
	if t, ok := templatesByType[rtype]; ok {
		return t
	}
	return templatesByType[types.ReasoningGeneral]
}

// conclusionLeadIns introduce the conclusion per reasoning type.
var conclusionLeadIns = map[types.ReasoningType]string{
	types.ReasoningCausal:       "Tracing the causal chain: ",
	types.ReasoningMathematical: "Computing the result: ",
	types.ReasoningComparative:  "Weighing the comparison: ",
	types.ReasoningTemporal:     "Ordering the events in time: ",
	types.ReasoningSpatial:      "Considering the spatial layout: ",
	types.ReasoningDeductive:    "Following from the premises: ",
	types.ReasoningInductive:    "Generalizing from the observations: ",
	types.ReasoningAbductive:    "The best available explanation: ",
	types.ReasoningAnalogical:   "By analogy: ",
	types.ReasoningLogical:      "By logical evaluation: ",
	types.ReasoningAnalytical:   "Bringing the analysis together: ",
	types.ReasoningGeneral:      "Considering the available knowledge: ",
}

func leadInFor(rtype types.ReasoningType) string {
	if l, ok := conclusionLeadIns[rtype]; ok {
		return l
	}
	return conclusionLeadIns[types.ReasoningGeneral]
}
