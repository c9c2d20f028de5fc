// Supporting operations on reasoning chains: dependency resolution,
// alternative-path generation, merging, optimization, and repair. These
// operate on chains after the main pipeline; none of them fabricate
// reasoning a step never had.
package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"noesis/internal/types"
)

// ErrEmptyReasoning reports a step whose reasoning text is missing. Repair
// never fabricates reasoning, so this remains a validation error.
var ErrEmptyReasoning = errors.New("step has empty reasoning")

// =============================================================================
// DEPENDENCY RESOLUTION
// =============================================================================

// ResolveDependencies drops any dependency that references a step number at
// or beyond the declaring step, or one that does not exist. Steps themselves
// are preserved.
func ResolveDependencies(steps []*types.ReasoningStep) {
	exists := make(map[int]bool, len(steps))
	for _, s := range steps {
		exists[s.StepNumber] = true
	}
	for _, s := range steps {
		kept := s.Dependencies[:0]
		for _, d := range s.Dependencies {
			if d < s.StepNumber && exists[d] {
				kept = append(kept, d)
			}
		}
		s.Dependencies = kept
	}
}

// TopologicalSortSteps orders steps so every step appears after all of its
// dependencies, preserving original order among independent steps. Invalid
// dependencies are resolved away first, so the sort always terminates.
func TopologicalSortSteps(steps []*types.ReasoningStep) []*types.ReasoningStep {
	ResolveDependencies(steps)

	byNumber := make(map[int]*types.ReasoningStep, len(steps))
	for _, s := range steps {
		byNumber[s.StepNumber] = s
	}

	visited := make(map[int]bool, len(steps))
	var ordered []*types.ReasoningStep
	var visit func(s *types.ReasoningStep)
	visit = func(s *types.ReasoningStep) {
		if visited[s.StepNumber] {
			return
		}
		visited[s.StepNumber] = true
		deps := append([]int(nil), s.Dependencies...)
		sort.Ints(deps)
		for _, d := range deps {
			if dep, ok := byNumber[d]; ok {
				visit(dep)
			}
		}
		ordered = append(ordered, s)
	}
	for _, s := range steps {
		visit(s)
	}
	return ordered
}

// =============================================================================
// ALTERNATIVE PATHS
// =============================================================================

// alternativeTypes suggests 1-2 reasoning types adjacent to the primary one,
// for comparison runs.
var alternativeTypes = map[types.ReasoningType][]types.ReasoningType{
	types.ReasoningCausal:       {types.ReasoningAnalytical, types.ReasoningAbductive},
	types.ReasoningMathematical: {types.ReasoningLogical},
	types.ReasoningComparative:  {types.ReasoningAnalytical},
	types.ReasoningTemporal:     {types.ReasoningCausal},
	types.ReasoningSpatial:      {types.ReasoningAnalytical},
	types.ReasoningDeductive:    {types.ReasoningLogical, types.ReasoningInductive},
	types.ReasoningInductive:    {types.ReasoningAbductive},
	types.ReasoningAbductive:    {types.ReasoningInductive, types.ReasoningCausal},
	types.ReasoningAnalogical:   {types.ReasoningInductive},
	types.ReasoningLogical:      {types.ReasoningDeductive},
	types.ReasoningAnalytical:   {types.ReasoningGeneral},
	types.ReasoningGeneral:      {types.ReasoningAnalytical},
}

// GenerateAlternativePaths rebuilds the chain under up to two alternate
// reasoning types so callers can compare decompositions. The primary chain
// is not included in the result.
func (e *Engine) GenerateAlternativePaths(ctx context.Context, req Request, primary *types.ReasoningChain) []*types.ReasoningChain {
	alts := alternativeTypes[primary.ReasoningType]
	var chains []*types.ReasoningChain
	for _, alt := range alts {
		altReq := req
		// Cache keys are query-based; bypass the cache by rebuilding with a
		// forced template rather than re-entering the pipeline.
		chain := e.rebuildWithType(ctx, altReq, alt)
		if chain != nil {
			chains = append(chains, chain)
		}
	}
	return chains
}

// rebuildWithType runs the step loop against a forced reasoning type.
func (e *Engine) rebuildWithType(ctx context.Context, req Request, rtype types.ReasoningType) *types.ReasoningChain {
	analysis := e.analyzer.Analyze(req.Query, req.Context)
	analysis.ReasoningType = rtype

	template := templateFor(rtype, req.Query)
	steps := make([]*types.ReasoningStep, 0, len(template))
	for i, st := range template {
		step, err := types.NewReasoningStep(i+1, st.Description, st.Dependencies)
		if err != nil {
			continue
		}
		step.Confidence = st.BaseConfidence
		steps = append(steps, step)
	}

	accumulated := make(map[string][]types.KnowledgeItem)
	for topic, items := range req.MultiTopicKnowledge {
		accumulated[topic] = items
	}
	for i, step := range steps {
		stepKnowledge := e.stepKnowledge(ctx, req, analysis, step, accumulated)
		step.Evidence = collectEvidence(req.Query, stepKnowledge, 3)
		step.KnowledgeUsed = flatten(stepKnowledge)
		prev := ""
		if i > 0 {
			prev = steps[i-1].Reasoning
		}
		step.Reasoning = e.generateStepReasoning(step, analysis, stepKnowledge, prev)
		step.Confidence = calibrateConfidence(step, analysis, stepKnowledge)
	}

	chain := &types.ReasoningChain{
		Query:          req.Query,
		ReasoningType:  rtype,
		Steps:          steps,
		Conclusion:     e.synthesizeConclusion(analysis, steps, nil),
		TopicsInvolved: topicsOf(accumulated),
		Domains:        analysis.Domains,
	}
	chain.VerificationResult = e.verify(chain)
	chain.Confidence = types.Clamp01(chain.MeanConfidence())
	chain.ReasoningQualityScore = e.scoreQuality(chain)
	return chain
}

// =============================================================================
// MERGE / OPTIMIZE / REPAIR
// =============================================================================

// reasoningPrefixHash identifies near-duplicate steps by the hash of the
// first 80 characters of their reasoning text.
func reasoningPrefixHash(reasoning string) string {
	prefix := strings.ToLower(strings.TrimSpace(reasoning))
	if len(prefix) > 80 {
		prefix = prefix[:80]
	}
	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:8])
}

// MergeReasoningChains unions two chains over the same query: steps deduped
// by reasoning-text prefix hash and renumbered, confidence and quality
// averaged, topics and relationships unioned.
func (e *Engine) MergeReasoningChains(a, b *types.ReasoningChain) *types.ReasoningChain {
	seen := make(map[string]bool)
	var steps []*types.ReasoningStep
	for _, s := range append(append([]*types.ReasoningStep{}, a.Steps...), b.Steps...) {
		h := reasoningPrefixHash(s.Reasoning)
		if seen[h] {
			continue
		}
		seen[h] = true
		copied := *s
		copied.StepNumber = len(steps) + 1
		copied.Dependencies = nil // original numbering no longer applies
		steps = append(steps, &copied)
	}

	relBest := make(map[string]types.Relationship)
	for _, rel := range append(append([]types.Relationship{}, a.Relationships...), b.Relationships...) {
		k := rel.PairKey()
		if existing, ok := relBest[k]; !ok || rel.Strength > existing.Strength {
			relBest[k] = rel
		}
	}

	merged := &types.ReasoningChain{
		Query:                 a.Query,
		ReasoningType:         a.ReasoningType,
		Steps:                 steps,
		Conclusion:            a.Conclusion,
		Confidence:            types.Clamp01((a.Confidence + b.Confidence) / 2),
		ReasoningQualityScore: types.Clamp01((a.ReasoningQualityScore + b.ReasoningQualityScore) / 2),
		TopicsInvolved:        unionStrings(a.TopicsInvolved, b.TopicsInvolved),
		Relationships:         sortedRelationships(relBest),
		Domains:               unionStrings(a.Domains, b.Domains),
	}
	merged.VerificationResult = e.verify(merged)
	return merged
}

// OptimizeReasoningChain drops steps whose reasoning duplicates an earlier
// step's, renumbers the survivors, and recomputes the chain metrics.
func (e *Engine) OptimizeReasoningChain(chain *types.ReasoningChain) *types.ReasoningChain {
	seen := make(map[string]bool)
	var steps []*types.ReasoningStep
	for _, s := range chain.Steps {
		h := reasoningPrefixHash(s.Reasoning)
		if seen[h] {
			continue
		}
		seen[h] = true
		copied := *s
		copied.StepNumber = len(steps) + 1
		steps = append(steps, &copied)
	}
	renumberDependencies(chain.Steps, steps)

	optimized := *chain
	optimized.Steps = steps
	optimized.VerificationResult = e.verify(&optimized)
	optimized.Confidence = types.Clamp01(optimized.MeanConfidence())
	optimized.ReasoningQualityScore = e.scoreQuality(&optimized)
	return &optimized
}

// ValidateAndFixChain repairs step numbering gaps and out-of-range
// confidences, then recomputes metrics. A step with empty reasoning is not
// repairable and returns ErrEmptyReasoning; the chain is returned as far as
// it was fixed.
func (e *Engine) ValidateAndFixChain(chain *types.ReasoningChain) (*types.ReasoningChain, error) {
	fixed := *chain
	fixed.Steps = make([]*types.ReasoningStep, len(chain.Steps))
	var invalid error
	for i, s := range chain.Steps {
		copied := *s
		copied.StepNumber = i + 1
		copied.Confidence = types.Clamp01(copied.Confidence)
		kept := copied.Dependencies[:0:0]
		for _, d := range copied.Dependencies {
			if d >= 1 && d < copied.StepNumber {
				kept = append(kept, d)
			}
		}
		copied.Dependencies = kept
		if strings.TrimSpace(copied.Reasoning) == "" {
			invalid = ErrEmptyReasoning
		}
		fixed.Steps[i] = &copied
	}
	fixed.Confidence = types.Clamp01(fixed.MeanConfidence())
	fixed.VerificationResult = invalid == nil && e.verify(&fixed)
	fixed.ReasoningQualityScore = e.scoreQuality(&fixed)
	return &fixed, invalid
}

// renumberDependencies remaps dependency numbers after steps were dropped.
func renumberDependencies(original, kept []*types.ReasoningStep) {
	newNumber := make(map[string]int, len(kept))
	for _, s := range kept {
		newNumber[reasoningPrefixHash(s.Reasoning)] = s.StepNumber
	}
	oldToNew := make(map[int]int, len(original))
	for _, s := range original {
		if n, ok := newNumber[reasoningPrefixHash(s.Reasoning)]; ok {
			oldToNew[s.StepNumber] = n
		}
	}
	for _, s := range kept {
		remapped := s.Dependencies[:0:0]
		for _, d := range s.Dependencies {
			if n, ok := oldToNew[d]; ok && n < s.StepNumber {
				remapped = append(remapped, n)
			}
		}
		s.Dependencies = remapped
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
