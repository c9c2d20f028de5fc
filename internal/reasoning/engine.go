// Package reasoning implements the chain-of-thought reasoning engine: the
// orchestrator that analyzes a query, decomposes it into dependency-ordered
// steps, fills each step with knowledge-grounded reasoning, and produces a
// verified, quality-scored ReasoningChain. The engine always returns a chain
// for any query string; internal failures degrade scores instead of failing
// the call.
package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"noesis/internal/analyzer"
	"noesis/internal/cache"
	"noesis/internal/logging"
	"noesis/internal/relmap"
	"noesis/internal/retrieval"
	"noesis/internal/synthesis"
	"noesis/internal/types"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config holds engine tunables.
type Config struct {
	MaxSteps            int           // upper bound used by quality scoring
	CacheTTL            time.Duration // reasoning-chain cache TTL
	CacheSize           int           // max cached chains
	MinVerifyConfidence float64       // mean step confidence needed to verify
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps:            10,
		CacheTTL:            time.Hour,
		CacheSize:           1000,
		MinVerifyConfidence: 0.6,
	}
}

// Request is one reasoning call. Only Query is required.
type Request struct {
	Query string

	// Context is optional prior conversation text.
	Context string

	// Knowledge is caller-supplied flat knowledge, grouped by item topic.
	Knowledge []types.KnowledgeItem

	// MultiTopicKnowledge is caller-supplied per-topic knowledge. Takes
	// precedence over iterative retrieval when non-nil.
	MultiTopicKnowledge map[string][]types.KnowledgeItem

	// Iterative enables a fresh retrieval per step, keyed on the query plus
	// the step description, merged with knowledge accumulated so far.
	Iterative bool
}

// Stats tracks running engine statistics.
type Stats struct {
	ChainsGenerated   int64   `json:"chains_generated"`
	TotalSteps        int64   `json:"total_steps"`
	AverageConfidence float64 `json:"average_confidence"`
	AverageQuality    float64 `json:"average_quality"`
	CacheHits         int64   `json:"cache_hits"`
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates the reasoning pipeline. Retriever and relationship
// store are optional; without them the engine reasons over caller-supplied
// knowledge only.
type Engine struct {
	analyzer    *analyzer.Analyzer
	retriever   *retrieval.Retriever
	synthesizer *synthesis.Synthesizer
	mapper      *relmap.Mapper
	relStore    relmap.RelationshipStore
	cfg         Config

	chainCache *cache.Cache[string, *types.ReasoningChain]

	statsMu sync.Mutex
	stats   Stats
}

// New creates an Engine. Nil collaborators are replaced with defaults where
// a default makes sense; a nil retriever simply disables iterative retrieval.
func New(a *analyzer.Analyzer, r *retrieval.Retriever, s *synthesis.Synthesizer, m *relmap.Mapper, relStore relmap.RelationshipStore, cfg Config) *Engine {
	if a == nil {
		a = analyzer.New()
	}
	if m == nil {
		m = relmap.New()
	}
	if s == nil {
		s = synthesis.New(m)
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.MinVerifyConfidence <= 0 {
		cfg.MinVerifyConfidence = DefaultConfig().MinVerifyConfidence
	}
	return &Engine{
		analyzer:    a,
		retriever:   r,
		synthesizer: s,
		mapper:      m,
		relStore:    relStore,
		cfg:         cfg,
		chainCache:  cache.New[string, *types.ReasoningChain](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Analyze exposes query analysis to downstream consumers.
func (e *Engine) Analyze(query, context string) types.QueryAnalysis {
	return e.analyzer.Analyze(query, context)
}

// Stats returns a snapshot of the running engine statistics.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// =============================================================================
// PIPELINE
// =============================================================================

// GenerateReasoningChain runs the full pipeline:
// cache check -> analyze -> decompose -> step loop -> synthesize conclusion
// -> verify -> score -> cache store. It never returns nil.
func (e *Engine) GenerateReasoningChain(ctx context.Context, req Request) *types.ReasoningChain {
	started := time.Now()
	timer := logging.StartTimer(logging.CategoryReasoning, "GenerateReasoningChain")
	defer timer.Stop()

	// CacheCheck: identical queries within the TTL window short-circuit.
	key := queryHash(req.Query)
	if cached, ok := e.chainCache.Get(key); ok {
		e.statsMu.Lock()
		e.stats.CacheHits++
		e.statsMu.Unlock()
		logging.Debugf(logging.CategoryReasoning, "cache hit for query hash %s", key[:8])
		return cached
	}

	// Analyze.
	analysis := e.analyzer.Analyze(req.Query, req.Context)

	// Decompose into template steps.
	template := templateFor(analysis.ReasoningType, req.Query)
	steps := make([]*types.ReasoningStep, 0, len(template))
	for i, st := range template {
		step, err := types.NewReasoningStep(i+1, st.Description, st.Dependencies)
		if err != nil {
			// Templates are static and valid; this guards future edits.
			logging.Errorf(logging.CategoryReasoning, "invalid template step: %v", err)
			continue
		}
		step.Confidence = st.BaseConfidence
		steps = append(steps, step)
	}

	// StepLoop: strictly sequential so each step observes its predecessors.
	accumulated := make(map[string][]types.KnowledgeItem)
	for topic, items := range req.MultiTopicKnowledge {
		accumulated[topic] = items
	}
	for _, item := range req.Knowledge {
		topic := item.Topic
		if topic == "" {
			topic = "general"
		}
		accumulated[topic] = append(accumulated[topic], item)
	}

	relBest := make(map[string]types.Relationship)

	for i, step := range steps {
		stepStart := time.Now()

		stepKnowledge := e.stepKnowledge(ctx, req, analysis, step, accumulated)

		evidence := collectEvidence(req.Query, stepKnowledge, 3)
		step.Evidence = evidence
		step.KnowledgeUsed = flatten(stepKnowledge)

		prevReasoning := ""
		if i > 0 {
			prevReasoning = steps[i-1].Reasoning
		}
		step.Reasoning = e.generateStepReasoning(step, analysis, stepKnowledge, prevReasoning)

		step.Confidence = calibrateConfidence(step, analysis, stepKnowledge)

		// Opportunistic relationship detection over this step's knowledge.
		topics := topicsOf(stepKnowledge)
		if len(topics) >= 2 {
			for _, rel := range e.mapper.ExtractRelationships(flatten(stepKnowledge), topics) {
				k := rel.PairKey()
				if existing, ok := relBest[k]; !ok || rel.Strength > existing.Strength {
					relBest[k] = rel
				}
			}
		}

		for topic, items := range stepKnowledge {
			accumulated[topic] = mergeItems(accumulated[topic], items)
		}
		step.ExecutionTime = time.Since(stepStart)
	}

	relationships := sortedRelationships(relBest)
	if e.relStore != nil {
		for _, rel := range relationships {
			if err := e.relStore.Upsert(ctx, rel); err != nil {
				logging.Warnf(logging.CategoryReasoning, "relationship persist failed: %v", err)
			}
		}
	}

	// Synthesize the conclusion.
	conclusion := e.synthesizeConclusion(analysis, steps, relationships)

	chain := &types.ReasoningChain{
		ID:             uuid.NewString(),
		Query:          req.Query,
		ReasoningType:  analysis.ReasoningType,
		Steps:          steps,
		Conclusion:     conclusion,
		TopicsInvolved: topicsOf(accumulated),
		Relationships:  relationships,
		Domains:        analysis.Domains,
	}

	// Verify.
	chain.VerificationResult = e.verify(chain)
	confidence := chain.MeanConfidence()
	if chain.VerificationResult {
		confidence += 0.1
	}
	chain.Confidence = types.Clamp01(confidence)

	// Score.
	chain.ReasoningQualityScore = e.scoreQuality(chain)
	chain.ProcessingTime = time.Since(started)

	// CacheStore + statistics.
	e.chainCache.Set(key, chain)
	e.recordStats(chain)

	logging.Infof(logging.CategoryReasoning, "chain generated: type=%s steps=%d verified=%t quality=%.2f",
		chain.ReasoningType, len(chain.Steps), chain.VerificationResult, chain.ReasoningQualityScore)
	return chain
}

// stepKnowledge assembles the knowledge available to one step: the
// caller-supplied map, optionally refreshed by an iterative retrieval keyed
// on the query plus the step description, merged with what earlier steps
// accumulated. Retrieval failures degrade to the accumulated knowledge.
func (e *Engine) stepKnowledge(ctx context.Context, req Request, analysis types.QueryAnalysis, step *types.ReasoningStep, accumulated map[string][]types.KnowledgeItem) map[string][]types.KnowledgeItem {
	out := make(map[string][]types.KnowledgeItem, len(accumulated))
	for topic, items := range accumulated {
		out[topic] = items
	}

	if req.Iterative && e.retriever != nil {
		stepQuery := req.Query + " " + step.Description
		topics := e.retriever.IdentifyTopics(stepQuery, 0)
		fresh := e.retriever.RetrieveMultiTopic(ctx, req.Query, topics, 0, true)
		for topic, items := range fresh {
			out[topic] = mergeItems(out[topic], items)
		}
	}
	return out
}

// generateStepReasoning produces the step's reasoning text from a small set
// of phrase templates selected by keyword in the step description,
// interpolating a bounded slice of step knowledge and of the previous
// step's reasoning.
func (e *Engine) generateStepReasoning(step *types.ReasoningStep, analysis types.QueryAnalysis, knowledge map[string][]types.KnowledgeItem, prevReasoning string) string {
	snippet := knowledgeSnippet(knowledge, 200)
	prev := truncate(prevReasoning, 150)
	desc := strings.ToLower(step.Description)

	// Mathematical steps embed the computed result.
	if analysis.ReasoningType == types.ReasoningMathematical &&
		(strings.Contains(desc, "apply") || strings.Contains(desc, "determine")) {
		if expr, result, ok := evalArithmetic(analysis); ok {
			return fmt.Sprintf("%s: %s = %s.", step.Description, expr, result)
		}
	}

	switch {
	case strings.Contains(desc, "identify"):
		subject := strings.Join(analysis.Topics, ", ")
		if subject == "" {
			subject = analysis.OriginalQuery
		}
		if snippet == "" {
			return fmt.Sprintf("%s: the key elements are %s.", step.Description, subject)
		}
		return fmt.Sprintf("%s: the key elements are %s. Relevant knowledge: %s", step.Description, subject, snippet)
	case strings.Contains(desc, "evaluate") || strings.Contains(desc, "analyze"):
		if prev != "" {
			return fmt.Sprintf("%s: building on the prior step (%s), the evidence shows: %s", step.Description, prev, orFallback(snippet, "no additional evidence was found"))
		}
		return fmt.Sprintf("%s: the evidence shows: %s", step.Description, orFallback(snippet, "no additional evidence was found"))
	case strings.Contains(desc, "apply"):
		return fmt.Sprintf("%s: applying the relevant principles to %s. %s", step.Description, orFallback(prev, "the identified elements"), snippet)
	case strings.Contains(desc, "determine"):
		return fmt.Sprintf("%s: drawing on the prior findings (%s), the analysis indicates: %s", step.Description, orFallback(prev, "none recorded"), orFallback(snippet, "a conclusion follows from the steps above"))
	default:
		return fmt.Sprintf("%s: considering the available information. %s", step.Description, snippet)
	}
}

// calibrateConfidence computes a step's confidence: base 0.7 plus bonuses
// for evidence, query decomposition, and knowledge presence (capped at 1.0),
// then calibrated by evidence and knowledge counts.
func calibrateConfidence(step *types.ReasoningStep, analysis types.QueryAnalysis, knowledge map[string][]types.KnowledgeItem) float64 {
	conf := 0.7
	if len(step.Evidence) > 0 {
		conf += 0.1
	}
	if len(analysis.DecomposedQueries) > 1 {
		conf += 0.1
	}
	knowledgeCount := 0
	for _, items := range knowledge {
		knowledgeCount += len(items)
	}
	if knowledgeCount > 0 {
		conf += 0.1
	}
	if conf > 1.0 {
		conf = 1.0
	}

	// Calibration on top of the base.
	evidenceBonus := 0.05 * float64(len(step.Evidence))
	if evidenceBonus > 0.2 {
		evidenceBonus = 0.2
	}
	conf += evidenceBonus
	switch {
	case knowledgeCount >= 3:
		conf += 0.15
	case knowledgeCount >= 1:
		conf += 0.1
	}

	// Blend toward the template's base so weak templates stay conservative.
	conf = (conf + step.Confidence) / 2
	return types.Clamp01(conf)
}

// synthesizeConclusion joins the lead-in phrase, each step's reasoning, and
// up to three accumulated relationships.
func (e *Engine) synthesizeConclusion(analysis types.QueryAnalysis, steps []*types.ReasoningStep, relationships []types.Relationship) string {
	var b strings.Builder
	b.WriteString(leadInFor(analysis.ReasoningType))
	for i, s := range steps {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s.Reasoning)
	}
	if len(relationships) > 0 {
		b.WriteString(" Relationships: ")
		shown := relationships
		if len(shown) > 3 {
			shown = shown[:3]
		}
		parts := make([]string, len(shown))
		for i, r := range shown {
			parts[i] = fmt.Sprintf("%s %s %s", r.Topic1, r.Type, r.Topic2)
		}
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(".")
	}
	return b.String()
}

// verify checks the chain: every step has non-empty reasoning, mean step
// confidence clears the threshold, and the conclusion is substantive.
func (e *Engine) verify(chain *types.ReasoningChain) bool {
	for _, s := range chain.Steps {
		if strings.TrimSpace(s.Reasoning) == "" {
			return false
		}
	}
	if chain.MeanConfidence() <= e.cfg.MinVerifyConfidence {
		return false
	}
	return len(chain.Conclusion) > 10
}

// scoreQuality composes the chain quality from verification, step count
// relative to the configured maximum, and mean confidence.
func (e *Engine) scoreQuality(chain *types.ReasoningChain) float64 {
	base := 0.2
	if chain.VerificationResult {
		base = 0.5
	}
	stepRatio := float64(len(chain.Steps)) / float64(e.cfg.MaxSteps)
	if stepRatio > 1 {
		stepRatio = 1
	}
	return types.Clamp01(base + stepRatio*0.2 + chain.MeanConfidence()*0.3)
}

func (e *Engine) recordStats(chain *types.ReasoningChain) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	n := float64(e.stats.ChainsGenerated)
	e.stats.ChainsGenerated++
	e.stats.TotalSteps += int64(len(chain.Steps))
	e.stats.AverageConfidence = (e.stats.AverageConfidence*n + chain.Confidence) / (n + 1)
	e.stats.AverageQuality = (e.stats.AverageQuality*n + chain.ReasoningQualityScore) / (n + 1)
}

// =============================================================================
// HELPERS
// =============================================================================

func queryHash(query string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(query))))
	return hex.EncodeToString(sum[:])
}

// collectEvidence returns content sentences sharing at least two meaningful
// words with the query, up to max sentences.
func collectEvidence(query string, knowledge map[string][]types.KnowledgeItem, max int) []string {
	queryWords := meaningfulWordSet(query)
	var evidence []string
	for _, items := range knowledge {
		for _, it := range items {
			for _, sentence := range strings.Split(it.Content, ". ") {
				if len(evidence) >= max {
					return evidence
				}
				shared := 0
				for w := range meaningfulWordSet(sentence) {
					if queryWords[w] {
						shared++
					}
				}
				if shared >= 2 {
					evidence = append(evidence, strings.TrimSpace(sentence))
				}
			}
		}
	}
	return evidence
}

func meaningfulWordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

// knowledgeSnippet renders up to n characters of the highest-confidence
// knowledge available to a step.
func knowledgeSnippet(knowledge map[string][]types.KnowledgeItem, n int) string {
	items := flatten(knowledge)
	if len(items) == 0 {
		return ""
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Confidence > items[j].Confidence })
	var b strings.Builder
	for _, it := range items {
		if b.Len() >= n {
			break
		}
		b.WriteString(strings.TrimSpace(it.Content))
		b.WriteString(" ")
	}
	return truncate(strings.TrimSpace(b.String()), n)
}

func flatten(m map[string][]types.KnowledgeItem) []types.KnowledgeItem {
	topics := make([]string, 0, len(m))
	for t := range m {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	var out []types.KnowledgeItem
	for _, t := range topics {
		out = append(out, m[t]...)
	}
	return out
}

func topicsOf(m map[string][]types.KnowledgeItem) []string {
	topics := make([]string, 0, len(m))
	for t, items := range m {
		if len(items) > 0 {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	return topics
}

// mergeItems appends items not already present (by content) to existing.
func mergeItems(existing, incoming []types.KnowledgeItem) []types.KnowledgeItem {
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[it.Content] = true
	}
	for _, it := range incoming {
		if !seen[it.Content] {
			seen[it.Content] = true
			existing = append(existing, it)
		}
	}
	return existing
}

func sortedRelationships(m map[string]types.Relationship) []types.Relationship {
	out := make([]types.Relationship, 0, len(m))
	for _, rel := range m {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].PairKey() < out[j].PairKey()
	})
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// evalArithmetic computes the extracted binary operation; formatted without
// trailing zeros so "5 + 3" yields "8".
func evalArithmetic(analysis types.QueryAnalysis) (expr, result string, ok bool) {
	if len(analysis.Numbers) < 2 || analysis.Operator == "" {
		return "", "", false
	}
	a, b := analysis.Numbers[0], analysis.Numbers[1]
	var v float64
	switch analysis.Operator {
	case "+":
		v = a + b
	case "-":
		v = a - b
	case "*", "×":
		v = a * b
	case "/", "÷":
		if b == 0 {
			return "", "", false
		}
		v = a / b
	default:
		return "", "", false
	}
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return fmt.Sprintf("%s %s %s", format(a), analysis.Operator, format(b)), format(v), true
}
