// Package types provides shared type definitions used across noesis packages.
// This package exists to break import cycles between analyzer, retrieval,
// synthesis, and reasoning. Types in this package should be foundational
// data structures with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// REASONING TYPES
// =============================================================================

// ReasoningType classifies the cognitive strategy a query requires.
// It drives step-template selection in the reasoning engine.
type ReasoningType string

const (
	ReasoningDeductive    ReasoningType = "deductive"
	ReasoningInductive    ReasoningType = "inductive"
	ReasoningAbductive    ReasoningType = "abductive"
	ReasoningAnalogical   ReasoningType = "analogical"
	ReasoningCausal       ReasoningType = "causal"
	ReasoningTemporal     ReasoningType = "temporal"
	ReasoningSpatial      ReasoningType = "spatial"
	ReasoningMathematical ReasoningType = "mathematical"
	ReasoningLogical      ReasoningType = "logical"
	ReasoningComparative  ReasoningType = "comparative"
	ReasoningAnalytical   ReasoningType = "analytical"
	ReasoningGeneral      ReasoningType = "general"
)

// AllReasoningTypes lists every reasoning type the engine can decompose,
// in classifier priority order. GENERAL is the fallback and comes last.
func AllReasoningTypes() []ReasoningType {
	return []ReasoningType{
		ReasoningCausal,
		ReasoningMathematical,
		ReasoningComparative,
		ReasoningTemporal,
		ReasoningSpatial,
		ReasoningDeductive,
		ReasoningInductive,
		ReasoningAbductive,
		ReasoningAnalogical,
		ReasoningLogical,
		ReasoningAnalytical,
		ReasoningGeneral,
	}
}

// Intent classifies what kind of answer a query is after. It feeds the
// intent-specific adjustments in the relevance scorer.
type Intent string

const (
	IntentGeneral       Intent = "general"
	IntentBiographical  Intent = "biographical"
	IntentDefinition    Intent = "definition"
	IntentPhilosophical Intent = "philosophical"
	IntentFactual       Intent = "factual"
	IntentProcedural    Intent = "procedural"
)

// =============================================================================
// KNOWLEDGE MODEL
// =============================================================================

// KnowledgeItem is one fragmentary knowledge record borrowed from the
// knowledge store for the duration of a single reasoning call. The store
// deduplicates by content hash, so no two stored items share content.
type KnowledgeItem struct {
	Topic        string    `json:"topic"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	URL          string    `json:"url,omitempty"`
	Confidence   float64   `json:"confidence"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// TopicInfo is one identified topic with its domain and a relevance score
// against the query that produced it. Consumed once per call, never persisted.
type TopicInfo struct {
	Topic          string  `json:"topic"`
	Domain         string  `json:"domain"`
	RelevanceScore float64 `json:"relevance_score"`
}

// =============================================================================
// QUERY ANALYSIS
// =============================================================================

// QueryAnalysis is the analyzer's verdict on a raw query. Created fresh per
// call and never mutated after construction.
type QueryAnalysis struct {
	OriginalQuery      string        `json:"original_query"`
	Intent             Intent        `json:"intent"`
	ReasoningType      ReasoningType `json:"reasoning_type"`
	Complexity         float64       `json:"complexity"`       // [0,1]
	ComplexityLevel    int           `json:"complexity_level"` // 1..5
	Domains            []string      `json:"domains"`
	Topics             []string      `json:"topics"`
	Entities           []string      `json:"entities"`
	KeyPhrases         []string      `json:"key_phrases"`
	RequiresMultiTopic bool          `json:"requires_multi_topic"`
	DecomposedQueries  []string      `json:"decomposed_queries"`

	// Numbers and Operator are populated only for mathematical queries.
	Numbers  []float64 `json:"numbers,omitempty"`
	Operator string    `json:"operator,omitempty"`
}

// =============================================================================
// RELATIONSHIPS
// =============================================================================

// RelationshipType classifies a detected link between two topics.
type RelationshipType string

const (
	RelCausal       RelationshipType = "causal"
	RelHierarchical RelationshipType = "hierarchical"
	RelAssociative  RelationshipType = "associative"
	RelComparative  RelationshipType = "comparative"
	RelTemporal     RelationshipType = "temporal"
)

// Relationship is a detected link between two topics, derived from
// co-occurring pattern phrases in knowledge content. Stored keyed by the
// unordered (Topic1, Topic2) pair plus Type; at most one row per key, always
// the highest-strength candidate seen.
type Relationship struct {
	Topic1     string           `json:"topic1"`
	Topic2     string           `json:"topic2"`
	Type       RelationshipType `json:"relationship_type"`
	Strength   float64          `json:"strength"`   // [0,1]
	Confidence float64          `json:"confidence"` // [0,1]
	Evidence   string           `json:"evidence"`
}

// PairKey returns the canonical unordered key for dedup. The lexically
// smaller topic always comes first so A->B and B->A collide.
func (r Relationship) PairKey() string {
	a, b := r.Topic1, r.Topic2
	if b < a {
		a, b = b, a
	}
	return a + "\x1f" + b + "\x1f" + string(r.Type)
}

// =============================================================================
// REASONING CHAIN
// =============================================================================

// ReasoningStep is one step in a chain. Steps are created in order by the
// engine and mutated in place while their reasoning/confidence are filled;
// they are never reordered after creation.
type ReasoningStep struct {
	StepNumber    int             `json:"step_number"` // 1-based, contiguous
	Description   string          `json:"description"`
	Reasoning     string          `json:"reasoning"`
	Confidence    float64         `json:"confidence"` // [0,1]
	Evidence      []string        `json:"evidence"`
	Dependencies  []int           `json:"dependencies"` // all < StepNumber
	KnowledgeUsed []KnowledgeItem `json:"knowledge_used"`
	ExecutionTime time.Duration   `json:"execution_time,omitempty"`
}

// NewReasoningStep constructs a step, validating that every declared
// dependency references a strictly earlier step. This is the only place a
// malformed step can surface as an error; the pipeline itself never raises.
func NewReasoningStep(number int, description string, deps []int) (*ReasoningStep, error) {
	if number < 1 {
		return nil, fmt.Errorf("step number must be >= 1, got %d", number)
	}
	for _, d := range deps {
		if d >= number {
			return nil, fmt.Errorf("step %d depends on step %d, dependencies must reference earlier steps", number, d)
		}
		if d < 1 {
			return nil, fmt.Errorf("step %d has invalid dependency %d", number, d)
		}
	}
	return &ReasoningStep{
		StepNumber:   number,
		Description:  description,
		Dependencies: deps,
	}, nil
}

// ReasoningChain is the engine's output: a dependency-ordered trace with a
// conclusion and calibrated scores. Immutable once returned to the caller.
type ReasoningChain struct {
	ID                    string           `json:"id"`
	Query                 string           `json:"query"`
	ReasoningType         ReasoningType    `json:"reasoning_type"`
	Steps                 []*ReasoningStep `json:"steps"`
	Conclusion            string           `json:"conclusion"`
	Confidence            float64          `json:"confidence"` // [0,1]
	VerificationResult    bool             `json:"verification_result"`
	ReasoningQualityScore float64          `json:"reasoning_quality_score"` // [0,1]
	TopicsInvolved        []string         `json:"topics_involved"`
	Relationships         []Relationship   `json:"relationships"`
	Domains               []string         `json:"domains"`
	ProcessingTime        time.Duration    `json:"processing_time"`
}

// MeanConfidence averages step confidences; 0 for an empty chain.
func (c *ReasoningChain) MeanConfidence() float64 {
	if len(c.Steps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Steps {
		sum += s.Confidence
	}
	return sum / float64(len(c.Steps))
}

// Clamp01 bounds v to [0,1]. Used everywhere a score is composed.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
