// CausalReasoner specializes the engine for explicit multi-topic
// cause-and-effect queries: it builds the relationship graph over the
// retrieved topics and walks adjacent topic pairs, preferring explicit
// causal edges and falling back to an assumed sequential chain.
package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"noesis/internal/logging"
	"noesis/internal/types"
)

// CausalReasoner layers multi-topic causal decomposition on an Engine.
type CausalReasoner struct {
	engine *Engine
}

// NewCausalReasoner wraps an engine.
func NewCausalReasoner(engine *Engine) *CausalReasoner {
	return &CausalReasoner{engine: engine}
}

// Reason performs multi-topic causal analysis for query. Queries that do
// not yield at least two topics delegate to the engine's general pipeline.
func (c *CausalReasoner) Reason(ctx context.Context, query string) *types.ReasoningChain {
	started := time.Now()
	timer := logging.StartTimer(logging.CategoryReasoning, "CausalReason")
	defer timer.Stop()

	if c.engine.retriever == nil {
		return c.engine.GenerateReasoningChain(ctx, Request{Query: query})
	}

	topicInfos := c.engine.retriever.IdentifyTopics(query, 0)
	if len(topicInfos) < 2 {
		logging.Debugf(logging.CategoryReasoning, "causal query yielded %d topics, delegating to engine", len(topicInfos))
		return c.engine.GenerateReasoningChain(ctx, Request{Query: query})
	}

	knowledge := c.engine.retriever.RetrieveMultiTopic(ctx, query, topicInfos, 0, true)
	topics := make([]string, len(topicInfos))
	for i, t := range topicInfos {
		topics[i] = t.Topic
	}
	graph := c.engine.mapper.BuildRelationshipGraph(ctx, topics, knowledge, c.engine.relStore)

	steps, relationships := c.decomposeCausalSteps(topics, graph)

	chain := &types.ReasoningChain{
		ID:             uuid.NewString(),
		Query:          query,
		ReasoningType:  types.ReasoningCausal,
		Steps:          steps,
		Conclusion:     causalConclusion(steps),
		TopicsInvolved: topics,
		Relationships:  relationships,
		Domains:        domainsOf(topicInfos),
	}
	chain.VerificationResult = c.engine.verify(chain)
	chain.Confidence = types.Clamp01(chain.MeanConfidence())
	chain.ReasoningQualityScore = c.engine.scoreQuality(chain)
	chain.ProcessingTime = time.Since(started)
	return chain
}

// decomposeCausalSteps walks adjacent topic pairs in order. An explicit
// causal edge in the graph sets the step's confidence to the edge strength;
// without one the step assumes a sequential link with confidence 0.5, or
// 0.6 when the chain has exactly two topics.
func (c *CausalReasoner) decomposeCausalSteps(topics []string, graph map[string][]types.Relationship) ([]*types.ReasoningStep, []types.Relationship) {
	assumedConfidence := 0.5
	if len(topics) == 2 {
		assumedConfidence = 0.6
	}

	var steps []*types.ReasoningStep
	var used []types.Relationship
	prevSummary := ""
	for i := 0; i+1 < len(topics); i++ {
		from, to := topics[i], topics[i+1]
		var deps []int
		if i > 0 {
			deps = []int{i}
		}
		step, err := types.NewReasoningStep(i+1, fmt.Sprintf("Trace the causal link from %s to %s", from, to), deps)
		if err != nil {
			continue
		}

		if edge, ok := causalEdge(graph, from, to); ok {
			step.Confidence = edge.Strength
			step.Evidence = []string{edge.Evidence}
			step.Reasoning = fmt.Sprintf("%s %s: established causal link (%s).", causalLeadClause(from, to), referencePrev(prevSummary), edge.Evidence)
			used = append(used, edge)
		} else {
			step.Confidence = assumedConfidence
			step.Reasoning = fmt.Sprintf("%s %s: no explicit causal evidence was found, assuming a sequential influence.", causalLeadClause(from, to), referencePrev(prevSummary))
		}
		prevSummary = causalLeadClause(from, to)
		steps = append(steps, step)
	}
	return steps, used
}

// causalEdge finds an explicit causal relationship from one topic to another.
func causalEdge(graph map[string][]types.Relationship, from, to string) (types.Relationship, bool) {
	for _, rel := range graph[from] {
		if rel.Type == types.RelCausal && strings.EqualFold(rel.Topic2, to) {
			return rel, true
		}
	}
	return types.Relationship{}, false
}

func causalLeadClause(from, to string) string {
	return fmt.Sprintf("%s influences %s", from, to)
}

// referencePrev mentions the previous step's summary explicitly, so each
// step reads as a continuation of the chain.
func referencePrev(prevSummary string) string {
	if prevSummary == "" {
		return "(starting point)"
	}
	return fmt.Sprintf("(building on: %s)", prevSummary)
}

// causalConclusion concatenates each step's leading clause.
func causalConclusion(steps []*types.ReasoningStep) string {
	clauses := make([]string, 0, len(steps))
	for _, s := range steps {
		if i := strings.Index(s.Reasoning, " ("); i > 0 {
			clauses = append(clauses, s.Reasoning[:i])
		} else {
			clauses = append(clauses, s.Reasoning)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	return "Causal chain: " + strings.Join(clauses, ", which in turn ") + "."
}

func domainsOf(infos []types.TopicInfo) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range infos {
		if t.Domain == "" || seen[t.Domain] {
			continue
		}
		seen[t.Domain] = true
		out = append(out, t.Domain)
	}
	return out
}
