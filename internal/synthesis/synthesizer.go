// Package synthesis merges per-topic knowledge into one coherent context
// block plus relationship and conflict metadata, with a composite quality
// score for the result.
package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/relmap"
	"noesis/internal/types"
)

// Conflict flags two knowledge items that appear to contradict each other
// about the same concept.
type Conflict struct {
	Topic     string `json:"topic"`
	Title     string `json:"title"`
	Assertion string `json:"assertion"` // the positively-phrased text
	Negation  string `json:"negation"`  // the negated text
}

// Result is the synthesizer's output.
type Result struct {
	SynthesizedContext string               `json:"synthesized_context"`
	Relationships      []types.Relationship `json:"relationships"`
	Conflicts          []Conflict           `json:"conflicts"`
	QualityScore       float64              `json:"quality_score"`
	TopicsCovered      []string             `json:"topics_covered"`
	TotalItems         int                  `json:"total_items"`
}

// Synthesizer merges multi-topic knowledge. Stateless aside from its mapper.
type Synthesizer struct {
	mapper *relmap.Mapper
}

// New creates a Synthesizer.
func New(mapper *relmap.Mapper) *Synthesizer {
	if mapper == nil {
		mapper = relmap.New()
	}
	return &Synthesizer{mapper: mapper}
}

const (
	maxItemsPerTopic  = 3
	itemTruncateLen   = 300
	maxRelationsShown = 5
	pairTopItems      = 3
)

// Synthesize merges knowledgeByTopic into one context for query.
// previousContext, when non-empty, is prepended as a header so iterative
// reasoning steps can accumulate context.
func (s *Synthesizer) Synthesize(knowledgeByTopic map[string][]types.KnowledgeItem, query, previousContext string) Result {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesize")
	defer timer.Stop()

	topics := sortedTopics(knowledgeByTopic)

	total := 0
	for _, items := range knowledgeByTopic {
		total += len(items)
	}

	relationships := s.pairwiseRelationships(topics, knowledgeByTopic)
	conflicts := detectConflicts(knowledgeByTopic)
	context := s.mergeContext(topics, knowledgeByTopic, relationships, previousContext)

	res := Result{
		SynthesizedContext: context,
		Relationships:      relationships,
		Conflicts:          conflicts,
		QualityScore:       qualityScore(context, len(relationships), len(conflicts), total),
		TopicsCovered:      topics,
		TotalItems:         total,
	}
	logging.Debugf(logging.CategorySynthesis, "synthesized %d topics, %d items, %d relationships, %d conflicts, quality=%.2f",
		len(topics), total, len(relationships), len(conflicts), res.QualityScore)
	return res
}

// pairwiseRelationships runs the relationship detector across every topic
// pair, restricted to each pair's top items to bound cost.
func (s *Synthesizer) pairwiseRelationships(topics []string, knowledgeByTopic map[string][]types.KnowledgeItem) []types.Relationship {
	best := make(map[string]types.Relationship)
	for i := 0; i < len(topics); i++ {
		for j := i + 1; j < len(topics); j++ {
			pair := []string{topics[i], topics[j]}
			var items []types.KnowledgeItem
			items = append(items, topN(knowledgeByTopic[topics[i]], pairTopItems)...)
			items = append(items, topN(knowledgeByTopic[topics[j]], pairTopItems)...)
			for _, rel := range s.mapper.ExtractRelationships(items, pair) {
				key := rel.PairKey()
				if existing, ok := best[key]; !ok || rel.Strength > existing.Strength {
					best[key] = rel
				}
			}
		}
	}
	out := make([]types.Relationship, 0, len(best))
	for _, rel := range best {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

// =============================================================================
// CONFLICT DETECTION
// =============================================================================

var negationWords = []string{"not", "never", "no longer", "cannot", "does not", "is not", "are not", "false", "incorrect", "disproven"}
var assertionWords = []string{"is", "are", "does", "always", "proven", "confirmed", "established", "true"}

// detectConflicts groups items by (topic, title) and flags groups where one
// item negates what another asserts about heuristically the same concept:
// at least three shared words among each item's first twenty tokens.
func detectConflicts(knowledgeByTopic map[string][]types.KnowledgeItem) []Conflict {
	var conflicts []Conflict
	for topic, items := range knowledgeByTopic {
		groups := make(map[string][]types.KnowledgeItem)
		for _, it := range items {
			groups[strings.ToLower(it.Title)] = append(groups[strings.ToLower(it.Title)], it)
		}
		for title, group := range groups {
			if len(group) < 2 {
				continue
			}
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					a, b := group[i].Content, group[j].Content
					if !sameConcept(a, b) {
						continue
					}
					switch {
					case containsAny(a, negationWords) && containsAny(b, assertionWords):
						conflicts = append(conflicts, Conflict{Topic: topic, Title: title, Assertion: head(b, 120), Negation: head(a, 120)})
					case containsAny(b, negationWords) && containsAny(a, assertionWords):
						conflicts = append(conflicts, Conflict{Topic: topic, Title: title, Assertion: head(a, 120), Negation: head(b, 120)})
					}
				}
			}
		}
	}
	return conflicts
}

// sameConcept checks for >=3 shared words among the first 20 tokens of each text.
func sameConcept(a, b string) bool {
	ta := firstTokens(a, 20)
	tb := firstTokens(b, 20)
	shared := 0
	for w := range ta {
		if tb[w] {
			shared++
			if shared >= 3 {
				return true
			}
		}
	}
	return false
}

func firstTokens(s string, n int) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) > n {
		fields = fields[:n]
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?")] = true
	}
	return set
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// =============================================================================
// CONTEXT MERGE
// =============================================================================

// mergeContext builds the synthesized text block: optional previous-context
// header, per-topic sections of up to three truncated items, then a
// relationship section listing up to five relationships.
func (s *Synthesizer) mergeContext(topics []string, knowledgeByTopic map[string][]types.KnowledgeItem, relationships []types.Relationship, previousContext string) string {
	var b strings.Builder
	if strings.TrimSpace(previousContext) != "" {
		b.WriteString("Previous context: ")
		b.WriteString(strings.TrimSpace(previousContext))
		b.WriteString("\n\n")
	}
	for _, topic := range topics {
		items := knowledgeByTopic[topic]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", topic)
		for _, it := range topN(items, maxItemsPerTopic) {
			text := strings.TrimSpace(it.Content)
			fmt.Fprintf(&b, "- %s: %s\n", it.Title, head(text, itemTruncateLen))
		}
		b.WriteString("\n")
	}
	if len(relationships) > 0 {
		b.WriteString("Relationships between topics:\n")
		for _, rel := range topRels(relationships, maxRelationsShown) {
			fmt.Fprintf(&b, "- %s -[%s]-> %s (strength %.2f)\n", rel.Topic1, rel.Type, rel.Topic2, rel.Strength)
		}
	}
	return strings.TrimSpace(b.String())
}

// qualityScore composes the context quality from its length, relationship
// count, conflict count, and item coverage, clamped to [0,1].
func qualityScore(context string, relationships, conflicts, totalItems int) float64 {
	var score float64
	n := len(context)
	switch {
	case n >= 200 && n <= 2000:
		score += 0.3
	case n > 200:
		score += 0.2
	}
	relBonus := 0.1 * float64(relationships)
	if relBonus > 0.3 {
		relBonus = 0.3
	}
	score += relBonus

	conflictPenalty := 0.1 * float64(conflicts)
	if conflictPenalty > 0.3 {
		conflictPenalty = 0.3
	}
	score -= conflictPenalty

	switch {
	case totalItems >= 3:
		score += 0.2
	case totalItems >= 1:
		score += 0.1
	}
	return types.Clamp01(score)
}

// =============================================================================
// HELPERS
// =============================================================================

func sortedTopics(m map[string][]types.KnowledgeItem) []string {
	topics := make([]string, 0, len(m))
	for t := range m {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func topN(items []types.KnowledgeItem, n int) []types.KnowledgeItem {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func topRels(rels []types.Relationship, n int) []types.Relationship {
	if len(rels) <= n {
		return rels
	}
	return rels[:n]
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
