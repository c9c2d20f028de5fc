// Package relmap detects pairwise topic relationships from knowledge
// content. Detection is pattern-driven: a fixed table of phrase patterns per
// relationship category, each tagged with a direction, whose captures are
// resolved against the topic set. Duplicate detections for the same
// unordered topic pair keep the highest-strength candidate.
package relmap

import (
	"context"
	"regexp"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/types"
)

// =============================================================================
// PATTERN TABLES
// =============================================================================

// direction describes how a pattern's two captures map onto topic1/topic2.
type direction int

const (
	forward       direction = iota // capture1 -> capture2
	backward                       // capture2 -> capture1
	bidirectional                  // both directions hold
)

type relationPattern struct {
	rtype types.RelationshipType
	re    *regexp.Regexp
	dir   direction
}

// Capture groups for the phrases on either side of a connective. The left
// capture is lazy so it stops at the first connective; the right capture is
// greedy and runs to the next punctuation, where the character class ends it.
const (
	phraseL = `([a-zA-Z][a-zA-Z0-9 '\-]{2,60}?)`
	phraseR = `([a-zA-Z][a-zA-Z0-9 '\-]{2,60})`
)

var relationPatterns = []relationPattern{
	// Causal
	{types.RelCausal, regexp.MustCompile(phraseL + `\s+(?:causes?|leads? to|results? in|triggers?|drives?)\s+` + phraseR), forward},
	{types.RelCausal, regexp.MustCompile(phraseL + `\s+(?:is|are) caused by\s+` + phraseR), backward},
	{types.RelCausal, regexp.MustCompile(phraseL + `\s+(?:affects?|influences?|impacts?)\s+` + phraseR), forward},

	// Hierarchical
	{types.RelHierarchical, regexp.MustCompile(phraseL + `\s+(?:is|are) (?:a |an )?(?:type|kind|form|subset) of\s+` + phraseR), forward},
	{types.RelHierarchical, regexp.MustCompile(phraseL + `\s+(?:is|are) part of\s+` + phraseR), forward},
	{types.RelHierarchical, regexp.MustCompile(phraseL + `\s+(?:includes?|contains?|encompasses?)\s+` + phraseR), backward},

	// Associative
	{types.RelAssociative, regexp.MustCompile(phraseL + `\s+(?:is|are) (?:closely )?(?:related|linked|connected|tied) to\s+` + phraseR), bidirectional},
	{types.RelAssociative, regexp.MustCompile(phraseL + `\s+(?:is|are) associated with\s+` + phraseR), bidirectional},
	{types.RelAssociative, regexp.MustCompile(phraseL + `\s+correlates? with\s+` + phraseR), bidirectional},

	// Comparative
	{types.RelComparative, regexp.MustCompile(phraseL + `\s+(?:is|are) (?:better|worse|larger|smaller|faster|slower) than\s+` + phraseR), forward},
	{types.RelComparative, regexp.MustCompile(phraseL + `\s+(?:compared to|differs? from|contrasts? with)\s+` + phraseR), bidirectional},

	// Temporal
	{types.RelTemporal, regexp.MustCompile(phraseL + `\s+(?:preceded|came before|happened before)\s+` + phraseR), forward},
	{types.RelTemporal, regexp.MustCompile(phraseL + `\s+(?:followed|came after|happened after)\s+` + phraseR), backward},
}

// indicator words per category; each present word scales the strength bonus.
var categoryIndicators = map[types.RelationshipType][]string{
	types.RelCausal:       {"cause", "effect", "impact", "influence", "consequence", "trigger"},
	types.RelHierarchical: {"type", "category", "subset", "part", "component", "member"},
	types.RelAssociative:  {"related", "connection", "associated", "link", "correlation", "together"},
	types.RelComparative:  {"than", "versus", "contrast", "difference", "similar", "unlike"},
	types.RelTemporal:     {"before", "after", "then", "subsequently", "earlier", "later"},
}

// =============================================================================
// MAPPER
// =============================================================================

// RelationshipStore is the persistence contract the mapper writes through.
// Upsert keeps at most one relationship per unordered (pair, type) key,
// always the highest-strength candidate.
type RelationshipStore interface {
	Upsert(ctx context.Context, rel types.Relationship) error
	Get(ctx context.Context, topic string, rtype types.RelationshipType) ([]types.Relationship, error)
}

// Mapper extracts relationships from knowledge content. Stateless; safe for
// concurrent use.
type Mapper struct{}

// New creates a Mapper.
func New() *Mapper {
	return &Mapper{}
}

// ExtractRelationships scans each item's combined title+content for pattern
// matches whose captures both resolve to distinct topics from the given set.
// Results are deduplicated by unordered (topic1, topic2, type) key, keeping
// max strength.
func (m *Mapper) ExtractRelationships(items []types.KnowledgeItem, topics []string) []types.Relationship {
	timer := logging.StartTimer(logging.CategorySynthesis, "ExtractRelationships")
	defer timer.Stop()

	best := make(map[string]types.Relationship)
	for _, item := range items {
		text := strings.ToLower(item.Title + ". " + item.Content)
		for _, pat := range relationPatterns {
			for _, match := range pat.re.FindAllStringSubmatch(text, -1) {
				if len(match) < 3 {
					continue
				}
				t1 := resolveTopic(match[1], topics)
				t2 := resolveTopic(match[2], topics)
				if pat.dir == backward {
					t1, t2 = t2, t1
				}
				if t1 == "" || t2 == "" || strings.EqualFold(t1, t2) {
					continue
				}

				strength := strengthFor(pat.rtype, t1, t2, text)
				rel := types.Relationship{
					Topic1:     t1,
					Topic2:     t2,
					Type:       pat.rtype,
					Strength:   strength,
					Confidence: strength,
					Evidence:   strings.TrimSpace(match[0]),
				}
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
	logging.Debugf(logging.CategorySynthesis, "extracted %d relationships from %d items", len(out), len(items))
	return out
}

// strengthFor computes base 0.5, +0.2 when both topics repeat more than once
// in the content, plus up to 0.3 scaled by how many category indicator words
// are present.
func strengthFor(rtype types.RelationshipType, t1, t2, text string) float64 {
	strength := 0.5
	if strings.Count(text, strings.ToLower(t1)) > 1 && strings.Count(text, strings.ToLower(t2)) > 1 {
		strength += 0.2
	}
	indicators := categoryIndicators[rtype]
	found := 0
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			found++
		}
	}
	if len(indicators) > 0 {
		strength += 0.3 * float64(found) / float64(len(indicators))
	}
	return types.Clamp01(strength)
}

// resolveTopic maps a raw captured phrase onto the topic set: exact match
// first, then substring containment either way, then a >=2 shared-word
// overlap. Returns "" when nothing resolves.
func resolveTopic(capture string, topics []string) string {
	capture = strings.TrimSpace(strings.ToLower(capture))
	if capture == "" {
		return ""
	}
	for _, t := range topics {
		if strings.EqualFold(capture, t) {
			return t
		}
	}
	for _, t := range topics {
		lt := strings.ToLower(t)
		if strings.Contains(capture, lt) || strings.Contains(lt, capture) {
			return t
		}
	}
	capWords := wordSet(capture)
	for _, t := range topics {
		shared := 0
		for w := range wordSet(strings.ToLower(t)) {
			if capWords[w] {
				shared++
			}
		}
		if shared >= 2 {
			return t
		}
	}
	return ""
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// =============================================================================
// GRAPH BUILDING
// =============================================================================

// BuildRelationshipGraph extracts relationships across every topic's
// knowledge, persists the accepted ones, and returns an adjacency map.
// Bidirectional relationship types additionally insert the mirrored edge.
// Persistence failures degrade to in-memory results only.
func (m *Mapper) BuildRelationshipGraph(ctx context.Context, topics []string, knowledgeByTopic map[string][]types.KnowledgeItem, store RelationshipStore) map[string][]types.Relationship {
	var all []types.KnowledgeItem
	for _, items := range knowledgeByTopic {
		all = append(all, items...)
	}
	rels := m.ExtractRelationships(all, topics)

	graph := make(map[string][]types.Relationship)
	for _, rel := range rels {
		if store != nil {
			if err := store.Upsert(ctx, rel); err != nil {
				logging.Warnf(logging.CategorySynthesis, "relationship upsert failed for %s-%s: %v", rel.Topic1, rel.Topic2, err)
			}
		}
		graph[rel.Topic1] = append(graph[rel.Topic1], rel)
		if isBidirectional(rel.Type) {
			mirrored := rel
			mirrored.Topic1, mirrored.Topic2 = rel.Topic2, rel.Topic1
			graph[mirrored.Topic1] = append(graph[mirrored.Topic1], mirrored)
		}
	}
	return graph
}

func isBidirectional(rtype types.RelationshipType) bool {
	return rtype == types.RelAssociative || rtype == types.RelComparative
}
